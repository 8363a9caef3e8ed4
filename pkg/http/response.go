package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// DataResponse writes data inside the envelope. The envelope status mirrors
// the HTTP status code.
func DataResponse[T any](c echo.Context, statusCode int, data T) error {
	return c.JSON(statusCode, APIResponse[T]{
		Status:  statusCode,
		Message: http.StatusText(statusCode),
		Data:    data,
	})
}

// SuccessResponse writes a 200 envelope.
func SuccessResponse[T any](c echo.Context, data T) error {
	return DataResponse(c, http.StatusOK, data)
}

// BadRequestResponse writes the field errors of a rejected request.
func BadRequestResponse(c echo.Context, errs []ValidationError) error {
	return DataResponse(c, http.StatusBadRequest, errs)
}

// AppErrorResponse writes err with its own status. Errors that are not an
// *AppError are reported as a generic 500 so internals never leak.
func AppErrorResponse(c echo.Context, err error) error {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		appErr = InternalError("something went wrong")
	}
	return DataResponse(c, appErr.Status, []*AppError{appErr})
}
