package http

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// symbolPattern accepts broker symbols such as NSE:NIFTY50-INDEX or a bare
// upper-case ticker.
var symbolPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9&_.-]*(:[A-Z0-9][A-Z0-9&_.-]*)?$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(wireName)
	if err := v.RegisterValidation("symbol", func(fl validator.FieldLevel) bool {
		return symbolPattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// wireName reports a field by the name the client used: json first, then
// query, then the Go name.
func wireName(f reflect.StructField) string {
	for _, key := range []string{"json", "query"} {
		name, _, _ := strings.Cut(f.Tag.Get(key), ",")
		if name != "" && name != "-" {
			return name
		}
	}
	return f.Name
}

// ReadAndValidateRequest binds the body and query into req, fills tag
// defaults and validates it. A nil result means req is usable.
func ReadAndValidateRequest(c echo.Context, req interface{}) []ValidationError {
	if err := c.Bind(req); err != nil {
		return toValidationErrors(err)
	}
	if err := defaults.Set(req); err != nil {
		return toValidationErrors(err)
	}
	if err := validate.StructCtx(c.Request().Context(), req); err != nil {
		return toValidationErrors(err)
	}
	return nil
}

func toValidationErrors(err error) []ValidationError {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		out := make([]ValidationError, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			out = append(out, ValidationError{
				Code:    "ERR_" + strings.ToUpper(fe.Tag()),
				Field:   fe.Field(),
				Message: fieldMessage(fe),
				Params:  fieldParams(fe),
			})
		}
		return out
	}

	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg = fmt.Sprint(he.Message)
	}
	return []ValidationError{{Code: "ERR_BIND", Message: msg}}
}

// fieldMessages are indexed by validator tag; %[1]s is the field and %[2]s
// the tag parameter.
var fieldMessages = map[string]string{
	"required": "%[1]s is required",
	"gt":       "%[1]s must be greater than %[2]s",
	"gte":      "%[1]s must be at least %[2]s",
	"lt":       "%[1]s must be less than %[2]s",
	"lte":      "%[1]s must be at most %[2]s",
	"min":      "%[1]s must have at least %[2]s entries",
	"max":      "%[1]s must have at most %[2]s entries",
	"oneof":    "%[1]s must be one of: %[2]s",
	"datetime": "%[1]s must be a date laid out as %[2]s",
	"symbol":   "%[1]s must look like NSE:NIFTY50-INDEX",
}

func fieldMessage(fe validator.FieldError) string {
	format, ok := fieldMessages[fe.Tag()]
	if !ok {
		return fmt.Sprintf("%s failed the %s check", fe.Field(), fe.Tag())
	}
	param := fe.Param()
	if fe.Tag() == "oneof" {
		param = strings.ReplaceAll(param, " ", ", ")
	}
	return fmt.Sprintf(format, fe.Field(), param)
}

func fieldParams(fe validator.FieldError) map[string]interface{} {
	switch fe.Tag() {
	case "min", "gte":
		return map[string]interface{}{"min": fe.Param()}
	case "max", "lte":
		return map[string]interface{}{"max": fe.Param()}
	case "gt", "lt":
		return map[string]interface{}{"value": fe.Param()}
	case "oneof":
		return map[string]interface{}{"options": strings.Fields(fe.Param())}
	case "datetime":
		return map[string]interface{}{"layout": fe.Param()}
	}
	return nil
}
