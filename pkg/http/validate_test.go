package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type calibrateRequest struct {
	Raw        float64 `json:"raw_probability" validate:"gte=0,lte=1"`
	MinSamples int     `json:"min_samples" default:"30" validate:"gte=1"`
	Symbol     string  `json:"symbol" validate:"required,symbol"`
}

type windowRequest struct {
	Symbol string `query:"symbol" validate:"omitempty,symbol"`
	Start  string `json:"start_date" validate:"required,datetime=2006-01-02"`
	Side   string `json:"side" default:"CE" validate:"oneof=CE PE"`
}

func newJSONContext(body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestReadAndValidateRequestAppliesDefaults(t *testing.T) {
	c, _ := newJSONContext(`{"raw_probability":0.62,"symbol":"NSE:NIFTY50-INDEX"}`)
	var req calibrateRequest
	require.Nil(t, ReadAndValidateRequest(c, &req))
	assert.Equal(t, 30, req.MinSamples)
}

func TestReadAndValidateRequestReportsFields(t *testing.T) {
	c, _ := newJSONContext(`{"raw_probability":1.5}`)
	var req calibrateRequest
	errs := ReadAndValidateRequest(c, &req)
	require.NotEmpty(t, errs)

	byField := map[string]ValidationError{}
	for _, e := range errs {
		byField[e.Field] = e
	}
	assert.Equal(t, "ERR_LTE", byField["raw_probability"].Code)
	assert.Equal(t, "raw_probability must be at most 1", byField["raw_probability"].Message)
	assert.Equal(t, "1", byField["raw_probability"].Params["max"])
	assert.Equal(t, "ERR_REQUIRED", byField["symbol"].Code)
	assert.Equal(t, "symbol is required", byField["symbol"].Message)
}

func TestReadAndValidateRequestDomainTags(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		field   string
		code    string
		message string
	}{
		{"lower case symbol", `{"raw_probability":0.5,"symbol":"nse:nifty"}`, "symbol", "ERR_SYMBOL", "symbol must look like NSE:NIFTY50-INDEX"},
		{"spaced symbol", `{"raw_probability":0.5,"symbol":"NSE NIFTY"}`, "symbol", "ERR_SYMBOL", "symbol must look like NSE:NIFTY50-INDEX"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newJSONContext(tt.body)
			var req calibrateRequest
			errs := ReadAndValidateRequest(c, &req)
			require.Len(t, errs, 1)
			assert.Equal(t, tt.field, errs[0].Field)
			assert.Equal(t, tt.code, errs[0].Code)
			assert.Equal(t, tt.message, errs[0].Message)
		})
	}

	c, _ := newJSONContext(`{"start_date":"12-10-2026","side":"FUT"}`)
	var req windowRequest
	errs := ReadAndValidateRequest(c, &req)
	require.Len(t, errs, 2)
	assert.Equal(t, "start_date", errs[0].Field)
	assert.Equal(t, "start_date must be a date laid out as 2006-01-02", errs[0].Message)
	assert.Equal(t, "side", errs[1].Field)
	assert.Equal(t, "side must be one of: CE, PE", errs[1].Message)
	assert.Equal(t, []string{"CE", "PE"}, errs[1].Params["options"])
}

func TestReadAndValidateRequestBindError(t *testing.T) {
	c, _ := newJSONContext(`{"raw_probability":`)
	var req calibrateRequest
	errs := ReadAndValidateRequest(c, &req)
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_BIND", errs[0].Code)
}

func TestAppErrorResponse(t *testing.T) {
	c, rec := newJSONContext("")
	require.NoError(t, AppErrorResponse(c, NotFoundError("no decision cached")))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_NOT_FOUND")

	c, rec = newJSONContext("")
	require.NoError(t, AppErrorResponse(c, errors.New("pq: connection refused")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_INTERNAL")
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestSuccessResponseEnvelope(t *testing.T) {
	type quote struct {
		Strike float64 `json:"strike"`
	}
	c, rec := newJSONContext("")
	require.NoError(t, SuccessResponse(c, quote{Strike: 22000}))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":200,"message":"OK","data":{"strike":22000}}`, rec.Body.String())
}

func TestStatusErrorTemporary(t *testing.T) {
	assert.True(t, (&StatusError{Code: 503}).Temporary())
	assert.True(t, (&StatusError{Code: 429}).Temporary())
	assert.False(t, (&StatusError{Code: 401}).Temporary())
}
