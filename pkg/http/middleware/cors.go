package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

var (
	corsMethods = strings.Join([]string{http.MethodGet, http.MethodPost, http.MethodOptions}, ", ")
	corsHeaders = strings.Join([]string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept}, ", ")
)

// CORS lets the dashboard origins read the signal API. "*" admits any
// origin. Preflights are answered here and never reach a handler.
func CORS(origins []string, maxAge time.Duration) echo.MiddlewareFunc {
	anyOrigin := slices.Contains(origins, "*")
	age := strconv.Itoa(int(maxAge / time.Second))

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			h := c.Response().Header()
			h.Add(echo.HeaderVary, echo.HeaderOrigin)

			origin := req.Header.Get(echo.HeaderOrigin)
			if origin == "" || (!anyOrigin && !slices.Contains(origins, origin)) {
				return next(c)
			}
			if anyOrigin {
				h.Set(echo.HeaderAccessControlAllowOrigin, "*")
			} else {
				h.Set(echo.HeaderAccessControlAllowOrigin, origin)
			}

			if req.Method != http.MethodOptions || req.Header.Get(echo.HeaderAccessControlRequestMethod) == "" {
				return next(c)
			}
			h.Set(echo.HeaderAccessControlAllowMethods, corsMethods)
			h.Set(echo.HeaderAccessControlAllowHeaders, corsHeaders)
			if maxAge > 0 {
				h.Set(echo.HeaderAccessControlMaxAge, age)
			}
			return c.NoContent(http.StatusNoContent)
		}
	}
}
