package echomw

import (
	"github.com/labstack/echo/v4"
	"github.com/reoring/goshape"
	"github.com/reoring/goshape/middleware"
)

// Bind decodes the request body into T, stores it in the request context on success,
// or answers 400 with the issue list when decoding fails.
func Bind[T any](reg *goshape.Registry, opt goshape.ImportOpt) echo.MiddlewareFunc {
	if opt == (goshape.ImportOpt{}) {
		opt = middleware.DefaultImportOpt()
	}
	_ = middleware.RegisterErrorBody(reg)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			v, err := middleware.Decode[T](reg, c.Request(), opt)
			if err != nil {
				return middleware.Reject(reg, c.Response(), c.Request(), err)
			}
			ctx := middleware.ContextWithDecoded(c.Request().Context(), v)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// GetDecoded fetches the value stored by Bind.
func GetDecoded[T any](c echo.Context) (T, bool) {
	return middleware.DecodedFromContext[T](c.Request().Context())
}

// Respond writes v in the format negotiated from the Accept header.
func Respond[T any](c echo.Context, reg *goshape.Registry, status int, v T) error {
	return middleware.Respond(reg, c.Response(), c.Request(), status, v)
}
