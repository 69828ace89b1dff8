package ginmw

import (
	"github.com/gin-gonic/gin"
	"github.com/reoring/goshape"
	"github.com/reoring/goshape/middleware"
)

// Bind decodes the request body into T with opt (or DefaultImportOpt when zero value),
// stores it in the request context, and on failure aborts with 400 and the issue list.
func Bind[T any](reg *goshape.Registry, opt goshape.ImportOpt) gin.HandlerFunc {
	if opt == (goshape.ImportOpt{}) {
		opt = middleware.DefaultImportOpt()
	}
	_ = middleware.RegisterErrorBody(reg)
	return func(c *gin.Context) {
		v, err := middleware.Decode[T](reg, c.Request, opt)
		if err != nil {
			_ = middleware.Reject(reg, c.Writer, c.Request, err)
			c.Abort()
			return
		}
		c.Request = c.Request.WithContext(middleware.ContextWithDecoded(c.Request.Context(), v))
		c.Next()
	}
}

// GetDecoded fetches the value stored by Bind.
func GetDecoded[T any](c *gin.Context) (T, bool) {
	return middleware.DecodedFromContext[T](c.Request.Context())
}

// Respond writes v in the format negotiated from the Accept header.
func Respond[T any](c *gin.Context, reg *goshape.Registry, status int, v T) {
	if err := middleware.Respond(reg, c.Writer, c.Request, status, v); err != nil {
		_ = c.Error(err)
	}
}
