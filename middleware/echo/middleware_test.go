package echomw_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/goshape"
	_ "github.com/reoring/goshape/format/jsonfmt"
	echomw "github.com/reoring/goshape/middleware/echo"
)

type createUser struct {
	Name string
	Age  int
}

func newServer(t *testing.T) *echo.Echo {
	t.Helper()
	reg := goshape.NewRegistry()
	require.NoError(t, goshape.Struct(reg,
		goshape.F("name", func(u *createUser) *string { return &u.Name }),
		goshape.F("age", func(u *createUser) *int { return &u.Age }),
	))
	e := echo.New()
	e.POST("/users", func(c echo.Context) error {
		u, ok := echomw.GetDecoded[createUser](c)
		if !ok {
			return c.NoContent(http.StatusInternalServerError)
		}
		u.Age++
		return echomw.Respond(c, reg, http.StatusCreated, u)
	}, echomw.Bind[createUser](reg, goshape.ImportOpt{}))
	return e
}

func TestBind(t *testing.T) {
	e := newServer(t)

	t.Run("decoded value reaches the handler", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(`{"name":"ann","age":30}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, `{"name":"ann","age":31}`, rec.Body.String())
	})
	t.Run("unknown key is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(`{"name":"ann","age":30,"admin":true}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), `"code":"unknown_key"`)
	})
}
