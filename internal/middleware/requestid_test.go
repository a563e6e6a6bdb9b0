package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	t.Run("generates an id when the header is absent", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

		_, err := uuid.Parse(w.Header().Get(HeaderXRequestID))
		require.NoError(t, err)
	})

	t.Run("echoes a well formed caller id", func(t *testing.T) {
		supplied := uuid.NewString()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set(HeaderXRequestID, supplied)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, supplied, w.Header().Get(HeaderXRequestID))
	})

	t.Run("replaces a malformed caller id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set(HeaderXRequestID, "<script>")

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		got := w.Header().Get(HeaderXRequestID)
		assert.NotEqual(t, "<script>", got)
		_, err := uuid.Parse(got)
		require.NoError(t, err)
	})
}
