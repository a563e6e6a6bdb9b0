package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/globalbeauty/concierge-api/internal/handler"
)

func errorTestRouter(route gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandler(zerolog.Nop()))
	r.GET("/boom", route)
	return r
}

func TestErrorHandlerKeepsHandlerBody(t *testing.T) {
	r := errorTestRouter(func(c *gin.Context) {
		handler.Error(c, errors.New("pq: connection refused"))
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	dec := json.NewDecoder(w.Body)
	var resp handler.Response
	require.NoError(t, dec.Decode(&resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "internal server error", resp.Message)

	// The middleware must not append a second body after the handler's.
	var extra json.RawMessage
	assert.ErrorIs(t, dec.Decode(&extra), io.EOF)
}

func TestErrorHandlerWritesBodyWhenHandlerDidNot(t *testing.T) {
	r := errorTestRouter(func(c *gin.Context) {
		_ = c.Error(errors.New("pq: connection refused"))
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.Equal(t, "internal server error", resp.Message)
	assert.NotContains(t, w.Body.String(), "connection refused")
}
