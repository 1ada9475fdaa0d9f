package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/richxcame/safari-bookings/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(seen *string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CorrelationID(), RequestLogger())
	r.GET("/health/live", func(c *gin.Context) {
		*seen = logger.CorrelationIDFromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})
	return r
}

func TestCorrelationIDKeepsValidHeader(t *testing.T) {
	var seen string
	r := newRouter(&seen)

	id := uuid.New().String()
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	req.Header.Set(CorrelationIDHeader, id)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, id, seen)
	assert.Equal(t, id, w.Header().Get(CorrelationIDHeader))
}

func TestCorrelationIDReplacesInvalidHeader(t *testing.T) {
	var seen string
	r := newRouter(&seen)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	req.Header.Set(CorrelationIDHeader, "not-a-uuid")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	_, err := uuid.Parse(seen)
	require.NoError(t, err)
	assert.NotEqual(t, "not-a-uuid", seen)
	assert.Equal(t, seen, w.Header().Get(CorrelationIDHeader))
}
