//go:build unit

package middleware_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"roombook/internal/handler/middleware"
	"roombook/internal/pkg/config"
	"roombook/internal/testutil/httptest"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLoggedRouter(buf *bytes.Buffer) *gin.Engine {
	logger := slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	router := gin.New()
	router.Use(middleware.RequestLogger(logger))
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/api/bookings/:reference", func(c *gin.Context) {
		c.Set("jwt_claims", map[string]any{"user_id": "u-1"})
		c.Status(http.StatusNotFound)
	})
	return router
}

func lastLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &entry))
	return entry
}

// =============================================================================
// RequestLogger
// =============================================================================

func TestRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("success: booking request is logged with its reference and user", func(t *testing.T) {
		var buf bytes.Buffer
		router := newLoggedRouter(&buf)

		rec := httptest.PerformRequest(t, router, http.MethodGet, "/api/bookings/BKAAAA0000", nil, "")

		id := rec.Header().Get(middleware.RequestIDHeader)
		assert.NotEmpty(t, id)
		entry := lastLine(t, &buf)
		assert.Equal(t, "WARN", entry["level"])
		assert.Equal(t, id, entry["request_id"])
		assert.Equal(t, "/api/bookings/:reference", entry["route"])
		assert.Equal(t, "BKAAAA0000", entry["booking_reference"])
		assert.Equal(t, "u-1", entry["user_id"])
		assert.EqualValues(t, http.StatusNotFound, entry["status"])
	})

	t.Run("success: upstream request id is kept", func(t *testing.T) {
		var buf bytes.Buffer
		router := newLoggedRouter(&buf)

		rec := httptest.PerformRequestWithHeaders(t, router, http.MethodGet, "/health", nil, "",
			map[string]string{middleware.RequestIDHeader: "edge-42"})

		assert.Equal(t, "edge-42", rec.Header().Get(middleware.RequestIDHeader))
		entry := lastLine(t, &buf)
		assert.Equal(t, "edge-42", entry["request_id"])
		assert.Equal(t, "DEBUG", entry["level"], "health checks stay out of info logs")
	})

	t.Run("success: oversized upstream id is replaced", func(t *testing.T) {
		var buf bytes.Buffer
		router := newLoggedRouter(&buf)
		long := strings.Repeat("x", 65)

		rec := httptest.PerformRequestWithHeaders(t, router, http.MethodGet, "/health", nil, "",
			map[string]string{middleware.RequestIDHeader: long})

		got := rec.Header().Get(middleware.RequestIDHeader)
		assert.NotEqual(t, long, got)
		assert.Len(t, got, 36)
	})
}

// =============================================================================
// NewCORSMiddleware
// =============================================================================

func TestNewCORSMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	base := config.CORSConfig{
		AllowMethods:     []string{http.MethodGet, http.MethodPost},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           time.Hour,
	}

	testCases := []struct {
		name            string
		origins         []string
		origin          string
		wantAllowOrigin string
		wantCredentials string
	}{
		{
			name:            "success: listed origin keeps credentials",
			origins:         []string{"https://book.example"},
			origin:          "https://book.example",
			wantAllowOrigin: "https://book.example",
			wantCredentials: "true",
		},
		{
			name:            "success: wildcard origin drops credentials",
			origins:         []string{"*"},
			origin:          "https://any.example",
			wantAllowOrigin: "*",
			wantCredentials: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			cfg.AllowOrigins = tc.origins
			router := gin.New()
			router.Use(middleware.NewCORSMiddleware(cfg))
			router.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

			rec := httptest.PerformRequestWithHeaders(t, router, http.MethodGet, "/x", nil, "",
				map[string]string{"Origin": tc.origin})

			httptest.AssertHeaders(t, rec, map[string]string{
				"Access-Control-Allow-Origin":      tc.wantAllowOrigin,
				"Access-Control-Allow-Credentials": tc.wantCredentials,
			})
			assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), http.CanonicalHeaderKey(middleware.RequestIDHeader))
		})
	}
}
