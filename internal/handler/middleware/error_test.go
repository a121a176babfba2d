//go:build unit

package middleware_test

import (
	"errors"
	"net/http"
	"testing"

	"roombook/internal/handler/httperr"
	"roombook/internal/handler/middleware"
	"roombook/internal/pkg/errs"
	"roombook/internal/testutil/httptest"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestErrorHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	testCases := []struct {
		name       string
		handler    gin.HandlerFunc
		wantStatus int
		wantMsg    string
	}{
		{
			name: "success: public error keeps its response",
			handler: func(c *gin.Context) {
				httperr.AbortWithError(c, http.StatusTeapot, errors.New("boom"), "short and stout", nil)
			},
			wantStatus: http.StatusTeapot,
			wantMsg:    "short and stout",
		},
		{
			name: "success: private error is mapped by category",
			handler: func(c *gin.Context) {
				_ = c.Error(errs.NotFound(errors.New("no such booking")))
			},
			wantStatus: http.StatusNotFound,
			wantMsg:    "Not found",
		},
		{
			name: "error: uncategorized private error hides its text",
			handler: func(c *gin.Context) {
				_ = c.Error(errors.New("pq: connection refused"))
			},
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "Internal server error",
		},
		{
			name:       "error: panic becomes 500",
			handler:    func(*gin.Context) { panic("kaboom") },
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "Internal server error",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			router := gin.New()
			router.Use(middleware.CustomRecovery())
			router.Use(middleware.ErrorHandler())
			router.GET("/x", tc.handler)

			rec := httptest.PerformRequest(t, router, http.MethodGet, "/x", nil, "")

			httptest.AssertErrorResponse(t, rec, tc.wantStatus, tc.wantMsg)
			assert.NotContains(t, rec.Body.String(), "connection refused")
		})
	}
}
