package middleware

import (
	"log/slog"
	"slices"

	"roombook/internal/pkg/config"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewCORSMiddleware serves the browser clients of the booking API. The
// request id header is always exposed so a client can quote it. A "*" origin
// allows every origin and turns credentials off, which browsers require.
func NewCORSMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	expose := slices.Clone(cfg.ExposeHeaders)
	if !slices.Contains(expose, RequestIDHeader) {
		expose = append(expose, RequestIDHeader)
	}

	conf := cors.Config{
		AllowMethods:  cfg.AllowMethods,
		AllowHeaders:  cfg.AllowHeaders,
		ExposeHeaders: expose,
		MaxAge:        cfg.MaxAge,
	}
	if slices.Contains(cfg.AllowOrigins, "*") {
		conf.AllowAllOrigins = true
	} else {
		conf.AllowOrigins = cfg.AllowOrigins
		conf.AllowCredentials = cfg.AllowCredentials
	}

	slog.Info("cors configured",
		"origins", cfg.AllowOrigins,
		"all_origins", conf.AllowAllOrigins,
		"credentials", conf.AllowCredentials)
	return cors.New(conf)
}
