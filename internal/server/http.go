package server

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alechenninger/readgate/internal/attributes"
)

const inspectPrefix = "/inspect"

// HTTPConfig configures the HTTP surface
type HTTPConfig struct {
	BasePath       string
	TokenHeader    string
	MetricsEnabled bool
	Logger         *slog.Logger
}

// NewHTTPHandler builds the gin engine serving health, metrics and the
// inspect endpoint.
//
// GET /inspect/<path> runs the pipeline for <path> with the caller's token
// and returns the resulting attributes. <path> is classified as sent,
// without percent-decoding. The HTTP method of the inspect
// request is the one classified.
func NewHTTPHandler(p *Pipeline, cfg HTTPConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), RequestID(), accessLog(cfg.Logger))

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if cfg.MetricsEnabled {
		engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	inspect := Attributes(p, MiddlewareConfig{
		BasePath:    cfg.BasePath,
		TokenHeader: cfg.TokenHeader,
		PathFunc:    func(c *gin.Context) string { return strings.TrimPrefix(RawPath(c), inspectPrefix) },
	})
	engine.Any(inspectPrefix+"/*path", inspect, func(c *gin.Context) {
		c.JSON(http.StatusOK, attributes.Snapshot(GinStore(c)))
	})

	return engine
}

func accessLog(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.LogAttrs(c.Request.Context(), slog.LevelDebug, "HTTP request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", time.Since(start)),
		)
	}
}
