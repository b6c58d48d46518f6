package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/alechenninger/readgate/internal/attributes"
	"github.com/alechenninger/readgate/internal/probe"
	"github.com/alechenninger/readgate/internal/route"
)

// RequestIDHeader is echoed on every HTTP response
const RequestIDHeader = "X-Request-Id"

// ginStore exposes a gin.Context's keys as an attribute store
type ginStore struct {
	c *gin.Context
}

func (s ginStore) Get(key string) (any, bool) { return s.c.Get(key) }
func (s ginStore) Set(key string, value any)  { s.c.Set(key, value) }

// GinStore adapts c to attributes.Store
func GinStore(c *gin.Context) attributes.Store {
	return ginStore{c: c}
}

// FromGin returns the request context the Attributes middleware wrote to
func FromGin(c *gin.Context) *attributes.Context {
	return attributes.New(GinStore(c))
}

// MiddlewareConfig configures the Attributes middleware
type MiddlewareConfig struct {
	BasePath    string
	TokenHeader string

	// PathFunc selects the path to classify. Defaults to RawPath.
	PathFunc func(c *gin.Context) string
}

// RawPath returns the request path as sent, without percent-decoding
func RawPath(c *gin.Context) string {
	return c.Request.URL.EscapedPath()
}

// Attributes runs the pipeline for each request, storing the results as
// gin context keys under their wire names.
func Attributes(p *Pipeline, cfg MiddlewareConfig) gin.HandlerFunc {
	if cfg.TokenHeader == "" {
		cfg.TokenHeader = DefaultTokenHeader
	}
	cfg.TokenHeader = strings.ToLower(cfg.TokenHeader)
	if cfg.PathFunc == nil {
		cfg.PathFunc = RawPath
	}

	return func(c *gin.Context) {
		store := GinStore(c)
		store.Set(attributes.KeyRequestVerb, c.Request.Method)
		store.Set(attributes.KeyPathSuffix, route.TrimBasePath(cfg.BasePath, cfg.PathFunc(c)))
		if tok := tokenFromHeader(cfg.TokenHeader, c.GetHeader(cfg.TokenHeader)); tok != "" {
			store.Set(attributes.KeyToken, tok)
		}

		p.Run(c.Request.Context(), store)
		c.Next()
	}
}

// RequestID assigns each request an id, reusing the client's X-Request-Id.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(RequestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Writer.Header().Set(RequestIDHeader, reqID)
		c.Request = c.Request.WithContext(probe.ContextWithRequestID(c.Request.Context(), reqID))
		c.Next()
	}
}
