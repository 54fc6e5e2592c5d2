package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/storefront/checkout/internal/infrastructure/logger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Tracing starts a server span per request through otelgin. Disabled tracing
// is a pass-through.
func Tracing(serviceName string, enabled bool) gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}
	return otelgin.Middleware(serviceName)
}

// TraceUser tags the active span with the authenticated subject. It runs after Auth.
func TraceUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			if id := logger.RequestID(c.Request.Context()); id != "" {
				span.SetAttributes(attribute.String("request_id", id))
			}
			if u := GetUser(c); u != nil && u.Subject != "" {
				span.SetAttributes(attribute.String("user.subject", u.Subject))
			}
		}
		c.Next()
	}
}
