// Package http provides the HTTP server, shared middleware, and route
// registration for the API.
package http

import (
	"log/slog"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gridworks/datahub/internal/httputil"
)

// CustomLoggerMiddleware logs HTTP requests with structured fields,
// including the request id assigned by the requestid middleware.
func CustomLoggerMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		logger.Info("http request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.String("client_ip", c.ClientIP()),
			slog.String("request_id", requestid.Get(c)),
		)
	}
}

// RequestIDContextMiddleware copies the request id assigned by the requestid
// middleware into the request context, so layers below the HTTP boundary can
// attach it to their records.
func RequestIDContextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id, err := uuid.Parse(requestid.Get(c)); err == nil {
			ctx := httputil.WithRequestID(c.Request.Context(), id)
			c.Request = c.Request.WithContext(ctx)
		}

		c.Next()
	}
}
