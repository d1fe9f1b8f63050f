package api

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"facturas/internal/logger"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

const contextLoggerKey = "logger"

// RequestID propagates or generates a request ID and attaches a request-scoped logger.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(RequestIDHeader))
		if id == "" {
			id = uuid.New().String()
		}
		c.Header(RequestIDHeader, id)

		log := logger.WithRequestID(id).With().Str("component", "api").Logger()
		c.Set(contextLoggerKey, log)

		start := time.Now()
		c.Next()

		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	}
}

func requestLogger(c *gin.Context) zerolog.Logger {
	if v, ok := c.Get(contextLoggerKey); ok {
		if log, ok := v.(zerolog.Logger); ok {
			return log
		}
	}
	return logger.WithComponent("api")
}
