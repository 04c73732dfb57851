package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggingConfig holds logging middleware configuration
type LoggingConfig struct {
	SkipPaths []string
}

// Logging writes one access log line per request
type Logging struct {
	config *LoggingConfig
	logger *zap.Logger
}

// NewLogging creates a new logging middleware
func NewLogging(config *LoggingConfig, logger *zap.Logger) *Logging {
	if config == nil {
		config = &LoggingConfig{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logging{
		config: config,
		logger: logger,
	}
}

// Middleware returns the Gin logging middleware
func (l *Logging) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if l.shouldSkipPath(c.Request.URL.Path) {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.Int64("request_size", c.Request.ContentLength),
			zap.Int("response_size", c.Writer.Size()),
			zap.String("request_id", GetRequestID(c)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		level := zapcore.InfoLevel
		switch {
		case status >= 500:
			level = zapcore.ErrorLevel
		case status >= 400:
			level = zapcore.WarnLevel
		}
		if ce := l.logger.Check(level, "http request"); ce != nil {
			ce.Write(fields...)
		}
	}
}

// shouldSkipPath checks if the path should be skipped
func (l *Logging) shouldSkipPath(path string) bool {
	for _, skipPath := range l.config.SkipPaths {
		if strings.HasPrefix(path, skipPath) {
			return true
		}
	}
	return false
}
