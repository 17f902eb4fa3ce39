package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// RequestLogger logs one line per request.
func RequestLogger(entry *log.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := log.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
			"client":   c.ClientIP(),
		}
		if claims := Claims(c); claims.StaffName != "" {
			fields["staff"] = claims.StaffName
		}
		e := entry.WithFields(fields)
		switch {
		case len(c.Errors) > 0:
			e.WithError(c.Errors.Last()).Warn("request")
		case c.Writer.Status() >= 500:
			e.Warn("request")
		default:
			e.Info("request")
		}
	}
}
