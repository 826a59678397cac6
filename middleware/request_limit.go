package middleware

import (
	"net/http"

	"studysync-backend/utils"

	"github.com/gin-gonic/gin"
)

// RequestSizeLimit rejects oversized request bodies up front, before the
// upload handler buffers anything. The PDF endpoint re-checks the individual
// file size; this guards the whole multipart body.
func RequestSizeLimit(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxSize {
			utils.RespondWithError(c, http.StatusRequestEntityTooLarge,
				"request_too_large",
				"Request body exceeds maximum size",
				gin.H{
					"max_size":    maxSize,
					"received":    c.Request.ContentLength,
					"max_size_mb": maxSize / (1024 * 1024),
				})
			c.Abort()
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}
