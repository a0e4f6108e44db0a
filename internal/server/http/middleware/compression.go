package middleware

import (
	"compress/flate"
	"compress/gzip"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// DecompressRequest inflates gzip or deflate encoded request bodies before
// binding. The inflated body is capped at maxBytes; non-positive disables the cap.
// Unknown encodings are rejected with 415.
func DecompressRequest(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		encoding := strings.ToLower(strings.TrimSpace(c.GetHeader("Content-Encoding")))
		if encoding == "" || encoding == "identity" {
			c.Next()
			return
		}

		original := c.Request.Body
		var inflated io.ReadCloser
		switch encoding {
		case "gzip", "x-gzip":
			reader, err := gzip.NewReader(original)
			if err != nil {
				c.AbortWithStatus(http.StatusBadRequest)
				return
			}
			inflated = reader
		case "deflate":
			inflated = flate.NewReader(original)
		default:
			c.AbortWithStatus(http.StatusUnsupportedMediaType)
			return
		}
		defer inflated.Close()
		defer original.Close()

		body := io.NopCloser(inflated)
		if maxBytes > 0 {
			body = http.MaxBytesReader(c.Writer, body, maxBytes)
		}
		c.Request.Body = body
		c.Request.Header.Del("Content-Encoding")
		c.Request.ContentLength = -1
		c.Next()
	}
}
