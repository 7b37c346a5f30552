package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// DecompressRequest swaps a gzip-encoded request body for its plain
// form before binding. A body that announces gzip but fails to open as
// one is rejected with 400.
func DecompressRequest() gin.HandlerFunc {
	return func(c *gin.Context) {
		encoding := c.GetHeader("Content-Encoding")
		if !strings.Contains(encoding, "gzip") {
			c.Next()
			return
		}

		compressed := c.Request.Body
		plain, err := gzip.NewReader(compressed)
		if err != nil {
			c.AbortWithStatus(http.StatusBadRequest)
			return
		}
		defer plain.Close()
		defer compressed.Close()

		c.Request.Header.Del("Content-Encoding")
		c.Request.Body = io.NopCloser(plain)
		c.Next()
	}
}
