package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// StaticCache marks responses as publicly cacheable. Uploaded media gets a fresh
// random name on every upload, so a stored file never changes.
func StaticCache(maxAge time.Duration) gin.HandlerFunc {
	value := "public, max-age=" + strconv.Itoa(int(maxAge.Seconds())) + ", immutable"
	return func(c *gin.Context) {
		c.Header("Cache-Control", value)
		c.Next()
	}
}

// NoStore keeps candidate papers, progress and results out of browser and proxy caches.
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Header("Pragma", "no-cache")
		c.Next()
	}
}
