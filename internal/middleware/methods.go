package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// MethodNotAllowed answers 405 and advertises the methods the route serves.
func MethodNotAllowed(allowed ...string) gin.HandlerFunc {
	header := strings.Join(allowed, ", ")
	return func(c *gin.Context) {
		c.Header("Allow", header)
		abortWithError(c, http.StatusMethodNotAllowed, "Method Not Allowed")
	}
}
