package middleware

import (
	"net"

	"github.com/gin-gonic/gin"
)

// AllowPrivateIP bypasses rate limiting for loopback and RFC 1918
// addresses so in-cluster callers (health checks, metric scrapers) are
// never throttled.
func AllowPrivateIP() AllowFunc {
	return func(c *gin.Context) bool {
		ip := net.ParseIP(ipFromCtx(c))
		if ip == nil {
			return false
		}
		return ip.IsLoopback() || ip.IsPrivate()
	}
}
