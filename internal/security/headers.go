package security

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const apiCSP = "default-src 'none'; frame-ancestors 'none'; base-uri 'none'"

// SecurityHeadersMiddleware adds security headers to all responses. The
// interactive docs under docsPrefix keep the browser defaults for CSP.
func SecurityHeadersMiddleware(enableHSTS bool, docsPrefix string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		c.Header("Cross-Origin-Resource-Policy", "same-site")

		if docsPrefix == "" || !strings.HasPrefix(c.Request.URL.Path, docsPrefix) {
			c.Header("Content-Security-Policy", apiCSP)
		}

		if enableHSTS {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
