// file: internal/server/middleware/basicauth.go
// version: 2.0.0
// guid: a1b2c3d4-e5f6-7a8b-9c0d-1e2f3a4b5c6d

package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jdfalk/manga-organizer/internal/config"
)

const authRealm = `Basic realm="Manga Organizer"`

// exemptPaths stay reachable without credentials so probes and scrapers work.
var exemptPaths = map[string]bool{
	"/api/health":    true,
	"/api/v1/health": true,
	"/metrics":       true,
}

// BasicAuth enforces HTTP Basic Authentication when
// config.AppConfig.BasicAuthEnabled is true.
func BasicAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !config.AppConfig.BasicAuthEnabled || exemptPaths[c.Request.URL.Path] {
			c.Next()
			return
		}

		user, pass, ok := c.Request.BasicAuth()
		if !ok || !credentialsMatch(user, pass) {
			c.Header("WWW-Authenticate", authRealm)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Next()
	}
}

func credentialsMatch(user, pass string) bool {
	userMatch := subtle.ConstantTimeCompare([]byte(user), []byte(config.AppConfig.BasicAuthUsername)) == 1
	passMatch := subtle.ConstantTimeCompare([]byte(pass), []byte(config.AppConfig.BasicAuthPassword)) == 1
	return userMatch && passMatch
}
