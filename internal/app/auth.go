package app

import "github.com/gin-gonic/gin"

const metricsRealm = "metrics"

// metricsAuthMiddleware guards /metrics with gin's Basic Auth when a
// password is configured. Without one the endpoint stays open so local
// scrapers keep working.
func metricsAuthMiddleware(username, password string) gin.HandlerFunc {
	if password == "" {
		return func(c *gin.Context) { c.Next() }
	}
	return gin.BasicAuthForRealm(gin.Accounts{username: password}, metricsRealm)
}
