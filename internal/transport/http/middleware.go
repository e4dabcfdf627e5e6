package httptransport

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"florence-server-go/internal/domain/auth"
	"florence-server-go/internal/utils"
)

// BearerAuth verifies the Authorization header against the shared token
// secret and stores the caller identity on the request context.
func BearerAuth(authToken *auth.AuthToken, logger *utils.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = utils.DefaultLogger
	}

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			RespondError(c, http.StatusUnauthorized, "missing bearer token", nil)
			c.Abort()
			return
		}

		valid, clientID, err := authToken.VerifyToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil || !valid {
			logger.WarnTag("AUTH", "token verification failed: %v", err)
			RespondError(c, http.StatusUnauthorized, "invalid token", nil)
			c.Abort()
			return
		}

		c.Set("client_id", clientID)
		c.Next()
	}
}
