package handlers

import (
	"github.com/gin-gonic/gin"

	"salakbook/internal/session"
)

// SessionKey is the gin context key the auth middleware stores the caller's
// session under.
const SessionKey = "salakbook.session"

// SessionFromContext fetches the session placed by the auth middleware, or
// nil on unauthenticated routes.
func SessionFromContext(c *gin.Context) *session.Session {
	value, exists := c.Get(SessionKey)
	if !exists {
		return nil
	}
	sess, ok := value.(*session.Session)
	if !ok {
		return nil
	}
	return sess
}
