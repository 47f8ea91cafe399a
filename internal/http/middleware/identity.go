package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// HeaderUserID carries the acting user. Authentication happens upstream of
// this service; the gateway forwards the verified identity in this header.
const HeaderUserID = "X-User-ID"

const ctxKeyUserID = "userID"

// maxUserIDLen bounds the identity header; longer values are ignored.
const maxUserIDLen = 128

// Identity resolves the acting user from X-User-ID and stores it in the Gin
// context. Requests without the header continue anonymously; handlers that
// need an actor reject them.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if uid := strings.TrimSpace(c.GetHeader(HeaderUserID)); uid != "" && len(uid) <= maxUserIDLen {
			c.Set(ctxKeyUserID, uid)
		}
		c.Next()
	}
}

// UserID returns the acting user set by Identity, or "" when anonymous.
func UserID(c *gin.Context) string {
	if v, ok := c.Get(ctxKeyUserID); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// RequireAdmin aborts with 401 for anonymous callers and 403 for callers
// isAdmin rejects.
func RequireAdmin(isAdmin func(userID string) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := UserID(c)
		if uid == "" {
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "X-User-ID required")
			return
		}
		if isAdmin == nil || !isAdmin(uid) {
			LoggerFrom(c).Warn().Str("user_id", uid).Msg("admin route denied")
			abortJSON(c, http.StatusForbidden, "forbidden", "admin only")
			return
		}
		c.Next()
	}
}
