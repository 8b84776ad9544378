package middleware

import (
	"time"

	"main/repository"

	"github.com/gin-gonic/gin"
)

// SessionTokenHashHeader carries the hash of the client's session token. The
// raw token never appears in a request; the hash is the only identity a
// session has on the wire.
const SessionTokenHashHeader = "X-Session-Token-Hash"

// inactivityTimeout kills sessions that kept their row alive but saw no
// request traffic.
const inactivityTimeout = 48 * time.Hour

// SessionMiddleware resolves the caller's session row from the token hash
// header. Requests without a hash or with a dead session pass through; the
// session is bookkeeping, not the authorization boundary (the JWT is).
func SessionMiddleware(sessionRepo *repository.SessionRepo) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenHash := c.GetHeader(SessionTokenHashHeader)
		if tokenHash == "" {
			c.Next()
			return
		}

		session, err := sessionRepo.GetByTokenHash(c.Request.Context(), tokenHash)
		if err != nil || session == nil || !session.IsLive(time.Now()) {
			c.Next()
			return
		}

		if time.Since(session.LastActiveAt) > inactivityTimeout {
			sessionRepo.Deactivate(c.Request.Context(), session.UserID, session.SessionID)
			c.Next()
			return
		}

		c.Set("session", session)
		c.Set("session_hash", tokenHash)
		c.Next()
	}
}
