package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smilemakc/atelier/internal/application/session"
)

const contextKeySession = "session_state"

// SessionMiddleware decodes the signed session cookie carrying the
// selected database and planning.
type SessionMiddleware struct {
	sessions *session.Service
}

// NewSessionMiddleware creates a SessionMiddleware.
func NewSessionMiddleware(sessions *session.Service) *SessionMiddleware {
	return &SessionMiddleware{sessions: sessions}
}

// Load parses the session cookie when present and stores the state in
// the request context. An invalid or expired cookie is treated as no
// session at all; the selection endpoints will issue a fresh one.
func (m *SessionMiddleware) Load() gin.HandlerFunc {
	return func(c *gin.Context) {
		if cookie, err := c.Cookie(m.sessions.CookieName()); err == nil && cookie != "" {
			if state, err := m.sessions.Verify(cookie); err == nil {
				c.Set(contextKeySession, state)
			}
		}
		c.Next()
	}
}

// RequireDatabase aborts requests that have not selected a database yet.
func (m *SessionMiddleware) RequireDatabase() gin.HandlerFunc {
	return func(c *gin.Context) {
		state := SessionState(c)
		if state == nil || state.DatabaseID == "" {
			respondAPIError(c, NewAPIError("NO_DATABASE_SELECTED", "No database selected", http.StatusUnauthorized))
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequirePlanning aborts requests that have not selected a planning yet.
func (m *SessionMiddleware) RequirePlanning() gin.HandlerFunc {
	return func(c *gin.Context) {
		state := SessionState(c)
		if state == nil || state.DatabaseID == "" || state.PlanningID == 0 {
			respondAPIError(c, NewAPIError("NO_PLANNING_SELECTED", "No planning selected", http.StatusUnauthorized))
			c.Abort()
			return
		}
		c.Next()
	}
}

// SetState issues a fresh session cookie for the given state.
func (m *SessionMiddleware) SetState(c *gin.Context, state session.State) error {
	token, err := m.sessions.Issue(state)
	if err != nil {
		return err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.sessions.CookieName(), token, m.sessions.TTLSeconds(), "/", "", m.sessions.Secure(), true)
	c.Set(contextKeySession, &state)
	return nil
}

// SessionState returns the decoded session state, or nil.
func SessionState(c *gin.Context) *session.State {
	value, exists := c.Get(contextKeySession)
	if !exists {
		return nil
	}
	state, ok := value.(*session.State)
	if !ok {
		return nil
	}
	return state
}
