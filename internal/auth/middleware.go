package auth

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"classaccess/internal/model"
)

// CookieName is the HttpOnly cookie carrying the session token.
const CookieName = "classaccess_session"

const contextKey = "session"

// Manager issues and reads session cookies.
type Manager struct {
	key    string
	issuer string
	ttl    time.Duration
	secure bool
	vault  Vault
}

// NewManager builds a manager. secure marks cookies HTTPS-only. A nil vault
// falls back to an in-process one.
func NewManager(key, issuer string, ttl time.Duration, secure bool, vault Vault) *Manager {
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	if vault == nil {
		vault = NewMemoryVault()
	}
	return &Manager{key: key, issuer: issuer, ttl: ttl, secure: secure, vault: vault}
}

// Start keeps the session credential in the vault, signs s and stores it in
// the session cookie.
func (m *Manager) Start(c *gin.Context, s Session) error {
	if s.Ref == "" {
		s.Ref = uuid.NewString()
	}
	if err := m.vault.Put(c.Request.Context(), s.Ref, s.Credential, m.ttl); err != nil {
		return err
	}
	token, _, err := Issue(s, m.issuer, m.key, m.ttl)
	if err != nil {
		return err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, token, int(m.ttl.Seconds()), "/", "", m.secure, true)
	return nil
}

// End forgets the session credential and clears the session cookie.
func (m *Manager) End(c *gin.Context) {
	if s, ok := FromContext(c); ok && s.Ref != "" {
		_ = m.vault.Delete(c.Request.Context(), s.Ref)
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, "", -1, "/", "", m.secure, true)
}

// Middleware parses the session cookie, or a bearer token, once per request
// and stores the session in the context. Requests without a valid session,
// or whose credential is gone from the vault, continue anonymously.
func (m *Manager) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, _ := c.Cookie(CookieName)
		if tokenStr == "" {
			authz := c.GetHeader("Authorization")
			if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
				tokenStr = strings.TrimSpace(authz[len("bearer "):])
			}
		}
		if tokenStr != "" {
			if s, ok := m.resolve(c, tokenStr); ok {
				c.Set(contextKey, s)
			}
		}
		c.Next()
	}
}

func (m *Manager) resolve(c *gin.Context, tokenStr string) (Session, bool) {
	claims, err := Parse(tokenStr, m.key, m.issuer)
	if err != nil {
		return Session{}, false
	}
	s := claims.Session
	if s.Ref == "" {
		return s, true
	}
	cred, ok, err := m.vault.Get(c.Request.Context(), s.Ref)
	if err != nil || !ok {
		return Session{}, false
	}
	s.Credential = cred
	return s, true
}

// FromContext returns the session stored by Middleware.
func FromContext(c *gin.Context) (Session, bool) {
	v, ok := c.Get(contextKey)
	if !ok {
		return Session{}, false
	}
	s, ok := v.(Session)
	return s, ok
}

// Require lets the request through only for a session holding one of privs,
// and redirects to the login page otherwise.
func Require(privs ...model.Privilege) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := FromContext(c)
		if !ok || !slices.Contains(privs, s.Privilege) {
			c.Redirect(http.StatusSeeOther, "/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

// HomePath is the landing page for a privilege, empty when unknown.
func HomePath(p model.Privilege) string {
	switch p {
	case model.PrivilegeStudent:
		return "/alumno"
	case model.PrivilegeTeacher:
		return "/maestro"
	case model.PrivilegeAdmin:
		return "/admin"
	}
	return ""
}
