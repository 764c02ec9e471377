// Package auth protects the admin routes with a cookie session.
package auth

import (
	"crypto/subtle"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hivenetes/distributed-multi-modal-agentic-ai/internal/configmanagement"
)

const (
	sessionCookieName = "admin_session_token"
	sessionTTL        = time.Hour
)

// AdminUser holds the credentials for the admin user.
type AdminUser struct {
	Username string
	Password string
}

// Authenticator checks admin credentials and tracks issued tokens.
type Authenticator struct {
	admin AdminUser
	log   *slog.Logger
	now   func() time.Time

	mu     sync.Mutex
	tokens map[string]time.Time
}

// NewAuthenticator reads the admin credentials from cfg. Missing
// credentials disable login rather than failing start-up.
func NewAuthenticator(cfg configmanagement.AdminConfig, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Authenticator{
		admin:  AdminUser{Username: cfg.Username, Password: cfg.Password},
		log:    logger.With("component", "auth"),
		now:    time.Now,
		tokens: make(map[string]time.Time),
	}
	if !a.Configured() {
		a.log.Warn("ADMIN_USERNAME or ADMIN_PASSWORD not set; admin login disabled")
	}
	return a
}

// Configured reports whether both credentials are set.
func (a *Authenticator) Configured() bool {
	return a.admin.Username != "" && a.admin.Password != ""
}

func (a *Authenticator) checkCredentials(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.admin.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(a.admin.Password)) == 1
	return userOK && passOK
}

// issue creates a token and drops every token that has already expired.
func (a *Authenticator) issue() string {
	token := uuid.NewString()
	now := a.now()

	a.mu.Lock()
	defer a.mu.Unlock()
	for t, expiry := range a.tokens {
		if now.After(expiry) {
			delete(a.tokens, t)
		}
	}
	a.tokens[token] = now.Add(sessionTTL)
	return token
}

func (a *Authenticator) valid(token string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	expiry, ok := a.tokens[token]
	if !ok {
		return false
	}
	if a.now().After(expiry) {
		delete(a.tokens, token)
		return false
	}
	return true
}

func (a *Authenticator) revoke(token string) {
	a.mu.Lock()
	delete(a.tokens, token)
	a.mu.Unlock()
}
