package client

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/skydesk/skydesk/internal/logging"
)

// TokenClaims are the identity claims carried by a bearer token. The client
// never validates the signature — the tree service does — but it decodes
// the claims to surface the caller's identity and warn on expiry before a
// request ever fails.
type TokenClaims struct {
	Subject   string
	Name      string
	Groups    []string
	ExpiresAt time.Time
}

// IsExpired reports whether the token expires within the given margin.
func (t *TokenClaims) IsExpired(margin time.Duration) bool {
	if t.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().Add(margin).After(t.ExpiresAt)
}

// SetAuthToken sets the bearer token used for all requests.
func (c *Client) SetAuthToken(token string) {
	c.mu.Lock()
	c.authToken = token
	c.mu.Unlock()

	if claims, err := DecodeToken(token); err == nil && claims.IsExpired(0) {
		logging.Warn("auth token is expired",
			zap.String("subject", claims.Subject),
			zap.Time("expires_at", claims.ExpiresAt))
	}
}

// TokenClaims decodes the currently configured token, if any.
func (c *Client) TokenClaims() (*TokenClaims, error) {
	c.mu.RLock()
	token := c.authToken
	c.mu.RUnlock()
	return DecodeToken(token)
}

// applyAuth adds the auth header to a request if a token is set.
func (c *Client) applyAuth(req *http.Request) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
}

// DecodeToken parses a JWT without verifying its signature and extracts the
// identity claims this client cares about.
func DecodeToken(token string) (*TokenClaims, error) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, jwt.ErrTokenMalformed
	}

	out := &TokenClaims{}
	if sub, err := claims.GetSubject(); err == nil {
		out.Subject = sub
	}
	if name, ok := claims["name"].(string); ok {
		out.Name = name
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	if groups, ok := claims["groups"].([]any); ok {
		for _, g := range groups {
			if s, ok := g.(string); ok {
				out.Groups = append(out.Groups, s)
			}
		}
	}
	return out, nil
}
