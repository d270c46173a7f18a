package deviceauth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Credentials is the token set issued when the grant is authorized.
type Credentials struct {
	AccessToken string `json:"access_token"`
	IDToken     string `json:"id_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`

	// Raw is the full token response as received.
	Raw map[string]any `json:"-"`
}

// Bearer is the token to present as the Authorization bearer credential.
// The platform authorizes API calls by ID token.
func (c *Credentials) Bearer() string {
	if c.IDToken != "" {
		return c.IDToken
	}
	return c.AccessToken
}

func (c *Credentials) claims() (jwt.MapClaims, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(c.Bearer(), claims); err != nil {
		return nil, false
	}
	return claims, true
}

// Expired reports whether the bearer token carries an exp claim in the
// past. Opaque (non-JWT) tokens are never reported as expired; the server
// is the authority on those.
func (c *Credentials) Expired(now time.Time) bool {
	claims, ok := c.claims()
	if !ok {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(now)
}

// Subject is the sub claim of the bearer token, or "" when absent.
func (c *Credentials) Subject() string {
	claims, ok := c.claims()
	if !ok {
		return ""
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return ""
	}
	return sub
}
