// Package auth supplies the bearer token a forecast session runs with.
package auth

import (
	"time"

	"multihorizon/models"

	"github.com/golang-jwt/jwt/v4"
)

// TokenKey is the key the access token is stored under.
const TokenKey = "access_token"

// Context is the authentication value handed to a forecast session at construction.
// The token is opaque to the session; when it parses as a JWT its claims are kept
// so an expired token can be rejected without a network round trip.
type Context struct {
	Token  string
	Claims *models.JwtClaims
}

// NewContext builds a Context from a raw bearer token. The signature is not
// verified here; the remote service remains the authority.
func NewContext(token string) Context {
	if token == "" {
		return Context{}
	}
	claims := &models.JwtClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Context{Token: token}
	}
	return Context{Token: token, Claims: claims}
}

// Authenticated reports whether a token is present.
func (c Context) Authenticated() bool {
	return c.Token != ""
}

// Subject returns the JWT subject, usually the account email.
func (c Context) Subject() string {
	if c.Claims == nil {
		return ""
	}
	return c.Claims.Subject
}

// ExpiresAt returns the token expiry, or the zero time when unknown.
func (c Context) ExpiresAt() time.Time {
	if c.Claims == nil || c.Claims.ExpiresAt == nil {
		return time.Time{}
	}
	return c.Claims.ExpiresAt.Time
}

// Check returns an Unauthorized error when the token is missing or known to be expired.
func (c Context) Check(now time.Time) error {
	if !c.Authenticated() {
		return models.NewError(models.KindUnauthorized, "Not logged in. Please log in to continue.")
	}
	if exp := c.ExpiresAt(); !exp.IsZero() && !now.Before(exp) {
		return models.NewError(models.KindUnauthorized, "Session expired. Please log in again.")
	}
	return nil
}
