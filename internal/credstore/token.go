package credstore

import (
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// AccessTokenExpired decodes the expiry claim of an access token without
// verifying its signature and compares it to the current time. A missing,
// malformed or claim-less token counts as expired (fail-closed); signature
// verification belongs to the identity provider, not to this client-side
// check.
func AccessTokenExpired(token string) bool {
	return accessTokenExpiredAt(token, time.Now())
}

func accessTokenExpiredAt(token string, now time.Time) bool {
	if token == "" {
		return true
	}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return true
	}
	if claims.ExpiresAt == nil {
		return true
	}
	return !now.Before(claims.ExpiresAt.Time)
}
