package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/repairshop-session/internal/domain"
)

// TokenManager handles issuing and validating JWT access tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string, ttlMinutes int) *TokenManager {
	if ttlMinutes <= 0 {
		ttlMinutes = 15
	}
	return &TokenManager{secret: []byte(secret), ttl: time.Duration(ttlMinutes) * time.Minute}
}

// Claims describes the access-token payload. Employee scope travels in
// the token so the agent can gate without a directory round trip.
type Claims struct {
	Kind          domain.ActorKind     `json:"kind"`
	Role          *domain.EmployeeRole `json:"role,omitempty"`
	CenterID      string               `json:"center_id,omitempty"`
	StoreID       *string              `json:"store_id,omitempty"`
	IsCenterAdmin bool                 `json:"is_center_admin,omitempty"`
	PINVerified   bool                 `json:"pin_verified,omitempty"`
	jwt.RegisteredClaims
}

// GenerateToken builds and signs an access token for the actor.
// pinVerified marks a token issued after a successful secondary factor.
func (tm *TokenManager) GenerateToken(actor *domain.Actor, pinVerified bool) (string, time.Time, error) {
	if actor == nil {
		return "", time.Time{}, errors.New("actor is required")
	}

	expiresAt := time.Now().Add(tm.ttl)
	claims := &Claims{
		Kind:        actor.Kind,
		PINVerified: pinVerified,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	if actor.IsEmployee() {
		role := actor.Employee.Role
		claims.Role = &role
		claims.CenterID = actor.Employee.CenterID
		claims.StoreID = actor.Employee.StoreID
		claims.IsCenterAdmin = actor.Employee.IsCenterAdmin
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseToken validates and returns claims.
func (tm *TokenManager) ParseToken(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
