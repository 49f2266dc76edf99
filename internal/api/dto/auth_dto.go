package dto

import (
	"time"

	"github.com/spec-kit/repairshop-session/internal/domain"
)

// LoginRequest payload for credential login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the token pair issued on successful login.
type LoginResponse struct {
	Actor        *domain.Actor `json:"actor"`
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	ExpiresAt    time.Time     `json:"expires_at"`
}

// VerifyPINRequest payload for the secondary factor.
type VerifyPINRequest struct {
	Code string `json:"code"`
}

// VerifyPINResponse reports the verification outcome. A rejection is a
// 200 with Verified=false so the caller can track attempts.
type VerifyPINResponse struct {
	Verified        bool   `json:"verified"`
	NewAccessToken  string `json:"new_access_token,omitempty"`
	NewRefreshToken string `json:"new_refresh_token,omitempty"`
	Error           string `json:"error,omitempty"`
}

// RefreshRequest payload for token refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RefreshResponse carries the rotated access token.
type RefreshResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// LogoutRequest payload for revoking a session.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// StoreResponse is a store the caller's center owns.
type StoreResponse struct {
	ID       string `json:"id"`
	CenterID string `json:"center_id"`
	Name     string `json:"name"`
}
