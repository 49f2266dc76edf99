package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/spec-kit/repairshop-session/internal/domain"
)

var (
	// ErrUnauthorized means the identity provider rejected the supplied
	// credentials or token. Not retryable.
	ErrUnauthorized = errors.New("identity: unauthorized")

	// ErrUnavailable means the identity provider could not be reached or
	// answered with a server error. Retryable; the session engine changes
	// no state on this condition.
	ErrUnavailable = errors.New("identity: unavailable")

	// ErrThrottled means the identity provider rate-limited the request.
	// Retryable after a pause; like ErrUnavailable it must never be taken
	// as a credential rejection.
	ErrThrottled = errors.New("identity: throttled")
)

// LoginResult is the identity provider's answer to a successful login.
type LoginResult struct {
	Actor        domain.Actor `json:"actor"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresAt    time.Time    `json:"expires_at"`
}

// VerifyResult is the secondary-verification response.
type VerifyResult struct {
	Verified        bool   `json:"verified"`
	NewAccessToken  string `json:"new_access_token,omitempty"`
	NewRefreshToken string `json:"new_refresh_token,omitempty"`
	Error           string `json:"error,omitempty"`
}

// RefreshResult carries the rotated access token.
type RefreshResult struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// StoreSummary is a store the caller may select.
type StoreSummary struct {
	ID       string `json:"id"`
	CenterID string `json:"center_id"`
	Name     string `json:"name"`
}

// ValidatePINFormat checks the client-side PIN constraints before a code
// is dispatched: required, numeric only, 4 to 6 digits.
func ValidatePINFormat(code string) error {
	if code == "" {
		return errors.New("pin code is required")
	}
	if len(code) < 4 || len(code) > 6 {
		return fmt.Errorf("pin code must be 4 to 6 digits, got %d", len(code))
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return errors.New("pin code must contain digits only")
		}
	}
	return nil
}
