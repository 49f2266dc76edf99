package dto

import "github.com/spec-kit/repairshop-session/internal/domain"

// SessionLoginRequest payload for starting a session.
type SessionLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UnlockRequest payload for submitting the secondary factor.
type UnlockRequest struct {
	Code string `json:"code"`
}

// SelectStoreRequest payload for center admins switching store context.
type SelectStoreRequest struct {
	StoreID string `json:"store_id"`
}

// ReturnTargetRequest remembers where to send the operator after unlock.
type ReturnTargetRequest struct {
	Target string `json:"target"`
}

// SessionResponse describes the current session.
type SessionResponse struct {
	State          string        `json:"state"`
	Authenticated  bool          `json:"authenticated"`
	Actor          *domain.Actor `json:"actor,omitempty"`
	Permissions    []string      `json:"permissions,omitempty"`
	FailedAttempts int           `json:"failed_attempts,omitempty"`
	ReturnTarget   string        `json:"return_target,omitempty"`
}

// StoreListResponse is the selectable-store listing for the session actor.
type StoreListResponse struct {
	Stores []StoreResponse `json:"stores"`
}
