package handlers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/repairshop-session/internal/api/dto"
	"github.com/spec-kit/repairshop-session/internal/identity"
	"github.com/spec-kit/repairshop-session/internal/session"
	apperrors "github.com/spec-kit/repairshop-session/pkg/util"
)

// SessionHandler exposes the local session engine to the workstation UI.
type SessionHandler struct {
	machine *session.Machine
}

// NewSessionHandler constructs handler.
func NewSessionHandler(machine *session.Machine) *SessionHandler {
	return &SessionHandler{machine: machine}
}

// Login handles POST /session/login.
func (h *SessionHandler) Login(c *fiber.Ctx) error {
	var req dto.SessionLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Username == "" || req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "username and password required")
	}

	if err := h.machine.Login(c.UserContext(), req.Username, req.Password); err != nil {
		return mapSessionError(err)
	}
	return c.JSON(fiber.Map{"data": h.sessionResponse()})
}

// Unlock handles POST /session/unlock, submitting the secondary factor.
func (h *SessionHandler) Unlock(c *fiber.Ctx) error {
	var req dto.UnlockRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	if err := h.machine.SubmitSecondaryFactor(c.UserContext(), req.Code); err != nil {
		return mapSessionError(err)
	}

	resp := h.sessionResponse()
	if target, ok := h.machine.ConsumePendingReturnTarget(); ok {
		resp.ReturnTarget = target
	}
	return c.JSON(fiber.Map{"data": resp})
}

// Lock handles POST /session/lock.
func (h *SessionHandler) Lock(c *fiber.Ctx) error {
	h.machine.Lock()
	return c.JSON(fiber.Map{"data": h.sessionResponse()})
}

// Logout handles POST /session/logout.
func (h *SessionHandler) Logout(c *fiber.Ctx) error {
	h.machine.Logout(c.UserContext())
	return c.JSON(fiber.Map{"data": h.sessionResponse()})
}

// Activity handles POST /session/activity, resetting the inactivity
// countdown.
func (h *SessionHandler) Activity(c *fiber.Ctx) error {
	h.machine.RecordActivity()
	return c.SendStatus(http.StatusNoContent)
}

// Resume handles POST /session/resume, rehydrating from the credential
// store.
func (h *SessionHandler) Resume(c *fiber.Ctx) error {
	if err := h.machine.Resume(c.UserContext()); err != nil {
		return mapSessionError(err)
	}
	return c.JSON(fiber.Map{"data": h.sessionResponse()})
}

// Status handles GET /session.
func (h *SessionHandler) Status(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.sessionResponse()})
}

// SelectStore handles POST /session/store.
func (h *SessionHandler) SelectStore(c *fiber.Ctx) error {
	var req dto.SelectStoreRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.StoreID == "" {
		return fiber.NewError(http.StatusBadRequest, "store_id required")
	}

	if err := h.machine.SelectStore(c.UserContext(), req.StoreID); err != nil {
		return mapSessionError(err)
	}
	return c.JSON(fiber.Map{"data": h.sessionResponse()})
}

// Stores handles GET /session/stores.
func (h *SessionHandler) Stores(c *fiber.Ctx) error {
	stores, err := h.machine.Stores(c.UserContext())
	if err != nil {
		return mapSessionError(err)
	}

	out := make([]dto.StoreResponse, 0, len(stores))
	for _, store := range stores {
		out = append(out, dto.StoreResponse{ID: store.ID, CenterID: store.CenterID, Name: store.Name})
	}
	return c.JSON(fiber.Map{"data": dto.StoreListResponse{Stores: out}})
}

// Permissions handles GET /session/permissions.
func (h *SessionHandler) Permissions(c *fiber.Ctx) error {
	perms := h.machine.Permissions().List()
	out := make([]string, 0, len(perms))
	for _, perm := range perms {
		out = append(out, string(perm))
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"permissions": out}})
}

// ReturnTarget handles POST /session/return-target.
func (h *SessionHandler) ReturnTarget(c *fiber.Ctx) error {
	var req dto.ReturnTargetRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	h.machine.SetPendingReturnTarget(req.Target)
	return c.SendStatus(http.StatusNoContent)
}

func (h *SessionHandler) sessionResponse() dto.SessionResponse {
	state := h.machine.State()
	resp := dto.SessionResponse{
		State:          string(state),
		Authenticated:  state == session.StateActive,
		Actor:          h.machine.CurrentActor(),
		FailedAttempts: h.machine.FailedAttempts(),
	}
	if resp.Authenticated {
		for _, perm := range h.machine.Permissions().List() {
			resp.Permissions = append(resp.Permissions, string(perm))
		}
	}
	return resp
}

func mapSessionError(err error) error {
	switch {
	case errors.Is(err, session.ErrInvalidTransition):
		return apperrors.NewConflict(err.Error(), nil)
	case errors.Is(err, session.ErrPINRejected):
		return apperrors.NewDomainError("PIN_REJECTED", err.Error(), http.StatusUnauthorized, nil)
	case errors.Is(err, session.ErrSessionTerminated):
		return apperrors.NewSessionTerminated(err.Error())
	case errors.Is(err, identity.ErrThrottled):
		return apperrors.NewRateLimited(err.Error())
	case errors.Is(err, identity.ErrUnavailable):
		return apperrors.NewTransportUnavailable(err)
	case errors.Is(err, identity.ErrUnauthorized):
		return apperrors.NewUnauthorized(err.Error())
	default:
		return apperrors.NewValidationError(err.Error(), nil)
	}
}
