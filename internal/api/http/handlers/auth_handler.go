package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/repairshop-session/internal/api/dto"
	"github.com/spec-kit/repairshop-session/internal/auth"
	"github.com/spec-kit/repairshop-session/internal/service"
)

// AuthHandler exposes the identity provider's authentication endpoints.
type AuthHandler struct {
	identity *service.IdentityService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(identityService *service.IdentityService) *AuthHandler {
	return &AuthHandler{identity: identityService}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Username == "" || req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "username and password required")
	}

	outcome, err := h.identity.Login(c.Context(), req.Username, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data": dto.LoginResponse{
			Actor:        outcome.Actor,
			AccessToken:  outcome.AccessToken,
			RefreshToken: outcome.RefreshToken,
			ExpiresAt:    outcome.ExpiresAt,
		},
	})
}

// VerifyPIN handles POST /auth/pin/verify. Requires a bearer token; the
// subject of the token is the actor whose PIN is checked.
func (h *AuthHandler) VerifyPIN(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}
	if !principal.Actor.IsEmployee() {
		return fiber.NewError(http.StatusForbidden, "secondary factor applies to employees only")
	}

	var req dto.VerifyPINRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Code == "" {
		return fiber.NewError(http.StatusBadRequest, "code required")
	}

	outcome, err := h.identity.VerifyPIN(c.Context(), principal.Actor.ID, req.Code)
	if err != nil {
		return err
	}

	resp := dto.VerifyPINResponse{Verified: outcome.Verified}
	if outcome.Verified {
		resp.NewAccessToken = outcome.AccessToken
		resp.NewRefreshToken = outcome.RefreshToken
	} else {
		resp.Error = "code rejected"
	}
	return c.JSON(fiber.Map{"data": resp})
}

// Refresh handles POST /auth/refresh.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.RefreshToken == "" {
		return fiber.NewError(http.StatusBadRequest, "refresh_token required")
	}

	accessToken, expiresAt, err := h.identity.Refresh(c.Context(), req.RefreshToken)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data": dto.RefreshResponse{AccessToken: accessToken, ExpiresAt: expiresAt},
	})
}

// Logout handles POST /auth/logout. Revocation is idempotent.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var req dto.LogoutRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.RefreshToken != "" {
		if err := h.identity.Revoke(c.Context(), req.RefreshToken); err != nil {
			return err
		}
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"revoked": true}})
}

// Stores handles GET /auth/stores for the authenticated employee.
func (h *AuthHandler) Stores(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}
	if !principal.Actor.IsEmployee() {
		return fiber.NewError(http.StatusForbidden, "employee required")
	}

	stores, err := h.identity.StoresForEmployee(c.Context(), principal.Actor.ID)
	if err != nil {
		return err
	}

	out := make([]dto.StoreResponse, 0, len(stores))
	for _, store := range stores {
		out = append(out, dto.StoreResponse{ID: store.ID, CenterID: store.CenterID, Name: store.Name})
	}
	return c.JSON(fiber.Map{"data": out})
}
