package http

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/repairshop-session/internal/permission"
	"github.com/spec-kit/repairshop-session/internal/session"
	apperrors "github.com/spec-kit/repairshop-session/pkg/util"
)

// SessionGuard gates routes on the local session. A session stuck behind
// the secondary factor gets a distinct code plus a remembered return
// target so the UI can send the operator back after unlocking.
type SessionGuard struct {
	machine *session.Machine
}

// NewSessionGuard constructs the guard.
func NewSessionGuard(machine *session.Machine) *SessionGuard {
	return &SessionGuard{machine: machine}
}

// RequireActive ensures the session is fully usable.
func (g *SessionGuard) RequireActive() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := g.check(c); err != nil {
			return err
		}
		return c.Next()
	}
}

// RequirePermission ensures the session actor holds every listed
// permission.
func (g *SessionGuard) RequirePermission(perms ...permission.Permission) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := g.check(c); err != nil {
			return err
		}
		if !g.machine.Permissions().HasAll(perms...) {
			return fiber.NewError(http.StatusForbidden, "insufficient permissions")
		}
		return c.Next()
	}
}

func (g *SessionGuard) check(c *fiber.Ctx) error {
	state := g.machine.State()
	switch {
	case state == session.StateActive:
		return nil
	case state.RequiresSecondaryFactor():
		g.machine.SetPendingReturnTarget(c.OriginalURL())
		return apperrors.NewDomainError("PIN_REQUIRED", "secondary factor required", http.StatusUnauthorized, nil)
	default:
		return apperrors.NewUnauthorized("authentication required")
	}
}
