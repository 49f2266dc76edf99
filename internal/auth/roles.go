package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// RequireEmployee ensures an EMPLOYEE is authenticated.
func RequireEmployee() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || !principal.Actor.IsEmployee() {
			return fiber.NewError(http.StatusForbidden, "employee required")
		}
		return c.Next()
	}
}

// RequireSuperAdmin ensures a SUPER_ADMIN is authenticated.
func RequireSuperAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || !principal.Actor.IsSuperAdmin() {
			return fiber.NewError(http.StatusForbidden, "super admin required")
		}
		return c.Next()
	}
}

// RequirePINVerified ensures the presented access token was issued after
// a successful secondary-factor check.
func RequirePINVerified() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, "authentication required")
		}
		if !principal.PINVerified {
			return fiber.NewError(http.StatusForbidden, "secondary factor required")
		}
		return c.Next()
	}
}
