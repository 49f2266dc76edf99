package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/repairshop-session/internal/domain"
	"github.com/spec-kit/repairshop-session/internal/repository"
	apperrors "github.com/spec-kit/repairshop-session/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller. The actor is loaded
// fresh from the directory so deactivated accounts lose access as soon
// as their token is next presented.
type Principal struct {
	Actor       *domain.Actor
	PINVerified bool
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens      *TokenManager
	employees   repository.EmployeeRepository
	superAdmins repository.SuperAdminRepository
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, employees repository.EmployeeRepository, superAdmins repository.SuperAdminRepository) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, employees: employees, superAdmins: superAdmins}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	principal := &Principal{PINVerified: claims.PINVerified}

	switch claims.Kind {
	case domain.ActorKindSuperAdmin:
		admin, err := m.superAdmins.GetByID(c.Context(), claims.Subject)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewUnauthorized("account not found")
			}
			return apperrors.MapError(err)
		}
		principal.Actor = &domain.Actor{Kind: domain.ActorKindSuperAdmin, ID: admin.ID, Name: admin.Name}
	case domain.ActorKindEmployee:
		employee, err := m.employees.GetByID(c.Context(), claims.Subject)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewUnauthorized("account not found")
			}
			return apperrors.MapError(err)
		}
		if !employee.Active {
			return apperrors.NewUnauthorized("account disabled")
		}
		principal.Actor = &domain.Actor{Kind: domain.ActorKindEmployee, ID: employee.ID, Name: employee.Name, Employee: employee}
	default:
		return apperrors.NewUnauthorized("unknown subject")
	}

	c.Locals(principalKey, principal)
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
