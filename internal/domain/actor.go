package domain

import "time"

// ActorKind differentiates platform operators from shop employees.
type ActorKind string

const (
	ActorKindSuperAdmin ActorKind = "SUPER_ADMIN"
	ActorKindEmployee   ActorKind = "EMPLOYEE"
)

// EmployeeRole enumerates shop operator roles.
type EmployeeRole string

const (
	EmployeeRoleExpert     EmployeeRole = "EXPERT"
	EmployeeRoleAccountant EmployeeRole = "ACCOUNTANT"
	EmployeeRoleStoreAdmin EmployeeRole = "STORE_ADMIN"
)

// Employee models a repair-shop operator scoped to a center and,
// usually, a single store.
type Employee struct {
	ID                string       `json:"id"`
	Name              string       `json:"name"`
	Email             string       `json:"email"`
	PasswordHash      string       `json:"-"` // never serialised
	PINHash           string       `json:"-"` // never serialised
	Role              EmployeeRole `json:"role"`
	CenterID          string       `json:"center_id"`
	StoreID           *string      `json:"store_id,omitempty"`
	IsCenterAdmin     bool         `json:"is_center_admin"`
	PINTimeoutMinutes int          `json:"pin_timeout_minutes"`
	Active            bool         `json:"is_active"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// SuperAdmin is a platform-level account with unconstrained scope.
type SuperAdmin struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Actor is the authenticated identity driving a session. Employee is nil
// for super admins.
type Actor struct {
	Kind     ActorKind `json:"kind"`
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Employee *Employee `json:"employee,omitempty"`
}

// IsSuperAdmin reports whether the actor is a platform operator.
func (a *Actor) IsSuperAdmin() bool {
	return a != nil && a.Kind == ActorKindSuperAdmin
}

// IsEmployee reports whether the actor is a shop employee.
func (a *Actor) IsEmployee() bool {
	return a != nil && a.Kind == ActorKindEmployee && a.Employee != nil
}

// PINTimeout returns the employee's inactivity window, or zero for actors
// that are never PIN-gated.
func (a *Actor) PINTimeout() time.Duration {
	if !a.IsEmployee() || a.Employee.PINTimeoutMinutes <= 0 {
		return 0
	}
	return time.Duration(a.Employee.PINTimeoutMinutes) * time.Minute
}
