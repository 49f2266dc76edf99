package permission

import "github.com/spec-kit/repairshop-session/internal/domain"

// Set is a resolved permission set. Derived from the actor, never mutated
// in place; recompute whenever the actor changes.
type Set map[Permission]struct{}

// NewSet builds a set from capability slices.
func NewSet(perms ...[]Permission) Set {
	set := make(Set)
	for _, group := range perms {
		for _, p := range group {
			set[p] = struct{}{}
		}
	}
	return set
}

// Has reports whether the set contains the capability.
func (s Set) Has(perm Permission) bool {
	_, ok := s[perm]
	return ok
}

// HasAny reports whether the set contains at least one of the capabilities.
func (s Set) HasAny(perms ...Permission) bool {
	for _, p := range perms {
		if s.Has(p) {
			return true
		}
	}
	return false
}

// HasAll reports whether the set contains every capability.
func (s Set) HasAll(perms ...Permission) bool {
	for _, p := range perms {
		if !s.Has(p) {
			return false
		}
	}
	return true
}

// List returns the set's capabilities in unspecified order.
func (s Set) List() []Permission {
	out := make([]Permission, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	return out
}

// Resolve maps an actor to its permission set. Super admins hold the
// maximal set; employees hold their role grants, unioned with the
// center-admin bundle when the override flag is set.
func Resolve(actor *domain.Actor) Set {
	if actor == nil {
		return NewSet()
	}
	if actor.IsSuperAdmin() {
		return NewSet(AllPermissions())
	}
	if !actor.IsEmployee() {
		return NewSet()
	}
	grants := GrantsForRole(actor.Employee.Role)
	if actor.Employee.IsCenterAdmin {
		return NewSet(grants, CenterAdminBundle())
	}
	return NewSet(grants)
}

// CanAccessResource answers whether the actor has rights over a resource
// scoped to a center and/or store. A nil scope component means the
// resource is unconstrained at that level.
//
// Precedence is load-bearing: center-admin status overrides role-specific
// scoping, and store admins are scoped to their store regardless of a
// matching center.
func CanAccessResource(actor *domain.Actor, centerID, storeID *string) bool {
	if actor == nil {
		return false
	}
	if actor.IsSuperAdmin() {
		return true
	}
	if !actor.IsEmployee() {
		return false
	}
	emp := actor.Employee

	if emp.IsCenterAdmin {
		return centerID == nil || *centerID == emp.CenterID
	}
	if emp.Role == domain.EmployeeRoleStoreAdmin {
		if storeID == nil {
			return centerID == nil || *centerID == emp.CenterID
		}
		return emp.StoreID != nil && *storeID == *emp.StoreID
	}
	return centerID == nil || *centerID == emp.CenterID
}
