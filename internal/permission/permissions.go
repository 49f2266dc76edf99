package permission

import "github.com/spec-kit/repairshop-session/internal/domain"

// Permission is a discrete capability token checked by route guards and
// UI gating.
type Permission string

// Capability tokens across the business entities.
const (
	PermViewCenters         Permission = "view_centers"
	PermCreateCenters       Permission = "create_centers"
	PermEditCenters         Permission = "edit_centers"
	PermDeleteCenters       Permission = "delete_centers"
	PermViewStores          Permission = "view_stores"
	PermCreateStores        Permission = "create_stores"
	PermEditStores          Permission = "edit_stores"
	PermDeleteStores        Permission = "delete_stores"
	PermViewEmployees       Permission = "view_employees"
	PermCreateEmployees     Permission = "create_employees"
	PermEditEmployees       Permission = "edit_employees"
	PermDeleteEmployees     Permission = "delete_employees"
	PermViewCustomers       Permission = "view_customers"
	PermCreateCustomers     Permission = "create_customers"
	PermEditCustomers       Permission = "edit_customers"
	PermDeleteCustomers     Permission = "delete_customers"
	PermViewDevices         Permission = "view_devices"
	PermCreateDevices       Permission = "create_devices"
	PermEditDevices         Permission = "edit_devices"
	PermDeleteDevices       Permission = "delete_devices"
	PermViewAppointments    Permission = "view_appointments"
	PermCreateAppointments  Permission = "create_appointments"
	PermEditAppointments    Permission = "edit_appointments"
	PermDeleteAppointments  Permission = "delete_appointments"
	PermViewServiceOrders   Permission = "view_service_orders"
	PermCreateServiceOrders Permission = "create_service_orders"
	PermEditServiceOrders   Permission = "edit_service_orders"
	PermDeleteServiceOrders Permission = "delete_service_orders"
)

// roleGrants maps each employee role to its base capabilities. This table
// is the single source of truth for role-level authorisation; center-admin
// status is layered on top via centerAdminBundle.
var roleGrants = map[domain.EmployeeRole][]Permission{
	domain.EmployeeRoleExpert: {
		PermViewStores,
		PermViewCustomers, PermCreateCustomers, PermEditCustomers,
		PermViewDevices, PermCreateDevices, PermEditDevices,
		PermViewAppointments, PermCreateAppointments, PermEditAppointments,
		PermViewServiceOrders, PermCreateServiceOrders, PermEditServiceOrders,
	},
	domain.EmployeeRoleAccountant: {
		PermViewStores,
		PermViewEmployees,
		PermViewCustomers,
		PermViewDevices,
		PermViewAppointments,
		PermViewServiceOrders, PermEditServiceOrders,
	},
	domain.EmployeeRoleStoreAdmin: {
		PermViewStores, PermEditStores,
		PermViewEmployees, PermCreateEmployees, PermEditEmployees,
		PermViewCustomers, PermCreateCustomers, PermEditCustomers,
		PermViewDevices, PermCreateDevices, PermEditDevices,
		PermViewAppointments, PermCreateAppointments, PermEditAppointments, PermDeleteAppointments,
		PermViewServiceOrders, PermCreateServiceOrders, PermEditServiceOrders, PermDeleteServiceOrders,
	},
}

// centerAdminBundle is the fixed capability superset granted on top of any
// base role when the employee is a center admin. It spans every business
// entity of the center; only center/platform lifecycle stays out.
var centerAdminBundle = []Permission{
	PermViewCenters, PermEditCenters,
	PermViewStores, PermCreateStores, PermEditStores, PermDeleteStores,
	PermViewEmployees, PermCreateEmployees, PermEditEmployees, PermDeleteEmployees,
	PermViewCustomers, PermCreateCustomers, PermEditCustomers, PermDeleteCustomers,
	PermViewDevices, PermCreateDevices, PermEditDevices, PermDeleteDevices,
	PermViewAppointments, PermCreateAppointments, PermEditAppointments, PermDeleteAppointments,
	PermViewServiceOrders, PermCreateServiceOrders, PermEditServiceOrders, PermDeleteServiceOrders,
}

// allPermissions is the maximal set held by super admins.
var allPermissions = []Permission{
	PermViewCenters, PermCreateCenters, PermEditCenters, PermDeleteCenters,
	PermViewStores, PermCreateStores, PermEditStores, PermDeleteStores,
	PermViewEmployees, PermCreateEmployees, PermEditEmployees, PermDeleteEmployees,
	PermViewCustomers, PermCreateCustomers, PermEditCustomers, PermDeleteCustomers,
	PermViewDevices, PermCreateDevices, PermEditDevices, PermDeleteDevices,
	PermViewAppointments, PermCreateAppointments, PermEditAppointments, PermDeleteAppointments,
	PermViewServiceOrders, PermCreateServiceOrders, PermEditServiceOrders, PermDeleteServiceOrders,
}

// GrantsForRole returns the base capabilities of a role. Unknown roles
// resolve to the Expert grants, the most restrictive non-empty default,
// so that gating stays conservative instead of failing.
func GrantsForRole(role domain.EmployeeRole) []Permission {
	grants, ok := roleGrants[role]
	if !ok {
		grants = roleGrants[domain.EmployeeRoleExpert]
	}
	out := make([]Permission, len(grants))
	copy(out, grants)
	return out
}

// CenterAdminBundle returns the fixed center-admin capability bundle.
func CenterAdminBundle() []Permission {
	out := make([]Permission, len(centerAdminBundle))
	copy(out, centerAdminBundle)
	return out
}

// AllPermissions returns every declared capability token.
func AllPermissions() []Permission {
	out := make([]Permission, len(allPermissions))
	copy(out, allPermissions)
	return out
}
