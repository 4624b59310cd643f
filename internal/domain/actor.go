package domain

// Role is the caller's asserted role.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// Actor is the resolved role+identity pair derived from a request. Identity
// is asserted via trusted headers, not authenticated.
type Actor struct {
	Role Role
	User string
}
