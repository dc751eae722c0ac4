package api

import (
	"github.com/golang-jwt/jwt/v5"
)

// Role names stored on the employee record. The service boundary compares
// against the stored role, never the client-declared one.
const (
	RoleEmployee = "Employee"
	RoleAdmin    = "Admin"
)

// Employee status values. Toggling moves between exactly these two.
const (
	StatusActive   = "Active"
	StatusInactive = "Inactive"
)

// Session is the caller identity passed explicitly into every service call.
// It is built from validated JWT claims, not from ambient state.
type Session struct {
	EmployeeID int    `json:"employee_id"`
	Username   string `json:"username"`
	Role       string `json:"role"`
}

// IsAdmin reports whether the session carries the admin role as declared by
// its token. Mutating paths still re-validate against the stored record.
func (s Session) IsAdmin() bool {
	return s.Role == RoleAdmin
}

// Claims are the custom claims embedded in the JWT access token.
type Claims struct {
	EmployeeID           int    `json:"eid"`
	Username             string `json:"usr"`
	Role                 string `json:"rol"`
	jwt.RegisteredClaims        // ExpiresAt, IssuedAt, Issuer, Audience, Subject.
}
