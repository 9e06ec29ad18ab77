package auth

import (
	"strings"
	"time"
)

// Role is the closed set of account types.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTutor   Role = "tutor"
	RoleStudent Role = "student"
)

// ParseRole normalizes a role string, returning false for anything outside
// the closed set.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleTutor:
		return RoleTutor, true
	case RoleStudent:
		return RoleStudent, true
	}
	return "", false
}

// Capability is a fine-grained permission granted to a role.
type Capability string

const (
	CapManageUsers   Capability = "users.manage"
	CapManageFees    Capability = "fees.manage"
	CapSubmitResults Capability = "results.submit"
	CapViewResults   Capability = "results.view"
	CapInitiatePay   Capability = "payments.initiate"
)

// roleCapabilities is the permission table keyed by role. Authorization is
// an explicit lookup here, never an attribute probe on the principal.
var roleCapabilities = map[Role]map[Capability]struct{}{
	RoleAdmin: {
		CapManageUsers:   {},
		CapManageFees:    {},
		CapSubmitResults: {},
		CapViewResults:   {},
	},
	RoleTutor: {
		CapSubmitResults: {},
		CapViewResults:   {},
	},
	RoleStudent: {
		CapViewResults: {},
		CapInitiatePay: {},
	},
}

// Can reports whether the role grants the capability.
func (r Role) Can(c Capability) bool {
	caps, ok := roleCapabilities[r]
	if !ok {
		return false
	}
	_, ok = caps[c]
	return ok
}

// Principal is an authenticated account: admin, tutor or student.
type Principal struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	Active       bool      `json:"is_active"`
	Staff        bool      `json:"is_staff"`
	Verified     bool      `json:"is_verified"`
	Approved     bool      `json:"is_approved"`
	PaidReg      bool      `json:"paid_reg"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Profile holds per-student details created explicitly alongside the
// principal at registration time.
type Profile struct {
	PrincipalID int64  `json:"principal_id"`
	StudentNo   string `json:"student_no,omitempty"`
	Faculty     string `json:"faculty,omitempty"`
	Department  string `json:"department,omitempty"`
	Level       string `json:"level,omitempty"`
	Hall        string `json:"hall,omitempty"`
	RoomNo      string `json:"room_no,omitempty"`
}
