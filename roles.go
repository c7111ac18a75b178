package accounts

import "strings"

// Role is the authorization role carried by an account and its tokens.
type Role string

const (
	RoleUser    Role = "user"
	RoleCreator Role = "creator"
	RoleAdmin   Role = "admin"
)

// IsValid checks if the role is one of the predefined roles
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleCreator, RoleAdmin:
		return true
	default:
		return false
	}
}

// IsAtLeast checks if this role meets the minimum required level
func (r Role) IsAtLeast(minRole Role) bool {
	return r.level() >= minRole.level() && r.IsValid()
}

func (r Role) level() int {
	switch r {
	case RoleUser:
		return 0
	case RoleCreator:
		return 1
	case RoleAdmin:
		return 2
	default:
		return -1
	}
}

// ParseRole normalizes raw and returns ErrInvalidRole for unknown values.
func ParseRole(raw string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(raw)))
	if !r.IsValid() {
		return "", ErrInvalidRole
	}
	return r, nil
}

// AccountStatus is the administrative lifecycle status.
type AccountStatus string

const (
	StatusActive    AccountStatus = "active"
	StatusSuspended AccountStatus = "suspended"
	StatusBlocked   AccountStatus = "blocked"
)

// IsValid checks if the status is one of the predefined statuses
func (s AccountStatus) IsValid() bool {
	switch s {
	case StatusActive, StatusSuspended, StatusBlocked:
		return true
	default:
		return false
	}
}

// CanLogin reports whether accounts in this status may authenticate.
func (s AccountStatus) CanLogin() bool {
	switch s {
	case StatusActive:
		return true
	case StatusSuspended, StatusBlocked:
		return false
	default:
		return false
	}
}

// ParseAccountStatus normalizes raw and returns ErrInvalidStatus for unknown values.
func ParseAccountStatus(raw string) (AccountStatus, error) {
	s := AccountStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !s.IsValid() {
		return "", ErrInvalidStatus
	}
	return s, nil
}

// ApplicationStatus tracks a creator role application.
type ApplicationStatus string

const (
	ApplicationNone     ApplicationStatus = "none"
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationApproved ApplicationStatus = "approved"
	ApplicationRejected ApplicationStatus = "rejected"
)

// IsValid checks if the application status is one of the predefined values
func (a ApplicationStatus) IsValid() bool {
	switch a {
	case ApplicationNone, ApplicationPending, ApplicationApproved, ApplicationRejected:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition is allowed.
func (a ApplicationStatus) IsTerminal() bool {
	switch a {
	case ApplicationApproved, ApplicationRejected:
		return true
	case ApplicationNone, ApplicationPending:
		return false
	default:
		return false
	}
}

// Gender is the self-declared gender stored on the profile.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// IsValid checks if the gender is one of the predefined values
func (g Gender) IsValid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	default:
		return false
	}
}
