package domain

import "fmt"

type Role int

const (
	RoleDriver Role = iota + 1
	RolePassenger
	RoleDispatcher
)

func (r Role) String() string {
	switch r {
	case RoleDriver:
		return "driver"
	case RolePassenger:
		return "passenger"
	case RoleDispatcher:
		return "dispatcher"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// HasIdentity reports whether subscribers of this role are addressed by user
// id. Dispatchers all share one audience.
func (r Role) HasIdentity() bool {
	return r == RoleDriver || r == RolePassenger
}

func ParseRole(s string) (Role, error) {
	switch s {
	case "driver":
		return RoleDriver, nil
	case "passenger":
		return RolePassenger, nil
	case "dispatcher":
		return RoleDispatcher, nil
	default:
		return 0, fmt.Errorf("unknown role %q", s)
	}
}
