package ws

import (
	"fmt"

	"fleet-monitor/alerting/internal/domain"
)

func errIdentityRequired(role domain.Role) error {
	return fmt.Errorf("%s connections need a numeric id", role)
}

func errInvalidIdentity(raw string) error {
	return fmt.Errorf("invalid subscriber id %q", raw)
}
