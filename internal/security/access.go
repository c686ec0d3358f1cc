package security

import (
	"EcommerceAuth/internal/common"
	"fmt"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (c *Claims) Role() Role {
	if c.IsAdmin {
		return RoleAdmin
	}
	return RoleUser
}

// Authorize is the access decision every service applies to verified claims.
// Unknown roles are denied.
func Authorize(claims *Claims, required Role) error {
	if claims == nil {
		return fmt.Errorf("%w: нет данных авторизации", common.ErrUnauthorized)
	}

	switch required {
	case RoleUser:
		return nil
	case RoleAdmin:
		if claims.Role() == RoleAdmin {
			return nil
		}
		return fmt.Errorf("%w: требуются права администратора", common.ErrForbidden)
	default:
		return fmt.Errorf("%w: неизвестная роль %q", common.ErrForbidden, required)
	}
}
