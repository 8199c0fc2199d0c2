package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/watchdeck/user-api/internal/core/domain"
)

// RBAC rejects requests whose claim role is not in allowedRoles. It must be
// mounted after Auth.
func RBAC(allowedRoles ...domain.Role) echo.MiddlewareFunc {
	allowed := make(map[domain.Role]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claim := ClaimFrom(c)
			if claim == nil {
				return domain.Forbidden("authentication required")
			}
			if _, ok := allowed[claim.Role]; !ok {
				return domain.Forbidden("not enough permissions")
			}
			return next(c)
		}
	}
}
