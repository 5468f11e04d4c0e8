package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hama-community/welfare/internal/model"
)

// RequireRole admits callers whose token role is one of roles and answers
// 403 otherwise.  It must run after JWTAuth.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := CurrentIdentity(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
			}
			if _, ok := allowed[id.Role]; !ok {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}

// RequireNeighborhood rejects committee presidents whose token carries no
// neighborhood: their benefit queries are scoped by it.  Other roles pass.
func RequireNeighborhood() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, _ := CurrentIdentity(c)
			if id.Role == model.RoleCommitteePresident && id.NeighborhoodID == "" {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "no neighborhood assigned to this committee account"})
			}
			return next(c)
		}
	}
}
