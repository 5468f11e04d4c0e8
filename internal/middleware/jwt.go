package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/hama-community/welfare/internal/utils"
)

// Context keys set by JWTAuth.
const (
	ctxUserID         = "user_id"
	ctxRole           = "role"
	ctxNeighborhoodID = "neighborhood_id"
)

// JWTAuth validates a Bearer access token and stores its subject, role and
// neighborhood in the request context.  Requests without a valid token are
// answered with 401.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			claims, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			c.Set(ctxUserID, claims.UserID)
			c.Set(ctxRole, claims.Role)
			c.Set(ctxNeighborhoodID, claims.NeighborhoodID)
			return next(c)
		}
	}
}

func bearerToken(c echo.Context) (string, bool) {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	return raw, raw != ""
}

// OptionalJWT behaves like JWTAuth when a valid token is present and lets
// the request through anonymously otherwise.
func OptionalJWT(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if raw, ok := bearerToken(c); ok {
				if claims, err := utils.ParseAccessToken(secret, raw); err == nil {
					c.Set(ctxUserID, claims.UserID)
					c.Set(ctxRole, claims.Role)
					c.Set(ctxNeighborhoodID, claims.NeighborhoodID)
				}
			}
			return next(c)
		}
	}
}
