package middleware

import "github.com/labstack/echo/v4"

// Identity is the caller as established by JWTAuth.
type Identity struct {
	UserID         string
	Role           string
	NeighborhoodID string
}

// CurrentIdentity returns the authenticated caller.  ok is false on routes
// that did not pass through JWTAuth.
func CurrentIdentity(c echo.Context) (Identity, bool) {
	uid, _ := c.Get(ctxUserID).(string)
	if uid == "" {
		return Identity{}, false
	}
	role, _ := c.Get(ctxRole).(string)
	nbh, _ := c.Get(ctxNeighborhoodID).(string)
	return Identity{UserID: uid, Role: role, NeighborhoodID: nbh}, true
}

// userID returns the caller's id or "guest" for anonymous requests.
func userID(c echo.Context) string {
	if id, ok := CurrentIdentity(c); ok {
		return id.UserID
	}
	return "guest"
}
