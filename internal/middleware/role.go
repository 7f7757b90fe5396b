package middleware

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/auth-service/internal/auth"
)

// RequireRole returns a middleware that enforces that the user resolved
// by Authenticate holds one of the given roles.  It composes after the
// guard; a request that reaches it without a resolved user is rejected
// as forbidden rather than falling through.
func RequireRole(roles ...string) echo.MiddlewareFunc {
    // Build a set of allowed roles for constant-time lookups.
    allowed := make(map[string]bool, len(roles))
    for _, r := range roles {
        allowed[r] = true
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            role, ok := c.Get(ContextRoleKey).(string)
            if !ok || !allowed[role] {
                return c.JSON(http.StatusForbidden, echo.Map{"error": auth.ErrForbidden.Error()})
            }
            return next(c)
        }
    }
}
