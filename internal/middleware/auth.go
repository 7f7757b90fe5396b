package middleware // middleware provides shared request processing for handlers

import (
    "context"
    "database/sql"
    "errors"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/auth-service/internal/auth"
    "github.com/iliyamo/auth-service/internal/model"
    "github.com/iliyamo/auth-service/internal/token"
)

// Context keys set by Authenticate for downstream handlers.
const (
    ContextUserKey   = "user"    // *model.User, secret fields stripped
    ContextUserIDKey = "user_id" // uint64
    ContextRoleKey   = "role"    // string
)

// Authenticate returns an Echo middleware that gates protected routes.
// It extracts the bearer token, verifies it with the codec, resolves the
// claimed user against the store, and attaches the resolved user to the
// request context.  A user deleted after token issue is rejected exactly
// like a bad token.  On success a background sweep of the user's refresh
// records is enqueued through the dispatcher; the sweep can never affect
// the response.
func Authenticate(codec *token.Codec, users auth.UserStore, sweeps *auth.Dispatcher) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            header := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(header, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": auth.ErrUnauthenticated.Error()})
            }
            raw := strings.TrimPrefix(header, "Bearer ")

            claims, err := codec.VerifyAccess(raw)
            if err != nil {
                // Expired and malformed collapse to the same response;
                // the distinction is not the client's business here.
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": auth.ErrUnauthenticated.Error()})
            }

            ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
            defer cancel()
            u, err := users.GetByID(ctx, claims.UserID)
            if err != nil {
                if errors.Is(err, sql.ErrNoRows) || errors.Is(err, auth.ErrNotFound) {
                    return c.JSON(http.StatusUnauthorized, echo.Map{"error": auth.ErrUnauthenticated.Error()})
                }
                return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
            }

            // Strip secrets before the user object travels through
            // handler code.
            u.PasswordHash = nil
            c.Set(ContextUserKey, &u)
            c.Set(ContextUserIDKey, u.ID)
            c.Set(ContextRoleKey, u.Role)

            if sweeps != nil {
                sweeps.Enqueue(u.ID)
            }
            return next(c)
        }
    }
}

// CurrentUser returns the user resolved by Authenticate, or nil when the
// route is not behind the guard.
func CurrentUser(c echo.Context) *model.User {
    if u, ok := c.Get(ContextUserKey).(*model.User); ok {
        return u
    }
    return nil
}
