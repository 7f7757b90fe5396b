package middleware

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/token"
)

// fakeUsers implements the subset of auth.UserStore the guard touches.
type fakeUsers struct {
	users map[uint64]model.User
}

func (f *fakeUsers) Create(context.Context, model.User) (uint64, error) { return 0, nil }
func (f *fakeUsers) GetByEmail(context.Context, string) (model.User, error) {
	return model.User{}, sql.ErrNoRows
}
func (f *fakeUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return model.User{}, sql.ErrNoRows
	}
	return u, nil
}
func (f *fakeUsers) GetByExternalID(context.Context, string) (model.User, error) {
	return model.User{}, sql.ErrNoRows
}
func (f *fakeUsers) UpdateRole(context.Context, uint64, string) error { return nil }
func (f *fakeUsers) Delete(context.Context, uint64) error             { return nil }
func (f *fakeUsers) List(context.Context, int, int) ([]model.User, error) {
	return nil, nil
}

func testCodec() *token.Codec {
	return token.New("access-secret", "refresh-secret", 15*time.Minute, 7*24*time.Hour)
}

func TestAuthenticateMissingHeader(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	h := Authenticate(testCodec(), &fakeUsers{}, nil)(func(echo.Context) error {
		called = true
		return nil
	})
	if err := h(c); err != nil {
		t.Fatalf("middleware: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if called {
		t.Fatal("next handler must not run without a bearer token")
	}
}

func TestAuthenticateValidToken(t *testing.T) {
	codec := testCodec()
	hash := "hash"
	users := &fakeUsers{users: map[uint64]model.User{
		7: {ID: 7, Email: "a@x.com", Role: model.RoleUser, PasswordHash: &hash},
	}}
	access, _, err := codec.MintAccess(7, "a@x.com", model.RoleUser)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := Authenticate(codec, users, nil)(func(c echo.Context) error {
		u := CurrentUser(c)
		if u == nil || u.ID != 7 {
			t.Fatalf("expected user 7 in context, got %+v", u)
		}
		if u.PasswordHash != nil {
			t.Fatal("password hash must be stripped before handlers")
		}
		return c.NoContent(http.StatusOK)
	})
	if err := h(c); err != nil {
		t.Fatalf("middleware: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthenticateExpiredToken(t *testing.T) {
	past := time.Now().UTC().Add(-time.Hour)
	expired, _, err := testCodec().WithClock(func() time.Time { return past }).
		MintAccess(7, "a@x.com", model.RoleUser)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+expired)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := Authenticate(testCodec(), &fakeUsers{}, nil)(func(echo.Context) error {
		t.Fatal("expired token must not reach the handler")
		return nil
	})
	if err := h(c); err != nil {
		t.Fatalf("middleware: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthenticateDeletedUser(t *testing.T) {
	codec := testCodec()
	access, _, err := codec.MintAccess(99, "gone@x.com", model.RoleUser)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	// Token verifies but the user record is gone: same 401 as a bad token.
	h := Authenticate(codec, &fakeUsers{}, nil)(func(echo.Context) error {
		t.Fatal("deleted user must not reach the handler")
		return nil
	})
	if err := h(c); err != nil {
		t.Fatalf("middleware: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireRoleForbidsOutsiders(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/admin/users", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(ContextRoleKey, model.RoleUser)

	h := RequireRole(model.RoleAdmin)(func(echo.Context) error {
		t.Fatal("non-admin must not pass the role gate")
		return nil
	})
	if err := h(c); err != nil {
		t.Fatalf("middleware: %v", err)
	}
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestRequireRoleAllowsMember(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/admin/users", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(ContextRoleKey, model.RoleAdmin)

	h := RequireRole(model.RoleAdmin)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if err := h(c); err != nil {
		t.Fatalf("middleware: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRequireRoleMissingRole(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/admin/users", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := RequireRole(model.RoleAdmin)(func(echo.Context) error {
		t.Fatal("request without a resolved role must not pass")
		return nil
	})
	if err := h(c); err != nil {
		t.Fatalf("middleware: %v", err)
	}
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}
