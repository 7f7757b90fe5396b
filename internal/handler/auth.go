package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-service/internal/auth"
	"github.com/iliyamo/auth-service/internal/middleware"
)

// AuthHandler bundles dependencies for the auth endpoints.
type AuthHandler struct {
	Sessions *auth.Service
}

func NewAuthHandler(sessions *auth.Service) *AuthHandler {
	return &AuthHandler{Sessions: sessions}
}

// ----- DTOs -----

type registerReq struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}
type externalReq struct {
	ExternalID string `json:"external_id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type authResp struct {
	User    auth.Profile `json:"user"`
	Access  tokenPart    `json:"access"`
	Refresh tokenPart    `json:"refresh"`
}

func pairResp(profile auth.Profile, pair auth.TokenPair) authResp {
	return authResp{
		User:    profile,
		Access:  tokenPart{Token: pair.AccessToken, Expires: pair.AccessExpiresAt},
		Refresh: tokenPart{Token: pair.RefreshToken, Expires: pair.RefreshExpiresAt},
	}
}

func requestMeta(c echo.Context) auth.Meta {
	return auth.Meta{
		IP:        c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	}
}

// Register: create user and return tokens immediately.  The request
// carries no role field; self-registration always yields a regular user.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = auth.NormalizeEmail(req.Email)
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	profile, pair, err := h.Sessions.Register(ctx, req.Email, req.Name, req.Password, requestMeta(c))
	if err != nil {
		if errors.Is(err, auth.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": auth.ErrConflict.Error()})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}
	return c.JSON(http.StatusCreated, pairResp(profile, pair))
}

// Login: verify credentials and return a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	profile, pair, err := h.Sessions.Login(ctx, req.Email, req.Password, requestMeta(c))
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": auth.ErrInvalidCredentials.Error()})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
	}
	return c.JSON(http.StatusOK, pairResp(profile, pair))
}

// External: sign in a verified external identity.  The provider
// redirect/callback dance happens upstream; this endpoint receives the
// already-verified identity payload.
func (h *AuthHandler) External(c echo.Context) error {
	var req externalReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.ExternalID = strings.TrimSpace(req.ExternalID)
	if req.ExternalID == "" || req.Email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "external_id/email required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	profile, pair, err := h.Sessions.LoginExternal(ctx, req.ExternalID, req.Email, req.Name, requestMeta(c))
	if err != nil {
		if errors.Is(err, auth.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": auth.ErrConflict.Error()})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "external login failed"})
	}
	return c.JSON(http.StatusOK, pairResp(profile, pair))
}

// Refresh: exchange a live refresh token for a new access token.  The
// refresh token is not rotated.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	access, exp, err := h.Sessions.Refresh(ctx, strings.TrimSpace(req.RefreshToken), requestMeta(c))
	if err != nil {
		if errors.Is(err, auth.ErrInvalidRefreshToken) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": auth.ErrInvalidRefreshToken.Error()})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "refresh failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"access": tokenPart{Token: access, Expires: exp},
	})
}

// Logout: remove the session matching the presented refresh token.
// Revoking a token that is already gone, or no longer verifies, still
// returns 204.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Sessions.Logout(ctx, strings.TrimSpace(req.RefreshToken), requestMeta(c)); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// LogoutAll: clear every session of the authenticated caller (protected).
func (h *AuthHandler) LogoutAll(c echo.Context) error {
	u := middleware.CurrentUser(c)
	if u == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": auth.ErrUnauthenticated.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Sessions.LogoutAll(ctx, u.ID, requestMeta(c)); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Me: return the authenticated user's profile, without secret fields.
func (h *AuthHandler) Me(c echo.Context) error {
	u := middleware.CurrentUser(c)
	if u == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": auth.ErrUnauthenticated.Error()})
	}
	return c.JSON(http.StatusOK, auth.ProfileOf(*u))
}
