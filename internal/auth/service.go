package auth

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/password"
	"github.com/iliyamo/auth-service/internal/token"
)

// Audit action names emitted by the service.
const (
	ActionRegister      = "register"
	ActionLogin         = "login"
	ActionLoginExternal = "login_external"
	ActionRefresh       = "refresh"
	ActionLogout        = "logout"
	ActionLogoutAll     = "logout_all"
	ActionRoleChange    = "role_change"
	ActionUserDelete    = "user_delete"
)

// TokenPair is returned to clients after a successful authentication.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// Profile is the secret-free view of a user returned alongside tokens
// and from /me.
type Profile struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// ProfileOf strips secret fields from a user record.
func ProfileOf(u model.User) Profile {
	return Profile{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}

// Service orchestrates login, logout, refresh and revocation atop the
// token codec and the credential store.  All mutations to a user's record
// list go through the TokenStore; the service holds no in-process session
// state.
type Service struct {
	users      UserStore
	tokens     TokenStore
	audit      AuditSink
	codec      *token.Codec
	bcryptCost int
	now        func() time.Time
}

func NewService(users UserStore, tokens TokenStore, audit AuditSink, codec *token.Codec, bcryptCost int) *Service {
	return &Service{
		users:      users,
		tokens:     tokens,
		audit:      audit,
		codec:      codec,
		bcryptCost: bcryptCost,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the service clock.  Tests use it to age records.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// NormalizeEmail lower-cases and trims an email the same way everywhere
// it is stored or looked up.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a password account and signs it in.  Self-registration
// always yields the user role; elevation is a separate admin-only path.
func (s *Service) Register(ctx context.Context, email, name, plain string, meta Meta) (Profile, TokenPair, error) {
	email = NormalizeEmail(email)
	hash, err := password.Hash(plain, s.bcryptCost)
	if err != nil {
		return Profile{}, TokenPair{}, err
	}
	u := model.User{
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: &hash,
		Role:         model.RoleUser,
	}
	id, err := s.users.Create(ctx, u)
	if err != nil {
		return Profile{}, TokenPair{}, err
	}
	u.ID = id
	pair, err := s.issuePair(ctx, u)
	if err != nil {
		return Profile{}, TokenPair{}, err
	}
	s.record(ctx, id, ActionRegister, true, email, meta)
	return ProfileOf(u), pair, nil
}

// Login verifies credentials and issues a fresh token pair, appending a
// new refresh record for this session.  Unknown email and wrong password
// produce the identical ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, plain string, meta Meta) (Profile, TokenPair, error) {
	email = NormalizeEmail(email)
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || errors.Is(err, ErrNotFound) {
			s.record(ctx, 0, ActionLogin, false, email, meta)
			return Profile{}, TokenPair{}, ErrInvalidCredentials
		}
		return Profile{}, TokenPair{}, err
	}
	if !u.HasPassword() || !password.Verify(*u.PasswordHash, plain) {
		s.record(ctx, u.ID, ActionLogin, false, email, meta)
		return Profile{}, TokenPair{}, ErrInvalidCredentials
	}
	pair, err := s.issuePair(ctx, u)
	if err != nil {
		return Profile{}, TokenPair{}, err
	}
	s.record(ctx, u.ID, ActionLogin, true, email, meta)
	return ProfileOf(u), pair, nil
}

// LoginExternal signs in a verified external identity.  The caller has
// already completed the provider dance; this method only consumes the
// stable external id plus profile fields.  A local account is created on
// first sight, password-less.
func (s *Service) LoginExternal(ctx context.Context, externalID, email, name string, meta Meta) (Profile, TokenPair, error) {
	u, err := s.users.GetByExternalID(ctx, externalID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) && !errors.Is(err, ErrNotFound) {
			return Profile{}, TokenPair{}, err
		}
		ext := externalID
		u = model.User{
			Email:      NormalizeEmail(email),
			Name:       strings.TrimSpace(name),
			Role:       model.RoleUser,
			ExternalID: &ext,
		}
		id, cerr := s.users.Create(ctx, u)
		if cerr != nil {
			return Profile{}, TokenPair{}, cerr
		}
		u.ID = id
	}
	pair, err := s.issuePair(ctx, u)
	if err != nil {
		return Profile{}, TokenPair{}, err
	}
	s.record(ctx, u.ID, ActionLoginExternal, true, u.Email, meta)
	return ProfileOf(u), pair, nil
}

// Refresh exchanges a live refresh token for a new access token.  The
// refresh token is not rotated: it stays in the record list until logout
// or sweep.  Every failure mode collapses to ErrInvalidRefreshToken so
// the endpoint leaks nothing about which step rejected the token.
func (s *Service) Refresh(ctx context.Context, refreshToken string, meta Meta) (string, time.Time, error) {
	claims, err := s.codec.VerifyRefresh(refreshToken)
	if err != nil {
		return "", time.Time{}, ErrInvalidRefreshToken
	}
	u, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || errors.Is(err, ErrNotFound) {
			return "", time.Time{}, ErrInvalidRefreshToken
		}
		return "", time.Time{}, err
	}
	// The membership check is the revocation boundary: a revoked token
	// still verifies cryptographically but has no row here.
	ok, err := s.tokens.Contains(ctx, u.ID, refreshToken)
	if err != nil {
		return "", time.Time{}, err
	}
	if !ok {
		s.record(ctx, u.ID, ActionRefresh, false, "revoked token presented", meta)
		return "", time.Time{}, ErrInvalidRefreshToken
	}
	access, exp, err := s.codec.MintAccess(u.ID, u.Email, u.Role)
	if err != nil {
		return "", time.Time{}, err
	}
	s.record(ctx, u.ID, ActionRefresh, true, "", meta)
	return access, exp, nil
}

// Logout removes the single record matching the presented refresh token,
// ending that session only.  It is idempotent: logging out an already
// revoked, expired or unknown token succeeds without effect.
func (s *Service) Logout(ctx context.Context, refreshToken string, meta Meta) error {
	claims, err := s.codec.VerifyRefresh(refreshToken)
	if err != nil {
		// An unverifiable token names no owner and backs no live
		// session; there is nothing to remove.
		return nil
	}
	if err := s.tokens.RemoveOne(ctx, claims.UserID, refreshToken); err != nil {
		return err
	}
	s.record(ctx, claims.UserID, ActionLogout, true, "", meta)
	return nil
}

// LogoutAll clears the caller's entire record list, logging the user out
// of every device.
func (s *Service) LogoutAll(ctx context.Context, userID uint64, meta Meta) error {
	if err := s.tokens.RemoveAll(ctx, userID); err != nil {
		return err
	}
	s.record(ctx, userID, ActionLogoutAll, true, "", meta)
	return nil
}

// ChangeRole sets a user's role through the trusted path.  The handler
// layer guarantees the actor is an authenticated admin; unknown role
// values normalize to user.
func (s *Service) ChangeRole(ctx context.Context, actorID, targetID uint64, role string, meta Meta) error {
	role = model.NormalizeRole(role)
	if err := s.users.UpdateRole(ctx, targetID, role); err != nil {
		return err
	}
	s.record(ctx, actorID, ActionRoleChange, true, role, meta)
	return nil
}

// DeleteUser removes an account and, via store cascade, its refresh
// records.
func (s *Service) DeleteUser(ctx context.Context, actorID, targetID uint64, meta Meta) error {
	if err := s.users.Delete(ctx, targetID); err != nil {
		return err
	}
	s.record(ctx, actorID, ActionUserDelete, true, "", meta)
	return nil
}

// issuePair mints an access+refresh pair and appends the refresh record
// to the user's list.
func (s *Service) issuePair(ctx context.Context, u model.User) (TokenPair, error) {
	access, accessExp, err := s.codec.MintAccess(u.ID, u.Email, u.Role)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, refreshExp, err := s.codec.MintRefresh(u.ID)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.tokens.Append(ctx, u.ID, refresh, s.now()); err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// record emits an audit event.  Audit failures must never abort the
// primary operation, so errors are logged and dropped here.
func (s *Service) record(ctx context.Context, userID uint64, action string, success bool, detail string, meta Meta) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, userID, action, success, detail, meta); err != nil {
		log.Printf("auth: audit record failed for action=%s user=%d: %v", action, userID, err)
	}
}
