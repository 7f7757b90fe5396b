package token // package token mints and verifies the signed credentials used by the service

import (
    "errors"  // sentinel errors for the verification outcomes
    "time"    // expiry computation

    "github.com/golang-jwt/jwt/v5" // JWT library for creating and parsing signed tokens
)

// Verification failures are collapsed into exactly two sentinels so that
// callers never have to inspect raw jwt library errors.  ErrExpiredToken
// means the token was well-formed and correctly signed but its lifetime
// has passed; ErrMalformedToken covers every structural or signature
// problem, including a token signed with the wrong secret.
var (
    ErrExpiredToken   = errors.New("token expired")
    ErrMalformedToken = errors.New("token malformed")
)

// AccessClaims is the identity payload carried by an access token.
type AccessClaims struct {
    UserID uint64 `json:"user_id"`
    Email  string `json:"email"`
    Role   string `json:"role"`
    jwt.RegisteredClaims
}

// RefreshClaims carries only the owning user's id.  Refresh tokens are
// deliberately minimal: role and email are re-read from the store at
// refresh time, so a stale claim can never resurrect revoked privileges.
type RefreshClaims struct {
    UserID uint64 `json:"user_id"`
    jwt.RegisteredClaims
}

// Codec signs and verifies HS256 tokens.  Access and refresh tokens use
// distinct secrets so a leaked access token can never be replayed as a
// refresh token.  The now function is injectable for tests and defaults
// to the UTC wall clock.
type Codec struct {
    accessSecret  []byte
    refreshSecret []byte
    accessTTL     time.Duration
    refreshTTL    time.Duration
    now           func() time.Time
}

// New builds a Codec from the two signing secrets and the configured
// lifetimes.  Typical values are 15 minutes for access and 7 days for
// refresh.
func New(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *Codec {
    return &Codec{
        accessSecret:  []byte(accessSecret),
        refreshSecret: []byte(refreshSecret),
        accessTTL:     accessTTL,
        refreshTTL:    refreshTTL,
        now:           func() time.Time { return time.Now().UTC() },
    }
}

// WithClock returns a copy of the codec that reads time from the given
// function.  Used by tests to mint tokens in the past.
func (c *Codec) WithClock(now func() time.Time) *Codec {
    cp := *c
    cp.now = now
    return &cp
}

// MintAccess signs a short-lived access token for the user and returns
// the serialized token together with its expiration time.
func (c *Codec) MintAccess(userID uint64, email, role string) (string, time.Time, error) {
    now := c.now()
    exp := now.Add(c.accessTTL)
    claims := AccessClaims{
        UserID: userID,
        Email:  email,
        Role:   role,
        RegisteredClaims: jwt.RegisteredClaims{
            IssuedAt:  jwt.NewNumericDate(now),
            ExpiresAt: jwt.NewNumericDate(exp),
        },
    }
    signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.accessSecret)
    if err != nil {
        return "", time.Time{}, err
    }
    return signed, exp, nil
}

// MintRefresh signs a long-lived refresh token carrying only the user id.
func (c *Codec) MintRefresh(userID uint64) (string, time.Time, error) {
    now := c.now()
    exp := now.Add(c.refreshTTL)
    claims := RefreshClaims{
        UserID: userID,
        RegisteredClaims: jwt.RegisteredClaims{
            IssuedAt:  jwt.NewNumericDate(now),
            ExpiresAt: jwt.NewNumericDate(exp),
        },
    }
    signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.refreshSecret)
    if err != nil {
        return "", time.Time{}, err
    }
    return signed, exp, nil
}

// VerifyAccess parses and validates an access token.  On success the
// embedded identity claims are returned.
func (c *Codec) VerifyAccess(raw string) (AccessClaims, error) {
    var claims AccessClaims
    if err := c.verify(raw, &claims, c.accessSecret); err != nil {
        return AccessClaims{}, err
    }
    return claims, nil
}

// VerifyRefresh parses and validates a refresh token.
func (c *Codec) VerifyRefresh(raw string) (RefreshClaims, error) {
    var claims RefreshClaims
    if err := c.verify(raw, &claims, c.refreshSecret); err != nil {
        return RefreshClaims{}, err
    }
    return claims, nil
}

// verify parses raw into claims using the given secret and normalizes
// every jwt library failure into one of the package sentinels.
func (c *Codec) verify(raw string, claims jwt.Claims, secret []byte) error {
    tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
        // Reject any signing method other than HMAC; an attacker must not
        // be able to downgrade verification by switching algorithms.
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, ErrMalformedToken
        }
        return secret, nil
    }, jwt.WithTimeFunc(c.now))
    if err != nil {
        if errors.Is(err, jwt.ErrTokenExpired) {
            return ErrExpiredToken
        }
        return ErrMalformedToken
    }
    if !tok.Valid {
        return ErrMalformedToken
    }
    return nil
}
