package auth

import "errors"

// The closed failure taxonomy of the auth core.  Handlers translate these
// into HTTP status codes; anything not in this set is treated as an
// internal error and reported without detail.
var (
	// ErrInvalidCredentials is returned for both an unknown email and a
	// wrong password.  The two cases are deliberately indistinguishable
	// so that login cannot be used to enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidRefreshToken covers every refresh failure: signature or
	// expiry problems, an owner that no longer exists, and a token that
	// verifies cryptographically but has been revoked out of the owner's
	// record list.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// ErrUnauthenticated is produced by the access guard when no usable
	// bearer credential accompanies the request.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden is produced by the role gate.
	ErrForbidden = errors.New("forbidden")

	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("email already exists")
)
