package domain

import "errors"

// Error kinds. Every failure surfaced by the account operations matches
// exactly one of these through errors.Is.
var (
	ErrUnauthenticated        = errors.New("unauthenticated")
	ErrInvalidToken           = errors.New("invalid token")
	ErrForbidden              = errors.New("forbidden")
	ErrInvalidArgument        = errors.New("invalid argument")
	ErrConflict               = errors.New("conflict")
	ErrNotFound               = errors.New("not found")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrAuthServiceUnavailable = errors.New("auth service unavailable")
)

// Error carries a user-facing message on top of one of the error kinds.
// Content is optional payload echoed back to the caller (for instance the
// token service's answer when a token could not be resolved).
type Error struct {
	Kind    error
	Message string
	Content any
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Registration, in the order the rules are checked.
var (
	ErrBlankUsername     = newError(ErrInvalidArgument, "Username cannot be blank.")
	ErrBlankPassword     = newError(ErrInvalidArgument, "Password cannot be blank.")
	ErrPasswordsMismatch = newError(ErrInvalidArgument, "Passwords do not match.")
	ErrInvalidEmail      = newError(ErrInvalidArgument, "Invalid email address.")
	ErrEmailTaken        = newError(ErrConflict, "User already registered with this email.")
	ErrUsernameTaken     = newError(ErrConflict, "Username taken.")
)

var (
	ErrLoginRequired      = newError(ErrUnauthenticated, "Login required.")
	ErrAdminRequired      = newError(ErrForbidden, "Admin privileges required.")
	ErrBadLogin           = newError(ErrInvalidCredentials, "Invalid credentials or user does not exist.")
	ErrOldPasswordInvalid = newError(ErrForbidden, "Passwords do not match.")
	ErrUpdateArguments    = newError(ErrInvalidArgument, "Required arguments missing or invalid argument(s) provided.")
	ErrUserNotFound       = newError(ErrNotFound, "User not found")
	ErrNoSuchUser         = newError(ErrInvalidArgument, "No such user.")
	ErrUserExists         = newError(ErrConflict, "User already exists.")
	ErrRoleExists         = newError(ErrConflict, "Role already exists.")
	ErrTokenService       = newError(ErrAuthServiceUnavailable, "Something went wrong, try again.")
)

// InvalidToken builds the error returned when the token service refused the
// session credential. upstream is whatever the token service answered.
func InvalidToken(upstream any) *Error {
	return &Error{Kind: ErrInvalidToken, Message: "Invalid token", Content: upstream}
}

// KindOf returns the kind of the first *Error in err's chain, or nil when
// err carries none.
func KindOf(err error) error {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return nil
}
