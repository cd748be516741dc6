package auth

import "errors"

var (
	ErrMissingFields        = errors.New("missing fields")
	ErrEmailTaken           = errors.New("email already registered")
	ErrUserNotFound         = errors.New("user not found")
	ErrInvalidAuthMethod    = errors.New("invalid authentication method")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrInvalidSession       = errors.New("invalid or expired session")
	ErrSessionSecretMissing = errors.New("session secret is not configured")
)

var messages = map[error]string{
	ErrMissingFields:      "Missing fields",
	ErrEmailTaken:         "Email already registered",
	ErrUserNotFound:       "User not found",
	ErrInvalidAuthMethod:  "Invalid authentication method",
	ErrInvalidCredentials: "Invalid credentials",
	ErrInvalidSession:     "Not authenticated",
}

// Message returns the text shown to the browser for err, or "" if err is
// not an auth outcome.
func Message(err error) string {
	for sentinel, msg := range messages {
		if errors.Is(err, sentinel) {
			return msg
		}
	}
	return ""
}
