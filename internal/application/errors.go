package application

import (
	"errors"
	"net/http"
)

// Business failure taxonomy. Every persistence or storage fault is caught at
// the use-case boundary and translated into one of these; raw driver errors
// never cross into handlers.
var (
	ErrTokenGeneration    = errors.New("failed to create verify user token")
	ErrTokenInvalid       = errors.New("token invalid")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenNotProvided   = errors.New("token not provided")
	ErrAlreadyVerified    = errors.New("user already verified")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("username and password is incorrect")
	ErrRegistrationFailed = errors.New("register user failed")
	ErrVerificationFailed = errors.New("verify user failed")
	ErrUpdateFailed       = errors.New("failed to update")
	ErrDeleteFailed       = errors.New("delete user failed")
	ErrAvatarUpload       = errors.New("failed to upload avatar to cloud")
	ErrAvatarUpdate       = errors.New("failed to update avatar")
	ErrLogoutFailed       = errors.New("failed to logout, please try again")
	ErrRefreshFailed      = errors.New("failed to refresh token")
)

// taxonomy lists every sentinel whose text may reach a client.
var taxonomy = []error{
	ErrTokenGeneration, ErrTokenInvalid, ErrTokenExpired, ErrTokenNotProvided,
	ErrAlreadyVerified, ErrUserNotFound, ErrInvalidCredentials,
	ErrRegistrationFailed, ErrVerificationFailed, ErrUpdateFailed,
	ErrDeleteFailed, ErrAvatarUpload, ErrAvatarUpdate, ErrLogoutFailed,
	ErrRefreshFailed,
}

// PublicMessage returns the stable, client-safe message for err: the text
// of the matched taxonomy sentinel, with any wrapped cause stripped. Errors
// outside the taxonomy collapse to a generic message; the full chain
// belongs in the log line, never in the response body.
func PublicMessage(err error) string {
	for _, sentinel := range taxonomy {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "internal server error"
}

// HTTPStatus maps a use-case error onto its HTTP status. The mapping is
// decided once here; handlers only relay it.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrTokenInvalid):
		return http.StatusPreconditionFailed
	case errors.Is(err, ErrAlreadyVerified):
		return http.StatusForbidden
	case errors.Is(err, ErrTokenExpired):
		return http.StatusGone
	case errors.Is(err, ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrTokenNotProvided),
		errors.Is(err, ErrLogoutFailed),
		errors.Is(err, ErrRefreshFailed):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
