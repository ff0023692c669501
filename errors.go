package auth

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeAccountNotFound    = "ACCOUNT_NOT_FOUND"
	TextCodeDuplicateAccount   = "DUPLICATE_ACCOUNT"
	TextCodeWrongEmail         = "WRONG_EMAIL"
	TextCodeUnconfirmedEmail   = "UNCONFIRMED_EMAIL"
	TextCodeDisapprovedAccount = "DISAPPROVED_ACCOUNT"
	TextCodeWrongPassword      = "WRONG_PASSWORD"
	TextCodeInvalidCode        = "INVALID_CODE"
	TextCodeExpiredCode        = "EXPIRED_CODE"
	TextCodeDeliveryFailed     = "OTP_DELIVERY_FAILED"
	TextCodeForbidden          = "FORBIDDEN"
	TextCodePostNotFound       = "POST_NOT_FOUND"
	TextCodeDuplicatePost      = "DUPLICATE_POST"
	TextCodeTokenExpired       = "TOKEN_EXPIRED"
	TextCodeTokenMalformed     = "TOKEN_MALFORMED"
	TextCodeMissingSession     = "MISSING_SESSION"
	TextCodeInvalidPurpose     = "INVALID_OTP_PURPOSE"
)

// ErrAccountNotFound is returned when no account matches the email.
// It answers with 401 so the surface does not leak which emails exist.
var ErrAccountNotFound = goerrors.New("Wrong email", goerrors.CategoryNotFound).
	WithTextCode(TextCodeAccountNotFound).
	WithCode(goerrors.CodeUnauthorized)

// ErrDuplicateAccount is returned when more than one account matches an
// email, or when registering an email that is already taken.
var ErrDuplicateAccount = goerrors.New("Duplicate account", goerrors.CategoryConflict).
	WithTextCode(TextCodeDuplicateAccount).
	WithCode(goerrors.CodeConflict)

// ErrWrongEmail is the login failure for an unknown email
var ErrWrongEmail = goerrors.New("Wrong email", goerrors.CategoryAuth).
	WithTextCode(TextCodeWrongEmail).
	WithCode(goerrors.CodeUnauthorized)

// ErrUnconfirmedEmail is the login failure for accounts that never confirmed
// their OTP.
var ErrUnconfirmedEmail = goerrors.New("Unconfirmed email", goerrors.CategoryAuth).
	WithTextCode(TextCodeUnconfirmedEmail).
	WithCode(goerrors.CodeUnauthorized)

// ErrDisapprovedAccount is the login failure for contributors not yet approved
var ErrDisapprovedAccount = goerrors.New("Disapproved account", goerrors.CategoryAuth).
	WithTextCode(TextCodeDisapprovedAccount).
	WithCode(goerrors.CodeUnauthorized)

// ErrWrongPassword is returned when a password does not match the stored hash
var ErrWrongPassword = goerrors.New("Wrong password", goerrors.CategoryAuth).
	WithTextCode(TextCodeWrongPassword).
	WithCode(goerrors.CodeUnauthorized)

// ErrInvalidCode is returned when the supplied OTP does not match the stored
// one, nothing is stored, or the stored code was issued for another purpose.
var ErrInvalidCode = goerrors.New("Invalid code", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCode).
	WithCode(goerrors.CodeUnauthorized)

// ErrExpiredCode is returned when the OTP window elapsed
var ErrExpiredCode = goerrors.New("Expired code", goerrors.CategoryAuth).
	WithTextCode(TextCodeExpiredCode).
	WithCode(goerrors.CodeUnauthorized)

// ErrDeliveryFailed is returned when the mailer could not transport an OTP
var ErrDeliveryFailed = goerrors.New("Could not deliver verification code", goerrors.CategoryOperation).
	WithTextCode(TextCodeDeliveryFailed).
	WithCode(http.StatusBadGateway)

// ErrForbidden is the authorization denial
var ErrForbidden = goerrors.New("Forbidden", goerrors.CategoryAuthz).
	WithTextCode(TextCodeForbidden).
	WithCode(goerrors.CodeForbidden)

// ErrPostNotFound is returned when no post matches the identifier
var ErrPostNotFound = goerrors.New("Post not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodePostNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrDuplicatePost is returned when more than one post shares an identifier
var ErrDuplicatePost = goerrors.New("Duplicate post identifier", goerrors.CategoryConflict).
	WithTextCode(TextCodeDuplicatePost).
	WithCode(goerrors.CodeConflict)

// ErrTokenExpired is returned for session tokens past their expiry
var ErrTokenExpired = goerrors.New("Token expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed is returned for tokens that fail to parse or verify
var ErrTokenMalformed = goerrors.New("Missing or malformed token", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(goerrors.CodeUnauthorized)

// ErrMissingSession is returned when an operation needs a verified caller
var ErrMissingSession = goerrors.New("Authentication required", goerrors.CategoryAuth).
	WithTextCode(TextCodeMissingSession).
	WithCode(goerrors.CodeUnauthorized)

// ErrInvalidPurpose is returned for an unknown OTP purpose
var ErrInvalidPurpose = goerrors.New("Unknown code purpose", goerrors.CategoryBadInput).
	WithTextCode(TextCodeInvalidPurpose).
	WithCode(goerrors.CodeBadRequest)

// IsUnauthorized reports whether err is an authentication failure
func IsUnauthorized(err error) bool {
	richErr, ok := asRichError(err)
	return ok && richErr.Category == goerrors.CategoryAuth
}

// IsForbidden reports whether err is an authorization denial
func IsForbidden(err error) bool {
	richErr, ok := asRichError(err)
	return ok && richErr.Category == goerrors.CategoryAuthz
}

// IsConflict reports whether err flags a data integrity conflict
func IsConflict(err error) bool {
	richErr, ok := asRichError(err)
	return ok && richErr.Category == goerrors.CategoryConflict
}

// IsDeliveryError reports whether err is a transport failure
func IsDeliveryError(err error) bool {
	richErr, ok := asRichError(err)
	return ok && richErr.TextCode == TextCodeDeliveryFailed
}

func asRichError(err error) (*goerrors.Error, bool) {
	if err == nil {
		return nil, false
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return nil, false
	}
	return richErr, true
}

// HTTPStatus resolves the response code for err
func HTTPStatus(err error) int {
	richErr, ok := asRichError(err)
	if !ok {
		return http.StatusInternalServerError
	}

	if richErr.Code > 0 {
		return richErr.Code
	}

	switch richErr.Category {
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
