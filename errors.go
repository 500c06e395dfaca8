package tokens

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes attached to structured errors so callers can branch on a
// stable identifier instead of matching message strings.
const (
	TextCodeInvalidSecret        = "INVALID_SECRET"
	TextCodeSecretNotFound       = "SECRET_NOT_FOUND"
	TextCodeInvalidKeyLength     = "INVALID_KEY_LENGTH"
	TextCodeInvalidKeyIterations = "INVALID_KEY_ITERATIONS"
	TextCodeUnsupportedDigest    = "UNSUPPORTED_DIGEST"
	TextCodeInvalidMaxAge        = "INVALID_MAX_AGE"
	TextCodeInvalidToken         = "INVALID_TOKEN"
	TextCodeTokenExpired         = "TOKEN_EXPIRED"
	TextCodeTokenNotFound        = "TOKEN_NOT_FOUND"
	TextCodeWeakPassword         = "WEAK_PASSWORD"
	TextCodeEmptyPassword        = "EMPTY_PASSWORD"
	TextCodeInvalidCreds         = "INVALID_CREDENTIALS"
	TextCodeNotConfirmed         = "ACCOUNT_NOT_CONFIRMED"
	TextCodeSignupDisabled       = "SIGNUP_DISABLED"
	TextCodeResetDisabled        = "PASSWORD_RESET_DISABLED"
	TextCodeImmutableClaim       = "IMMUTABLE_CLAIM_MUTATION"
)

// ErrSecretNotFound is returned when a secret source cannot produce a key base
var ErrSecretNotFound = goerrors.New("secret key base not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeSecretNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrInvalidSecret is returned when the secret key base fails the minimum length check
var ErrInvalidSecret = goerrors.New("secret key base must be at least 20 bytes", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidSecret)

// ErrInvalidKeyLength is returned for non positive derived key lengths
var ErrInvalidKeyLength = goerrors.New("derived key length must be at least 20 bytes", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidKeyLength)

// ErrInvalidKeyIterations is returned for non positive PBKDF2 iteration counts
var ErrInvalidKeyIterations = goerrors.New("key iterations must be greater than zero", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidKeyIterations)

// ErrUnsupportedDigest is returned for digests outside the supported set
var ErrUnsupportedDigest = goerrors.New("unsupported key digest", goerrors.CategoryValidation).
	WithTextCode(TextCodeUnsupportedDigest)

// ErrInvalidMaxAge is returned when a verify call gets a negative max age
var ErrInvalidMaxAge = goerrors.New("max age cannot be negative", goerrors.CategoryBadInput).
	WithTextCode(TextCodeInvalidMaxAge)

// ErrTokenInvalid is returned for tokens that fail decoding or signature checks
var ErrTokenInvalid = goerrors.New("invalid token", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidToken).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenExpired is returned for tokens that were signed too long ago
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenNotFound is returned when a stored token has no matching user record
var ErrTokenNotFound = goerrors.New("invalid or expired token", goerrors.CategoryNotFound).
	WithTextCode(TextCodeTokenNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrUnableToDecodeSession is returned when parsed claims cannot be mapped
var ErrUnableToDecodeSession = goerrors.New("unable to decode session claims", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidToken).
	WithCode(goerrors.CodeUnauthorized)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = goerrors.New("identity not found", goerrors.CategoryNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrAccountNotConfirmed is returned when a login gate requires a confirmed account
var ErrAccountNotConfirmed = goerrors.New("account has not been confirmed", goerrors.CategoryAuth).
	WithTextCode(TextCodeNotConfirmed).
	WithCode(goerrors.CodeUnauthorized)

// ErrWeakPassword is returned when a candidate password fails the policy check
var ErrWeakPassword = goerrors.New("too short", goerrors.CategoryValidation).
	WithTextCode(TextCodeWeakPassword)

// ErrNoEmptyString is returned when an empty string is given to the hasher
var ErrNoEmptyString = goerrors.New("password cannot be an empty string", goerrors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword)

// ErrMismatchedHashAndPassword is returned when a password does not match its hash
var ErrMismatchedHashAndPassword = goerrors.New("the credentials provided are invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(goerrors.CodeUnauthorized)

// ErrSignupDisabled is returned when the signup feature gate is off
var ErrSignupDisabled = goerrors.New("signup is currently disabled", goerrors.CategoryAuthz).
	WithTextCode(TextCodeSignupDisabled).
	WithCode(goerrors.CodeForbidden)

// ErrPasswordResetDisabled is returned when the password reset feature gate is off
var ErrPasswordResetDisabled = goerrors.New("password reset is currently disabled", goerrors.CategoryAuthz).
	WithTextCode(TextCodeResetDisabled).
	WithCode(goerrors.CodeForbidden)

// ErrImmutableClaimMutation is returned when a claims decorator touches protected claims
var ErrImmutableClaimMutation = goerrors.New("immutable claim mutated", goerrors.CategoryInternal).
	WithTextCode(TextCodeImmutableClaim)

// IsTokenExpiredError will check for expired tokens, structured or legacy
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if hasTextCode(err, TextCodeTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsInvalidTokenError will check for tokens rejected during decode or verify
func IsInvalidTokenError(err error) bool {
	if err == nil {
		return false
	}
	if hasTextCode(err, TextCodeInvalidToken) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// IsWeakPasswordError will check for password policy rejections
func IsWeakPasswordError(err error) bool {
	return hasTextCode(err, TextCodeWeakPassword)
}

// IsTokenNotFoundError will check for stored tokens with no matching record
func IsTokenNotFoundError(err error) bool {
	return hasTextCode(err, TextCodeTokenNotFound)
}

func hasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr != nil {
		return richErr.TextCode == code
	}

	return false
}
