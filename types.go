package tokens

import (
	"context"
)

// Logger is the minimal structured logging surface this package needs.
// Messages take slog style key value pairs. Satisfied by go-logger loggers.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SecretSource yields the secret key base used to derive signing keys.
// Implementations should return ErrSecretNotFound when no secret is
// available rather than an empty string.
type SecretSource interface {
	SecretKeyBase() (string, error)
}

// SecretString adapts a literal secret key base into a SecretSource
type SecretString string

func (s SecretString) SecretKeyBase() (string, error) {
	return string(s), nil
}

// SecretFunc adapts a function into a SecretSource
type SecretFunc func() (string, error)

func (f SecretFunc) SecretKeyBase() (string, error) {
	return f()
}

// ConfigSecret adapts a Config into a SecretSource
func ConfigSecret(cfg Config) SecretSource {
	return SecretFunc(func() (string, error) {
		if cfg == nil {
			return "", ErrSecretNotFound
		}
		return cfg.GetSecretKeyBase(), nil
	})
}

// Config holds token options
type Config interface {
	GetSecretKeyBase() string
	GetTokenSalt() string
	GetKeyIterations() int
	GetKeyLength() int
	GetKeyDigest() string
	GetSigningKey() string
	GetTokenExpiration() int
	GetIssuer() string
	GetAudience() []string
}

// Identity holds the attributes of an identity
type Identity interface {
	ID() string
	Username() string
	Email() string
	Role() string
}

// IdentityProvider ensure we have a store to retrieve auth identity
type IdentityProvider interface {
	VerifyIdentity(ctx context.Context, identifier, password string) (Identity, error)
	FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error)
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// PasswordPolicy validates candidate passwords before they get hashed
type PasswordPolicy interface {
	ValidatePassword(password string) error
}

// PasswordPolicyFunc adapts a function into a PasswordPolicy
type PasswordPolicyFunc func(password string) error

func (f PasswordPolicyFunc) ValidatePassword(password string) error {
	return f(password)
}
