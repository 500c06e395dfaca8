package tokens

import (
	"hash"
	"time"
)

// minSecretLength is the smallest secret key base accepted for key
// derivation, in bytes.
const minSecretLength = 20

// TokenService signs arbitrary data into url safe, expiring tokens and
// verifies them. Keys are derived from a secret key base with PBKDF2
// and scoped by salt, so tokens signed for one purpose never verify
// under another.
type TokenService struct {
	keys    *KeyGenerator
	salt    string
	keyOpts KeyOptions
	logger  Logger
	now     func() time.Time
}

// TokenServiceOption configures a TokenService instance
type TokenServiceOption func(*TokenService)

// WithKeyGenerator shares a key generator, and its derived key cache,
// across services
func WithKeyGenerator(keys *KeyGenerator) TokenServiceOption {
	return func(ts *TokenService) {
		if keys != nil {
			ts.keys = keys
		}
	}
}

// WithDefaultKeyOptions sets the key derivation parameters used when a
// call does not override them
func WithDefaultKeyOptions(opts KeyOptions) TokenServiceOption {
	return func(ts *TokenService) {
		ts.keyOpts = opts
	}
}

// WithLogger sets the service logger
func WithLogger(logger Logger) TokenServiceOption {
	return func(ts *TokenService) {
		if logger != nil {
			ts.logger = logger
		}
	}
}

// WithClock overrides the time source used to stamp and expire tokens
func WithClock(now func() time.Time) TokenServiceOption {
	return func(ts *TokenService) {
		if now != nil {
			ts.now = now
		}
	}
}

// NewTokenService creates a new TokenService instance. The salt scopes
// every token this service signs, use a different salt per purpose.
func NewTokenService(salt string, opts ...TokenServiceOption) *TokenService {
	ts := &TokenService{
		keys:   NewKeyGenerator(),
		salt:   salt,
		logger: defaultLogger("tokens"),
		now:    time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(ts)
		}
	}

	return ts
}

type tokenOptions struct {
	salt     string
	keyOpts  KeyOptions
	signedAt time.Time
}

// TokenOption overrides per call signing and verification parameters
type TokenOption func(*tokenOptions)

// WithSalt overrides the service salt for a single call
func WithSalt(salt string) TokenOption {
	return func(o *tokenOptions) {
		o.salt = salt
	}
}

// WithKeyOptions overrides the key derivation parameters for a single call
func WithKeyOptions(opts KeyOptions) TokenOption {
	return func(o *tokenOptions) {
		o.keyOpts = opts
	}
}

// WithSignedAt backdates or forward dates the signing timestamp
func WithSignedAt(t time.Time) TokenOption {
	return func(o *tokenOptions) {
		if !t.IsZero() {
			o.signedAt = t
		}
	}
}

func (ts *TokenService) tokenDefaults() tokenOptions {
	return tokenOptions{
		salt:     ts.salt,
		keyOpts:  ts.keyOpts,
		signedAt: ts.now(),
	}
}

// Sign encodes data together with the signing timestamp and wraps it in
// a keyed signature. The token is url safe.
func (ts *TokenService) Sign(source SecretSource, data any, opts ...TokenOption) (string, error) {
	options := ts.tokenDefaults()
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	key, digest, err := ts.deriveKey(source, options)
	if err != nil {
		return "", err
	}

	payload, err := encodePayload(tokenPayload{
		Data:     data,
		SignedAt: options.signedAt.UnixMilli(),
	})
	if err != nil {
		return "", err
	}

	return signMessage(payload, key, digest), nil
}

// Verify checks the token signature and age, returning the embedded
// data. maxAge is evaluated against the current clock on every call, a
// token that verified a moment ago can be expired now. A zero maxAge
// only accepts tokens signed in the same millisecond, a negative one is
// rejected outright.
func (ts *TokenService) Verify(source SecretSource, token string, maxAge time.Duration, opts ...TokenOption) (any, error) {
	if maxAge < 0 {
		return nil, ErrInvalidMaxAge
	}

	options := ts.tokenDefaults()
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	key, digest, err := ts.deriveKey(source, options)
	if err != nil {
		return nil, err
	}

	payload, err := verifyMessage(token, key, digest)
	if err != nil {
		ts.logger.Debug("token signature rejected", "salt", options.salt)
		return nil, err
	}

	decoded, err := decodePayload(payload)
	if err != nil {
		ts.logger.Debug("token payload rejected", "error", err)
		return nil, err
	}

	if isExpired(decoded.SignedAt, maxAge, ts.now()) {
		return nil, ErrTokenExpired
	}

	return decoded.Data, nil
}

func (ts *TokenService) deriveKey(source SecretSource, options tokenOptions) ([]byte, func() hash.Hash, error) {
	secret, err := resolveSecret(source)
	if err != nil {
		return nil, nil, err
	}

	merged := options.keyOpts.withDefaults()

	digest, err := digestFor(merged.Digest)
	if err != nil {
		return nil, nil, err
	}

	key, err := ts.keys.Generate(secret, options.salt, merged)
	if err != nil {
		return nil, nil, err
	}

	return key, digest, nil
}

// resolveSecret pulls the secret key base out of the source and applies
// the minimum length check. Sources surface their own lookup errors.
func resolveSecret(source SecretSource) (string, error) {
	if source == nil {
		return "", ErrSecretNotFound
	}

	secret, err := source.SecretKeyBase()
	if err != nil {
		return "", err
	}

	if len(secret) < minSecretLength {
		return "", ErrInvalidSecret
	}

	return secret, nil
}

// isExpired compares in millisecond precision, matching the stored
// timestamp resolution. The boundary instant itself is still valid.
func isExpired(signedAtMS int64, maxAge time.Duration, now time.Time) bool {
	return now.UnixMilli() > signedAtMS+maxAge.Milliseconds()
}
