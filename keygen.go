package tokens

import (
	"crypto/sha256"
	"crypto/sha512"
	"hash"

	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/crypto/pbkdf2"
)

// Digests supported for key derivation and token signatures
const (
	DigestSHA256 = "sha256"
	DigestSHA512 = "sha512"
)

// Defaults applied to zero valued KeyOptions fields
const (
	DefaultKeyIterations = 1000
	DefaultKeyLength     = 32
)

// minKeyLength is the smallest derived key accepted, in bytes. Matches
// the secret key base floor.
const minKeyLength = 20

// KeyOptions control PBKDF2 key derivation. Zero valued fields receive
// the package defaults.
type KeyOptions struct {
	Iterations int
	Length     int
	Digest     string
}

func (o KeyOptions) withDefaults() KeyOptions {
	if o.Iterations == 0 {
		o.Iterations = DefaultKeyIterations
	}

	if o.Length == 0 {
		o.Length = DefaultKeyLength
	}

	if o.Digest == "" {
		o.Digest = DigestSHA256
	}

	return o
}

func (o KeyOptions) validate() error {
	if o.Iterations < 0 {
		return ErrInvalidKeyIterations
	}

	if o.Length < minKeyLength {
		return ErrInvalidKeyLength
	}

	if _, err := digestFor(o.Digest); err != nil {
		return err
	}

	return nil
}

func digestFor(name string) (func() hash.Hash, error) {
	switch name {
	case DigestSHA256:
		return sha256.New, nil
	case DigestSHA512:
		return sha512.New, nil
	}

	if clone := ErrUnsupportedDigest.Clone(); clone != nil {
		return nil, clone.WithMetadata(map[string]any{"digest": name})
	}

	return nil, ErrUnsupportedDigest
}

type derivedKeyRef struct {
	secret     string
	salt       string
	iterations int
	length     int
	digest     string
}

// KeyGenerator derives signing keys with PBKDF2. Derived keys are
// memoized for the lifetime of the generator, keyed by the full
// parameter set including the secret.
type KeyGenerator struct {
	cache *xsync.MapOf[derivedKeyRef, []byte]
}

func NewKeyGenerator() *KeyGenerator {
	return &KeyGenerator{
		cache: xsync.NewMapOf[derivedKeyRef, []byte](),
	}
}

// Generate derives a key for the given secret and salt. The returned
// slice is shared with the cache, callers must not mutate it.
func (g *KeyGenerator) Generate(secret, salt string, opts KeyOptions) ([]byte, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}

	ref := derivedKeyRef{
		secret:     secret,
		salt:       salt,
		iterations: opts.Iterations,
		length:     opts.Length,
		digest:     opts.Digest,
	}

	key, _ := g.cache.LoadOrCompute(ref, func() []byte {
		h, _ := digestFor(opts.Digest)
		return pbkdf2.Key([]byte(secret), []byte(salt), opts.Iterations, opts.Length, h)
	})

	return key, nil
}
