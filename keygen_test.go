package tokens

import (
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyOptionsWithDefaults(t *testing.T) {
	tests := []struct {
		name     string
		opts     KeyOptions
		expected KeyOptions
	}{
		{
			name: "zero value gets all defaults",
			opts: KeyOptions{},
			expected: KeyOptions{
				Iterations: DefaultKeyIterations,
				Length:     DefaultKeyLength,
				Digest:     DigestSHA256,
			},
		},
		{
			name: "explicit values are preserved",
			opts: KeyOptions{
				Iterations: 5000,
				Length:     64,
				Digest:     DigestSHA512,
			},
			expected: KeyOptions{
				Iterations: 5000,
				Length:     64,
				Digest:     DigestSHA512,
			},
		},
		{
			name: "partial options fill the rest",
			opts: KeyOptions{Length: 48},
			expected: KeyOptions{
				Iterations: DefaultKeyIterations,
				Length:     48,
				Digest:     DigestSHA256,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.opts.withDefaults())
		})
	}
}

func TestKeyGeneratorDerivesDeterministicKeys(t *testing.T) {
	secret := "a-secret-key-base-of-enough-length"
	salt := "signed token"

	first, err := NewKeyGenerator().Generate(secret, salt, KeyOptions{})
	require.NoError(t, err)
	require.Len(t, first, DefaultKeyLength)

	// fresh generator, fresh cache: equality proves derivation is
	// deterministic rather than memoized
	second, err := NewKeyGenerator().Generate(secret, salt, KeyOptions{})
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestKeyGeneratorCachesDerivedKeys(t *testing.T) {
	gen := NewKeyGenerator()

	first, err := gen.Generate("a-secret-key-base-of-enough-length", "salt", KeyOptions{})
	require.NoError(t, err)

	second, err := gen.Generate("a-secret-key-base-of-enough-length", "salt", KeyOptions{})
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestKeyGeneratorVariesByParameters(t *testing.T) {
	secret := "a-secret-key-base-of-enough-length"
	gen := NewKeyGenerator()

	base, err := gen.Generate(secret, "salt", KeyOptions{})
	require.NoError(t, err)

	tests := []struct {
		name   string
		secret string
		salt   string
		opts   KeyOptions
	}{
		{
			name:   "different salt",
			secret: secret,
			salt:   "other salt",
		},
		{
			name:   "different secret",
			secret: "another-secret-key-base-long-enough",
			salt:   "salt",
		},
		{
			name:   "different digest",
			secret: secret,
			salt:   "salt",
			opts:   KeyOptions{Digest: DigestSHA512},
		},
		{
			name:   "different iterations",
			secret: secret,
			salt:   "salt",
			opts:   KeyOptions{Iterations: 2000},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := gen.Generate(tt.secret, tt.salt, tt.opts)
			require.NoError(t, err)
			assert.NotEqual(t, base, key)
		})
	}
}

func TestKeyGeneratorHonorsLength(t *testing.T) {
	gen := NewKeyGenerator()

	key, err := gen.Generate("a-secret-key-base-of-enough-length", "salt", KeyOptions{Length: 64})
	require.NoError(t, err)
	assert.Len(t, key, 64)

	// 20 bytes is the floor
	key, err = gen.Generate("a-secret-key-base-of-enough-length", "salt", KeyOptions{Length: 20})
	require.NoError(t, err)
	assert.Len(t, key, 20)
}

func TestKeyGeneratorRejectsInvalidOptions(t *testing.T) {
	tests := []struct {
		name     string
		opts     KeyOptions
		expected error
	}{
		{
			name:     "negative iterations",
			opts:     KeyOptions{Iterations: -1},
			expected: ErrInvalidKeyIterations,
		},
		{
			name:     "negative length",
			opts:     KeyOptions{Length: -1},
			expected: ErrInvalidKeyLength,
		},
		{
			name:     "length below minimum",
			opts:     KeyOptions{Length: 19},
			expected: ErrInvalidKeyLength,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := NewKeyGenerator().Generate("a-secret-key-base-of-enough-length", "salt", tt.opts)
			assert.Nil(t, key)
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestKeyGeneratorRejectsUnknownDigest(t *testing.T) {
	key, err := NewKeyGenerator().Generate("a-secret-key-base-of-enough-length", "salt", KeyOptions{
		Digest: "md5",
	})
	require.Error(t, err)
	assert.Nil(t, key)

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, TextCodeUnsupportedDigest, richErr.TextCode)
	assert.Equal(t, "md5", richErr.Metadata["digest"])
}

func TestDigestForSupportedNames(t *testing.T) {
	for _, name := range []string{DigestSHA256, DigestSHA512} {
		t.Run(name, func(t *testing.T) {
			h, err := digestFor(name)
			require.NoError(t, err)
			require.NotNil(t, h)
			assert.NotZero(t, h().Size())
		})
	}
}
