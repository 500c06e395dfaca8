package tokens

import (
	goerrors "github.com/goliatone/go-errors"
	nanoid "github.com/matoous/go-nanoid/v2"
)

// storedTokenAlphabet is base62, which survives URLs and emails without
// escaping.
const storedTokenAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// StoredTokenLength is the length of generated lookup tokens
const StoredTokenLength = 32

// NewStoredToken generates the opaque random token persisted on a user
// record for confirmation and password reset lookups.
func NewStoredToken() (string, error) {
	token, err := nanoid.Generate(storedTokenAlphabet, StoredTokenLength)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate stored token")
	}

	return token, nil
}
