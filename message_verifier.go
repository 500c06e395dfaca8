package tokens

import (
	"crypto/hmac"
	"encoding/base64"
	"hash"
	"strings"
)

// signMessage wraps payload bytes into "base64url(payload).base64url(mac)".
func signMessage(payload, key []byte, digest func() hash.Hash) string {
	mac := hmac.New(digest, key)
	mac.Write(payload)
	signature := mac.Sum(nil)

	return base64.RawURLEncoding.EncodeToString(payload) +
		"." +
		base64.RawURLEncoding.EncodeToString(signature)
}

// verifyMessage checks the signature in constant time and returns the
// embedded payload bytes. Any structural defect reports ErrTokenInvalid,
// the caller cannot distinguish a bad signature from a garbled token.
func verifyMessage(token string, key []byte, digest func() hash.Hash) ([]byte, error) {
	encodedPayload, encodedMAC, found := strings.Cut(token, ".")
	if !found {
		return nil, ErrTokenInvalid
	}

	payload, err := base64.RawURLEncoding.DecodeString(encodedPayload)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	signature, err := base64.RawURLEncoding.DecodeString(encodedMAC)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	mac := hmac.New(digest, key)
	mac.Write(payload)
	expectedMAC := mac.Sum(nil)

	if !hmac.Equal(signature, expectedMAC) {
		return nil, ErrTokenInvalid
	}

	return payload, nil
}
