package tokens

import (
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// UserUUID parses the user id carried by the claims as a UUID.
func UserUUID(claims Claims) (uuid.UUID, error) {
	if claims == nil {
		return uuid.Nil, ErrUnableToDecodeSession
	}

	id, err := uuid.Parse(claims.UserID())
	if err != nil {
		return uuid.Nil, goerrors.Wrap(err, goerrors.CategoryValidation, "user id is not a UUID")
	}

	return id, nil
}

// HasUserUUID reports whether UserUUID will succeed.
func HasUserUUID(claims Claims) bool {
	if claims == nil {
		return false
	}
	_, err := UserUUID(claims)
	return err == nil
}
