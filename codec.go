package tokens

import (
	goerrors "github.com/goliatone/go-errors"
	"github.com/vmihailenco/msgpack/v5"
)

// payloadVersion tags the wire format. Decode rejects any other value.
const payloadVersion = 0x01

// tokenPayload is the envelope that gets signed. SignedAt is Unix
// milliseconds.
type tokenPayload struct {
	Data     any   `msgpack:"d"`
	SignedAt int64 `msgpack:"t"`
}

func encodePayload(p tokenPayload) ([]byte, error) {
	body, err := msgpack.Marshal(p)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode token payload")
	}

	buf := make([]byte, 0, len(body)+1)
	buf = append(buf, payloadVersion)
	buf = append(buf, body...)

	return buf, nil
}

func decodePayload(raw []byte) (tokenPayload, error) {
	var p tokenPayload

	if len(raw) == 0 {
		return p, ErrTokenInvalid
	}

	if raw[0] != payloadVersion {
		if clone := ErrTokenInvalid.Clone(); clone != nil {
			return p, clone.WithMetadata(map[string]any{"version": raw[0]})
		}
		return p, ErrTokenInvalid
	}

	if err := msgpack.Unmarshal(raw[1:], &p); err != nil {
		if clone := ErrTokenInvalid.Clone(); clone != nil {
			clone.Source = err
			return p, clone
		}
		return p, ErrTokenInvalid
	}

	return p, nil
}
