// Package share encodes editor files into self-contained opaque strings
// that can be pasted back into any instance to reproduce the project.
//
// The payload is versioned JSON wrapped in URL-safe base64. Field names
// are single letters to keep shared links short.
package share

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/webpadhq/webpad/internal/shared/types"
)

// PayloadVersion is the current payload format version.
const PayloadVersion = 1

// ErrMalformed is returned when a string cannot be decoded as a share
// payload.
var ErrMalformed = errors.New("malformed share payload")

type payload struct {
	V int    `json:"v"`
	H string `json:"h"`
	C string `json:"c,omitempty"`
	J string `json:"j,omitempty"`
	T bool   `json:"t,omitempty"`
}

// Encode packs the files and the utility-CSS flag into an opaque string.
func Encode(files types.EditorFiles, useTailwind bool) (string, error) {
	data, err := json.Marshal(payload{
		V: PayloadVersion,
		H: files.Markup,
		C: files.Styles,
		J: files.Script,
		T: useTailwind,
	})
	if err != nil {
		return "", fmt.Errorf("encode share payload: %w", err)
	}
	return base64.URLEncoding.EncodeToString(data), nil
}

// Decode unpacks an opaque share string. Absent style and script fields
// decode as empty, the flag as false. Unknown versions and payloads
// without markup are rejected.
func Decode(encoded string) (types.EditorFiles, bool, error) {
	data, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return types.EditorFiles{}, false, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return types.EditorFiles{}, false, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if p.V != PayloadVersion {
		return types.EditorFiles{}, false, fmt.Errorf("%w: unsupported version %d", ErrMalformed, p.V)
	}
	if p.H == "" {
		return types.EditorFiles{}, false, fmt.Errorf("%w: missing markup", ErrMalformed)
	}

	return types.EditorFiles{
		Markup: p.H,
		Styles: p.C,
		Script: p.J,
	}, p.T, nil
}
