// Package frame converts between the FCU wire text ({hex}) and validated
// byte buffers, applying the protocol's LRC checksum.
package frame

import (
	"encoding/hex"
	"errors"
	"strings"
)

var ErrFraming = errors.New("Malformed frame")
var ErrChecksum = errors.New("Frame LRC mismatch")

// Frame is a checksum-verified byte buffer extracted from wire text.
type Frame struct {
	Payload  []byte
	Checksum byte
}

// LRC computes the one-byte longitudinal redundancy check over data.
func LRC(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return -sum
}

// Decode strips the {} markers, hex-decodes the interior and verifies the
// trailing checksum byte. Marker or hex problems return ErrFraming; a bad
// checksum returns ErrChecksum.
func Decode(text string) (*Frame, error) {
	if len(text) < 2 || text[0] != '{' || text[len(text)-1] != '}' {
		return nil, ErrFraming
	}
	inner := text[1 : len(text)-1]
	if len(inner)%2 != 0 {
		return nil, ErrFraming
	}
	raw, err := hex.DecodeString(inner)
	if err != nil {
		return nil, ErrFraming
	}
	if len(raw) < 2 { // at least one payload byte plus the checksum
		return nil, ErrFraming
	}
	payload := raw[:len(raw)-1]
	checksum := raw[len(raw)-1]
	if LRC(payload) != checksum {
		return nil, ErrChecksum
	}
	return &Frame{
		Payload:  payload,
		Checksum: checksum,
	}, nil
}

// Encode appends the LRC to payload and wraps the uppercase hex text in {}.
func Encode(payload []byte) string {
	raw := make([]byte, 0, len(payload)+1)
	raw = append(raw, payload...)
	raw = append(raw, LRC(payload))
	return "{" + strings.ToUpper(hex.EncodeToString(raw)) + "}"
}
