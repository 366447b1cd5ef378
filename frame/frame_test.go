package frame_test

import (
	"encoding/hex"
	"strings"
	"testing"

	"daikin2mqtt/frame"

	"github.com/epiclabs-io/ut"
)

// Broadcast captured from a real FCU, used as a regression fixture.
const capturedFrame = "{600194657C39000000001515000406000507280000012C01C80085EEEE003030304F53}"

func TestLRC(tx *testing.T) {
	t := ut.BeginTest(tx, false)
	defer t.FinishTest()

	t.Equals(byte(0), frame.LRC(nil))
	t.Equals(byte(0), frame.LRC([]byte{}))
	t.Equals(byte(0xFF), frame.LRC([]byte{0x01}))
	t.Equals(byte(0x00), frame.LRC([]byte{0x80, 0x80}))
	t.Equals(byte(0xFE), frame.LRC([]byte{0xFF, 0x01, 0x02}))

	// checksum depends on the payload only, never on itself
	payload := []byte{0x60, 0x01, 0x94, 0x65, 0x7C, 0x39}
	sum := frame.LRC(payload)
	framed := append(append([]byte(nil), payload...), sum)
	t.Equals(sum, frame.LRC(framed[:len(framed)-1]))
}

func TestRoundTrip(tx *testing.T) {
	t := ut.BeginTest(tx, false)
	defer t.FinishTest()

	payloads := [][]byte{
		{0x00},
		{0xFF},
		{0x60, 0x01, 0x94, 0x65, 0x7C, 0x39, 0x00, 0x01},
		make([]byte, 64),
	}
	for _, payload := range payloads {
		text := frame.Encode(payload)
		t.Assert(strings.HasPrefix(text, "{"), "encoded text should start with {")
		t.Assert(strings.HasSuffix(text, "}"), "encoded text should end with }")
		t.Equals(strings.ToUpper(text), text)

		f, err := frame.Decode(text)
		t.Ok(err)
		t.Equals(payload, f.Payload)
		t.Equals(frame.LRC(payload), f.Checksum)
	}
}

func TestDecodeCapturedFrame(tx *testing.T) {
	t := ut.BeginTest(tx, false)
	defer t.FinishTest()

	f, err := frame.Decode(capturedFrame)
	t.Ok(err)
	t.Equals(34, len(f.Payload))
	t.Equals(byte(0x53), f.Checksum)
}

func TestDecodeFramingErrors(tx *testing.T) {
	t := ut.BeginTest(tx, false)
	defer t.FinishTest()

	bad := []string{
		"",
		"{",
		"}",
		"{}",
		"{anything",
		"600194657C}",
		"600194657C",
		"{ABC}",     // odd hex length
		"{12345}",   // odd hex length
		"{12GZ}",    // not hexadecimal
		"{41}",      // checksum byte alone, no payload
		"{0x1234}",  // 0x prefix is not wire format
		"[600123]",  // wrong markers
	}
	for _, text := range bad {
		_, err := frame.Decode(text)
		t.MustFailWith(err, frame.ErrFraming)
	}
}

func TestDecodeChecksumErrors(tx *testing.T) {
	t := ut.BeginTest(tx, false)
	defer t.FinishTest()

	_, err := frame.Decode("{0000}") // LRC of 0x00 is 0x00, not tripped
	t.Ok(err)

	_, err = frame.Decode("{0001}")
	t.MustFailWith(err, frame.ErrChecksum)

	// flipping any single payload bit of a valid frame must trip the LRC
	payload := []byte{0x60, 0x01, 0x94, 0x65, 0x7C, 0x39, 0x15, 0x28}
	text := frame.Encode(payload)
	raw, err := hex.DecodeString(text[1 : len(text)-1])
	t.Ok(err)
	for i := 0; i < len(payload); i++ {
		for bit := uint(0); bit < 8; bit++ {
			corrupt := append([]byte(nil), raw...)
			corrupt[i] ^= 1 << bit
			_, err := frame.Decode("{" + strings.ToUpper(hex.EncodeToString(corrupt)) + "}")
			t.MustFailWith(err, frame.ErrChecksum)
		}
	}
}

func TestDecodeAcceptsLowercaseHex(tx *testing.T) {
	t := ut.BeginTest(tx, false)
	defer t.FinishTest()

	f, err := frame.Decode(strings.ToLower(capturedFrame))
	t.Ok(err)
	t.Equals(byte(0x53), f.Checksum)
}
