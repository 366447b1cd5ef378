package fcu

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strings"
)

var ErrAddressMismatch = errors.New("Frame is for another device")
var ErrTruncated = errors.New("Frame payload truncated")
var ErrBadMAC = errors.New("Invalid device MAC")

// FrameKind tells the mapper which topic a payload arrived on.
type FrameKind int

const (
	// KindBroadcast is the unsolicited periodic state report. It must
	// carry every mapped field and replaces the whole state.
	KindBroadcast FrameKind = iota
	// KindResponse is a reply to a query/command and may carry any
	// register sub-window, yielding a partial state.
	KindResponse
)

// fieldSpec pins one climate field to its place in the register file.
// The table is protocol data: a future revision changes rows, not code.
type fieldSpec struct {
	field    Field
	register int
	width    int
}

var fieldLayout = []fieldSpec{
	{FieldPower, REG_POWER, 1},
	{FieldFanSpeed, REG_FAN_SPEED, 1},
	{FieldTargetTemp, REG_TARGET_TEMP, 1},
	{FieldSwing, REG_SWING, 1},
	{FieldMode, REG_MODE, 1},
	{FieldRoomTemp, REG_ROOM_TEMP, 2},
}

// Window is the register range a payload's data section covers.
type Window struct {
	Start int
	Data  []byte
}

func (w *Window) end() int { return w.Start + len(w.Data) }

// register returns the raw bytes of one field if the window covers it
// fully.
func (w *Window) register(reg int, width int) ([]byte, bool) {
	if reg < w.Start || reg+width > w.end() {
		return nil, false
	}
	return w.Data[reg-w.Start : reg-w.Start+width], true
}

// Report is the outcome of parsing one accepted payload.
type Report struct {
	Kind    FrameKind
	State   State          // fields present in the payload's window
	Unknown []UnknownValue // decodable bytes outside their enumerated domain
	Window  Window
}

// ParseMAC normalizes a textual device MAC (colons, dashes, case) into its
// six wire bytes.
func ParseMAC(s string) ([6]byte, error) {
	var mac [6]byte
	s = strings.ToUpper(strings.NewReplacer(":", "", "-", "").Replace(s))
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != 6 {
		return mac, ErrBadMAC
	}
	copy(mac[:], raw)
	return mac, nil
}

// Mapper translates validated payload bytes to and from climate state for
// a single device. It holds no state between calls.
type Mapper struct {
	mac [6]byte
}

func NewMapper(mac [6]byte) *Mapper {
	return &Mapper{mac: mac}
}

// Parse interprets a checksum-validated payload. Frames addressed to other
// devices return ErrAddressMismatch. Bytes outside a field's enumerated
// domain are reported in Report.Unknown with the raw value preserved; the
// policy for dropping them belongs to the controller.
func (m *Mapper) Parse(payload []byte, kind FrameKind) (*Report, error) {
	if len(payload) < HEADER_SIZE {
		return nil, ErrTruncated
	}
	for i := 0; i < 6; i++ {
		if payload[OFF_MAC+i] != m.mac[i] {
			return nil, ErrAddressMismatch
		}
	}
	byteCount := int(payload[OFF_BYTE_COUNT]) | int(payload[OFF_BYTE_COUNT+1])<<8
	if len(payload) != HEADER_SIZE+byteCount {
		return nil, ErrTruncated
	}
	r := &Report{
		Kind: kind,
		Window: Window{
			Start: int(payload[OFF_START_REG]),
			Data:  payload[HEADER_SIZE:],
		},
	}
	for _, spec := range fieldLayout {
		raw, ok := r.Window.register(spec.register, spec.width)
		if !ok {
			if kind == KindBroadcast {
				return nil, ErrTruncated
			}
			continue
		}
		m.decodeField(r, spec.field, raw)
	}
	return r, nil
}

func (m *Mapper) decodeField(r *Report, field Field, raw []byte) {
	switch field {
	case FieldPower:
		switch raw[0] {
		case 0x00:
			r.State.Power = boolPtr(false)
		case 0x01:
			r.State.Power = boolPtr(true)
		default:
			r.Unknown = append(r.Unknown, UnknownValue{field, raw[0]})
		}
	case FieldMode:
		mode := Mode(raw[0])
		if Modes.ExistsInverse(mode) {
			r.State.Mode = modePtr(mode)
		} else {
			r.Unknown = append(r.Unknown, UnknownValue{field, raw[0]})
		}
	case FieldFanSpeed:
		speed := FanSpeed(raw[0])
		if alias, ok := fanSpeedAliases[raw[0]]; ok {
			speed = alias
		}
		if FanSpeeds.ExistsInverse(speed) {
			r.State.FanSpeed = fanPtr(speed)
		} else {
			r.Unknown = append(r.Unknown, UnknownValue{field, raw[0]})
		}
	case FieldSwing:
		swing := SwingMode(raw[0])
		if alias, ok := swingAliases[raw[0]]; ok {
			swing = alias
		}
		if SwingModes.ExistsInverse(swing) {
			r.State.Swing = swingPtr(swing)
		} else {
			r.Unknown = append(r.Unknown, UnknownValue{field, raw[0]})
		}
	case FieldTargetTemp:
		// half-degree wire units
		r.State.TargetTemp = tempPtr(float64(raw[0]) / 2)
	case FieldRoomTemp:
		tenths := int(raw[0]) | int(raw[1])<<8
		r.State.RoomTemp = tempPtr(float64(tenths) / 10)
	}
}

// Build merges delta onto current, validates the result and serializes the
// full register image as a write command payload, ready for frame.Encode.
// Nothing is emitted if validation fails.
func (m *Mapper) Build(current State, delta *State) ([]byte, error) {
	merged := current.Merge(delta)
	if err := merged.Validate(); err != nil {
		return nil, err
	}

	payload := make([]byte, HEADER_SIZE+TOTAL_REGISTERS)
	copy(payload[OFF_MAC:], m.mac[:])
	payload[OFF_FUNCTION] = FUNCTION_WRITE
	payload[OFF_START_REG] = FIRST_REGISTER
	payload[OFF_REG_COUNT] = TOTAL_REGISTERS
	payload[OFF_BYTE_COUNT] = TOTAL_REGISTERS & 0xFF
	payload[OFF_BYTE_COUNT+1] = TOTAL_REGISTERS >> 8

	data := payload[HEADER_SIZE:]
	power := byte(0x00)
	if *merged.Power {
		power = 0x01
	}
	data[REG_POWER] = power
	data[REG_FAN_SPEED] = byte(*merged.FanSpeed)
	data[REG_TARGET_TEMP] = byte(math.Round(*merged.TargetTemp * 2))
	data[REG_SWING] = swingWireValue(*merged.Swing)
	data[REG_MODE] = byte(*merged.Mode)
	if merged.RoomTemp != nil {
		tenths := int(math.Round(*merged.RoomTemp * 10))
		data[REG_ROOM_TEMP] = byte(tenths & 0xFF)
		data[REG_ROOM_TEMP+1] = byte(tenths >> 8)
	}
	return payload, nil
}

// check the layout fits the write window at init time rather than per call
func init() {
	for _, spec := range fieldLayout {
		if spec.register < FIRST_REGISTER || spec.register+spec.width > FIRST_REGISTER+TOTAL_REGISTERS {
			panic(fmt.Sprintf("field %s outside register window", spec.field))
		}
	}
}
