package fcu

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidTargetState = errors.New("Invalid target state")

// Field identifies one climate field of the protocol.
type Field int

const (
	FieldPower Field = iota
	FieldMode
	FieldFanSpeed
	FieldSwing
	FieldTargetTemp
	FieldRoomTemp
)

func (f Field) String() string {
	switch f {
	case FieldPower:
		return "power"
	case FieldMode:
		return "mode"
	case FieldFanSpeed:
		return "fanSpeed"
	case FieldSwing:
		return "swing"
	case FieldTargetTemp:
		return "targetTemp"
	case FieldRoomTemp:
		return "roomTemp"
	}
	return "unknown"
}

// UnknownValue records a decodable byte that falls outside a field's
// enumerated domain. The raw value is preserved, never coerced.
type UnknownValue struct {
	Field Field
	Raw   byte
}

func (u UnknownValue) String() string {
	return fmt.Sprintf("unknown %s value 0x%02X", u.Field, u.Raw)
}

// State holds the climate state of one FCU. Nil fields are absent, so the
// same type carries both full snapshots and partial deltas.
type State struct {
	Power      *bool
	Mode       *Mode
	FanSpeed   *FanSpeed
	Swing      *SwingMode
	TargetTemp *float64 // whole degrees Celsius, 16..30
	RoomTemp   *float64 // measured, read only
}

func boolPtr(v bool) *bool            { return &v }
func modePtr(v Mode) *Mode            { return &v }
func fanPtr(v FanSpeed) *FanSpeed     { return &v }
func swingPtr(v SwingMode) *SwingMode { return &v }
func tempPtr(v float64) *float64      { return &v }

// Merge returns a copy of s with every field present in delta overlaid.
func (s State) Merge(delta *State) State {
	if delta == nil {
		return s
	}
	if delta.Power != nil {
		s.Power = boolPtr(*delta.Power)
	}
	if delta.Mode != nil {
		s.Mode = modePtr(*delta.Mode)
	}
	if delta.FanSpeed != nil {
		s.FanSpeed = fanPtr(*delta.FanSpeed)
	}
	if delta.Swing != nil {
		s.Swing = swingPtr(*delta.Swing)
	}
	if delta.TargetTemp != nil {
		s.TargetTemp = tempPtr(*delta.TargetTemp)
	}
	if delta.RoomTemp != nil {
		s.RoomTemp = tempPtr(*delta.RoomTemp)
	}
	return s
}

// Complete reports whether every settable field plus the room temperature
// is present.
func (s *State) Complete() bool {
	return s.Power != nil && s.Mode != nil && s.FanSpeed != nil &&
		s.Swing != nil && s.TargetTemp != nil && s.RoomTemp != nil
}

// Validate checks the settable fields against the protocol's enumerated
// domains and the target temperature range. Room temperature is measured
// by the device and is not validated here.
func (s *State) Validate() error {
	if s.Power == nil || s.Mode == nil || s.FanSpeed == nil || s.Swing == nil || s.TargetTemp == nil {
		return fmt.Errorf("%w: incomplete state", ErrInvalidTargetState)
	}
	if !Modes.ExistsInverse(*s.Mode) {
		return fmt.Errorf("%w: bad mode 0x%02X", ErrInvalidTargetState, byte(*s.Mode))
	}
	if !FanSpeeds.ExistsInverse(*s.FanSpeed) {
		return fmt.Errorf("%w: bad fan speed 0x%02X", ErrInvalidTargetState, byte(*s.FanSpeed))
	}
	if !SwingModes.ExistsInverse(*s.Swing) {
		return fmt.Errorf("%w: bad swing mode 0x%02X", ErrInvalidTargetState, byte(*s.Swing))
	}
	t := *s.TargetTemp
	if t != math.Trunc(t) {
		return fmt.Errorf("%w: fractional target temperature %g", ErrInvalidTargetState, t)
	}
	if t < MIN_TARGET_TEMP || t > MAX_TARGET_TEMP {
		return fmt.Errorf("%w: target temperature %g out of range [%d,%d]",
			ErrInvalidTargetState, t, MIN_TARGET_TEMP, MAX_TARGET_TEMP)
	}
	return nil
}

// ConfirmedBy reports whether every field requested in the delta s now
// matches the reported state. A requested SWING_OFF is confirmed by any
// fixed vane position, since it is written as one (see swingWireValue).
func (s *State) ConfirmedBy(reported *State) bool {
	if s.Power != nil && (reported.Power == nil || *reported.Power != *s.Power) {
		return false
	}
	if s.Mode != nil && (reported.Mode == nil || *reported.Mode != *s.Mode) {
		return false
	}
	if s.FanSpeed != nil && (reported.FanSpeed == nil || *reported.FanSpeed != *s.FanSpeed) {
		return false
	}
	if s.Swing != nil {
		if reported.Swing == nil {
			return false
		}
		got := *reported.Swing
		if *s.Swing == SWING_OFF {
			if got == SWING_AUTO {
				return false
			}
		} else if got != *s.Swing {
			return false
		}
	}
	if s.TargetTemp != nil && (reported.TargetTemp == nil || *reported.TargetTemp != *s.TargetTemp) {
		return false
	}
	return true
}

// HvacMode folds power and mode into the single mode string HA expects.
func (s *State) HvacMode() string {
	if s.Power == nil || !*s.Power {
		return HVAC_MODE_OFF
	}
	if s.Mode == nil {
		return "unknown"
	}
	return Mode2Str(*s.Mode)
}
