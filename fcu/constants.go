package fcu

import (
	"daikin2mqtt/bimap"
)

// Register numbers inside the frame data section. Register N sits at byte
// offset N-startReg; commands address the same numbers.
const REG_POWER = 2
const REG_FAN_SPEED = 4
const REG_TARGET_TEMP = 5
const REG_SWING = 7
const REG_MODE = 8
const REG_ROOM_TEMP = 9 // two bytes, little endian, tenths of a degree

const FIRST_REGISTER = 0
const TOTAL_REGISTERS = 21

// Payload header layout, before the data section.
const OFF_MAC = 0
const OFF_FUNCTION = 8
const OFF_START_REG = 9
const OFF_REG_COUNT = 10
const OFF_BYTE_COUNT = 11 // two bytes, little endian
const HEADER_SIZE = 13

const FUNCTION_REPORT = 0x00
const FUNCTION_WRITE = 0x01

const MIN_TARGET_TEMP = 16
const MAX_TARGET_TEMP = 30

type Mode byte

const MODE_FAN Mode = 0x00
const MODE_COOL Mode = 0x01
const MODE_DRY Mode = 0x02

type FanSpeed byte

const FAN_3 FanSpeed = 0x03
const FAN_4 FanSpeed = 0x04
const FAN_5 FanSpeed = 0x05
const FAN_6 FanSpeed = 0x06
const FAN_7 FanSpeed = 0x07
const FAN_AUTO FanSpeed = 0x0A

type SwingMode byte

const SWING_OFF SwingMode = 0xF0 // not on the wire, see swingWireValue
const SWING_1 SwingMode = 0x01
const SWING_2 SwingMode = 0x02
const SWING_3 SwingMode = 0x03
const SWING_4 SwingMode = 0x04
const SWING_5 SwingMode = 0x05
const SWING_AUTO SwingMode = 0x00 // "sweep on"

const HVAC_MODE_OFF = "off"
const HVAC_MODE_COOL = "cool"
const HVAC_MODE_FAN_ONLY = "fan_only"
const HVAC_MODE_DRY = "dry"

// Modes maps HA hvac mode strings to wire mode values. HVAC_MODE_OFF is
// absent on purpose: off is the power register, not a mode.
var Modes = bimap.New(map[interface{}]interface{}{
	HVAC_MODE_FAN_ONLY: MODE_FAN,
	HVAC_MODE_COOL:     MODE_COOL,
	HVAC_MODE_DRY:      MODE_DRY,
})

var FanSpeeds = bimap.New(map[interface{}]interface{}{
	"3":    FAN_3,
	"4":    FAN_4,
	"5":    FAN_5,
	"6":    FAN_6,
	"7":    FAN_7,
	"AUTO": FAN_AUTO,
})

var SwingModes = bimap.New(map[interface{}]interface{}{
	"OFF":  SWING_OFF,
	"1":    SWING_1,
	"2":    SWING_2,
	"3":    SWING_3,
	"4":    SWING_4,
	"5":    SWING_5,
	"AUTO": SWING_AUTO,
})

// Some firmware revisions report 0xFF for "auto" and 0x08 for an active
// sweep; both collapse onto the canonical values above when decoding.
var fanSpeedAliases = map[byte]FanSpeed{
	0xFF: FAN_AUTO,
}

var swingAliases = map[byte]SwingMode{
	0x08: SWING_AUTO,
	0xFF: SWING_AUTO,
}

// swingWireValue returns the byte written for a requested swing mode.
// SWING_OFF parks the vane at the lowest position since the FCU has no
// dedicated sweep-off value.
func swingWireValue(s SwingMode) byte {
	if s == SWING_OFF {
		return byte(SWING_1)
	}
	return byte(s)
}

func init() {
	Modes.MakeImmutable()
	FanSpeeds.MakeImmutable()
	SwingModes.MakeImmutable()
}

func Mode2Str(m Mode) string {
	if s, ok := Modes.GetInverse(m); ok {
		return s.(string)
	}
	return "unknown"
}

func FanSpeed2Str(f FanSpeed) string {
	if s, ok := FanSpeeds.GetInverse(f); ok {
		return s.(string)
	}
	return "unknown"
}

func SwingMode2Str(s SwingMode) string {
	if str, ok := SwingModes.GetInverse(s); ok {
		return str.(string)
	}
	return "unknown"
}
