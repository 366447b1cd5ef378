package fcu_test

import (
	"testing"
	"time"

	"daikin2mqtt/fcu"
	"daikin2mqtt/frame"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestController(clock *fakeClock) (*fcu.Controller, *fcu.Mapper) {
	m := fcu.NewMapper(deviceMAC)
	c := fcu.NewController(&fcu.ControllerConfig{
		Mapper:         m,
		PendingTimeout: 10 * time.Second,
		Now:            clock.Now,
	})
	return c, m
}

func parseReport(t *testing.T, m *fcu.Mapper, payload []byte, kind fcu.FrameKind) *fcu.Report {
	r, err := m.Parse(payload, kind)
	require.NoError(t, err)
	return r
}

// Full cycle: baseline broadcast, temperature request, confirming
// broadcast.
func TestControllerRequestConfirmCycle(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	c, m := newTestController(clock)

	_, phase := c.State()
	require.Equal(t, fcu.SyncUnknown, phase)

	// no baseline yet: nothing to overlay a delta onto
	_, err := c.RequestChange(&fcu.State{TargetTemp: tempPtr(20)})
	require.Equal(t, fcu.ErrNoBaseline, err)

	// power on, cool, fan 5, swing auto, target 22, room 24.0
	baseline := reportPayload(deviceMAC, 0x01, 0x05, 44, 0x00, 0x01, 240)
	require.True(t, c.Apply(parseReport(t, m, baseline, fcu.KindBroadcast)))

	state, phase := c.State()
	require.Equal(t, fcu.SyncSynced, phase)
	require.Equal(t, true, *state.Power)
	require.Equal(t, fcu.MODE_COOL, *state.Mode)
	require.Equal(t, fcu.FAN_5, *state.FanSpeed)
	require.Equal(t, fcu.SWING_AUTO, *state.Swing)
	require.Equal(t, 22.0, *state.TargetTemp)
	require.Equal(t, 24.0, *state.RoomTemp)

	text, err := c.RequestChange(&fcu.State{TargetTemp: tempPtr(20)})
	require.NoError(t, err)
	_, phase = c.State()
	require.Equal(t, fcu.SyncPending, phase)

	// the emitted command is the prior state with the new target overlaid
	f, err := frame.Decode(text)
	require.NoError(t, err)
	d := f.Payload[fcu.HEADER_SIZE:]
	require.Equal(t, byte(0x01), d[fcu.REG_POWER])
	require.Equal(t, byte(fcu.FAN_5), d[fcu.REG_FAN_SPEED])
	require.Equal(t, byte(40), d[fcu.REG_TARGET_TEMP])
	require.Equal(t, byte(fcu.MODE_COOL), d[fcu.REG_MODE])

	// a report that does not confirm the request keeps the controller pending
	require.True(t, c.Apply(parseReport(t, m, baseline, fcu.KindBroadcast)))
	_, phase = c.State()
	require.Equal(t, fcu.SyncPending, phase)

	// the confirming broadcast closes the cycle
	confirm := reportPayload(deviceMAC, 0x01, 0x05, 40, 0x00, 0x01, 240)
	require.True(t, c.Apply(parseReport(t, m, confirm, fcu.KindBroadcast)))
	state, phase = c.State()
	require.Equal(t, fcu.SyncSynced, phase)
	require.Equal(t, 20.0, *state.TargetTemp)
}

func TestControllerPendingTimeout(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	c, m := newTestController(clock)

	baseline := reportPayload(deviceMAC, 0x01, 0x05, 44, 0x00, 0x01, 240)
	require.True(t, c.Apply(parseReport(t, m, baseline, fcu.KindBroadcast)))

	_, err := c.RequestChange(&fcu.State{TargetTemp: tempPtr(25)})
	require.NoError(t, err)

	require.False(t, c.Tick())
	clock.advance(9 * time.Second)
	require.False(t, c.Tick())
	_, phase := c.State()
	require.Equal(t, fcu.SyncPending, phase)

	// past the deadline the request is abandoned, not retried
	clock.advance(2 * time.Second)
	require.True(t, c.Tick())
	state, phase := c.State()
	require.Equal(t, fcu.SyncSynced, phase)
	require.Equal(t, 22.0, *state.TargetTemp) // still the last reported value

	require.False(t, c.Tick())
}

func TestControllerRequestSupersedesPending(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	c, m := newTestController(clock)

	baseline := reportPayload(deviceMAC, 0x01, 0x05, 44, 0x00, 0x01, 240)
	require.True(t, c.Apply(parseReport(t, m, baseline, fcu.KindBroadcast)))

	_, err := c.RequestChange(&fcu.State{TargetTemp: tempPtr(25)})
	require.NoError(t, err)
	clock.advance(8 * time.Second)
	_, err = c.RequestChange(&fcu.State{TargetTemp: tempPtr(18)})
	require.NoError(t, err)

	// the first request's deadline no longer applies
	clock.advance(4 * time.Second)
	require.False(t, c.Tick())

	// a report matching the superseded request does not confirm the new one
	old := reportPayload(deviceMAC, 0x01, 0x05, 50, 0x00, 0x01, 240)
	require.True(t, c.Apply(parseReport(t, m, old, fcu.KindBroadcast)))
	_, phase := c.State()
	require.Equal(t, fcu.SyncPending, phase)

	confirm := reportPayload(deviceMAC, 0x01, 0x05, 36, 0x00, 0x01, 240)
	require.True(t, c.Apply(parseReport(t, m, confirm, fcu.KindBroadcast)))
	_, phase = c.State()
	require.Equal(t, fcu.SyncSynced, phase)
}

func TestControllerResponseMerge(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	c, m := newTestController(clock)

	baseline := reportPayload(deviceMAC, 0x01, 0x05, 44, 0x00, 0x01, 240)
	require.True(t, c.Apply(parseReport(t, m, baseline, fcu.KindBroadcast)))

	// an acknowledgement-only response carrying just the target register
	ack := windowPayload(deviceMAC, fcu.REG_TARGET_TEMP, []byte{52})
	require.True(t, c.Apply(parseReport(t, m, ack, fcu.KindResponse)))

	state, phase := c.State()
	require.Equal(t, fcu.SyncSynced, phase)
	require.Equal(t, 26.0, *state.TargetTemp)
	// untouched fields keep their last known values
	require.Equal(t, true, *state.Power)
	require.Equal(t, fcu.FAN_5, *state.FanSpeed)
	require.Equal(t, 24.0, *state.RoomTemp)
}

func TestControllerDiscardsUnknownSafetyFields(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	c, m := newTestController(clock)

	baseline := reportPayload(deviceMAC, 0x01, 0x05, 44, 0x00, 0x01, 240)
	require.True(t, c.Apply(parseReport(t, m, baseline, fcu.KindBroadcast)))

	// an unreadable power byte poisons the whole frame
	badPower := reportPayload(deviceMAC, 0x07, 0x05, 36, 0x00, 0x01, 240)
	require.False(t, c.Apply(parseReport(t, m, badPower, fcu.KindBroadcast)))
	state, _ := c.State()
	require.Equal(t, 22.0, *state.TargetTemp)

	badMode := reportPayload(deviceMAC, 0x01, 0x05, 36, 0x00, 0x0E, 240)
	require.False(t, c.Apply(parseReport(t, m, badMode, fcu.KindBroadcast)))
	state, _ = c.State()
	require.Equal(t, 22.0, *state.TargetTemp)

	// an unknown fan byte only loses that field, the rest is applied
	badFan := reportPayload(deviceMAC, 0x01, 0x42, 36, 0x00, 0x01, 240)
	require.True(t, c.Apply(parseReport(t, m, badFan, fcu.KindBroadcast)))
	state, _ = c.State()
	require.Equal(t, 18.0, *state.TargetTemp)
	require.Equal(t, fcu.FAN_5, *state.FanSpeed) // last known value kept
}

func TestControllerSwingOffConfirmation(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	c, m := newTestController(clock)

	baseline := reportPayload(deviceMAC, 0x01, 0x05, 44, 0x00, 0x01, 240)
	require.True(t, c.Apply(parseReport(t, m, baseline, fcu.KindBroadcast)))

	text, err := c.RequestChange(&fcu.State{Swing: swingPtr(fcu.SWING_OFF)})
	require.NoError(t, err)
	f, err := frame.Decode(text)
	require.NoError(t, err)
	require.Equal(t, byte(fcu.SWING_1), f.Payload[fcu.HEADER_SIZE+fcu.REG_SWING])

	// the FCU confirms with the parked position it was actually given
	confirm := reportPayload(deviceMAC, 0x01, 0x05, 44, 0x01, 0x01, 240)
	require.True(t, c.Apply(parseReport(t, m, confirm, fcu.KindBroadcast)))
	_, phase := c.State()
	require.Equal(t, fcu.SyncSynced, phase)
}
