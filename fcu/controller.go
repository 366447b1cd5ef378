package fcu

import (
	"errors"
	"log"
	"sync"
	"time"

	"daikin2mqtt/frame"
)

var ErrNoBaseline = errors.New("No device state received yet")

// SyncState is the controller's reconciliation phase.
type SyncState int

const (
	// SyncUnknown means no report has been accepted yet.
	SyncUnknown SyncState = iota
	// SyncSynced means the held state equals the last confirmed report.
	SyncSynced
	// SyncPending means a command was sent and not yet confirmed.
	SyncPending
)

func (s SyncState) String() string {
	switch s {
	case SyncSynced:
		return "synced"
	case SyncPending:
		return "pending"
	}
	return "unknown"
}

// ControllerConfig configures a Controller for one device.
type ControllerConfig struct {
	Mapper         *Mapper
	PendingTimeout time.Duration
	Now            func() time.Time // clock, defaults to time.Now
}

// Controller owns the authoritative climate state of a single FCU. It
// applies accepted reports, builds command frames for requested changes
// and reconciles optimistic pending requests against confirmed reports.
// All methods are safe for concurrent use; the mutex serializes every
// state transition.
type Controller struct {
	ControllerConfig
	lock     sync.Mutex
	state    State
	phase    SyncState
	pending  *State
	deadline time.Time
}

func NewController(config *ControllerConfig) *Controller {
	c := &Controller{
		ControllerConfig: *config,
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// State returns a copy of the held climate state and the current phase.
// The state is only meaningful once the phase is no longer SyncUnknown.
func (c *Controller) State() (State, SyncState) {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.state, c.phase
}

// Apply folds one parsed report into the held state. Broadcast reports
// replace the state wholesale; response reports merge field by field.
// Reports with an unreadable power or mode byte are discarded entirely;
// other unknown fields only lose that one field. Returns whether the
// report was accepted.
func (c *Controller) Apply(r *Report) bool {
	for _, u := range r.Unknown {
		if u.Field == FieldPower || u.Field == FieldMode {
			log.Printf("Discarding %s frame: %s\n", kindName(r.Kind), u)
			return false
		}
		log.Printf("Ignoring %s\n", u)
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	if r.Kind == KindBroadcast && len(r.Unknown) == 0 {
		c.state = r.State
	} else {
		c.state = c.state.Merge(&r.State)
	}

	switch c.phase {
	case SyncUnknown:
		c.phase = SyncSynced
	case SyncPending:
		if c.pending.ConfirmedBy(&c.state) {
			c.pending = nil
			c.phase = SyncSynced
		}
	}
	return true
}

// RequestChange validates the delta against the last known state, returns
// the wire text of the command frame to transmit and moves the controller
// to SyncPending. While no baseline state exists the request is rejected
// with ErrNoBaseline; an invalid merged state is rejected with
// ErrInvalidTargetState and nothing is emitted. A new request supersedes
// any pending one.
func (c *Controller) RequestChange(delta *State) (string, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.phase == SyncUnknown {
		return "", ErrNoBaseline
	}
	payload, err := c.Mapper.Build(c.state, delta)
	if err != nil {
		return "", err
	}
	c.pending = delta
	c.phase = SyncPending
	c.deadline = c.Now().Add(c.PendingTimeout)
	return frame.Encode(payload), nil
}

// Tick drives the pending-timeout transition from the hosting runtime's
// scheduler. Returns whether a timeout fired.
func (c *Controller) Tick() bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.phase != SyncPending || c.Now().Before(c.deadline) {
		return false
	}
	c.timeout()
	return true
}

// timeout abandons the pending request and adopts the latest report as
// the synced state. Retrying is the caller's concern, not ours.
// Callers must hold the lock.
func (c *Controller) timeout() {
	log.Printf("Pending request timed out, keeping last reported state\n")
	c.pending = nil
	c.phase = SyncSynced
}

func kindName(k FrameKind) string {
	if k == KindBroadcast {
		return "broadcast"
	}
	return "response"
}
