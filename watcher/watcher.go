// Package watcher keeps a cache of a range of FCU registers, fed from
// decoded frame data sections. It fires events when a watched register
// changes value.
package watcher

import (
	"errors"
	"sync"
)

// Config contains the configuration parameters for a new Watcher instance
type Config struct {
	Start    int // first register of the watched range
	Quantity int // number of registers to watch
}

// Watcher represents a cache of device registers
type Watcher struct {
	Config
	state     []byte            // current view of the register values
	known     []bool            // whether each register has been seen yet
	callbacks map[int]func(reg int)
	lock      sync.RWMutex
}

var ErrRegisterOutOfRange = errors.New("Register address out of range")
var ErrUninitialized = errors.New("Register value not received yet")
var ErrWindowOutOfRange = errors.New("Register window out of range")

// New returns a new Watcher instance
func New(config *Config) *Watcher {
	return &Watcher{
		Config:    *config,
		state:     make([]byte, config.Quantity),
		known:     make([]bool, config.Quantity),
		callbacks: make(map[int]func(reg int)),
	}
}

// RegisterCallback registers a callback fired when the given register changes value
func (w *Watcher) RegisterCallback(reg int, callback func(reg int)) {
	w.callbacks[reg] = callback
}

// Apply overlays a window of register values taken from an accepted frame,
// firing callbacks for every watched register whose value changed. The
// first value ever seen for a register always counts as a change.
func (w *Watcher) Apply(start int, values []byte) error {
	w.lock.Lock()
	if start < w.Start || start+len(values) > w.Start+w.Quantity {
		w.lock.Unlock()
		return ErrWindowOutOfRange
	}
	var changed []int
	for n, value := range values {
		reg := start + n
		i := reg - w.Start
		if !w.known[i] || w.state[i] != value {
			w.state[i] = value
			w.known[i] = true
			if w.callbacks[reg] != nil {
				changed = append(changed, reg)
			}
		}
	}
	w.lock.Unlock()
	for _, reg := range changed {
		w.callbacks[reg](reg)
	}
	return nil
}

// ReadRegister reads one register from the cache
func (w *Watcher) ReadRegister(reg int) (byte, error) {
	w.lock.RLock()
	defer w.lock.RUnlock()
	if reg < w.Start || reg >= w.Start+w.Quantity {
		return 0, ErrRegisterOutOfRange
	}
	if !w.known[reg-w.Start] {
		return 0, ErrUninitialized
	}
	return w.state[reg-w.Start], nil
}

// TriggerCallbacks calls all callbacks whose register already holds a value
func (w *Watcher) TriggerCallbacks() {
	w.lock.RLock()
	var regs []int
	for reg := range w.callbacks {
		if reg >= w.Start && reg < w.Start+w.Quantity && w.known[reg-w.Start] {
			regs = append(regs, reg)
		}
	}
	w.lock.RUnlock()
	for _, reg := range regs {
		w.callbacks[reg](reg)
	}
}
