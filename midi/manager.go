package midi

import (
	"context"
	"fmt"
	"sync"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver

	"keystage/config"
	"keystage/debug"
)

// DeviceEvent is emitted when input ports connect/disconnect
type DeviceEvent struct {
	Type  DeviceEventType
	Input *Input
	ID    string
}

type DeviceEventType int

const (
	DeviceConnected DeviceEventType = iota
	DeviceDisconnected
)

// DeviceManager handles hot-plug detection of MIDI input ports. Every input
// port is treated as a keyboard; ports the config marks autoConnect=false
// are left alone, everything else connects.
type DeviceManager struct {
	inputs   map[string]*Input
	mu       sync.RWMutex
	events   chan DeviceEvent
	pollRate time.Duration
	status   string
	cfg      *config.Config
}

// NewDeviceManager creates a new device manager. A nil config connects
// every port.
func NewDeviceManager(cfg *config.Config) *DeviceManager {
	return &DeviceManager{
		inputs:   make(map[string]*Input),
		events:   make(chan DeviceEvent, 16),
		pollRate: time.Second,
		status:   "scanning",
		cfg:      cfg,
	}
}

// Events returns a channel of connect/disconnect events
func (dm *DeviceManager) Events() <-chan DeviceEvent {
	return dm.events
}

// Status is a short human-readable state line ("2 inputs", "no MIDI inputs").
// Hardware trouble never blocks pointer or key input, it only shows up here.
func (dm *DeviceManager) Status() string {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.status
}

// Run starts the polling loop (blocking - run in goroutine)
func (dm *DeviceManager) Run(ctx context.Context) {
	ticker := time.NewTicker(dm.pollRate)
	defer ticker.Stop()

	// Initial scan
	dm.scan()

	for {
		select {
		case <-ctx.Done():
			dm.closeAll()
			close(dm.events)
			return
		case <-ticker.C:
			dm.scan()
		}
	}
}

func (dm *DeviceManager) scan() {
	// Enumerate ports with a timeout (CoreMIDI can hang)
	ch := make(chan []drivers.In, 1)
	go func() {
		ch <- gomidi.GetInPorts()
	}()

	var inPorts []drivers.In
	select {
	case inPorts = <-ch:
	case <-time.After(3 * time.Second):
		dm.setStatus("MIDI driver not responding")
		return
	}

	seenIDs := make(map[string]bool)
	cfgDirty := false
	for i, inPort := range inPorts {
		id := inPort.String()
		seenIDs[id] = true

		allow, added := dm.allowPort(id)
		cfgDirty = cfgDirty || added
		if !allow {
			continue
		}

		dm.mu.RLock()
		_, exists := dm.inputs[id]
		dm.mu.RUnlock()
		if exists {
			continue
		}

		in, err := NewInput(id, inPorts[i])
		if err != nil {
			debug.Log("midi", "open %q failed: %v", id, err)
			continue
		}

		dm.mu.Lock()
		dm.inputs[id] = in
		dm.mu.Unlock()
		debug.Log("midi", "connected %q", id)

		dm.events <- DeviceEvent{Type: DeviceConnected, Input: in, ID: id}
	}

	// Check for disconnects
	dm.mu.Lock()
	var toRemove []string
	for id := range dm.inputs {
		if !seenIDs[id] {
			toRemove = append(toRemove, id)
		}
	}
	for _, id := range toRemove {
		dm.inputs[id].Close()
		delete(dm.inputs, id)
		debug.Log("midi", "disconnected %q", id)
		dm.events <- DeviceEvent{Type: DeviceDisconnected, ID: id}
	}
	n := len(dm.inputs)
	dm.mu.Unlock()

	if cfgDirty {
		if err := dm.cfg.Save(); err != nil {
			debug.Log("midi", "persist input prefs: %v", err)
		}
	}

	if n == 0 {
		dm.setStatus("no MIDI inputs")
	} else {
		dm.setStatus(fmt.Sprintf("%d input(s)", n))
	}
}

// allowPort consults the saved input preferences. A port seen for the first
// time is recorded with autoConnect=true so the user can disable it in the
// config later; added reports whether the config changed.
func (dm *DeviceManager) allowPort(id string) (allow, added bool) {
	if dm.cfg == nil {
		return true, false
	}
	if pref := dm.cfg.FindInput(id); pref != nil {
		return pref.AutoConnect, false
	}
	dm.cfg.AddInput(config.InputConfig{PortName: id, AutoConnect: true})
	return true, true
}

func (dm *DeviceManager) setStatus(s string) {
	dm.mu.Lock()
	dm.status = s
	dm.mu.Unlock()
}

func (dm *DeviceManager) closeAll() {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	for _, in := range dm.inputs {
		in.Close()
	}
	dm.inputs = make(map[string]*Input)
}
