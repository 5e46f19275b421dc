package piano

import (
	"sync"

	"keystage/smf"
	"keystage/synth"
)

// Keyboard is the single arbiter for every input source: hardware MIDI,
// pointer gestures, the scheduled performer and synchronized-playback ghost
// notes all land here. It owns the active-note sets and fans each accepted
// transition out to the synth, the recorder and the animation driver.
//
// Membership is a set, not a counter: a second note-on for a held key is a
// no-op, and a release from any source fully releases the key even if another
// source still holds it. The per-source refcount alternative was considered
// and rejected, see DESIGN.md.
type Keyboard struct {
	mu      sync.Mutex
	pressed [smf.NumNotes]bool
	ghost   [smf.NumNotes]bool
	anim    [smf.NumNotes]keyAnim

	synth synth.Synth
	rec   *Recorder

	animRunning bool
	pointerNote int // -1 while the pointer is up

	// UpdateChan notifies the TUI that visual state changed.
	UpdateChan chan struct{}
}

// NewKeyboard creates a keyboard wired to the given sound collaborator.
func NewKeyboard(s synth.Synth) *Keyboard {
	return &Keyboard{
		synth:       s,
		rec:         NewRecorder(),
		pointerNote: -1,
		UpdateChan:  make(chan struct{}, 1),
	}
}

// Recorder returns the keyboard's event recorder.
func (k *Keyboard) Recorder() *Recorder { return k.rec }

// Press handles a note-on intent from any real input source. Velocity is
// normalized 0..1. Pressing an already-held note does not re-trigger.
func (k *Keyboard) Press(note uint8, velocity float64) {
	if int(note) >= smf.NumNotes {
		return
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	k.pressLocked(note, velocity)
}

// Release handles a note-off intent from any real input source. Releasing a
// note that is not held is a no-op.
func (k *Keyboard) Release(note uint8) {
	if int(note) >= smf.NumNotes {
		return
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	k.releaseLocked(note)
}

func (k *Keyboard) pressLocked(note uint8, velocity float64) {
	if k.pressed[note] {
		return
	}
	k.pressed[note] = true
	k.synth.Trigger(note, velocity)
	k.rec.Append(smf.On, note, velocity)
	k.setTargetLocked(note, 1)
}

func (k *Keyboard) releaseLocked(note uint8) {
	if !k.pressed[note] {
		return
	}
	k.pressed[note] = false
	k.synth.Release(note)
	k.rec.Append(smf.Off, note, 0)
	if !k.ghost[note] {
		k.setTargetLocked(note, 0)
	}
}

// GhostPress marks a note down for synchronized-playback visualization only.
// No sound fires and nothing is recorded.
func (k *Keyboard) GhostPress(note uint8) {
	if int(note) >= smf.NumNotes {
		return
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.ghost[note] {
		return
	}
	k.ghost[note] = true
	k.setTargetLocked(note, 1)
}

// GhostRelease lifts a ghost note. A key still held by real input stays down.
func (k *Keyboard) GhostRelease(note uint8) {
	if int(note) >= smf.NumNotes {
		return
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	if !k.ghost[note] {
		return
	}
	k.ghost[note] = false
	if !k.pressed[note] {
		k.setTargetLocked(note, 0)
	}
}

// ClearGhosts lifts every ghost note, leaving real input untouched.
func (k *Keyboard) ClearGhosts() {
	k.mu.Lock()
	defer k.mu.Unlock()
	for note := range k.ghost {
		if k.ghost[note] {
			k.ghost[note] = false
			if !k.pressed[note] {
				k.setTargetLocked(uint8(note), 0)
			}
		}
	}
}

// HandleRawMessage consumes a raw channel-voice message from a hardware port.
// Status nibble 0x9 with velocity > 0 is note-on; 0x8, or 0x9 with velocity
// 0, is note-off. Anything shorter than 3 bytes is ignored.
func (k *Keyboard) HandleRawMessage(msg []byte) {
	if len(msg) < 3 {
		return
	}
	status, note, velocity := msg[0]&0xF0, msg[1], msg[2]
	switch {
	case status == 0x90 && velocity > 0:
		k.Press(note, float64(velocity)/127)
	case status == 0x80 || status == 0x90:
		k.Release(note)
	}
}

// PointerDown starts a pointer gesture on the given note (-1 for a miss).
func (k *Keyboard) PointerDown(note int, velocity float64) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.pointerNote = note
	if note >= 0 && note < smf.NumNotes {
		k.pressLocked(uint8(note), velocity)
	}
}

// PointerDrag moves an active pointer gesture. Sliding onto a different key
// releases the previous one and presses the new one; sliding off the keys
// releases without a matching press.
func (k *Keyboard) PointerDrag(note int, velocity float64) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if note == k.pointerNote {
		return
	}
	if prev := k.pointerNote; prev >= 0 && prev < smf.NumNotes {
		k.releaseLocked(uint8(prev))
	}
	k.pointerNote = note
	if note >= 0 && note < smf.NumNotes {
		k.pressLocked(uint8(note), velocity)
	}
}

// PointerUp ends the pointer gesture.
func (k *Keyboard) PointerUp() {
	k.mu.Lock()
	defer k.mu.Unlock()
	if prev := k.pointerNote; prev >= 0 && prev < smf.NumNotes {
		k.releaseLocked(uint8(prev))
	}
	k.pointerNote = -1
}

// IsPressed reports whether a note is held by real input.
func (k *Keyboard) IsPressed(note uint8) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return int(note) < smf.NumNotes && k.pressed[note]
}

// IsGhost reports whether a note is down purely for playback visualization.
func (k *Keyboard) IsGhost(note uint8) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return int(note) < smf.NumNotes && k.ghost[note]
}

// Snapshot copies the per-key visual state for rendering: eased progress plus
// the pressed/ghost flags. Pressed styling wins when a note is in both sets.
func (k *Keyboard) Snapshot() KeySnapshot {
	k.mu.Lock()
	defer k.mu.Unlock()
	var s KeySnapshot
	for i := range k.anim {
		s.Progress[i] = k.anim[i].progress
		s.Pressed[i] = k.pressed[i]
		s.Ghost[i] = k.ghost[i]
	}
	return s
}

// KeySnapshot is a copy of the rendering state for all 128 notes.
type KeySnapshot struct {
	Progress [smf.NumNotes]float64
	Pressed  [smf.NumNotes]bool
	Ghost    [smf.NumNotes]bool
}

func (k *Keyboard) notify() {
	select {
	case k.UpdateChan <- struct{}{}:
	default:
	}
}
