package piano

import (
	"sync"
	"time"

	"keystage/smf"
)

// Recorder captures the note-event stream of a take. Only the Keyboard
// appends to it, and only while a take is active. Events arrive in real time
// so their times are non-decreasing, though nothing here enforces it.
type Recorder struct {
	mu        sync.Mutex
	active    bool
	startedAt time.Time
	events    []smf.Event
}

// Take is a frozen recording: the event list plus when it started. It is
// immutable once returned by Stop.
type Take struct {
	StartedAt time.Time
	Events    []smf.Event
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

// Start begins a new take, discarding any unfinished one.
func (r *Recorder) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = true
	r.startedAt = time.Now()
	r.events = nil
}

// Stop freezes the take in progress and returns it. Stopping an inactive
// recorder returns an empty take.
func (r *Recorder) Stop() Take {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = false
	take := Take{StartedAt: r.startedAt, Events: r.events}
	r.events = nil
	return take
}

// Active reports whether a take is in progress.
func (r *Recorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Append records one transition at the current offset into the take. Calls
// outside an active take are dropped.
func (r *Recorder) Append(kind smf.EventKind, note uint8, velocity float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active {
		return
	}
	r.events = append(r.events, smf.Event{
		Kind:     kind,
		Note:     note,
		Velocity: velocity,
		Time:     time.Since(r.startedAt).Milliseconds(),
	})
}

// Duration is the time of the last event, in milliseconds.
func (t Take) Duration() int64 {
	if len(t.Events) == 0 {
		return 0
	}
	return t.Events[len(t.Events)-1].Time
}

// Bytes serializes the take as a Standard MIDI File.
func (t Take) Bytes() []byte {
	return smf.Encode(t.Events)
}
