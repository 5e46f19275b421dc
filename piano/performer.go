package piano

import (
	"container/heap"
	"sync"
	"time"

	"keystage/smf"
)

// Performer drives programmatic playing: single notes, chords and arpeggios
// requested by a remote agent. Every on/off pair is an explicit scheduled
// task in one priority queue drained by a frame-rate polling loop, so the
// whole pending sequence is inspectable and cancelable in one place. All
// firing routes through the Keyboard, sharing its idempotent bookkeeping
// with human input.
type Performer struct {
	mu      sync.Mutex
	kb      *Keyboard
	queue   taskQueue
	held    [smf.NumNotes]bool
	running bool
}

type task struct {
	at       time.Time
	kind     smf.EventKind
	note     uint8
	velocity float64
}

func NewPerformer(kb *Keyboard) *Performer {
	return &Performer{kb: kb}
}

// PlayNote presses a note now and releases it after dur.
func (p *Performer) PlayNote(note uint8, velocity float64, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scheduleNoteLocked(time.Now(), note, velocity, dur)
}

// PlayChord presses all notes together and releases them after dur.
func (p *Performer) PlayChord(notes []uint8, velocity float64, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	for _, n := range notes {
		p.scheduleNoteLocked(now, n, velocity, dur)
	}
}

// PlayArpeggio rolls the notes, one every gap, each held for dur.
func (p *Performer) PlayArpeggio(notes []uint8, velocity float64, dur, gap time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	for i, n := range notes {
		p.scheduleNoteLocked(now.Add(time.Duration(i)*gap), n, velocity, dur)
	}
}

// Cancel drops every pending task and releases any note the performer is
// still holding from presses that already fired.
func (p *Performer) Cancel() {
	p.mu.Lock()
	p.queue = nil
	var release []uint8
	for note := range p.held {
		if p.held[note] {
			p.held[note] = false
			release = append(release, uint8(note))
		}
	}
	p.mu.Unlock()
	for _, n := range release {
		p.kb.Release(n)
	}
}

// Pending reports how many scheduled tasks have not fired yet.
func (p *Performer) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

func (p *Performer) scheduleNoteLocked(at time.Time, note uint8, velocity float64, dur time.Duration) {
	p.pushLocked(task{at: at, kind: smf.On, note: note, velocity: velocity})
	p.pushLocked(task{at: at.Add(dur), kind: smf.Off, note: note})
}

func (p *Performer) pushLocked(t task) {
	heap.Push(&p.queue, t)
	if !p.running {
		p.running = true
		go p.loop()
	}
}

// loop polls the queue at frame rate, fires everything due and exits once
// the queue is empty. The next schedule call restarts it.
func (p *Performer) loop() {
	ticker := time.NewTicker(time.Second / animFPS)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		for {
			p.mu.Lock()
			if len(p.queue) == 0 {
				p.running = false
				p.mu.Unlock()
				return
			}
			if p.queue[0].at.After(now) {
				p.mu.Unlock()
				break
			}
			t := heap.Pop(&p.queue).(task)
			if t.kind == smf.On {
				p.held[t.note] = true
			} else {
				p.held[t.note] = false
			}
			p.mu.Unlock()
			// Fire outside the performer lock; the keyboard has its own.
			if t.kind == smf.On {
				p.kb.Press(t.note, t.velocity)
			} else {
				p.kb.Release(t.note)
			}
		}
	}
}

// taskQueue is a min-heap ordered by fire time.
type taskQueue []task

func (q taskQueue) Len() int            { return len(q) }
func (q taskQueue) Less(i, j int) bool  { return q[i].at.Before(q[j].at) }
func (q taskQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *taskQueue) Push(x interface{}) { *q = append(*q, x.(task)) }
func (q *taskQueue) Pop() interface{} {
	old := *q
	n := len(old)
	t := old[n-1]
	*q = old[:n-1]
	return t
}
