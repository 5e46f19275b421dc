package piano

import (
	"math"
	"sync/atomic"
	"time"

	"keystage/audio"
	"keystage/debug"
	"keystage/smf"
)

// Synchronized playback timing. The lead compensates for perceived key
// animation latency against the audio; the tolerance absorbs frame-to-frame
// jitter in the polled audio position.
const (
	playbackLeadMs      = 75
	playbackToleranceMs = 25
	driftThreshold      = 0.05
	metadataWait        = 1500 * time.Millisecond
	metadataPoll        = 50 * time.Millisecond
)

// Player replays a decoded take as ghost notes against an audio transport it
// polls but does not control. One session at a time: starting a new session
// bumps a token and any stale frame loop notices and exits silently.
type Player struct {
	kb      *Keyboard
	session atomic.Uint64
}

func NewPlayer(kb *Keyboard) *Player {
	return &Player{kb: kb}
}

// Start begins a playback session for the decoded events, superseding any
// session already running.
func (p *Player) Start(res smf.Result, tr audio.Transport) {
	token := p.session.Add(1)
	p.kb.ClearGhosts()
	if tr == nil || len(res.Events) == 0 {
		return
	}
	go p.run(token, res, tr)
}

// Stop ends the current session, if any.
func (p *Player) Stop() {
	p.session.Add(1)
	p.kb.ClearGhosts()
}

func (p *Player) superseded(token uint64) bool {
	return p.session.Load() != token
}

func (p *Player) run(token uint64, res smf.Result, tr audio.Transport) {
	// Own copy: drift correction rewrites times.
	events := append([]smf.Event(nil), res.Events...)

	// Resolve the actual audio duration, waiting a bounded time for the
	// metadata of streamed sources. Without it we play unscaled.
	var durMs int64
	durKnown := false
	deadline := time.Now().Add(metadataWait)
	for !p.superseded(token) {
		if d, ok := tr.Duration(); ok {
			durMs = d.Milliseconds()
			durKnown = true
			break
		}
		if time.Now().After(deadline) {
			debug.Log("play", "audio duration unknown after %v, skipping rescale", metadataWait)
			break
		}
		time.Sleep(metadataPoll)
	}

	if rescaleEvents(events, res.HasTempoMeta, durMs, durKnown) {
		debug.Log("play", "rescaled %d events to audio duration %dms", len(events), durMs)
	}

	// Give the surrounding UI a moment to actually start the audio before
	// treating "not playing" as a stop condition.
	graceUntil := time.Now().Add(metadataWait)

	cur := playCursor{events: events, lastObserved: -1}
	ticker := time.NewTicker(time.Second / animFPS)
	defer ticker.Stop()
	defer func() {
		// A superseded loop must not touch ghost state owned by its successor.
		if !p.superseded(token) {
			p.kb.ClearGhosts()
		}
	}()

	for range ticker.C {
		if p.superseded(token) {
			return
		}
		if !tr.Playing() {
			if time.Now().Before(graceUntil) && cur.idx == 0 {
				continue
			}
			debug.Log("play", "audio stopped, ending session after %d/%d events", cur.idx, len(events))
			return
		}
		p.tick(&cur, tr.Position().Milliseconds())
	}
}

type playCursor struct {
	events       []smf.Event
	idx          int
	lastObserved int64
}

// tick advances the monotonic event cursor to the polled audio position. A
// backward jump beyond the jitter tolerance is a scrub: reset the cursor and
// drop all ghost state before resuming.
func (p *Player) tick(c *playCursor, nowMs int64) {
	if c.lastObserved >= 0 && nowMs+playbackToleranceMs < c.lastObserved {
		debug.Log("play", "scrub detected (%dms -> %dms), rewinding cursor", c.lastObserved, nowMs)
		c.idx = 0
		p.kb.ClearGhosts()
	}
	c.lastObserved = nowMs
	debug.LogEvery(120, "play", "pos=%dms cursor=%d/%d", nowMs, c.idx, len(c.events))

	for c.idx < len(c.events) {
		ev := c.events[c.idx]
		if ev.Time-playbackLeadMs > nowMs+playbackToleranceMs {
			break
		}
		if ev.Kind == smf.On {
			p.kb.GhostPress(ev.Note)
		} else {
			p.kb.GhostRelease(ev.Note)
		}
		c.idx++
	}
}

// rescaleEvents applies drift correction: when the take carries no tempo
// meta and the audio duration disagrees with the event-derived duration by
// more than the threshold, every event time is scaled uniformly. The nominal
// encode tempo only approximates wall-clock time during recording, so long
// takes drift visibly without this.
func rescaleEvents(events []smf.Event, hasTempoMeta bool, durMs int64, durKnown bool) bool {
	if hasTempoMeta || !durKnown || len(events) == 0 {
		return false
	}
	last := events[len(events)-1].Time
	if last <= 0 || durMs <= 0 {
		return false
	}
	ratio := float64(durMs) / float64(last)
	if math.Abs(ratio-1) <= driftThreshold {
		return false
	}
	for i := range events {
		events[i].Time = int64(math.Round(float64(events[i].Time) * ratio))
	}
	return true
}
