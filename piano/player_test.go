package piano

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keystage/smf"
)

// fakeTransport is a hand-cranked audio position for driving the player.
type fakeTransport struct {
	mu       sync.Mutex
	playing  bool
	pos      time.Duration
	dur      time.Duration
	durKnown bool
}

func (f *fakeTransport) Play() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playing = true
}

func (f *fakeTransport) Pause() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playing = false
}

func (f *fakeTransport) Seek(to time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pos = to
	return nil
}

func (f *fakeTransport) Playing() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playing
}

func (f *fakeTransport) Position() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pos
}

func (f *fakeTransport) Duration() (time.Duration, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dur, f.durKnown
}

func (f *fakeTransport) setPos(to time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pos = to
}

func TestRescaleEvents(t *testing.T) {
	base := func() []smf.Event {
		return []smf.Event{
			{Kind: smf.On, Note: 60, Time: 0},
			{Kind: smf.Off, Note: 60, Time: 500},
			{Kind: smf.On, Note: 64, Time: 1000},
			{Kind: smf.Off, Note: 64, Time: 2000},
		}
	}

	// 10% longer audio: every time scales uniformly.
	evs := base()
	require.True(t, rescaleEvents(evs, false, 2200, true))
	assert.EqualValues(t, 0, evs[0].Time)
	assert.EqualValues(t, 550, evs[1].Time)
	assert.EqualValues(t, 1100, evs[2].Time)
	assert.EqualValues(t, 2200, evs[3].Time)

	// 2% deviation is within tolerance.
	evs = base()
	assert.False(t, rescaleEvents(evs, false, 2040, true))
	assert.EqualValues(t, 2000, evs[3].Time)

	// A tempo meta makes the times authoritative.
	evs = base()
	assert.False(t, rescaleEvents(evs, true, 2200, true))

	// Unknown duration: nothing to scale against.
	evs = base()
	assert.False(t, rescaleEvents(evs, false, 0, false))

	assert.False(t, rescaleEvents(nil, false, 2200, true))
}

func TestTickFiresWithinLeadWindow(t *testing.T) {
	kb := NewKeyboard(&fakeSynth{})
	p := NewPlayer(kb)

	cur := playCursor{
		events: []smf.Event{
			{Kind: smf.On, Note: 60, Time: 100},
			{Kind: smf.Off, Note: 60, Time: 600},
		},
		lastObserved: -1,
	}

	// 100ms event: lead 75 + tolerance 25 puts it exactly at the edge.
	p.tick(&cur, 0)
	assert.True(t, kb.IsGhost(60))
	assert.Equal(t, 1, cur.idx)

	// The off at 600ms is still far away.
	p.tick(&cur, 200)
	assert.True(t, kb.IsGhost(60))

	p.tick(&cur, 550)
	assert.False(t, kb.IsGhost(60))
	assert.Equal(t, 2, cur.idx)
}

func TestTickScrubResetsCursor(t *testing.T) {
	kb := NewKeyboard(&fakeSynth{})
	p := NewPlayer(kb)

	cur := playCursor{
		events: []smf.Event{
			{Kind: smf.On, Note: 60, Time: 0},
			{Kind: smf.Off, Note: 60, Time: 400},
			{Kind: smf.On, Note: 64, Time: 1000},
		},
		lastObserved: -1,
	}

	p.tick(&cur, 1200)
	require.Equal(t, 3, cur.idx)
	require.True(t, kb.IsGhost(64))

	// Jump backward past the jitter tolerance: cursor rewinds, stale
	// ghosts drop, and the events replay from the new position.
	p.tick(&cur, 50)
	assert.Equal(t, 1, cur.idx)
	assert.True(t, kb.IsGhost(60))
	assert.False(t, kb.IsGhost(64))
}

func TestTickIgnoresJitterBackstep(t *testing.T) {
	kb := NewKeyboard(&fakeSynth{})
	p := NewPlayer(kb)

	cur := playCursor{
		events:       []smf.Event{{Kind: smf.On, Note: 60, Time: 500}},
		lastObserved: -1,
	}

	p.tick(&cur, 300)
	p.tick(&cur, 290) // within tolerance, not a scrub
	assert.EqualValues(t, 290, cur.lastObserved)
	assert.Equal(t, 0, cur.idx)
}

func TestPlayerSessionLifecycle(t *testing.T) {
	kb := NewKeyboard(&fakeSynth{})
	p := NewPlayer(kb)

	tr := &fakeTransport{playing: true, dur: 2 * time.Second, durKnown: true}
	res := smf.Result{
		Events: []smf.Event{
			{Kind: smf.On, Note: 60, Time: 0},
			{Kind: smf.Off, Note: 60, Time: 2000},
		},
		MicrosPerQuarter: smf.DefaultMicrosPerQuarter,
	}

	p.Start(res, tr)
	require.Eventually(t, func() bool {
		return kb.IsGhost(60)
	}, time.Second, 5*time.Millisecond)

	p.Stop()
	require.Eventually(t, func() bool {
		return !kb.IsGhost(60)
	}, time.Second, 5*time.Millisecond)
}

func TestPlayerEndsWhenAudioStops(t *testing.T) {
	kb := NewKeyboard(&fakeSynth{})
	p := NewPlayer(kb)

	tr := &fakeTransport{playing: true, dur: time.Second, durKnown: true}
	res := smf.Result{
		Events:           []smf.Event{{Kind: smf.On, Note: 60, Time: 0}, {Kind: smf.Off, Note: 60, Time: 1000}},
		MicrosPerQuarter: smf.DefaultMicrosPerQuarter,
	}

	p.Start(res, tr)
	require.Eventually(t, func() bool {
		return kb.IsGhost(60)
	}, time.Second, 5*time.Millisecond)

	tr.setPos(500 * time.Millisecond)
	tr.Pause()
	require.Eventually(t, func() bool {
		return !kb.IsGhost(60)
	}, time.Second, 5*time.Millisecond)
}

func TestPlayerStartWithNothingIsInert(t *testing.T) {
	kb := NewKeyboard(&fakeSynth{})
	p := NewPlayer(kb)

	p.Start(smf.Result{}, nil)
	p.Start(smf.Result{}, &fakeTransport{})
	p.Stop()
}
