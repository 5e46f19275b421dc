package piano

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSynth records trigger/release calls in order.
type fakeSynth struct {
	mu       sync.Mutex
	triggers []uint8
	releases []uint8
}

func (f *fakeSynth) Trigger(note uint8, velocity float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.triggers = append(f.triggers, note)
}

func (f *fakeSynth) Release(note uint8) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releases = append(f.releases, note)
}

func (f *fakeSynth) triggered() []uint8 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uint8(nil), f.triggers...)
}

func (f *fakeSynth) released() []uint8 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uint8(nil), f.releases...)
}

func TestPressIsIdempotent(t *testing.T) {
	fs := &fakeSynth{}
	kb := NewKeyboard(fs)

	kb.Press(60, 0.8)
	kb.Press(60, 0.8)
	kb.Press(60, 0.3)

	assert.True(t, kb.IsPressed(60))
	assert.Equal(t, []uint8{60}, fs.triggered())
}

func TestReleaseUnpressedIsNoOp(t *testing.T) {
	fs := &fakeSynth{}
	kb := NewKeyboard(fs)

	kb.Release(60)

	assert.False(t, kb.IsPressed(60))
	assert.Empty(t, fs.released())
}

func TestPressReleaseCycle(t *testing.T) {
	fs := &fakeSynth{}
	kb := NewKeyboard(fs)

	kb.Press(64, 0.5)
	kb.Release(64)
	kb.Release(64)

	assert.False(t, kb.IsPressed(64))
	assert.Equal(t, []uint8{64}, fs.triggered())
	assert.Equal(t, []uint8{64}, fs.released())
}

func TestHandleRawMessage(t *testing.T) {
	fs := &fakeSynth{}
	kb := NewKeyboard(fs)

	kb.HandleRawMessage([]byte{0x90, 60, 100})
	require.True(t, kb.IsPressed(60))

	// Note-on with velocity zero is a release.
	kb.HandleRawMessage([]byte{0x90, 60, 0})
	assert.False(t, kb.IsPressed(60))

	kb.HandleRawMessage([]byte{0x91, 62, 80}) // other channel, same status nibble
	assert.True(t, kb.IsPressed(62))
	kb.HandleRawMessage([]byte{0x81, 62, 0})
	assert.False(t, kb.IsPressed(62))

	// Short and foreign messages are ignored.
	kb.HandleRawMessage([]byte{0x90, 64})
	kb.HandleRawMessage([]byte{0xB0, 64, 127})
	assert.False(t, kb.IsPressed(64))
}

func TestPointerDragSlidesBetweenKeys(t *testing.T) {
	fs := &fakeSynth{}
	kb := NewKeyboard(fs)

	kb.PointerDown(60, 0.7)
	require.True(t, kb.IsPressed(60))

	// Dragging within the same key does nothing.
	kb.PointerDrag(60, 0.7)
	assert.Equal(t, []uint8{60}, fs.triggered())

	// Dragging onto a new key releases the old one first.
	kb.PointerDrag(62, 0.7)
	assert.False(t, kb.IsPressed(60))
	assert.True(t, kb.IsPressed(62))
	assert.Equal(t, []uint8{60}, fs.released())

	// Sliding off the keys releases without a matching press.
	kb.PointerDrag(-1, 0.7)
	assert.False(t, kb.IsPressed(62))

	kb.PointerUp()
	assert.Equal(t, []uint8{60, 62}, fs.triggered())
	assert.Equal(t, []uint8{60, 62}, fs.released())
}

func TestGhostNotesAreSilent(t *testing.T) {
	fs := &fakeSynth{}
	kb := NewKeyboard(fs)
	kb.Recorder().Start()

	kb.GhostPress(72)
	assert.True(t, kb.IsGhost(72))
	assert.False(t, kb.IsPressed(72))
	kb.GhostRelease(72)
	assert.False(t, kb.IsGhost(72))

	take := kb.Recorder().Stop()
	assert.Empty(t, fs.triggered())
	assert.Empty(t, take.Events)
}

func TestGhostReleaseKeepsRealKeyDown(t *testing.T) {
	fs := &fakeSynth{}
	kb := NewKeyboard(fs)

	kb.Press(60, 0.8)
	kb.GhostPress(60)
	kb.GhostRelease(60)

	assert.True(t, kb.IsPressed(60))
	assert.Empty(t, fs.released())
}

func TestClearGhostsLeavesRealKeys(t *testing.T) {
	fs := &fakeSynth{}
	kb := NewKeyboard(fs)

	kb.Press(60, 0.8)
	kb.GhostPress(60)
	kb.GhostPress(64)
	kb.ClearGhosts()

	assert.True(t, kb.IsPressed(60))
	assert.False(t, kb.IsGhost(60))
	assert.False(t, kb.IsGhost(64))
}

func TestSnapshotReflectsBothSets(t *testing.T) {
	fs := &fakeSynth{}
	kb := NewKeyboard(fs)

	kb.Press(60, 0.8)
	kb.GhostPress(64)

	s := kb.Snapshot()
	assert.True(t, s.Pressed[60])
	assert.False(t, s.Ghost[60])
	assert.True(t, s.Ghost[64])
	assert.False(t, s.Pressed[64])
}

func TestUpdateChanNotifies(t *testing.T) {
	fs := &fakeSynth{}
	kb := NewKeyboard(fs)

	kb.Press(60, 0.8)

	select {
	case <-kb.UpdateChan:
	case <-time.After(time.Second):
		t.Fatal("no update notification after press")
	}
}
