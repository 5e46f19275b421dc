package piano

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepConvergesGeometrically(t *testing.T) {
	kb := NewKeyboard(&fakeSynth{})
	kb.anim[5].target = 1

	kb.mu.Lock()
	defer kb.mu.Unlock()

	// 15% of the remaining distance per frame closes to within epsilon in
	// under 30 frames, then the key snaps exactly onto the target.
	prev := 0.0
	for i := 0; i < 40; i++ {
		kb.stepLocked()
		assert.GreaterOrEqual(t, kb.anim[5].progress, prev)
		prev = kb.anim[5].progress
	}
	assert.Equal(t, 1.0, kb.anim[5].progress)
	assert.False(t, kb.stepLocked())
}

func TestDriverStopsWhenConverged(t *testing.T) {
	kb := NewKeyboard(&fakeSynth{})

	kb.Press(60, 0.8)
	require.True(t, kb.Animating())

	require.Eventually(t, func() bool {
		return kb.Snapshot().Progress[60] == 1.0
	}, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		return !kb.Animating()
	}, time.Second, 10*time.Millisecond)
}

func TestDriverRestartsAfterStopping(t *testing.T) {
	kb := NewKeyboard(&fakeSynth{})

	kb.Press(60, 0.8)
	require.Eventually(t, func() bool {
		return !kb.Animating() && kb.Snapshot().Progress[60] == 1.0
	}, 2*time.Second, 10*time.Millisecond)

	kb.Release(60)
	require.Eventually(t, func() bool {
		return kb.Snapshot().Progress[60] == 0.0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRetargetMidFlightReverses(t *testing.T) {
	kb := NewKeyboard(&fakeSynth{})

	kb.Press(60, 0.8)
	time.Sleep(3 * time.Second / animFPS)
	kb.Release(60)

	require.Eventually(t, func() bool {
		return kb.Snapshot().Progress[60] == 0.0
	}, 2*time.Second, 10*time.Millisecond)
}
