package widgets

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keystage/piano"
	"keystage/theme"
)

func testKeyboard() *Keyboard {
	return NewKeyboard(theme.New(theme.Default()))
}

func TestGeometry(t *testing.T) {
	kv := testKeyboard()
	// 52 white keys from A0 to C8, two cells each.
	assert.Equal(t, 104, kv.Width())
	assert.Equal(t, keyRows, kv.Height())
}

func TestHitTestWhiteKeys(t *testing.T) {
	kv := testKeyboard()

	// A0 owns the first two cells, B0 the next pair, C8 the last.
	assert.Equal(t, 21, kv.HitTest(0, keyRows-1))
	assert.Equal(t, 21, kv.HitTest(1, keyRows-1))
	assert.Equal(t, 23, kv.HitTest(2, keyRows-1))
	assert.Equal(t, 108, kv.HitTest(103, keyRows-1))
}

func TestHitTestBlackBeforeWhite(t *testing.T) {
	kv := testKeyboard()

	// A#0 straddles the A0/B0 boundary on the upper rows only.
	assert.Equal(t, 22, kv.HitTest(1, 0))
	assert.Equal(t, 22, kv.HitTest(2, blackRows-1))
	assert.Equal(t, 21, kv.HitTest(1, blackRows))
	assert.Equal(t, 23, kv.HitTest(2, blackRows))
}

func TestHitTestOutside(t *testing.T) {
	kv := testKeyboard()

	assert.Equal(t, -1, kv.HitTest(-1, 0))
	assert.Equal(t, -1, kv.HitTest(kv.Width(), 0))
	assert.Equal(t, -1, kv.HitTest(0, -1))
	assert.Equal(t, -1, kv.HitTest(0, keyRows))
}

func TestRangeHasNoBlackEdges(t *testing.T) {
	// The 88-key range starts and ends on white keys; every black key has a
	// white neighbor on each side.
	require.Equal(t, 52, len(whiteNotes))
	assert.EqualValues(t, 21, whiteNotes[0])
	assert.EqualValues(t, 108, whiteNotes[len(whiteNotes)-1])
}

func TestViewDimensions(t *testing.T) {
	kv := testKeyboard()

	var snap piano.KeySnapshot
	snap.Pressed[60] = true
	snap.Progress[60] = 1
	snap.Ghost[64] = true
	snap.Progress[64] = 0.5

	out := kv.View(snap)
	lines := strings.Split(out, "\n")
	require.Len(t, lines, keyRows)
	for _, line := range lines {
		assert.Equal(t, kv.Width(), lipgloss.Width(line))
	}
}
