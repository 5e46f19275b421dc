package widgets

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"keystage/piano"
	"keystage/smf"
	"keystage/theme"
)

const (
	whiteWidth = 2 // terminal cells per white key
	keyRows    = 6
	blackRows  = 3
)

// blackClasses marks the pitch classes played on black keys.
var blackClasses = [12]bool{1: true, 3: true, 6: true, 8: true, 10: true}

// whiteNotes maps white-key column index to MIDI note, built once for
// the 88-key range A0..C8.
var whiteNotes []uint8

// whiteIndex maps MIDI note to its white-key column, -1 for black keys.
var whiteIndex [smf.NumNotes]int

func init() {
	for n := 0; n < smf.NumNotes; n++ {
		whiteIndex[n] = -1
	}
	for n := smf.LowestNote; n <= smf.HighestNote; n++ {
		if blackClasses[n%12] {
			continue
		}
		whiteIndex[n] = len(whiteNotes)
		whiteNotes = append(whiteNotes, uint8(n))
	}
}

// Keyboard renders the 88-key surface and maps pointer cells back to
// notes. White keys are whiteWidth cells wide across all keyRows rows,
// black keys overlay the top blackRows rows straddling the boundary to
// their left neighbor.
type Keyboard struct {
	theme *theme.Theme
}

func NewKeyboard(th *theme.Theme) *Keyboard {
	return &Keyboard{theme: th}
}

func (k *Keyboard) Width() int  { return len(whiteNotes) * whiteWidth }
func (k *Keyboard) Height() int { return keyRows }

// blackSpan returns the horizontal cell range covered by a black key.
func blackSpan(note int) (x0, x1 int) {
	// The key to a black key's left is always white.
	left := whiteIndex[note-1]
	x0 = left*whiteWidth + whiteWidth - 1
	return x0, x0 + whiteWidth
}

// HitTest resolves a cell position to the note under it, or -1. Black
// keys sit on top of white keys, so they claim the cell first.
func (k *Keyboard) HitTest(x, y int) int {
	if x < 0 || x >= k.Width() || y < 0 || y >= keyRows {
		return -1
	}
	if y < blackRows {
		for n := smf.LowestNote + 1; n < smf.HighestNote; n++ {
			if !blackClasses[n%12] {
				continue
			}
			if x0, x1 := blackSpan(n); x >= x0 && x < x1 {
				return n
			}
		}
	}
	return int(whiteNotes[x/whiteWidth])
}

// View draws the keyboard from a state snapshot. White keys paint the
// full grid, then black keys overwrite their rows on top.
func (k *Keyboard) View(snap piano.KeySnapshot) string {
	width := k.Width()
	colors := make([][]lipgloss.Color, keyRows)
	for y := range colors {
		colors[y] = make([]lipgloss.Color, width)
	}

	for wi, note := range whiteNotes {
		ghost := snap.Ghost[note] && !snap.Pressed[note]
		body := k.theme.WhiteKey(snap.Progress[note], ghost)
		edge := k.theme.WhiteKeyEdge(snap.Progress[note], ghost)
		x0 := wi * whiteWidth
		for y := 0; y < keyRows; y++ {
			for x := x0; x < x0+whiteWidth-1; x++ {
				colors[y][x] = body
			}
			colors[y][x0+whiteWidth-1] = edge
		}
	}

	for n := smf.LowestNote + 1; n < smf.HighestNote; n++ {
		if !blackClasses[n%12] {
			continue
		}
		ghost := snap.Ghost[n] && !snap.Pressed[n]
		body := k.theme.BlackKey(snap.Progress[n], ghost)
		x0, x1 := blackSpan(n)
		for y := 0; y < blackRows; y++ {
			for x := x0; x < x1; x++ {
				colors[y][x] = body
			}
		}
	}

	var b strings.Builder
	for y := 0; y < keyRows; y++ {
		if y > 0 {
			b.WriteByte('\n')
		}
		run := colors[y][0]
		count := 0
		flush := func() {
			b.WriteString(lipgloss.NewStyle().Background(run).Render(strings.Repeat(" ", count)))
		}
		for x := 0; x < width; x++ {
			if colors[y][x] != run {
				flush()
				run = colors[y][x]
				count = 0
			}
			count++
		}
		flush()
	}
	return b.String()
}
