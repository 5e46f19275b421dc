package theme

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
)

// Theme maps palette positions to keyboard colors. Keys blend from their
// rest color toward the accent as the press animation progresses; ghost
// notes get a desaturated variant of the same ramp so synchronized playback
// reads differently from live input.
type Theme struct {
	Palette *Palette
}

// Color roles mapped to palette positions (0-1)
const (
	RoleBG       = 0.0
	RoleSurface  = 0.1
	RoleMuted    = 0.2
	RoleFG       = 0.4
	RoleAccent   = 0.6
	RolePressed  = 0.75
	RoleRecord   = 0.9
)

func New(palette *Palette) *Theme {
	return &Theme{Palette: palette}
}

// Style helpers

func (t *Theme) BG() lipgloss.Color     { return rgbToLipgloss(t.Palette.Lookup(RoleBG)) }
func (t *Theme) FG() lipgloss.Color     { return rgbToLipgloss(t.Palette.Lookup(RoleFG)) }
func (t *Theme) Accent() lipgloss.Color { return rgbToLipgloss(t.Palette.Lookup(RoleAccent)) }
func (t *Theme) Muted() lipgloss.Color  { return rgbToLipgloss(t.Palette.Lookup(RoleMuted)) }
func (t *Theme) Record() lipgloss.Color { return rgbToLipgloss(t.Palette.Lookup(RoleRecord)) }

// WhiteKey returns the fill color for a white key at the given animation
// progress. Pressed styling wins over ghost when both apply.
func (t *Theme) WhiteKey(progress float64, ghost bool) lipgloss.Color {
	rest := colorful.Color{R: 0.92, G: 0.92, B: 0.88}
	return t.keyColor(rest, progress, ghost)
}

// BlackKey is the fill color for a black key at the given progress.
func (t *Theme) BlackKey(progress float64, ghost bool) lipgloss.Color {
	rest := colorful.Color{R: 0.10, G: 0.10, B: 0.12}
	return t.keyColor(rest, progress, ghost)
}

// WhiteKeyEdge is the darker right edge separating adjacent white keys.
func (t *Theme) WhiteKeyEdge(progress float64, ghost bool) lipgloss.Color {
	rest := colorful.Color{R: 0.74, G: 0.74, B: 0.70}
	return t.keyColor(rest, progress, ghost)
}

func (t *Theme) keyColor(rest colorful.Color, progress float64, ghost bool) lipgloss.Color {
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}
	target := rgbToColorful(t.Palette.Lookup(RolePressed))
	if ghost {
		// Ghost notes press in gray: same depth, drained color.
		h, _, l := target.Hsl()
		target = colorful.Hsl(h, 0.08, l)
	}
	c := rest.BlendLuv(target, progress).Clamped()
	return lipgloss.Color(c.Hex())
}

func rgbToColorful(c RGB) colorful.Color {
	return colorful.Color{R: float64(c[0]) / 255, G: float64(c[1]) / 255, B: float64(c[2]) / 255}
}

func rgbToLipgloss(c RGB) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2]))
}
