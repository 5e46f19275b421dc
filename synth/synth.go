// Package synth is the sound collaborator behind the keyboard: note on/off
// with velocity, fire-and-forget. Nothing upstream waits on it or sees its
// errors.
package synth

// Synth triggers and releases notes. Implementations must tolerate a Release
// for a note that is not sounding.
type Synth interface {
	Trigger(note uint8, velocity float64)
	Release(note uint8)
}

// Preset selects the instrument voicing. Closed enumeration: each preset is
// a row in the voicing table, nothing is dispatched dynamically beyond that.
type Preset int

const (
	PresetGrand Preset = iota
	PresetEPiano
	PresetOrgan
	numPresets
)

func (p Preset) String() string {
	switch p {
	case PresetGrand:
		return "grand"
	case PresetEPiano:
		return "e-piano"
	case PresetOrgan:
		return "organ"
	}
	return "unknown"
}

// Next cycles through the presets.
func (p Preset) Next() Preset {
	return (p + 1) % numPresets
}

// PresetByName resolves a configured preset name, falling back to the grand.
func PresetByName(name string) Preset {
	for p := PresetGrand; p < numPresets; p++ {
		if p.String() == name {
			return p
		}
	}
	return PresetGrand
}

// voicing is the additive recipe for one preset: relative amplitudes for the
// harmonic series plus decay behavior.
type voicing struct {
	partials      []float64
	decayPerSec   float64 // sustain decay, fraction of amplitude kept per second
	releasePerSec float64 // post-release decay, much faster
}

var voicings = [numPresets]voicing{
	PresetGrand:  {partials: []float64{1, 0.5, 0.25, 0.12, 0.06}, decayPerSec: 0.35, releasePerSec: 0.001},
	PresetEPiano: {partials: []float64{1, 0.15, 0.4, 0.05}, decayPerSec: 0.25, releasePerSec: 0.002},
	PresetOrgan:  {partials: []float64{1, 0.9, 0.6, 0.5, 0.3, 0.2}, decayPerSec: 0.95, releasePerSec: 0.001},
}
