package synth

import (
	"math"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"

	"keystage/audio"
)

// BeepSynth renders voices additively into a beep mixer on the shared
// speaker. One voice per note: retriggering a sounding note steals it.
type BeepSynth struct {
	preset Preset
	mixer  beep.Mixer
	voices [128]*voice
}

// NewBeep opens the speaker (if not already open) and starts an empty mix.
func NewBeep(preset Preset) (*BeepSynth, error) {
	if err := audio.Init(); err != nil {
		return nil, err
	}
	s := &BeepSynth{preset: preset}
	speaker.Play(&s.mixer)
	return s, nil
}

// SetPreset switches the voicing for subsequently triggered notes.
func (s *BeepSynth) SetPreset(p Preset) {
	speaker.Lock()
	s.preset = p
	speaker.Unlock()
}

// Preset returns the current voicing.
func (s *BeepSynth) Preset() Preset {
	speaker.Lock()
	defer speaker.Unlock()
	return s.preset
}

func (s *BeepSynth) Trigger(note uint8, velocity float64) {
	if note > 127 {
		return
	}
	speaker.Lock()
	defer speaker.Unlock()
	if old := s.voices[note]; old != nil {
		old.done = true
	}
	v := newVoice(s.preset, note, velocity)
	s.voices[note] = v
	s.mixer.Add(v)
}

func (s *BeepSynth) Release(note uint8) {
	if note > 127 {
		return
	}
	speaker.Lock()
	defer speaker.Unlock()
	if v := s.voices[note]; v != nil {
		v.released = true
	}
}

// voice is one sounding note: a short harmonic series under an exponential
// decay envelope. Stream runs with the speaker lock held, so the flags set
// by Trigger/Release need no further synchronization.
type voice struct {
	partials []float64
	step     float64 // phase increment per sample for the fundamental
	phase    float64
	amp      float64
	env      float64
	decay    float64 // per-sample envelope factor while held
	relDecay float64 // per-sample envelope factor after release
	released bool
	done     bool
}

func newVoice(preset Preset, note uint8, velocity float64) *voice {
	if velocity < 0 {
		velocity = 0
	}
	if velocity > 1 {
		velocity = 1
	}
	vc := voicings[preset]
	sr := float64(audio.SampleRate)
	return &voice{
		partials: vc.partials,
		step:     2 * math.Pi * noteFrequency(note) / sr,
		amp:      0.18 * velocity,
		env:      1,
		decay:    math.Pow(vc.decayPerSec, 1/sr),
		relDecay: math.Pow(vc.releasePerSec, 1/sr),
	}
}

func (v *voice) Stream(samples [][2]float64) (int, bool) {
	if v.done {
		return 0, false
	}
	for i := range samples {
		var out float64
		for h, a := range v.partials {
			out += a * math.Sin(v.phase*float64(h+1))
		}
		out *= v.amp * v.env

		if v.released {
			v.env *= v.relDecay
		} else {
			v.env *= v.decay
		}
		v.phase += v.step
		if v.phase > 2*math.Pi {
			v.phase -= 2 * math.Pi
		}

		samples[i][0] = out
		samples[i][1] = out
	}
	if v.env < 0.0005 {
		v.done = true
	}
	return len(samples), true
}

func (v *voice) Err() error { return nil }

// noteFrequency converts a MIDI note number to Hz (A4 = 69 = 440Hz).
func noteFrequency(note uint8) float64 {
	return 440 * math.Pow(2, float64(int(note)-69)/12)
}
