package smf

// EventKind distinguishes note-on from note-off.
type EventKind uint8

const (
	On EventKind = iota
	Off
)

// Event is a single note transition, timed in milliseconds relative to the
// start of a take. Velocity is normalized 0..1 and only meaningful for On.
type Event struct {
	Kind     EventKind
	Note     uint8
	Velocity float64
	Time     int64
}

// Timing constants shared by the encoder, the decoder and the recorder.
// One quarter note is nominally 1000ms, so one tick is about 2.083ms.
const (
	TicksPerQuarter         = 480
	DefaultMicrosPerQuarter = 1_000_000
)

// Playable keyboard range (88 keys, A0..C8).
const (
	LowestNote  = 21
	HighestNote = 108
	NumNotes    = 128
)

// TicksToMs converts an absolute tick count to milliseconds under the given
// tempo. A zero tempo means the nominal default.
func TicksToMs(ticks int64, microsPerQuarter int) int64 {
	if microsPerQuarter <= 0 {
		microsPerQuarter = DefaultMicrosPerQuarter
	}
	return ticks * int64(microsPerQuarter) / (TicksPerQuarter * 1000)
}

// MsToTicks is the inverse of TicksToMs within integer rounding. Negative
// inputs clamp to zero: a recording never encodes a negative delta.
func MsToTicks(ms int64, microsPerQuarter int) int64 {
	if microsPerQuarter <= 0 {
		microsPerQuarter = DefaultMicrosPerQuarter
	}
	if ms <= 0 {
		return 0
	}
	return ms * TicksPerQuarter * 1000 / int64(microsPerQuarter)
}
