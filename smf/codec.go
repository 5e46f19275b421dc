package smf

import (
	"bytes"
	"encoding/binary"
	"math"
	"sort"
)

// Result is the outcome of decoding a MIDI byte stream. A malformed stream
// yields the zero-event Result with the default tempo, never an error.
type Result struct {
	Events           []Event
	HasTempoMeta     bool
	MicrosPerQuarter int
}

const (
	headerSig     = "MThd"
	trackSig      = "MTrk"
	metaStatus    = 0xFF
	metaTempo     = 0x51
	metaEndOfTrak = 0x2F
	sysexStart    = 0xF0
	sysexEnd      = 0xF7
)

// Encode serializes events as a single-track format-0 Standard MIDI File at
// 480 ticks per quarter. Off events are written as note-on velocity 0. An
// empty event list still produces a parseable header + end-of-track.
func Encode(events []Event) []byte {
	var track bytes.Buffer

	lastTicks := int64(0)
	for _, ev := range events {
		ticks := MsToTicks(ev.Time, 0)
		delta := ticks - lastTicks
		if delta < 0 {
			delta = 0
		}
		lastTicks = ticks

		track.Write(encodeVarLen(uint32(delta)))
		switch ev.Kind {
		case On:
			vel := int(math.Round(ev.Velocity * 127))
			if vel < 1 {
				vel = 1 // velocity 0 means note-off on the wire
			}
			if vel > 127 {
				vel = 127
			}
			track.Write([]byte{0x90, ev.Note & 0x7F, uint8(vel)})
		case Off:
			track.Write([]byte{0x90, ev.Note & 0x7F, 0x00})
		}
	}
	track.Write([]byte{0x00, metaStatus, metaEndOfTrak, 0x00})

	var out bytes.Buffer
	out.WriteString(headerSig)
	binary.Write(&out, binary.BigEndian, uint32(6))
	binary.Write(&out, binary.BigEndian, uint16(0)) // format 0
	binary.Write(&out, binary.BigEndian, uint16(1)) // one track
	binary.Write(&out, binary.BigEndian, uint16(TicksPerQuarter))
	out.WriteString(trackSig)
	binary.Write(&out, binary.BigEndian, uint32(track.Len()))
	out.Write(track.Bytes())
	return out.Bytes()
}

// Decode parses a MIDI byte stream back into timed events. Tick times convert
// to milliseconds using the tempo in effect at the point each event is read,
// starting from the nominal default until a tempo meta-event overrides it.
// Events come back sorted by time. Corrupt input must never escape Decode.
func Decode(data []byte) (res Result) {
	res = Result{MicrosPerQuarter: DefaultMicrosPerQuarter}
	defer func() {
		if recover() != nil {
			res = Result{MicrosPerQuarter: DefaultMicrosPerQuarter}
		}
	}()

	if len(data) < 14 || string(data[0:4]) != headerSig {
		return res
	}

	// Locate the first track chunk by signature scan. The encoder only ever
	// writes one; anything after it is ignored.
	pos := 8 + int(binary.BigEndian.Uint32(data[4:8]))
	for pos+8 <= len(data) && string(data[pos:pos+4]) != trackSig {
		pos += 8 + int(binary.BigEndian.Uint32(data[pos+4:pos+8]))
	}
	if pos+8 > len(data) {
		return res
	}
	trackEnd := pos + 8 + int(binary.BigEndian.Uint32(data[pos+4:pos+8]))
	if trackEnd > len(data) {
		trackEnd = len(data)
	}
	pos += 8

	var (
		ticks   int64
		tempo   = DefaultMicrosPerQuarter
		running byte
		events  []Event
	)

walk:
	for pos < trackEnd {
		delta, n, ok := readVarLen(data[pos:trackEnd])
		if !ok {
			break
		}
		pos += n
		ticks += int64(delta)
		if pos >= trackEnd {
			break
		}

		status := data[pos]
		if status&0x80 != 0 {
			pos++
		} else {
			// Running status: reuse the previous status byte.
			if running == 0 {
				break
			}
			status = running
		}

		switch {
		case status == metaStatus:
			running = 0
			if pos+1 >= trackEnd {
				break walk
			}
			metaType := data[pos]
			pos++
			length, n, ok := readVarLen(data[pos:trackEnd])
			if !ok || pos+n+int(length) > trackEnd {
				break walk
			}
			pos += n
			if metaType == metaTempo && length == 3 {
				tempo = int(data[pos])<<16 | int(data[pos+1])<<8 | int(data[pos+2])
				res.HasTempoMeta = true
				res.MicrosPerQuarter = tempo
			}
			pos += int(length)
			if metaType == metaEndOfTrak {
				break walk
			}

		case status == sysexStart || status == sysexEnd:
			running = 0
			length, n, ok := readVarLen(data[pos:trackEnd])
			if !ok {
				break walk
			}
			pos += n + int(length)

		default:
			running = status
			nd := dataBytes(status)
			if nd == 0 || pos+nd > trackEnd {
				break walk
			}
			note, vel := data[pos], byte(0)
			if nd == 2 {
				vel = data[pos+1]
			}
			pos += nd

			switch status & 0xF0 {
			case 0x90:
				if vel > 0 {
					events = append(events, Event{
						Kind:     On,
						Note:     note,
						Velocity: float64(vel) / 127,
						Time:     TicksToMs(ticks, tempo),
					})
				} else {
					events = append(events, Event{Kind: Off, Note: note, Time: TicksToMs(ticks, tempo)})
				}
			case 0x80:
				events = append(events, Event{Kind: Off, Note: note, Time: TicksToMs(ticks, tempo)})
			}
		}
	}

	sort.SliceStable(events, func(i, j int) bool { return events[i].Time < events[j].Time })
	res.Events = events
	return res
}

// dataBytes returns the data byte count for a channel-voice status, 0 if the
// status is not a channel message.
func dataBytes(status byte) int {
	switch status & 0xF0 {
	case 0x80, 0x90, 0xA0, 0xB0, 0xE0:
		return 2
	case 0xC0, 0xD0:
		return 1
	}
	return 0
}

// readVarLen reads a MIDI variable-length quantity (7 bits per byte, MSB is
// the continuation flag, at most 4 bytes).
func readVarLen(data []byte) (value uint32, n int, ok bool) {
	for i := 0; i < 4 && i < len(data); i++ {
		b := data[i]
		value = value<<7 | uint32(b&0x7F)
		if b&0x80 == 0 {
			return value, i + 1, true
		}
	}
	return 0, 0, false
}

// encodeVarLen writes a variable-length quantity, big-endian 7-bit groups
// with the continuation bit set on all but the final byte.
func encodeVarLen(v uint32) []byte {
	buf := [4]byte{}
	i := 3
	buf[i] = byte(v & 0x7F)
	v >>= 7
	for v > 0 && i > 0 {
		i--
		buf[i] = byte(v&0x7F) | 0x80
		v >>= 7
	}
	return buf[i:]
}
