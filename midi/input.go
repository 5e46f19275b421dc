package midi

import (
	"fmt"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// RawMessage is one channel-voice message exactly as it arrived from the
// port. Interpretation (note-on vs note-off, velocity-0 semantics) belongs
// to the keyboard arbiter, not this layer.
type RawMessage struct {
	Status uint8
	Data1  uint8
	Data2  uint8
}

func (m RawMessage) Bytes() []byte {
	return []byte{m.Status, m.Data1, m.Data2}
}

// Input wraps one hardware MIDI input port and forwards its channel-voice
// messages. Messages shorter than 3 bytes never make it onto the channel.
type Input struct {
	id       string
	inPort   drivers.In
	stopFunc func()
	messages chan RawMessage
}

// NewInput opens the port and starts listening.
func NewInput(id string, inPort drivers.In) (*Input, error) {
	in := &Input{
		id:       id,
		inPort:   inPort,
		messages: make(chan RawMessage, 64),
	}

	stop, err := gomidi.ListenTo(inPort, func(msg gomidi.Message, timestampms int32) {
		if len(msg) < 3 {
			return
		}
		select {
		case in.messages <- RawMessage{Status: msg[0], Data1: msg[1], Data2: msg[2]}:
		default:
			// Drop rather than stall the driver callback.
		}
	})
	if err != nil {
		return nil, fmt.Errorf("open input %q: %w", id, err)
	}
	in.stopFunc = stop
	return in, nil
}

func (in *Input) ID() string { return in.id }

// Messages returns the stream of raw channel-voice messages.
func (in *Input) Messages() <-chan RawMessage { return in.messages }

func (in *Input) Close() error {
	if in.stopFunc != nil {
		in.stopFunc()
	}
	close(in.messages)
	return nil
}
