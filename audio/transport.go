// Package audio owns the playback-side audio path: the speaker device and
// the transport abstraction the synchronized player polls. The player never
// drives the transport; play/pause/seek belong to the surrounding UI.
package audio

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
)

// Transport is an independently-controlled audio element. Duration reports
// ok=false until the length of the underlying medium is known, which for
// streamed sources may lag behind Play.
type Transport interface {
	Playing() bool
	Position() time.Duration
	Duration() (time.Duration, bool)
	Play()
	Pause()
	Seek(time.Duration) error
}

// SampleRate is the shared output rate for the synth and file playback.
const SampleRate = beep.SampleRate(44100)

var speakerOnce sync.Once

// Init opens the speaker once with a small buffer for low latency. Safe to
// call from every component that produces sound.
func Init() error {
	var err error
	speakerOnce.Do(func() {
		err = speaker.Init(SampleRate, SampleRate.N(time.Second/20))
	})
	if err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}
	return nil
}

// FileTransport plays a WAV take from disk. Position and Duration come
// straight from the decoded stream, so metadata is available as soon as Open
// returns.
type FileTransport struct {
	mu      sync.Mutex
	stream  beep.StreamSeekCloser
	format  beep.Format
	ctrl    *beep.Ctrl
	started bool
}

// Open decodes the WAV header and prepares a paused transport.
func Open(path string) (*FileTransport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open take audio: %w", err)
	}
	stream, format, err := wav.Decode(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decode take audio: %w", err)
	}
	t := &FileTransport{stream: stream, format: format}
	// Resample in case the file rate differs from the output device.
	resampled := beep.Resample(4, format.SampleRate, SampleRate, stream)
	t.ctrl = &beep.Ctrl{Streamer: resampled, Paused: true}
	return t, nil
}

func (t *FileTransport) Play() {
	t.mu.Lock()
	defer t.mu.Unlock()
	speaker.Lock()
	t.ctrl.Paused = false
	speaker.Unlock()
	if !t.started {
		t.started = true
		speaker.Play(t.ctrl)
	}
}

func (t *FileTransport) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	speaker.Lock()
	t.ctrl.Paused = true
	speaker.Unlock()
}

func (t *FileTransport) Seek(to time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	speaker.Lock()
	defer speaker.Unlock()
	n := t.format.SampleRate.N(to)
	if n < 0 {
		n = 0
	}
	if n >= t.stream.Len() {
		n = t.stream.Len() - 1
	}
	if err := t.stream.Seek(n); err != nil {
		return fmt.Errorf("seek take audio: %w", err)
	}
	return nil
}

func (t *FileTransport) Playing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	speaker.Lock()
	defer speaker.Unlock()
	return t.started && !t.ctrl.Paused && t.stream.Position() < t.stream.Len()
}

func (t *FileTransport) Position() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	speaker.Lock()
	defer speaker.Unlock()
	return t.format.SampleRate.D(t.stream.Position())
}

func (t *FileTransport) Duration() (time.Duration, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.format.SampleRate.D(t.stream.Len()), true
}

// Close stops playback and releases the file.
func (t *FileTransport) Close() error {
	t.Pause()
	return t.stream.Close()
}
