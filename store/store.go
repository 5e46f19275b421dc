// Package store persists finished takes as a blob pair (MIDI file + WAV
// audio) and fetches remote takes for synchronized playback. It never
// interprets events beyond handing bytes to the codec.
package store

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"keystage/debug"
	"keystage/smf"
)

// Take names the blob pair on disk.
type Take struct {
	ID        string
	MIDIPath  string
	AudioPath string
	SavedAt   time.Time
}

// Save writes the pair under dir, creating it if needed. The audio blob may
// be nil when no audio capture ran; the MIDI file is always written.
func Save(dir, id string, midiData, audioData []byte) (Take, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return Take{}, fmt.Errorf("create takes dir: %w", err)
	}
	t := Take{
		ID:       id,
		MIDIPath: filepath.Join(dir, id+".mid"),
		SavedAt:  time.Now(),
	}
	if err := os.WriteFile(t.MIDIPath, midiData, 0644); err != nil {
		return Take{}, fmt.Errorf("write take midi: %w", err)
	}
	if audioData != nil {
		t.AudioPath = filepath.Join(dir, id+".wav")
		if err := os.WriteFile(t.AudioPath, audioData, 0644); err != nil {
			return Take{}, fmt.Errorf("write take audio: %w", err)
		}
	}
	debug.Log("store", "saved take %q (%d midi bytes, %d audio bytes)", id, len(midiData), len(audioData))
	return t, nil
}

// List returns the saved takes in dir, newest first.
func List(dir string) ([]Take, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read takes dir: %w", err)
	}

	var takes []Take
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".mid") {
			continue
		}
		id := strings.TrimSuffix(name, ".mid")
		t := Take{ID: id, MIDIPath: filepath.Join(dir, name)}
		if info, err := e.Info(); err == nil {
			t.SavedAt = info.ModTime()
		}
		wav := filepath.Join(dir, id+".wav")
		if _, err := os.Stat(wav); err == nil {
			t.AudioPath = wav
		}
		takes = append(takes, t)
	}
	sort.Slice(takes, func(i, j int) bool { return takes[i].SavedAt.After(takes[j].SavedAt) })
	return takes, nil
}

// Delete removes both blobs of a take. A missing audio blob is not an error.
func Delete(dir, id string) error {
	if err := os.Remove(filepath.Join(dir, id+".mid")); err != nil {
		return fmt.Errorf("delete take midi: %w", err)
	}
	if err := os.Remove(filepath.Join(dir, id+".wav")); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete take audio: %w", err)
	}
	return nil
}

// Load reads and decodes the MIDI blob of a local take.
func Load(path string) (smf.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return smf.Result{MicrosPerQuarter: smf.DefaultMicrosPerQuarter}, fmt.Errorf("read take midi: %w", err)
	}
	return smf.Decode(data), nil
}

// Client fetches remote takes over HTTP. Transport failures are logged and
// returned; callers treat them as "playback does not start", never fatal.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

// FetchEvents downloads and decodes the MIDI stream for a recording ID.
func (c *Client) FetchEvents(ctx context.Context, id string) (smf.Result, error) {
	empty := smf.Result{MicrosPerQuarter: smf.DefaultMicrosPerQuarter}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/takes/"+id+".mid", nil)
	if err != nil {
		return empty, fmt.Errorf("build take request: %w", err)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		debug.Log("store", "fetch take %q failed: %v", id, err)
		return empty, fmt.Errorf("fetch take: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		debug.Log("store", "fetch take %q: status %d", id, resp.StatusCode)
		return empty, fmt.Errorf("fetch take: unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		debug.Log("store", "fetch take %q: read body: %v", id, err)
		return empty, fmt.Errorf("read take body: %w", err)
	}
	return smf.Decode(data), nil
}
