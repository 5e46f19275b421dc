package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"keystage/audio"
	"keystage/config"
	"keystage/debug"
	"keystage/midi"
	"keystage/piano"
	"keystage/store"
	"keystage/synth"
	"keystage/theme"
	"keystage/widgets"
)

// pointerVelocity is the fixed strike strength for mouse input; terminals
// give us no pressure to map from.
const pointerVelocity = 0.75

// qwertyNotes maps the home-row vpiano layout to a chromatic run from
// middle C: letter row is the white keys, the row above is the black keys.
var qwertyNotes = map[string]uint8{
	"a": 60, "w": 61, "s": 62, "e": 63, "d": 64,
	"f": 65, "t": 66, "g": 67, "y": 68, "h": 69,
	"u": 70, "j": 71, "k": 72, "o": 73, "l": 74,
	"p": 75, ";": 76, "'": 77,
}

// qwertyHold is how long a tapped key sounds. Terminals report key presses
// only, never releases, so qwerty notes are scheduled taps rather than
// held keys.
const qwertyHold = 300 * time.Millisecond

// layoutBounds holds cached layout info
type layoutBounds struct {
	kbTop int
}

type Model struct {
	Keyboard  *piano.Keyboard
	Player    *piano.Player
	Performer *piano.Performer
	Synth     *synth.BeepSynth
	DeviceMgr *midi.DeviceManager
	Theme     *theme.Theme
	Config    *config.Config

	kbView    *widgets.Keyboard
	bounds    *layoutBounds
	quitting  bool
	mouseDown bool
	replaying bool
	transport audio.Transport
	status    string
}

type UpdateMsg struct{}

type DeviceEventMsg midi.DeviceEvent

func NewModel(kb *piano.Keyboard, pl *piano.Player, perf *piano.Performer, s *synth.BeepSynth, deviceMgr *midi.DeviceManager, th *theme.Theme, cfg *config.Config) Model {
	return Model{
		Keyboard:  kb,
		Player:    pl,
		Performer: perf,
		Synth:     s,
		DeviceMgr: deviceMgr,
		Theme:     th,
		Config:    cfg,
		kbView:    widgets.NewKeyboard(th),
		bounds:    &layoutBounds{},
	}
}

func ListenForUpdates(kb *piano.Keyboard) tea.Cmd {
	return func() tea.Msg {
		<-kb.UpdateChan
		return UpdateMsg{}
	}
}

func ListenForDevices(deviceMgr *midi.DeviceManager) tea.Cmd {
	return func() tea.Msg {
		event := <-deviceMgr.Events()
		return DeviceEventMsg(event)
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		ListenForUpdates(m.Keyboard),
		ListenForDevices(m.DeviceMgr),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			m.Performer.Cancel()
			m.Player.Stop()
			return m, tea.Quit

		case "r":
			m.toggleRecord()

		case " ":
			m.toggleReplay()

		case "x":
			m.deleteLatest()

		case "tab":
			m.Synth.SetPreset(m.Synth.Preset().Next())
			m.status = "preset: " + m.Synth.Preset().String()

		case "esc":
			m.Performer.Cancel()

		default:
			if note, ok := qwertyNotes[msg.String()]; ok {
				m.Performer.PlayNote(note, 0.8, qwertyHold)
			}
		}

	case tea.MouseMsg:
		m.handleMouse(msg)

	case UpdateMsg:
		return m, ListenForUpdates(m.Keyboard)

	case DeviceEventMsg:
		event := midi.DeviceEvent(msg)
		if event.Type == midi.DeviceConnected {
			// Forward raw hardware messages into the arbiter for the
			// lifetime of the port.
			go func(in *midi.Input) {
				for raw := range in.Messages() {
					m.Keyboard.HandleRawMessage(raw.Bytes())
				}
			}(event.Input)
		}
		return m, ListenForDevices(m.DeviceMgr)
	}

	return m, nil
}

func (m *Model) handleMouse(msg tea.MouseMsg) {
	note := m.kbView.HitTest(msg.X, msg.Y-m.bounds.kbTop)

	switch {
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		m.mouseDown = true
		m.Keyboard.PointerDown(note, pointerVelocity)
	case msg.Action == tea.MouseActionMotion && m.mouseDown:
		m.Keyboard.PointerDrag(note, pointerVelocity)
	case msg.Action == tea.MouseActionRelease:
		if m.mouseDown {
			m.mouseDown = false
			m.Keyboard.PointerUp()
		}
	}
}

func (m *Model) toggleRecord() {
	rec := m.Keyboard.Recorder()
	if !rec.Active() {
		rec.Start()
		m.status = "recording"
		return
	}
	take := rec.Stop()
	if len(take.Events) == 0 {
		m.status = "empty take discarded"
		return
	}
	id := take.StartedAt.Format("take-20060102-150405")
	saved, err := store.Save(m.Config.Store.TakesDir, id, take.Bytes(), nil)
	if err != nil {
		debug.Log("store", "save %s failed: %v", id, err)
		m.status = "save failed: " + err.Error()
		return
	}
	m.status = "saved " + saved.ID
}

// toggleReplay starts synchronized playback of the newest take, or stops the
// one in flight. Takes saved with audio replay against their wav; bare MIDI
// takes replay against a clock. With an empty local library the configured
// remote take is fetched instead.
func (m *Model) toggleReplay() {
	if m.replaying {
		m.Player.Stop()
		if m.transport != nil {
			m.transport.Pause()
		}
		m.replaying = false
		m.status = ""
		return
	}

	takes, err := store.List(m.Config.Store.TakesDir)
	if err != nil || len(takes) == 0 {
		m.replayRemote()
		return
	}
	latest := takes[0]
	res, err := store.Load(latest.MIDIPath)
	if err != nil || len(res.Events) == 0 {
		debug.Log("store", "load %s failed: %v", latest.ID, err)
		m.status = "take unreadable"
		return
	}

	var tr audio.Transport
	if latest.AudioPath != "" {
		ft, err := audio.Open(latest.AudioPath)
		if err != nil {
			debug.Log("store", "audio %s failed: %v", latest.ID, err)
			m.status = "audio unreadable"
			return
		}
		tr = ft
	} else {
		// Exactly the event span: a longer clock would read as drift and
		// trigger a bogus rescale.
		last := res.Events[len(res.Events)-1].Time
		tr = audio.NewClock(time.Duration(last) * time.Millisecond)
	}

	m.transport = tr
	m.replaying = true
	m.status = "playing " + latest.ID
	m.Player.Start(res, tr)
	tr.Play()
}

// replayRemote fetches the configured remote take and replays it against a
// clock. Fetch failures only surface as a status line.
func (m *Model) replayRemote() {
	baseURL, id := m.Config.Store.BaseURL, m.Config.Store.RemoteTake
	if baseURL == "" || id == "" {
		m.status = "no takes to play"
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	res, err := store.NewClient(baseURL).FetchEvents(ctx, id)
	if err != nil || len(res.Events) == 0 {
		debug.Log("store", "remote take %q unavailable: %v", id, err)
		m.status = "remote take unavailable"
		return
	}

	last := res.Events[len(res.Events)-1].Time
	tr := audio.NewClock(time.Duration(last) * time.Millisecond)
	m.transport = tr
	m.replaying = true
	m.status = "playing " + id + " (remote)"
	m.Player.Start(res, tr)
	tr.Play()
}

// deleteLatest drops the newest take from the library.
func (m *Model) deleteLatest() {
	takes, err := store.List(m.Config.Store.TakesDir)
	if err != nil || len(takes) == 0 {
		m.status = "nothing to delete"
		return
	}
	if err := store.Delete(m.Config.Store.TakesDir, takes[0].ID); err != nil {
		debug.Log("store", "delete %s failed: %v", takes[0].ID, err)
		m.status = "delete failed: " + err.Error()
		return
	}
	m.status = "deleted " + takes[0].ID
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	headerStyle := lipgloss.NewStyle().Foreground(m.Theme.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted())
	recordStyle := lipgloss.NewStyle().Foreground(m.Theme.Record())

	state := ""
	if m.Keyboard.Recorder().Active() {
		state = recordStyle.Render("  REC")
	} else if m.replaying && m.transport != nil && m.transport.Playing() {
		state = "  PLAY"
	}

	header := headerStyle.Render(fmt.Sprintf("keystage  %s  %s%s",
		m.Synth.Preset(), m.DeviceMgr.Status(), state))

	kbView := m.kbView.View(m.Keyboard.Snapshot())

	help := dimStyle.Render("a-': play  tab:preset  r:record  space:replay  x:delete  esc:silence  q:quit")

	headerHeight := lipgloss.Height(header)
	m.bounds.kbTop = 1 + headerHeight + 1

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("\n\n")
	out.WriteString(kbView)
	out.WriteString("\n\n")
	out.WriteString(help)

	if m.status != "" {
		out.WriteString("\n")
		out.WriteString(dimStyle.Render(m.status))
	}

	return out.String()
}
