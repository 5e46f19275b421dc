package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"keystage/config"
	"keystage/debug"
	"keystage/midi"
	"keystage/piano"
	"keystage/synth"
	"keystage/theme"
	"keystage/tui"
)

func main() {
	if os.Getenv("KEYSTAGE_DEBUG") != "" {
		if err := debug.Enable(); err != nil {
			fmt.Printf("debug log: %v\n", err)
		}
		defer debug.Disable()
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("config: %v\n", err)
		os.Exit(1)
	}

	// Load theme
	palette := theme.Default()
	if cfg.UI.PalettePath != "" {
		palette = theme.MustLoadGPL(cfg.UI.PalettePath)
	}
	th := theme.New(palette)

	// Bring up sound
	s, err := synth.NewBeep(synth.PresetByName(cfg.UI.Preset))
	if err != nil {
		fmt.Printf("audio: %v\n", err)
		os.Exit(1)
	}

	// Core engine: arbiter plus the services that play through it
	kb := piano.NewKeyboard(s)
	player := piano.NewPlayer(kb)
	performer := piano.NewPerformer(kb)

	// Create MIDI device manager (handles hot-plug)
	deviceMgr := midi.NewDeviceManager(cfg)

	// Start device manager in background
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go deviceMgr.Run(ctx)

	fmt.Println("keystage")
	fmt.Println("Connect MIDI keyboards any time - they'll be detected automatically")
	fmt.Println("")

	// Create and run TUI
	m := tui.NewModel(kb, player, performer, s, deviceMgr, th, cfg)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())

	if _, err := p.Run(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}
