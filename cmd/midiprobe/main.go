package main

import (
	"fmt"
	"os"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"keystage/smf"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	switch os.Args[1] {
	case "list":
		listPorts()
	case "dump":
		if len(os.Args) < 3 {
			usage()
			return
		}
		dumpFile(os.Args[2])
	case "roundtrip":
		if len(os.Args) < 3 {
			usage()
			return
		}
		roundtrip(os.Args[2])
	case "monitor":
		monitor()
	default:
		usage()
	}
}

func usage() {
	fmt.Println("MIDI Probe")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list             - List all MIDI input ports")
	fmt.Println("  dump <file>      - Decode a .mid file and print its note events")
	fmt.Println("  roundtrip <file> - Decode, re-encode and compare a .mid file")
	fmt.Println("  monitor          - Print raw messages from the first input port")
}

func listPorts() {
	fmt.Println("=== MIDI Input Ports ===")
	fmt.Println("(waiting up to 3 seconds...)")

	ch := make(chan []drivers.In, 1)
	go func() {
		ch <- gomidi.GetInPorts()
	}()

	select {
	case ins := <-ch:
		if len(ins) == 0 {
			fmt.Println("  (none)")
		}
		for i, p := range ins {
			fmt.Printf("  %d: %s\n", i, p.String())
		}
	case <-time.After(3 * time.Second):
		fmt.Println("\nTIMEOUT! The MIDI backend is hung.")
	}
}

func dumpFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	res := smf.Decode(data)
	fmt.Printf("%s: %d events, tempo %dus/quarter", path, len(res.Events), res.MicrosPerQuarter)
	if res.HasTempoMeta {
		fmt.Print(" (from tempo meta)")
	}
	fmt.Println()

	for _, ev := range res.Events {
		kind := "on "
		if ev.Kind == smf.Off {
			kind = "off"
		}
		fmt.Printf("  %8dms  %s note=%3d vel=%.2f\n", ev.Time, kind, ev.Note, ev.Velocity)
	}
}

func roundtrip(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	first := smf.Decode(data)
	second := smf.Decode(smf.Encode(first.Events))

	if len(first.Events) != len(second.Events) {
		fmt.Printf("MISMATCH: %d events in, %d out\n", len(first.Events), len(second.Events))
		os.Exit(1)
	}

	worst := int64(0)
	for i := range first.Events {
		a, b := first.Events[i], second.Events[i]
		if a.Kind != b.Kind || a.Note != b.Note {
			fmt.Printf("MISMATCH at event %d: %+v vs %+v\n", i, a, b)
			os.Exit(1)
		}
		d := a.Time - b.Time
		if d < 0 {
			d = -d
		}
		if d > worst {
			worst = d
		}
	}

	fmt.Printf("OK: %d events, worst time deviation %dms\n", len(first.Events), worst)
}

func monitor() {
	ins := gomidi.GetInPorts()
	if len(ins) == 0 {
		fmt.Println("No input ports")
		return
	}

	port := ins[0]
	fmt.Printf("Monitoring %s (ctrl+c to stop)...\n", port.String())

	stop, err := gomidi.ListenTo(port, func(msg gomidi.Message, timestampms int32) {
		fmt.Printf("  %6dms  % X\n", timestampms, msg.Bytes())
	})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer stop()

	select {}
}
