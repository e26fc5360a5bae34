// Command test-hotkey is a manual test for the global hotkey listener.
// Run it, then press the default bindings (Ctrl+Alt+L, Ctrl+Alt+Up,
// Ctrl+Alt+Down, Ctrl+Alt+E) to see the actions they map to.
// Press Ctrl+C to exit.
//
// Usage:
//
//	go run ./cmd/test-hotkey
package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/chaz8081/bledob/internal/config"
	"github.com/chaz8081/bledob/internal/hotkey"
)

func main() {
	var bindings []hotkey.Binding
	for _, b := range config.Default().Hotkey.Bindings {
		bindings = append(bindings, hotkey.Binding{Keys: b.Keys, Action: b.Action})
		fmt.Printf("  %-16s %s\n", strings.Join(b.Keys, "+"), b.Action)
	}
	fmt.Println("Listening... Press Ctrl+C to exit.")

	listener := hotkey.NewListener(bindings)

	// Handle Ctrl+C
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		fmt.Println("\nShutting down...")
		listener.Stop()
	}()

	// Read events
	go func() {
		for ev := range listener.Events() {
			in, ok := hotkey.IntentFor(ev.Action)
			if !ok {
				fmt.Printf("??? %s (no intent)\n", ev.Action)
				continue
			}
			fmt.Printf(">>> %s -> %s %d\n", ev.Action, in.Kind, in.Percent)
		}
		fmt.Println("Event channel closed.")
	}()

	// Blocks until stopped
	listener.Start()
	fmt.Println("Done.")
}
