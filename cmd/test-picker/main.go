// Command test-picker is a manual test for the screen color picker.
// It waits, then prints the color under the mouse cursor and the frame
// that would be sent to the strip.
//
// Usage:
//
//	go run ./cmd/test-picker [--delay 3s]
package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/chaz8081/bledob/internal/ble/protocol"
	"github.com/chaz8081/bledob/internal/picker"
)

func main() {
	delay := flag.Duration("delay", 3*time.Second, "time to move the cursor before sampling")
	flag.Parse()

	fmt.Printf("Sampling the color under the cursor in %s...\n", *delay)
	fmt.Println("Move the mouse over something colorful now!")

	c, err := picker.New().PickAfter(context.Background(), *delay)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Printf("Color: %s\n", c.Hex())
	fmt.Printf("Frame: %s\n", protocol.Encode(c))
}
