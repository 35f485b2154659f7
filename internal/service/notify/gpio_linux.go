//go:build linux

package notify

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// OpenGPIOLine requests offset on chip as an output driven low.
func OpenGPIOLine(chip string, offset int) (Line, error) {
	line, err := gpiocdev.RequestLine(chip, offset, gpiocdev.AsOutput(0), gpiocdev.WithConsumer("bell-scheduler"))
	if err != nil {
		return nil, fmt.Errorf("request gpio %s:%d: %w", chip, offset, err)
	}

	return line, nil
}
