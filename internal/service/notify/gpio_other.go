//go:build !linux

package notify

import "errors"

// OpenGPIOLine is not available on non-Linux platforms.
func OpenGPIOLine(string, int) (Line, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}
