//go:build !linux

package input

import (
	"errors"
	"os"
)

var errClosed = os.ErrClosed

func openDevice(path string) (device, error) {
	return nil, errors.New("evdev input is only available on linux")
}
