package input

import (
	"errors"
	"time"
)

// Event types and codes used for device matching.
const (
	EvKey = 0x01
	EvAbs = 0x03

	AbsX           = 0x00
	AbsY           = 0x01
	AbsMTPositionX = 0x35
	AbsMTPositionY = 0x36

	BtnTouch = 0x14a

	evMax  = 0x1f
	keyMax = 0x2ff
	absMax = 0x3f
)

// ErrNoInputDevices is returned by Connect when no device matched.
var ErrNoInputDevices = errors.New("no touch capable input devices")

// Event is one input event from a matched device.
type Event struct {
	Device string
	Type   uint16
	Code   uint16
	Value  int32
	Time   time.Time
}

// Handler receives events. It is called from the device's read goroutine.
type Handler func(Event)

// Capabilities holds a device's event type, key and absolute axis bitmaps.
type Capabilities struct {
	EV  []byte
	Key []byte
	Abs []byte
}

func testBit(bits []byte, n int) bool {
	i := n / 8
	if i >= len(bits) {
		return false
	}
	return bits[i]&(1<<(uint(n)%8)) != 0
}

// MultiTouch reports whether c describes a multi-touch touchscreen.
func (c Capabilities) MultiTouch() bool {
	return testBit(c.EV, EvAbs) &&
		testBit(c.Abs, AbsMTPositionX) &&
		testBit(c.Abs, AbsMTPositionY)
}

// Touchpad reports whether c describes a touchpad.
func (c Capabilities) Touchpad() bool {
	return testBit(c.Key, BtnTouch) &&
		testBit(c.Abs, AbsX) &&
		testBit(c.Abs, AbsY)
}

// Matches reports whether a device with capabilities c triggers boosts.
func (c Capabilities) Matches() bool {
	return c.MultiTouch() || c.Touchpad()
}
