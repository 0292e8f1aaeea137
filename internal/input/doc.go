// Package input listens to touch capable evdev devices.
//
// # Overview
//
// A Listener enumerates device nodes matching a glob (by default
// /dev/input/event*), reads each device's capability bitmaps and keeps the
// devices that look like a multi-touch touchscreen (ABS_MT_POSITION_X and
// ABS_MT_POSITION_Y) or a touchpad (BTN_TOUCH with ABS_X and ABS_Y). Every
// event read from a kept device is delivered to the Handler as an Event.
//
// # Error Model
//
// Connect returns ErrNoInputDevices when nothing matched; callers are
// expected to carry on without the listener. A device that fails while
// reading is dropped and logged; the other devices keep running.
package input
