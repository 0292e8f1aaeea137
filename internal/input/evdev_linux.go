//go:build linux

package input

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	iocRead      = 2
	iocNRShift   = 0
	iocTypeShift = 8
	iocSizeShift = 16
	iocDirShift  = 30

	evdevName = 0x06
	evdevBit  = 0x20

	nameLen = 256
)

// eventSize is sizeof(struct input_event) on this platform.
var eventSize = int(unsafe.Sizeof(unix.Timeval{})) + 8

var errClosed = os.ErrClosed

func ioc(dir, typ, nr, size uintptr) uintptr {
	return dir<<iocDirShift | typ<<iocTypeShift | nr<<iocNRShift | size<<iocSizeShift
}

func eviocgname(size int) uintptr {
	return ioc(iocRead, 'E', evdevName, uintptr(size))
}

func eviocgbit(ev, size int) uintptr {
	return ioc(iocRead, 'E', uintptr(evdevBit+ev), uintptr(size))
}

func ioctlBuf(fd int, req uintptr, buf []byte) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(unsafe.Pointer(&buf[0])))
	if errno != 0 {
		return errno
	}
	return nil
}

type evdevDevice struct {
	path string
	name string
	caps Capabilities
	file *os.File
}

// openDevice opens an evdev node and reads its name and capabilities. The
// ioctls run on the raw descriptor before it is handed to the runtime poller.
func openDevice(path string) (device, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	name := make([]byte, nameLen)
	if err := ioctlBuf(fd, eviocgname(nameLen), name); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("EVIOCGNAME %s: %w", path, err)
	}

	caps := Capabilities{
		EV:  make([]byte, evMax/8+1),
		Key: make([]byte, keyMax/8+1),
		Abs: make([]byte, absMax/8+1),
	}
	bitmaps := []struct {
		ev  int
		buf []byte
	}{
		{0, caps.EV},
		{EvKey, caps.Key},
		{EvAbs, caps.Abs},
	}
	for _, b := range bitmaps {
		if err := ioctlBuf(fd, eviocgbit(b.ev, len(b.buf)), b.buf); err != nil {
			_ = unix.Close(fd)
			return nil, fmt.Errorf("EVIOCGBIT(%d) %s: %w", b.ev, path, err)
		}
	}

	return &evdevDevice{
		path: path,
		name: string(bytes.TrimRight(name, "\x00")),
		caps: caps,
		file: os.NewFile(uintptr(fd), path),
	}, nil
}

func (d *evdevDevice) Name() string {
	if d.name == "" {
		return d.path
	}
	return d.name
}

func (d *evdevDevice) Capabilities() (Capabilities, error) {
	return d.caps, nil
}

func (d *evdevDevice) Read() ([]Event, error) {
	buf := make([]byte, eventSize*64)
	n, err := d.file.Read(buf)
	if err != nil {
		if errors.Is(err, os.ErrClosed) {
			return nil, errClosed
		}
		return nil, err
	}
	return decodeEvents(d.Name(), buf[:n]), nil
}

func (d *evdevDevice) Close() error {
	return d.file.Close()
}

// decodeEvents decodes complete struct input_event records from buf.
func decodeEvents(name string, buf []byte) []Event {
	tvSize := eventSize - 8
	events := make([]Event, 0, len(buf)/eventSize)
	for off := 0; off+eventSize <= len(buf); off += eventSize {
		rec := buf[off : off+eventSize]
		var sec, usec int64
		if tvSize == 16 {
			sec = int64(binary.NativeEndian.Uint64(rec[0:8]))
			usec = int64(binary.NativeEndian.Uint64(rec[8:16]))
		} else {
			sec = int64(int32(binary.NativeEndian.Uint32(rec[0:4])))
			usec = int64(int32(binary.NativeEndian.Uint32(rec[4:8])))
		}
		events = append(events, Event{
			Device: name,
			Type:   binary.NativeEndian.Uint16(rec[tvSize : tvSize+2]),
			Code:   binary.NativeEndian.Uint16(rec[tvSize+2 : tvSize+4]),
			Value:  int32(binary.NativeEndian.Uint32(rec[tvSize+4 : tvSize+8])),
			Time:   time.Unix(sec, usec*int64(time.Microsecond)),
		})
	}
	return events
}
