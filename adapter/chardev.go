package adapter

import (
	"errors"
	"fmt"
	"os"
	"sync"
)

// DefaultDevicePath is where the Linux usblp driver exposes the first
// USB printer.
const DefaultDevicePath = "/dev/usb/lp0"

// CharDevice talks to a printer through a character device such as
// /dev/usb/lp0.
type CharDevice struct {
	path string
	file *os.File
	mu   sync.Mutex
}

// NewCharDevice returns an unopened adapter for the device at path.
func NewCharDevice(path string) *CharDevice {
	if path == "" {
		path = DefaultDevicePath
	}
	return &CharDevice{path: path}
}

// Path returns the device path.
func (d *CharDevice) Path() string {
	return d.path
}

// Open opens the device for reading and writing
func (d *CharDevice) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.file != nil {
		return errors.New("device already open")
	}

	f, err := os.OpenFile(d.path, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", d.path, err)
	}

	d.file = f
	return nil
}

// Write sends data to the printer
func (d *CharDevice) Write(data []byte) (int, error) {
	f, err := d.handle()
	if err != nil {
		return 0, err
	}

	n, err := f.Write(data)
	if err != nil {
		return n, fmt.Errorf("write failed: %w", err)
	}
	return n, nil
}

// Read reads data from the printer. The usblp driver answers with
// zero bytes while the printer has nothing to say, which surfaces here
// as io.EOF.
func (d *CharDevice) Read(buf []byte) (int, error) {
	f, err := d.handle()
	if err != nil {
		return 0, err
	}
	return f.Read(buf)
}

// Close closes the device
func (d *CharDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.file == nil {
		return nil
	}

	err := d.file.Close()
	d.file = nil
	return err
}

// IsOpen returns whether the device is open
func (d *CharDevice) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.file != nil
}

func (d *CharDevice) handle() (*os.File, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.file == nil {
		return nil, ErrNotOpen
	}
	return d.file, nil
}
