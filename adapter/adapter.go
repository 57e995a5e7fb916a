package adapter

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotOpen is returned by Read and Write on a closed adapter.
var ErrNotOpen = errors.New("device not open")

// Adapter defines the interface for printer communication adapters
type Adapter interface {
	// Open opens the connection to the printer
	Open() error

	// Write sends data to the printer
	Write(data []byte) (int, error)

	// Read reads data from the printer
	Read(buf []byte) (int, error)

	// Close closes the connection to the printer
	Close() error

	// IsOpen returns whether the connection is open
	IsOpen() bool
}

// Kind names an adapter implementation.
type Kind string

const (
	KindCharDevice Kind = "chardev"
	KindUSB        Kind = "usb"
	KindSerial     Kind = "serial"
)

// ParseKind parses an adapter name, case-insensitively.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindCharDevice, KindUSB, KindSerial:
		return k, nil
	}
	return "", fmt.Errorf("unknown adapter %q (want %s, %s or %s)", s, KindCharDevice, KindUSB, KindSerial)
}
