package adapter

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"
	"time"

	"go.bug.st/serial"
)

const (
	DefaultBaudRate          = 9600
	DefaultSerialReadTimeout = 100 * time.Millisecond
)

// SerialConfig describes a serial connection. The link is always 8N1.
type SerialConfig struct {
	Port        string
	BaudRate    int
	ReadTimeout time.Duration
}

type serialPort interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
}

// SerialAdapter talks to a printer over an RS-232 port.
type SerialAdapter struct {
	cfg       SerialConfig
	port      serialPort
	openPort  func(name string, mode *serial.Mode) (serialPort, error)
	listPorts func() ([]string, error)
	mu        sync.Mutex
}

// NewSerialAdapter returns an unopened serial adapter.
func NewSerialAdapter(cfg SerialConfig) *SerialAdapter {
	if cfg.BaudRate <= 0 {
		cfg.BaudRate = DefaultBaudRate
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultSerialReadTimeout
	}
	return &SerialAdapter{
		cfg: cfg,
		openPort: func(name string, mode *serial.Mode) (serialPort, error) {
			return serial.Open(name, mode)
		},
		listPorts: ListSerialPorts,
	}
}

// ListSerialPorts returns the serial ports present on the system.
func ListSerialPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	return ports, nil
}

// Open opens the port at the configured baud rate.
func (a *SerialAdapter) Open() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.port != nil {
		return errors.New("device already open")
	}
	if a.cfg.Port == "" {
		return errors.New("serial port not configured")
	}

	mode := &serial.Mode{
		BaudRate: a.cfg.BaudRate,
		Parity:   serial.NoParity,
		DataBits: 8,
		StopBits: serial.OneStopBit,
	}

	port, err := a.openPort(a.cfg.Port, mode)
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", a.cfg.Port, err)
	}

	if err := port.SetReadTimeout(a.cfg.ReadTimeout); err != nil {
		port.Close()
		return fmt.Errorf("failed to set read timeout: %w", err)
	}

	a.port = port
	return nil
}

// Write sends data to the printer
func (a *SerialAdapter) Write(data []byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.port == nil {
		return 0, ErrNotOpen
	}

	n, err := a.port.Write(data)
	if err != nil {
		return n, fmt.Errorf("write failed: %w", err)
	}
	return n, nil
}

// Read reads data from the printer. The serial driver reports an expired
// read timeout as zero bytes without an error; that is returned as
// os.ErrDeadlineExceeded so callers never spin on empty reads.
func (a *SerialAdapter) Read(buf []byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.port == nil {
		return 0, ErrNotOpen
	}

	n, err := a.port.Read(buf)
	if err != nil {
		return n, fmt.Errorf("read failed: %w", err)
	}
	if n == 0 && len(buf) > 0 {
		return 0, fmt.Errorf("read failed: %w", os.ErrDeadlineExceeded)
	}
	return n, nil
}

// Close closes the port
func (a *SerialAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.port == nil {
		return nil
	}

	err := a.port.Close()
	a.port = nil
	return err
}

// IsOpen returns whether the port is open
func (a *SerialAdapter) IsOpen() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.port != nil
}

// Available reports whether the configured port is present on the system.
func (a *SerialAdapter) Available() (bool, error) {
	ports, err := a.listPorts()
	if err != nil {
		return false, err
	}
	return slices.Contains(ports, a.cfg.Port), nil
}
