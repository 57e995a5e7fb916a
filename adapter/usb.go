package adapter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/google/gousb"
)

// Interface class codes
// Reference: http://www.usb.org/developers/defined_class
const (
	IfaceClassPrinter = 0x07
)

// BrotherVendorID is the USB vendor ID of Brother Industries.
const BrotherVendorID = 0x04F9

// DefaultUSBReadTimeout bounds a single bulk read.
const DefaultUSBReadTimeout = 100 * time.Millisecond

// EventType represents device events
type EventType int

const (
	EventConnect EventType = iota
	EventClose
	EventError
)

func (t EventType) String() string {
	switch t {
	case EventConnect:
		return "connect"
	case EventClose:
		return "close"
	case EventError:
		return "error"
	default:
		return fmt.Sprintf("event(%d)", int(t))
	}
}

// Event represents a device event
type Event struct {
	Type   EventType
	Device string
	Error  error
}

// USBConfig selects a USB printer. Zero IDs match any device of the
// printer class; an empty Serial matches any serial number.
type USBConfig struct {
	VendorID    uint16
	ProductID   uint16
	Serial      string
	ReadTimeout time.Duration
}

// USBAdapter manages USB printer communication
type USBAdapter struct {
	cfg            USBConfig
	ctx            *gousb.Context
	device         *gousb.Device
	config         *gousb.Config
	iface          *gousb.Interface
	outEndpoint    *gousb.OutEndpoint
	inEndpoint     *gousb.InEndpoint
	eventListeners map[EventType][]func(Event)
	listenersMutex sync.RWMutex
	isOpen         bool
	mu             sync.Mutex
}

// NewUSBAdapter creates a new USB adapter instance. The device is looked
// up when Open is called.
func NewUSBAdapter(cfg USBConfig) *USBAdapter {
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultUSBReadTimeout
	}
	return &USBAdapter{
		cfg:            cfg,
		eventListeners: make(map[EventType][]func(Event)),
	}
}

// NewUSBAdapterAuto creates an adapter for the first Brother printer found.
func NewUSBAdapterAuto() *USBAdapter {
	return NewUSBAdapter(USBConfig{VendorID: BrotherVendorID})
}

// Matches reports whether desc describes a printer selected by cfg.
func (cfg USBConfig) Matches(desc *gousb.DeviceDesc) bool {
	if desc == nil {
		return false
	}
	if cfg.VendorID != 0 && desc.Vendor != gousb.ID(cfg.VendorID) {
		return false
	}
	if cfg.ProductID != 0 && desc.Product != gousb.ID(cfg.ProductID) {
		return false
	}
	return IsPrinter(desc)
}

// IsPrinter reports whether any configuration of the device exposes a
// printer-class interface.
func IsPrinter(desc *gousb.DeviceDesc) bool {
	for _, cfg := range desc.Configs {
		for _, iface := range cfg.Interfaces {
			for _, alt := range iface.AltSettings {
				if alt.Class == IfaceClassPrinter {
					return true
				}
			}
		}
	}
	return false
}

// FindPrinters opens every printer matching cfg. The caller must close
// the returned devices.
func FindPrinters(ctx *gousb.Context, cfg USBConfig) ([]*gousb.Device, error) {
	devices, err := ctx.OpenDevices(cfg.Matches)
	if err != nil && len(devices) == 0 {
		return nil, fmt.Errorf("failed to enumerate usb devices: %w", err)
	}
	if cfg.Serial == "" {
		return devices, nil
	}

	var matched []*gousb.Device
	for _, dev := range devices {
		s, err := dev.SerialNumber()
		if err == nil && s == cfg.Serial {
			matched = append(matched, dev)
			continue
		}
		dev.Close()
	}
	return matched, nil
}

// On adds an event listener
func (a *USBAdapter) On(eventType EventType, handler func(Event)) {
	a.listenersMutex.Lock()
	defer a.listenersMutex.Unlock()

	a.eventListeners[eventType] = append(a.eventListeners[eventType], handler)
}

// emit triggers an event
func (a *USBAdapter) emit(event Event) {
	a.listenersMutex.RLock()
	defer a.listenersMutex.RUnlock()

	for _, handler := range a.eventListeners[event.Type] {
		go handler(event)
	}
}

// Open finds the device, claims its printer interface and locates the
// bulk endpoints.
func (a *USBAdapter) Open() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.isOpen {
		return errors.New("device already open")
	}

	if err := a.open(); err != nil {
		a.release()
		a.emit(Event{Type: EventError, Error: err})
		return err
	}

	a.isOpen = true
	a.emit(Event{Type: EventConnect, Device: a.device.String()})
	return nil
}

func (a *USBAdapter) open() error {
	a.ctx = gousb.NewContext()

	devices, err := FindPrinters(a.ctx, a.cfg)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		return errors.New("cannot find printer")
	}
	for _, extra := range devices[1:] {
		extra.Close()
	}
	a.device = devices[0]

	// Set auto-detach kernel driver on Linux
	if runtime.GOOS == "linux" {
		if err := a.device.SetAutoDetach(true); err != nil {
			return fmt.Errorf("failed to enable kernel driver auto-detach: %w", err)
		}
	}

	cfgNum, err := a.device.ActiveConfigNum()
	if err != nil {
		return fmt.Errorf("failed to get active config: %w", err)
	}

	a.config, err = a.device.Config(cfgNum)
	if err != nil {
		return fmt.Errorf("failed to get config: %w", err)
	}

	ifaceNum, altNum := -1, 0
	for _, iface := range a.config.Desc.Interfaces {
		for _, alt := range iface.AltSettings {
			if alt.Class == IfaceClassPrinter {
				ifaceNum, altNum = iface.Number, alt.Alternate
				break
			}
		}
		if ifaceNum >= 0 {
			break
		}
	}
	if ifaceNum < 0 {
		return errors.New("no printer interface found")
	}

	a.iface, err = a.config.Interface(ifaceNum, altNum)
	if err != nil {
		return fmt.Errorf("failed to claim interface: %w", err)
	}

	for _, epDesc := range a.iface.Setting.Endpoints {
		switch {
		case epDesc.Direction == gousb.EndpointDirectionOut && a.outEndpoint == nil:
			if ep, err := a.iface.OutEndpoint(epDesc.Number); err == nil {
				a.outEndpoint = ep
			}
		case epDesc.Direction == gousb.EndpointDirectionIn && a.inEndpoint == nil:
			if ep, err := a.iface.InEndpoint(epDesc.Number); err == nil {
				a.inEndpoint = ep
			}
		}
	}

	if a.outEndpoint == nil {
		return errors.New("cannot find output endpoint from printer")
	}
	if a.inEndpoint == nil {
		return errors.New("cannot find input endpoint from printer")
	}
	return nil
}

// Write sends data to the printer
func (a *USBAdapter) Write(data []byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.isOpen {
		return 0, ErrNotOpen
	}

	n, err := a.outEndpoint.Write(data)
	if err != nil {
		return n, fmt.Errorf("write failed: %w", err)
	}

	return n, nil
}

// Read reads data from the printer. A read that sees no data within the
// configured timeout fails with os.ErrDeadlineExceeded.
func (a *USBAdapter) Read(buf []byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.isOpen {
		return 0, ErrNotOpen
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ReadTimeout)
	defer cancel()

	n, err := a.inEndpoint.ReadContext(ctx, buf)
	if err != nil {
		if ctx.Err() != nil {
			return n, fmt.Errorf("read failed: %w", os.ErrDeadlineExceeded)
		}
		return n, fmt.Errorf("read failed: %w", err)
	}

	return n, nil
}

// Close releases the interface and closes the USB device
func (a *USBAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.isOpen {
		return nil
	}

	name := a.device.String()
	err := a.release()
	a.isOpen = false
	a.emit(Event{Type: EventClose, Device: name, Error: err})

	return err
}

func (a *USBAdapter) release() error {
	var errs []error

	if a.iface != nil {
		a.iface.Close()
		a.iface = nil
	}
	a.outEndpoint = nil
	a.inEndpoint = nil

	if a.config != nil {
		if err := a.config.Close(); err != nil {
			errs = append(errs, err)
		}
		a.config = nil
	}

	if a.device != nil {
		if err := a.device.Close(); err != nil {
			errs = append(errs, err)
		}
		a.device = nil
	}

	if a.ctx != nil {
		if err := a.ctx.Close(); err != nil {
			errs = append(errs, err)
		}
		a.ctx = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %w", errors.Join(errs...))
	}
	return nil
}

// IsOpen returns whether the device is open
func (a *USBAdapter) IsOpen() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.isOpen
}
