package driver

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/nixxel-company-limited/ql-print-server/adapter"
	"github.com/nixxel-company-limited/ql-print-server/protocol"
)

// DefaultBytesPerLine covers the 720 dot print head of the QL series.
const DefaultBytesPerLine = 90

// Option configures a Printer.
type Option func(*Printer)

// WithBytesPerLine sets the raster line size.
func WithBytesPerLine(n int) Option {
	return func(p *Printer) { p.bytesPerLine = n }
}

// WithMargin sets the feed amount in dots.
func WithMargin(dots uint16) Option {
	return func(p *Printer) { p.margin = dots }
}

// WithMode sends Set Mode before every job.
func WithMode(m protocol.Mode) Option {
	return func(p *Printer) { p.mode = &m }
}

// WithExpandedMode sends Set Expanded Mode before every job.
func WithExpandedMode(m protocol.ExpandedMode) Option {
	return func(p *Printer) { p.expanded = &m }
}

// WithFeed selects PrintWithFeeding (true, the default) or Print.
func WithFeed(feed bool) Option {
	return func(p *Printer) { p.feed = feed }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Printer) { p.logger = logger }
}

// Printer drives a whole print job over one Link.
type Printer struct {
	link         *Link
	bytesPerLine int
	margin       uint16
	mode         *protocol.Mode
	expanded     *protocol.ExpandedMode
	feed         bool
	logger       zerolog.Logger
}

// OpenPrinter opens the character device at path and initializes the
// printer.
func OpenPrinter(path string, opts ...Option) (*Printer, error) {
	return OpenPrinterOn(adapter.NewCharDevice(path), opts...)
}

// OpenPrinterOn initializes the printer behind dev.
func OpenPrinterOn(dev adapter.Adapter, opts ...Option) (*Printer, error) {
	link, err := NewLink(dev)
	if err != nil {
		return nil, err
	}

	p, err := NewPrinter(link, opts...)
	if err != nil {
		link.Close()
		return nil, err
	}
	return p, nil
}

// NewPrinter takes over link and initializes the printer with Reset and
// Initialize.
func NewPrinter(link *Link, opts ...Option) (*Printer, error) {
	p := &Printer{
		link:         link,
		bytesPerLine: DefaultBytesPerLine,
		feed:         true,
		logger:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.bytesPerLine < 1 || p.bytesPerLine > protocol.MaxBytesPerLine {
		return nil, fmt.Errorf("%w: %d bytes per line", protocol.ErrWrongDataSize, p.bytesPerLine)
	}

	if err := p.Recover(); err != nil {
		return nil, err
	}
	return p, nil
}

// Width returns the number of pixels in one raster line.
func (p *Printer) Width() int {
	return p.bytesPerLine * 8
}

// Recover clears the printer's input buffer and settings. Call it after
// any failed job.
func (p *Printer) Recover() error {
	if err := p.link.Send(protocol.Reset{}); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	if err := p.link.Send(protocol.Initialize{}); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	p.logger.Debug().Msg("printer initialized")
	return nil
}

// Status requests the current printer status.
func (p *Printer) Status() (protocol.PrinterStatus, error) {
	status, err := QueryStatus(p.link)
	if err != nil {
		return protocol.PrinterStatus{}, fmt.Errorf("status request: %w", err)
	}
	return status, nil
}

// PrintImage prints img on the loaded media and returns the status the
// printer reported before the job. A status with error flags aborts the
// job with a *StatusError before any raster data is sent.
func (p *Printer) PrintImage(img Image) (protocol.PrinterStatus, error) {
	if img.Width() > p.Width() {
		return protocol.PrinterStatus{}, fmt.Errorf("%w: %d > %d pixels", ErrImageTooWide, img.Width(), p.Width())
	}
	lines := img.Lines()
	if lines == 0 {
		return protocol.PrinterStatus{}, ErrEmptyImage
	}

	if err := p.link.Send(protocol.NewSetCommandMode(protocol.ModeRaster)); err != nil {
		return protocol.PrinterStatus{}, fmt.Errorf("set command mode: %w", err)
	}

	status, err := p.Status()
	if err != nil {
		return protocol.PrinterStatus{}, err
	}
	p.logger.Debug().Stringer("status", status).Msg("printer status")

	if status.HasErrors() {
		return status, &StatusError{Status: status}
	}

	setup := []protocol.Command{
		protocol.NewSetPrintInformation(status.MediaType, status.MediaWidth, status.MediaLength, uint32(lines)),
		protocol.NewSetMarginAmount(p.margin),
	}
	if p.mode != nil {
		setup = append(setup, protocol.NewSetMode(*p.mode))
	}
	if p.expanded != nil {
		setup = append(setup, protocol.NewSetExpandedMode(*p.expanded))
	}
	for _, cmd := range setup {
		if err := p.link.Send(cmd); err != nil {
			return status, fmt.Errorf("job setup: %w", err)
		}
	}

	session, err := p.link.BeginRaster(p.bytesPerLine)
	if err != nil {
		return status, err
	}
	sent, err := StreamImage(session, img)
	session.End()
	if err != nil {
		return status, err
	}

	var final protocol.Command = protocol.PrintWithFeeding{}
	if !p.feed {
		final = protocol.Print{}
	}
	if err := p.link.Send(final); err != nil {
		return status, fmt.Errorf("print: %w", err)
	}

	p.logger.Info().
		Int("lines", sent).
		Stringer("media", status.MediaType).
		Uint8("media_width", status.MediaWidth).
		Msg("image printed")

	return status, nil
}

// Close closes the link.
func (p *Printer) Close() error {
	return p.link.Close()
}
