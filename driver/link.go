package driver

import (
	"fmt"
	"io"
	"time"

	"github.com/nixxel-company-limited/ql-print-server/adapter"
	"github.com/nixxel-company-limited/ql-print-server/protocol"
)

const (
	// BufferSize is the capacity of the link's read buffer. Reads must be
	// strictly shorter.
	BufferSize = 64

	// ReadAttempts bounds the number of exact-length reads per Read.
	ReadAttempts = 10

	DefaultReadBackoff = 5 * time.Millisecond
)

// LinkOption configures a Link.
type LinkOption func(*Link)

// WithReadBackoff sets the pause between failed read attempts.
func WithReadBackoff(d time.Duration) LinkOption {
	return func(l *Link) {
		l.backoff = d
	}
}

// Link is the byte transport to one printer. It allows exactly one
// outstanding operation and is not safe for concurrent use.
type Link struct {
	dev     adapter.Adapter
	buf     [BufferSize]byte
	backoff time.Duration

	raster  bool
	pending bool
}

// Open opens the character device at path for reading and writing.
func Open(path string, opts ...LinkOption) (*Link, error) {
	return NewLink(adapter.NewCharDevice(path), opts...)
}

// NewLink wraps dev, opening it first if needed.
func NewLink(dev adapter.Adapter, opts ...LinkOption) (*Link, error) {
	if !dev.IsOpen() {
		if err := dev.Open(); err != nil {
			return nil, err
		}
	}

	l := &Link{dev: dev, backoff: DefaultReadBackoff}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Close closes the underlying device.
func (l *Link) Close() error {
	return l.dev.Close()
}

// Write sends p in a single device write.
func (l *Link) Write(p []byte) error {
	if err := l.ready(); err != nil {
		return err
	}
	return l.write(p)
}

// Read reads exactly n bytes and returns a copy of them. It panics if n is
// not smaller than BufferSize.
func (l *Link) Read(n int) ([]byte, error) {
	if err := l.ready(); err != nil {
		return nil, err
	}
	return l.read(n)
}

// Send writes the serialized command.
func (l *Link) Send(cmd protocol.Command) error {
	if err := l.ready(); err != nil {
		return err
	}
	return l.write(cmd.Serialize())
}

func (l *Link) ready() error {
	switch {
	case l.pending:
		return ErrReplyPending
	case l.raster:
		return ErrRasterActive
	}
	return nil
}

func (l *Link) write(p []byte) error {
	n, err := l.dev.Write(p)
	if err != nil {
		return err
	}
	if n != len(p) {
		return fmt.Errorf("%w: wrote %d of %d bytes", io.ErrShortWrite, n, len(p))
	}
	return nil
}

func (l *Link) read(n int) ([]byte, error) {
	if n < 0 || n >= BufferSize {
		panic(fmt.Sprintf("driver: read of %d bytes does not fit the %d byte link buffer", n, BufferSize))
	}

	buf := l.buf[:n]
	var err error
	for attempt := 0; attempt < ReadAttempts; attempt++ {
		if attempt > 0 && l.backoff > 0 {
			time.Sleep(l.backoff)
		}
		if _, err = io.ReadFull(l.dev, buf); err == nil {
			out := make([]byte, n)
			copy(out, buf)
			return out, nil
		}
	}
	return nil, fmt.Errorf("%w after %d attempts: %v", ErrReadTimeout, ReadAttempts, err)
}
