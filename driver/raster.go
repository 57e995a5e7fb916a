package driver

import (
	"fmt"

	"github.com/nixxel-company-limited/ql-print-server/protocol"
)

// RasterSession streams an image one scanline per write. It holds the
// link exclusively from BeginRaster until End.
type RasterSession struct {
	link         *Link
	bytesPerLine int
	frame        []byte
	bits         int
	closed       bool
	err          error
}

// BeginRaster opens a raster session of bytesPerLine bytes per scanline,
// between 1 and protocol.MaxBytesPerLine.
func (l *Link) BeginRaster(bytesPerLine int) (*RasterSession, error) {
	if bytesPerLine < 1 || bytesPerLine > protocol.MaxBytesPerLine {
		return nil, fmt.Errorf("%w: %d bytes per line", protocol.ErrWrongDataSize, bytesPerLine)
	}
	if err := l.ready(); err != nil {
		return nil, err
	}

	s := &RasterSession{
		link:         l,
		bytesPerLine: bytesPerLine,
		frame:        make([]byte, protocol.RasterHeaderSize+bytesPerLine),
	}
	protocol.PutRasterHeader(s.frame, bytesPerLine)
	l.raster = true
	return s, nil
}

// BytesPerLine returns the payload size of every frame.
func (s *RasterSession) BytesPerLine() int { return s.bytesPerLine }

// Width returns the number of pixels in one line.
func (s *RasterSession) Width() int { return s.bytesPerLine * 8 }

// Push appends pixels to the current line, most significant bit first.
// Pushing past Width pixels panics.
func (s *RasterSession) Push(bits []bool) {
	if s.bits+len(bits) > s.Width() {
		panic(fmt.Sprintf("driver: raster line overflow: %d pixels pushed to a %d pixel line", s.bits+len(bits), s.Width()))
	}

	data := s.frame[protocol.RasterHeaderSize:]
	for _, black := range bits {
		if black {
			data[s.bits/8] |= 0x80 >> (s.bits % 8)
		}
		s.bits++
	}
}

// SendLine writes the current line, zero padded to Width pixels, as one
// frame and starts a new line.
func (s *RasterSession) SendLine() error {
	switch {
	case s.closed:
		return ErrSessionClosed
	case s.err != nil:
		return fmt.Errorf("%w: %v", ErrSessionAborted, s.err)
	}

	err := s.link.write(s.frame)
	s.resetLine()
	if err != nil {
		s.err = err
		return err
	}
	return nil
}

func (s *RasterSession) resetLine() {
	clear(s.frame[protocol.RasterHeaderSize:])
	s.bits = 0
}

// End releases the link. It sends nothing; the caller issues the print
// command. Calling End more than once is a no-op.
func (s *RasterSession) End() {
	if s.closed {
		return
	}
	s.closed = true
	s.link.raster = false
}
