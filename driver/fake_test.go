package driver

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nixxel-company-limited/ql-print-server/protocol"
)

var errUnavailable = errors.New("resource temporarily unavailable")

// fakeDevice is an in-memory adapter.Adapter. Every Write is recorded as
// one frame; reads are served from rx after failReads failures.
type fakeDevice struct {
	open      bool
	openErr   error
	writes    [][]byte
	rx        []byte
	failReads int
	reads     int
	failWrite int // fail the n-th write (1-based) when > 0
	writeErr  error
	short     bool
}

func (d *fakeDevice) Open() error {
	if d.openErr != nil {
		return d.openErr
	}
	d.open = true
	return nil
}

func (d *fakeDevice) Write(data []byte) (int, error) {
	if d.failWrite > 0 && len(d.writes)+1 == d.failWrite {
		d.failWrite = 0
		return 0, d.writeErr
	}
	frame := make([]byte, len(data))
	copy(frame, data)
	d.writes = append(d.writes, frame)
	if d.short && len(data) > 0 {
		return len(data) - 1, nil
	}
	return len(data), nil
}

func (d *fakeDevice) Read(buf []byte) (int, error) {
	d.reads++
	if d.reads <= d.failReads {
		return 0, errUnavailable
	}
	if len(d.rx) == 0 {
		return 0, io.EOF
	}
	n := copy(buf, d.rx)
	d.rx = d.rx[n:]
	return n, nil
}

func (d *fakeDevice) Close() error {
	d.open = false
	return nil
}

func (d *fakeDevice) IsOpen() bool { return d.open }

func newTestLink(t *testing.T, dev *fakeDevice) *Link {
	t.Helper()
	l, err := NewLink(dev, WithReadBackoff(0))
	require.NoError(t, err)
	return l
}

func statusFrame(media protocol.MediaType, width, length byte) []byte {
	frame := make([]byte, protocol.StatusSize)
	frame[0] = 0x80
	frame[1] = 0x20
	frame[10] = width
	frame[11] = byte(media)
	frame[17] = length
	return frame
}
