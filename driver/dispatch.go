package driver

import (
	"github.com/nixxel-company-limited/ql-print-server/protocol"
)

// Exchange is a command that has been sent and whose reply has not been
// read yet. The link refuses every other operation until Receive or
// Cancel is called.
type Exchange[R any] struct {
	link *Link
	cmd  protocol.ResponseCommand[R]
	done bool
}

// Begin sends cmd and returns the exchange that reads its reply.
func Begin[R any](l *Link, cmd protocol.ResponseCommand[R]) (*Exchange[R], error) {
	if err := l.ready(); err != nil {
		return nil, err
	}
	if err := l.write(cmd.Serialize()); err != nil {
		return nil, err
	}
	l.pending = true
	return &Exchange[R]{link: l, cmd: cmd}, nil
}

// Receive reads and decodes the reply. The link is released whether or not
// the read succeeds.
func (e *Exchange[R]) Receive() (R, error) {
	var zero R
	if e.done {
		return zero, ErrExchangeDone
	}
	e.done = true
	e.link.pending = false

	frame, err := e.link.read(e.cmd.ReplySize())
	if err != nil {
		return zero, err
	}
	return e.cmd.Decode(frame)
}

// Cancel releases the link without reading the reply. Any reply the
// printer still sends stays in the device buffer; recover the printer
// before the next exchange.
func (e *Exchange[R]) Cancel() {
	if e.done {
		return
	}
	e.done = true
	e.link.pending = false
}

// Query sends cmd and reads its reply.
func Query[R any](l *Link, cmd protocol.ResponseCommand[R]) (R, error) {
	ex, err := Begin(l, cmd)
	if err != nil {
		var zero R
		return zero, err
	}
	return ex.Receive()
}

// QueryStatus requests and decodes one status frame.
func QueryStatus(l *Link) (protocol.PrinterStatus, error) {
	return Query[protocol.PrinterStatus](l, protocol.StatusInfoRequest{})
}
