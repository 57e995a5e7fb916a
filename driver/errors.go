package driver

import (
	"errors"
	"fmt"

	"github.com/nixxel-company-limited/ql-print-server/protocol"
)

var (
	// ErrReadTimeout is returned when every read attempt failed.
	ErrReadTimeout = errors.New("printer did not answer in time")

	// ErrRasterActive is returned when the link is in use by a raster
	// session.
	ErrRasterActive = errors.New("raster session already active")

	// ErrReplyPending is returned when a command reply has not been
	// received yet.
	ErrReplyPending = errors.New("command reply pending")

	// ErrExchangeDone is returned by a second Receive on the same exchange.
	ErrExchangeDone = errors.New("reply already received")

	// ErrSessionClosed is returned by SendLine after End.
	ErrSessionClosed = errors.New("raster session closed")

	// ErrSessionAborted is returned by SendLine after a failed write.
	ErrSessionAborted = errors.New("raster session aborted after write failure")

	// ErrImageTooWide is returned for an image with more pixels per row
	// than a raster line holds.
	ErrImageTooWide = errors.New("image wider than raster line")

	// ErrEmptyImage is returned for an image without a single complete row.
	ErrEmptyImage = errors.New("image has no rows")
)

// StatusError is returned when the printer reports an error condition
// before a job is sent.
type StatusError struct {
	Status protocol.PrinterStatus
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("printer reported errors: %s, %s", e.Status.Error1, e.Status.Error2)
}
