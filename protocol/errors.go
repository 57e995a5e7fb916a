package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrWrongDataSize is returned when a raster payload would not fit the
	// one-byte length field of a raster frame.
	ErrWrongDataSize = errors.New("raster data transfer payload must be shorter than 255 bytes")

	// ErrFraming means a reply was not a well-formed status frame. The
	// host and printer are out of step, so the link cannot be trusted:
	// callers must recover the printer (Reset, then Initialize) before
	// sending anything else on the same link.
	ErrFraming = errors.New("status frame has a bad header")
)

// BadDataError reports a field holding a code the protocol does not define.
type BadDataError struct {
	Field string
	Value byte
}

func (e *BadDataError) Error() string {
	return fmt.Sprintf("received bad data: unknown %s 0x%02X", e.Field, e.Value)
}

// IsBadData returns true if err is or wraps a *BadDataError.
func IsBadData(err error) bool {
	var bd *BadDataError
	return errors.As(err, &bd)
}
