package protocol

import "fmt"

// StatusSize is the length of every status frame.
const StatusSize = 32

// Status frame offsets.
const (
	offsetMagic0      = 0
	offsetMagic1      = 1
	offsetError1      = 8
	offsetError2      = 9
	offsetMediaWidth  = 10
	offsetMediaType   = 11
	offsetMediaLength = 17
	offsetStatusType  = 18
	offsetPhaseState  = 19
)

// StatusMagic is the header every status frame starts with.
var StatusMagic = [2]byte{0x80, 0x20}

// DecodeStatus parses a status frame.
//
// A frame that is not StatusSize bytes or does not start with StatusMagic
// yields ErrFraming. Codes outside the known media type, status type and
// phase state tables yield a *BadDataError.
func DecodeStatus(frame []byte) (PrinterStatus, error) {
	if len(frame) != StatusSize {
		return PrinterStatus{}, fmt.Errorf("%w: got %d bytes, expected %d", ErrFraming, len(frame), StatusSize)
	}
	if frame[offsetMagic0] != StatusMagic[0] || frame[offsetMagic1] != StatusMagic[1] {
		return PrinterStatus{}, fmt.Errorf("%w: 0x%02X 0x%02X", ErrFraming, frame[offsetMagic0], frame[offsetMagic1])
	}

	mediaType, err := decodeMediaType(frame[offsetMediaType])
	if err != nil {
		return PrinterStatus{}, err
	}
	statusType, err := decodeStatusType(frame[offsetStatusType])
	if err != nil {
		return PrinterStatus{}, err
	}
	phase, err := decodePhaseState(frame[offsetPhaseState])
	if err != nil {
		return PrinterStatus{}, err
	}

	return PrinterStatus{
		MediaWidth:  frame[offsetMediaWidth],
		MediaLength: frame[offsetMediaLength],
		MediaType:   mediaType,
		Error1:      ErrorInfo1(frame[offsetError1]) & errorInfo1Mask,
		Error2:      ErrorInfo2(frame[offsetError2]) & errorInfo2Mask,
		StatusType:  statusType,
		PhaseState:  phase,
	}, nil
}

func decodeMediaType(b byte) (MediaType, error) {
	switch m := MediaType(b); m {
	case MediaNone, MediaContinuous, MediaDieCut:
		return m, nil
	}
	return 0, &BadDataError{Field: "media type", Value: b}
}

func decodeStatusType(b byte) (StatusType, error) {
	switch t := StatusType(b); t {
	case StatusReply, StatusPrintComplete, StatusError, StatusNotification, StatusPhaseChange:
		return t, nil
	}
	return 0, &BadDataError{Field: "status type", Value: b}
}

func decodePhaseState(b byte) (PhaseState, error) {
	switch p := PhaseState(b); p {
	case PhaseWaiting, PhasePrinting:
		return p, nil
	}
	return 0, &BadDataError{Field: "phase state", Value: b}
}
