package protocol

import (
	"fmt"
	"strings"
)

// MediaType is the kind of media loaded, as reported at status offset 11
// and sent back in Set Print Information.
type MediaType byte

const (
	MediaNone       MediaType = 0x00
	MediaContinuous MediaType = 0x0A
	MediaDieCut     MediaType = 0x0B
)

func (m MediaType) Encode(s *Sink) error { return s.WriteByte(byte(m)) }

func (m MediaType) String() string {
	switch m {
	case MediaNone:
		return "none"
	case MediaContinuous:
		return "continuous"
	case MediaDieCut:
		return "die-cut"
	default:
		return fmt.Sprintf("media(0x%02X)", byte(m))
	}
}

// CommandMode selects how the printer interprets incoming data.
//
// The values are the ones the printer actually accepts; the vendor PDF
// lists different numbers for this table.
type CommandMode byte

const (
	ModeEscpNormal     CommandMode = 0x00
	ModeRaster         CommandMode = 0x01
	ModeEscpText       CommandMode = 0x02 // QL-650TD
	ModePtouchTemplate CommandMode = 0x03 // QL-580N/1050/1060N
)

func (m CommandMode) Encode(s *Sink) error { return s.WriteByte(byte(m)) }

func (m CommandMode) String() string {
	switch m {
	case ModeEscpNormal:
		return "escp-normal"
	case ModeRaster:
		return "raster"
	case ModeEscpText:
		return "escp-text"
	case ModePtouchTemplate:
		return "ptouch-template"
	default:
		return fmt.Sprintf("mode(0x%02X)", byte(m))
	}
}

// Mode is the argument of Set Mode (ESC i M).
type Mode struct {
	AutoCut bool
}

const modeAutoCutBit = 6

func (m Mode) Encode(s *Sink) error {
	return s.WriteByte(flag(m.AutoCut, modeAutoCutBit))
}

// ExpandedMode is the argument of Set Expanded Mode (ESC i K).
type ExpandedMode struct {
	// CutAtEnd is not supported by early QL-650TD firmware.
	CutAtEnd bool
	// HighResolution is QL-570/580N/700 only.
	HighResolution bool
}

const (
	expandedCutAtEndBit = 3
	expandedHighResBit  = 6
)

func (m ExpandedMode) Encode(s *Sink) error {
	return s.WriteByte(flag(m.CutAtEnd, expandedCutAtEndBit) | flag(m.HighResolution, expandedHighResBit))
}

func flag(set bool, bit uint) byte {
	if set {
		return 1 << bit
	}
	return 0
}

// StatusType is the reason a status frame was sent (offset 18).
type StatusType byte

const (
	StatusReply         StatusType = 0x00
	StatusPrintComplete StatusType = 0x01
	StatusError         StatusType = 0x02
	StatusNotification  StatusType = 0x05
	StatusPhaseChange   StatusType = 0x06
)

func (t StatusType) String() string {
	switch t {
	case StatusReply:
		return "reply"
	case StatusPrintComplete:
		return "print-complete"
	case StatusError:
		return "error"
	case StatusNotification:
		return "notification"
	case StatusPhaseChange:
		return "phase-change"
	default:
		return fmt.Sprintf("status(0x%02X)", byte(t))
	}
}

// PhaseState is the printer phase at offset 19.
type PhaseState byte

const (
	PhaseWaiting  PhaseState = 0x00
	PhasePrinting PhaseState = 0x01
)

func (p PhaseState) String() string {
	switch p {
	case PhaseWaiting:
		return "waiting"
	case PhasePrinting:
		return "printing"
	default:
		return fmt.Sprintf("phase(0x%02X)", byte(p))
	}
}

// ErrorInfo1 is error register #1 (offset 8).
type ErrorInfo1 byte

const (
	NoMediaWhenPrinting ErrorInfo1 = 0x01
	EndOfMedia          ErrorInfo1 = 0x02
	TapeCutterJam       ErrorInfo1 = 0x04
	MainUnitInUse       ErrorInfo1 = 0x10
	FanFailure          ErrorInfo1 = 0x80

	errorInfo1Mask = NoMediaWhenPrinting | EndOfMedia | TapeCutterJam | MainUnitInUse | FanFailure
)

// Has reports whether every bit of f is set.
func (e ErrorInfo1) Has(f ErrorInfo1) bool { return e&f == f }

func (e ErrorInfo1) String() string {
	return flagNames(byte(e), []flagName{
		{byte(NoMediaWhenPrinting), "no-media-when-printing"},
		{byte(EndOfMedia), "end-of-media"},
		{byte(TapeCutterJam), "tape-cutter-jam"},
		{byte(MainUnitInUse), "main-unit-in-use"},
		{byte(FanFailure), "fan-failure"},
	})
}

// ErrorInfo2 is error register #2 (offset 9).
type ErrorInfo2 byte

const (
	TransmissionError        ErrorInfo2 = 0x04
	CoverOpenedWhilePrinting ErrorInfo2 = 0x10
	CannotFeed               ErrorInfo2 = 0x40
	SystemError              ErrorInfo2 = 0x80

	errorInfo2Mask = TransmissionError | CoverOpenedWhilePrinting | CannotFeed | SystemError
)

// Has reports whether every bit of f is set.
func (e ErrorInfo2) Has(f ErrorInfo2) bool { return e&f == f }

func (e ErrorInfo2) String() string {
	return flagNames(byte(e), []flagName{
		{byte(TransmissionError), "transmission-error"},
		{byte(CoverOpenedWhilePrinting), "cover-opened-while-printing"},
		{byte(CannotFeed), "cannot-feed"},
		{byte(SystemError), "system-error"},
	})
}

type flagName struct {
	mask byte
	name string
}

func flagNames(v byte, names []flagName) string {
	if v == 0 {
		return "none"
	}
	var parts []string
	for _, n := range names {
		if v&n.mask != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// PrinterStatus is one decoded status frame. It is never mutated after
// decoding.
type PrinterStatus struct {
	MediaWidth  byte
	MediaLength byte
	MediaType   MediaType
	Error1      ErrorInfo1
	Error2      ErrorInfo2
	StatusType  StatusType
	PhaseState  PhaseState
}

// HasErrors reports whether either error register has a bit set.
func (s PrinterStatus) HasErrors() bool {
	return s.Error1 != 0 || s.Error2 != 0
}

func (s PrinterStatus) String() string {
	return fmt.Sprintf("media=%s %dx%dmm status=%s phase=%s errors=[%s] [%s]",
		s.MediaType, s.MediaWidth, s.MediaLength, s.StatusType, s.PhaseState, s.Error1, s.Error2)
}
