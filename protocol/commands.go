package protocol

import "bytes"

const (
	esc = 0x1B
	// ESC i prefixes every printer-specific command.
	escI = 0x69

	// ResetLength is the number of 0x00 bytes that flush any partial
	// command out of the printer's parser.
	ResetLength = 200

	// printInfoValidFlags marks media type, width, length and quality
	// as valid, plus the recovery-on bit.
	printInfoValidFlags = 0x02 | 0x04 | 0x08 | 0x40 | 0x80
)

// Raster frame layout: {'g', 0x00, len} followed by len data bytes.
const (
	RasterMagic      = 'g'
	RasterHeaderSize = 3
	MaxRasterPayload = 254
	MaxBytesPerLine  = 255
)

// Reset clears the printer's input buffer.
type Reset struct{}

func (Reset) Serialize() []byte { return make([]byte, ResetLength) }

// Invalid sends a single null byte.
type Invalid struct{}

func (Invalid) Serialize() []byte { return []byte{0x00} }

// Initialize clears print settings (ESC @).
type Initialize struct{}

func (Initialize) Serialize() []byte { return []byte{esc, 0x40} }

// StatusInfoRequest asks for a StatusSize byte status frame (ESC i S).
type StatusInfoRequest struct{}

func (StatusInfoRequest) Serialize() []byte { return []byte{esc, escI, 0x53} }

func (StatusInfoRequest) ReplySize() int { return StatusSize }

func (StatusInfoRequest) Decode(frame []byte) (PrinterStatus, error) {
	return DecodeStatus(frame)
}

// SetCompressionMode selects uncompressed raster data (M 0).
type SetCompressionMode struct{}

func (SetCompressionMode) Serialize() []byte { return []byte{0x4D, 0x00} }

// ZeroRasterGraphics prints one blank raster line.
type ZeroRasterGraphics struct{}

func (ZeroRasterGraphics) Serialize() []byte { return []byte{0x5A} }

// Print prints the buffered page without feeding.
type Print struct{}

func (Print) Serialize() []byte { return []byte{0x0C} }

// PrintWithFeeding prints the buffered page and feeds the media out.
type PrintWithFeeding struct{}

func (PrintWithFeeding) Serialize() []byte { return []byte{0x1A} }

// SetCommandMode switches the printer's command interpreter (ESC i a).
type SetCommandMode struct {
	mode CommandMode
}

func NewSetCommandMode(mode CommandMode) SetCommandMode {
	return SetCommandMode{mode: mode}
}

func (c SetCommandMode) Serialize() []byte {
	return build(Bytes{esc, escI, 0x61}, c.mode)
}

// SetPrintInformation announces the media and the number of raster lines
// that follow (ESC i z).
type SetPrintInformation struct {
	mediaType   MediaType
	width       uint8
	length      uint8
	rasterLines uint32
}

func NewSetPrintInformation(mediaType MediaType, width, length uint8, rasterLines uint32) SetPrintInformation {
	return SetPrintInformation{
		mediaType:   mediaType,
		width:       width,
		length:      length,
		rasterLines: rasterLines,
	}
}

func (c SetPrintInformation) Serialize() []byte {
	return build(
		Bytes{esc, escI, 0x7A, printInfoValidFlags},
		c.mediaType,
		U8(c.width),
		U8(c.length),
		U32(c.rasterLines),
		Bytes{0x01, 0x00},
	)
}

// SetMarginAmount sets the feed amount in dots (ESC i d).
type SetMarginAmount struct {
	margin uint16
}

func NewSetMarginAmount(margin uint16) SetMarginAmount {
	return SetMarginAmount{margin: margin}
}

func (c SetMarginAmount) Serialize() []byte {
	return build(Bytes{esc, escI, 0x64}, U16(c.margin))
}

// SetBaudRate changes the serial interface speed (ESC i B).
type SetBaudRate struct {
	rate uint16
}

func NewSetBaudRate(rate uint16) SetBaudRate {
	return SetBaudRate{rate: rate}
}

func (c SetBaudRate) Serialize() []byte {
	return build(Bytes{esc, escI, 0x42}, U16(c.rate))
}

// SetMode sets the various mode flags (ESC i M).
type SetMode struct {
	mode Mode
}

func NewSetMode(mode Mode) SetMode {
	return SetMode{mode: mode}
}

func (c SetMode) Serialize() []byte {
	return build(Bytes{esc, escI, 0x4D}, c.mode)
}

// SetExpandedMode sets the expanded mode flags (ESC i K).
type SetExpandedMode struct {
	mode ExpandedMode
}

func NewSetExpandedMode(mode ExpandedMode) SetExpandedMode {
	return SetExpandedMode{mode: mode}
}

func (c SetExpandedMode) Serialize() []byte {
	return build(Bytes{esc, escI, 0x4B}, c.mode)
}

// RasterGraphicsTransfer sends one raster line as a standalone command.
type RasterGraphicsTransfer struct {
	data []byte
}

// NewRasterGraphicsTransfer copies data. It fails with ErrWrongDataSize
// when data is 255 bytes or longer.
func NewRasterGraphicsTransfer(data []byte) (RasterGraphicsTransfer, error) {
	if len(data) > MaxRasterPayload {
		return RasterGraphicsTransfer{}, ErrWrongDataSize
	}
	return RasterGraphicsTransfer{data: bytes.Clone(data)}, nil
}

func (c RasterGraphicsTransfer) Serialize() []byte {
	frame := make([]byte, RasterHeaderSize+len(c.data))
	PutRasterHeader(frame, len(c.data))
	copy(frame[RasterHeaderSize:], c.data)
	return frame
}

// PutRasterHeader writes the raster frame header for a payload of n bytes
// into the first RasterHeaderSize bytes of dst.
func PutRasterHeader(dst []byte, n int) {
	dst[0] = RasterMagic
	dst[1] = 0x00
	dst[2] = byte(n)
}
