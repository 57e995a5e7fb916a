package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statusFrame() []byte {
	frame := make([]byte, StatusSize)
	frame[0] = 0x80
	frame[1] = 0x20
	frame[2] = 'B'
	frame[3] = '0'
	frame[10] = 62
	frame[11] = byte(MediaContinuous)
	return frame
}

func TestDecodeStatus(t *testing.T) {
	frame := statusFrame()
	frame[8] = byte(EndOfMedia | FanFailure)
	frame[9] = byte(CoverOpenedWhilePrinting)
	frame[17] = 100
	frame[18] = byte(StatusError)
	frame[19] = byte(PhasePrinting)

	status, err := DecodeStatus(frame)
	require.NoError(t, err)

	assert.Equal(t, byte(62), status.MediaWidth)
	assert.Equal(t, byte(100), status.MediaLength)
	assert.Equal(t, MediaContinuous, status.MediaType)
	assert.Equal(t, StatusError, status.StatusType)
	assert.Equal(t, PhasePrinting, status.PhaseState)
	assert.True(t, status.Error1.Has(EndOfMedia))
	assert.True(t, status.Error1.Has(FanFailure))
	assert.False(t, status.Error1.Has(TapeCutterJam))
	assert.True(t, status.Error2.Has(CoverOpenedWhilePrinting))
	assert.True(t, status.HasErrors())
}

func TestDecodeStatusThroughCommand(t *testing.T) {
	var cmd ResponseCommand[PrinterStatus] = StatusInfoRequest{}
	assert.Equal(t, 32, cmd.ReplySize())

	status, err := cmd.Decode(statusFrame())
	require.NoError(t, err)
	assert.False(t, status.HasErrors())
	assert.Equal(t, StatusReply, status.StatusType)
	assert.Equal(t, PhaseWaiting, status.PhaseState)
}

func TestDecodeStatusMasksUndefinedBits(t *testing.T) {
	frame := statusFrame()
	frame[8] = 0x08 | 0x20 | 0x40
	frame[9] = 0x01 | 0x02 | 0x08 | 0x20

	status, err := DecodeStatus(frame)
	require.NoError(t, err)
	assert.Equal(t, ErrorInfo1(0), status.Error1)
	assert.Equal(t, ErrorInfo2(0), status.Error2)
	assert.False(t, status.HasErrors())
}

func TestDecodeStatusBadHeader(t *testing.T) {
	frame := statusFrame()
	frame[0] = 0x00

	_, err := DecodeStatus(frame)
	assert.ErrorIs(t, err, ErrFraming)

	frame = statusFrame()
	frame[1] = 0x21
	_, err = DecodeStatus(frame)
	assert.ErrorIs(t, err, ErrFraming)
}

func TestDecodeStatusWrongLength(t *testing.T) {
	_, err := DecodeStatus(statusFrame()[:31])
	assert.ErrorIs(t, err, ErrFraming)

	_, err = DecodeStatus(append(statusFrame(), 0x00))
	assert.ErrorIs(t, err, ErrFraming)
}

func TestDecodeStatusUnknownCodes(t *testing.T) {
	tests := []struct {
		name   string
		offset int
		value  byte
		field  string
	}{
		{"media type", 11, 0x0C, "media type"},
		{"status type", 18, 0x03, "status type"},
		{"phase state", 19, 0x02, "phase state"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := statusFrame()
			frame[tt.offset] = tt.value

			_, err := DecodeStatus(frame)
			require.Error(t, err)
			assert.True(t, IsBadData(err))

			var bd *BadDataError
			require.ErrorAs(t, err, &bd)
			assert.Equal(t, tt.field, bd.Field)
			assert.Equal(t, tt.value, bd.Value)
			assert.Contains(t, err.Error(), "received bad data")
		})
	}
}

func TestErrorFlagStrings(t *testing.T) {
	assert.Equal(t, "none", ErrorInfo1(0).String())
	assert.Equal(t, "end-of-media|fan-failure", (EndOfMedia | FanFailure).String())
	assert.Equal(t, "none", ErrorInfo2(0).String())
	assert.Equal(t, "transmission-error|system-error", (TransmissionError | SystemError).String())
}

func TestStatusString(t *testing.T) {
	status, err := DecodeStatus(statusFrame())
	require.NoError(t, err)
	assert.Equal(t, "media=continuous 62x0mm status=reply phase=waiting errors=[none] [none]", status.String())
}
