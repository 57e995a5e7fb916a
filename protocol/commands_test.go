package protocol

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedCommands(t *testing.T) {
	tests := []struct {
		name     string
		cmd      Command
		expected []byte
	}{
		{"invalid", Invalid{}, []byte{0x00}},
		{"initialize", Initialize{}, []byte{0x1B, 0x40}},
		{"status request", StatusInfoRequest{}, []byte{0x1B, 0x69, 0x53}},
		{"compression", SetCompressionMode{}, []byte{0x4D, 0x00}},
		{"zero raster", ZeroRasterGraphics{}, []byte{0x5A}},
		{"print", Print{}, []byte{0x0C}},
		{"print with feeding", PrintWithFeeding{}, []byte{0x1A}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.cmd.Serialize())
		})
	}
}

func TestReset(t *testing.T) {
	out := Reset{}.Serialize()
	require.Len(t, out, 200)
	assert.Equal(t, make([]byte, 200), out)
}

func TestSetCommandMode(t *testing.T) {
	assert.Equal(t, []byte{0x1B, 0x69, 0x61, 0x00}, NewSetCommandMode(ModeEscpNormal).Serialize())
	assert.Equal(t, []byte{0x1B, 0x69, 0x61, 0x01}, NewSetCommandMode(ModeRaster).Serialize())
	assert.Equal(t, []byte{0x1B, 0x69, 0x61, 0x02}, NewSetCommandMode(ModeEscpText).Serialize())
	assert.Equal(t, []byte{0x1B, 0x69, 0x61, 0x03}, NewSetCommandMode(ModePtouchTemplate).Serialize())
}

func TestSetPrintInformation(t *testing.T) {
	cmd := NewSetPrintInformation(MediaContinuous, 62, 0, 2)
	assert.Equal(t,
		[]byte{0x1B, 0x69, 0x7A, 0xCE, 0x0A, 62, 0, 0x02, 0x00, 0x00, 0x00, 0x01, 0x00},
		cmd.Serialize())

	cmd = NewSetPrintInformation(MediaDieCut, 29, 90, 0x01020304)
	assert.Equal(t,
		[]byte{0x1B, 0x69, 0x7A, 0xCE, 0x0B, 29, 90, 0x04, 0x03, 0x02, 0x01, 0x01, 0x00},
		cmd.Serialize())
}

func TestSetMarginAmount(t *testing.T) {
	assert.Equal(t, []byte{0x1B, 0x69, 0x64, 0x23, 0x00}, NewSetMarginAmount(35).Serialize())
	assert.Equal(t, []byte{0x1B, 0x69, 0x64, 0x34, 0x12}, NewSetMarginAmount(0x1234).Serialize())
}

func TestSetBaudRate(t *testing.T) {
	assert.Equal(t, []byte{0x1B, 0x69, 0x42, 0x60, 0x00}, NewSetBaudRate(96).Serialize())
	assert.Equal(t, []byte{0x1B, 0x69, 0x42, 0x00, 0x04}, NewSetBaudRate(1024).Serialize())
}

func TestSetMode(t *testing.T) {
	assert.Equal(t, []byte{0x1B, 0x69, 0x4D, 0x00}, NewSetMode(Mode{}).Serialize())
	assert.Equal(t, []byte{0x1B, 0x69, 0x4D, 0x40}, NewSetMode(Mode{AutoCut: true}).Serialize())
}

func TestSetExpandedMode(t *testing.T) {
	assert.Equal(t, []byte{0x1B, 0x69, 0x4B, 0x00}, NewSetExpandedMode(ExpandedMode{}).Serialize())
	assert.Equal(t, []byte{0x1B, 0x69, 0x4B, 0x08}, NewSetExpandedMode(ExpandedMode{CutAtEnd: true}).Serialize())
	assert.Equal(t, []byte{0x1B, 0x69, 0x4B, 0x40}, NewSetExpandedMode(ExpandedMode{HighResolution: true}).Serialize())
	assert.Equal(t, []byte{0x1B, 0x69, 0x4B, 0x48},
		NewSetExpandedMode(ExpandedMode{CutAtEnd: true, HighResolution: true}).Serialize())
}

func TestRasterGraphicsTransfer(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		cmd, err := NewRasterGraphicsTransfer(nil)
		require.NoError(t, err)
		assert.Equal(t, []byte{'g', 0x00, 0x00}, cmd.Serialize())
	})

	t.Run("short", func(t *testing.T) {
		cmd, err := NewRasterGraphicsTransfer([]byte{0xAA, 0x55})
		require.NoError(t, err)
		assert.Equal(t, []byte{'g', 0x00, 0x02, 0xAA, 0x55}, cmd.Serialize())
	})

	t.Run("largest", func(t *testing.T) {
		data := bytes.Repeat([]byte{0xFF}, 254)
		cmd, err := NewRasterGraphicsTransfer(data)
		require.NoError(t, err)

		out := cmd.Serialize()
		require.Len(t, out, 257)
		assert.Equal(t, []byte{'g', 0x00, 254}, out[:3])
		assert.Equal(t, data, out[3:])
	})

	t.Run("captures data", func(t *testing.T) {
		data := []byte{0xAA, 0x55}
		cmd, err := NewRasterGraphicsTransfer(data)
		require.NoError(t, err)

		data[0] = 0x00
		assert.Equal(t, []byte{'g', 0x00, 0x02, 0xAA, 0x55}, cmd.Serialize())
	})

	t.Run("too long", func(t *testing.T) {
		_, err := NewRasterGraphicsTransfer(make([]byte, 255))
		assert.ErrorIs(t, err, ErrWrongDataSize)
	})
}

func TestSerializeReturnsFreshSlices(t *testing.T) {
	cmd := NewSetMarginAmount(35)
	a := cmd.Serialize()
	a[0] = 0xFF
	assert.Equal(t, byte(0x1B), cmd.Serialize()[0])
}
