package protocol

import (
	"encoding/binary"
	"io"
)

// ScratchSize is the capacity of the buffer parameterized commands are
// assembled in. Every command of the protocol fits comfortably.
const ScratchSize = 64

// Encoder is implemented by every value that can be written into a command.
type Encoder interface {
	Encode(s *Sink) error
}

// Sink is a bounded byte sink backed by a caller-provided buffer.
// Writes beyond the buffer capacity fail with io.ErrShortBuffer and
// leave the cursor untouched.
type Sink struct {
	buf []byte
	pos int
}

// NewSink returns a sink writing into buf from position 0.
func NewSink(buf []byte) *Sink {
	return &Sink{buf: buf}
}

// Write appends p in full or not at all.
func (s *Sink) Write(p []byte) (int, error) {
	if len(p) > len(s.buf)-s.pos {
		return 0, io.ErrShortBuffer
	}
	n := copy(s.buf[s.pos:], p)
	s.pos += n
	return n, nil
}

// WriteByte appends a single byte.
func (s *Sink) WriteByte(b byte) error {
	if s.pos >= len(s.buf) {
		return io.ErrShortBuffer
	}
	s.buf[s.pos] = b
	s.pos++
	return nil
}

// Len returns the number of bytes written so far.
func (s *Sink) Len() int {
	return s.pos
}

// Bytes returns the written part of the buffer.
func (s *Sink) Bytes() []byte {
	return s.buf[:s.pos]
}

// U8 encodes as a single byte.
type U8 uint8

// U16 encodes as 2 bytes, little-endian.
type U16 uint16

// U32 encodes as 4 bytes, little-endian.
type U32 uint32

// U64 encodes as 8 bytes, little-endian.
type U64 uint64

// I8 encodes as a single two's complement byte.
type I8 int8

// I16 encodes as 2 bytes, little-endian.
type I16 int16

// I32 encodes as 4 bytes, little-endian.
type I32 int32

// I64 encodes as 8 bytes, little-endian.
type I64 int64

// Bytes encodes verbatim.
type Bytes []byte

func (v U8) Encode(s *Sink) error { return s.WriteByte(byte(v)) }
func (v I8) Encode(s *Sink) error { return s.WriteByte(byte(v)) }

func (v U16) Encode(s *Sink) error {
	return writeFull(s, binary.LittleEndian.AppendUint16(nil, uint16(v)))
}

func (v U32) Encode(s *Sink) error {
	return writeFull(s, binary.LittleEndian.AppendUint32(nil, uint32(v)))
}

func (v U64) Encode(s *Sink) error {
	return writeFull(s, binary.LittleEndian.AppendUint64(nil, uint64(v)))
}

func (v I16) Encode(s *Sink) error { return U16(uint16(v)).Encode(s) }
func (v I32) Encode(s *Sink) error { return U32(uint32(v)).Encode(s) }
func (v I64) Encode(s *Sink) error { return U64(uint64(v)).Encode(s) }

func (v Bytes) Encode(s *Sink) error { return writeFull(s, v) }

func writeFull(s *Sink, p []byte) error {
	_, err := s.Write(p)
	return err
}

// build assembles segments into the scratch buffer and returns an owned copy
// of the bytes actually written. Command layouts are fixed, so running out
// of scratch space is a programming error.
func build(segments ...Encoder) []byte {
	var scratch [ScratchSize]byte
	sink := NewSink(scratch[:])

	for _, seg := range segments {
		if err := seg.Encode(sink); err != nil {
			panic("protocol: no space in command buffer")
		}
	}

	out := make([]byte, sink.Len())
	copy(out, sink.Bytes())
	return out
}
