package packet

import (
	"encoding/binary"
	"math"

	"github.com/rotisserie/eris"
)

// SpanReader reads little-endian primitives from a byte span. Errors are
// sticky: after the first short read every subsequent read yields zero values
// and Err keeps reporting the failure. Decoders use Remaining to prove they
// consumed exactly the span they were handed.
type SpanReader struct {
	buf []byte
	off int
	err error
}

// NewSpanReader wraps buf without copying.
func NewSpanReader(buf []byte) *SpanReader {
	return &SpanReader{buf: buf}
}

// Remaining returns the number of unread bytes.
func (r *SpanReader) Remaining() int {
	return len(r.buf) - r.off
}

// Err returns the first read failure, if any.
func (r *SpanReader) Err() error {
	return r.err
}

func (r *SpanReader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.Remaining() < n {
		r.err = eris.Errorf("span underflow: want %d bytes, have %d", n, r.Remaining())
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *SpanReader) Byte() byte {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *SpanReader) Bool() bool {
	return r.Byte() != 0
}

func (r *SpanReader) Uint16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *SpanReader) Int16() int16 {
	return int16(r.Uint16())
}

func (r *SpanReader) Uint32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *SpanReader) Int32() int32 {
	return int32(r.Uint32())
}

func (r *SpanReader) Float32() float32 {
	return math.Float32frombits(r.Uint32())
}

// String reads a byte-length-prefixed UTF-8 string.
func (r *SpanReader) String() string {
	n := int(r.Byte())
	b := r.take(n)
	if b == nil {
		return ""
	}
	return string(b)
}

// Rest consumes and returns all unread bytes.
func (r *SpanReader) Rest() []byte {
	return r.take(r.Remaining())
}

// SpanWriter assembles little-endian spans, mirroring SpanReader. Used by
// tests and by extension modules that synthesize frames for replay.
type SpanWriter struct {
	buf []byte
}

func NewSpanWriter() *SpanWriter {
	return &SpanWriter{}
}

func (w *SpanWriter) Bytes() []byte { return w.buf }

func (w *SpanWriter) Byte(v byte) *SpanWriter {
	w.buf = append(w.buf, v)
	return w
}

func (w *SpanWriter) Bool(v bool) *SpanWriter {
	if v {
		return w.Byte(1)
	}
	return w.Byte(0)
}

func (w *SpanWriter) Uint16(v uint16) *SpanWriter {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
	return w
}

func (w *SpanWriter) Int32(v int32) *SpanWriter {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, uint32(v))
	return w
}

func (w *SpanWriter) Float32(v float32) *SpanWriter {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, math.Float32bits(v))
	return w
}

func (w *SpanWriter) String(s string) *SpanWriter {
	w.Byte(byte(len(s)))
	w.buf = append(w.buf, s...)
	return w
}

// Framed returns the span prefixed with its 2-byte little-endian total length,
// the framing the engine uses on the wire.
func (w *SpanWriter) Framed() []byte {
	total := len(w.buf) + 2
	out := make([]byte, 0, total)
	out = binary.LittleEndian.AppendUint16(out, uint16(total))
	return append(out, w.buf...)
}
