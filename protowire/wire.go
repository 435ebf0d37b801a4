// Package protowire implements the low-level wire-format primitives
// shared by the binary encoder and decoder: tags, varints, zigzag
// encoding, and fixed-width integers. It has no knowledge of
// descriptors or messages.
//
// The code here is a fork of the varint/fixed routines in
// codec.Buffer, trimmed down to package-level functions that do not
// require a *descriptor.FieldDescriptorProto_Type table, since this
// module's descriptors are not built on top of compiled descriptor
// protos.
package protowire

import (
	"io"
	"math"

	"github.com/dynpb/protoreflect/protoerr"
)

// WireType is the 3-bit wire-type tag suffix.
type WireType int8

const (
	Varint          WireType = 0
	Fixed64         WireType = 1
	LengthDelimited WireType = 2
	StartGroup      WireType = 3
	EndGroup        WireType = 4
	Fixed32         WireType = 5
)

func (w WireType) String() string {
	switch w {
	case Varint:
		return "varint"
	case Fixed64:
		return "fixed64"
	case LengthDelimited:
		return "lengthDelimited"
	case StartGroup:
		return "startGroup"
	case EndGroup:
		return "endGroup"
	case Fixed32:
		return "fixed32"
	default:
		return "unknown"
	}
}

// EncodeTag returns the varint-ready tag value for a field number and
// wire type: (fieldNumber << 3) | wireType.
func EncodeTag(fieldNumber int32, wireType WireType) uint64 {
	return uint64(fieldNumber)<<3 | uint64(wireType&7)
}

// DecodeTag splits a decoded tag varint into field number and wire
// type. It fails with InvalidWireType if the field number is out of
// range.
func DecodeTag(v uint64) (fieldNumber int32, wireType WireType, err error) {
	wireType = WireType(v & 7)
	v >>= 3
	if v == 0 || v > math.MaxInt32 {
		return 0, 0, protoerr.New(protoerr.InvalidWireType, "", "tag field number out of range")
	}
	return int32(v), wireType, nil
}

// AppendVarint appends x to buf using the standard little-endian,
// 7-bits-per-byte varint encoding.
func AppendVarint(buf []byte, x uint64) []byte {
	for x >= 0x80 {
		buf = append(buf, byte(x)|0x80)
		x >>= 7
	}
	return append(buf, byte(x))
}

// AppendFixed32 appends v to buf as 4 little-endian bytes.
func AppendFixed32(buf []byte, v uint32) []byte {
	return append(buf, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

// AppendFixed64 appends v to buf as 8 little-endian bytes.
func AppendFixed64(buf []byte, v uint64) []byte {
	return append(buf,
		byte(v), byte(v>>8), byte(v>>16), byte(v>>24),
		byte(v>>32), byte(v>>40), byte(v>>48), byte(v>>56))
}

// ZigZagEncode32 maps a signed 32-bit integer to an unsigned value
// using zigzag encoding, so that small-magnitude negative values
// still produce small varints.
func ZigZagEncode32(v int32) uint32 {
	return (uint32(v) << 1) ^ uint32(v>>31)
}

// ZigZagDecode32 reverses ZigZagEncode32.
func ZigZagDecode32(v uint32) int32 {
	return int32(v>>1) ^ -int32(v&1)
}

// ZigZagEncode64 maps a signed 64-bit integer to an unsigned value
// using zigzag encoding.
func ZigZagEncode64(v int64) uint64 {
	return (uint64(v) << 1) ^ uint64(v>>63)
}

// ZigZagDecode64 reverses ZigZagEncode64.
func ZigZagDecode64(v uint64) int64 {
	return int64(v>>1) ^ -int64(v&1)
}

// Reader decodes primitives from a contiguous byte slice, tracking a
// read cursor. It is the decode-side counterpart to the Append*
// functions above.
type Reader struct {
	buf []byte
	pos int
}

// NewReader wraps buf for sequential decoding starting at offset 0.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Len returns the number of unread bytes.
func (r *Reader) Len() int { return len(r.buf) - r.pos }

// EOF reports whether all bytes have been consumed.
func (r *Reader) EOF() bool { return r.pos >= len(r.buf) }

// Bytes returns the unread remainder, without copying or advancing.
func (r *Reader) Bytes() []byte { return r.buf[r.pos:] }

// Pos returns the current read offset.
func (r *Reader) Pos() int { return r.pos }

// Skip advances the cursor by n bytes, failing if that runs past the
// end of the buffer.
func (r *Reader) Skip(n int) error {
	if n < 0 || r.pos+n > len(r.buf) {
		return protoerr.Wrap(protoerr.TruncatedMessage, "", "skip past end of buffer", io.ErrUnexpectedEOF)
	}
	r.pos += n
	return nil
}

// Varint reads a standard varint. It fails with TruncatedVarint if
// the stream ends before a terminating byte, or if 10 bytes are
// consumed without termination (a malformed 64-bit overflow).
func (r *Reader) Varint() (uint64, error) {
	var x uint64
	for shift := uint(0); shift < 64; shift += 7 {
		if r.pos >= len(r.buf) {
			return 0, protoerr.Wrap(protoerr.TruncatedVarint, "", "unexpected end of input", io.ErrUnexpectedEOF)
		}
		b := r.buf[r.pos]
		r.pos++
		x |= (uint64(b) & 0x7f) << shift
		if b < 0x80 {
			return x, nil
		}
	}
	return 0, protoerr.New(protoerr.TruncatedVarint, "", "varint exceeds 64 bits")
}

// Tag reads a varint and decomposes it into field number and wire type.
func (r *Reader) Tag() (fieldNumber int32, wireType WireType, err error) {
	v, err := r.Varint()
	if err != nil {
		return 0, 0, err
	}
	return DecodeTag(v)
}

// Fixed32 reads 4 little-endian bytes.
func (r *Reader) Fixed32() (uint32, error) {
	if r.pos+4 > len(r.buf) {
		return 0, protoerr.Wrap(protoerr.TruncatedMessage, "", "truncated fixed32", io.ErrUnexpectedEOF)
	}
	b := r.buf[r.pos : r.pos+4]
	r.pos += 4
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24, nil
}

// Fixed64 reads 8 little-endian bytes.
func (r *Reader) Fixed64() (uint64, error) {
	if r.pos+8 > len(r.buf) {
		return 0, protoerr.Wrap(protoerr.TruncatedMessage, "", "truncated fixed64", io.ErrUnexpectedEOF)
	}
	b := r.buf[r.pos : r.pos+8]
	r.pos += 8
	return uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16 | uint64(b[3])<<24 |
		uint64(b[4])<<32 | uint64(b[5])<<40 | uint64(b[6])<<48 | uint64(b[7])<<56, nil
}

// LengthDelimited reads a varint length followed by that many bytes,
// returning a slice into the underlying buffer (no copy).
func (r *Reader) LengthDelimited() ([]byte, error) {
	n, err := r.Varint()
	if err != nil {
		return nil, err
	}
	if n > math.MaxInt32 || r.pos+int(n) > len(r.buf) {
		return nil, protoerr.Wrap(protoerr.TruncatedMessage, "", "truncated length-delimited payload", io.ErrUnexpectedEOF)
	}
	b := r.buf[r.pos : r.pos+int(n)]
	r.pos += int(n)
	return b, nil
}
