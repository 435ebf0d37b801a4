// Package codec provides Buffer, a growable byte-buffer writer used
// by the binary serializer. It is a fork of the write-side of the
// teacher's codec.Buffer (codec/codec.go), trimmed to just the
// append/encode operations — decode is handled by protowire.Reader,
// since this module's descriptors are not built atop
// descriptor.FieldDescriptorProto_Type, so a per-type
// varint/fixed32/fixed64 lookup table keyed on that representation has
// no equivalent here.
package codec

import "github.com/dynpb/protoreflect/protowire"

// Buffer is an append-only byte buffer with protobuf encode
// primitives, plus a reusable scratch slice so that encoding a nested
// message (which must be written to a temporary buffer to learn its
// length before the length-prefix can be emitted) doesn't allocate a
// fresh slice on every call.
type Buffer struct {
	buf []byte
	tmp []byte
}

// NewBuffer creates an empty Buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Bytes returns the accumulated bytes. The caller must not retain
// this slice across subsequent writes to the Buffer.
func (b *Buffer) Bytes() []byte { return b.buf }

// Len returns the number of bytes written so far.
func (b *Buffer) Len() int { return len(b.buf) }

// EncodeTag appends a tag varint for (fieldNumber, wireType).
func (b *Buffer) EncodeTag(fieldNumber int32, wireType protowire.WireType) {
	b.buf = protowire.AppendVarint(b.buf, protowire.EncodeTag(fieldNumber, wireType))
}

// EncodeVarint appends x as a varint.
func (b *Buffer) EncodeVarint(x uint64) {
	b.buf = protowire.AppendVarint(b.buf, x)
}

// EncodeFixed32 appends v as 4 little-endian bytes.
func (b *Buffer) EncodeFixed32(v uint32) {
	b.buf = protowire.AppendFixed32(b.buf, v)
}

// EncodeFixed64 appends v as 8 little-endian bytes.
func (b *Buffer) EncodeFixed64(v uint64) {
	b.buf = protowire.AppendFixed64(b.buf, v)
}

// EncodeRawBytes appends a varint length prefix followed by data verbatim.
func (b *Buffer) EncodeRawBytes(data []byte) {
	b.EncodeVarint(uint64(len(data)))
	b.buf = append(b.buf, data...)
}

// AppendRaw appends data with no length prefix (used for
// already-framed unknown-field tag+payload re-emission).
func (b *Buffer) AppendRaw(data []byte) {
	b.buf = append(b.buf, data...)
}

// Scratch returns a *Buffer backed by this Buffer's reusable scratch
// slice, for encoding a nested message whose length must be known
// before its length-prefix can be written to the parent buffer. The
// caller must call SaveScratch with the scratch Buffer's Bytes()
// result once done, so the next nested encode can reuse the grown
// backing array instead of allocating afresh.
func (b *Buffer) Scratch() *Buffer {
	return &Buffer{buf: b.tmp[:0]}
}

// SaveScratch records the (possibly grown) slice produced by a
// Buffer obtained from Scratch, so future nested encodes reuse its
// backing array.
func (b *Buffer) SaveScratch(scratch *Buffer) {
	b.tmp = scratch.buf
}
