package codec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dynpb/protoreflect/codec"
	"github.com/dynpb/protoreflect/protowire"
)

func TestEncodeStringField(t *testing.T) {
	// S1: field 1, string "hello" -> 0A 05 68 65 6C 6C 6F
	b := codec.NewBuffer()
	b.EncodeTag(1, protowire.LengthDelimited)
	b.EncodeRawBytes([]byte("hello"))
	assert.Equal(t, []byte{0x0A, 0x05, 0x68, 0x65, 0x6C, 0x6C, 0x6F}, b.Bytes())
}

func TestEncodeInt32Field(t *testing.T) {
	// S2: field 1, int32 150 -> 08 96 01
	b := codec.NewBuffer()
	b.EncodeTag(1, protowire.Varint)
	b.EncodeVarint(150)
	assert.Equal(t, []byte{0x08, 0x96, 0x01}, b.Bytes())
}

func TestScratchReuse(t *testing.T) {
	b := codec.NewBuffer()
	scratch := b.Scratch()
	scratch.EncodeVarint(5)
	b.EncodeRawBytes(scratch.Bytes())
	b.SaveScratch(scratch)
	require.Equal(t, []byte{0x01, 0x05}, b.Bytes())
}
