package protowire_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dynpb/protoreflect/protoerr"
	"github.com/dynpb/protoreflect/protowire"
)

func TestZigZag32Identity(t *testing.T) {
	cases := []int32{0, -1, 1, -2, 2, 2147483647, -2147483648}
	for _, v := range cases {
		got := protowire.ZigZagDecode32(protowire.ZigZagEncode32(v))
		assert.Equal(t, v, got)
	}
}

func TestZigZag32KnownPairs(t *testing.T) {
	pairs := map[int32]uint32{0: 0, -1: 1, 1: 2, -2: 3, 2147483647: 4294967294, -2147483648: 4294967295}
	for in, want := range pairs {
		assert.Equal(t, want, protowire.ZigZagEncode32(in))
	}
}

func TestZigZag64Identity(t *testing.T) {
	cases := []int64{0, -1, 1, -2, 2, 1<<62 - 1, -(1 << 62)}
	for _, v := range cases {
		got := protowire.ZigZagDecode64(protowire.ZigZagEncode64(v))
		assert.Equal(t, v, got)
	}
}

func TestVarintRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 150, 300, 1 << 35, ^uint64(0)}
	for _, v := range values {
		buf := protowire.AppendVarint(nil, v)
		r := protowire.NewReader(buf)
		got, err := r.Varint()
		require.NoError(t, err)
		assert.Equal(t, v, got)
		assert.True(t, r.EOF())
	}
}

func TestVarint150EncodesToTwoBytes(t *testing.T) {
	buf := protowire.AppendVarint(nil, 150)
	assert.Equal(t, []byte{0x96, 0x01}, buf)
}

func TestTagEncodeDecode(t *testing.T) {
	tag := protowire.EncodeTag(1, protowire.LengthDelimited)
	buf := protowire.AppendVarint(nil, tag)
	r := protowire.NewReader(buf)
	num, wt, err := r.Tag()
	require.NoError(t, err)
	assert.Equal(t, int32(1), num)
	assert.Equal(t, protowire.LengthDelimited, wt)
}

func TestTruncatedVarintFails(t *testing.T) {
	r := protowire.NewReader([]byte{0x96})
	_, err := r.Varint()
	require.Error(t, err)
	var perr *protoerr.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, protoerr.TruncatedVarint, perr.Kind)
}

func TestFixed32Fixed64RoundTrip(t *testing.T) {
	buf := protowire.AppendFixed32(nil, 0xdeadbeef)
	buf = protowire.AppendFixed64(buf, 0x0102030405060708)
	r := protowire.NewReader(buf)
	f32, err := r.Fixed32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0xdeadbeef), f32)
	f64, err := r.Fixed64()
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0102030405060708), f64)
}

func TestTruncatedFixed64Fails(t *testing.T) {
	r := protowire.NewReader([]byte{1, 2, 3})
	_, err := r.Fixed64()
	require.Error(t, err)
	var perr *protoerr.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, protoerr.TruncatedMessage, perr.Kind)
}

func TestLengthDelimited(t *testing.T) {
	var buf []byte
	buf = protowire.AppendVarint(buf, 5)
	buf = append(buf, []byte("hello")...)
	r := protowire.NewReader(buf)
	got, err := r.LengthDelimited()
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
	assert.True(t, r.EOF())
}
