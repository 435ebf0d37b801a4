package binarycodec_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dynpb/protoreflect/desc"
	"github.com/dynpb/protoreflect/dynamic"
	"github.com/dynpb/protoreflect/dynamic/binarycodec"
)

func buildSimpleForID(t *testing.T, md *desc.MessageDescriptor, id int32) *dynamic.Message {
	t.Helper()
	m := dynamic.NewMessage(md)
	require.NoError(t, m.TrySet(md.FindFieldByNumber(2), id))
	return m
}

func TestDecodeAllConcurrent(t *testing.T) {
	md := simpleMessageDescriptor()
	ser := binarycodec.NewBinarySerializer(binarycodec.DefaultSerializeOptions())

	payloads := make([][]byte, 0, 20)
	for i := int32(0); i < 20; i++ {
		m := buildSimpleForID(t, md, i)
		data, err := ser.Serialize(m)
		require.NoError(t, err)
		payloads = append(payloads, data)
	}

	de := binarycodec.NewBinaryDeserializer(binarycodec.DefaultDeserializeOptions())
	results, err := de.DecodeAll(context.Background(), payloads, md)
	require.NoError(t, err)
	require.Len(t, results, 20)
	for i, m := range results {
		assert.EqualValues(t, i, m.Get(md.FindFieldByNumber(2)))
	}
}

func TestDecodeAllStopsOnFirstError(t *testing.T) {
	md := simpleMessageDescriptor()
	payloads := [][]byte{
		{0x10, 0x01},       // valid: field 2 varint 1
		{0x15, 0x01, 0x00}, // invalid: field 2 with wrong (fixed32) wire type, truncated too
	}
	de := binarycodec.NewBinaryDeserializer(binarycodec.DefaultDeserializeOptions())
	_, err := de.DecodeAll(context.Background(), payloads, md)
	require.Error(t, err)
}
