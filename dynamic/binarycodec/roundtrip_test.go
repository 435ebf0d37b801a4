package binarycodec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dynpb/protoreflect/desc"
	"github.com/dynpb/protoreflect/desc/descbuilder"
	"github.com/dynpb/protoreflect/dynamic"
	"github.com/dynpb/protoreflect/dynamic/binarycodec"
	"github.com/dynpb/protoreflect/protoerr"
	"github.com/dynpb/protoreflect/registry"
)

func simpleMessageDescriptor() *desc.MessageDescriptor {
	file := descbuilder.NewFile("simple.proto", "test").
		AddMessage(descbuilder.NewMessage("Simple").
			AddField(descbuilder.NewField("name", 1, desc.String)).
			AddField(descbuilder.NewField("id", 2, desc.Int32)).
			AddField(descbuilder.NewField("tags", 3, desc.String).Repeated())).
		MustBuild()
	return file.FindMessage("Simple")
}

func TestRoundTripSimpleMessage(t *testing.T) {
	md := simpleMessageDescriptor()
	m := dynamic.NewMessage(md)
	nameFd := md.FindFieldByNumber(1)
	idFd := md.FindFieldByNumber(2)
	tagsFd := md.FindFieldByNumber(3)

	require.NoError(t, m.TrySet(nameFd, "hello"))
	require.NoError(t, m.TrySet(idFd, int32(150)))
	require.NoError(t, m.AddRepeated(tagsFd, "a"))
	require.NoError(t, m.AddRepeated(tagsFd, "b"))

	ser := binarycodec.NewBinarySerializer(binarycodec.DefaultSerializeOptions())
	data, err := ser.Serialize(m)
	require.NoError(t, err)

	de := binarycodec.NewBinaryDeserializer(binarycodec.DefaultDeserializeOptions())
	decoded, err := de.Deserialize(data, md)
	require.NoError(t, err)

	assert.True(t, dynamic.Equal(m, decoded))
}

func TestEncodeStringFieldMatchesScenarioS1(t *testing.T) {
	md := simpleMessageDescriptor()
	m := dynamic.NewMessage(md)
	require.NoError(t, m.TrySet(md.FindFieldByNumber(1), "hello"))

	ser := binarycodec.NewBinarySerializer(binarycodec.DefaultSerializeOptions())
	data, err := ser.Serialize(m)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x0A, 0x05, 0x68, 0x65, 0x6C, 0x6C, 0x6F}, data)
}

func TestEncodeInt32FieldMatchesScenarioS2(t *testing.T) {
	md := simpleMessageDescriptor()
	m := dynamic.NewMessage(md)
	require.NoError(t, m.TrySet(md.FindFieldByNumber(2), int32(150)))

	ser := binarycodec.NewBinarySerializer(binarycodec.DefaultSerializeOptions())
	data, err := ser.Serialize(m)
	require.NoError(t, err)
	// S2 puts 150 at field 1 (08 96 01); Simple declares the int32 as
	// field 2, so the tag byte is 0x10 and the 96 01 payload is S2's.
	assert.Equal(t, []byte{0x10, 0x96, 0x01}, data)
}

func repeatedInt32MessageDescriptor() *desc.MessageDescriptor {
	file := descbuilder.NewFile("packed.proto", "test").
		AddMessage(descbuilder.NewMessage("Packed").
			AddField(descbuilder.NewField("values", 4, desc.Int32).Repeated())).
		MustBuild()
	return file.FindMessage("Packed")
}

func TestPackedRepeatedMatchesScenarioS3(t *testing.T) {
	md := repeatedInt32MessageDescriptor()
	m := dynamic.NewMessage(md)
	fd := md.FindFieldByNumber(4)
	require.NoError(t, m.AddRepeated(fd, int32(1)))
	require.NoError(t, m.AddRepeated(fd, int32(2)))
	require.NoError(t, m.AddRepeated(fd, int32(3)))

	packed := binarycodec.NewBinarySerializer(binarycodec.SerializeOptions{UsePackedRepeated: true})
	data, err := packed.Serialize(m)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x22, 0x03, 0x01, 0x02, 0x03}, data)

	unpacked := binarycodec.NewBinarySerializer(binarycodec.SerializeOptions{UsePackedRepeated: false})
	data2, err := unpacked.Serialize(m)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x20, 0x01, 0x20, 0x02, 0x20, 0x03}, data2)

	de := binarycodec.NewBinaryDeserializer(binarycodec.DefaultDeserializeOptions())
	fromPacked, err := de.Deserialize(data, md)
	require.NoError(t, err)
	fromUnpacked, err := de.Deserialize(data2, md)
	require.NoError(t, err)
	assert.True(t, dynamic.Equal(fromPacked, fromUnpacked))
}

func stringIntMapMessageDescriptor() *desc.MessageDescriptor {
	file := descbuilder.NewFile("mapmsg.proto", "test").
		AddMessage(descbuilder.NewMessage("WithMap").
			AddField(descbuilder.NewField("counts", 7, desc.Message).
				TypeName("test.WithMap.CountsEntry").
				Repeated().
				AsMap(desc.String, desc.Int32, "")).
			AddNestedMessage(descbuilder.NewMessage("CountsEntry").
				AsMapEntry(desc.String, desc.Int32, ""))).
		MustBuild()
	return file.FindMessage("WithMap")
}

func TestMapEntryMatchesScenarioS4(t *testing.T) {
	md := stringIntMapMessageDescriptor()
	m := dynamic.NewMessage(md)
	fd := md.FindFieldByNumber(7)
	require.NoError(t, m.PutMapValue(fd, "k", int32(42)))

	ser := binarycodec.NewBinarySerializer(binarycodec.DefaultSerializeOptions())
	data, err := ser.Serialize(m)
	require.NoError(t, err)
	// 3A <len> 0A 01 6B 10 2A
	assert.Equal(t, []byte{0x3A, 0x05, 0x0A, 0x01, 0x6B, 0x10, 0x2A}, data)

	de := binarycodec.NewBinaryDeserializer(binarycodec.DefaultDeserializeOptions())
	decoded, err := de.Deserialize(data, md)
	require.NoError(t, err)
	v, ok := decoded.GetMapValue(fd, "k")
	require.True(t, ok)
	assert.Equal(t, int32(42), v)
}

func TestMapEntryMissingSideGetsZeroValue(t *testing.T) {
	md := stringIntMapMessageDescriptor()
	fd := md.FindFieldByNumber(7)

	// key only, field 1, value "k" — field 2 (value) never appears.
	keyOnly := []byte{0x3A, 0x03, 0x0A, 0x01, 0x6B}
	de := binarycodec.NewBinaryDeserializer(binarycodec.DefaultDeserializeOptions())
	decoded, err := de.Deserialize(keyOnly, md)
	require.NoError(t, err)
	v, ok := decoded.GetMapValue(fd, "k")
	require.True(t, ok)
	assert.Equal(t, int32(0), v)
}

func TestUnknownFieldsPreservedAndReencoded(t *testing.T) {
	md := simpleMessageDescriptor()
	// field 99, varint wire type, value 7; not declared on Simple.
	// tag = (99<<3)|0 = 792 -> varint 0x98,0x06; payload varint 7.
	unknownTag := []byte{0x98, 0x06, 0x07}
	de := binarycodec.NewBinaryDeserializer(binarycodec.DefaultDeserializeOptions())
	decoded, err := de.Deserialize(unknownTag, md)
	require.NoError(t, err)
	nums := decoded.GetUnknownFields()
	require.Len(t, nums, 1)
	assert.EqualValues(t, 99, nums[0])
	occ := decoded.GetUnknownFieldValues(99)
	require.Len(t, occ, 1)
	assert.EqualValues(t, 7, occ[0].Value)

	ser := binarycodec.NewBinarySerializer(binarycodec.DefaultSerializeOptions())
	reencoded, err := ser.Serialize(decoded)
	require.NoError(t, err)
	assert.Equal(t, unknownTag, reencoded)
}

func TestTruncatedVarintFailsDecode(t *testing.T) {
	md := simpleMessageDescriptor()
	// tag for field 2 (int32, varint) then a varint with continuation bit set but no following byte.
	truncated := []byte{0x10, 0x96}
	de := binarycodec.NewBinaryDeserializer(binarycodec.DefaultDeserializeOptions())
	_, err := de.Deserialize(truncated, md)
	require.Error(t, err)
	var pe *protoerr.Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, protoerr.TruncatedVarint, pe.Kind)
}

func TestWireTypeMismatchFailsDecode(t *testing.T) {
	md := simpleMessageDescriptor()
	// field 2 is int32 (varint); encode it instead with fixed32 wire type.
	bad := []byte{0x15, 0x01, 0x00, 0x00, 0x00}
	de := binarycodec.NewBinaryDeserializer(binarycodec.DefaultDeserializeOptions())
	_, err := de.Deserialize(bad, md)
	require.Error(t, err)
	var pe *protoerr.Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, protoerr.WireTypeMismatch, pe.Kind)
}

func TestInvalidUTF8StringFailsDecodeWhenStrict(t *testing.T) {
	md := simpleMessageDescriptor()
	// field 1 (string), length 1, invalid UTF-8 byte 0xFF.
	bad := []byte{0x0A, 0x01, 0xFF}
	de := binarycodec.NewBinaryDeserializer(binarycodec.DefaultDeserializeOptions())
	_, err := de.Deserialize(bad, md)
	require.Error(t, err)
	var pe *protoerr.Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, protoerr.InvalidUTF8String, pe.Kind)

	lenient := binarycodec.NewBinaryDeserializer(binarycodec.DeserializeOptions{StrictUTF8Validation: false})
	_, err = lenient.Deserialize(bad, md)
	assert.NoError(t, err)
}

func TestNestedMessageResolvedThroughTypeRegistry(t *testing.T) {
	innerFile := descbuilder.NewFile("inner.proto", "test").
		AddMessage(descbuilder.NewMessage("Inner").
			AddField(descbuilder.NewField("value", 1, desc.Int32))).
		MustBuild()
	outerFile := descbuilder.NewFile("outer.proto", "test").
		AddMessage(descbuilder.NewMessage("Outer").
			AddField(descbuilder.NewField("inner", 1, desc.Message).TypeName("test.Inner"))).
		MustBuild()

	reg := registry.NewTypeRegistry()
	require.NoError(t, reg.RegisterFile(innerFile))
	require.NoError(t, reg.RegisterFile(outerFile))

	innerMd := innerFile.FindMessage("Inner")
	outerMd := outerFile.FindMessage("Outer")

	inner := dynamic.NewMessage(innerMd)
	require.NoError(t, inner.TrySet(innerMd.FindFieldByNumber(1), int32(42)))
	outer := dynamic.NewMessage(outerMd)
	require.NoError(t, outer.TrySet(outerMd.FindFieldByNumber(1), inner))

	ser := binarycodec.NewBinarySerializer(binarycodec.DefaultSerializeOptions())
	data, err := ser.Serialize(outer)
	require.NoError(t, err)

	de := binarycodec.NewBinaryDeserializer(binarycodec.DeserializeOptions{
		PreserveUnknownFields: true,
		StrictUTF8Validation:  true,
		Resolver:              reg,
	})
	decoded, err := de.Deserialize(data, outerMd)
	require.NoError(t, err)
	nested, ok := decoded.Get(outerMd.FindFieldByNumber(1)).(*dynamic.Message)
	require.True(t, ok)
	assert.EqualValues(t, 42, nested.Get(innerMd.FindFieldByNumber(1)))
}

func messageValuedMapDescriptor() (*desc.MessageDescriptor, *desc.MessageDescriptor) {
	file := descbuilder.NewFile("msgmap.proto", "test").
		AddMessage(descbuilder.NewMessage("Detail").
			AddField(descbuilder.NewField("text", 1, desc.String))).
		AddMessage(descbuilder.NewMessage("WithMsgMap").
			AddField(descbuilder.NewField("items", 8, desc.Message).
				TypeName("test.WithMsgMap.ItemsEntry").
				Repeated().
				AsMap(desc.String, desc.Message, "test.Detail")).
			AddNestedMessage(descbuilder.NewMessage("ItemsEntry").
				AsMapEntry(desc.String, desc.Message, "test.Detail"))).
		MustBuild()
	return file.FindMessage("WithMsgMap"), file.FindMessage("Detail")
}

func TestRoundTripMessageValuedMap(t *testing.T) {
	outerMd, detailMd := messageValuedMapDescriptor()
	fd := outerMd.FindFieldByNumber(8)
	textFd := detailMd.FindFieldByNumber(1)

	reg := registry.NewTypeRegistry()
	require.NoError(t, reg.RegisterFile(outerMd.GetFile()))

	detail := dynamic.NewMessage(detailMd)
	require.NoError(t, detail.TrySet(textFd, "hello"))
	m := dynamic.NewMessage(outerMd)
	require.NoError(t, m.PutMapValue(fd, "k", detail))

	ser := binarycodec.NewBinarySerializer(binarycodec.DefaultSerializeOptions())
	data, err := ser.Serialize(m)
	require.NoError(t, err)

	de := binarycodec.NewBinaryDeserializer(binarycodec.DeserializeOptions{
		PreserveUnknownFields: true,
		StrictUTF8Validation:  true,
		Resolver:              reg,
	})
	decoded, err := de.Deserialize(data, outerMd)
	require.NoError(t, err)

	v, ok := decoded.GetMapValue(fd, "k")
	require.True(t, ok)
	nested, ok := v.(*dynamic.Message)
	require.True(t, ok)
	assert.Equal(t, "hello", nested.Get(textFd))
}

func TestNestedMessageWithoutResolverFails(t *testing.T) {
	outerFile := descbuilder.NewFile("outer2.proto", "test").
		AddMessage(descbuilder.NewMessage("Outer2").
			AddField(descbuilder.NewField("inner", 1, desc.Message).TypeName("test.Inner"))).
		MustBuild()
	outerMd := outerFile.FindMessage("Outer2")

	data := []byte{0x0A, 0x02, 0x08, 0x01}
	de := binarycodec.NewBinaryDeserializer(binarycodec.DeserializeOptions{PreserveUnknownFields: true, StrictUTF8Validation: true})
	_, err := de.Deserialize(data, outerMd)
	require.Error(t, err)
	var pe *protoerr.Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, protoerr.UnsupportedNestedMessage, pe.Kind)
}
