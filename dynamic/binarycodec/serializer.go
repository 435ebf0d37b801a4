package binarycodec

import (
	"fmt"

	"github.com/dynpb/protoreflect/codec"
	"github.com/dynpb/protoreflect/desc"
	"github.com/dynpb/protoreflect/dynamic"
	"github.com/dynpb/protoreflect/protoerr"
	"github.com/dynpb/protoreflect/protowire"
)

// BinarySerializer encodes DynamicMessages to the protobuf binary
// wire format. The zero value has UsePackedRepeated off; use
// NewBinarySerializer(DefaultSerializeOptions()) for the defaults.
type BinarySerializer struct {
	Options SerializeOptions
}

// NewBinarySerializer creates a BinarySerializer with the given options.
func NewBinarySerializer(opts SerializeOptions) *BinarySerializer {
	return &BinarySerializer{Options: opts}
}

// Serialize encodes m. Fields are emitted in ascending field-number
// order; absent fields are skipped (implicit presence); two
// independent calls on the same message produce byte-identical output.
func (s *BinarySerializer) Serialize(m *dynamic.Message) ([]byte, error) {
	buf := codec.NewBuffer()
	if err := s.encodeMessage(buf, m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *BinarySerializer) encodeMessage(buf *codec.Buffer, m *dynamic.Message) error {
	md := m.GetMessageDescriptor()
	for _, fd := range md.GetFields() {
		if !m.HasValue(fd) {
			continue
		}
		val, err := m.TryGet(fd)
		if err != nil {
			return err
		}
		if val == nil {
			return protoerr.New(protoerr.MissingFieldValue, fd.GetName(), "field reports present but has no value")
		}
		if err := s.encodeField(buf, fd, val); err != nil {
			return err
		}
	}
	s.encodeUnknownFields(buf, m)
	return nil
}

// encodeUnknownFields re-emits preserved unknown-field occurrences
// after all known fields, grouped by field number in ascending order;
// occurrences of one field number keep their arrival order, but the
// arrival order across different field numbers is not kept.
func (s *BinarySerializer) encodeUnknownFields(buf *codec.Buffer, m *dynamic.Message) {
	numbers := m.GetUnknownFields()
	// Deterministic re-emission across runs requires a stable order
	// for the set of unknown field numbers themselves; sort them.
	sortInt32s(numbers)
	for _, num := range numbers {
		for _, occ := range m.GetUnknownFieldValues(num) {
			switch protowire.WireType(occ.WireType) {
			case protowire.Varint:
				buf.EncodeTag(num, protowire.Varint)
				buf.EncodeVarint(occ.Value)
			case protowire.Fixed32:
				buf.EncodeTag(num, protowire.Fixed32)
				buf.EncodeFixed32(uint32(occ.Value))
			case protowire.Fixed64:
				buf.EncodeTag(num, protowire.Fixed64)
				buf.EncodeFixed64(occ.Value)
			case protowire.LengthDelimited:
				buf.EncodeTag(num, protowire.LengthDelimited)
				buf.EncodeRawBytes(occ.Contents)
			}
		}
	}
}

func sortInt32s(s []int32) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

func (s *BinarySerializer) encodeField(buf *codec.Buffer, fd *desc.FieldDescriptor, val interface{}) error {
	if fd.GetType() == desc.Group {
		return protoerr.New(protoerr.UnsupportedFieldType, fd.GetName(), "group")
	}
	switch {
	case fd.IsMap():
		return s.encodeMapField(buf, fd, val)
	case fd.IsRepeated():
		return s.encodeRepeatedField(buf, fd, val)
	default:
		return s.encodeSingularField(buf, fd.GetNumber(), fd.GetType(), val, fd.GetName())
	}
}

func (s *BinarySerializer) encodeSingularField(buf *codec.Buffer, number int32, typ desc.FieldType, val interface{}, fieldName string) error {
	buf.EncodeTag(number, typ.WireType())
	return s.encodeScalarBody(buf, typ, val, fieldName)
}

// encodeScalarBody writes the tag-less encoding for one scalar/enum
// value, or a length-prefixed nested message for Message-typed values.
func (s *BinarySerializer) encodeScalarBody(buf *codec.Buffer, typ desc.FieldType, val interface{}, fieldName string) error {
	switch typ {
	case desc.Double:
		buf.EncodeFixed64(doubleBits(val.(float64)))
	case desc.Float:
		buf.EncodeFixed32(floatBits(val.(float32)))
	case desc.Int32:
		buf.EncodeVarint(uint64(uint32(val.(int32))))
	case desc.Int64:
		buf.EncodeVarint(uint64(val.(int64)))
	case desc.Uint32:
		buf.EncodeVarint(uint64(val.(uint32)))
	case desc.Uint64:
		buf.EncodeVarint(val.(uint64))
	case desc.Sint32:
		buf.EncodeVarint(uint64(protowire.ZigZagEncode32(val.(int32))))
	case desc.Sint64:
		buf.EncodeVarint(protowire.ZigZagEncode64(val.(int64)))
	case desc.Fixed32:
		buf.EncodeFixed32(val.(uint32))
	case desc.Fixed64:
		buf.EncodeFixed64(val.(uint64))
	case desc.Sfixed32:
		buf.EncodeFixed32(uint32(val.(int32)))
	case desc.Sfixed64:
		buf.EncodeFixed64(uint64(val.(int64)))
	case desc.Bool:
		if val.(bool) {
			buf.EncodeVarint(1)
		} else {
			buf.EncodeVarint(0)
		}
	case desc.Enum:
		buf.EncodeVarint(uint64(uint32(val.(int32))))
	case desc.String:
		buf.EncodeRawBytes([]byte(val.(string)))
	case desc.Bytes:
		buf.EncodeRawBytes(val.([]byte))
	case desc.Message:
		nested := val.(*dynamic.Message)
		scratch := buf.Scratch()
		if err := s.encodeMessage(scratch, nested); err != nil {
			return err
		}
		buf.EncodeRawBytes(scratch.Bytes())
		buf.SaveScratch(scratch)
	default:
		return protoerr.New(protoerr.UnsupportedFieldType, fieldName, typ.String())
	}
	return nil
}

func (s *BinarySerializer) encodeRepeatedField(buf *codec.Buffer, fd *desc.FieldDescriptor, val interface{}) error {
	elems, ok := val.([]interface{})
	if !ok {
		return protoerr.New(protoerr.ValueTypeMismatch, fd.GetName(), fmt.Sprintf("expected []interface{}, got %T", val))
	}
	if len(elems) == 0 {
		return nil
	}
	if s.Options.UsePackedRepeated && fd.GetType().IsPackable() {
		scratch := buf.Scratch()
		for _, e := range elems {
			if err := s.encodeScalarBody(scratch, fd.GetType(), e, fd.GetName()); err != nil {
				return err
			}
		}
		buf.EncodeTag(fd.GetNumber(), protowire.LengthDelimited)
		buf.EncodeRawBytes(scratch.Bytes())
		buf.SaveScratch(scratch)
		return nil
	}
	for _, e := range elems {
		if err := s.encodeSingularField(buf, fd.GetNumber(), fd.GetType(), e, fd.GetName()); err != nil {
			return err
		}
	}
	return nil
}

func (s *BinarySerializer) encodeMapField(buf *codec.Buffer, fd *desc.FieldDescriptor, val interface{}) error {
	mv, ok := val.(dynamic.Map)
	if !ok {
		return protoerr.New(protoerr.ValueTypeMismatch, fd.GetName(), fmt.Sprintf("expected dynamic.Map, got %T", val))
	}
	info := fd.GetMapEntryInfo()
	if info == nil {
		return protoerr.New(protoerr.MissingMapEntryInfo, fd.GetName(), "")
	}
	// Deterministic cross-run output: sort entries by key value (see
	// sortMapKeys).
	keys := make([]interface{}, 0, len(mv))
	for k := range mv {
		keys = append(keys, k)
	}
	sortMapKeys(keys, info.KeyType)

	for _, k := range keys {
		entry := codec.NewBuffer()
		entry.EncodeTag(1, info.KeyType.WireType())
		if err := s.encodeScalarBody(entry, info.KeyType, k, fd.GetName()); err != nil {
			return err
		}
		entry.EncodeTag(2, info.ValueType.WireType())
		if err := s.encodeScalarBody(entry, info.ValueType, mv[k], fd.GetName()); err != nil {
			return err
		}
		buf.EncodeTag(fd.GetNumber(), protowire.LengthDelimited)
		buf.EncodeRawBytes(entry.Bytes())
	}
	return nil
}

func doubleBits(f float64) uint64 { return float64bits(f) }
func floatBits(f float32) uint32  { return float32bits(f) }
