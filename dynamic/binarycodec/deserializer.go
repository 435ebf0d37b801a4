package binarycodec

import (
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/dynpb/protoreflect/desc"
	"github.com/dynpb/protoreflect/dynamic"
	"github.com/dynpb/protoreflect/protoerr"
	"github.com/dynpb/protoreflect/protowire"
)

// BinaryDeserializer decodes the protobuf binary wire format into
// DynamicMessages. The zero value has every option off (unknown
// fields discarded, no UTF-8 check, no Resolver); use
// NewBinaryDeserializer(DefaultDeserializeOptions()) for the defaults.
type BinaryDeserializer struct {
	Options DeserializeOptions
}

// NewBinaryDeserializer creates a BinaryDeserializer with the given options.
func NewBinaryDeserializer(opts DeserializeOptions) *BinaryDeserializer {
	return &BinaryDeserializer{Options: opts}
}

// Deserialize decodes data into a new message under md. Any failure
// — truncation, an unrecognized wire type, a wire-type mismatch, a
// UTF-8 violation, or a malformed map/packed payload — aborts the
// entire decode; no partial message is returned.
func (d *BinaryDeserializer) Deserialize(data []byte, md *desc.MessageDescriptor) (*dynamic.Message, error) {
	m := dynamic.NewMessage(md)
	r := protowire.NewReader(data)
	if err := d.decodeInto(r, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (d *BinaryDeserializer) decodeInto(r *protowire.Reader, m *dynamic.Message) error {
	md := m.GetMessageDescriptor()
	for !r.EOF() {
		number, wireType, err := r.Tag()
		if err != nil {
			return err
		}
		fd := md.FindFieldByNumber(number)
		if fd == nil {
			if err := d.skipOrPreserveUnknown(r, m, number, wireType); err != nil {
				return err
			}
			continue
		}
		if err := d.decodeKnownField(r, m, fd, wireType); err != nil {
			return err
		}
	}
	return nil
}

func (d *BinaryDeserializer) skipOrPreserveUnknown(r *protowire.Reader, m *dynamic.Message, number int32, wireType protowire.WireType) error {
	switch wireType {
	case protowire.Varint:
		v, err := r.Varint()
		if err != nil {
			return err
		}
		if d.Options.PreserveUnknownFields {
			m.AddUnknownField(number, dynamic.UnknownField{WireType: int8(protowire.Varint), Value: v})
		}
	case protowire.Fixed32:
		v, err := r.Fixed32()
		if err != nil {
			return err
		}
		if d.Options.PreserveUnknownFields {
			m.AddUnknownField(number, dynamic.UnknownField{WireType: int8(protowire.Fixed32), Value: uint64(v)})
		}
	case protowire.Fixed64:
		v, err := r.Fixed64()
		if err != nil {
			return err
		}
		if d.Options.PreserveUnknownFields {
			m.AddUnknownField(number, dynamic.UnknownField{WireType: int8(protowire.Fixed64), Value: v})
		}
	case protowire.LengthDelimited:
		b, err := r.LengthDelimited()
		if err != nil {
			return err
		}
		if d.Options.PreserveUnknownFields {
			cp := make([]byte, len(b))
			copy(cp, b)
			m.AddUnknownField(number, dynamic.UnknownField{WireType: int8(protowire.LengthDelimited), Contents: cp})
		}
	case protowire.StartGroup, protowire.EndGroup:
		return protoerr.New(protoerr.UnsupportedFieldType, "", "group")
	default:
		return protoerr.New(protoerr.InvalidWireType, "", fmt.Sprintf("wire type %d", wireType))
	}
	return nil
}

func (d *BinaryDeserializer) decodeKnownField(r *protowire.Reader, m *dynamic.Message, fd *desc.FieldDescriptor, wireType protowire.WireType) error {
	if fd.GetType() == desc.Group {
		return protoerr.New(protoerr.UnsupportedFieldType, fd.GetName(), "group")
	}
	expected := fd.GetType().WireType()
	isPackedException := fd.IsRepeated() && !fd.IsMap() && wireType == protowire.LengthDelimited && expected != protowire.LengthDelimited
	if wireType != expected && !isPackedException {
		return protoerr.New(protoerr.WireTypeMismatch, fd.GetName(),
			fmt.Sprintf("expected wire type %s, got %s", expected, wireType))
	}

	switch {
	case fd.IsMap():
		return d.decodeMapEntry(r, m, fd)
	case isPackedException:
		return d.decodePacked(r, m, fd)
	case fd.IsRepeated():
		val, err := d.decodeScalar(r, fd.GetType(), fd.GetTypeName(), fd.GetName())
		if err != nil {
			return err
		}
		return m.AddRepeated(fd, val)
	default:
		val, err := d.decodeScalar(r, fd.GetType(), fd.GetTypeName(), fd.GetName())
		if err != nil {
			return err
		}
		return m.TrySet(fd, val)
	}
}

// decodePacked reads a packed-repeated payload. The loop condition
// guarantees sub.EOF() on exit, so truncation mid-element surfaces
// from the bounded sub-reader itself (TruncatedVarint etc.) rather
// than as a separate trailing-bytes check.
func (d *BinaryDeserializer) decodePacked(r *protowire.Reader, m *dynamic.Message, fd *desc.FieldDescriptor) error {
	payload, err := r.LengthDelimited()
	if err != nil {
		return err
	}
	sub := protowire.NewReader(payload)
	for !sub.EOF() {
		val, err := d.decodeScalar(sub, fd.GetType(), fd.GetTypeName(), fd.GetName())
		if err != nil {
			return err
		}
		if err := m.AddRepeated(fd, val); err != nil {
			return err
		}
	}
	return nil
}

func (d *BinaryDeserializer) decodeMapEntry(r *protowire.Reader, m *dynamic.Message, fd *desc.FieldDescriptor) error {
	info := fd.GetMapEntryInfo()
	if info == nil {
		return protoerr.New(protoerr.MissingMapEntryInfo, fd.GetName(), "")
	}
	payload, err := r.LengthDelimited()
	if err != nil {
		return err
	}
	sub := protowire.NewReader(payload)

	var key, value interface{}
	haveKey, haveValue := false, false
	for !sub.EOF() {
		number, wireType, err := sub.Tag()
		if err != nil {
			return err
		}
		switch number {
		case 1:
			if wireType != info.KeyType.WireType() {
				return protoerr.New(protoerr.MalformedMapEntry, fd.GetName(), "key wire type mismatch")
			}
			key, err = d.decodeScalar(sub, info.KeyType, "", fd.GetName())
			if err != nil {
				return err
			}
			haveKey = true
		case 2:
			if wireType != info.ValueType.WireType() {
				return protoerr.New(protoerr.MalformedMapEntry, fd.GetName(), "value wire type mismatch")
			}
			value, err = d.decodeScalar(sub, info.ValueType, info.ValueTypeName, fd.GetName())
			if err != nil {
				return err
			}
			haveValue = true
		default:
			if err := d.skipField(sub, wireType); err != nil {
				return err
			}
		}
	}
	if !haveKey {
		key = info.KeyType.ZeroValue()
	}
	if !haveValue {
		value = info.ValueType.ZeroValue()
	}
	return m.PutMapValue(fd, key, value)
}

func (d *BinaryDeserializer) skipField(r *protowire.Reader, wireType protowire.WireType) error {
	switch wireType {
	case protowire.Varint:
		_, err := r.Varint()
		return err
	case protowire.Fixed32:
		_, err := r.Fixed32()
		return err
	case protowire.Fixed64:
		_, err := r.Fixed64()
		return err
	case protowire.LengthDelimited:
		_, err := r.LengthDelimited()
		return err
	default:
		return protoerr.New(protoerr.UnsupportedFieldType, "", "group")
	}
}

// decodeScalar decodes a single value of typ. typeName is the
// message/enum type name to resolve (empty for non-message types, or
// for map keys, which can never be message-typed); fieldName is used
// only for error reporting.
func (d *BinaryDeserializer) decodeScalar(r *protowire.Reader, typ desc.FieldType, typeName, fieldName string) (interface{}, error) {
	switch typ {
	case desc.Double:
		v, err := r.Fixed64()
		if err != nil {
			return nil, err
		}
		return math.Float64frombits(v), nil
	case desc.Float:
		v, err := r.Fixed32()
		if err != nil {
			return nil, err
		}
		return math.Float32frombits(v), nil
	case desc.Int32:
		v, err := r.Varint()
		if err != nil {
			return nil, err
		}
		return int32(uint32(v)), nil
	case desc.Int64:
		v, err := r.Varint()
		if err != nil {
			return nil, err
		}
		return int64(v), nil
	case desc.Uint32:
		v, err := r.Varint()
		if err != nil {
			return nil, err
		}
		return uint32(v), nil
	case desc.Uint64:
		v, err := r.Varint()
		if err != nil {
			return nil, err
		}
		return v, nil
	case desc.Sint32:
		v, err := r.Varint()
		if err != nil {
			return nil, err
		}
		return protowire.ZigZagDecode32(uint32(v)), nil
	case desc.Sint64:
		v, err := r.Varint()
		if err != nil {
			return nil, err
		}
		return protowire.ZigZagDecode64(v), nil
	case desc.Fixed32:
		return r.Fixed32()
	case desc.Fixed64:
		return r.Fixed64()
	case desc.Sfixed32:
		v, err := r.Fixed32()
		if err != nil {
			return nil, err
		}
		return int32(v), nil
	case desc.Sfixed64:
		v, err := r.Fixed64()
		if err != nil {
			return nil, err
		}
		return int64(v), nil
	case desc.Bool:
		v, err := r.Varint()
		if err != nil {
			return nil, err
		}
		return v != 0, nil
	case desc.Enum:
		v, err := r.Varint()
		if err != nil {
			return nil, err
		}
		return int32(uint32(v)), nil
	case desc.String:
		b, err := r.LengthDelimited()
		if err != nil {
			return nil, err
		}
		if d.Options.StrictUTF8Validation && !utf8.Valid(b) {
			return nil, protoerr.New(protoerr.InvalidUTF8String, fieldName, "")
		}
		return string(b), nil
	case desc.Bytes:
		b, err := r.LengthDelimited()
		if err != nil {
			return nil, err
		}
		cp := make([]byte, len(b))
		copy(cp, b)
		return cp, nil
	case desc.Message:
		b, err := r.LengthDelimited()
		if err != nil {
			return nil, err
		}
		return d.decodeNestedMessage(b, typeName, fieldName)
	default:
		return nil, protoerr.New(protoerr.UnsupportedFieldType, fieldName, typ.String())
	}
}

// decodeNestedMessage decodes a message-typed value's payload, given
// the declared type name of the value itself. For an ordinary
// message-typed field this is fd.GetTypeName(); for a message-valued
// map field it must instead be the map's MapEntryInfo.ValueTypeName,
// since the map field's own TypeName names its synthetic entry
// message, not the value type.
func (d *BinaryDeserializer) decodeNestedMessage(payload []byte, typeName, fieldName string) (*dynamic.Message, error) {
	if d.Options.Resolver == nil {
		return nil, protoerr.New(protoerr.UnsupportedNestedMessage, typeName, "no TypeRegistry configured")
	}
	nestedMd, err := d.Options.Resolver.ResolveMessage(typeName)
	if err != nil {
		return nil, err
	}
	sub := protowire.NewReader(payload)
	nested := dynamic.NewMessage(nestedMd)
	if err := d.decodeInto(sub, nested); err != nil {
		return nil, err
	}
	return nested, nil
}
