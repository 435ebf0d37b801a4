package desc

import "github.com/dynpb/protoreflect/protowire"

// FieldType is the closed set of field kinds a FieldDescriptor may
// carry. Group is retained only as a rejection sentinel: any encode
// or decode attempt against a group field fails with
// UnsupportedFieldType — proto2 groups are never supported by the
// dynamic message implementation.
type FieldType int

const (
	Double FieldType = iota
	Float
	Int32
	Int64
	Uint32
	Uint64
	Sint32
	Sint64
	Fixed32
	Fixed64
	Sfixed32
	Sfixed64
	Bool
	String
	Bytes
	Message
	Enum
	Group
)

var fieldTypeNames = map[FieldType]string{
	Double: "double", Float: "float", Int32: "int32", Int64: "int64",
	Uint32: "uint32", Uint64: "uint64", Sint32: "sint32", Sint64: "sint64",
	Fixed32: "fixed32", Fixed64: "fixed64", Sfixed32: "sfixed32", Sfixed64: "sfixed64",
	Bool: "bool", String: "string", Bytes: "bytes", Message: "message",
	Enum: "enum", Group: "group",
}

func (t FieldType) String() string {
	if s, ok := fieldTypeNames[t]; ok {
		return s
	}
	return "unknown"
}

// WireType returns the wire type mandated for this field type by the
// fixed protobuf wire-format mapping. Group has no valid wire type
// for encode/decode purposes (callers must reject it before
// consulting this).
func (t FieldType) WireType() protowire.WireType {
	switch t {
	case Double, Fixed64, Sfixed64:
		return protowire.Fixed64
	case Float, Fixed32, Sfixed32:
		return protowire.Fixed32
	case Int32, Int64, Uint32, Uint64, Sint32, Sint64, Bool, Enum:
		return protowire.Varint
	case String, Bytes, Message:
		return protowire.LengthDelimited
	default:
		return protowire.Varint
	}
}

// IsPackable reports whether elements of this type may be packed
// into a single length-delimited payload when repeated: every scalar
// and enum type whose wire type is varint, fixed32, or fixed64.
func (t FieldType) IsPackable() bool {
	switch t.WireType() {
	case protowire.Varint, protowire.Fixed32, protowire.Fixed64:
		return t != Message && t != String && t != Bytes && t != Group
	default:
		return false
	}
}

// RequiresTypeName reports whether a FieldDescriptor of this type
// must carry a non-empty TypeName (message and enum fields).
func (t FieldType) RequiresTypeName() bool {
	return t == Message || t == Enum
}

// IsValidMapKeyType reports whether this type may be used as a map
// key: any integral or bool type, or string.
func (t FieldType) IsValidMapKeyType() bool {
	switch t {
	case String, Bool, Int32, Sint32, Sfixed32, Int64, Sint64, Sfixed64, Uint32, Fixed32, Uint64, Fixed64:
		return true
	default:
		return false
	}
}
