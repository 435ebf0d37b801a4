// Package dynamic implements DynamicMessage, a runtime-typed message
// instance: a value keyed by field number, shaped according to the
// field's descriptor (singular scalar, message, repeated, map, or
// oneof member), with no compile-time knowledge of the schema. It
// follows proto3 implicit-presence semantics; proto2 groups and
// extensions are not supported.
package dynamic

import (
	"fmt"

	"github.com/dynpb/protoreflect/desc"
	"github.com/dynpb/protoreflect/protoerr"
)

// Map is the storage shape of a map-typed field value: key-typed
// value to value-typed value. Keys are restricted to the comparable
// Go types produced by desc.FieldType.IsValidMapKeyType (string,
// bool, int32, int64, uint32, uint64), so a plain Go map suffices.
type Map map[interface{}]interface{}

// Message is a dynamic protobuf message instance: a MessageDescriptor
// plus a values map keyed by field number, plus an optional
// unknown-field buffer captured during decode.
//
// The zero value is not usable; construct with NewMessage or
// MessageFactory.Create.
type Message struct {
	md            *desc.MessageDescriptor
	values        map[int32]interface{}
	unknownFields map[int32][]UnknownField
}

// UnknownField preserves one undecoded tag+payload occurrence for a
// field number absent from the message's descriptor, the way the
// teacher's dynamic.UnknownField does: a decoded scalar value for
// varint/fixed32/fixed64 wire types (so callers can inspect it) and
// the raw bytes for length-delimited payloads. Group wire types are
// never preserved: the decoder rejects them.
type UnknownField struct {
	WireType int8   // one of the protowire.WireType constants
	Value    uint64 // meaningful when WireType is Varint, Fixed32, or Fixed64
	Contents []byte // meaningful when WireType is LengthDelimited
}

// NewMessage creates a zero-initialized message for md: all fields
// absent, no unknown fields.
func NewMessage(md *desc.MessageDescriptor) *Message {
	return &Message{md: md}
}

// GetMessageDescriptor returns the descriptor this message was created from.
func (m *Message) GetMessageDescriptor() *desc.MessageDescriptor { return m.md }

// GetKnownFields returns the descriptor's fields, in field-number order.
func (m *Message) GetKnownFields() []*desc.FieldDescriptor { return m.md.GetFields() }

// GetUnknownFields returns the field numbers carrying preserved
// unknown-field data.
func (m *Message) GetUnknownFields() []int32 {
	out := make([]int32, 0, len(m.unknownFields))
	for n := range m.unknownFields {
		out = append(out, n)
	}
	return out
}

// GetUnknownFieldValues returns the preserved occurrences for the
// given unknown field number, in arrival order.
func (m *Message) GetUnknownFieldValues(number int32) []UnknownField {
	return m.unknownFields[number]
}

// AddUnknownField appends one occurrence to the unknown-field buffer
// for number. Used by the binary decoder when preserveUnknownFields
// is set; not meant for general application code.
func (m *Message) AddUnknownField(number int32, f UnknownField) {
	if m.unknownFields == nil {
		m.unknownFields = map[int32][]UnknownField{}
	}
	m.unknownFields[number] = append(m.unknownFields[number], f)
}

// ClearUnknownFields discards all preserved unknown-field data, the
// way setting a previously-unknown field number promotes it to known
// and drops its unknown-field entry.
func (m *Message) ClearUnknownFields() { m.unknownFields = nil }

func (m *Message) checkField(fd *desc.FieldDescriptor) error {
	if fd == nil {
		return protoerr.New(protoerr.InvalidFieldType, "", "nil field descriptor")
	}
	if fd.GetOwner() != m.md {
		return protoerr.New(protoerr.InvalidFieldType, fd.GetName(), fmt.Sprintf("field belongs to %s, not %s", fd.GetOwner().GetFullyQualifiedName(), m.md.GetFullyQualifiedName()))
	}
	return nil
}

// HasValue reports whether fd holds a value on this message
// (implicit-presence semantics: a scalar that was never explicitly
// set is absent, even though its zero value is well defined).
func (m *Message) HasValue(fd *desc.FieldDescriptor) bool {
	if err := m.checkField(fd); err != nil {
		return false
	}
	_, ok := m.values[fd.GetNumber()]
	return ok
}

// Get returns the value stored for fd, or nil if absent. The shape of
// the returned value depends on the field's cardinality:
//   - singular scalar/enum/message: the Go-typed value itself
//   - repeated (non-map): []interface{} preserving insertion order
//   - map: dynamic.Map
func (m *Message) Get(fd *desc.FieldDescriptor) interface{} {
	v, _ := m.TryGet(fd)
	return v
}

// TryGet is the error-returning form of Get.
func (m *Message) TryGet(fd *desc.FieldDescriptor) (interface{}, error) {
	if err := m.checkField(fd); err != nil {
		return nil, err
	}
	return m.values[fd.GetNumber()], nil
}

// Set validates val against fd's semantic shape and stores it,
// clearing any other member of fd's oneof group. It panics on
// validation failure; use TrySet for an error return.
func (m *Message) Set(fd *desc.FieldDescriptor, val interface{}) {
	if err := m.TrySet(fd, val); err != nil {
		panic(err.Error())
	}
}

// TrySet is the error-returning form of Set.
func (m *Message) TrySet(fd *desc.FieldDescriptor, val interface{}) error {
	if err := m.checkField(fd); err != nil {
		return err
	}
	converted, err := ValidateFieldValue(fd, val)
	if err != nil {
		return err
	}
	m.setValidated(fd, converted)
	return nil
}

func (m *Message) setValidated(fd *desc.FieldDescriptor, val interface{}) {
	if m.values == nil {
		m.values = map[int32]interface{}{}
	}
	m.values[fd.GetNumber()] = val
	if fd.IsInOneof() {
		idx := *fd.GetOneofIndex()
		for _, other := range m.md.FieldsInOneof(idx) {
			if other.GetNumber() != fd.GetNumber() {
				delete(m.values, other.GetNumber())
			}
		}
	}
	delete(m.unknownFields, fd.GetNumber())
}

// Clear removes fd's value, if any.
func (m *Message) Clear(fd *desc.FieldDescriptor) {
	if err := m.checkField(fd); err != nil {
		panic(err.Error())
	}
	delete(m.values, fd.GetNumber())
}

// GetRepeated returns element index of fd's repeated value.
func (m *Message) GetRepeated(fd *desc.FieldDescriptor, index int) (interface{}, error) {
	if !fd.IsRepeated() || fd.IsMap() {
		return nil, protoerr.New(protoerr.InvalidFieldType, fd.GetName(), "not a repeated (non-map) field")
	}
	slice, _ := m.values[fd.GetNumber()].([]interface{})
	if index < 0 || index >= len(slice) {
		return nil, protoerr.New(protoerr.InvalidFieldType, fd.GetName(), "index out of range")
	}
	return slice[index], nil
}

// AddRepeated appends val to fd's repeated value, creating it if absent.
func (m *Message) AddRepeated(fd *desc.FieldDescriptor, val interface{}) error {
	if !fd.IsRepeated() || fd.IsMap() {
		return protoerr.New(protoerr.InvalidFieldType, fd.GetName(), "not a repeated (non-map) field")
	}
	converted, err := validateElementValue(fd, val)
	if err != nil {
		return err
	}
	slice, _ := m.values[fd.GetNumber()].([]interface{})
	slice = append(slice, converted)
	if m.values == nil {
		m.values = map[int32]interface{}{}
	}
	m.values[fd.GetNumber()] = slice
	return nil
}

// RepeatedLen returns the number of elements in fd's repeated value (0 if absent).
func (m *Message) RepeatedLen(fd *desc.FieldDescriptor) int {
	slice, _ := m.values[fd.GetNumber()].([]interface{})
	return len(slice)
}

// GetMapValue returns the value for key in fd's map value, or (nil, false).
func (m *Message) GetMapValue(fd *desc.FieldDescriptor, key interface{}) (interface{}, bool) {
	mv, _ := m.values[fd.GetNumber()].(Map)
	v, ok := mv[key]
	return v, ok
}

// PutMapValue inserts or overwrites key=val in fd's map value.
func (m *Message) PutMapValue(fd *desc.FieldDescriptor, key, val interface{}) error {
	if !fd.IsMap() {
		return protoerr.New(protoerr.InvalidFieldType, fd.GetName(), "not a map field")
	}
	info := fd.GetMapEntryInfo()
	if info == nil {
		return protoerr.New(protoerr.MissingMapEntryInfo, fd.GetName(), "")
	}
	convertedKey, err := validateScalarValue(fd.GetName(), info.KeyType, "", key)
	if err != nil {
		return err
	}
	convertedVal, err := validateScalarValue(fd.GetName(), info.ValueType, info.ValueTypeName, val)
	if err != nil {
		return err
	}
	mv, _ := m.values[fd.GetNumber()].(Map)
	if mv == nil {
		mv = Map{}
	}
	mv[convertedKey] = convertedVal
	if m.values == nil {
		m.values = map[int32]interface{}{}
	}
	m.values[fd.GetNumber()] = mv
	return nil
}

// MapEntries returns fd's map value, or nil if absent.
func (m *Message) MapEntries(fd *desc.FieldDescriptor) Map {
	mv, _ := m.values[fd.GetNumber()].(Map)
	return mv
}

// Equal reports whether two messages have the same descriptor and
// equivalent field values: nested messages compared recursively, map
// and repeated values compared by content, unknown fields ignored.
// This is the "structurally equal" criterion a decode-then-compare
// round trip is checked against, stated over known field values.
func Equal(a, b *Message) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.md != b.md {
		return false
	}
	if len(a.values) != len(b.values) {
		return false
	}
	for num, av := range a.values {
		bv, ok := b.values[num]
		if !ok {
			return false
		}
		if !valuesEqual(av, bv) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b interface{}) bool {
	switch av := a.(type) {
	case *Message:
		bv, ok := b.(*Message)
		return ok && Equal(av, bv)
	case []interface{}:
		bv, ok := b.([]interface{})
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !valuesEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Map:
		bv, ok := b.(Map)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			bvv, ok := bv[k]
			if !ok || !valuesEqual(v, bvv) {
				return false
			}
		}
		return true
	case []byte:
		bv, ok := b.([]byte)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i] != bv[i] {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}
