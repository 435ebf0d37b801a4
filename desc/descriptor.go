// Package desc defines the immutable descriptor graph used throughout
// this module: FileDescriptor, MessageDescriptor, FieldDescriptor,
// EnumDescriptor, and ServiceDescriptor. These types are not wrappers
// around compiled descriptorpb.*Proto messages — they are built
// directly (typically via descbuilder) and carry only the metadata the
// dynamic message model and the codecs need. This keeps the runtime able to "stand
// alone" without a dependency on any statically generated protobuf
// package.
package desc

import (
	"fmt"
	"strings"
)

// Descriptor is the common interface implemented by every node in
// the descriptor graph.
type Descriptor interface {
	// GetName returns the local (unqualified) name.
	GetName() string
	// GetFullyQualifiedName returns "package.Outer.Inner"-style name.
	GetFullyQualifiedName() string
	// GetParent returns the enclosing element, or nil for a FileDescriptor.
	GetParent() Descriptor
	// GetFile returns the FileDescriptor this element was declared in.
	GetFile() *FileDescriptor
}

// FileDescriptor describes a named collection of messages, enums, and
// services sharing a package.
type FileDescriptor struct {
	name     string
	pkg      string
	deps     []*FileDescriptor
	messages []*MessageDescriptor
	enums    []*EnumDescriptor
	services []*ServiceDescriptor
}

// FileDescriptorOptions carries the constructor inputs for a
// FileDescriptor. Messages/Enums/Services are attached to the file
// after construction via AddMessage/AddEnum/AddService (used by
// descbuilder), since messages need a back-reference to their file.
type FileDescriptorOptions struct {
	Name    string
	Package string
	Deps    []*FileDescriptor
}

// NewFileDescriptor creates an empty FileDescriptor; descbuilder (or
// a hand-written caller) subsequently attaches messages/enums/services.
func NewFileDescriptor(opts FileDescriptorOptions) *FileDescriptor {
	return &FileDescriptor{name: opts.Name, pkg: opts.Package, deps: opts.Deps}
}

func (f *FileDescriptor) GetName() string                      { return f.name }
func (f *FileDescriptor) GetPackage() string                    { return f.pkg }
func (f *FileDescriptor) GetFullyQualifiedName() string         { return f.pkg }
func (f *FileDescriptor) GetParent() Descriptor                 { return nil }
func (f *FileDescriptor) GetFile() *FileDescriptor              { return f }
func (f *FileDescriptor) GetDependencies() []*FileDescriptor    { return f.deps }
func (f *FileDescriptor) GetMessageTypes() []*MessageDescriptor { return f.messages }
func (f *FileDescriptor) GetEnumTypes() []*EnumDescriptor       { return f.enums }
func (f *FileDescriptor) GetServices() []*ServiceDescriptor     { return f.services }

// FindMessage returns the top-level message with the given simple
// name declared directly in this file, or nil.
func (f *FileDescriptor) FindMessage(name string) *MessageDescriptor {
	for _, m := range f.messages {
		if m.GetName() == name {
			return m
		}
	}
	return nil
}

func (f *FileDescriptor) AddMessage(m *MessageDescriptor) {
	m.file = f
	m.parent = f
	m.fqn = qualify(f.pkg, m.name)
	m.requalifyChildren()
	f.messages = append(f.messages, m)
}

func (f *FileDescriptor) AddEnum(e *EnumDescriptor) {
	e.file = f
	e.parent = f
	e.fqn = qualify(f.pkg, e.name)
	f.enums = append(f.enums, e)
}

func (f *FileDescriptor) AddService(s *ServiceDescriptor) {
	s.file = f
	f.services = append(f.services, s)
}

// qualify joins a package/enclosing-message fully qualified name with
// a local name, the way protobuf composes fully qualified names.
func qualify(parentFQN, name string) string {
	if parentFQN == "" {
		return name
	}
	return parentFQN + "." + name
}

// MessageDescriptor describes a message type: an ordered-by-number
// set of fields, plus any nested messages/enums/oneofs.
type MessageDescriptor struct {
	name   string
	fqn    string
	file   *FileDescriptor
	parent Descriptor

	fieldsByNumber map[int32]*FieldDescriptor
	fieldOrder     []int32 // ascending field numbers, computed incrementally

	oneofs []string // oneof names, indexed by OneofIndex

	nestedMessages []*MessageDescriptor
	nestedEnums    []*EnumDescriptor

	// mapEntry, when non-nil, marks this message as the synthetic
	// entry type of a map field: field 1 is the key, field 2 is the
	// value.
	mapEntry *MapEntryInfo
}

// MessageDescriptorOptions carries the constructor inputs for a MessageDescriptor.
type MessageDescriptorOptions struct {
	Name   string
	Oneofs []string
}

// NewMessageDescriptor creates a message descriptor with no fields;
// fields are attached with AddField (typically via descbuilder).
func NewMessageDescriptor(opts MessageDescriptorOptions) *MessageDescriptor {
	return &MessageDescriptor{
		name:           opts.Name,
		fqn:            opts.Name,
		fieldsByNumber: map[int32]*FieldDescriptor{},
		oneofs:         opts.Oneofs,
	}
}

func (m *MessageDescriptor) GetName() string              { return m.name }
func (m *MessageDescriptor) GetFullyQualifiedName() string { return m.fqn }
func (m *MessageDescriptor) GetParent() Descriptor         { return m.parent }
func (m *MessageDescriptor) GetFile() *FileDescriptor      { return m.file }

// AddField registers fd as a field of this message. It panics on a
// duplicate field number, since descriptors are built once at program
// init and such a collision is a programming error, not a runtime
// condition a caller can recover from.
func (m *MessageDescriptor) AddField(fd *FieldDescriptor) *MessageDescriptor {
	if _, exists := m.fieldsByNumber[fd.number]; exists {
		panic(fmt.Sprintf("message %s: duplicate field number %d", m.name, fd.number))
	}
	fd.owner = m
	m.fieldsByNumber[fd.number] = fd
	m.fieldOrder = insertSorted(m.fieldOrder, fd.number)
	return m
}

func insertSorted(s []int32, v int32) []int32 {
	i := 0
	for ; i < len(s); i++ {
		if s[i] > v {
			break
		}
	}
	s = append(s, 0)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

// GetFields returns the message's fields in ascending field-number order.
func (m *MessageDescriptor) GetFields() []*FieldDescriptor {
	out := make([]*FieldDescriptor, len(m.fieldOrder))
	for i, n := range m.fieldOrder {
		out[i] = m.fieldsByNumber[n]
	}
	return out
}

// FindFieldByNumber returns the field with the given number, or nil.
func (m *MessageDescriptor) FindFieldByNumber(n int32) *FieldDescriptor {
	return m.fieldsByNumber[n]
}

// FindFieldByName returns the field with the given proto name, or nil.
func (m *MessageDescriptor) FindFieldByName(name string) *FieldDescriptor {
	for _, n := range m.fieldOrder {
		fd := m.fieldsByNumber[n]
		if fd.name == name {
			return fd
		}
	}
	return nil
}

// FindFieldByJSONName returns the field whose proto name or JSON name
// matches name: field lookup by JSON key searches both name and
// jsonName.
func (m *MessageDescriptor) FindFieldByJSONName(name string) *FieldDescriptor {
	for _, n := range m.fieldOrder {
		fd := m.fieldsByNumber[n]
		if fd.name == name || fd.jsonName == name {
			return fd
		}
	}
	return nil
}

// OneofName returns the name of the oneof at the given index.
func (m *MessageDescriptor) OneofName(idx int) string {
	if idx < 0 || idx >= len(m.oneofs) {
		return ""
	}
	return m.oneofs[idx]
}

// FieldsInOneof returns all fields belonging to the oneof at idx, in
// field-number order.
func (m *MessageDescriptor) FieldsInOneof(idx int) []*FieldDescriptor {
	var out []*FieldDescriptor
	for _, n := range m.fieldOrder {
		fd := m.fieldsByNumber[n]
		if fd.oneofIndex != nil && *fd.oneofIndex == idx {
			out = append(out, fd)
		}
	}
	return out
}

func (m *MessageDescriptor) AddNestedMessage(n *MessageDescriptor) *MessageDescriptor {
	n.file = m.file
	n.parent = m
	n.fqn = qualify(m.fqn, n.name)
	n.requalifyChildren()
	m.nestedMessages = append(m.nestedMessages, n)
	return m
}

// requalifyChildren recomputes the file and fully qualified name of
// every nested message and enum below m, after m's own have changed.
func (m *MessageDescriptor) requalifyChildren() {
	for _, n := range m.nestedMessages {
		n.file = m.file
		n.fqn = qualify(m.fqn, n.name)
		n.requalifyChildren()
	}
	for _, e := range m.nestedEnums {
		e.file = m.file
		e.fqn = qualify(m.fqn, e.name)
	}
}

func (m *MessageDescriptor) AddNestedEnum(e *EnumDescriptor) *MessageDescriptor {
	e.file = m.file
	e.parent = m
	e.fqn = qualify(m.fqn, e.name)
	m.nestedEnums = append(m.nestedEnums, e)
	return m
}

func (m *MessageDescriptor) GetNestedMessageTypes() []*MessageDescriptor { return m.nestedMessages }
func (m *MessageDescriptor) GetNestedEnumTypes() []*EnumDescriptor       { return m.nestedEnums }

// AsMapEntry marks this message as the synthetic entry type of a map
// field and returns it, for use inline when building a MapEntryInfo.
func (m *MessageDescriptor) AsMapEntry(info *MapEntryInfo) *MessageDescriptor {
	m.mapEntry = info
	return m
}

// IsMapEntry reports whether this message is the synthetic entry type
// of some map field.
func (m *MessageDescriptor) IsMapEntry() bool { return m.mapEntry != nil }

// MapEntryInfo describes the key/value layout of a map field.
// KeyType is restricted to desc.FieldType.IsValidMapKeyType.
type MapEntryInfo struct {
	KeyType       FieldType
	ValueType     FieldType
	ValueTypeName string // set when ValueType is Message or Enum
}

// FieldDescriptor describes a single field of a message.
type FieldDescriptor struct {
	owner    *MessageDescriptor
	name     string
	jsonName string
	number   int32
	typ      FieldType
	typeName string // fully qualified name; required for Message/Enum

	isRepeated bool
	isMap      bool
	mapEntry   *MapEntryInfo

	oneofIndex *int

	hasDefault   bool
	defaultValue interface{}
}

// FieldDescriptorOptions carries the constructor inputs for a FieldDescriptor.
type FieldDescriptorOptions struct {
	Name         string
	JSONName     string // if empty, derived from Name
	Number       int32
	Type         FieldType
	TypeName     string
	IsRepeated   bool
	MapEntry     *MapEntryInfo // implies IsMap, IsRepeated
	OneofIndex   *int
	DefaultValue interface{} // nil means "no default"
}

// NewFieldDescriptor validates opts and constructs a FieldDescriptor.
// Validation failures panic, since field descriptors describe a fixed
// schema built once at startup, not data arriving over the wire.
func NewFieldDescriptor(opts FieldDescriptorOptions) *FieldDescriptor {
	if opts.Number <= 0 {
		panic(fmt.Sprintf("field %s: number must be > 0, got %d", opts.Name, opts.Number))
	}
	if opts.Type.RequiresTypeName() && opts.TypeName == "" {
		panic(fmt.Sprintf("field %s: type %s requires a type name", opts.Name, opts.Type))
	}
	jsonName := opts.JSONName
	if jsonName == "" {
		jsonName = ToJSONName(opts.Name)
	}
	fd := &FieldDescriptor{
		name:         opts.Name,
		jsonName:     jsonName,
		number:       opts.Number,
		typ:          opts.Type,
		typeName:     opts.TypeName,
		isRepeated:   opts.IsRepeated,
		oneofIndex:   opts.OneofIndex,
		defaultValue: opts.DefaultValue,
		hasDefault:   opts.DefaultValue != nil,
	}
	if opts.MapEntry != nil {
		if !opts.MapEntry.KeyType.IsValidMapKeyType() {
			panic(fmt.Sprintf("field %s: invalid map key type %s", opts.Name, opts.MapEntry.KeyType))
		}
		fd.isMap = true
		fd.isRepeated = true
		fd.mapEntry = opts.MapEntry
	}
	return fd
}

func (fd *FieldDescriptor) GetName() string                { return fd.name }
func (fd *FieldDescriptor) GetJSONName() string             { return fd.jsonName }
func (fd *FieldDescriptor) GetNumber() int32                { return fd.number }
func (fd *FieldDescriptor) GetType() FieldType              { return fd.typ }
func (fd *FieldDescriptor) GetTypeName() string             { return fd.typeName }
func (fd *FieldDescriptor) IsRepeated() bool                { return fd.isRepeated }
func (fd *FieldDescriptor) IsMap() bool                     { return fd.isMap }
func (fd *FieldDescriptor) GetMapEntryInfo() *MapEntryInfo  { return fd.mapEntry }
func (fd *FieldDescriptor) GetOneofIndex() *int             { return fd.oneofIndex }
func (fd *FieldDescriptor) IsInOneof() bool                 { return fd.oneofIndex != nil }
func (fd *FieldDescriptor) HasDefaultValue() bool           { return fd.hasDefault }
func (fd *FieldDescriptor) GetDefaultValue() interface{}    { return fd.defaultValue }
func (fd *FieldDescriptor) GetOwner() *MessageDescriptor    { return fd.owner }

func (fd *FieldDescriptor) GetFullyQualifiedName() string {
	if fd.owner == nil {
		return fd.name
	}
	return qualify(fd.owner.fqn, fd.name)
}
func (fd *FieldDescriptor) GetParent() Descriptor { return fd.owner }
func (fd *FieldDescriptor) GetFile() *FileDescriptor {
	if fd.owner == nil {
		return nil
	}
	return fd.owner.GetFile()
}

// ZeroValue returns the field-type zero value used for an implicit
// default: JSON's includeDefaultValues emission, and the binary
// decoder's rule that a missing side of a map entry gets the zero
// value. It is not meaningful for Message/Group fields.
func (fd *FieldDescriptor) ZeroValue() interface{} {
	return zeroValueForType(fd.typ)
}

// ZeroValue returns the zero value for a bare FieldType, for contexts
// (map key/value types) that have a FieldType but no FieldDescriptor.
func (t FieldType) ZeroValue() interface{} {
	return zeroValueForType(t)
}

func zeroValueForType(t FieldType) interface{} {
	switch t {
	case Double:
		return float64(0)
	case Float:
		return float32(0)
	case Int32, Sint32, Sfixed32, Enum:
		return int32(0)
	case Int64, Sint64, Sfixed64:
		return int64(0)
	case Uint32, Fixed32:
		return uint32(0)
	case Uint64, Fixed64:
		return uint64(0)
	case Bool:
		return false
	case String:
		return ""
	case Bytes:
		return []byte(nil)
	default:
		return nil
	}
}

// ToJSONName derives the canonical Protobuf JSON name from a proto
// field name: lower_snake_case becomes lowerCamelCase, per the
// Protobuf JSON mapping. This is a pure string transform with no
// third-party equivalent in the retrieval pack worth depending on
// (see DESIGN.md).
func ToJSONName(name string) string {
	var b strings.Builder
	upperNext := false
	for _, r := range name {
		if r == '_' {
			upperNext = true
			continue
		}
		if upperNext && r >= 'a' && r <= 'z' {
			r = r - 'a' + 'A'
		}
		upperNext = false
		b.WriteRune(r)
	}
	return b.String()
}

// EnumDescriptor describes an enum type: a set of (name, number)
// pairs. Duplicate numbers are permitted (aliases); names must be
// unique.
type EnumDescriptor struct {
	name   string
	fqn    string
	file   *FileDescriptor
	parent Descriptor
	values []*EnumValueDescriptor
}

// EnumValueDescriptor describes one named value of an enum.
type EnumValueDescriptor struct {
	Name   string
	Number int32
}

// NewEnumDescriptor constructs an EnumDescriptor. It panics if two
// values share a name, since that is a schema-construction error.
func NewEnumDescriptor(name string, values []*EnumValueDescriptor) *EnumDescriptor {
	seen := map[string]bool{}
	for _, v := range values {
		if seen[v.Name] {
			panic(fmt.Sprintf("enum %s: duplicate value name %q", name, v.Name))
		}
		seen[v.Name] = true
	}
	return &EnumDescriptor{name: name, fqn: name, values: values}
}

func (e *EnumDescriptor) GetName() string                   { return e.name }
func (e *EnumDescriptor) GetFullyQualifiedName() string      { return e.fqn }
func (e *EnumDescriptor) GetParent() Descriptor              { return e.parent }
func (e *EnumDescriptor) GetFile() *FileDescriptor           { return e.file }
func (e *EnumDescriptor) GetValues() []*EnumValueDescriptor  { return e.values }

// FindValueByNumber returns the first value with the given number
// (the canonical name for an alias group), or nil.
func (e *EnumDescriptor) FindValueByNumber(n int32) *EnumValueDescriptor {
	for _, v := range e.values {
		if v.Number == n {
			return v
		}
	}
	return nil
}

// FindValueByName returns the value with the given name, or nil.
func (e *EnumDescriptor) FindValueByName(name string) *EnumValueDescriptor {
	for _, v := range e.values {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// ServiceDescriptor is retained for descriptor-graph completeness but
// is otherwise an inert leaf: this module has no RPC transport, so
// MethodDescriptor carries only enough metadata to exist in the
// graph.
type ServiceDescriptor struct {
	name    string
	file    *FileDescriptor
	methods []*MethodDescriptor
}

// MethodDescriptor names a single RPC method's request/response
// message types.
type MethodDescriptor struct {
	Name           string
	InputTypeName  string
	OutputTypeName string
}

func NewServiceDescriptor(name string, methods []*MethodDescriptor) *ServiceDescriptor {
	return &ServiceDescriptor{name: name, methods: methods}
}

func (s *ServiceDescriptor) GetName() string                { return s.name }
func (s *ServiceDescriptor) GetFullyQualifiedName() string   { return qualify(s.file.GetPackage(), s.name) }
func (s *ServiceDescriptor) GetParent() Descriptor           { return s.file }
func (s *ServiceDescriptor) GetFile() *FileDescriptor        { return s.file }
func (s *ServiceDescriptor) GetMethods() []*MethodDescriptor { return s.methods }
