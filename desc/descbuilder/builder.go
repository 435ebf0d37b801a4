// Package descbuilder is a fluent API for constructing desc
// descriptors without a ".proto" text front end: build a FileBuilder,
// add MessageBuilders and EnumBuilders to it, then call Build to
// obtain a *desc.FileDescriptor.
//
// Not every protobuf rule is enforced here (e.g. reserved ranges),
// just the invariants desc.descriptor.go itself requires (unique field
// numbers, valid map key types, required type names).
package descbuilder

import (
	"fmt"

	"github.com/dynpb/protoreflect/desc"
)

// FileBuilder accumulates messages, enums, and services destined for
// a single desc.FileDescriptor.
type FileBuilder struct {
	name    string
	pkg     string
	deps    []*desc.FileDescriptor
	msgs    []*MessageBuilder
	enums   []*EnumBuilder
	svcs    []*ServiceBuilder
}

// NewFile starts a FileBuilder for the given file path and package.
func NewFile(name, pkg string) *FileBuilder {
	return &FileBuilder{name: name, pkg: pkg}
}

// WithDependencies records other FileDescriptors this file's messages
// may reference by fully qualified name (informational; resolution
// itself happens via registry.TypeRegistry, not this builder).
func (b *FileBuilder) WithDependencies(deps ...*desc.FileDescriptor) *FileBuilder {
	b.deps = append(b.deps, deps...)
	return b
}

// AddMessage registers a top-level message builder.
func (b *FileBuilder) AddMessage(m *MessageBuilder) *FileBuilder {
	b.msgs = append(b.msgs, m)
	return b
}

// AddEnum registers a top-level enum builder.
func (b *FileBuilder) AddEnum(e *EnumBuilder) *FileBuilder {
	b.enums = append(b.enums, e)
	return b
}

// AddService registers a top-level service builder.
func (b *FileBuilder) AddService(s *ServiceBuilder) *FileBuilder {
	b.svcs = append(b.svcs, s)
	return b
}

// Build constructs the immutable *desc.FileDescriptor. Panics
// originating from invalid field/message construction (e.g.
// duplicate field numbers) propagate to the caller, matching
// desc.MessageDescriptor.AddField's own panic-on-invariant-violation
// behavior; Build itself does no additional recovery.
func (b *FileBuilder) Build() *desc.FileDescriptor {
	fd := desc.NewFileDescriptor(desc.FileDescriptorOptions{Name: b.name, Package: b.pkg, Deps: b.deps})
	for _, m := range b.msgs {
		fd.AddMessage(m.build())
	}
	for _, e := range b.enums {
		fd.AddEnum(e.build())
	}
	for _, s := range b.svcs {
		fd.AddService(s.build())
	}
	return fd
}

// MessageBuilder accumulates fields, nested messages, and nested
// enums destined for a single desc.MessageDescriptor.
type MessageBuilder struct {
	name    string
	oneofs  []string
	fields  []*FieldBuilder
	nested  []*MessageBuilder
	nEnums  []*EnumBuilder
	mapInfo *desc.MapEntryInfo
}

// NewMessage starts a MessageBuilder with the given local name.
func NewMessage(name string) *MessageBuilder {
	return &MessageBuilder{name: name}
}

// AddOneof declares a oneof group by name, returning its index for
// use in FieldBuilder.InOneof.
func (b *MessageBuilder) AddOneof(name string) int {
	b.oneofs = append(b.oneofs, name)
	return len(b.oneofs) - 1
}

// AddField registers a field builder.
func (b *MessageBuilder) AddField(f *FieldBuilder) *MessageBuilder {
	b.fields = append(b.fields, f)
	return b
}

// AddNestedMessage registers a nested message builder.
func (b *MessageBuilder) AddNestedMessage(m *MessageBuilder) *MessageBuilder {
	b.nested = append(b.nested, m)
	return b
}

// AddNestedEnum registers a nested enum builder.
func (b *MessageBuilder) AddNestedEnum(e *EnumBuilder) *MessageBuilder {
	b.nEnums = append(b.nEnums, e)
	return b
}

// AsMapEntry marks the message under construction as a synthetic map
// entry type (field 1 = key, field 2 = value), mirroring what protoc
// generates for a "map<K, V>" field.
func (b *MessageBuilder) AsMapEntry(keyType, valueType desc.FieldType, valueTypeName string) *MessageBuilder {
	b.mapInfo = &desc.MapEntryInfo{KeyType: keyType, ValueType: valueType, ValueTypeName: valueTypeName}
	b.AddField(NewField("key", 1, keyType))
	vf := NewField("value", 2, valueType)
	if valueTypeName != "" {
		vf.TypeName(valueTypeName)
	}
	b.AddField(vf)
	return b
}

func (b *MessageBuilder) build() *desc.MessageDescriptor {
	md := desc.NewMessageDescriptor(desc.MessageDescriptorOptions{Name: b.name, Oneofs: b.oneofs})
	for _, f := range b.fields {
		md.AddField(f.build())
	}
	for _, n := range b.nested {
		md.AddNestedMessage(n.build())
	}
	for _, e := range b.nEnums {
		md.AddNestedEnum(e.build())
	}
	if b.mapInfo != nil {
		md.AsMapEntry(b.mapInfo)
	}
	return md
}

// FieldBuilder accumulates the settings for a single FieldDescriptor.
type FieldBuilder struct {
	opts desc.FieldDescriptorOptions
}

// NewField starts a FieldBuilder for a singular scalar/message/enum field.
func NewField(name string, number int32, typ desc.FieldType) *FieldBuilder {
	return &FieldBuilder{opts: desc.FieldDescriptorOptions{Name: name, Number: number, Type: typ}}
}

// Repeated marks the field as repeated.
func (b *FieldBuilder) Repeated() *FieldBuilder {
	b.opts.IsRepeated = true
	return b
}

// TypeName sets the fully qualified message/enum type name, required
// for Message and Enum fields.
func (b *FieldBuilder) TypeName(name string) *FieldBuilder {
	b.opts.TypeName = name
	return b
}

// JSONName overrides the default camelCase JSON name.
func (b *FieldBuilder) JSONName(name string) *FieldBuilder {
	b.opts.JSONName = name
	return b
}

// InOneof assigns the field to the oneof at the given index (see
// MessageBuilder.AddOneof).
func (b *FieldBuilder) InOneof(idx int) *FieldBuilder {
	i := idx
	b.opts.OneofIndex = &i
	return b
}

// Default sets the field's declared default value (proto2-style;
// proto3 implicit-presence fields generally leave this unset).
func (b *FieldBuilder) Default(v interface{}) *FieldBuilder {
	b.opts.DefaultValue = v
	return b
}

// AsMap marks the field as a map field with the given key/value
// types, synthesizing the map-entry MessageDescriptor's info inline
// (the entry message itself is still produced by
// MessageBuilder.AsMapEntry for the nested type graph; this variant
// is for callers that only need the FieldDescriptor's MapEntryInfo,
// e.g. when the entry type is registered separately).
func (b *FieldBuilder) AsMap(keyType, valueType desc.FieldType, valueTypeName string) *FieldBuilder {
	b.opts.MapEntry = &desc.MapEntryInfo{KeyType: keyType, ValueType: valueType, ValueTypeName: valueTypeName}
	return b
}

func (b *FieldBuilder) build() *desc.FieldDescriptor {
	return desc.NewFieldDescriptor(b.opts)
}

// EnumBuilder accumulates the values for a single EnumDescriptor.
type EnumBuilder struct {
	name   string
	values []*desc.EnumValueDescriptor
}

// NewEnum starts an EnumBuilder with the given local name.
func NewEnum(name string) *EnumBuilder {
	return &EnumBuilder{name: name}
}

// AddValue registers a (name, number) pair.
func (b *EnumBuilder) AddValue(name string, number int32) *EnumBuilder {
	b.values = append(b.values, &desc.EnumValueDescriptor{Name: name, Number: number})
	return b
}

func (b *EnumBuilder) build() *desc.EnumDescriptor {
	return desc.NewEnumDescriptor(b.name, b.values)
}

// ServiceBuilder accumulates methods for a single ServiceDescriptor.
// Retained for descriptor-graph completeness; this module has no RPC
// transport, so methods carry only type names.
type ServiceBuilder struct {
	name    string
	methods []*desc.MethodDescriptor
}

// NewService starts a ServiceBuilder with the given local name.
func NewService(name string) *ServiceBuilder {
	return &ServiceBuilder{name: name}
}

// AddMethod registers a method by name and request/response type names.
func (b *ServiceBuilder) AddMethod(name, inputTypeName, outputTypeName string) *ServiceBuilder {
	b.methods = append(b.methods, &desc.MethodDescriptor{
		Name: name, InputTypeName: inputTypeName, OutputTypeName: outputTypeName,
	})
	return b
}

func (b *ServiceBuilder) build() *desc.ServiceDescriptor {
	return desc.NewServiceDescriptor(b.name, b.methods)
}

// MustBuild is a convenience wrapper for package-init-time use: it
// calls Build and panics with context if it recovers a panic from a
// nested builder invariant violation.
func (b *FileBuilder) MustBuild() (fd *desc.FileDescriptor) {
	defer func() {
		if r := recover(); r != nil {
			panic(fmt.Sprintf("descbuilder: building file %q: %v", b.name, r))
		}
	}()
	return b.Build()
}
