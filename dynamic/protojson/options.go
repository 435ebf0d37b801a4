// Package protojson implements the protobuf canonical JSON mapping
// for DynamicMessages: JSONSerializer and JSONDeserializer.
package protojson

import "github.com/dynpb/protoreflect/desc"

// MarshalOptions configures JSONSerializer.Marshal.
type MarshalOptions struct {
	// UseOriginalFieldNames emits each field's declared proto name
	// instead of its jsonName.
	UseOriginalFieldNames bool
	// IncludeDefaultValues emits the field-type zero value for absent
	// singular scalar fields instead of omitting them; never applied to
	// message/repeated/map fields.
	IncludeDefaultValues bool
	// PrettyPrinted indents the output with two-space indentation.
	PrettyPrinted bool
	// UseEnumNumbers emits enum fields as their numeric value. When
	// false (the default), name emission is taken only when Resolver is
	// set, emitting the value's declared name and falling back to the
	// number when the value or the enum type itself is unresolvable.
	UseEnumNumbers bool
	// Resolver resolves an enum field's TypeName to its EnumDescriptor,
	// enabling name-based enum emission. If nil, enum fields are always
	// emitted as numbers regardless of UseEnumNumbers.
	Resolver TypeResolver
}

// DefaultMarshalOptions returns the zero-value defaults.
func DefaultMarshalOptions() MarshalOptions {
	return MarshalOptions{}
}

// UnmarshalOptions configures JSONDeserializer.Unmarshal.
type UnmarshalOptions struct {
	// IgnoreUnknownFields silently skips JSON object keys that don't
	// match any field of the target descriptor (by name or jsonName)
	// instead of failing with unknownField.
	IgnoreUnknownFields bool
	// StrictTypeValidation, when true, fails numeric coercions that
	// would lose precision — a JSON number with a nonzero fractional
	// part (or written with an exponent) assigned to an integer field —
	// with numberOutOfRange. When false, such a number is truncated
	// for int32/sint32/sfixed32 fields only; 64-bit and unsigned
	// integer fields reject it with invalidNumberFormat.
	StrictTypeValidation bool
	// Resolver resolves a message-typed field's TypeName to its
	// MessageDescriptor, extending decode to support nested messages
	// If nil, a message-typed field fails to decode with
	// unsupportedNestedMessage.
	Resolver TypeResolver
}

// TypeResolver resolves a fully qualified message or enum type name to
// its descriptor. *registry.TypeRegistry implements this via
// ResolveMessage/ResolveEnum.
type TypeResolver interface {
	ResolveMessage(fullyQualifiedName string) (*desc.MessageDescriptor, error)
	ResolveEnum(fullyQualifiedName string) (*desc.EnumDescriptor, error)
}

// DefaultUnmarshalOptions returns StrictTypeValidation enabled by
// default. Resolver is left nil; callers that need nested-message
// support must set it.
func DefaultUnmarshalOptions() UnmarshalOptions {
	return UnmarshalOptions{StrictTypeValidation: true}
}
