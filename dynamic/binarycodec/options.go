// Package binarycodec implements the descriptor-driven binary wire
// format encoder and decoder: BinarySerializer and BinaryDeserializer.
package binarycodec

import "github.com/dynpb/protoreflect/desc"

// SerializeOptions configures BinarySerializer.Serialize.
type SerializeOptions struct {
	// UsePackedRepeated, when true (the default), emits packable
	// repeated scalar/enum fields as a single length-delimited
	// payload instead of one tag+body per element.
	UsePackedRepeated bool
}

// DefaultSerializeOptions returns the recommended defaults.
func DefaultSerializeOptions() SerializeOptions {
	return SerializeOptions{UsePackedRepeated: true}
}

// DeserializeOptions configures BinaryDeserializer.Deserialize.
type DeserializeOptions struct {
	// PreserveUnknownFields, when true (the default), appends
	// undecoded tag+payload data for fields absent from the target
	// descriptor to the resulting message's unknown-field buffer.
	PreserveUnknownFields bool
	// StrictUTF8Validation, when true (the default), fails decode of
	// a string field whose bytes are not valid UTF-8.
	StrictUTF8Validation bool
	// Resolver resolves a message-typed field's TypeName to its
	// MessageDescriptor, for decoding nested messages. Required to
	// decode a message-typed field or a message-valued map entry; if
	// nil, decoding such a value fails with UnsupportedNestedMessage.
	// Map fields with scalar values decode without it.
	Resolver TypeResolver
}

// TypeResolver resolves a fully qualified message type name to its
// descriptor. *registry.TypeRegistry implements this via
// ResolveMessage.
type TypeResolver interface {
	ResolveMessage(fullyQualifiedName string) (*desc.MessageDescriptor, error)
}

// DefaultDeserializeOptions returns the recommended defaults.
// Resolver is left nil; callers that need nested-message support must
// set it.
func DefaultDeserializeOptions() DeserializeOptions {
	return DeserializeOptions{PreserveUnknownFields: true, StrictUTF8Validation: true}
}
