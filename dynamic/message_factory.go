package dynamic

import "github.com/dynpb/protoreflect/desc"

// MessageFactory creates zero-initialized DynamicMessages for a given
// descriptor.
//
// There is no KnownTypeRegistry indirection to statically linked
// generated types: that bridge is exactly the kind of statically
// generated protobuf runtime this module stands apart from. A
// MessageFactory here always produces a *Message.
type MessageFactory struct{}

// NewMessageFactory creates a MessageFactory.
func NewMessageFactory() *MessageFactory {
	return &MessageFactory{}
}

// Create returns a zero-initialized message for md: no fields set, no
// unknown fields, owning a reference to md.
func (f *MessageFactory) Create(md *desc.MessageDescriptor) *Message {
	return NewMessage(md)
}

// CreateNestedMessage creates a zero-initialized message for the
// message type referenced by fd.GetTypeName(), resolved against
// resolver. It is a convenience for instantiating a message-typed
// field's value; the binary and JSON decoders do not call it and build
// nested messages with NewMessage directly.
func (f *MessageFactory) CreateNestedMessage(fd *desc.FieldDescriptor, resolver func(string) (*desc.MessageDescriptor, error)) (*Message, error) {
	md, err := resolver(fd.GetTypeName())
	if err != nil {
		return nil, err
	}
	return f.Create(md), nil
}
