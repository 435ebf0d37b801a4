// Package registry implements a type registry: a mapping from fully
// qualified name to descriptor, used by the binary and JSON decoders
// to resolve message-typed fields by FieldDescriptor.GetTypeName(). It
// holds any desc.Descriptor, not just message types, so enum lookups
// during JSON encoding (emitting an enum value by name) can share one
// registry.
package registry

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dynpb/protoreflect/desc"
	"github.com/dynpb/protoreflect/protoerr"
)

// TypeRegistry resolves fully qualified names to descriptors. Once
// published (handed to a decoder), it is safe for concurrent read
// access from multiple goroutines; mutation during decode is not
// supported and RegisterFile/RegisterAll must complete before any
// concurrent Resolve calls begin.
type TypeRegistry struct {
	mu    sync.RWMutex
	types map[string]desc.Descriptor
	files map[string]*desc.FileDescriptor
}

// NewTypeRegistry creates an empty TypeRegistry.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{
		types: map[string]desc.Descriptor{},
		files: map[string]*desc.FileDescriptor{},
	}
}

// RegisterFile recursively registers fd and all of its messages
// (including nested messages) and enums (including nested enums)
// under their fully qualified names.
//
// Re-registering the exact same *desc.FileDescriptor value is
// idempotent. Registering a different FileDescriptor whose name
// collides with an already-registered message/enum fully qualified
// name fails with TypeAlreadyRegistered: idempotent if the same
// descriptor, conflict otherwise.
func (r *TypeRegistry) RegisterFile(fd *desc.FileDescriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.files[fd.GetName()]; ok {
		if existing == fd {
			return nil
		}
		return protoerr.New(protoerr.TypeAlreadyRegistered, fd.GetName(), "a different file with this name is already registered")
	}
	r.files[fd.GetName()] = fd
	for _, m := range fd.GetMessageTypes() {
		if err := r.registerMessageLocked(m); err != nil {
			return err
		}
	}
	for _, e := range fd.GetEnumTypes() {
		if err := r.registerEnumLocked(e); err != nil {
			return err
		}
	}
	return nil
}

func (r *TypeRegistry) registerMessageLocked(m *desc.MessageDescriptor) error {
	if err := r.put(m.GetFullyQualifiedName(), m); err != nil {
		return err
	}
	for _, nm := range m.GetNestedMessageTypes() {
		if err := r.registerMessageLocked(nm); err != nil {
			return err
		}
	}
	for _, ne := range m.GetNestedEnumTypes() {
		if err := r.registerEnumLocked(ne); err != nil {
			return err
		}
	}
	return nil
}

func (r *TypeRegistry) registerEnumLocked(e *desc.EnumDescriptor) error {
	return r.put(e.GetFullyQualifiedName(), e)
}

func (r *TypeRegistry) put(fqn string, d desc.Descriptor) error {
	if existing, ok := r.types[fqn]; ok {
		if existing == d {
			return nil
		}
		return protoerr.New(protoerr.TypeAlreadyRegistered, fqn, "a different type with this name is already registered")
	}
	r.types[fqn] = d
	return nil
}

// RegisterAll registers many files concurrently, bounded by a worker
// limit, using golang.org/x/sync/errgroup. It stops at the first
// registration failure and returns that error.
func (r *TypeRegistry) RegisterAll(ctx context.Context, files []*desc.FileDescriptor) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, f := range files {
		f := f
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return r.RegisterFile(f)
		})
	}
	return g.Wait()
}

// Resolve looks up a fully qualified name, returning
// UnsupportedNestedMessage if it cannot be found — the same error kind
// the binary decoder surfaces when it cannot resolve a message-typed
// field's TypeName.
func (r *TypeRegistry) Resolve(fullyQualifiedName string) (desc.Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.types[fullyQualifiedName]
	if !ok {
		return nil, protoerr.New(protoerr.UnsupportedNestedMessage, fullyQualifiedName, "type not registered")
	}
	return d, nil
}

// ResolveMessage is a typed convenience wrapper over Resolve for the
// common case of looking up a nested message type.
func (r *TypeRegistry) ResolveMessage(fullyQualifiedName string) (*desc.MessageDescriptor, error) {
	d, err := r.Resolve(fullyQualifiedName)
	if err != nil {
		return nil, err
	}
	md, ok := d.(*desc.MessageDescriptor)
	if !ok {
		return nil, protoerr.New(protoerr.UnsupportedNestedMessage, fullyQualifiedName, "registered type is not a message")
	}
	return md, nil
}

// ResolveEnum is a typed convenience wrapper over Resolve for enum lookups.
func (r *TypeRegistry) ResolveEnum(fullyQualifiedName string) (*desc.EnumDescriptor, error) {
	d, err := r.Resolve(fullyQualifiedName)
	if err != nil {
		return nil, err
	}
	ed, ok := d.(*desc.EnumDescriptor)
	if !ok {
		return nil, protoerr.New(protoerr.UnsupportedNestedMessage, fullyQualifiedName, "registered type is not an enum")
	}
	return ed, nil
}
