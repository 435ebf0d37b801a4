package registry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dynpb/protoreflect/desc"
	"github.com/dynpb/protoreflect/desc/descbuilder"
	"github.com/dynpb/protoreflect/protoerr"
	"github.com/dynpb/protoreflect/registry"
)

func buildFile(pkg, msgName string) *desc.FileDescriptor {
	msg := descbuilder.NewMessage(msgName).AddField(descbuilder.NewField("x", 1, desc.Int32))
	return descbuilder.NewFile(pkg+".proto", pkg).AddMessage(msg).Build()
}

func TestRegisterAndResolve(t *testing.T) {
	fd := buildFile("pkg", "Widget")
	reg := registry.NewTypeRegistry()
	require.NoError(t, reg.RegisterFile(fd))

	md, err := reg.ResolveMessage("pkg.Widget")
	require.NoError(t, err)
	assert.Equal(t, "Widget", md.GetName())
}

func TestResolveUnknownFails(t *testing.T) {
	reg := registry.NewTypeRegistry()
	_, err := reg.ResolveMessage("pkg.Missing")
	require.Error(t, err)
	var perr *protoerr.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, protoerr.UnsupportedNestedMessage, perr.Kind)
}

func TestReRegisteringSameFileIsIdempotent(t *testing.T) {
	fd := buildFile("pkg", "Widget")
	reg := registry.NewTypeRegistry()
	require.NoError(t, reg.RegisterFile(fd))
	require.NoError(t, reg.RegisterFile(fd))
}

func TestConflictingRegistrationFails(t *testing.T) {
	fd1 := buildFile("pkg", "Widget")
	fd2 := buildFile("pkg", "Widget")
	reg := registry.NewTypeRegistry()
	require.NoError(t, reg.RegisterFile(fd1))
	err := reg.RegisterFile(fd2)
	require.Error(t, err)
	var perr *protoerr.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, protoerr.TypeAlreadyRegistered, perr.Kind)
}

func TestRegisterAllConcurrent(t *testing.T) {
	var files []*desc.FileDescriptor
	for i := 0; i < 20; i++ {
		files = append(files, buildFile("pkg"+string(rune('A'+i)), "Widget"))
	}
	reg := registry.NewTypeRegistry()
	require.NoError(t, reg.RegisterAll(context.Background(), files))
	for i := 0; i < 20; i++ {
		_, err := reg.ResolveMessage("pkg" + string(rune('A'+i)) + ".Widget")
		require.NoError(t, err)
	}
}
