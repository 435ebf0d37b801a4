package descbuilder_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dynpb/protoreflect/desc"
	"github.com/dynpb/protoreflect/desc/descbuilder"
)

func TestBuildSimpleFile(t *testing.T) {
	msg := descbuilder.NewMessage("Person").
		AddField(descbuilder.NewField("name", 1, desc.String)).
		AddField(descbuilder.NewField("id", 2, desc.Int32))

	fd := descbuilder.NewFile("person.proto", "example").
		AddMessage(msg).
		Build()

	md := fd.FindMessage("Person")
	require.NotNil(t, md)
	assert.Equal(t, "example.Person", md.GetFullyQualifiedName())
	assert.Len(t, md.GetFields(), 2)
}

func TestBuildMapField(t *testing.T) {
	entry := descbuilder.NewMessage("TagsEntry").AsMapEntry(desc.String, desc.Int32, "")
	msg := descbuilder.NewMessage("Thing").
		AddNestedMessage(entry).
		AddField(descbuilder.NewField("tags", 1, desc.Message).TypeName("example.Thing.TagsEntry").
			AsMap(desc.String, desc.Int32, ""))

	fd := descbuilder.NewFile("thing.proto", "example").AddMessage(msg).Build()
	md := fd.FindMessage("Thing")
	require.NotNil(t, md)
	fld := md.FindFieldByName("tags")
	require.NotNil(t, fld)
	assert.True(t, fld.IsMap())
	assert.Equal(t, desc.String, fld.GetMapEntryInfo().KeyType)

	nested := md.GetNestedMessageTypes()
	require.Len(t, nested, 1)
	assert.True(t, nested[0].IsMapEntry())
}

func TestBuildOneof(t *testing.T) {
	msg := descbuilder.NewMessage("Choice")
	idx := msg.AddOneof("value")
	msg.AddField(descbuilder.NewField("str_val", 1, desc.String).InOneof(idx))
	msg.AddField(descbuilder.NewField("int_val", 2, desc.Int32).InOneof(idx))

	fd := descbuilder.NewFile("choice.proto", "example").AddMessage(msg).Build()
	md := fd.FindMessage("Choice")
	require.NotNil(t, md)
	assert.Equal(t, "value", md.OneofName(0))
	assert.Len(t, md.FieldsInOneof(0), 2)
}

func TestBuildEnum(t *testing.T) {
	e := descbuilder.NewEnum("Status").AddValue("UNKNOWN", 0).AddValue("OK", 1)
	fd := descbuilder.NewFile("status.proto", "example").AddEnum(e).Build()
	require.Len(t, fd.GetEnumTypes(), 1)
	assert.Equal(t, "example.Status", fd.GetEnumTypes()[0].GetFullyQualifiedName())
}

func TestMustBuildPanicsWithContext(t *testing.T) {
	msg := descbuilder.NewMessage("Bad").
		AddField(descbuilder.NewField("a", 1, desc.Int32)).
		AddField(descbuilder.NewField("b", 1, desc.Int32))
	fb := descbuilder.NewFile("bad.proto", "example").AddMessage(msg)
	assert.PanicsWithValue(t,
		`descbuilder: building file "bad.proto": message Bad: duplicate field number 1`,
		func() { fb.MustBuild() })
}
