package protojson

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"math"
	"sort"
	"strconv"

	"github.com/dynpb/protoreflect/desc"
	"github.com/dynpb/protoreflect/dynamic"
	"github.com/dynpb/protoreflect/protoerr"
)

// JSONSerializer encodes DynamicMessages to the protobuf canonical
// JSON mapping. The zero value uses DefaultMarshalOptions.
type JSONSerializer struct {
	Options MarshalOptions
}

// NewJSONSerializer creates a JSONSerializer with the given options.
func NewJSONSerializer(opts MarshalOptions) *JSONSerializer {
	return &JSONSerializer{Options: opts}
}

// Marshal encodes m to its canonical JSON representation.
func (s *JSONSerializer) Marshal(m *dynamic.Message) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.marshalMessage(&buf, m, 0); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *JSONSerializer) indent(buf *bytes.Buffer, depth int) {
	if !s.Options.PrettyPrinted {
		return
	}
	buf.WriteByte('\n')
	for i := 0; i < depth; i++ {
		buf.WriteString("  ")
	}
}

func (s *JSONSerializer) marshalMessage(buf *bytes.Buffer, m *dynamic.Message, depth int) error {
	md := m.GetMessageDescriptor()
	buf.WriteByte('{')
	first := true
	for _, fd := range md.GetFields() {
		has := m.HasValue(fd)
		if !has && !s.shouldEmitDefault(fd) {
			continue
		}
		val := m.Get(fd)
		if !has {
			val = fd.ZeroValue()
		}

		if !first {
			buf.WriteByte(',')
		}
		first = false
		s.indent(buf, depth+1)

		name := fd.GetJSONName()
		if s.Options.UseOriginalFieldNames {
			name = fd.GetName()
		}
		writeJSONString(buf, name)
		buf.WriteByte(':')
		if s.Options.PrettyPrinted {
			buf.WriteByte(' ')
		}

		if err := s.marshalField(buf, fd, val, depth+1); err != nil {
			return err
		}
	}
	if !first {
		s.indent(buf, depth)
	}
	buf.WriteByte('}')
	return nil
}

// shouldEmitDefault reports whether an absent field should still be
// emitted with its zero value: only singular scalar fields, per spec
// §9's resolution (never message/repeated/map).
func (s *JSONSerializer) shouldEmitDefault(fd *desc.FieldDescriptor) bool {
	if !s.Options.IncludeDefaultValues {
		return false
	}
	if fd.IsMap() || fd.IsRepeated() || fd.GetType() == desc.Message {
		return false
	}
	return true
}

func (s *JSONSerializer) marshalField(buf *bytes.Buffer, fd *desc.FieldDescriptor, val interface{}, depth int) error {
	switch {
	case fd.IsMap():
		return s.marshalMap(buf, fd, val, depth)
	case fd.IsRepeated():
		return s.marshalList(buf, fd, val, depth)
	default:
		return s.marshalScalar(buf, fd, val, depth)
	}
}

func (s *JSONSerializer) marshalList(buf *bytes.Buffer, fd *desc.FieldDescriptor, val interface{}, depth int) error {
	elems, _ := val.([]interface{})
	buf.WriteByte('[')
	for i, e := range elems {
		if i > 0 {
			buf.WriteByte(',')
		}
		s.indent(buf, depth+1)
		if err := s.marshalScalar(buf, fd, e, depth+1); err != nil {
			return err
		}
	}
	if len(elems) > 0 {
		s.indent(buf, depth)
	}
	buf.WriteByte(']')
	return nil
}

func (s *JSONSerializer) marshalMap(buf *bytes.Buffer, fd *desc.FieldDescriptor, val interface{}, depth int) error {
	mv, _ := val.(dynamic.Map)
	info := fd.GetMapEntryInfo()
	if info == nil {
		return protoerr.New(protoerr.MissingMapEntryInfo, fd.GetName(), "")
	}

	keys := make([]interface{}, 0, len(mv))
	for k := range mv {
		keys = append(keys, k)
	}
	sortKeysForJSON(keys, info.KeyType)

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		s.indent(buf, depth+1)
		keyStr, err := mapKeyToJSONString(k, info.KeyType)
		if err != nil {
			return err
		}
		writeJSONString(buf, keyStr)
		buf.WriteByte(':')
		if s.Options.PrettyPrinted {
			buf.WriteByte(' ')
		}
		if err := s.marshalValueOfType(buf, info.ValueType, info.ValueTypeName, mv[k], depth+1); err != nil {
			return err
		}
	}
	if len(keys) > 0 {
		s.indent(buf, depth)
	}
	buf.WriteByte('}')
	return nil
}

func (s *JSONSerializer) marshalScalar(buf *bytes.Buffer, fd *desc.FieldDescriptor, val interface{}, depth int) error {
	return s.marshalValueOfType(buf, fd.GetType(), fd.GetTypeName(), val, depth)
}

func (s *JSONSerializer) marshalValueOfType(buf *bytes.Buffer, typ desc.FieldType, typeName string, val interface{}, depth int) error {
	switch typ {
	case desc.Int32, desc.Sint32, desc.Sfixed32:
		buf.WriteString(strconv.FormatInt(int64(val.(int32)), 10))
	case desc.Uint32, desc.Fixed32:
		buf.WriteString(strconv.FormatUint(uint64(val.(uint32)), 10))
	case desc.Int64, desc.Sint64, desc.Sfixed64:
		buf.WriteByte('"')
		buf.WriteString(strconv.FormatInt(val.(int64), 10))
		buf.WriteByte('"')
	case desc.Uint64, desc.Fixed64:
		buf.WriteByte('"')
		buf.WriteString(strconv.FormatUint(val.(uint64), 10))
		buf.WriteByte('"')
	case desc.Double:
		writeJSONFloat(buf, val.(float64), 64)
	case desc.Float:
		writeJSONFloat(buf, float64(val.(float32)), 32)
	case desc.Bool:
		if val.(bool) {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case desc.String:
		writeJSONString(buf, val.(string))
	case desc.Bytes:
		buf.WriteByte('"')
		buf.WriteString(base64.StdEncoding.EncodeToString(val.([]byte)))
		buf.WriteByte('"')
	case desc.Enum:
		return s.marshalEnum(buf, typeName, val.(int32))
	case desc.Message:
		nested, ok := val.(*dynamic.Message)
		if !ok || nested == nil {
			buf.WriteString("null")
			return nil
		}
		return s.marshalMessage(buf, nested, depth)
	default:
		return protoerr.New(protoerr.UnsupportedFieldType, "", typ.String())
	}
	return nil
}

func (s *JSONSerializer) marshalEnum(buf *bytes.Buffer, typeName string, num int32) error {
	if !s.Options.UseEnumNumbers && s.Options.Resolver != nil && typeName != "" {
		if ed, err := s.Options.Resolver.ResolveEnum(typeName); err == nil {
			if vd := ed.FindValueByNumber(num); vd != nil {
				writeJSONString(buf, vd.Name)
				return nil
			}
		}
	}
	buf.WriteString(strconv.FormatInt(int64(num), 10))
	return nil
}

func mapKeyToJSONString(key interface{}, keyType desc.FieldType) (string, error) {
	switch keyType {
	case desc.String:
		return key.(string), nil
	case desc.Bool:
		if key.(bool) {
			return "true", nil
		}
		return "false", nil
	case desc.Int32, desc.Sint32, desc.Sfixed32:
		return strconv.FormatInt(int64(key.(int32)), 10), nil
	case desc.Int64, desc.Sint64, desc.Sfixed64:
		return strconv.FormatInt(key.(int64), 10), nil
	case desc.Uint32, desc.Fixed32:
		return strconv.FormatUint(uint64(key.(uint32)), 10), nil
	case desc.Uint64, desc.Fixed64:
		return strconv.FormatUint(key.(uint64), 10), nil
	default:
		return "", protoerr.New(protoerr.InvalidMapKeyType, "", keyType.String())
	}
}

func sortKeysForJSON(keys []interface{}, keyType desc.FieldType) {
	less := func(i, j int) bool {
		si, _ := mapKeyToJSONString(keys[i], keyType)
		sj, _ := mapKeyToJSONString(keys[j], keyType)
		return si < sj
	}
	sort.Slice(keys, less)
}

func writeJSONString(buf *bytes.Buffer, str string) {
	b, _ := json.Marshal(str)
	buf.Write(b)
}

func writeJSONFloat(buf *bytes.Buffer, f float64, bits int) {
	switch {
	case math.IsNaN(f):
		buf.WriteString(`"NaN"`)
	case math.IsInf(f, 1):
		buf.WriteString(`"Infinity"`)
	case math.IsInf(f, -1):
		buf.WriteString(`"-Infinity"`)
	default:
		buf.WriteString(strconv.FormatFloat(f, 'g', -1, bits))
	}
}
