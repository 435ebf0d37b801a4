package protojson

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/dynpb/protoreflect/desc"
	"github.com/dynpb/protoreflect/dynamic"
	"github.com/dynpb/protoreflect/protoerr"
)

// JSONDeserializer parses the protobuf canonical JSON mapping into a
// DynamicMessage. The zero value has every option off (including
// StrictTypeValidation, which DefaultUnmarshalOptions turns on) and no
// Resolver.
type JSONDeserializer struct {
	Options UnmarshalOptions
}

// NewJSONDeserializer creates a JSONDeserializer with the given options.
func NewJSONDeserializer(opts UnmarshalOptions) *JSONDeserializer {
	return &JSONDeserializer{Options: opts}
}

// Unmarshal decodes data into a new message under md.
func (d *JSONDeserializer) Unmarshal(data []byte, md *desc.MessageDescriptor) (*dynamic.Message, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	m := dynamic.NewMessage(md)
	if err := d.unmarshalMessage(dec, m); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, protoerr.New(protoerr.InvalidJSON, "", "trailing data after JSON value")
	}
	return m, nil
}

func (d *JSONDeserializer) unmarshalMessage(dec *json.Decoder, m *dynamic.Message) error {
	md := m.GetMessageDescriptor()
	if err := expectDelim(dec, '{'); err != nil {
		return err
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return protoerr.Wrap(protoerr.InvalidJSON, "", "reading object key", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return protoerr.New(protoerr.InvalidJSONStructure, "", "expected string object key")
		}
		fd := md.FindFieldByJSONName(key)
		if fd == nil {
			if d.Options.IgnoreUnknownFields {
				if err := skipJSONValue(dec); err != nil {
					return err
				}
				continue
			}
			return protoerr.New(protoerr.UnknownField, key, md.GetFullyQualifiedName())
		}
		if err := d.unmarshalField(dec, m, fd); err != nil {
			return err
		}
	}
	return expectDelim(dec, '}')
}

func (d *JSONDeserializer) unmarshalField(dec *json.Decoder, m *dynamic.Message, fd *desc.FieldDescriptor) error {
	tok, err := dec.Token()
	if err != nil {
		return protoerr.Wrap(protoerr.InvalidJSON, fd.GetName(), "reading field value", err)
	}
	if tok == nil {
		return nil // JSON null leaves the field absent.
	}

	switch {
	case fd.IsMap():
		delim, ok := tok.(json.Delim)
		if !ok || delim != '{' {
			return protoerr.New(protoerr.InvalidJSONStructure, fd.GetName(), "expected JSON object for map field")
		}
		return d.unmarshalMap(dec, m, fd)
	case fd.IsRepeated():
		delim, ok := tok.(json.Delim)
		if !ok || delim != '[' {
			return protoerr.New(protoerr.InvalidJSONStructure, fd.GetName(), "expected JSON array for repeated field")
		}
		return d.unmarshalList(dec, m, fd)
	default:
		val, err := d.unmarshalScalarFromToken(dec, tok, fd.GetType(), fd.GetTypeName(), fd.GetName())
		if err != nil {
			return err
		}
		return m.TrySet(fd, val)
	}
}

func (d *JSONDeserializer) unmarshalList(dec *json.Decoder, m *dynamic.Message, fd *desc.FieldDescriptor) error {
	index := 0
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return protoerr.Wrap(protoerr.InvalidJSON, fd.GetName(), "reading array element", err)
		}
		val, err := d.unmarshalScalarFromToken(dec, tok, fd.GetType(), fd.GetTypeName(), fd.GetName())
		if err != nil {
			return protoerr.Wrap(protoerr.InvalidArrayElement, fd.GetName(), fmt.Sprintf("index %d", index), err)
		}
		if err := m.AddRepeated(fd, val); err != nil {
			return err
		}
		index++
	}
	return expectDelim(dec, ']')
}

func (d *JSONDeserializer) unmarshalMap(dec *json.Decoder, m *dynamic.Message, fd *desc.FieldDescriptor) error {
	info := fd.GetMapEntryInfo()
	if info == nil {
		return protoerr.New(protoerr.MissingMapEntryInfo, fd.GetName(), "")
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return protoerr.Wrap(protoerr.InvalidJSON, fd.GetName(), "reading map key", err)
		}
		keyStr, ok := keyTok.(string)
		if !ok {
			return protoerr.New(protoerr.InvalidMapKeyFormat, fd.GetName(), "map keys must be JSON strings")
		}
		key, err := convertJSONStringToMapKey(keyStr, info.KeyType)
		if err != nil {
			return protoerr.Wrap(protoerr.InvalidMapKeyFormat, fd.GetName(), keyStr, err)
		}

		valTok, err := dec.Token()
		if err != nil {
			return protoerr.Wrap(protoerr.InvalidJSON, fd.GetName(), "reading map value", err)
		}
		val, err := d.unmarshalScalarFromToken(dec, valTok, info.ValueType, info.ValueTypeName, fd.GetName())
		if err != nil {
			return err
		}
		if err := m.PutMapValue(fd, key, val); err != nil {
			return protoerr.Wrap(protoerr.InvalidMapKey, fd.GetName(), keyStr, err)
		}
	}
	return expectDelim(dec, '}')
}

// unmarshalScalarFromToken interprets a token already consumed from
// dec (tok). For composite values (message object) it continues
// reading from dec using the token only as the opening delimiter.
func (d *JSONDeserializer) unmarshalScalarFromToken(dec *json.Decoder, tok json.Token, typ desc.FieldType, typeName, fieldName string) (interface{}, error) {
	switch typ {
	case desc.Bool:
		b, ok := tok.(bool)
		if !ok {
			return nil, protoerr.New(protoerr.ValueTypeMismatch, fieldName, "expected JSON boolean")
		}
		return b, nil
	case desc.String:
		s, ok := tok.(string)
		if !ok {
			return nil, protoerr.New(protoerr.ValueTypeMismatch, fieldName, "expected JSON string")
		}
		return s, nil
	case desc.Bytes:
		s, ok := tok.(string)
		if !ok {
			return nil, protoerr.New(protoerr.ValueTypeMismatch, fieldName, "expected base64 JSON string")
		}
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, protoerr.Wrap(protoerr.InvalidBase64, fieldName, s, err)
		}
		return b, nil
	case desc.Double, desc.Float:
		return d.unmarshalFloat(tok, typ, fieldName)
	case desc.Int32, desc.Sint32, desc.Sfixed32:
		return d.unmarshalSignedInt(tok, fieldName, math.MinInt32, math.MaxInt32, 32)
	case desc.Int64, desc.Sint64, desc.Sfixed64:
		v, err := d.unmarshalSigned64(tok, fieldName)
		if err != nil {
			return nil, err
		}
		return v, nil
	case desc.Uint32, desc.Fixed32:
		v, err := d.unmarshalUnsigned(tok, fieldName, math.MaxUint32)
		if err != nil {
			return nil, err
		}
		return uint32(v), nil
	case desc.Uint64, desc.Fixed64:
		return d.unmarshalUnsigned64(tok, fieldName)
	case desc.Enum:
		return d.unmarshalEnum(tok, fieldName)
	case desc.Message:
		return d.unmarshalNestedMessage(dec, tok, typeName, fieldName)
	default:
		return nil, protoerr.New(protoerr.UnsupportedFieldType, fieldName, typ.String())
	}
}

func (d *JSONDeserializer) unmarshalNestedMessage(dec *json.Decoder, tok json.Token, typeName, fieldName string) (interface{}, error) {
	delim, ok := tok.(json.Delim)
	if !ok || delim != '{' {
		return nil, protoerr.New(protoerr.InvalidJSONStructure, fieldName, "expected JSON object for message field")
	}
	if d.Options.Resolver == nil {
		return nil, protoerr.New(protoerr.UnsupportedNestedMessage, typeName, "no TypeRegistry configured")
	}
	nestedMd, err := d.Options.Resolver.ResolveMessage(typeName)
	if err != nil {
		return nil, err
	}
	nested := dynamic.NewMessage(nestedMd)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, protoerr.Wrap(protoerr.InvalidJSON, fieldName, "reading nested object key", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, protoerr.New(protoerr.InvalidJSONStructure, fieldName, "expected string object key")
		}
		nfd := nestedMd.FindFieldByJSONName(key)
		if nfd == nil {
			if d.Options.IgnoreUnknownFields {
				if err := skipJSONValue(dec); err != nil {
					return nil, err
				}
				continue
			}
			return nil, protoerr.New(protoerr.UnknownField, key, nestedMd.GetFullyQualifiedName())
		}
		if err := d.unmarshalField(dec, nested, nfd); err != nil {
			return nil, err
		}
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	return nested, nil
}

func (d *JSONDeserializer) unmarshalFloat(tok json.Token, typ desc.FieldType, fieldName string) (interface{}, error) {
	var f float64
	switch v := tok.(type) {
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return nil, protoerr.Wrap(protoerr.InvalidNumberFormat, fieldName, string(v), err)
		}
		f = parsed
	case string:
		switch v {
		case "Infinity":
			f = math.Inf(1)
		case "-Infinity":
			f = math.Inf(-1)
		case "NaN":
			f = math.NaN()
		default:
			parsed, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, protoerr.Wrap(protoerr.InvalidNumberFormat, fieldName, v, err)
			}
			f = parsed
		}
	default:
		return nil, protoerr.New(protoerr.ValueTypeMismatch, fieldName, "expected JSON number or numeric string")
	}
	if typ == desc.Float {
		return float32(f), nil
	}
	return f, nil
}

func (d *JSONDeserializer) unmarshalSignedInt(tok json.Token, fieldName string, min, max int64, bits int) (interface{}, error) {
	v, frac, err := numberToken(tok, fieldName)
	if err != nil {
		return nil, err
	}
	if frac && d.Options.StrictTypeValidation {
		return nil, protoerr.New(protoerr.NumberOutOfRange, fieldName, "fractional JSON number assigned to integer field")
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		iFloat, ferr := strconv.ParseFloat(v, 64)
		if ferr != nil {
			return nil, protoerr.Wrap(protoerr.InvalidNumberFormat, fieldName, v, err)
		}
		i = int64(iFloat)
	}
	if i < min || i > max {
		return nil, protoerr.New(protoerr.NumberOutOfRange, fieldName, v)
	}
	return int32(i), nil
}

func (d *JSONDeserializer) unmarshalSigned64(tok json.Token, fieldName string) (int64, error) {
	v, frac, err := numberToken(tok, fieldName)
	if err != nil {
		return 0, err
	}
	if frac && d.Options.StrictTypeValidation {
		return 0, protoerr.New(protoerr.NumberOutOfRange, fieldName, "fractional JSON number assigned to integer field")
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, protoerr.Wrap(protoerr.InvalidNumberFormat, fieldName, v, err)
	}
	return i, nil
}

func (d *JSONDeserializer) unmarshalUnsigned(tok json.Token, fieldName string, max uint64) (uint64, error) {
	v, frac, err := numberToken(tok, fieldName)
	if err != nil {
		return 0, err
	}
	if frac && d.Options.StrictTypeValidation {
		return 0, protoerr.New(protoerr.NumberOutOfRange, fieldName, "fractional JSON number assigned to integer field")
	}
	u, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, protoerr.Wrap(protoerr.InvalidNumberFormat, fieldName, v, err)
	}
	if u > max {
		return 0, protoerr.New(protoerr.NumberOutOfRange, fieldName, v)
	}
	return u, nil
}

func (d *JSONDeserializer) unmarshalUnsigned64(tok json.Token, fieldName string) (interface{}, error) {
	u, err := d.unmarshalUnsigned(tok, fieldName, math.MaxUint64)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (d *JSONDeserializer) unmarshalEnum(tok json.Token, fieldName string) (interface{}, error) {
	switch v := tok.(type) {
	case json.Number:
		i, err := v.Int64()
		if err != nil {
			return nil, protoerr.Wrap(protoerr.InvalidNumberFormat, fieldName, string(v), err)
		}
		if i < math.MinInt32 || i > math.MaxInt32 {
			return nil, protoerr.New(protoerr.NumberOutOfRange, fieldName, string(v))
		}
		return int32(i), nil
	case string:
		i, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return nil, protoerr.Wrap(protoerr.InvalidEnumValue, fieldName, v, err)
		}
		return int32(i), nil
	default:
		return nil, protoerr.New(protoerr.InvalidEnumValue, fieldName, "expected JSON number or string")
	}
}

// numberToken returns the decimal text of a JSON number token and
// whether it carries a fractional part.
func numberToken(tok json.Token, fieldName string) (string, bool, error) {
	switch v := tok.(type) {
	case json.Number:
		s := string(v)
		return s, hasFractionalPart(s), nil
	case string:
		return v, hasFractionalPart(v), nil
	default:
		return "", false, protoerr.New(protoerr.ValueTypeMismatch, fieldName, "expected JSON number or numeric string")
	}
}

func hasFractionalPart(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			// Treat an all-zero fractional part (".0", ".00") as exact.
			for j := i + 1; j < len(s); j++ {
				if s[j] != '0' {
					return true
				}
			}
			return false
		}
		if s[i] == 'e' || s[i] == 'E' {
			return true
		}
	}
	return false
}

// convertJSONStringToMapKey parses a JSON object key string into the
// map's declared key type.
func convertJSONStringToMapKey(s string, keyType desc.FieldType) (interface{}, error) {
	switch keyType {
	case desc.String:
		return s, nil
	case desc.Bool:
		switch s {
		case "true":
			return true, nil
		case "false":
			return false, nil
		default:
			return nil, fmt.Errorf("invalid boolean map key %q", s)
		}
	case desc.Int32, desc.Sint32, desc.Sfixed32:
		i, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return nil, err
		}
		return int32(i), nil
	case desc.Int64, desc.Sint64, desc.Sfixed64:
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, err
		}
		return i, nil
	case desc.Uint32, desc.Fixed32:
		u, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return nil, err
		}
		return uint32(u), nil
	case desc.Uint64, desc.Fixed64:
		u, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, err
		}
		return u, nil
	default:
		return nil, fmt.Errorf("invalid map key type %s", keyType)
	}
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return protoerr.Wrap(protoerr.InvalidJSON, "", fmt.Sprintf("expected %q", want), err)
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != want {
		return protoerr.New(protoerr.InvalidJSONStructure, "", fmt.Sprintf("expected %q, got %v", want, tok))
	}
	return nil
}

func skipJSONValue(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return protoerr.Wrap(protoerr.InvalidJSON, "", "skipping unknown field value", err)
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return nil
	}
	depth := 0
	switch delim {
	case '{', '[':
		depth = 1
	case '}', ']':
		return nil
	}
	for depth > 0 {
		t, err := dec.Token()
		if err != nil {
			return protoerr.Wrap(protoerr.InvalidJSON, "", "skipping unknown field value", err)
		}
		if d, ok := t.(json.Delim); ok {
			switch d {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
	}
	return nil
}
