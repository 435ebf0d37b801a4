package dynamic

import (
	"fmt"

	"github.com/dynpb/protoreflect/desc"
	"github.com/dynpb/protoreflect/protoerr"
)

// ValidateFieldValue checks that val matches fd's semantic type,
// including repeated/map shape and element types, and returns the
// normalized value to store. It is exported so the JSON and binary
// decoders can reuse the exact same rules the typed setters use,
// rather than duplicating type-shape logic.
func ValidateFieldValue(fd *desc.FieldDescriptor, val interface{}) (interface{}, error) {
	if fd.IsMap() {
		mv, ok := val.(Map)
		if !ok {
			return nil, typeMismatch(fd, "map", val)
		}
		info := fd.GetMapEntryInfo()
		out := Map{}
		for k, v := range mv {
			ck, err := validateScalarValue(fd.GetName(), info.KeyType, "", k)
			if err != nil {
				return nil, err
			}
			cv, err := validateScalarValue(fd.GetName(), info.ValueType, info.ValueTypeName, v)
			if err != nil {
				return nil, err
			}
			out[ck] = cv
		}
		return out, nil
	}
	if fd.IsRepeated() {
		slice, ok := val.([]interface{})
		if !ok {
			return nil, typeMismatch(fd, "repeated", val)
		}
		out := make([]interface{}, len(slice))
		for i, e := range slice {
			cv, err := validateElementValue(fd, e)
			if err != nil {
				return nil, err
			}
			out[i] = cv
		}
		return out, nil
	}
	return validateElementValue(fd, val)
}

func validateElementValue(fd *desc.FieldDescriptor, val interface{}) (interface{}, error) {
	return validateScalarValue(fd.GetName(), fd.GetType(), fd.GetTypeName(), val)
}

func validateScalarValue(fieldName string, typ desc.FieldType, typeName string, val interface{}) (interface{}, error) {
	switch typ {
	case desc.Double:
		if v, ok := val.(float64); ok {
			return v, nil
		}
	case desc.Float:
		if v, ok := val.(float32); ok {
			return v, nil
		}
	case desc.Int32, desc.Sint32, desc.Sfixed32, desc.Enum:
		if v, ok := val.(int32); ok {
			return v, nil
		}
	case desc.Int64, desc.Sint64, desc.Sfixed64:
		if v, ok := val.(int64); ok {
			return v, nil
		}
	case desc.Uint32, desc.Fixed32:
		if v, ok := val.(uint32); ok {
			return v, nil
		}
	case desc.Uint64, desc.Fixed64:
		if v, ok := val.(uint64); ok {
			return v, nil
		}
	case desc.Bool:
		if v, ok := val.(bool); ok {
			return v, nil
		}
	case desc.String:
		if v, ok := val.(string); ok {
			return v, nil
		}
	case desc.Bytes:
		if v, ok := val.([]byte); ok {
			return v, nil
		}
	case desc.Message:
		if v, ok := val.(*Message); ok {
			if v.md.GetFullyQualifiedName() != typeName {
				return nil, protoerr.New(protoerr.ValueTypeMismatch, fieldName,
					fmt.Sprintf("expected message type %s, got %s", typeName, v.md.GetFullyQualifiedName()))
			}
			return v, nil
		}
	case desc.Group:
		return nil, protoerr.New(protoerr.UnsupportedFieldType, fieldName, "group")
	}
	return nil, protoerr.New(protoerr.ValueTypeMismatch, fieldName,
		fmt.Sprintf("expected %s, got %T", typ, val))
}

func typeMismatch(fd *desc.FieldDescriptor, expectedShape string, val interface{}) error {
	return protoerr.New(protoerr.ValueTypeMismatch, fd.GetName(),
		fmt.Sprintf("expected %s value, got %T", expectedShape, val))
}
