package binarycodec

import (
	"math"
	"sort"

	"github.com/dynpb/protoreflect/desc"
)

func float64bits(f float64) uint64 { return math.Float64bits(f) }
func float32bits(f float32) uint32 { return math.Float32bits(f) }

// sortMapKeys orders a map field's keys by a typed comparison of the
// key values: numeric order for integer keys, byte-wise string order
// for string keys, false before true for bool keys. This gives a
// stable order across runs; it is not the lexicographic order of the
// encoded key bytes (varint and length-prefixed encodings sort
// differently).
func sortMapKeys(keys []interface{}, keyType desc.FieldType) {
	less := func(i, j int) bool {
		switch keyType {
		case desc.String:
			return keys[i].(string) < keys[j].(string)
		case desc.Bool:
			return !keys[i].(bool) && keys[j].(bool)
		case desc.Int32, desc.Sint32, desc.Sfixed32:
			return keys[i].(int32) < keys[j].(int32)
		case desc.Int64, desc.Sint64, desc.Sfixed64:
			return keys[i].(int64) < keys[j].(int64)
		case desc.Uint32, desc.Fixed32:
			return keys[i].(uint32) < keys[j].(uint32)
		case desc.Uint64, desc.Fixed64:
			return keys[i].(uint64) < keys[j].(uint64)
		default:
			return false
		}
	}
	sort.Slice(keys, less)
}
