// Package protoerr defines the shared error taxonomy used by the
// descriptor, dynamic message, and codec packages. Every failure the
// codecs can produce is reported as an *Error carrying a Kind, so
// callers (and golden tests) can compare failures by kind rather than
// by matching message strings.
package protoerr

import "fmt"

// Kind classifies the failure. Two errors with the same Kind and the
// same Field/Detail are considered equal for test purposes, even if
// their wrapped causes differ.
type Kind int

const (
	// Structural wire-format failures.
	TruncatedVarint Kind = iota
	TruncatedMessage
	InvalidWireType
	WireTypeMismatch
	MalformedPackedField
	MalformedMapEntry

	// Encoding failures.
	InvalidUTF8String
	InvalidBase64

	// Schema/registry failures.
	MissingMapEntryInfo
	MissingTypeName
	UnsupportedNestedMessage
	UnsupportedFieldType
	TypeAlreadyRegistered
	TypeNotFound

	// Type/shape failures.
	InvalidFieldType
	ValueTypeMismatch
	MissingFieldValue

	// JSON failures.
	InvalidJSON
	InvalidJSONStructure
	UnknownField
	InvalidNumberFormat
	NumberOutOfRange
	InvalidEnumValue
	InvalidMapKeyFormat
	InvalidMapKeyType
	InvalidMapKey
	InvalidArrayElement
)

var kindNames = map[Kind]string{
	TruncatedVarint:          "truncatedVarint",
	TruncatedMessage:         "truncatedMessage",
	InvalidWireType:          "invalidWireType",
	WireTypeMismatch:         "wireTypeMismatch",
	MalformedPackedField:     "malformedPackedField",
	MalformedMapEntry:        "malformedMapEntry",
	InvalidUTF8String:        "invalidUTF8String",
	InvalidBase64:            "invalidBase64",
	MissingMapEntryInfo:      "missingMapEntryInfo",
	MissingTypeName:          "missingTypeName",
	UnsupportedNestedMessage: "unsupportedNestedMessage",
	UnsupportedFieldType:     "unsupportedFieldType",
	TypeAlreadyRegistered:    "typeAlreadyRegistered",
	TypeNotFound:             "typeNotFound",
	InvalidFieldType:         "invalidFieldType",
	ValueTypeMismatch:        "valueTypeMismatch",
	MissingFieldValue:        "missingFieldValue",
	InvalidJSON:              "invalidJSON",
	InvalidJSONStructure:     "invalidJSONStructure",
	UnknownField:             "unknownField",
	InvalidNumberFormat:      "invalidNumberFormat",
	NumberOutOfRange:         "numberOutOfRange",
	InvalidEnumValue:         "invalidEnumValue",
	InvalidMapKeyFormat:      "invalidMapKeyFormat",
	InvalidMapKeyType:        "invalidMapKeyType",
	InvalidMapKey:            "invalidMapKey",
	InvalidArrayElement:      "invalidArrayElement",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is the concrete error type returned by every package in this
// module. Field and Detail are free-form location/context strings
// (field name, JSON path, expected/actual wire type, etc.) filled in
// by the call site; they participate in equality but the wrapped
// cause does not.
type Error struct {
	Kind    Kind
	Field   string
	Detail  string
	Cause   error
}

func (e *Error) Error() string {
	switch {
	case e.Field != "" && e.Detail != "":
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Detail)
	case e.Field != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Field)
	case e.Detail != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error with the same Kind, Field,
// and Detail. The wrapped Cause is intentionally excluded so that
// golden tests can compare errors by kind/location alone.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind && e.Field == other.Field && e.Detail == other.Detail
}

// New creates an *Error with no wrapped cause.
func New(kind Kind, field, detail string) *Error {
	return &Error{Kind: kind, Field: field, Detail: detail}
}

// Wrap creates an *Error that wraps cause.
func Wrap(kind Kind, field, detail string, cause error) *Error {
	return &Error{Kind: kind, Field: field, Detail: detail, Cause: cause}
}
