package project

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Kind tags the shape of a FieldType.
type Kind int

const (
	KindString Kind = iota + 1
	KindInt
	KindBool
	KindFloat
	KindArray
	KindComplex
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "String"
	case KindInt:
		return "Int"
	case KindBool:
		return "Bool"
	case KindFloat:
		return "Float"
	case KindArray:
		return "Array"
	case KindComplex:
		return "Complex"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// FieldType is the closed union String | Int | Bool | Float | Array(FieldType) | Complex(name).
// Elem is only set for arrays, Name only for complex types. Complex names refer
// to another DataRecord by name and never own it.
type FieldType struct {
	Kind Kind
	Elem *FieldType
	Name string
}

func StringType() FieldType { return FieldType{Kind: KindString} }
func IntType() FieldType    { return FieldType{Kind: KindInt} }
func BoolType() FieldType   { return FieldType{Kind: KindBool} }
func FloatType() FieldType  { return FieldType{Kind: KindFloat} }

// ArrayOf wraps elem in an array type.
func ArrayOf(elem FieldType) FieldType {
	return FieldType{Kind: KindArray, Elem: &elem}
}

// ComplexType references the record called name.
func ComplexType(name string) FieldType {
	return FieldType{Kind: KindComplex, Name: name}
}

// IsScalar reports whether t is one of the four scalar kinds.
func (t FieldType) IsScalar() bool {
	switch t.Kind {
	case KindString, KindInt, KindBool, KindFloat:
		return true
	}
	return false
}

// String renders t in the shorthand notation: String, Int, [Int], User, [[User]].
func (t FieldType) String() string {
	switch t.Kind {
	case KindArray:
		if t.Elem == nil {
			return "[?]"
		}
		return "[" + t.Elem.String() + "]"
	case KindComplex:
		return t.Name
	}
	return t.Kind.String()
}

// ParseFieldType parses the shorthand notation produced by String.
// Any name that is not a scalar or an array is a complex type.
func ParseFieldType(s string) (FieldType, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "":
		return FieldType{}, errors.New("empty field type")
	case "String":
		return StringType(), nil
	case "Int":
		return IntType(), nil
	case "Bool":
		return BoolType(), nil
	case "Float":
		return FloatType(), nil
	}

	if strings.HasPrefix(s, "[") {
		if !strings.HasSuffix(s, "]") {
			return FieldType{}, fmt.Errorf("unterminated array type %q", s)
		}
		elem, err := ParseFieldType(s[1 : len(s)-1])
		if err != nil {
			return FieldType{}, fmt.Errorf("array element of %q: %w", s, err)
		}
		return ArrayOf(elem), nil
	}

	return ComplexType(s), nil
}

// MarshalJSON encodes scalars as bare strings, arrays as {"Array": T} and
// complex types as {"Complex": "Name"}.
func (t FieldType) MarshalJSON() ([]byte, error) {
	switch t.Kind {
	case KindString, KindInt, KindBool, KindFloat:
		return json.Marshal(t.Kind.String())
	case KindArray:
		if t.Elem == nil {
			return nil, errors.New("array field type without element type")
		}
		return json.Marshal(map[string]FieldType{"Array": *t.Elem})
	case KindComplex:
		if t.Name == "" {
			return nil, errors.New("complex field type without a name")
		}
		return json.Marshal(map[string]string{"Complex": t.Name})
	}
	return nil, fmt.Errorf("invalid field type kind %d", int(t.Kind))
}

// UnmarshalJSON accepts the tagged form written by MarshalJSON as well as the
// shorthand string notation ("[String]", "User").
func (t *FieldType) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return errors.New("empty field type")
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := ParseFieldType(s)
		if err != nil {
			return err
		}
		*t = parsed
		return nil

	case '{':
		var tagged map[string]json.RawMessage
		if err := json.Unmarshal(data, &tagged); err != nil {
			return err
		}
		if len(tagged) != 1 {
			return fmt.Errorf("field type object must have exactly one key, got %d", len(tagged))
		}
		for tag, raw := range tagged {
			switch tag {
			case "Array":
				var elem FieldType
				if err := json.Unmarshal(raw, &elem); err != nil {
					return fmt.Errorf("array element: %w", err)
				}
				*t = ArrayOf(elem)
			case "Complex":
				var name string
				if err := json.Unmarshal(raw, &name); err != nil {
					return fmt.Errorf("complex type name: %w", err)
				}
				if name == "" {
					return errors.New("complex field type without a name")
				}
				*t = ComplexType(name)
			default:
				return fmt.Errorf("unknown field type tag %q", tag)
			}
		}
		return nil
	}

	return fmt.Errorf("unsupported field type encoding %s", string(data))
}
