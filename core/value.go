package core

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ValueKind identifies which variant a Value holds.
type ValueKind int

const (
	ValueNull ValueKind = iota
	ValueString
	ValueNumber
	ValueBool
	ValueArray
)

// String returns the kind name for logging and error messages.
func (k ValueKind) String() string {
	switch k {
	case ValueNull:
		return "null"
	case ValueString:
		return "string"
	case ValueNumber:
		return "number"
	case ValueBool:
		return "bool"
	case ValueArray:
		return "array"
	default:
		return "unknown"
	}
}

// Value is a closed union over the JSON-like types a rule condition can
// compare against: String | Number | Bool | Array | Null. Keeping the union
// closed means every operator's type-mismatch branch is an explicit case
// rather than runtime reflection over interface{}.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	b    bool
	arr  []Value
}

// StringValue returns a string-typed Value.
func StringValue(s string) Value {
	return Value{kind: ValueString, str: s}
}

// NumberValue returns a number-typed Value.
func NumberValue(f float64) Value {
	return Value{kind: ValueNumber, num: f}
}

// BoolValue returns a bool-typed Value.
func BoolValue(b bool) Value {
	return Value{kind: ValueBool, b: b}
}

// ArrayValue returns an array-typed Value.
func ArrayValue(items ...Value) Value {
	return Value{kind: ValueArray, arr: items}
}

// NullValue returns the null Value.
func NullValue() Value {
	return Value{kind: ValueNull}
}

// Kind returns the variant this value holds.
func (v Value) Kind() ValueKind {
	return v.kind
}

// IsNull reports whether the value is null.
func (v Value) IsNull() bool {
	return v.kind == ValueNull
}

// AsString returns the string payload and whether the value is a string.
func (v Value) AsString() (string, bool) {
	if v.kind != ValueString {
		return "", false
	}
	return v.str, true
}

// AsNumber returns the numeric payload and whether the value is a number.
func (v Value) AsNumber() (float64, bool) {
	if v.kind != ValueNumber {
		return 0, false
	}
	return v.num, true
}

// AsBool returns the bool payload and whether the value is a bool.
func (v Value) AsBool() (bool, bool) {
	if v.kind != ValueBool {
		return false, false
	}
	return v.b, true
}

// AsArray returns the array payload and whether the value is an array.
func (v Value) AsArray() ([]Value, bool) {
	if v.kind != ValueArray {
		return nil, false
	}
	return v.arr, true
}

// Equal reports structural equality between two values. Arrays are equal when
// they have the same length and elementwise-equal members.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case ValueNull:
		return true
	case ValueString:
		return v.str == other.str
	case ValueNumber:
		return v.num == other.num
	case ValueBool:
		return v.b == other.b
	case ValueArray:
		if len(v.arr) != len(other.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(other.arr[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Matches reports structural equality between the value and a raw data view
// entry. Data view entries are the Go types an indicator flattens into:
// string, bool, any numeric type, []string, or nil.
func (v Value) Matches(field interface{}) bool {
	switch v.kind {
	case ValueNull:
		return field == nil
	case ValueString:
		s, ok := field.(string)
		return ok && s == v.str
	case ValueNumber:
		f, ok := toFloat(field)
		return ok && f == v.num
	case ValueBool:
		b, ok := field.(bool)
		return ok && b == v.b
	case ValueArray:
		switch fv := field.(type) {
		case []string:
			if len(fv) != len(v.arr) {
				return false
			}
			for i := range fv {
				if !v.arr[i].Matches(fv[i]) {
					return false
				}
			}
			return true
		case []interface{}:
			if len(fv) != len(v.arr) {
				return false
			}
			for i := range fv {
				if !v.arr[i].Matches(fv[i]) {
					return false
				}
			}
			return true
		default:
			return false
		}
	default:
		return false
	}
}

// toFloat converts the numeric types that appear in data views to float64.
func toFloat(field interface{}) (float64, bool) {
	switch n := field.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// FromInterface builds a Value from decoded JSON/YAML data. Maps and other
// unsupported types are rejected so malformed rule files fail at load time.
func FromInterface(raw interface{}) (Value, error) {
	switch rv := raw.(type) {
	case nil:
		return NullValue(), nil
	case string:
		return StringValue(rv), nil
	case bool:
		return BoolValue(rv), nil
	case float64:
		return NumberValue(rv), nil
	case float32:
		return NumberValue(float64(rv)), nil
	case int:
		return NumberValue(float64(rv)), nil
	case int64:
		return NumberValue(float64(rv)), nil
	case uint64:
		return NumberValue(float64(rv)), nil
	case json.Number:
		f, err := rv.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("invalid numeric condition value %q: %w", rv.String(), err)
		}
		return NumberValue(f), nil
	case []interface{}:
		items := make([]Value, 0, len(rv))
		for i, item := range rv {
			v, err := FromInterface(item)
			if err != nil {
				return Value{}, fmt.Errorf("array element %d: %w", i, err)
			}
			items = append(items, v)
		}
		return ArrayValue(items...), nil
	default:
		return Value{}, fmt.Errorf("unsupported condition value type %T", raw)
	}
}

// Interface returns the plain Go representation used for serialization.
func (v Value) Interface() interface{} {
	switch v.kind {
	case ValueString:
		return v.str
	case ValueNumber:
		return v.num
	case ValueBool:
		return v.b
	case ValueArray:
		items := make([]interface{}, 0, len(v.arr))
		for _, item := range v.arr {
			items = append(items, item.Interface())
		}
		return items
	default:
		return nil
	}
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := FromInterface(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (v Value) MarshalYAML() (interface{}, error) {
	return v.Interface(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	var raw interface{}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := FromInterface(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
