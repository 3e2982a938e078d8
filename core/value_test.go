package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestValue_Kinds(t *testing.T) {
	assert.Equal(t, ValueString, StringValue("a").Kind())
	assert.Equal(t, ValueNumber, NumberValue(1).Kind())
	assert.Equal(t, ValueBool, BoolValue(true).Kind())
	assert.Equal(t, ValueArray, ArrayValue(StringValue("a")).Kind())
	assert.Equal(t, ValueNull, NullValue().Kind())
	assert.True(t, NullValue().IsNull())
	assert.False(t, StringValue("").IsNull())
}

func TestValueKind_String(t *testing.T) {
	assert.Equal(t, "null", ValueNull.String())
	assert.Equal(t, "string", ValueString.String())
	assert.Equal(t, "number", ValueNumber.String())
	assert.Equal(t, "bool", ValueBool.String())
	assert.Equal(t, "array", ValueArray.String())
	assert.Equal(t, "unknown", ValueKind(99).String())
}

func TestValue_Accessors(t *testing.T) {
	s, ok := StringValue("abc").AsString()
	assert.True(t, ok)
	assert.Equal(t, "abc", s)

	_, ok = NumberValue(1).AsString()
	assert.False(t, ok)

	n, ok := NumberValue(4.2).AsNumber()
	assert.True(t, ok)
	assert.Equal(t, 4.2, n)

	b, ok := BoolValue(true).AsBool()
	assert.True(t, ok)
	assert.True(t, b)

	arr, ok := ArrayValue(StringValue("x"), NumberValue(1)).AsArray()
	assert.True(t, ok)
	assert.Len(t, arr, 2)

	_, ok = StringValue("x").AsArray()
	assert.False(t, ok)
}

func TestValue_Equal(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Value
		expected bool
	}{
		{"equal strings", StringValue("a"), StringValue("a"), true},
		{"different strings", StringValue("a"), StringValue("b"), false},
		{"equal numbers", NumberValue(1.5), NumberValue(1.5), true},
		{"different numbers", NumberValue(1.5), NumberValue(2.5), false},
		{"equal bools", BoolValue(true), BoolValue(true), true},
		{"different bools", BoolValue(true), BoolValue(false), false},
		{"nulls equal", NullValue(), NullValue(), true},
		{"kind mismatch", StringValue("1"), NumberValue(1), false},
		{"equal arrays", ArrayValue(StringValue("a"), NumberValue(1)), ArrayValue(StringValue("a"), NumberValue(1)), true},
		{"array length mismatch", ArrayValue(StringValue("a")), ArrayValue(StringValue("a"), StringValue("b")), false},
		{"array element mismatch", ArrayValue(StringValue("a")), ArrayValue(StringValue("b")), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.a.Equal(tt.b))
		})
	}
}

func TestValue_Matches(t *testing.T) {
	tests := []struct {
		name     string
		value    Value
		field    interface{}
		expected bool
	}{
		{"string match", StringValue("ip"), "ip", true},
		{"string mismatch", StringValue("ip"), "domain", false},
		{"string vs number field", StringValue("1"), 1, false},
		{"number vs float64", NumberValue(0.9), 0.9, true},
		{"number vs int", NumberValue(8), 8, true},
		{"number vs int64", NumberValue(8), int64(8), true},
		{"number vs uint32", NumberValue(8), uint32(8), true},
		{"number mismatch", NumberValue(8), 9, false},
		{"number vs string field", NumberValue(1), "1", false},
		{"bool match", BoolValue(true), true, true},
		{"bool mismatch", BoolValue(true), false, false},
		{"null vs nil", NullValue(), nil, true},
		{"null vs value", NullValue(), "x", false},
		{"array vs string slice", ArrayValue(StringValue("a"), StringValue("b")), []string{"a", "b"}, true},
		{"array vs string slice mismatch", ArrayValue(StringValue("a")), []string{"b"}, false},
		{"array vs interface slice", ArrayValue(NumberValue(1), StringValue("x")), []interface{}{1, "x"}, true},
		{"array vs non-slice", ArrayValue(StringValue("a")), "a", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.value.Matches(tt.field))
		})
	}
}

func TestFromInterface(t *testing.T) {
	v, err := FromInterface("abc")
	require.NoError(t, err)
	assert.Equal(t, ValueString, v.Kind())

	v, err = FromInterface(3.14)
	require.NoError(t, err)
	n, _ := v.AsNumber()
	assert.Equal(t, 3.14, n)

	v, err = FromInterface(7)
	require.NoError(t, err)
	n, _ = v.AsNumber()
	assert.Equal(t, 7.0, n)

	v, err = FromInterface(true)
	require.NoError(t, err)
	assert.Equal(t, ValueBool, v.Kind())

	v, err = FromInterface(nil)
	require.NoError(t, err)
	assert.True(t, v.IsNull())

	v, err = FromInterface([]interface{}{"a", 1, true})
	require.NoError(t, err)
	arr, _ := v.AsArray()
	assert.Len(t, arr, 3)

	_, err = FromInterface(map[string]interface{}{"k": "v"})
	assert.Error(t, err)

	_, err = FromInterface([]interface{}{map[string]interface{}{}})
	assert.Error(t, err)
}

func TestValue_JSONRoundTrip(t *testing.T) {
	original := ArrayValue(StringValue("a"), NumberValue(2), BoolValue(false), NullValue())

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded Value
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, original.Equal(decoded))
}

func TestValue_UnmarshalJSON_RejectsObjects(t *testing.T) {
	var v Value
	err := json.Unmarshal([]byte(`{"nested": "object"}`), &v)
	assert.Error(t, err)
}

func TestValue_UnmarshalYAML(t *testing.T) {
	var cond struct {
		Value Value `yaml:"value"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("value: Critical\n"), &cond))
	s, ok := cond.Value.AsString()
	assert.True(t, ok)
	assert.Equal(t, "Critical", s)

	require.NoError(t, yaml.Unmarshal([]byte("value: [10, 20]\n"), &cond))
	arr, ok := cond.Value.AsArray()
	require.True(t, ok)
	require.Len(t, arr, 2)
	n, _ := arr[0].AsNumber()
	assert.Equal(t, 10.0, n)
}
