package coder

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValue_String(t *testing.T) {
	cases := []struct {
		name string
		v    Value
		want string
	}{
		{"bool", Value{Kind: ValueBool, Bool: false}, "false"},
		{"nil int", Value{Kind: ValueInt}, "0"},
		{"int", Value{Kind: ValueInt, Int: big.NewInt(-42)}, "-42"},
		{"float", Value{Kind: ValueFloat, Float: 1.5}, "1.5"},
		{"string", Value{Kind: ValueString, Str: "plain"}, "plain"},
		{"bytes", Value{Kind: ValueBytes, Bytes: []byte{0xde, 0xad}}, "0xdead"},
		{"empty bytes", Value{Kind: ValueBytes}, "0x"},
		{"none", Value{Kind: ValueNone}, "null"},
		{"empty struct", Value{Kind: ValueStruct}, "{}"},
		{"unit enum", Value{Kind: ValueEnum, Variant: "Off"}, "Off"},
		{
			"list of strings",
			Value{Kind: ValueList, Items: []Value{{Kind: ValueString, Str: "a"}, {Kind: ValueString, Str: "b"}}},
			`["a", "b"]`,
		},
		{"empty list", Value{Kind: ValueList}, "[]"},
		{
			"nested struct",
			Value{Kind: ValueStruct, Fields: []FieldValue{
				{Name: "inner", Value: Value{Kind: ValueStruct, Fields: []FieldValue{{Name: "x", Value: Value{Kind: ValueBool, Bool: true}}}}},
			}},
			"{ inner: { x: true } }",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.v.String())
		})
	}
}
