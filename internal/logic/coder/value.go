package coder

import (
	"encoding/hex"
	"math/big"
	"strconv"
	"strings"

	"anchor-explorer-sol/internal/types"
)

type ValueKind uint8

const (
	ValueBool ValueKind = iota
	ValueInt
	ValueFloat
	ValueString
	ValueBytes
	ValuePubkey
	ValueNone // Option / COption 为空
	ValueStruct
	ValueEnum
	ValueList
)

// Value 是按 IDL 类型解码出的动态值
type Value struct {
	Kind    ValueKind
	Bool    bool
	Int     *big.Int // 所有整数统一用 big.Int 表示，覆盖 u128 / i128
	Float   float64
	Str     string
	Bytes   []byte
	Pubkey  types.Pubkey
	Variant string       // ValueEnum
	Fields  []FieldValue // ValueStruct / ValueEnum 的字段，tuple 字段名为空
	Items   []Value      // ValueList
}

type FieldValue struct {
	Name  string
	Value Value
}

// String 返回用于展示的文本
func (v Value) String() string {
	var b strings.Builder
	v.write(&b)
	return b.String()
}

func (v Value) write(b *strings.Builder) {
	switch v.Kind {
	case ValueBool:
		b.WriteString(strconv.FormatBool(v.Bool))
	case ValueInt:
		if v.Int == nil {
			b.WriteString("0")
			return
		}
		b.WriteString(v.Int.String())
	case ValueFloat:
		b.WriteString(strconv.FormatFloat(v.Float, 'f', -1, 64))
	case ValueString:
		b.WriteString(v.Str)
	case ValueBytes:
		b.WriteString("0x")
		b.WriteString(hex.EncodeToString(v.Bytes))
	case ValuePubkey:
		b.WriteString(v.Pubkey.String())
	case ValueNone:
		b.WriteString("null")
	case ValueStruct:
		writeFields(b, v.Fields)
	case ValueEnum:
		b.WriteString(v.Variant)
		if len(v.Fields) > 0 {
			b.WriteByte(' ')
			writeFields(b, v.Fields)
		}
	case ValueList:
		b.WriteByte('[')
		for i, item := range v.Items {
			if i > 0 {
				b.WriteString(", ")
			}
			item.writeNested(b)
		}
		b.WriteByte(']')
	}
}

// writeNested 嵌套位置的字符串加引号，避免与结构符号混淆
func (v Value) writeNested(b *strings.Builder) {
	if v.Kind == ValueString {
		b.WriteString(strconv.Quote(v.Str))
		return
	}
	v.write(b)
}

// writeFields 命名字段输出为 { a: 1, b: 2 }，tuple 字段输出为 (1, 2)
func writeFields(b *strings.Builder, fields []FieldValue) {
	if len(fields) == 0 {
		b.WriteString("{}")
		return
	}
	tuple := len(fields) > 0 && fields[0].Name == ""
	if tuple {
		b.WriteByte('(')
	} else {
		b.WriteString("{ ")
	}
	for i, f := range fields {
		if i > 0 {
			b.WriteString(", ")
		}
		if !tuple {
			b.WriteString(f.Name)
			b.WriteString(": ")
		}
		f.Value.writeNested(b)
	}
	if tuple {
		b.WriteByte(')')
	} else {
		b.WriteString(" }")
	}
}
