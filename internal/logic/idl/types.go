package idl

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"anchor-explorer-sol/internal/types"
)

type TypeKind uint8

const (
	KindPrimitive TypeKind = iota
	KindOption
	KindCOption
	KindVec
	KindArray
	KindDefined
)

// 基础类型名称，旧格式的 publicKey 统一归一化为 pubkey
const (
	PrimBool   = "bool"
	PrimU8     = "u8"
	PrimI8     = "i8"
	PrimU16    = "u16"
	PrimI16    = "i16"
	PrimU32    = "u32"
	PrimI32    = "i32"
	PrimU64    = "u64"
	PrimI64    = "i64"
	PrimU128   = "u128"
	PrimI128   = "i128"
	PrimF32    = "f32"
	PrimF64    = "f64"
	PrimString = "string"
	PrimBytes  = "bytes"
	PrimPubkey = "pubkey"
)

var primitives = map[string]struct{}{
	PrimBool: {}, PrimU8: {}, PrimI8: {}, PrimU16: {}, PrimI16: {}, PrimU32: {}, PrimI32: {},
	PrimU64: {}, PrimI64: {}, PrimU128: {}, PrimI128: {}, PrimF32: {}, PrimF64: {},
	PrimString: {}, PrimBytes: {}, PrimPubkey: {},
}

// Type 是 IDL 中的字段类型
type Type struct {
	Kind      TypeKind
	Primitive string // KindPrimitive
	Elem      *Type  // option / coption / vec / array 的元素类型
	Len       int    // KindArray
	Defined   string // KindDefined
}

// String 返回用于展示的类型名，例如 u64、Option<pubkey>、Vec<u8>、[u8; 32]
func (t *Type) String() string {
	if t == nil {
		return "unknown"
	}
	switch t.Kind {
	case KindPrimitive:
		return t.Primitive
	case KindOption:
		return "Option<" + t.Elem.String() + ">"
	case KindCOption:
		return "COption<" + t.Elem.String() + ">"
	case KindVec:
		return "Vec<" + t.Elem.String() + ">"
	case KindArray:
		return "[" + t.Elem.String() + "; " + strconv.Itoa(t.Len) + "]"
	case KindDefined:
		return t.Defined
	default:
		return "unknown"
	}
}

// ParseType 解析 IDL JSON 中的类型描述
func ParseType(raw json.RawMessage) (*Type, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty type", ErrUnsupportedType)
	}

	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		if name == "publicKey" {
			name = PrimPubkey
		}
		if _, ok := primitives[name]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, name)
		}
		return &Type{Kind: KindPrimitive, Primitive: name}, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, string(raw))
	}

	if v, ok := obj["option"]; ok {
		return wrapType(KindOption, v)
	}
	if v, ok := obj["coption"]; ok {
		return wrapType(KindCOption, v)
	}
	if v, ok := obj["vec"]; ok {
		return wrapType(KindVec, v)
	}
	if v, ok := obj["array"]; ok {
		return parseArray(v)
	}
	if v, ok := obj["defined"]; ok {
		return parseDefined(v)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, string(raw))
}

func wrapType(kind TypeKind, raw json.RawMessage) (*Type, error) {
	elem, err := ParseType(raw)
	if err != nil {
		return nil, err
	}
	return &Type{Kind: kind, Elem: elem}, nil
}

// parseArray 解析 {"array": [elemType, len]}，泛型长度不支持
func parseArray(raw json.RawMessage) (*Type, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil || len(parts) != 2 {
		return nil, fmt.Errorf("%w: array %s", ErrUnsupportedType, string(raw))
	}
	elem, err := ParseType(parts[0])
	if err != nil {
		return nil, err
	}
	var n int
	if err := json.Unmarshal(parts[1], &n); err != nil || n < 0 {
		return nil, fmt.Errorf("%w: array length %s", ErrUnsupportedType, string(parts[1]))
	}
	return &Type{Kind: KindArray, Elem: elem, Len: n}, nil
}

// parseDefined 兼容旧格式 "defined": "Name" 与新格式 "defined": {"name": "Name"}
func parseDefined(raw json.RawMessage) (*Type, error) {
	var name string
	if err := json.Unmarshal(raw, &name); err == nil && name != "" {
		return &Type{Kind: KindDefined, Defined: name}, nil
	}
	var obj struct {
		Name     string            `json:"name"`
		Generics []json.RawMessage `json:"generics"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil || obj.Name == "" {
		return nil, fmt.Errorf("%w: defined %s", ErrUnsupportedType, string(raw))
	}
	if len(obj.Generics) > 0 {
		return nil, fmt.Errorf("%w: generic type %s", ErrUnsupportedType, obj.Name)
	}
	return &Type{Kind: KindDefined, Defined: obj.Name}, nil
}

type TypeDefKind string

const (
	TypeDefStruct TypeDefKind = "struct"
	TypeDefEnum   TypeDefKind = "enum"
	TypeDefAlias  TypeDefKind = "type"
)

// TypeDef 表示 IDL types 中的自定义类型
type TypeDef struct {
	Name     string
	Kind     TypeDefKind
	Fields   []Field // struct 字段；tuple struct 的字段名为空
	Variants []Variant
	Alias    *Type
}

// Variant 表示枚举的一个变体，Fields 为空时为 unit 变体
type Variant struct {
	Name   string
	Fields []Field
}

type rawTypeDef struct {
	Name string          `json:"name"`
	Type json.RawMessage `json:"type"`
}

type rawTypeBody struct {
	Kind     string            `json:"kind"`
	Fields   []json.RawMessage `json:"fields"`
	Variants []struct {
		Name   string            `json:"name"`
		Fields []json.RawMessage `json:"fields"`
	} `json:"variants"`
	Alias json.RawMessage `json:"alias"`
}

func (r *rawTypeDef) normalize() (TypeDef, error) {
	td := TypeDef{Name: r.Name}
	var body rawTypeBody
	if err := json.Unmarshal(r.Type, &body); err != nil {
		return td, fmt.Errorf("invalid type body: %w", err)
	}
	td.Kind = TypeDefKind(body.Kind)

	switch td.Kind {
	case TypeDefStruct:
		fields, err := parseFields(body.Fields)
		if err != nil {
			return td, err
		}
		td.Fields = fields
	case TypeDefEnum:
		td.Variants = make([]Variant, 0, len(body.Variants))
		for _, v := range body.Variants {
			fields, err := parseFields(v.Fields)
			if err != nil {
				return td, fmt.Errorf("variant %q: %w", v.Name, err)
			}
			td.Variants = append(td.Variants, Variant{Name: v.Name, Fields: fields})
		}
	case TypeDefAlias:
		alias, err := ParseType(body.Alias)
		if err != nil {
			return td, err
		}
		td.Alias = alias
	default:
		return td, fmt.Errorf("%w: type kind %q", ErrUnsupportedType, body.Kind)
	}
	return td, nil
}

// parseFields 字段可能是 {name, type}（命名字段）或直接是类型（tuple 字段）
func parseFields(raws []json.RawMessage) ([]Field, error) {
	fields := make([]Field, 0, len(raws))
	for _, raw := range raws {
		var named rawField
		if err := json.Unmarshal(raw, &named); err == nil && named.Name != "" && len(named.Type) > 0 {
			t, err := ParseType(named.Type)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", named.Name, err)
			}
			fields = append(fields, Field{Name: named.Name, Type: t})
			continue
		}
		t, err := ParseType(raw)
		if err != nil {
			return nil, err
		}
		fields = append(fields, Field{Type: t})
	}
	return fields, nil
}

func decodePubkey(s string) ([]byte, error) {
	pk, err := types.TryPubkeyFromBase58(strings.TrimSpace(s))
	if err != nil {
		return nil, err
	}
	return pk[:], nil
}
