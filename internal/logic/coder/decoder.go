package coder

import (
	"errors"
	"fmt"
	"math/big"

	"anchor-explorer-sol/internal/logic/idl"
	"anchor-explorer-sol/internal/types"

	bin "github.com/gagliardetto/binary"
)

// 递归 defined 类型的最大深度，防止恶意 IDL 导致无限递归
const maxDepth = 32

var (
	ErrUnknownDiscriminator = errors.New("unknown instruction discriminator")
	ErrMaxDepth             = errors.New("max type depth exceeded")
	ErrLengthOverflow       = errors.New("declared length exceeds remaining data")
)

// Arg 表示一个已解码的指令参数
type Arg struct {
	Name  string
	Type  *idl.Type
	Value Value
}

// Instruction 是按 IDL 解码后的指令：名称 + 参数值
type Instruction struct {
	Name string
	Args []Arg
}

// InstructionCoder 绑定一个 Program 的 IDL，对指令数据做 borsh 解码
type InstructionCoder struct {
	program *idl.Program
}

func NewInstructionCoder(program *idl.Program) *InstructionCoder {
	return &InstructionCoder{program: program}
}

// Decode 按 discriminator 匹配指令定义并解码全部参数。
// 参数之后多余的字节会被忽略（与链上 Anchor 程序行为一致）。
func (c *InstructionCoder) Decode(data []byte) (_ *Instruction, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("decode panic: %v", r)
		}
	}()

	def, ok := c.program.InstructionByData(data)
	if !ok {
		return nil, ErrUnknownDiscriminator
	}

	dec := bin.NewBorshDecoder(data[len(def.Discriminator):])
	out := &Instruction{
		Name: def.Name,
		Args: make([]Arg, 0, len(def.Args)),
	}
	for _, field := range def.Args {
		v, err := c.decodeType(dec, field.Type, 0)
		if err != nil {
			return nil, fmt.Errorf("arg %q (%s): %w", field.Name, field.Type, err)
		}
		out.Args = append(out.Args, Arg{Name: field.Name, Type: field.Type, Value: v})
	}
	return out, nil
}

func (c *InstructionCoder) decodeType(dec *bin.Decoder, t *idl.Type, depth int) (Value, error) {
	if depth > maxDepth {
		return Value{}, ErrMaxDepth
	}
	switch t.Kind {
	case idl.KindPrimitive:
		return decodePrimitive(dec, t.Primitive)

	case idl.KindOption:
		tag, err := dec.ReadUint8()
		if err != nil {
			return Value{}, err
		}
		return c.decodeOptional(dec, t.Elem, uint32(tag), depth)

	case idl.KindCOption:
		tag, err := dec.ReadUint32(bin.LE)
		if err != nil {
			return Value{}, err
		}
		return c.decodeOptional(dec, t.Elem, tag, depth)

	case idl.KindVec:
		n, err := dec.ReadUint32(bin.LE)
		if err != nil {
			return Value{}, err
		}
		// 每个元素至少 1 字节（unit 结构体除外，实际 IDL 中不存在），用于挡住伪造的超大长度
		if int64(n) > int64(dec.Remaining()) {
			return Value{}, ErrLengthOverflow
		}
		return c.decodeSeq(dec, t.Elem, int(n), depth)

	case idl.KindArray:
		return c.decodeSeq(dec, t.Elem, t.Len, depth)

	case idl.KindDefined:
		td, ok := c.program.TypeDef(t.Defined)
		if !ok {
			return Value{}, fmt.Errorf("%w: undefined type %q", idl.ErrUnsupportedType, t.Defined)
		}
		return c.decodeDefined(dec, td, depth+1)
	}
	return Value{}, fmt.Errorf("%w: kind %d", idl.ErrUnsupportedType, t.Kind)
}

func (c *InstructionCoder) decodeOptional(dec *bin.Decoder, elem *idl.Type, tag uint32, depth int) (Value, error) {
	switch tag {
	case 0:
		return Value{Kind: ValueNone}, nil
	case 1:
		return c.decodeType(dec, elem, depth+1)
	default:
		return Value{}, fmt.Errorf("invalid option tag %d", tag)
	}
}

// decodeSeq u8 序列直接作为字节展示，其他元素类型逐个解码
func (c *InstructionCoder) decodeSeq(dec *bin.Decoder, elem *idl.Type, n int, depth int) (Value, error) {
	if elem.Kind == idl.KindPrimitive && elem.Primitive == idl.PrimU8 {
		raw, err := dec.ReadNBytes(n)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: ValueBytes, Bytes: raw}, nil
	}
	items := make([]Value, 0, min(n, 256))
	for i := 0; i < n; i++ {
		v, err := c.decodeType(dec, elem, depth+1)
		if err != nil {
			return Value{}, fmt.Errorf("element %d: %w", i, err)
		}
		items = append(items, v)
	}
	return Value{Kind: ValueList, Items: items}, nil
}

func (c *InstructionCoder) decodeDefined(dec *bin.Decoder, td *idl.TypeDef, depth int) (Value, error) {
	switch td.Kind {
	case idl.TypeDefStruct:
		fields, err := c.decodeFields(dec, td.Fields, depth)
		if err != nil {
			return Value{}, fmt.Errorf("%s: %w", td.Name, err)
		}
		return Value{Kind: ValueStruct, Fields: fields}, nil

	case idl.TypeDefEnum:
		idx, err := dec.ReadUint8()
		if err != nil {
			return Value{}, err
		}
		if int(idx) >= len(td.Variants) {
			return Value{}, fmt.Errorf("%s: invalid enum variant %d", td.Name, idx)
		}
		variant := td.Variants[idx]
		fields, err := c.decodeFields(dec, variant.Fields, depth)
		if err != nil {
			return Value{}, fmt.Errorf("%s::%s: %w", td.Name, variant.Name, err)
		}
		return Value{Kind: ValueEnum, Variant: variant.Name, Fields: fields}, nil

	case idl.TypeDefAlias:
		return c.decodeType(dec, td.Alias, depth)
	}
	return Value{}, fmt.Errorf("%w: type kind %q", idl.ErrUnsupportedType, td.Kind)
}

func (c *InstructionCoder) decodeFields(dec *bin.Decoder, defs []idl.Field, depth int) ([]FieldValue, error) {
	if len(defs) == 0 {
		return nil, nil
	}
	fields := make([]FieldValue, 0, len(defs))
	for _, f := range defs {
		v, err := c.decodeType(dec, f.Type, depth)
		if err != nil {
			if f.Name != "" {
				return nil, fmt.Errorf("field %q: %w", f.Name, err)
			}
			return nil, err
		}
		fields = append(fields, FieldValue{Name: f.Name, Value: v})
	}
	return fields, nil
}

func decodePrimitive(dec *bin.Decoder, prim string) (Value, error) {
	switch prim {
	case idl.PrimBool:
		v, err := dec.ReadBool()
		return Value{Kind: ValueBool, Bool: v}, err
	case idl.PrimU8:
		v, err := dec.ReadUint8()
		return uintValue(uint64(v)), err
	case idl.PrimI8:
		v, err := dec.ReadInt8()
		return intValue(int64(v)), err
	case idl.PrimU16:
		v, err := dec.ReadUint16(bin.LE)
		return uintValue(uint64(v)), err
	case idl.PrimI16:
		v, err := dec.ReadInt16(bin.LE)
		return intValue(int64(v)), err
	case idl.PrimU32:
		v, err := dec.ReadUint32(bin.LE)
		return uintValue(uint64(v)), err
	case idl.PrimI32:
		v, err := dec.ReadInt32(bin.LE)
		return intValue(int64(v)), err
	case idl.PrimU64:
		v, err := dec.ReadUint64(bin.LE)
		return uintValue(v), err
	case idl.PrimI64:
		v, err := dec.ReadInt64(bin.LE)
		return intValue(v), err
	case idl.PrimU128, idl.PrimI128:
		raw, err := dec.ReadNBytes(16)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: ValueInt, Int: leToBigInt(raw, prim == idl.PrimI128)}, nil
	case idl.PrimF32:
		v, err := dec.ReadFloat32(bin.LE)
		return Value{Kind: ValueFloat, Float: float64(v)}, err
	case idl.PrimF64:
		v, err := dec.ReadFloat64(bin.LE)
		return Value{Kind: ValueFloat, Float: v}, err
	case idl.PrimString:
		// borsh 字符串长度前缀为 u32（ReadRustString 是 bincode 的 u64 前缀，不能混用）
		raw, err := readBorshBytes(dec)
		return Value{Kind: ValueString, Str: string(raw)}, err
	case idl.PrimBytes:
		raw, err := readBorshBytes(dec)
		return Value{Kind: ValueBytes, Bytes: raw}, err
	case idl.PrimPubkey:
		raw, err := dec.ReadNBytes(32)
		if err != nil {
			return Value{}, err
		}
		var pk types.Pubkey
		copy(pk[:], raw)
		return Value{Kind: ValuePubkey, Pubkey: pk}, nil
	}
	return Value{}, fmt.Errorf("%w: %q", idl.ErrUnsupportedType, prim)
}

func readBorshBytes(dec *bin.Decoder) ([]byte, error) {
	n, err := dec.ReadUint32(bin.LE)
	if err != nil {
		return nil, err
	}
	if int64(n) > int64(dec.Remaining()) {
		return nil, ErrLengthOverflow
	}
	return dec.ReadNBytes(int(n))
}

func uintValue(v uint64) Value {
	return Value{Kind: ValueInt, Int: new(big.Int).SetUint64(v)}
}

func intValue(v int64) Value {
	return Value{Kind: ValueInt, Int: big.NewInt(v)}
}

// leToBigInt 小端字节转 big.Int，signed 时按二进制补码解释
func leToBigInt(le []byte, signed bool) *big.Int {
	be := make([]byte, len(le))
	for i := range le {
		be[len(le)-1-i] = le[i]
	}
	n := new(big.Int).SetBytes(be)
	if signed && len(be) > 0 && be[0]&0x80 != 0 {
		n.Sub(n, new(big.Int).Lsh(big.NewInt(1), uint(len(be)*8)))
	}
	return n
}
