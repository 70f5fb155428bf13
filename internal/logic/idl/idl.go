package idl

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// Idl 是归一化后的 Anchor IDL，同时兼容 <=0.29 旧格式与 0.30+ 新格式。
type Idl struct {
	Address      string
	Name         string
	Version      string
	Instructions []Instruction
	Types        []TypeDef
}

// Instruction 表示 IDL 中的一条指令定义
type Instruction struct {
	Name          string
	Discriminator []byte
	Accounts      []AccountItem // 可能包含嵌套的 composite 账户组
	Args          []Field
}

// AccountItem 表示指令期望的账户；Accounts 非空时为嵌套账户组。
type AccountItem struct {
	Name     string
	Writable bool
	Signer   bool
	Optional bool
	Address  string // 0.30+ 中固定地址的账户
	Pda      *Pda
	Accounts []AccountItem
}

func (a *AccountItem) IsGroup() bool {
	return len(a.Accounts) > 0
}

type Pda struct {
	Seeds   []Seed
	Program *Seed // 为空时使用当前 program 推导
}

type SeedKind string

const (
	SeedConst   SeedKind = "const"
	SeedAccount SeedKind = "account"
	SeedArg     SeedKind = "arg"
)

// Seed 表示 PDA 的一个种子。const 种子的值已在解析阶段转换为字节。
type Seed struct {
	Kind  SeedKind
	Value []byte
	Path  string
	Type  *Type // 旧格式中 arg / account 种子携带类型，新格式为 nil
}

type Field struct {
	Name string
	Type *Type
}

var (
	ErrEmptyIdl        = errors.New("idl has no instructions")
	ErrUnsupportedType = errors.New("unsupported idl type")
)

// Parse 解析 Anchor IDL JSON
func Parse(data []byte) (*Idl, error) {
	var raw rawIdl
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("error unmarshalling IDL JSON: %w", err)
	}

	out := &Idl{
		Address: raw.Address,
		Name:    raw.Name,
		Version: raw.Version,
	}
	if raw.Metadata != nil {
		if out.Name == "" {
			out.Name = raw.Metadata.Name
		}
		if out.Version == "" {
			out.Version = raw.Metadata.Version
		}
		if out.Address == "" {
			out.Address = raw.Metadata.Address
		}
	}
	if len(raw.Instructions) == 0 {
		return nil, ErrEmptyIdl
	}

	out.Instructions = make([]Instruction, 0, len(raw.Instructions))
	for i := range raw.Instructions {
		ix, err := raw.Instructions[i].normalize()
		if err != nil {
			return nil, fmt.Errorf("instruction %q: %w", raw.Instructions[i].Name, err)
		}
		out.Instructions = append(out.Instructions, ix)
	}

	out.Types = make([]TypeDef, 0, len(raw.Types)+len(raw.Accounts))
	for i := range raw.Types {
		td, err := raw.Types[i].normalize()
		if err != nil {
			return nil, fmt.Errorf("type %q: %w", raw.Types[i].Name, err)
		}
		out.Types = append(out.Types, td)
	}
	// 旧格式中账户结构体定义在 accounts 下，参数也可能引用它们
	for i := range raw.Accounts {
		if len(raw.Accounts[i].Type) == 0 {
			continue
		}
		td, err := raw.Accounts[i].normalize()
		if err != nil {
			return nil, fmt.Errorf("account type %q: %w", raw.Accounts[i].Name, err)
		}
		out.Types = append(out.Types, td)
	}
	return out, nil
}

// SighashDiscriminator 计算 Anchor 旧格式指令的 8 字节 discriminator：
// sha256("global:" + snake_case(name))[:8]
func SighashDiscriminator(name string) []byte {
	sum := sha256.Sum256([]byte("global:" + SnakeCase(name)))
	return sum[:8]
}

// SnakeCase 将 camelCase 转为 snake_case，字母与数字之间不拆分（与 Anchor TS 客户端一致）
func SnakeCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ---------------------------------------------------------------------------
// 原始 JSON 结构

type rawIdl struct {
	Address  string `json:"address"`
	Name     string `json:"name"`
	Version  string `json:"version"`
	Metadata *struct {
		Name    string `json:"name"`
		Version string `json:"version"`
		Address string `json:"address"`
	} `json:"metadata"`
	Instructions []rawInstruction `json:"instructions"`
	Accounts     []rawTypeDef     `json:"accounts"`
	Types        []rawTypeDef     `json:"types"`
}

type rawInstruction struct {
	Name     string       `json:"name"`
	RawDisc  []int        `json:"discriminator"`
	Accounts []rawAccount `json:"accounts"`
	Args     []rawField   `json:"args"`
}

type rawAccount struct {
	Name       string       `json:"name"`
	IsMut      bool         `json:"isMut"`
	IsSigner   bool         `json:"isSigner"`
	IsOptional bool         `json:"isOptional"`
	Writable   bool         `json:"writable"`
	Signer     bool         `json:"signer"`
	Optional   bool         `json:"optional"`
	Address    string       `json:"address"`
	Pda        *rawPda      `json:"pda"`
	Accounts   []rawAccount `json:"accounts"`
}

type rawPda struct {
	Seeds   []rawSeed `json:"seeds"`
	Program *rawSeed  `json:"program"`
}

type rawSeed struct {
	Kind  string          `json:"kind"`
	Type  json.RawMessage `json:"type"`
	Value json.RawMessage `json:"value"`
	Path  string          `json:"path"`
}

type rawField struct {
	Name string          `json:"name"`
	Type json.RawMessage `json:"type"`
}

func (r *rawInstruction) normalize() (Instruction, error) {
	ix := Instruction{Name: r.Name}
	if len(r.RawDisc) > 0 {
		ix.Discriminator = make([]byte, len(r.RawDisc))
		for i, v := range r.RawDisc {
			if v < 0 || v > 255 {
				return ix, fmt.Errorf("invalid discriminator byte %d", v)
			}
			ix.Discriminator[i] = byte(v)
		}
	} else {
		ix.Discriminator = SighashDiscriminator(r.Name)
	}

	accounts, err := normalizeAccounts(r.Accounts)
	if err != nil {
		return ix, err
	}
	ix.Accounts = accounts

	ix.Args = make([]Field, 0, len(r.Args))
	for _, a := range r.Args {
		t, err := ParseType(a.Type)
		if err != nil {
			return ix, fmt.Errorf("arg %q: %w", a.Name, err)
		}
		ix.Args = append(ix.Args, Field{Name: a.Name, Type: t})
	}
	return ix, nil
}

func normalizeAccounts(raws []rawAccount) ([]AccountItem, error) {
	out := make([]AccountItem, 0, len(raws))
	for _, r := range raws {
		item := AccountItem{
			Name:     r.Name,
			Writable: r.IsMut || r.Writable,
			Signer:   r.IsSigner || r.Signer,
			Optional: r.IsOptional || r.Optional,
			Address:  r.Address,
		}
		// PDA 元数据只用于展示校验，无法解析时忽略，不影响指令解码
		if r.Pda != nil {
			if pda, err := r.Pda.normalize(); err == nil {
				item.Pda = pda
			}
		}
		if len(r.Accounts) > 0 {
			nested, err := normalizeAccounts(r.Accounts)
			if err != nil {
				return nil, err
			}
			item.Accounts = nested
		}
		out = append(out, item)
	}
	return out, nil
}

func (r *rawPda) normalize() (*Pda, error) {
	pda := &Pda{Seeds: make([]Seed, 0, len(r.Seeds))}
	for i := range r.Seeds {
		s, err := r.Seeds[i].normalize()
		if err != nil {
			return nil, err
		}
		pda.Seeds = append(pda.Seeds, s)
	}
	if r.Program != nil {
		s, err := r.Program.normalize()
		if err != nil {
			return nil, err
		}
		pda.Program = &s
	}
	return pda, nil
}

func (r *rawSeed) normalize() (Seed, error) {
	s := Seed{Kind: SeedKind(r.Kind), Path: r.Path}
	if len(r.Type) > 0 {
		t, err := ParseType(r.Type)
		if err != nil {
			return s, err
		}
		s.Type = t
	}
	if s.Kind != SeedConst {
		return s, nil
	}

	// const 种子：新格式为字节数组；旧格式为字符串（string / publicKey 类型）或字节数组
	var bytesValue []int
	if err := json.Unmarshal(r.Value, &bytesValue); err == nil {
		s.Value = make([]byte, len(bytesValue))
		for i, v := range bytesValue {
			s.Value[i] = byte(v)
		}
		return s, nil
	}
	var strValue string
	if err := json.Unmarshal(r.Value, &strValue); err != nil {
		return s, fmt.Errorf("unsupported const seed value %s", string(r.Value))
	}
	if s.Type != nil && s.Type.Kind == KindPrimitive && s.Type.Primitive == PrimPubkey {
		pk, err := decodePubkey(strValue)
		if err != nil {
			return s, err
		}
		s.Value = pk
		return s, nil
	}
	s.Value = []byte(strValue)
	return s, nil
}
