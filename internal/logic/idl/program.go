package idl

import (
	"bytes"
	"fmt"

	"anchor-explorer-sol/internal/types"
)

// Program 绑定 program ID 与其 IDL，并在构造时一次性建立查找表：
//   - 指令名 → 下标（重名时保留第一个）
//   - discriminator → 下标
//   - 类型名 → 下标
//
// Program 构造后只读，可在多个 goroutine 间共享。
type Program struct {
	ID  types.Pubkey
	Idl *Idl

	ixByName   map[string]int
	ixByDisc   map[string]int
	discLens   []int // 出现过的 discriminator 长度（新格式允许非 8 字节）
	typeByName map[string]int
}

func NewProgram(id types.Pubkey, idl *Idl) (*Program, error) {
	if idl == nil || len(idl.Instructions) == 0 {
		return nil, ErrEmptyIdl
	}
	p := &Program{
		ID:         id,
		Idl:        idl,
		ixByName:   make(map[string]int, len(idl.Instructions)),
		ixByDisc:   make(map[string]int, len(idl.Instructions)),
		typeByName: make(map[string]int, len(idl.Types)),
	}

	for i := range idl.Instructions {
		ix := &idl.Instructions[i]
		if _, ok := p.ixByName[ix.Name]; !ok {
			p.ixByName[ix.Name] = i
		}
		if len(ix.Discriminator) == 0 {
			return nil, fmt.Errorf("instruction %q has empty discriminator", ix.Name)
		}
		key := string(ix.Discriminator)
		if _, ok := p.ixByDisc[key]; !ok {
			p.ixByDisc[key] = i
		}
		if !containsInt(p.discLens, len(ix.Discriminator)) {
			p.discLens = append(p.discLens, len(ix.Discriminator))
		}
	}
	for i := range idl.Types {
		if _, ok := p.typeByName[idl.Types[i].Name]; !ok {
			p.typeByName[idl.Types[i].Name] = i
		}
	}
	return p, nil
}

// Name 返回 IDL 中声明的程序名
func (p *Program) Name() (string, bool) {
	if p == nil || p.Idl == nil || p.Idl.Name == "" {
		return "", false
	}
	return p.Idl.Name, true
}

// InstructionByName 按名称查找指令定义，重名时第一个生效
func (p *Program) InstructionByName(name string) (*Instruction, bool) {
	i, ok := p.ixByName[name]
	if !ok {
		return nil, false
	}
	return &p.Idl.Instructions[i], true
}

// InstructionByData 根据指令数据前缀匹配 discriminator
func (p *Program) InstructionByData(data []byte) (*Instruction, bool) {
	for _, n := range p.discLens {
		if len(data) < n {
			continue
		}
		if i, ok := p.ixByDisc[string(data[:n])]; ok {
			ix := &p.Idl.Instructions[i]
			if bytes.Equal(ix.Discriminator, data[:n]) {
				return ix, true
			}
		}
	}
	return nil, false
}

func (p *Program) TypeDef(name string) (*TypeDef, bool) {
	i, ok := p.typeByName[name]
	if !ok {
		return nil, false
	}
	return &p.Idl.Types[i], true
}

func containsInt(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
