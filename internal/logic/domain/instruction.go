package domain

import "anchor-explorer-sol/internal/types"

// AccountMeta 表示指令中的一个账户及其签名 / 可写标记
type AccountMeta struct {
	Pubkey     types.Pubkey `json:"pubkey"`
	IsSigner   bool         `json:"isSigner"`
	IsWritable bool         `json:"isWritable"`
}

// Instruction 表示链上的一条原始指令（可为主指令或 inner 指令）。
type Instruction struct {
	ProgramID types.Pubkey  `json:"programId"` // 所调用的程序地址
	Keys      []AccountMeta `json:"keys"`      // 指令涉及的账户列表，保持原始顺序
	Data      []byte        `json:"data"`      // 指令原始数据
}

// Pubkeys 返回账户地址列表，顺序与 Keys 一致
func (ix *Instruction) Pubkeys() []types.Pubkey {
	out := make([]types.Pubkey, len(ix.Keys))
	for i, k := range ix.Keys {
		out[i] = k.Pubkey
	}
	return out
}

// TranslatedInstruction 表示一条主指令及其关联的 inner 指令集合。
type TranslatedInstruction struct {
	Instruction Instruction   `json:"instruction"` // 主指令（outer）
	Inners      []Instruction `json:"inners"`      // inner 指令列表（可为空）
}
