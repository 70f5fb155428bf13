package domain

import (
	"anchor-explorer-sol/internal/types"
)

// 账户来源：静态账户列表 / Address Lookup Table 加载
const (
	SourceTransaction = "transaction"
	SourceLookupTable = "lookupTable"
	SourceUnknown     = "Unknown Source"
)

// AccountKey 表示交易 message 中的一个（已解析的）账户
type AccountKey struct {
	Pubkey   types.Pubkey `json:"pubkey"`
	Signer   bool         `json:"signer"`
	Writable bool         `json:"writable"`
	Source   string       `json:"source"`
}

// TxDetail 表示交易详情，AccountKeys 已包含 ALT 加载的地址。
type TxDetail struct {
	Signature types.Signature `json:"signature"`
	Slot      uint64          `json:"slot"`
	BlockTime int64           `json:"blockTime"` // Unix 秒，未知时为 0
	Err       string          `json:"err,omitempty"`

	AccountKeys  []AccountKey             `json:"accountKeys"`
	Instructions []*TranslatedInstruction `json:"instructions"`
}

// Succeeded 交易是否执行成功
func (tx *TxDetail) Succeeded() bool {
	return tx.Err == ""
}

// AccountSources 构造 地址(base58) → 来源 的映射，来源为空时记为 "Unknown Source"
func (tx *TxDetail) AccountSources() map[string]string {
	if tx == nil {
		return nil
	}
	sources := make(map[string]string, len(tx.AccountKeys))
	for _, key := range tx.AccountKeys {
		source := key.Source
		if source == "" {
			source = SourceUnknown
		}
		sources[key.Pubkey.String()] = source
	}
	return sources
}
