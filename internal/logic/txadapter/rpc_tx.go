package txadapter

import (
	"encoding/json"
	"fmt"

	"anchor-explorer-sol/internal/logic/domain"
	"anchor-explorer-sol/internal/types"

	"github.com/mr-tron/base58"
)

// rpcTransaction 对应 getTransaction(encoding=jsonParsed) 的 result
type rpcTransaction struct {
	Slot      uint64 `json:"slot"`
	BlockTime *int64 `json:"blockTime"`
	Meta      *struct {
		Err               json.RawMessage `json:"err"`
		InnerInstructions []struct {
			Index        int              `json:"index"`
			Instructions []rpcInstruction `json:"instructions"`
		} `json:"innerInstructions"`
	} `json:"meta"`
	Transaction struct {
		Signatures []string `json:"signatures"`
		Message    struct {
			AccountKeys  []rpcAccountKey  `json:"accountKeys"`
			Instructions []rpcInstruction `json:"instructions"`
		} `json:"message"`
	} `json:"transaction"`
}

type rpcAccountKey struct {
	Pubkey   string `json:"pubkey"`
	Signer   bool   `json:"signer"`
	Writable bool   `json:"writable"`
	Source   string `json:"source"`
}

// rpcInstruction 兼容两种形态：
//   - 未解析：programId + accounts(base58) + data(base58)
//   - 已解析（System / SPL Token 等）：programId + parsed，没有原始数据
type rpcInstruction struct {
	ProgramID string          `json:"programId"`
	Accounts  []string        `json:"accounts"`
	Data      string          `json:"data"`
	Parsed    json.RawMessage `json:"parsed"`
}

// FromRpcJSON 将 getTransaction 的 jsonParsed 结果转换为 TxDetail；result 为 null 时返回 nil, nil
func FromRpcJSON(raw []byte) (*domain.TxDetail, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var tx rpcTransaction
	if err := json.Unmarshal(raw, &tx); err != nil {
		return nil, fmt.Errorf("unmarshal transaction: %w", err)
	}
	if len(tx.Transaction.Signatures) == 0 {
		return nil, fmt.Errorf("%w: missing signature", ErrInvalidTx)
	}
	sig, err := types.TrySignatureFromBase58(tx.Transaction.Signatures[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTx, err)
	}

	keys := make([]domain.AccountKey, 0, len(tx.Transaction.Message.AccountKeys))
	index := make(map[types.Pubkey]int, len(tx.Transaction.Message.AccountKeys))
	for i, k := range tx.Transaction.Message.AccountKeys {
		pk, err := types.TryPubkeyFromBase58(k.Pubkey)
		if err != nil {
			return nil, fmt.Errorf("%w: account key %d: %v", ErrInvalidTx, i, err)
		}
		keys = append(keys, domain.AccountKey{
			Pubkey:   pk,
			Signer:   k.Signer,
			Writable: k.Writable,
			Source:   k.Source,
		})
		if _, ok := index[pk]; !ok {
			index[pk] = i
		}
	}

	detail := &domain.TxDetail{
		Signature:   sig,
		Slot:        tx.Slot,
		AccountKeys: keys,
	}
	if tx.BlockTime != nil {
		detail.BlockTime = *tx.BlockTime
	}

	var inners map[int][]rpcInstruction
	if tx.Meta != nil {
		detail.Err = rpcTxErr(tx.Meta.Err)
		inners = make(map[int][]rpcInstruction, len(tx.Meta.InnerInstructions))
		for _, block := range tx.Meta.InnerInstructions {
			inners[block.Index] = append(inners[block.Index], block.Instructions...)
		}
	}

	detail.Instructions = make([]*domain.TranslatedInstruction, 0, len(tx.Transaction.Message.Instructions))
	for i, raw := range tx.Transaction.Message.Instructions {
		outer, err := raw.resolve(keys, index)
		if err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
		translated := &domain.TranslatedInstruction{Instruction: outer}
		for j, rawInner := range inners[i] {
			inner, err := rawInner.resolve(keys, index)
			if err != nil {
				return nil, fmt.Errorf("instruction %d inner %d: %w", i, j, err)
			}
			translated.Inners = append(translated.Inners, inner)
		}
		detail.Instructions = append(detail.Instructions, translated)
	}
	return detail, nil
}

// resolve 账户按 base58 地址回查交易账户表，以获得 signer / writable 标记
func (r *rpcInstruction) resolve(keys []domain.AccountKey, index map[types.Pubkey]int) (domain.Instruction, error) {
	programID, err := types.TryPubkeyFromBase58(r.ProgramID)
	if err != nil {
		return domain.Instruction{}, fmt.Errorf("%w: programId: %v", ErrInvalidTx, err)
	}
	ix := domain.Instruction{ProgramID: programID}
	if len(r.Parsed) > 0 {
		return ix, nil
	}

	ix.Keys = make([]domain.AccountMeta, 0, len(r.Accounts))
	for _, addr := range r.Accounts {
		pk, err := types.TryPubkeyFromBase58(addr)
		if err != nil {
			return domain.Instruction{}, fmt.Errorf("%w: account %q: %v", ErrInvalidTx, addr, err)
		}
		meta := domain.AccountMeta{Pubkey: pk}
		if i, ok := index[pk]; ok {
			meta.IsSigner = keys[i].Signer
			meta.IsWritable = keys[i].Writable
		}
		ix.Keys = append(ix.Keys, meta)
	}

	if r.Data != "" {
		data, err := base58.Decode(r.Data)
		if err != nil {
			return domain.Instruction{}, fmt.Errorf("%w: data: %v", ErrInvalidTx, err)
		}
		ix.Data = data
	}
	return ix, nil
}

func rpcTxErr(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	return string(raw)
}
