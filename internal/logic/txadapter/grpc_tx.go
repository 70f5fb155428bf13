package txadapter

import (
	"encoding/hex"
	"errors"
	"fmt"

	"anchor-explorer-sol/internal/logic/domain"
	"anchor-explorer-sol/internal/types"

	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"
)

var ErrInvalidTx = errors.New("invalid transaction")

// buildFullAccountKeys 构造交易中完整的账户列表：
// message.accountKeys 在前，Address Lookup Table 的 writable、readonly 地址依次在后，
// 与链上 accountIndex 的编号规则一致。
//
// signer / writable 由 message header 推导：
//   - [0, numSigners) 为 signer，其中最后 numReadonlySigned 个只读；
//   - 其余静态账户中，最后 numReadonlyUnsigned 个只读；
//   - ALT 加载的账户均不是 signer，writable 部分可写。
func buildFullAccountKeys(
	header *pb.MessageHeader,
	accountKeys, loadedWritable, loadedReadonly [][]byte,
) ([]domain.AccountKey, error) {
	total := len(accountKeys) + len(loadedWritable) + len(loadedReadonly)
	keys := make([]domain.AccountKey, total)

	numStatic := len(accountKeys)
	numSigners := int(header.GetNumRequiredSignatures())
	numReadonlySigned := int(header.GetNumReadonlySignedAccounts())
	numReadonlyUnsigned := int(header.GetNumReadonlyUnsignedAccounts())
	if numSigners > numStatic || numReadonlySigned > numSigners || numReadonlyUnsigned > numStatic-numSigners {
		return nil, fmt.Errorf("%w: header %d/%d/%d with %d static keys",
			ErrInvalidTx, numSigners, numReadonlySigned, numReadonlyUnsigned, numStatic)
	}

	i := 0
	for _, b := range accountKeys {
		pk, err := types.TryPubkeyFromBytes(b)
		if err != nil {
			return nil, fmt.Errorf("invalid pubkey in accountKeys at index %d", i)
		}
		signer := i < numSigners
		writable := i < numSigners-numReadonlySigned ||
			(!signer && i < numStatic-numReadonlyUnsigned)
		keys[i] = domain.AccountKey{
			Pubkey:   pk,
			Signer:   signer,
			Writable: writable,
			Source:   domain.SourceTransaction,
		}
		i++
	}

	for _, b := range loadedWritable {
		pk, err := types.TryPubkeyFromBytes(b)
		if err != nil {
			return nil, fmt.Errorf("invalid pubkey in loadedWritable at index %d", i)
		}
		keys[i] = domain.AccountKey{Pubkey: pk, Writable: true, Source: domain.SourceLookupTable}
		i++
	}

	for _, b := range loadedReadonly {
		pk, err := types.TryPubkeyFromBytes(b)
		if err != nil {
			return nil, fmt.Errorf("invalid pubkey in loadedReadonly at index %d", i)
		}
		keys[i] = domain.AccountKey{Pubkey: pk, Source: domain.SourceLookupTable}
		i++
	}
	return keys, nil
}

// compiledToInstruction 将按账户下标编码的指令还原为带 AccountMeta 的指令
func compiledToInstruction(keys []domain.AccountKey, programIdx uint32, accounts, data []byte) (domain.Instruction, error) {
	if int(programIdx) >= len(keys) {
		return domain.Instruction{}, fmt.Errorf("%w: program index %d out of range", ErrInvalidTx, programIdx)
	}
	metas := make([]domain.AccountMeta, 0, len(accounts))
	for _, idx := range accounts {
		if int(idx) >= len(keys) {
			return domain.Instruction{}, fmt.Errorf("%w: account index %d out of range", ErrInvalidTx, idx)
		}
		k := keys[idx]
		metas = append(metas, domain.AccountMeta{Pubkey: k.Pubkey, IsSigner: k.Signer, IsWritable: k.Writable})
	}
	return domain.Instruction{
		ProgramID: keys[programIdx].Pubkey,
		Keys:      metas,
		Data:      data,
	}, nil
}

// buildInstructions 组装主指令及其 inner 指令。
// innerInstructions 按主指令下标递增排列，且每条主指令至多一个 inner 块，因此顺序匹配即可。
func buildInstructions(tx *pb.SubscribeUpdateTransactionInfo, keys []domain.AccountKey) ([]*domain.TranslatedInstruction, error) {
	rawInstructions := tx.Transaction.Message.Instructions
	rawInners := tx.GetMeta().GetInnerInstructions()

	out := make([]*domain.TranslatedInstruction, 0, len(rawInstructions))
	innerIndex := 0
	for i, inst := range rawInstructions {
		outer, err := compiledToInstruction(keys, inst.ProgramIdIndex, inst.Accounts, inst.Data)
		if err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
		translated := &domain.TranslatedInstruction{Instruction: outer}

		if innerIndex < len(rawInners) && int(rawInners[innerIndex].Index) == i {
			inners := rawInners[innerIndex].Instructions
			translated.Inners = make([]domain.Instruction, 0, len(inners))
			for j, inner := range inners {
				ix, err := compiledToInstruction(keys, inner.ProgramIdIndex, inner.Accounts, inner.Data)
				if err != nil {
					return nil, fmt.Errorf("instruction %d inner %d: %w", i, j, err)
				}
				translated.Inners = append(translated.Inners, ix)
			}
			innerIndex++
		}
		out = append(out, translated)
	}
	return out, nil
}

// FromGrpc 将 yellowstone gRPC 推送的交易转换为 TxDetail，panic 会被 recover 为错误。
func FromGrpc(slot uint64, blockTime int64, tx *pb.SubscribeUpdateTransactionInfo) (_ *domain.TxDetail, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("FromGrpc panic: %v", r)
		}
	}()

	if tx == nil || tx.Transaction == nil || tx.Transaction.Message == nil {
		return nil, fmt.Errorf("%w: missing message", ErrInvalidTx)
	}
	if len(tx.Transaction.Signatures) == 0 {
		return nil, fmt.Errorf("%w: missing signature", ErrInvalidTx)
	}
	sig, err := types.TrySignatureFromBytes(tx.Transaction.Signatures[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTx, err)
	}

	msg := tx.Transaction.Message
	keys, err := buildFullAccountKeys(
		msg.Header,
		msg.AccountKeys,
		tx.GetMeta().GetLoadedWritableAddresses(),
		tx.GetMeta().GetLoadedReadonlyAddresses(),
	)
	if err != nil {
		return nil, fmt.Errorf("buildFullAccountKeys error: %w", err)
	}

	instructions, err := buildInstructions(tx, keys)
	if err != nil {
		return nil, err
	}

	return &domain.TxDetail{
		Signature:    sig,
		Slot:         slot,
		BlockTime:    blockTime,
		Err:          grpcTxErr(tx.GetMeta()),
		AccountKeys:  keys,
		Instructions: instructions,
	}, nil
}

// grpcTxErr gRPC 中的错误是 bincode 编码的 TransactionError，这里只保留原始字节用于展示
func grpcTxErr(meta *pb.TransactionStatusMeta) string {
	if meta == nil || meta.Err == nil {
		return ""
	}
	if len(meta.Err.Err) == 0 {
		return "TransactionError"
	}
	return "TransactionError(0x" + hex.EncodeToString(meta.Err.Err) + ")"
}
