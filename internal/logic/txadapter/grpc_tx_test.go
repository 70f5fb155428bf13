package txadapter

import (
	"bytes"
	"testing"

	"anchor-explorer-sol/internal/logic/domain"
	"anchor-explorer-sol/internal/types"

	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func key(b byte) []byte {
	return bytes.Repeat([]byte{b}, 32)
}

func pubkey(b byte) types.Pubkey {
	var pk types.Pubkey
	copy(pk[:], key(b))
	return pk
}

// sampleGrpcTx 静态账户 [payer(s,w), cosigner(s,r), pool(w), program(r)]，ALT 加载 [alt1(w), alt2(r)]
func sampleGrpcTx() *pb.SubscribeUpdateTransactionInfo {
	return &pb.SubscribeUpdateTransactionInfo{
		Signature: bytes.Repeat([]byte{1}, 64),
		Transaction: &pb.Transaction{
			Signatures: [][]byte{bytes.Repeat([]byte{1}, 64)},
			Message: &pb.Message{
				Header: &pb.MessageHeader{
					NumRequiredSignatures:       2,
					NumReadonlySignedAccounts:   1,
					NumReadonlyUnsignedAccounts: 1,
				},
				AccountKeys: [][]byte{key(10), key(11), key(12), key(13)},
				Instructions: []*pb.CompiledInstruction{
					{ProgramIdIndex: 3, Accounts: []byte{0, 2, 4, 5}, Data: []byte{0xaa}},
					{ProgramIdIndex: 3, Accounts: []byte{1}, Data: []byte{0xbb}},
				},
			},
		},
		Meta: &pb.TransactionStatusMeta{
			LoadedWritableAddresses: [][]byte{key(20)},
			LoadedReadonlyAddresses: [][]byte{key(21)},
			InnerInstructions: []*pb.InnerInstructions{{
				Index: 1,
				Instructions: []*pb.InnerInstruction{
					{ProgramIdIndex: 5, Accounts: []byte{4}, Data: []byte{0xcc}},
				},
			}},
		},
	}
}

func TestFromGrpc(t *testing.T) {
	detail, err := FromGrpc(100, 1_700_000_000, sampleGrpcTx())
	require.NoError(t, err)

	assert.Equal(t, uint64(100), detail.Slot)
	assert.Equal(t, int64(1_700_000_000), detail.BlockTime)
	assert.True(t, detail.Succeeded())

	require.Len(t, detail.AccountKeys, 6)
	assert.Equal(t, domain.AccountKey{Pubkey: pubkey(10), Signer: true, Writable: true, Source: domain.SourceTransaction}, detail.AccountKeys[0])
	assert.Equal(t, domain.AccountKey{Pubkey: pubkey(11), Signer: true, Writable: false, Source: domain.SourceTransaction}, detail.AccountKeys[1])
	assert.Equal(t, domain.AccountKey{Pubkey: pubkey(12), Signer: false, Writable: true, Source: domain.SourceTransaction}, detail.AccountKeys[2])
	assert.Equal(t, domain.AccountKey{Pubkey: pubkey(13), Signer: false, Writable: false, Source: domain.SourceTransaction}, detail.AccountKeys[3])
	assert.Equal(t, domain.AccountKey{Pubkey: pubkey(20), Writable: true, Source: domain.SourceLookupTable}, detail.AccountKeys[4])
	assert.Equal(t, domain.AccountKey{Pubkey: pubkey(21), Source: domain.SourceLookupTable}, detail.AccountKeys[5])

	require.Len(t, detail.Instructions, 2)
	first := detail.Instructions[0]
	assert.Equal(t, pubkey(13), first.Instruction.ProgramID)
	assert.Equal(t, []byte{0xaa}, first.Instruction.Data)
	assert.Equal(t, []domain.AccountMeta{
		{Pubkey: pubkey(10), IsSigner: true, IsWritable: true},
		{Pubkey: pubkey(12), IsWritable: true},
		{Pubkey: pubkey(20), IsWritable: true},
		{Pubkey: pubkey(21)},
	}, first.Instruction.Keys)
	assert.Empty(t, first.Inners)

	second := detail.Instructions[1]
	require.Len(t, second.Inners, 1)
	assert.Equal(t, pubkey(21), second.Inners[0].ProgramID)
	assert.Equal(t, []byte{0xcc}, second.Inners[0].Data)

	sources := detail.AccountSources()
	assert.Equal(t, domain.SourceLookupTable, sources[pubkey(20).String()])
	assert.Equal(t, domain.SourceTransaction, sources[pubkey(10).String()])
}

func TestFromGrpc_Failed(t *testing.T) {
	tx := sampleGrpcTx()
	tx.Meta.Err = &pb.TransactionError{Err: []byte{8, 0, 0, 0}}

	detail, err := FromGrpc(1, 0, tx)
	require.NoError(t, err)
	assert.False(t, detail.Succeeded())
	assert.Equal(t, "TransactionError(0x08000000)", detail.Err)
}

func TestFromGrpc_Invalid(t *testing.T) {
	_, err := FromGrpc(1, 0, nil)
	assert.ErrorIs(t, err, ErrInvalidTx)

	tx := sampleGrpcTx()
	tx.Transaction.Signatures = nil
	_, err = FromGrpc(1, 0, tx)
	assert.ErrorIs(t, err, ErrInvalidTx)

	tx = sampleGrpcTx()
	tx.Transaction.Message.Instructions[0].Accounts = []byte{0, 9}
	_, err = FromGrpc(1, 0, tx)
	assert.ErrorIs(t, err, ErrInvalidTx)

	tx = sampleGrpcTx()
	tx.Transaction.Message.Instructions[1].ProgramIdIndex = 42
	_, err = FromGrpc(1, 0, tx)
	assert.ErrorIs(t, err, ErrInvalidTx)

	tx = sampleGrpcTx()
	tx.Transaction.Message.Header.NumRequiredSignatures = 9
	_, err = FromGrpc(1, 0, tx)
	assert.ErrorIs(t, err, ErrInvalidTx)

	tx = sampleGrpcTx()
	tx.Transaction.Message.AccountKeys[2] = []byte{1, 2, 3}
	_, err = FromGrpc(1, 0, tx)
	assert.Error(t, err)
}
