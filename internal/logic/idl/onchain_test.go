package idl

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"testing"

	"anchor-explorer-sol/internal/types"

	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildIdlAccount 按链上布局构造 IDL 账户数据，padding 模拟账户预留空间
func buildIdlAccount(t *testing.T, idlJSON string, padding int) []byte {
	t.Helper()
	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	_, err := zw.Write([]byte(idlJSON))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	disc := sha256.Sum256([]byte("account:IdlAccount"))
	out := make([]byte, 0, idlAccountHeaderLen+compressed.Len()+padding)
	out = append(out, disc[:8]...)
	out = append(out, bytes.Repeat([]byte{7}, 32)...)
	out = binary.LittleEndian.AppendUint32(out, uint32(compressed.Len()))
	out = append(out, compressed.Bytes()...)
	out = append(out, make([]byte, padding)...)
	return out
}

type fakeFetcher struct {
	accounts map[string][]byte
	err      error
	calls    int
}

func (f *fakeFetcher) GetAccountData(_ context.Context, address string) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	data, ok := f.accounts[address]
	if !ok {
		return nil, ErrIdlAccountNotFound
	}
	return data, nil
}

func TestDecodeIdlAccount(t *testing.T) {
	raw, err := DecodeIdlAccount(buildIdlAccount(t, modernIdlJSON, 128))
	require.NoError(t, err)
	assert.JSONEq(t, modernIdlJSON, string(raw))
}

func TestDecodeIdlAccount_Invalid(t *testing.T) {
	_, err := DecodeIdlAccount(make([]byte, 10))
	assert.Error(t, err)

	// data_len 为 0
	_, err = DecodeIdlAccount(make([]byte, idlAccountHeaderLen+4))
	assert.Error(t, err)

	// data_len 超过账户长度
	data := buildIdlAccount(t, modernIdlJSON, 0)
	binary.LittleEndian.PutUint32(data[idlAccountDiscLen+32:], uint32(len(data)))
	_, err = DecodeIdlAccount(data)
	assert.Error(t, err)

	// 不是 zlib 数据
	garbage := make([]byte, 0, idlAccountHeaderLen+4)
	garbage = append(garbage, make([]byte, idlAccountDiscLen+32)...)
	garbage = binary.LittleEndian.AppendUint32(garbage, 4)
	garbage = append(garbage, 1, 2, 3, 4)
	_, err = DecodeIdlAccount(garbage)
	assert.Error(t, err)
}

func TestIdlAddress(t *testing.T) {
	program := types.PubkeyFromBase58(escrowProgramID)

	addr, err := IdlAddress(program)
	require.NoError(t, err)
	assert.Equal(t, "9j6oH2BscegWPVpeiP2mbsN35pDbiBSpyZrpi86S8eWF", addr.String())

	again, err := IdlAddress(program)
	require.NoError(t, err)
	assert.Equal(t, addr, again)
}

func TestFetchIdl(t *testing.T) {
	program := types.PubkeyFromBase58("whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc")
	addr, err := IdlAddress(program)
	require.NoError(t, err)

	fetcher := &fakeFetcher{accounts: map[string][]byte{
		addr.String(): buildIdlAccount(t, modernIdlJSON, 16),
	}}
	parsed, raw, err := FetchIdl(context.Background(), fetcher, program)
	require.NoError(t, err)
	assert.Equal(t, "whirlpool", parsed.Name)
	assert.NotEmpty(t, raw)

	_, _, err = FetchIdl(context.Background(), fetcher, types.Pubkey{9})
	assert.ErrorIs(t, err, ErrIdlAccountNotFound)

	fetcher.err = errors.New("rpc down")
	_, _, err = FetchIdl(context.Background(), fetcher, program)
	assert.EqualError(t, err, "rpc down")
}
