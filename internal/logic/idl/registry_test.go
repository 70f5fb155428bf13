package idl

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"anchor-explorer-sol/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Local(t *testing.T) {
	r := NewRegistry()
	parsed, err := Parse([]byte(legacyIdlJSON))
	require.NoError(t, err)

	id := types.PubkeyFromBase58(escrowProgramID)
	require.NoError(t, r.RegisterEntries([]Entry{{ProgramID: id, Idl: parsed, Source: "test"}}))
	assert.Equal(t, 1, r.Len())

	p, ok := r.Program(context.Background(), id)
	require.True(t, ok)
	assert.Equal(t, id, p.ID)

	// 没有 fetcher 时不回源
	_, ok = r.Program(context.Background(), types.Pubkey{2})
	assert.False(t, ok)

	assert.ErrorIs(t, r.Register(types.Pubkey{3}, &Idl{}), ErrEmptyIdl)
}

func TestRegistry_OnChain(t *testing.T) {
	program := types.PubkeyFromBase58("whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc")
	addr, err := IdlAddress(program)
	require.NoError(t, err)

	fetcher := &fakeFetcher{accounts: map[string][]byte{
		addr.String(): buildIdlAccount(t, modernIdlJSON, 0),
	}}
	r := NewRegistry(WithFetcher(fetcher))

	p, ok := r.Program(context.Background(), program)
	require.True(t, ok)
	name, _ := p.Name()
	assert.Equal(t, "whirlpool", name)

	// 拉取成功后进入本地表，不再回源
	_, ok = r.Program(context.Background(), program)
	assert.True(t, ok)
	assert.Equal(t, 1, fetcher.calls)
	_, ok = r.Lookup(program)
	assert.True(t, ok)
}

func TestRegistry_MissTTL(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("rpc down")}
	now := time.Unix(1_700_000_000, 0)
	r := NewRegistry(WithFetcher(fetcher), WithMissTTL(time.Minute))
	r.now = func() time.Time { return now }

	missing := types.Pubkey{4}
	_, ok := r.Program(context.Background(), missing)
	assert.False(t, ok)
	assert.Equal(t, 1, fetcher.calls)

	// TTL 内不重复请求
	now = now.Add(30 * time.Second)
	_, ok = r.Program(context.Background(), missing)
	assert.False(t, ok)
	assert.Equal(t, 1, fetcher.calls)

	// 过期后重试
	now = now.Add(time.Minute)
	_, ok = r.Program(context.Background(), missing)
	assert.False(t, ok)
	assert.Equal(t, 2, fetcher.calls)

	// 本地注册会清除 miss 记录
	parsed, err := Parse([]byte(legacyIdlJSON))
	require.NoError(t, err)
	require.NoError(t, r.Register(missing, parsed))
	_, ok = r.Program(context.Background(), missing)
	assert.True(t, ok)
}

func TestRegistry_Refresh(t *testing.T) {
	program := types.PubkeyFromBase58("whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc")
	addr, err := IdlAddress(program)
	require.NoError(t, err)

	fetcher := &fakeFetcher{accounts: map[string][]byte{
		addr.String(): buildIdlAccount(t, modernIdlJSON, 0),
	}}
	r := NewRegistry(WithFetcher(fetcher))

	// 首次刷新即加载
	changed, err := r.Refresh(context.Background(), program)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = r.Refresh(context.Background(), program)
	require.NoError(t, err)
	assert.False(t, changed, "内容未变化")

	// 链上 IDL 升级
	upgraded := strings.Replace(modernIdlJSON, `"version": "0.3.0"`, `"version": "0.3.1"`, 1)
	fetcher.accounts[addr.String()] = buildIdlAccount(t, upgraded, 0)
	changed, err = r.Refresh(context.Background(), program)
	require.NoError(t, err)
	assert.True(t, changed)
	p, ok := r.Lookup(program)
	require.True(t, ok)
	assert.Equal(t, "0.3.1", p.Idl.Version)

	// 本地注册的程序不刷新
	parsed, err := Parse([]byte(legacyIdlJSON))
	require.NoError(t, err)
	require.NoError(t, r.Register(program, parsed))
	calls := fetcher.calls
	changed, err = r.Refresh(context.Background(), program)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, calls, fetcher.calls)

	_, err = r.Refresh(context.Background(), types.Pubkey{8})
	assert.ErrorIs(t, err, ErrIdlAccountNotFound)

	changed, err = NewRegistry().Refresh(context.Background(), program)
	require.NoError(t, err)
	assert.False(t, changed)
}
