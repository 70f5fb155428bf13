package anchor

import (
	"encoding/binary"
	"math/big"
	"testing"

	"anchor-explorer-sol/internal/logic/coder"
	"anchor-explorer-sol/internal/logic/idl"
	"anchor-explorer-sol/internal/pkg/pda"
	"anchor-explorer-sol/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var u64Type = &idl.Type{Kind: idl.KindPrimitive, Primitive: idl.PrimU64}

func TestFlattenAccounts(t *testing.T) {
	items := []idl.AccountItem{
		{Name: "payer", Writable: true, Signer: true},
		{Name: "group", Accounts: []idl.AccountItem{
			{Name: "pool", Writable: true},
			{Name: "inner", Accounts: []idl.AccountItem{{Name: "oracle", Optional: true}}},
		}},
		{Name: "systemProgram"},
	}

	flat := FlattenAccounts(items)
	require.Len(t, flat, 4)
	names := []string{flat[0].Name, flat[1].Name, flat[2].Name, flat[3].Name}
	assert.Equal(t, []string{"payer", "pool", "oracle", "systemProgram"}, names)
	assert.True(t, flat[0].Signer)
	assert.True(t, flat[1].Writable)
	assert.True(t, flat[2].Optional)

	assert.Empty(t, FlattenAccounts(nil))
}

func TestAccountsFromInstruction(t *testing.T) {
	_, err := AccountsFromInstruction(nil, nil)
	assert.ErrorIs(t, err, ErrInstructionNotFound)

	parsed, err := idl.Parse([]byte(`{"name": "p", "instructions": [
		{"name": "run", "accounts": [{"name": "a", "isMut": true, "isSigner": false}], "args": []}
	]}`))
	require.NoError(t, err)
	program, err := idl.NewProgram(types.Pubkey{1}, parsed)
	require.NoError(t, err)

	accounts, err := AccountsFromInstruction(&coder.Instruction{Name: "run"}, program)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.True(t, accounts[0].Writable)

	_, err = AccountsFromInstruction(&coder.Instruction{Name: "other"}, program)
	assert.ErrorIs(t, err, ErrInstructionNotFound)
}

// vaultFixture 构造一个 seeds = ["vault", authority, amount(u64)] 的 PDA 账户
func vaultFixture(t *testing.T, programID types.Pubkey) ([]Account, []types.Pubkey, []coder.Arg) {
	t.Helper()
	authority := types.Pubkey{7, 7, 7}
	amount := binary.LittleEndian.AppendUint64(nil, 5)

	vault, _, err := pda.FindProgramAddress([][]byte{[]byte("vault"), authority[:], amount}, programID)
	require.NoError(t, err)

	accounts := []Account{
		{Name: "authority", Signer: true},
		{Name: "vault", Writable: true, Pda: &idl.Pda{Seeds: []idl.Seed{
			{Kind: idl.SeedConst, Value: []byte("vault")},
			{Kind: idl.SeedAccount, Path: "authority"},
			{Kind: idl.SeedArg, Path: "amount"},
		}}},
	}
	args := []coder.Arg{{
		Name:  "amount",
		Type:  u64Type,
		Value: coder.Value{Kind: coder.ValueInt, Int: big.NewInt(5)},
	}}
	return accounts, []types.Pubkey{authority, vault}, args
}

func TestVerifyPda(t *testing.T) {
	programID := types.Pubkey{42}
	accounts, keys, args := vaultFixture(t, programID)

	assert.True(t, VerifyPda(1, accounts, keys, args, programID))

	// 没有 pda 元数据
	assert.False(t, VerifyPda(0, accounts, keys, args, programID))
	// 超出期望账户（remaining accounts）
	assert.False(t, VerifyPda(2, accounts, append(keys, types.Pubkey{}), args, programID))
	// 其他程序推导出的地址不匹配
	assert.False(t, VerifyPda(1, accounts, keys, args, types.Pubkey{43}))

	// 参数值不同
	otherArgs := []coder.Arg{{Name: "amount", Type: u64Type, Value: coder.Value{Kind: coder.ValueInt, Int: big.NewInt(6)}}}
	assert.False(t, VerifyPda(1, accounts, keys, otherArgs, programID))
	// 缺少参数
	assert.False(t, VerifyPda(1, accounts, keys, nil, programID))
}

func TestVerifyPda_ProgramOverride(t *testing.T) {
	owner := types.Pubkey{99}
	authority := types.Pubkey{7}
	addr, _, err := pda.FindProgramAddress([][]byte{authority[:]}, owner)
	require.NoError(t, err)

	accounts := []Account{
		{Name: "authority"},
		{Name: "ata", Pda: &idl.Pda{
			Seeds:   []idl.Seed{{Kind: idl.SeedAccount, Path: "authority"}},
			Program: &idl.Seed{Kind: idl.SeedConst, Value: owner[:]},
		}},
	}
	keys := []types.Pubkey{authority, addr}
	assert.True(t, VerifyPda(1, accounts, keys, nil, types.Pubkey{1}))
}

func TestVerifyPda_UnsupportedPath(t *testing.T) {
	accounts := []Account{
		{Name: "pool"},
		{Name: "vault", Pda: &idl.Pda{Seeds: []idl.Seed{{Kind: idl.SeedAccount, Path: "pool.mint"}}}},
	}
	assert.False(t, VerifyPda(1, accounts, []types.Pubkey{{1}, {2}}, nil, types.Pubkey{3}))
}

func TestSeedBytes(t *testing.T) {
	i16 := &idl.Type{Kind: idl.KindPrimitive, Primitive: idl.PrimI16}

	b, ok := seedBytes(coder.Value{Kind: coder.ValueInt, Int: big.NewInt(-2)}, i16)
	require.True(t, ok)
	assert.Equal(t, []byte{0xfe, 0xff}, b)

	b, ok = seedBytes(coder.Value{Kind: coder.ValueBool, Bool: true}, nil)
	require.True(t, ok)
	assert.Equal(t, []byte{1}, b)

	b, ok = seedBytes(coder.Value{Kind: coder.ValueString, Str: "abc"}, nil)
	require.True(t, ok)
	assert.Equal(t, []byte("abc"), b)

	_, ok = seedBytes(coder.Value{Kind: coder.ValueInt, Int: big.NewInt(1)}, nil)
	assert.False(t, ok, "整数缺少类型宽度")

	_, ok = seedBytes(coder.Value{Kind: coder.ValueList}, nil)
	assert.False(t, ok)
}
