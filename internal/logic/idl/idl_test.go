package idl

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 旧格式（<= 0.29）：isMut / isSigner、publicKey、defined 为字符串、accounts 下的类型定义
const legacyIdlJSON = `{
  "version": "0.1.0",
  "name": "escrow",
  "instructions": [
    {
      "name": "initializeEscrow",
      "accounts": [
        {"name": "initializer", "isMut": true, "isSigner": true},
        {
          "name": "vault",
          "isMut": true,
          "isSigner": false,
          "pda": {"seeds": [
            {"kind": "const", "type": "string", "value": "vault"},
            {"kind": "account", "type": "publicKey", "path": "initializer"}
          ]}
        },
        {
          "name": "programs",
          "accounts": [
            {"name": "systemProgram", "isMut": false, "isSigner": false},
            {"name": "tokenProgram", "isMut": false, "isSigner": false}
          ]
        }
      ],
      "args": [
        {"name": "amount", "type": "u64"},
        {"name": "taker", "type": {"option": "publicKey"}},
        {"name": "config", "type": {"defined": "EscrowConfig"}}
      ]
    },
    {"name": "cancel", "accounts": [], "args": []}
  ],
  "accounts": [
    {
      "name": "EscrowState",
      "type": {"kind": "struct", "fields": [{"name": "amount", "type": "u64"}]}
    }
  ],
  "types": [
    {
      "name": "EscrowConfig",
      "type": {
        "kind": "struct",
        "fields": [
          {"name": "expiry", "type": "i64"},
          {"name": "mode", "type": {"defined": "Mode"}}
        ]
      }
    },
    {
      "name": "Mode",
      "type": {
        "kind": "enum",
        "variants": [
          {"name": "Open"},
          {"name": "Limited", "fields": [{"name": "max", "type": "u32"}]},
          {"name": "Pair", "fields": ["u8", "u8"]}
        ]
      }
    }
  ]
}`

// 新格式（0.30+）：metadata、writable / signer、pubkey、defined 为对象、显式 discriminator
const modernIdlJSON = `{
  "address": "whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc",
  "metadata": {"name": "whirlpool", "version": "0.3.0", "spec": "0.1.0"},
  "instructions": [
    {
      "name": "swap",
      "discriminator": [248, 198, 158, 145, 225, 117, 135, 200],
      "accounts": [
        {"name": "token_program", "address": "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"},
        {"name": "token_authority", "signer": true},
        {"name": "whirlpool", "writable": true},
        {"name": "oracle", "optional": true}
      ],
      "args": [
        {"name": "amount", "type": "u64"},
        {"name": "sqrt_price_limit", "type": "u128"},
        {"name": "a_to_b", "type": "bool"},
        {"name": "remaining", "type": {"option": {"defined": {"name": "RemainingAccountsInfo"}}}}
      ]
    }
  ],
  "accounts": [
    {"name": "Whirlpool", "discriminator": [63, 149, 209, 12, 225, 128, 99, 9]}
  ],
  "types": [
    {
      "name": "RemainingAccountsInfo",
      "type": {"kind": "struct", "fields": [{"name": "slices", "type": {"vec": {"array": ["u8", 2]}}}]}
    }
  ]
}`

func TestParse_Legacy(t *testing.T) {
	parsed, err := Parse([]byte(legacyIdlJSON))
	require.NoError(t, err)

	assert.Equal(t, "escrow", parsed.Name)
	assert.Equal(t, "0.1.0", parsed.Version)
	require.Len(t, parsed.Instructions, 2)

	ix := parsed.Instructions[0]
	assert.Equal(t, "initializeEscrow", ix.Name)
	assert.Equal(t, SighashDiscriminator("initializeEscrow"), ix.Discriminator)

	require.Len(t, ix.Accounts, 3)
	assert.True(t, ix.Accounts[0].Writable)
	assert.True(t, ix.Accounts[0].Signer)
	assert.False(t, ix.Accounts[1].Signer)

	// 旧格式 const 字符串种子按 utf8 转为字节
	require.NotNil(t, ix.Accounts[1].Pda)
	require.Len(t, ix.Accounts[1].Pda.Seeds, 2)
	assert.Equal(t, SeedConst, ix.Accounts[1].Pda.Seeds[0].Kind)
	assert.Equal(t, []byte("vault"), ix.Accounts[1].Pda.Seeds[0].Value)
	assert.Equal(t, SeedAccount, ix.Accounts[1].Pda.Seeds[1].Kind)
	assert.Equal(t, "initializer", ix.Accounts[1].Pda.Seeds[1].Path)

	// composite 账户组
	assert.True(t, ix.Accounts[2].IsGroup())
	assert.Len(t, ix.Accounts[2].Accounts, 2)

	require.Len(t, ix.Args, 3)
	assert.Equal(t, "Option<pubkey>", ix.Args[1].Type.String())
	assert.Equal(t, "EscrowConfig", ix.Args[2].Type.String())

	// accounts 下的类型定义并入 Types
	names := make([]string, 0, len(parsed.Types))
	for _, td := range parsed.Types {
		names = append(names, td.Name)
	}
	assert.ElementsMatch(t, []string{"EscrowConfig", "Mode", "EscrowState"}, names)

	for _, td := range parsed.Types {
		if td.Name != "Mode" {
			continue
		}
		assert.Equal(t, TypeDefEnum, td.Kind)
		require.Len(t, td.Variants, 3)
		assert.Empty(t, td.Variants[0].Fields)
		assert.Equal(t, "max", td.Variants[1].Fields[0].Name)
		assert.Equal(t, "", td.Variants[2].Fields[0].Name, "tuple 字段没有名字")
	}
}

func TestParse_Modern(t *testing.T) {
	parsed, err := Parse([]byte(modernIdlJSON))
	require.NoError(t, err)

	assert.Equal(t, "whirlpool", parsed.Name)
	assert.Equal(t, "0.3.0", parsed.Version)
	assert.Equal(t, "whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc", parsed.Address)

	ix := parsed.Instructions[0]
	assert.Equal(t, []byte{248, 198, 158, 145, 225, 117, 135, 200}, ix.Discriminator)
	assert.Equal(t, "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA", ix.Accounts[0].Address)
	assert.True(t, ix.Accounts[1].Signer)
	assert.True(t, ix.Accounts[2].Writable)
	assert.True(t, ix.Accounts[3].Optional)

	assert.Equal(t, "u128", ix.Args[1].Type.String())
	assert.Equal(t, "Option<RemainingAccountsInfo>", ix.Args[3].Type.String())

	// 新格式 accounts 只有 discriminator，不进入 Types
	require.Len(t, parsed.Types, 1)
	assert.Equal(t, "Vec<[u8; 2]>", parsed.Types[0].Fields[0].Type.String())
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte(`{"name": "x", "instructions": []}`))
	assert.ErrorIs(t, err, ErrEmptyIdl)

	_, err = Parse([]byte(`not json`))
	assert.Error(t, err)

	_, err = Parse([]byte(`{"name": "x", "instructions": [{"name": "a", "args": [{"name": "v", "type": "u256"}]}]}`))
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = Parse([]byte(`{"name": "x", "instructions": [{"name": "a", "args": [
		{"name": "v", "type": {"defined": {"name": "G", "generics": [{"kind": "type", "type": "u8"}]}}}
	]}]}`))
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestSighashDiscriminator(t *testing.T) {
	sum := sha256.Sum256([]byte("global:initialize_escrow"))
	assert.Equal(t, sum[:8], SighashDiscriminator("initializeEscrow"))
	assert.Len(t, SighashDiscriminator("x"), 8)
}

func TestSnakeCase(t *testing.T) {
	cases := map[string]string{
		"initialize":       "initialize",
		"initializeEscrow": "initialize_escrow",
		"swapV2":           "swap_v2",
		"createATA":        "create_ata",
		"HTTPServer":       "http_server",
		"openPosition2":    "open_position2",
		"already_snake":    "already_snake",
	}
	for in, want := range cases {
		assert.Equal(t, want, SnakeCase(in), in)
	}
}

func TestParseType(t *testing.T) {
	cases := map[string]string{
		`"publicKey"`:                     "pubkey",
		`"pubkey"`:                        "pubkey",
		`"bytes"`:                         "bytes",
		`{"vec": "u8"}`:                   "Vec<u8>",
		`{"array": ["u8", 32]}`:           "[u8; 32]",
		`{"coption": "pubkey"}`:           "COption<pubkey>",
		`{"option": {"vec": "string"}}`:   "Option<Vec<string>>",
		`{"defined": "Foo"}`:              "Foo",
		`{"defined": {"name": "Bar"}}`:    "Bar",
		`{"array": [{"defined": "P"}, 3]}`: "[P; 3]",
	}
	for raw, want := range cases {
		typ, err := ParseType([]byte(raw))
		require.NoError(t, err, raw)
		assert.Equal(t, want, typ.String(), raw)
	}

	var nilType *Type
	assert.Equal(t, "unknown", nilType.String())
}
