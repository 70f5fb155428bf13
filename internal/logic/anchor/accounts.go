package anchor

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"anchor-explorer-sol/internal/logic/coder"
	"anchor-explorer-sol/internal/logic/idl"
	"anchor-explorer-sol/internal/pkg/pda"
	"anchor-explorer-sol/internal/types"
)

var ErrInstructionNotFound = errors.New("instruction not found in idl")

// Account 表示指令期望的一个账户（嵌套账户组已展平）
type Account struct {
	Name     string
	Writable bool
	Signer   bool
	Optional bool
	Pda      *idl.Pda
}

// AccountsFromInstruction 根据已解码指令找到 IDL 定义，返回按声明顺序展平后的账户列表
func AccountsFromInstruction(decoded *coder.Instruction, program *idl.Program) ([]Account, error) {
	if decoded == nil || program == nil {
		return nil, ErrInstructionNotFound
	}
	def, ok := program.InstructionByName(decoded.Name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInstructionNotFound, decoded.Name)
	}
	return FlattenAccounts(def.Accounts), nil
}

// FlattenAccounts 深度优先展平嵌套账户组
func FlattenAccounts(items []idl.AccountItem) []Account {
	out := make([]Account, 0, len(items))
	var walk func([]idl.AccountItem)
	walk = func(items []idl.AccountItem) {
		for i := range items {
			item := &items[i]
			if item.IsGroup() {
				walk(item.Accounts)
				continue
			}
			out = append(out, Account{
				Name:     item.Name,
				Writable: item.Writable,
				Signer:   item.Signer,
				Optional: item.Optional,
				Pda:      item.Pda,
			})
		}
	}
	walk(items)
	return out
}

// VerifyPda 用 IDL 中声明的种子重新推导地址，并与实际账户地址比对。
// keys 与 accounts 按下标一一对应；种子无法解析（如引用账户数据字段）时返回 false。
func VerifyPda(index int, accounts []Account, keys []types.Pubkey, args []coder.Arg, programID types.Pubkey) bool {
	if index >= len(accounts) || index >= len(keys) || accounts[index].Pda == nil {
		return false
	}
	def := accounts[index].Pda

	seeds := make([][]byte, 0, len(def.Seeds))
	for i := range def.Seeds {
		b, ok := resolveSeed(&def.Seeds[i], accounts, keys, args)
		if !ok {
			return false
		}
		seeds = append(seeds, b)
	}

	owner := programID
	if def.Program != nil {
		b, ok := resolveSeed(def.Program, accounts, keys, args)
		if !ok || len(b) != 32 {
			return false
		}
		copy(owner[:], b)
	}

	addr, _, err := pda.FindProgramAddress(seeds, owner)
	if err != nil {
		return false
	}
	return addr == keys[index]
}

func resolveSeed(seed *idl.Seed, accounts []Account, keys []types.Pubkey, args []coder.Arg) ([]byte, bool) {
	switch seed.Kind {
	case idl.SeedConst:
		return seed.Value, true

	case idl.SeedAccount:
		// 形如 "pool.mint" 的路径引用账户数据字段，需要读链上账户，这里不支持
		if strings.Contains(seed.Path, ".") {
			return nil, false
		}
		for i := range accounts {
			if accounts[i].Name == seed.Path && i < len(keys) {
				return keys[i][:], true
			}
		}
		return nil, false

	case idl.SeedArg:
		if strings.Contains(seed.Path, ".") {
			return nil, false
		}
		for _, arg := range args {
			if arg.Name == seed.Path {
				t := arg.Type
				if seed.Type != nil {
					t = seed.Type
				}
				return seedBytes(arg.Value, t)
			}
		}
		return nil, false
	}
	return nil, false
}

// seedBytes 将参数值序列化为种子字节，整数按类型宽度小端编码
func seedBytes(v coder.Value, t *idl.Type) ([]byte, bool) {
	switch v.Kind {
	case coder.ValuePubkey:
		return v.Pubkey[:], true
	case coder.ValueString:
		return []byte(v.Str), true
	case coder.ValueBytes:
		return v.Bytes, true
	case coder.ValueBool:
		if v.Bool {
			return []byte{1}, true
		}
		return []byte{0}, true
	case coder.ValueInt:
		if t == nil || t.Kind != idl.KindPrimitive || v.Int == nil {
			return nil, false
		}
		width := intWidth(t.Primitive)
		if width == 0 {
			return nil, false
		}
		return intToLE(v, width), true
	}
	return nil, false
}

func intWidth(prim string) int {
	switch prim {
	case idl.PrimU8, idl.PrimI8:
		return 1
	case idl.PrimU16, idl.PrimI16:
		return 2
	case idl.PrimU32, idl.PrimI32:
		return 4
	case idl.PrimU64, idl.PrimI64:
		return 8
	case idl.PrimU128, idl.PrimI128:
		return 16
	}
	return 0
}

// intToLE 负数按补码处理
func intToLE(v coder.Value, width int) []byte {
	n := v.Int
	if n.Sign() < 0 {
		mod := new(big.Int).Lsh(big.NewInt(1), uint(width*8))
		n = mod.Add(mod, n)
	}
	be := n.Bytes()
	out := make([]byte, width)
	for i := 0; i < len(be) && i < width; i++ {
		out[i] = be[len(be)-1-i]
	}
	return out
}
