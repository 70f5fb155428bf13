package pda

import (
	"errors"

	"anchor-explorer-sol/internal/types"

	"github.com/blocto/solana-go-sdk/common"
)

var ErrInvalidSeeds = errors.New("invalid seeds")

// checkSeeds 提前挡住超长种子，否则 FindProgramAddress 会把 255 个 bump 全部试一遍才失败
func checkSeeds(seeds [][]byte) error {
	if len(seeds) >= common.MaxSeed {
		return ErrInvalidSeeds
	}
	for _, seed := range seeds {
		if len(seed) > common.MaxSeedLength {
			return ErrInvalidSeeds
		}
	}
	return nil
}

// FindProgramAddress 从 bump=255 开始递减，返回第一个落在曲线外的地址
func FindProgramAddress(seeds [][]byte, programID types.Pubkey) (types.Pubkey, uint8, error) {
	if err := checkSeeds(seeds); err != nil {
		return types.Pubkey{}, 0, err
	}
	// 截断容量，common.FindProgramAddress 内部 append bump 时不能写到调用方的底层数组
	addr, bump, err := common.FindProgramAddress(seeds[:len(seeds):len(seeds)], common.PublicKey(programID))
	if err != nil {
		return types.Pubkey{}, 0, err
	}
	return types.Pubkey(addr), bump, nil
}

// CreateWithSeed 对应 system program 的 create_account_with_seed 地址推导
func CreateWithSeed(base types.Pubkey, seed string, owner types.Pubkey) (types.Pubkey, error) {
	if len(seed) > common.MaxSeedLength {
		return types.Pubkey{}, ErrInvalidSeeds
	}
	return types.Pubkey(common.CreateWithSeed(common.PublicKey(base), seed, common.PublicKey(owner))), nil
}

func IsOnCurve(pk types.Pubkey) bool {
	return common.IsOnCurve(common.PublicKey(pk))
}
