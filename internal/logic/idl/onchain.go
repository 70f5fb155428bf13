package idl

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"anchor-explorer-sol/internal/pkg/pda"
	"anchor-explorer-sol/internal/types"

	"github.com/blocto/solana-go-sdk/client"
	"github.com/klauspost/compress/zlib"
	"github.com/near/borsh-go"
)

const (
	idlSeed = "anchor:idl"

	// 账户布局: discriminator(8) | authority(32) | data_len(u32) | data(zlib)
	idlAccountDiscLen   = 8
	idlAccountHeaderLen = idlAccountDiscLen + 32 + 4

	// 解压后 IDL JSON 的上限，防止压缩炸弹
	maxInflatedIdlSize = 16 << 20
)

var ErrIdlAccountNotFound = errors.New("idl account not found")

// idlAccount 是 Anchor IDL 账户去掉 discriminator 后的 borsh 结构
type idlAccount struct {
	Authority [32]byte
	Data      []byte
}

// AccountFetcher 读取链上账户原始数据；账户不存在时返回 ErrIdlAccountNotFound
type AccountFetcher interface {
	GetAccountData(ctx context.Context, address string) ([]byte, error)
}

// RpcAccountFetcher 基于 solana-go-sdk 客户端读取账户
type RpcAccountFetcher struct {
	client *client.Client
}

func NewRpcAccountFetcher(endpoint string) *RpcAccountFetcher {
	return &RpcAccountFetcher{client: client.NewClient(endpoint)}
}

func (f *RpcAccountFetcher) GetAccountData(ctx context.Context, address string) ([]byte, error) {
	info, err := f.client.GetAccountInfo(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("GetAccountInfo %s failed: %w", address, err)
	}
	if len(info.Data) == 0 {
		return nil, ErrIdlAccountNotFound
	}
	return info.Data, nil
}

// IdlAddress 计算程序 IDL 账户地址：createWithSeed(findProgramAddress([], program), "anchor:idl", program)
func IdlAddress(programID types.Pubkey) (types.Pubkey, error) {
	base, _, err := pda.FindProgramAddress(nil, programID)
	if err != nil {
		return types.Pubkey{}, err
	}
	return pda.CreateWithSeed(base, idlSeed, programID)
}

// DecodeIdlAccount 解析 IDL 账户数据，返回解压后的 IDL JSON
func DecodeIdlAccount(data []byte) ([]byte, error) {
	if len(data) < idlAccountHeaderLen {
		return nil, fmt.Errorf("idl account data too short: %d", len(data))
	}
	dataLen := binary.LittleEndian.Uint32(data[idlAccountDiscLen+32 : idlAccountHeaderLen])
	end := idlAccountHeaderLen + int(dataLen)
	if dataLen == 0 || end > len(data) {
		return nil, fmt.Errorf("invalid idl data length: %d, account size: %d", dataLen, len(data))
	}

	// 账户尾部有预留空间，只截取有效部分交给 borsh
	var acc idlAccount
	if err := borsh.Deserialize(&acc, data[idlAccountDiscLen:end]); err != nil {
		return nil, fmt.Errorf("borsh deserialize idl account: %w", err)
	}

	zr, err := zlib.NewReader(bytes.NewReader(acc.Data))
	if err != nil {
		return nil, fmt.Errorf("zlib reader: %w", err)
	}
	defer zr.Close()

	out, err := io.ReadAll(io.LimitReader(zr, maxInflatedIdlSize+1))
	if err != nil {
		return nil, fmt.Errorf("inflate idl: %w", err)
	}
	if len(out) > maxInflatedIdlSize {
		return nil, fmt.Errorf("inflated idl exceeds %d bytes", maxInflatedIdlSize)
	}
	return out, nil
}

// FetchIdl 从链上读取并解析程序的 IDL
func FetchIdl(ctx context.Context, fetcher AccountFetcher, programID types.Pubkey) (*Idl, []byte, error) {
	addr, err := IdlAddress(programID)
	if err != nil {
		return nil, nil, fmt.Errorf("derive idl address: %w", err)
	}
	data, err := fetcher.GetAccountData(ctx, addr.String())
	if err != nil {
		return nil, nil, err
	}
	raw, err := DecodeIdlAccount(data)
	if err != nil {
		return nil, nil, err
	}
	parsed, err := Parse(raw)
	if err != nil {
		return nil, raw, err
	}
	return parsed, raw, nil
}
