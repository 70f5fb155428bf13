package txdetail

import (
	"context"
	"encoding/json"
	"fmt"

	"anchor-explorer-sol/internal/logic/domain"
	"anchor-explorer-sol/internal/logic/txadapter"

	"github.com/blocto/solana-go-sdk/rpc"
)

// Provider 按签名获取交易详情；交易不存在时返回 nil, nil
type Provider interface {
	Get(ctx context.Context, signature string) (*domain.TxDetail, error)
}

type rpcCaller interface {
	Call(ctx context.Context, params ...any) ([]byte, error)
}

// RpcProvider 通过 getTransaction(jsonParsed) 获取交易详情，
// jsonParsed 编码下 accountKeys 会带上 source 字段（transaction / lookupTable）
type RpcProvider struct {
	client     rpcCaller
	commitment string
}

func NewRpcProvider(endpoint, commitment string) *RpcProvider {
	client := rpc.NewRpcClient(endpoint)
	return newRpcProvider(&client, commitment)
}

func newRpcProvider(client rpcCaller, commitment string) *RpcProvider {
	if commitment == "" {
		commitment = string(rpc.CommitmentConfirmed)
	}
	return &RpcProvider{client: client, commitment: commitment}
}

type getTransactionConfig struct {
	Encoding                       string `json:"encoding"`
	Commitment                     string `json:"commitment,omitempty"`
	MaxSupportedTransactionVersion uint8  `json:"maxSupportedTransactionVersion"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (p *RpcProvider) Get(ctx context.Context, signature string) (*domain.TxDetail, error) {
	body, err := p.client.Call(ctx, "getTransaction", signature, getTransactionConfig{
		Encoding:                       "jsonParsed",
		Commitment:                     p.commitment,
		MaxSupportedTransactionVersion: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("getTransaction %s: %w", signature, err)
	}

	var resp rpcResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode getTransaction response: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("getTransaction %s: rpc error %d: %s", signature, resp.Error.Code, resp.Error.Message)
	}
	return txadapter.FromRpcJSON(resp.Result)
}
