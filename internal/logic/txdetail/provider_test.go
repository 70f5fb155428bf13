package txdetail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCaller struct {
	body   string
	err    error
	params []any
}

func (f *fakeCaller) Call(_ context.Context, params ...any) ([]byte, error) {
	f.params = params
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.body), nil
}

func TestRpcProvider_Get(t *testing.T) {
	sig := base58.Encode(bytes.Repeat([]byte{5}, 64))
	caller := &fakeCaller{body: fmt.Sprintf(`{"jsonrpc": "2.0", "id": 1, "result": {
		"slot": 7,
		"meta": {"err": null},
		"transaction": {"signatures": [%q], "message": {"accountKeys": [], "instructions": []}}
	}}`, sig)}
	p := newRpcProvider(caller, "")

	detail, err := p.Get(context.Background(), sig)
	require.NoError(t, err)
	require.NotNil(t, detail)
	assert.Equal(t, uint64(7), detail.Slot)

	require.Len(t, caller.params, 3)
	assert.Equal(t, "getTransaction", caller.params[0])
	assert.Equal(t, sig, caller.params[1])
	assert.Equal(t, getTransactionConfig{
		Encoding:   "jsonParsed",
		Commitment: "confirmed",
	}, caller.params[2])
}

func TestRpcProvider_NotFound(t *testing.T) {
	p := newRpcProvider(&fakeCaller{body: `{"jsonrpc": "2.0", "id": 1, "result": null}`}, "finalized")
	detail, err := p.Get(context.Background(), "sig")
	assert.NoError(t, err)
	assert.Nil(t, detail)
}

func TestRpcProvider_Errors(t *testing.T) {
	p := newRpcProvider(&fakeCaller{body: `{"jsonrpc": "2.0", "id": 1, "error": {"code": -32602, "message": "Invalid param"}}`}, "")
	_, err := p.Get(context.Background(), "sig")
	assert.EqualError(t, err, "getTransaction sig: rpc error -32602: Invalid param")

	cause := errors.New("connection refused")
	p = newRpcProvider(&fakeCaller{err: cause}, "")
	_, err = p.Get(context.Background(), "sig")
	assert.ErrorIs(t, err, cause)

	p = newRpcProvider(&fakeCaller{body: `<html>`}, "")
	_, err = p.Get(context.Background(), "sig")
	assert.Error(t, err)
}
