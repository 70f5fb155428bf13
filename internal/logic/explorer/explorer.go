package explorer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"anchor-explorer-sol/internal/logic/card"
	"anchor-explorer-sol/internal/logic/domain"
	"anchor-explorer-sol/internal/logic/idl"
	"anchor-explorer-sol/internal/logic/txdetail"
	"anchor-explorer-sol/internal/pkg/logger"
	"anchor-explorer-sol/internal/types"

	"github.com/zeromicro/go-zero/core/collection"
)

const memoExpire = 10 * time.Minute

var ErrTxNotFound = errors.New("transaction not found")

// Programs 按 program ID 查找 IDL 绑定，*idl.Registry 实现了该接口
type Programs interface {
	Program(ctx context.Context, id types.Pubkey) (*idl.Program, bool)
}

// Explorer 组装交易详情页：每条主指令一张卡片，inner 指令作为嵌套卡片。
// 同一渲染位置（签名 + 指令下标）复用同一个 Memo，重复渲染不会重复解码。
type Explorer struct {
	programs Programs
	provider txdetail.Provider
	memos    *collection.Cache
}

func New(programs Programs, provider txdetail.Provider) (*Explorer, error) {
	memos, err := collection.NewCache(memoExpire, collection.WithName("anchor-memo"))
	if err != nil {
		return nil, err
	}
	return &Explorer{programs: programs, provider: provider, memos: memos}, nil
}

// RenderTransaction 拉取交易详情并生成全部卡片
func (e *Explorer) RenderTransaction(ctx context.Context, signature string) ([]*card.Card, error) {
	if e.provider == nil {
		return nil, errors.New("no transaction provider configured")
	}
	detail, err := e.provider.Get(ctx, signature)
	if err != nil {
		return nil, err
	}
	if detail == nil {
		return nil, fmt.Errorf("%w: %s", ErrTxNotFound, signature)
	}
	return e.BuildCards(ctx, detail, nil), nil
}

// BuildCards 为交易中的指令生成卡片；filter 非空时只保留 filter 返回 true 的主指令
func (e *Explorer) BuildCards(ctx context.Context, detail *domain.TxDetail, filter func(ix *domain.TranslatedInstruction) bool) []*card.Card {
	sig := detail.Signature.String()
	cards := make([]*card.Card, 0, len(detail.Instructions))
	for i, translated := range detail.Instructions {
		if filter != nil && !filter(translated) {
			continue
		}
		outer := &translated.Instruction

		inners := make([]*card.Card, 0, len(translated.Inners))
		for j := range translated.Inners {
			child := j
			props := card.Props{Index: i, ChildIndex: &child, Signature: sig, Err: detail.Err}
			inners = append(inners, e.build(ctx, props, &translated.Inners[j], detail))
		}

		props := card.Props{Index: i, Signature: sig, Err: detail.Err, InnerCards: inners}
		cards = append(cards, e.build(ctx, props, outer, detail))
	}
	return cards
}

// RenderInstruction 对单条指令做临时解码。signature 非空且配置了 provider 时按签名拉取交易详情，
// 拉取失败或交易不存在时按无详情渲染（只是不显示 Lookup Table 标记）。
func (e *Explorer) RenderInstruction(ctx context.Context, ix *domain.Instruction, signature string) *card.Card {
	var detail *domain.TxDetail
	if signature != "" && e.provider != nil {
		d, err := e.provider.Get(ctx, signature)
		if err != nil {
			logger.Warnf("[Explorer::RenderInstruction] get tx %s failed: %v", signature, err)
		} else {
			detail = d
		}
	}
	return e.build(ctx, card.Props{Signature: signature}, ix, detail)
}

func (e *Explorer) build(ctx context.Context, props card.Props, ix *domain.Instruction, detail *domain.TxDetail) *card.Card {
	program, ok := e.programs.Program(ctx, ix.ProgramID)
	if !ok {
		return card.BuildUnknown(props, ix, detail)
	}
	return card.Build(props, ix, program, detail, e.memo(props))
}

func (e *Explorer) memo(props card.Props) *card.Memo {
	key := props.Signature + ":" + strconv.Itoa(props.Index)
	if props.ChildIndex != nil {
		key += ":" + strconv.Itoa(*props.ChildIndex)
	}
	v, err := e.memos.Take(key, func() (any, error) {
		return card.NewMemo(), nil
	})
	if err != nil {
		return card.NewMemo()
	}
	return v.(*card.Memo)
}
