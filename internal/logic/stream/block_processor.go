package stream

import (
	"context"
	"errors"
	"runtime"
	"time"

	"anchor-explorer-sol/internal/logic/card"
	"anchor-explorer-sol/internal/logic/domain"
	"anchor-explorer-sol/internal/logic/progress"
	"anchor-explorer-sol/internal/logic/txadapter"
	"anchor-explorer-sol/internal/pkg/mq"
	"anchor-explorer-sol/internal/pkg/utils"
	"anchor-explorer-sol/internal/svc"
	"anchor-explorer-sol/internal/types"

	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"
	"github.com/zeromicro/go-zero/core/logx"
)

// CardBuilder 为交易生成卡片，*explorer.Explorer 实现了该接口
type CardBuilder interface {
	BuildCards(ctx context.Context, detail *domain.TxDetail, filter func(ix *domain.TranslatedInstruction) bool) []*card.Card
}

type BlockProcessor struct {
	builder   CardBuilder
	producer  mq.Producer
	progress  progress.Store
	checker   *SlotChecker // 可为 nil
	programs  map[types.Pubkey]struct{}
	blockChan chan *pb.SubscribeUpdateBlock

	topic           string
	partitions      int
	workers         int
	dispatchTimeout time.Duration
	sendTimeout     time.Duration

	lastSlot uint64
	ctx      context.Context
	cancel   func(err error)
	logx.Logger
}

func NewBlockProcessor(sc *svc.ServiceContext, programs []types.Pubkey, checker *SlotChecker, blockChan chan *pb.SubscribeUpdateBlock) *BlockProcessor {
	ctx, cancel := context.WithCancelCause(context.Background())
	set := make(map[types.Pubkey]struct{}, len(programs))
	for _, p := range programs {
		set[p] = struct{}{}
	}
	workers := sc.Config.Watch.Workers
	if workers <= 0 {
		workers = runtime.NumCPU() + 2
	}
	p := &BlockProcessor{
		builder:         sc.Explorer,
		progress:        sc.Progress,
		checker:         checker,
		programs:        set,
		blockChan:       blockChan,
		topic:           sc.Config.KafkaProducerConf.Topic,
		partitions:      sc.Config.KafkaProducerConf.Partitions,
		workers:         workers,
		dispatchTimeout: time.Duration(sc.Config.TimeConf.SlotDispatchTimeoutMs) * time.Millisecond,
		sendTimeout:     time.Duration(sc.Config.TimeConf.CardSendTimeoutMs) * time.Millisecond,
		ctx:             ctx,
		cancel:          cancel,
		Logger:          logx.WithContext(ctx).WithFields(logx.Field("service", "block_processor")),
	}
	// 避免把 nil *kafka.Producer 装进接口
	if sc.Producer != nil {
		p.producer = sc.Producer
	}
	if p.progress == nil {
		p.progress = progress.NopStore{}
	}
	return p
}

func (p *BlockProcessor) Start() {
	for {
		select {
		case <-p.ctx.Done():
			return
		case block := <-p.blockChan:
			p.procBlock(block)
			if len(p.blockChan) > 10 {
				p.Debugf("block chan len:%v", len(p.blockChan))
			}
		}
	}
}

func (p *BlockProcessor) Stop() {
	p.cancel(errors.New("service stop"))
}

// matches 主指令或其 inner 指令调用了关注的程序
func (p *BlockProcessor) matches(ix *domain.TranslatedInstruction) bool {
	if _, ok := p.programs[ix.Instruction.ProgramID]; ok {
		return true
	}
	for i := range ix.Inners {
		if _, ok := p.programs[ix.Inners[i].ProgramID]; ok {
			return true
		}
	}
	return false
}

func (p *BlockProcessor) procBlock(block *pb.SubscribeUpdateBlock) {
	startTime := time.Now()
	slot := block.Slot

	status, err := p.progress.GetSlotStatus(slot)
	if err != nil {
		p.Errorf("get slot %d status failed: %v", slot, err)
	} else if status == progress.SlotProcessed {
		p.Infof("slot %d already processed, skip", slot)
		return
	}
	p.trackGap(slot)

	var blockTime int64
	if bt := block.GetBlockTime(); bt != nil {
		blockTime = bt.Timestamp
	}

	cards := p.buildCards(slot, blockTime, block.Transactions)
	jobs, err := BuildCardJobs(p.topic, p.partitions, slot, blockTime, cards)
	if err != nil {
		p.Errorf("build kafka jobs for slot %d failed: %v", slot, err)
		p.markSlot(slot, progress.SlotInvalid)
		return
	}

	if len(jobs) > 0 && p.producer != nil {
		ctx, cancel := context.WithTimeout(p.ctx, p.dispatchTimeout)
		ok, failed := mq.SendKafkaJobs(ctx, p.producer, jobs, p.sendTimeout)
		cancel()
		if len(failed) > 0 {
			// 不标记进度，重连回放时会重新投递
			p.Errorf("slot %d: %d card(s) sent, %d failed, first error: %v", slot, len(ok), len(failed), failed[0].Err)
			return
		}
	}
	p.markSlot(slot, progress.SlotProcessed)
	p.Infof("slot %d processed: txs=%d cards=%d cost=%v", slot, len(block.Transactions), len(jobs), time.Since(startTime))
}

func (p *BlockProcessor) buildCards(slot uint64, blockTime int64, txs []*pb.SubscribeUpdateTransactionInfo) []*card.Card {
	valid := make([]*pb.SubscribeUpdateTransactionInfo, 0, len(txs))
	for _, tx := range txs {
		if IsValidGrpcTx(tx) {
			valid = append(valid, tx)
		}
	}

	perTx := utils.ParallelMap(valid, p.workers, func(tx *pb.SubscribeUpdateTransactionInfo) []*card.Card {
		detail, err := txadapter.FromGrpc(slot, blockTime, tx)
		if err != nil {
			p.Errorf("adapt tx at slot %d index %d failed: %v", slot, tx.Index, err)
			return nil
		}
		return p.builder.BuildCards(p.ctx, detail, p.matches)
	})

	total := 0
	for _, cs := range perTx {
		total += len(cs)
	}
	cards := make([]*card.Card, 0, total)
	for _, cs := range perTx {
		cards = append(cards, cs...)
	}
	return cards
}

// trackGap 相邻两次收到的 slot 不连续时，把中间的 slot 交给 SlotChecker 确认是否漏块
func (p *BlockProcessor) trackGap(slot uint64) {
	if p.checker != nil && p.lastSlot != 0 && slot > p.lastSlot+1 {
		p.checker.Submit(p.lastSlot+1, slot-1)
	}
	if slot > p.lastSlot {
		p.lastSlot = slot
	}
}

func (p *BlockProcessor) markSlot(slot uint64, status progress.SlotStatus) {
	if err := p.progress.MarkSlotStatus(slot, status); err != nil {
		p.Errorf("mark slot %d %s failed: %v", slot, status, err)
	}
}

// IsValidGrpcTx 过滤结构不完整的交易与投票交易；执行失败的交易保留，卡片会带上错误信息
func IsValidGrpcTx(tx *pb.SubscribeUpdateTransactionInfo) bool {
	return tx != nil &&
		tx.Transaction != nil &&
		tx.Transaction.Message != nil &&
		len(tx.Transaction.Signatures) > 0 &&
		len(tx.Transaction.Signatures[0]) == 64 &&
		!tx.IsVote &&
		tx.Meta != nil
}
