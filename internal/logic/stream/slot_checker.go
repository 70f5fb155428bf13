package stream

import (
	"context"
	"fmt"
	"sort"
	"time"

	"anchor-explorer-sol/internal/pkg/logger"

	"github.com/blocto/solana-go-sdk/rpc"
)

const (
	maxPendingRanges = 200
	maxRangeSize     = 10000 // getBlocks 单次最多查询 5e5 个 slot，这里保守限制
	delayBeforeCheck = 30 * time.Second
)

// SlotRange 表示闭区间 [From, To]
type SlotRange struct {
	From     uint64
	To       uint64
	SubmitAt time.Time
}

type blockLister interface {
	GetBlocks(ctx context.Context, from, to uint64) ([]uint64, error)
}

type rpcBlockLister struct {
	client rpc.RpcClient
}

func (l *rpcBlockLister) GetBlocks(ctx context.Context, from, to uint64) ([]uint64, error) {
	resp, err := l.client.GetBlocks(ctx, from, to)
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("rpc error %d: %s", resp.Error.Code, resp.Error.Message)
	}
	return resp.Result, nil
}

// SlotChecker 对流中跳过的 slot 做延迟确认：
// 链上确实没有出块的 slot 属于正常跳过，getBlocks 能查到但流里没收到的 slot 记为漏块。
type SlotChecker struct {
	lister  blockLister
	rangeCh chan SlotRange
	ctx     context.Context
	cancel  context.CancelFunc
	missing func(slot uint64) // 发现漏块时回调，默认只打日志
}

func NewSlotChecker(endpoint string) *SlotChecker {
	return newSlotChecker(&rpcBlockLister{client: rpc.NewRpcClient(endpoint)})
}

func newSlotChecker(lister blockLister) *SlotChecker {
	ctx, cancel := context.WithCancel(context.Background())
	return &SlotChecker{
		lister:  lister,
		rangeCh: make(chan SlotRange, 300),
		ctx:     ctx,
		cancel:  cancel,
		missing: func(slot uint64) {
			logger.Errorf("[SlotChecker] slot %d is missing from stream", slot)
		},
	}
}

func (s *SlotChecker) Start() {
	s.run()
}

func (s *SlotChecker) Stop() {
	s.cancel()
}

// Submit 提交一个待确认的 slot 范围，队列满时丢弃
func (s *SlotChecker) Submit(from, to uint64) {
	if from > to {
		logger.Warnf("[SlotChecker] invalid slot range: from (%d) > to (%d)", from, to)
		return
	}
	select {
	case s.rangeCh <- SlotRange{From: from, To: to, SubmitAt: time.Now()}:
	default:
		logger.Warnf("[SlotChecker] slot range channel full, dropped: [%d, %d]", from, to)
	}
}

func (s *SlotChecker) run() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	var pending []SlotRange
	for {
		select {
		case <-s.ctx.Done():
			logger.Infof("[SlotChecker] stopped")
			return

		case r := <-s.rangeCh:
			if len(pending) >= maxPendingRanges {
				logger.Warnf("[SlotChecker] too many pending ranges (%d), drop [%d, %d]", len(pending), r.From, r.To)
				continue
			}
			pending = append(pending, r)

		case now := <-ticker.C:
			var ready []SlotRange
			ready, pending = splitReady(pending, now, delayBeforeCheck)
			if len(ready) > 0 {
				s.check(ready) // 串行执行，防止 goroutine 累积
			}
		}
	}
}

// splitReady 按提交时间把范围分成已到期与未到期两组
func splitReady(ranges []SlotRange, now time.Time, delay time.Duration) (ready, pending []SlotRange) {
	for _, r := range ranges {
		if now.Sub(r.SubmitAt) >= delay {
			ready = append(ready, r)
		} else {
			pending = append(pending, r)
		}
	}
	return ready, pending
}

func (s *SlotChecker) check(ranges []SlotRange) {
	for _, r := range mergeRanges(ranges, maxRangeSize) {
		if s.ctx.Err() != nil {
			return
		}
		ctx, cancel := context.WithTimeout(s.ctx, 6*time.Second)
		produced, err := s.lister.GetBlocks(ctx, r.From, r.To)
		cancel()
		if err != nil {
			logger.Warnf("[SlotChecker] getBlocks [%d, %d] failed: %v", r.From, r.To, err)
			continue
		}
		for _, slot := range produced {
			if slot >= r.From && slot <= r.To {
				s.missing(slot)
			}
		}
	}
}

// mergeRanges 排序并合并重叠或相邻的范围，合并后的每段长度不超过 maxSize
func mergeRanges(ranges []SlotRange, maxSize uint64) []SlotRange {
	if len(ranges) == 0 {
		return nil
	}
	sorted := make([]SlotRange, len(ranges))
	copy(sorted, ranges)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].From == sorted[j].From {
			return sorted[i].To < sorted[j].To
		}
		return sorted[i].From < sorted[j].From
	})

	merged := []SlotRange{sorted[0]}
	for _, r := range sorted[1:] {
		last := &merged[len(merged)-1]
		if r.From <= last.To+1 {
			if r.To > last.To {
				last.To = r.To
			}
			continue
		}
		merged = append(merged, r)
	}

	out := make([]SlotRange, 0, len(merged))
	for _, r := range merged {
		for from := r.From; from <= r.To; from += maxSize {
			to := min(from+maxSize-1, r.To)
			out = append(out, SlotRange{From: from, To: to, SubmitAt: r.SubmitAt})
			if to == r.To {
				break
			}
		}
	}
	return out
}
