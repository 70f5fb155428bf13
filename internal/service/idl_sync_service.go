package service

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"anchor-explorer-sol/internal/pkg/logger"
	"anchor-explorer-sol/internal/types"
)

// IdlRefresher 由 *idl.Registry 实现
type IdlRefresher interface {
	Refresh(ctx context.Context, id types.Pubkey) (bool, error)
}

// IdlSyncService 周期性重新读取 watch 程序的链上 IDL，程序升级后卡片随之使用新的定义
type IdlSyncService struct {
	registry IdlRefresher
	programs []types.Pubkey
	interval time.Duration
	timeout  time.Duration
	stopChan chan struct{}
	ctx      context.Context
	cancel   func(err error)
}

func NewIdlSyncService(registry IdlRefresher, programs []types.Pubkey, interval, timeout time.Duration) *IdlSyncService {
	ctx, cancel := context.WithCancelCause(context.Background())
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &IdlSyncService{
		registry: registry,
		programs: programs,
		interval: interval,
		timeout:  timeout,
		stopChan: make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (s *IdlSyncService) Start() {
	s.scheduleNext()
	<-s.stopChan
}

func (s *IdlSyncService) scheduleNext() {
	time.AfterFunc(s.interval, func() {
		if err := s.update(); err != nil {
			logger.Warnf("[IdlSyncService] 周期性更新失败: %v", err)
		}
		// 如果没有被 Stop，就继续调度
		select {
		case <-s.ctx.Done():
			return
		default:
			s.scheduleNext()
		}
	})
}

func (s *IdlSyncService) Stop() {
	s.cancel(errors.New("IdlSyncService stop"))
	select {
	case <-s.stopChan:
		// 已关闭，无需重复关闭
	default:
		close(s.stopChan)
	}
}

// update 逐个刷新，单个程序失败不影响其他程序；全部失败时返回最后一个错误
func (s *IdlSyncService) update() (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("[IdlSyncService] update panic: %v\n%s", r, debug.Stack())
			err = fmt.Errorf("update panic: %v", r)
		}
	}()

	var lastErr error
	failed := 0
	for _, id := range s.programs {
		if s.ctx.Err() != nil {
			return nil
		}
		ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
		changed, err := s.registry.Refresh(ctx, id)
		cancel()
		switch {
		case err != nil:
			failed++
			lastErr = err
			logger.Debugf("[IdlSyncService] refresh %s failed: %v", id, err)
		case changed:
			logger.Infof("[IdlSyncService] idl of %s updated", id)
		}
	}
	if len(s.programs) > 0 && failed == len(s.programs) {
		return lastErr
	}
	return nil
}
