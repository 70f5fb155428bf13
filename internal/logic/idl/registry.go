package idl

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"

	"anchor-explorer-sol/internal/pkg/logger"
	"anchor-explorer-sol/internal/types"

	"github.com/zeromicro/go-zero/core/syncx"
)

const defaultMissTTL = 10 * time.Minute

// Registry 维护 program ID → Program 的映射。
// 本地未注册的程序可选地回源链上 IDL 账户；拉取失败的结果缓存 missTTL，避免反复请求。
// 本地注册的程序视为固定版本，不参与 Refresh。
type Registry struct {
	mu       sync.RWMutex
	programs map[types.Pubkey]*Program
	misses   map[types.Pubkey]time.Time
	pinned   map[types.Pubkey]struct{}
	raw      map[types.Pubkey][]byte // 链上 IDL 原始 JSON，用于判断是否升级

	fetcher AccountFetcher // nil 表示不回源链上
	missTTL time.Duration
	flight  syncx.SingleFlight
	now     func() time.Time
}

type RegistryOption func(*Registry)

func WithFetcher(f AccountFetcher) RegistryOption {
	return func(r *Registry) { r.fetcher = f }
}

func WithMissTTL(ttl time.Duration) RegistryOption {
	return func(r *Registry) {
		if ttl > 0 {
			r.missTTL = ttl
		}
	}
}

func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		programs: make(map[types.Pubkey]*Program),
		misses:   make(map[types.Pubkey]time.Time),
		pinned:   make(map[types.Pubkey]struct{}),
		raw:      make(map[types.Pubkey][]byte),
		missTTL:  defaultMissTTL,
		flight:   syncx.NewSingleFlight(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register 注册一个 IDL，已存在的同 ID 程序会被覆盖
func (r *Registry) Register(id types.Pubkey, parsed *Idl) error {
	p, err := NewProgram(id, parsed)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.programs[id] = p
	r.pinned[id] = struct{}{}
	delete(r.raw, id)
	delete(r.misses, id)
	r.mu.Unlock()
	return nil
}

func (r *Registry) RegisterEntries(entries []Entry) error {
	for _, e := range entries {
		if err := r.Register(e.ProgramID, e.Idl); err != nil {
			return err
		}
		logger.Debugf("[IdlRegistry] registered %s from %s", e.ProgramID, e.Source)
	}
	return nil
}

// Len 返回已注册的程序数量
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.programs)
}

// Lookup 只查本地，不触发链上拉取
func (r *Registry) Lookup(id types.Pubkey) (*Program, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.programs[id]
	return p, ok
}

// Program 返回程序的 IDL 绑定；没有可用 IDL 时返回 nil, false。
// 链上拉取失败只记录日志，不向调用方报错（卡片会退化为 Unknown Program）。
func (r *Registry) Program(ctx context.Context, id types.Pubkey) (*Program, bool) {
	if p, ok := r.Lookup(id); ok {
		return p, true
	}
	if r.fetcher == nil || r.recentlyMissed(id) {
		return nil, false
	}

	v, err := r.flight.Do(id.String(), func() (any, error) {
		return r.fetch(ctx, id)
	})
	if err != nil {
		if !errors.Is(err, ErrIdlAccountNotFound) {
			logger.Warnf("[IdlRegistry] fetch idl for %s failed: %v", id, err)
		}
		r.markMiss(id)
		return nil, false
	}
	return v.(*Program), true
}

func (r *Registry) fetch(ctx context.Context, id types.Pubkey) (*Program, error) {
	parsed, raw, err := FetchIdl(ctx, r.fetcher, id)
	if err != nil {
		return nil, err
	}
	p, err := r.store(id, parsed, raw)
	if err != nil {
		return nil, err
	}
	logger.Infof("[IdlRegistry] loaded on-chain idl for %s (%d instructions)", id, len(parsed.Instructions))
	return p, nil
}

// Refresh 重新读取链上 IDL，内容有变化时替换并返回 true。
// 本地注册的程序与未配置 fetcher 的情况直接返回 false。
func (r *Registry) Refresh(ctx context.Context, id types.Pubkey) (bool, error) {
	if r.fetcher == nil {
		return false, nil
	}
	r.mu.RLock()
	_, pinned := r.pinned[id]
	old := r.raw[id]
	r.mu.RUnlock()
	if pinned {
		return false, nil
	}

	parsed, raw, err := FetchIdl(ctx, r.fetcher, id)
	if err != nil {
		return false, err
	}
	if old != nil && bytes.Equal(old, raw) {
		return false, nil
	}
	if _, err := r.store(id, parsed, raw); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Registry) store(id types.Pubkey, parsed *Idl, raw []byte) (*Program, error) {
	p, err := NewProgram(id, parsed)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	// 拉取期间被本地注册覆盖时以本地为准
	if _, ok := r.pinned[id]; ok {
		return r.programs[id], nil
	}
	r.programs[id] = p
	r.raw[id] = raw
	delete(r.misses, id)
	return p, nil
}

func (r *Registry) recentlyMissed(id types.Pubkey) bool {
	r.mu.RLock()
	at, ok := r.misses[id]
	r.mu.RUnlock()
	return ok && r.now().Sub(at) < r.missTTL
}

func (r *Registry) markMiss(id types.Pubkey) {
	r.mu.Lock()
	r.misses[id] = r.now()
	r.mu.Unlock()
}
