package svc

import (
	"context"
	"fmt"
	"time"

	"anchor-explorer-sol/internal/config"
	"anchor-explorer-sol/internal/logic/explorer"
	"anchor-explorer-sol/internal/logic/idl"
	"anchor-explorer-sol/internal/logic/progress"
	"anchor-explorer-sol/internal/logic/txdetail"
	"anchor-explorer-sol/internal/pkg/logger"
	"anchor-explorer-sol/internal/pkg/mq"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/redis/go-redis/v9"
)

// ServiceContext 包含各命令共享的资源
type ServiceContext struct {
	Config   config.Config
	Registry *idl.Registry
	Provider txdetail.Provider
	Explorer *explorer.Explorer
	Redis    *redis.Client // 未配置时为 nil

	// 以下仅 watch 模式初始化
	Producer *kafka.Producer
	Progress progress.Store
}

// NewServiceContext 创建一个新的服务上下文：加载本地 IDL、初始化交易详情来源与可选的 Redis 缓存
func NewServiceContext(c config.Config) (*ServiceContext, error) {
	var opts []idl.RegistryOption
	if c.Idl.OnChain {
		opts = append(opts, idl.WithFetcher(idl.NewRpcAccountFetcher(c.Rpc.Endpoint)))
	}
	opts = append(opts, idl.WithMissTTL(c.Idl.MissTTL()))
	registry := idl.NewRegistry(opts...)

	if c.Idl.Dir != "" {
		entries, err := idl.LoadDir(c.Idl.Dir)
		if err != nil {
			return nil, fmt.Errorf("load idl dir: %w", err)
		}
		if err := registry.RegisterEntries(entries); err != nil {
			return nil, err
		}
	}
	if c.Idl.Registry != "" {
		entries, err := idl.LoadRegistryFile(c.Idl.Registry)
		if err != nil {
			return nil, fmt.Errorf("load idl registry: %w", err)
		}
		if err := registry.RegisterEntries(entries); err != nil {
			return nil, err
		}
	}
	logger.Infof("[svc] %d local idl(s) registered, on-chain fetch: %v", registry.Len(), c.Idl.OnChain)

	var provider txdetail.Provider = txdetail.NewRpcProvider(c.Rpc.Endpoint, c.Rpc.Commitment)

	var rdb *redis.Client
	if c.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     c.Redis.Addr,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := rdb.Ping(ctx).Err()
		cancel()
		if err != nil {
			// 缓存不是必需的，连不上只告警
			logger.Warnf("[svc] redis %s unavailable, cache disabled: %v", c.Redis.Addr, err)
			_ = rdb.Close()
			rdb = nil
		} else {
			provider = txdetail.NewCachedProvider(provider, rdb, c.Redis.TxTTL())
		}
	}

	exp, err := explorer.New(registry, provider)
	if err != nil {
		return nil, err
	}

	return &ServiceContext{
		Config:   c,
		Registry: registry,
		Provider: provider,
		Explorer: exp,
		Redis:    rdb,
		Progress: progress.NopStore{},
	}, nil
}

// InitWatch 初始化 watch 模式所需的 Kafka 生产者与 slot 进度存储
func (sc *ServiceContext) InitWatch() error {
	producer, err := mq.NewKafkaProducer(sc.Config.KafkaProducerConf.ToKafkaOption())
	if err != nil {
		logger.Errorf("[svc] Kafka producer 初始化失败: %v", err)
		return err
	}
	sc.Producer = producer

	if sc.Redis != nil {
		ttl := time.Duration(sc.Config.Watch.ProgressTTLSec) * time.Second
		sc.Progress = progress.NewRedisStore(sc.Redis, ttl)
	}
	logger.Infof("[svc] watch 上下文初始化完成")
	return nil
}

// Close 关闭服务上下文中的资源
func (sc *ServiceContext) Close() {
	if sc.Producer != nil {
		sc.Producer.Flush(5000)
		sc.Producer.Close()
	}
	if sc.Redis != nil {
		_ = sc.Redis.Close()
	}
}
