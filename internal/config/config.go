package config

import (
	"time"

	"anchor-explorer-sol/internal/pkg/logger"
	"anchor-explorer-sol/internal/pkg/mq"
)

// go-zero conf 按 json tag 映射 yaml 字段

type LogConfig struct {
	Format   string `json:"format,default=console"` // 日志格式，支持 "console" 或 "json"
	LogDir   string `json:"log_dir,default=logs"`   // 日志目录（可为相对路径或绝对路径）
	Level    string `json:"level,default=info"`     // 日志级别：debug / info / warn / error
	Compress bool   `json:"compress,optional"`      // 是否压缩旧日志文件
}

func (c *LogConfig) ToLogOption() logger.LogOption {
	return logger.LogOption{
		Format:   c.Format,
		LogDir:   c.LogDir,
		Level:    c.Level,
		Compress: c.Compress,
	}
}

// RpcConfig Solana JSON-RPC 配置
type RpcConfig struct {
	Endpoint   string `json:"endpoint,default=https://api.mainnet-beta.solana.com"`
	Commitment string `json:"commitment,default=confirmed"`
}

// RedisConfig 交易详情缓存，Addr 为空时不启用
type RedisConfig struct {
	Addr     string `json:"addr,optional"`
	Password string `json:"password,optional"`
	DB       int    `json:"db,optional"`
	TxTTLSec int    `json:"tx_ttl_sec,default=86400"`
}

func (c *RedisConfig) TxTTL() time.Duration {
	return time.Duration(c.TxTTLSec) * time.Second
}

// IdlConfig IDL 来源配置
type IdlConfig struct {
	Dir                string `json:"dir,optional"`                  // <programId>.json 目录
	Registry           string `json:"registry,optional"`             // programs.yaml 注册表
	OnChain            bool   `json:"on_chain,default=true"`         // 本地没有时回源链上 IDL 账户
	MissTTLSec         int    `json:"miss_ttl_sec,default=600"`      // 链上拉取失败后的冷却时间
	RefreshIntervalSec int    `json:"refresh_interval_sec,optional"` // watch 模式下定期刷新链上 IDL，0 表示不刷新
}

func (c *IdlConfig) MissTTL() time.Duration {
	return time.Duration(c.MissTTLSec) * time.Second
}

func (c *IdlConfig) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalSec) * time.Second
}

// KafkaProducerConfig 表示 Kafka 生产者相关配置
type KafkaProducerConfig struct {
	Brokers    string `json:"brokers"`                    // Kafka broker 地址，多个用英文逗号分隔
	BatchSize  int    `json:"batch_size,optional"`        // 批处理大小（单位字节）
	LingerMs   int    `json:"linger_ms,default=5"`        // 批处理最大延迟（毫秒）
	Topic      string `json:"topic,default=anchor-cards"` // 卡片消息 topic
	Partitions int    `json:"partitions,default=8"`       // topic 分区数
}

func (c *KafkaProducerConfig) ToKafkaOption() mq.KafkaProducerOption {
	return mq.KafkaProducerOption{
		Brokers:   c.Brokers,
		BatchSize: c.BatchSize,
		LingerMs:  c.LingerMs,
		Topics: []mq.TopicOption{
			{Topic: c.Topic, Partitions: c.Partitions},
		},
	}
}

// TimeConfig 表示各种超时配置（单位：毫秒）
type TimeConfig struct {
	SlotDispatchTimeoutMs int `json:"slot_dispatch_timeout_ms,default=3000"` // 每个 slot 的发送最大耗时
	CardSendTimeoutMs     int `json:"card_send_timeout_ms,default=2000"`     // 单条卡片发送到 Kafka 并等待 ack 的超时时间
	RpcTimeoutMs          int `json:"rpc_timeout_ms,default=15000"`          // 单次 RPC 请求超时
}

// GrpcConfig gRPC 客户端连接相关配置
type GrpcConfig struct {
	Endpoint string `json:"endpoint"`         // gRPC 服务端地址
	XToken   string `json:"x_token,optional"` // x-token 认证

	// 应用级逻辑心跳（ping）配置
	StreamPingIntervalSec int `json:"stream_ping_interval_sec,default=10"`

	// gRPC Keepalive 底层连接检测配置
	KeepalivePingIntervalSec int `json:"keepalive_ping_interval_sec,default=30"`
	KeepalivePingTimeoutSec  int `json:"keepalive_ping_timeout_sec,default=10"`

	// gRPC 窗口大小调优（用于大数据流推送）
	InitialWindowSize     int `json:"initial_window_size,default=1073741824"`
	InitialConnWindowSize int `json:"initial_conn_window_size,default=1073741824"`

	// 消息体大小限制
	MaxCallSendMsgSize int `json:"max_call_send_msg_size,default=67108864"`
	MaxCallRecvMsgSize int `json:"max_call_recv_msg_size,default=67108864"`

	// 超时与重连策略
	ReconnectIntervalSec int `json:"reconnect_interval_sec,default=3"`
	ConnectTimeoutSec    int `json:"connect_timeout_sec,default=10"`
	SendTimeoutSec       int `json:"send_timeout_sec,default=5"`
	BlockRecvTimeoutSec  int `json:"block_recv_timeout_sec,default=30"` // 超过该时长没有收到 block 则重连
}

// WatchConfig watch 模式配置
type WatchConfig struct {
	Programs       []string `json:"programs"`                       // 需要解码的 program ID
	Workers        int      `json:"workers,optional"`               // 交易解析并发数，0 表示 CPU 数 + 2
	BlockChanSize  int      `json:"block_chan_size,default=200"`    // block 缓冲队列长度
	SlotCheck      bool     `json:"slot_check,default=true"`        // 是否对跳过的 slot 做空块确认
	ProgressTTLSec int      `json:"progress_ttl_sec,default=86400"` // slot 处理进度在 Redis 中的保留时长
}

// Config 是 anchorview 的主配置
type Config struct {
	LogConf  LogConfig   `json:"logger"`
	Rpc      RpcConfig   `json:"rpc"`
	Redis    RedisConfig `json:"redis,optional"`
	Idl      IdlConfig   `json:"idl,optional"`
	TimeConf TimeConfig  `json:"time_conf,optional"`

	// 以下仅 watch 模式使用
	Grpc              GrpcConfig          `json:"grpc,optional"`
	KafkaProducerConf KafkaProducerConfig `json:"kafka_producer,optional"`
	Watch             WatchConfig         `json:"watch,optional"`
}
