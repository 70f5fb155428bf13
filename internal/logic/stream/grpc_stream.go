package stream

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"anchor-explorer-sol/internal/config"
	"anchor-explorer-sol/internal/pkg/logger"

	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/metadata"
)

// GrpcStreamManager 维护 yellowstone 订阅流：断线或长时间无 block 时自动重连
type GrpcStreamManager struct {
	mu                sync.Mutex
	conn              *grpc.ClientConn
	client            pb.GeyserClient
	stream            pb.Geyser_SubscribeClient
	stopped           bool
	reconnectAttempts int
	connCancel        context.CancelFunc

	conf      config.GrpcConfig
	programs  []string                      // 订阅过滤：只推送涉及这些程序的交易
	blockChan chan *pb.SubscribeUpdateBlock // 区块数据通道
}

func NewGrpcStreamManager(conf config.GrpcConfig, programs []string, blockChan chan *pb.SubscribeUpdateBlock) (*GrpcStreamManager, error) {
	if conf.Endpoint == "" {
		return nil, errors.New("grpc endpoint is empty")
	}

	dialCtx, cancel := context.WithTimeout(context.Background(), time.Duration(conf.ConnectTimeoutSec)*time.Second)
	defer cancel()

	conn, err := grpc.DialContext(
		dialCtx,
		conf.Endpoint,
		grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{InsecureSkipVerify: true})),
		grpc.WithInitialWindowSize(int32(conf.InitialWindowSize)),
		grpc.WithInitialConnWindowSize(int32(conf.InitialConnWindowSize)),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallSendMsgSize(conf.MaxCallSendMsgSize),
			grpc.MaxCallRecvMsgSize(conf.MaxCallRecvMsgSize),
		),
		grpc.WithBlock(),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                time.Duration(conf.KeepalivePingIntervalSec) * time.Second,
			Timeout:             time.Duration(conf.KeepalivePingTimeoutSec) * time.Second,
			PermitWithoutStream: true,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	return &GrpcStreamManager{
		conn:      conn,
		client:    pb.NewGeyserClient(conn),
		conf:      conf,
		programs:  programs,
		blockChan: blockChan,
	}, nil
}

func (m *GrpcStreamManager) Start() {
	m.mustConnect()
}

func (m *GrpcStreamManager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopped = true
	if m.connCancel != nil {
		m.connCancel()
		m.connCancel = nil
	}
	if m.conn != nil {
		_ = m.conn.Close()
	}
}

func (m *GrpcStreamManager) isStopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

// mustConnect 循环直到连接成功或被停止；连续失败 3 次以上时退避加倍
func (m *GrpcStreamManager) mustConnect() {
	interval := time.Duration(m.conf.ReconnectIntervalSec) * time.Second
	for !m.isStopped() {
		if m.reconnectAttempts > 3 {
			time.Sleep(interval * 2)
		} else if m.reconnectAttempts > 0 {
			time.Sleep(interval)
		}
		m.reconnectAttempts++
		logger.Infof("[GrpcStream] connecting, attempt %d", m.reconnectAttempts)
		err := m.connect()
		if err == nil {
			return
		}
		logger.Warnf("[GrpcStream] connect failed: %v, will retry", err)
	}
}

func buildSubscribeRequest(programs []string) *pb.SubscribeRequest {
	blocks := map[string]*pb.SubscribeRequestFilterBlocks{
		"anchor": {
			AccountInclude:      programs,
			IncludeTransactions: boolPtr(true),
			IncludeAccounts:     boolPtr(false),
			IncludeEntries:      boolPtr(false),
		},
	}
	commitment := pb.CommitmentLevel_CONFIRMED
	return &pb.SubscribeRequest{
		Blocks:     blocks,
		Commitment: &commitment,
	}
}

// connect 只尝试一次连接
func (m *GrpcStreamManager) connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return errors.New("manager is stopped")
	}

	// 先关闭旧连接的 goroutine
	if m.connCancel != nil {
		m.connCancel()
		m.connCancel = nil
	}
	connCtx, connCancel := context.WithCancel(context.Background())

	metaCtx := metadata.NewOutgoingContext(connCtx, metadata.New(map[string]string{"x-token": m.conf.XToken}))
	stream, err := m.client.Subscribe(metaCtx)
	if err != nil {
		connCancel()
		return fmt.Errorf("subscribe: %w", err)
	}

	req := buildSubscribeRequest(m.programs)
	if err := sendWithTimeout(connCtx, stream.Send, req, m.sendTimeout()); err != nil {
		connCancel()
		return fmt.Errorf("send subscribe request: %w", err)
	}

	m.stream = stream
	m.connCancel = connCancel
	m.reconnectAttempts = 0
	logger.Infof("[GrpcStream] connection established, %d program(s) subscribed", len(m.programs))

	go m.pingLoop(connCtx, stream)
	go m.blockRecvLoop(connCtx, stream)
	return nil
}

func (m *GrpcStreamManager) sendTimeout() time.Duration {
	return time.Duration(m.conf.SendTimeoutSec) * time.Second
}

func (m *GrpcStreamManager) blockRecvLoop(ctx context.Context, stream pb.Geyser_SubscribeClient) {
	last := time.Now()
	blockTimeout := time.Duration(m.conf.BlockRecvTimeoutSec) * time.Second
	for {
		if ctx.Err() != nil {
			return
		}

		update, err := stream.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, io.EOF) {
				logger.Warnf("[GrpcStream] stream closed by server (EOF), will reconnect")
				m.reconnect()
				return
			}
			logger.Warnf("[GrpcStream] stream error: %v", err)
			if m.reconnectIfBlockTimeout(last, blockTimeout) {
				return
			}
			time.Sleep(100 * time.Millisecond)
			continue
		}

		if u, ok := update.GetUpdateOneof().(*pb.SubscribeUpdate_Block); ok {
			last = time.Now()
			if bt := u.Block.GetBlockTime(); bt != nil {
				logger.Debugf("[GrpcStream] received block at slot %d, latency %d ms",
					u.Block.Slot, last.UnixMilli()-bt.Timestamp*1000)
			}
			select {
			case m.blockChan <- u.Block:
			default:
				logger.Warnf("[GrpcStream] blockChan is full, discard block at slot %d", u.Block.Slot)
			}
		}

		if m.reconnectIfBlockTimeout(last, blockTimeout) {
			return
		}
	}
}

// sendWithTimeout gRPC Send 本身不支持超时，这里放到 goroutine 中等待
func sendWithTimeout[T any](ctx context.Context, sendFunc func(T) error, req T, timeout time.Duration) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- sendFunc(req)
	}()

	select {
	case <-timeoutCtx.Done():
		return timeoutCtx.Err()
	case err := <-done:
		return err
	}
}

// pingLoop 应用层心跳，失败只记录日志，断线由 blockRecvLoop 负责重连
func (m *GrpcStreamManager) pingLoop(ctx context.Context, stream pb.Geyser_SubscribeClient) {
	ticker := time.NewTicker(time.Duration(max(m.conf.StreamPingIntervalSec, 1)) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingReq := &pb.SubscribeRequest{Ping: &pb.SubscribeRequestPing{Id: 1}}
			if err := sendWithTimeout(ctx, stream.Send, pingReq, m.sendTimeout()); err != nil {
				logger.Warnf("[GrpcStream] ping failed: %v", err)
			}
		}
	}
}

func (m *GrpcStreamManager) reconnectIfBlockTimeout(last time.Time, timeout time.Duration) bool {
	if timeout > 0 && time.Since(last) > timeout {
		logger.Warnf("[GrpcStream] no block received in %v, reconnecting", timeout)
		m.reconnect()
		return true
	}
	return false
}

func (m *GrpcStreamManager) reconnect() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	if m.connCancel != nil {
		m.connCancel()
		m.connCancel = nil
	}
	m.mu.Unlock()

	go m.mustConnect()
}

func boolPtr(b bool) *bool {
	return &b
}
