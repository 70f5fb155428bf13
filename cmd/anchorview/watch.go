package main

import (
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"anchor-explorer-sol/internal/logic/stream"
	"anchor-explorer-sol/internal/pkg/logger"
	"anchor-explorer-sol/internal/service"
	"anchor-explorer-sol/internal/svc"
	"anchor-explorer-sol/internal/types"

	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"
	"github.com/spf13/cobra"
	zerosvc "github.com/zeromicro/go-zero/core/service"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream blocks over gRPC and publish Anchor cards to Kafka.",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := loadConfig(cmd, false)
		if len(c.Watch.Programs) == 0 {
			return errors.New("watch.programs is empty")
		}
		programs := make([]types.Pubkey, 0, len(c.Watch.Programs))
		for _, p := range c.Watch.Programs {
			pk, err := types.TryPubkeyFromBase58(p)
			if err != nil {
				return err
			}
			programs = append(programs, pk)
		}

		sc, err := svc.NewServiceContext(c)
		if err != nil {
			return err
		}
		defer sc.Close()
		if err := sc.InitWatch(); err != nil {
			return err
		}

		blockChan := make(chan *pb.SubscribeUpdateBlock, c.Watch.BlockChanSize)

		sg := zerosvc.NewServiceGroup()
		defer sg.Stop()

		var checker *stream.SlotChecker
		if c.Watch.SlotCheck {
			checker = stream.NewSlotChecker(c.Rpc.Endpoint)
			sg.Add(checker)
		}
		sg.Add(stream.NewBlockProcessor(sc, programs, checker, blockChan))

		if c.Idl.OnChain && c.Idl.RefreshIntervalSec > 0 {
			rpcTimeout := time.Duration(c.TimeConf.RpcTimeoutMs) * time.Millisecond
			sg.Add(service.NewIdlSyncService(sc.Registry, programs, c.Idl.RefreshInterval(), rpcTimeout))
		}

		grpcService, err := stream.NewGrpcStreamManager(c.Grpc, c.Watch.Programs, blockChan)
		if err != nil {
			return err
		}
		sg.Add(grpcService)

		logger.Infof("[watch] starting, %d program(s)", len(programs))
		go sg.Start()

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig

		logger.Infof("[watch] shutting down services...")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
