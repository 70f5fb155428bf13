package main

import (
	"os"
	"runtime/debug"

	"anchor-explorer-sol/internal/config"
	"anchor-explorer-sol/internal/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/zeromicro/go-zero/core/conf"
	"github.com/zeromicro/go-zero/core/logx"
)

var rootCmd = &cobra.Command{
	Use:           "anchorview",
	Short:         "Decode and render Anchor program instructions.",
	Long:          "Decode Solana instructions against Anchor IDLs and render them as explorer-style instruction cards.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "f", "etc/anchorview.yaml", "the config file")
	rootCmd.PersistentFlags().String("format", "text", "output format: text or json")
}

// loadConfig 配置文件不存在时使用默认值，便于不带配置直接解码
func loadConfig(cmd *cobra.Command, stderrLog bool) config.Config {
	var c config.Config
	path, _ := cmd.Flags().GetString("config")
	if _, err := os.Stat(path); err == nil {
		conf.MustLoad(path, &c)
	} else if err := conf.FillDefault(&c); err != nil {
		logx.Must(err)
	}

	opt := c.LogConf.ToLogOption()
	opt.Stderr = stderrLog
	if stderrLog {
		opt.LogDir = "" // 一次性命令不落盘
	}
	logger.MustInit(opt)
	return c
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			logx.Errorf("panic: %+v\nstack: %s", r, debug.Stack())
			os.Exit(2)
		}
	}()
	defer logger.Sync()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
