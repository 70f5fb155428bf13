package main

import (
	"context"
	"os"
	"time"

	"anchor-explorer-sol/internal/logic/render"
	"anchor-explorer-sol/internal/svc"

	"github.com/spf13/cobra"
)

var txCmd = &cobra.Command{
	Use:   "tx <signature>",
	Short: "Render every instruction of a transaction.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := loadConfig(cmd, true)
		format, _ := cmd.Flags().GetString("format")
		renderer, err := render.New(format)
		if err != nil {
			return err
		}

		sc, err := svc.NewServiceContext(c)
		if err != nil {
			return err
		}
		defer sc.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(c.TimeConf.RpcTimeoutMs)*time.Millisecond)
		defer cancel()

		cards, err := sc.Explorer.RenderTransaction(ctx, args[0])
		if err != nil {
			return err
		}
		return renderer.Render(os.Stdout, cards)
	},
}

func init() {
	rootCmd.AddCommand(txCmd)
}
