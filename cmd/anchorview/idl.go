package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"anchor-explorer-sol/internal/logic/idl"
	"anchor-explorer-sol/internal/types"

	"github.com/spf13/cobra"
)

var idlCmd = &cobra.Command{
	Use:   "idl",
	Short: "Inspect Anchor IDLs.",
}

var idlFetchCmd = &cobra.Command{
	Use:   "fetch <programId>",
	Short: "Fetch the IDL a program published on chain.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := loadConfig(cmd, true)
		out, _ := cmd.Flags().GetString("out")

		programID, err := types.TryPubkeyFromBase58(args[0])
		if err != nil {
			return fmt.Errorf("invalid program id: %w", err)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(c.TimeConf.RpcTimeoutMs)*time.Millisecond)
		defer cancel()

		_, raw, err := idl.FetchIdl(ctx, idl.NewRpcAccountFetcher(c.Rpc.Endpoint), programID)
		if raw == nil && err != nil {
			return err
		}
		if err != nil {
			// JSON 能解压但不是可用的 IDL 时仍输出原文
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}

		var pretty bytes.Buffer
		if json.Indent(&pretty, raw, "", "  ") != nil {
			pretty.Reset()
			pretty.Write(raw)
		}
		pretty.WriteByte('\n')

		if out != "" {
			return os.WriteFile(out, pretty.Bytes(), 0o644)
		}
		_, err = os.Stdout.Write(pretty.Bytes())
		return err
	},
}

var idlAddressCmd = &cobra.Command{
	Use:   "address <programId>",
	Short: "Print the address of a program's on-chain IDL account.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		programID, err := types.TryPubkeyFromBase58(args[0])
		if err != nil {
			return fmt.Errorf("invalid program id: %w", err)
		}
		addr, err := idl.IdlAddress(programID)
		if err != nil {
			return err
		}
		fmt.Println(addr)
		return nil
	},
}

func init() {
	idlFetchCmd.Flags().StringP("out", "o", "", "write the IDL to a file instead of stdout")
	idlCmd.AddCommand(idlFetchCmd, idlAddressCmd)
	rootCmd.AddCommand(idlCmd)
}
