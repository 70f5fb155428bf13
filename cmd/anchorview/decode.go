package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"anchor-explorer-sol/internal/logic/card"
	"anchor-explorer-sol/internal/logic/domain"
	"anchor-explorer-sol/internal/logic/explorer"
	"anchor-explorer-sol/internal/logic/idl"
	"anchor-explorer-sol/internal/logic/render"
	"anchor-explorer-sol/internal/logic/txdetail"
	"anchor-explorer-sol/internal/svc"
	"anchor-explorer-sol/internal/types"

	"github.com/mr-tron/base58"
	"github.com/spf13/cobra"
)

var decodeCmd = &cobra.Command{
	Use:   "decode",
	Short: "Decode a single instruction.",
	Long: `Decode a single instruction from its program id, data and accounts.
Accounts are given as <pubkey>[:w][:s] where w marks writable and s marks signer.
Data is base58 or 0x-prefixed hex.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := loadConfig(cmd, true)

		programStr, _ := cmd.Flags().GetString("program")
		idlPath, _ := cmd.Flags().GetString("idl")
		dataStr, _ := cmd.Flags().GetString("data")
		accountStrs, _ := cmd.Flags().GetStringArray("account")
		signature, _ := cmd.Flags().GetString("signature")
		format, _ := cmd.Flags().GetString("format")

		programID, err := types.TryPubkeyFromBase58(programStr)
		if err != nil {
			return fmt.Errorf("invalid --program: %w", err)
		}
		data, err := parseData(dataStr)
		if err != nil {
			return fmt.Errorf("invalid --data: %w", err)
		}
		keys, err := parseAccounts(accountStrs)
		if err != nil {
			return err
		}
		renderer, err := render.New(format)
		if err != nil {
			return err
		}

		var exp *explorer.Explorer
		if idlPath != "" {
			// 显式指定 IDL 时只有给了签名才需要 RPC（用于 Lookup Table 标记）
			parsed, err := idl.ParseFile(idlPath)
			if err != nil {
				return err
			}
			registry := idl.NewRegistry()
			if err := registry.Register(programID, parsed); err != nil {
				return err
			}
			var provider txdetail.Provider
			if signature != "" {
				provider = txdetail.NewRpcProvider(c.Rpc.Endpoint, c.Rpc.Commitment)
			}
			if exp, err = explorer.New(registry, provider); err != nil {
				return err
			}
		} else {
			sc, err := svc.NewServiceContext(c)
			if err != nil {
				return err
			}
			defer sc.Close()
			exp = sc.Explorer
		}

		ix := &domain.Instruction{ProgramID: programID, Keys: keys, Data: data}
		out := exp.RenderInstruction(cmd.Context(), ix, signature)
		return renderer.Render(os.Stdout, []*card.Card{out})
	},
}

func init() {
	decodeCmd.Flags().String("program", "", "program id (base58)")
	decodeCmd.Flags().String("idl", "", "IDL json file; when omitted the configured registry is used")
	decodeCmd.Flags().String("data", "", "instruction data, base58 or 0x-prefixed hex")
	decodeCmd.Flags().StringArray("account", nil, "instruction account <pubkey>[:w][:s], repeatable, in order")
	decodeCmd.Flags().String("signature", "", "transaction signature; its account sources mark lookup-table keys")
	_ = decodeCmd.MarkFlagRequired("program")
	_ = decodeCmd.MarkFlagRequired("data")
	rootCmd.AddCommand(decodeCmd)
}

func parseData(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return hex.DecodeString(s[2:])
	}
	return base58.Decode(s)
}

func parseAccounts(items []string) ([]domain.AccountMeta, error) {
	metas := make([]domain.AccountMeta, 0, len(items))
	for _, item := range items {
		parts := strings.Split(item, ":")
		pk, err := types.TryPubkeyFromBase58(parts[0])
		if err != nil {
			return nil, fmt.Errorf("invalid --account %q: %w", item, err)
		}
		meta := domain.AccountMeta{Pubkey: pk}
		for _, flag := range parts[1:] {
			switch strings.ToLower(flag) {
			case "w":
				meta.IsWritable = true
			case "s":
				meta.IsSigner = true
			case "ws", "sw":
				meta.IsWritable, meta.IsSigner = true, true
			default:
				return nil, fmt.Errorf("invalid --account flag %q in %q", flag, item)
			}
		}
		metas = append(metas, meta)
	}
	return metas, nil
}
