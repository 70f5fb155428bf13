package card

import (
	"encoding/hex"
	"strconv"

	"anchor-explorer-sol/internal/logic/domain"
)

// BuildUnknown 构造没有 IDL 的程序的通用卡片：原始账户列表 + 十六进制指令数据
func BuildUnknown(props Props, ix *domain.Instruction, detail *domain.TxDetail) *Card {
	sources := detail.AccountSources()
	rows := make([]Row, 0, len(ix.Keys)+2)

	rows = append(rows, Row{
		Key: "program",
		Cells: []Cell{
			{Text: "Program"},
			{
				ColSpan:    columnCount - 1,
				AlignRight: true,
				Address:    &AddressRef{Pubkey: ix.ProgramID, Link: true, AlignRight: true},
			},
		},
	})
	for keyIndex, meta := range ix.Keys {
		var badges []string
		if meta.IsWritable {
			badges = append(badges, BadgeWritable)
		}
		if meta.IsSigner {
			badges = append(badges, BadgeSigner)
		}
		if sources[meta.Pubkey.String()] == domain.SourceLookupTable {
			badges = append(badges, BadgeLookupTable)
		}
		rows = append(rows, Row{
			Key: strconv.Itoa(keyIndex),
			Cells: []Cell{
				{Text: "Account #" + strconv.Itoa(keyIndex+1), Badges: badges},
				{
					ColSpan:    columnCount - 1,
					AlignRight: true,
					Address:    &AddressRef{Pubkey: meta.Pubkey, Link: true, AlignRight: true},
				},
			},
		})
	}
	rows = append(rows, Row{
		Key: "data",
		Cells: []Cell{
			{Text: "Instruction Data (Hex)"},
			{Text: hex.EncodeToString(ix.Data), ColSpan: columnCount - 1, AlignRight: true},
		},
	})

	return &Card{
		Title:      UnknownProgram + ": " + UnknownInstruction,
		ProgramID:  ix.ProgramID,
		Index:      props.Index,
		ChildIndex: props.ChildIndex,
		Signature:  props.Signature,
		Err:        props.Err,
		Rows:       rows,
		InnerCards: props.InnerCards,
	}
}
