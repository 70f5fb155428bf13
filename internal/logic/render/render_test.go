package render

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"anchor-explorer-sol/internal/logic/card"
	"anchor-explorer-sol/internal/types"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCards() []*card.Card {
	child := 0
	inner := &card.Card{
		Title:      "Unknown Program: Unknown Instruction",
		ProgramID:  types.Pubkey{2},
		Index:      0,
		ChildIndex: &child,
		Rows: []card.Row{{
			Key: "data",
			Cells: []card.Cell{
				{Text: "Instruction Data (Hex)"},
				{Text: "abcd", ColSpan: 2, AlignRight: true},
			},
		}},
	}
	return []*card.Card{{
		Title:     "Vault: Deposit",
		ProgramID: types.Pubkey{1},
		Index:     0,
		Signature: "5sig",
		Rows: []card.Row{
			{Key: "program", Cells: []card.Cell{
				{Text: "Program"},
				{ColSpan: 2, AlignRight: true, Address: &card.AddressRef{Pubkey: types.Pubkey{1}, OverrideText: "vault"}},
			}},
			{Key: "accounts-header", Separator: true, Cells: []card.Cell{
				{Text: "Account Name"},
				{Text: "Address", ColSpan: 2, AlignRight: true},
			}},
			{Key: "0", Cells: []card.Cell{
				{Text: "Owner", Badges: []string{card.BadgeWritable, card.BadgeSigner}},
				{ColSpan: 2, AlignRight: true, Address: &card.AddressRef{Pubkey: types.Pubkey{3}}},
			}},
			{Key: "args-header", Separator: true, Cells: []card.Cell{
				{Text: "Argument Name"}, {Text: "Type"}, {Text: "Value", AlignRight: true},
			}},
			{Key: "arg-amount", Cells: []card.Cell{
				{Text: "amount"}, {Text: "u64"}, {Text: "500", AlignRight: true},
			}},
		},
		InnerCards: []*card.Card{inner},
	}, {
		Title: "Vault: Close",
		Index: 1,
		Err:   "custom program error: 0x1771",
		Rows: []card.Row{{Key: "failed", Cells: []card.Cell{
			{Text: card.FailedToDecode, ColSpan: 3, Centered: true},
		}}},
	}}
}

func TestTextRenderer(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, TextRenderer{}.Render(&buf, sampleCards()))
	out := buf.String()

	for _, want := range []string{
		"#1 Vault: Deposit",
		"Success",
		"5sig",
		"Owner [Writable] [Signer]",
		types.Pubkey{3}.String(),
		"vault",
		"amount",
		"500",
		"#1.1 Unknown Program: Unknown Instruction",
		"abcd",
		"#2 Vault: Close",
		"Error: custom program error: 0x1771",
		card.FailedToDecode,
	} {
		assert.Contains(t, out, want)
	}

	// inner 卡片跟在父卡片之后
	assert.Less(t, strings.Index(out, "#1 Vault"), strings.Index(out, "#1.1 "))
	assert.Less(t, strings.Index(out, "#1.1 "), strings.Index(out, "#2 Vault"))
}

func TestColumnWidths(t *testing.T) {
	s := newTextStyles(lipgloss.DefaultRenderer())
	rows := []card.Row{
		{Cells: []card.Cell{{Text: "ab"}, {Text: "abcd"}, {Text: "x"}}},
		{Cells: []card.Cell{{Text: "abc"}, {Text: strings.Repeat("z", 20), ColSpan: 2}}},
	}
	widths := columnWidths(s, rows)
	require.Len(t, widths, 3)
	assert.Equal(t, 3, widths[0])
	assert.Equal(t, 4, widths[1])
	// 跨列单元格需要 20，已有 4 + 1 + 间隔 2，差额补到最后一列
	assert.Equal(t, 20, spanWidth(widths[1:3]))
}

func TestJSONRenderer(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSONRenderer{}.Render(&buf, sampleCards()))

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "Vault: Deposit", decoded[0]["title"])
	assert.Equal(t, types.Pubkey{1}.String(), decoded[0]["programId"])
	assert.Len(t, decoded[0]["rows"], 5)
	assert.Len(t, decoded[0]["innerCards"], 1)
	assert.NotContains(t, decoded[0], "err")
	assert.Equal(t, "custom program error: 0x1771", decoded[1]["err"])

	buf.Reset()
	require.NoError(t, JSONRenderer{}.Render(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestNew(t *testing.T) {
	r, err := New("")
	require.NoError(t, err)
	assert.IsType(t, TextRenderer{}, r)

	r, err = New(FormatJSON)
	require.NoError(t, err)
	assert.IsType(t, JSONRenderer{}, r)

	_, err = New("yaml")
	assert.Error(t, err)
}
