package render

import (
	"io"
	"strconv"
	"strings"

	"anchor-explorer-sol/internal/logic/card"

	"github.com/charmbracelet/lipgloss"
)

const cellGap = "  "

// TextRenderer 用 lipgloss 把每张卡片画成带边框的三列表格，inner 卡片缩进嵌套在父卡片下方
type TextRenderer struct{}

type textStyles struct {
	title     lipgloss.Style
	ok        lipgloss.Style
	failed    lipgloss.Style
	header    lipgloss.Style
	badge     lipgloss.Style
	muted     lipgloss.Style
	box       lipgloss.Style
	innerWrap lipgloss.Style
	base      lipgloss.Style
}

func newTextStyles(r *lipgloss.Renderer) textStyles {
	return textStyles{
		title:     r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		ok:        r.NewStyle().Foreground(lipgloss.Color("10")),
		failed:    r.NewStyle().Foreground(lipgloss.Color("9")),
		header:    r.NewStyle().Bold(true).Faint(true),
		badge:     r.NewStyle().Foreground(lipgloss.Color("11")),
		muted:     r.NewStyle().Faint(true),
		box:       r.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1),
		innerWrap: r.NewStyle().MarginLeft(2),
		base:      r.NewStyle(),
	}
}

func (t TextRenderer) Render(w io.Writer, cards []*card.Card) error {
	styles := newTextStyles(lipgloss.NewRenderer(w))
	for _, c := range cards {
		if _, err := io.WriteString(w, renderCard(styles, c)+"\n"); err != nil {
			return err
		}
	}
	return nil
}

func renderCard(s textStyles, c *card.Card) string {
	head := s.title.Render(cardIndex(c)+" "+c.Title) + cellGap + resultBadge(s, c.Err)
	lines := []string{head}
	if c.Signature != "" {
		lines = append(lines, s.muted.Render(c.Signature))
	}
	lines = append(lines, renderRows(s, c.Rows)...)

	out := s.box.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
	for _, inner := range c.InnerCards {
		out = lipgloss.JoinVertical(lipgloss.Left, out, s.innerWrap.Render(renderCard(s, inner)))
	}
	return out
}

// cardIndex 主指令显示 #1，inner 指令显示 #1.2
func cardIndex(c *card.Card) string {
	idx := "#" + strconv.Itoa(c.Index+1)
	if c.ChildIndex != nil {
		idx += "." + strconv.Itoa(*c.ChildIndex+1)
	}
	return idx
}

func resultBadge(s textStyles, err string) string {
	if err == "" {
		return s.ok.Render("Success")
	}
	return s.failed.Render("Error: " + err)
}

func cellText(s textStyles, cell *card.Cell) string {
	text := cell.Display()
	if len(cell.Badges) == 0 {
		return text
	}
	badges := make([]string, 0, len(cell.Badges))
	for _, b := range cell.Badges {
		badges = append(badges, s.badge.Render("["+b+"]"))
	}
	return text + " " + strings.Join(badges, " ")
}

// columnWidths 单列单元格决定各列宽度，跨列单元格超宽时把差额补到最后一列
func columnWidths(s textStyles, rows []card.Row) []int {
	n := 0
	for _, row := range rows {
		span := 0
		for i := range row.Cells {
			span += row.Cells[i].Span()
		}
		n = max(n, span)
	}
	widths := make([]int, n)
	for _, row := range rows {
		col := 0
		for i := range row.Cells {
			cell := &row.Cells[i]
			if cell.Span() == 1 && col < n {
				widths[col] = max(widths[col], lipgloss.Width(cellText(s, cell)))
			}
			col += cell.Span()
		}
	}
	for _, row := range rows {
		col := 0
		for i := range row.Cells {
			cell := &row.Cells[i]
			span := cell.Span()
			if span > 1 && col+span <= n {
				need := lipgloss.Width(cellText(s, cell))
				if have := spanWidth(widths[col : col+span]); have < need {
					widths[col+span-1] += need - have
				}
			}
			col += span
		}
	}
	return widths
}

func spanWidth(widths []int) int {
	total := 0
	for _, w := range widths {
		total += w
	}
	return total + len(cellGap)*(len(widths)-1)
}

func renderRows(s textStyles, rows []card.Row) []string {
	widths := columnWidths(s, rows)
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		parts := make([]string, 0, len(row.Cells))
		col := 0
		for i := range row.Cells {
			cell := &row.Cells[i]
			span := cell.Span()
			if col+span > len(widths) {
				break
			}
			style := s.base
			if row.Separator {
				style = s.header
			}
			style = style.Width(spanWidth(widths[col : col+span]))
			switch {
			case cell.Centered:
				style = style.Align(lipgloss.Center)
			case cell.AlignRight:
				style = style.Align(lipgloss.Right)
			}
			parts = append(parts, style.Render(cellText(s, cell)))
			col += span
		}
		lines = append(lines, strings.Join(parts, cellGap))
	}
	return lines
}
