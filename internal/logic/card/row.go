package card

import "anchor-explorer-sol/internal/types"

// 表格列数：名称 / 类型 / 值
const columnCount = 3

const (
	BadgeWritable    = "Writable"
	BadgeSigner      = "Signer"
	BadgeLookupTable = "Lookup Table"
	BadgePda         = "PDA"
)

// AddressRef 对应页面中的地址组件：地址 + 可选的覆盖文本
type AddressRef struct {
	Pubkey       types.Pubkey `json:"pubkey"`
	OverrideText string       `json:"overrideText,omitempty"`
	Link         bool         `json:"link"`
	Raw          bool         `json:"raw"`
	AlignRight   bool         `json:"alignRight"`
}

// Text 返回地址组件展示的文本
func (a *AddressRef) Text() string {
	if a.OverrideText != "" {
		return a.OverrideText
	}
	return a.Pubkey.String()
}

// Cell 表示一个单元格
type Cell struct {
	Text       string      `json:"text,omitempty"`
	ColSpan    int         `json:"colSpan,omitempty"`
	AlignRight bool        `json:"alignRight,omitempty"`
	Centered   bool        `json:"centered,omitempty"`
	Badges     []string    `json:"badges,omitempty"`
	Address    *AddressRef `json:"address,omitempty"`
}

// Display 返回单元格最终展示文本（地址单元格优先取地址文本）
func (c *Cell) Display() string {
	if c.Address != nil {
		return c.Address.Text()
	}
	return c.Text
}

// Span 返回单元格占用的列数
func (c *Cell) Span() int {
	if c.ColSpan <= 0 {
		return 1
	}
	return c.ColSpan
}

// Row 表示一行；Separator 对应表头分隔样式
type Row struct {
	Key       string `json:"key"`
	Separator bool   `json:"separator,omitempty"`
	Cells     []Cell `json:"cells"`
}

// HasBadge 判断该行第一列是否带有指定 badge
func (r *Row) HasBadge(badge string) bool {
	if len(r.Cells) == 0 {
		return false
	}
	for _, b := range r.Cells[0].Badges {
		if b == badge {
			return true
		}
	}
	return false
}
