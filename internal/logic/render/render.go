package render

import (
	"encoding/json"
	"fmt"
	"io"

	"anchor-explorer-sol/internal/logic/card"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

// Renderer 将卡片输出到 w
type Renderer interface {
	Render(w io.Writer, cards []*card.Card) error
}

// New 按格式名创建 Renderer
func New(format string) (Renderer, error) {
	switch format {
	case "", FormatText:
		return TextRenderer{}, nil
	case FormatJSON:
		return JSONRenderer{Indent: "  "}, nil
	}
	return nil, fmt.Errorf("unknown output format %q", format)
}

// JSONRenderer 输出卡片数组，行/单元格结构与页面表格一致
type JSONRenderer struct {
	Indent string
}

func (r JSONRenderer) Render(w io.Writer, cards []*card.Card) error {
	if cards == nil {
		cards = []*card.Card{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", r.Indent)
	return enc.Encode(cards)
}
