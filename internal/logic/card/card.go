package card

import (
	"strconv"

	"anchor-explorer-sol/internal/logic/anchor"
	"anchor-explorer-sol/internal/logic/domain"
	"anchor-explorer-sol/internal/logic/idl"
	"anchor-explorer-sol/internal/types"
)

const (
	UnknownProgram     = "Unknown Program"
	UnknownInstruction = "Unknown Instruction"

	FailedToDecode = "Failed to decode account data according to the public Anchor interface"
)

// Card 是一张指令卡片：标题 + 明细行，其余展示字段原样透传
type Card struct {
	Title      string       `json:"title"`
	ProgramID  types.Pubkey `json:"programId"`
	Index      int          `json:"index"`
	ChildIndex *int         `json:"childIndex,omitempty"`
	Signature  string       `json:"signature"`
	Err        string       `json:"err,omitempty"` // 交易执行结果，空表示成功
	Rows       []Row        `json:"rows"`
	InnerCards []*Card      `json:"innerCards,omitempty"`
}

// Props 是卡片容器需要透传的展示参数
type Props struct {
	Index      int
	ChildIndex *int
	Signature  string
	Err        string
	InnerCards []*Card
}

// Title 生成 "<程序名>: <指令名>"，任一名称无法解析时分别退化为占位文本。
// memo 与 Details 共用时只解码一次。
func Title(program *idl.Program, ix *domain.Instruction, memo *Memo) string {
	if memo == nil {
		memo = NewMemo()
	}
	result := memo.Get(program, ix.Data)

	programName, ok := anchor.ProgramName(program)
	if !ok {
		programName = UnknownProgram
	}
	ixName := UnknownInstruction
	if result.Instruction != nil {
		ixName = result.Instruction.Name
	}
	return anchor.CamelToTitleCase(programName) + ": " + anchor.CamelToTitleCase(ixName)
}

// Build 构造 Anchor 指令卡片。detail 为 nil 表示交易详情尚未加载或不存在，
// 此时只是不显示 Lookup Table 标记，账户与参数行照常渲染。
func Build(props Props, ix *domain.Instruction, program *idl.Program, detail *domain.TxDetail, memo *Memo) *Card {
	if memo == nil {
		memo = NewMemo()
	}
	return &Card{
		Title:      Title(program, ix, memo),
		ProgramID:  ix.ProgramID,
		Index:      props.Index,
		ChildIndex: props.ChildIndex,
		Signature:  props.Signature,
		Err:        props.Err,
		Rows:       Details(ix, program, detail, memo),
		InnerCards: props.InnerCards,
	}
}

// Details 生成卡片明细行：
//   - 解码失败：只有一行失败提示
//   - 解码成功：Program 行、账户表头、每个账户一行、（有参数时）参数表头与参数行
func Details(ix *domain.Instruction, program *idl.Program, detail *domain.TxDetail, memo *Memo) []Row {
	if memo == nil {
		memo = NewMemo()
	}
	result := memo.Get(program, ix.Data)
	if result.Kind != Decoded {
		return []Row{failedRow()}
	}
	return decodedRows(ix, program, detail.AccountSources(), result)
}

func failedRow() Row {
	return Row{
		Key: "failed",
		Cells: []Cell{{
			Text:     FailedToDecode,
			ColSpan:  columnCount,
			Centered: true,
		}},
	}
}

func decodedRows(ix *domain.Instruction, program *idl.Program, sources map[string]string, result Result) []Row {
	programName, ok := anchor.ProgramName(program)
	if !ok {
		programName = UnknownProgram
	}

	argRows := anchor.MapIxArgsToRows(result.Instruction.Args, result.Definition, program)
	rows := make([]Row, 0, len(ix.Keys)+len(argRows)+3)

	rows = append(rows, Row{
		Key: "program",
		Cells: []Cell{
			{Text: "Program"},
			{
				ColSpan:    columnCount - 1,
				AlignRight: true,
				Address: &AddressRef{
					Pubkey:       ix.ProgramID,
					OverrideText: programName,
					Link:         true,
					Raw:          true,
					AlignRight:   true,
				},
			},
		},
	})

	rows = append(rows, Row{
		Key:       "accounts-header",
		Separator: true,
		Cells: []Cell{
			{Text: "Account Name"},
			{Text: "Address", ColSpan: columnCount - 1, AlignRight: true},
		},
	})

	expected := result.Accounts
	keys := ix.Pubkeys()
	for keyIndex, meta := range ix.Keys {
		rows = append(rows, Row{
			Key: strconv.Itoa(keyIndex),
			Cells: []Cell{
				{
					Text:   accountLabel(keyIndex, expected),
					Badges: accountBadges(keyIndex, meta, sources, expected, keys, result, ix),
				},
				{
					ColSpan:    columnCount - 1,
					AlignRight: true,
					Address:    &AddressRef{Pubkey: meta.Pubkey, Link: true, AlignRight: true},
				},
			},
		})
	}

	if len(result.Definition.Args) == 0 {
		return rows
	}

	rows = append(rows, Row{
		Key:       "args-header",
		Separator: true,
		Cells: []Cell{
			{Text: "Argument Name"},
			{Text: "Type"},
			{Text: "Value", AlignRight: true},
		},
	})
	for _, arg := range argRows {
		value := Cell{Text: arg.Value, AlignRight: true}
		if arg.Address != nil {
			value.Address = &AddressRef{Pubkey: *arg.Address, Link: true, AlignRight: true}
		}
		rows = append(rows, Row{
			Key:   "arg-" + arg.Name,
			Cells: []Cell{{Text: arg.Name}, {Text: arg.Type}, value},
		})
	}
	return rows
}

// accountLabel 前 len(expected) 个账户使用 IDL 名称，其余按 Remaining Account #n 从 1 编号
func accountLabel(keyIndex int, expected []anchor.Account) string {
	if keyIndex < len(expected) {
		return anchor.CamelToTitleCase(expected[keyIndex].Name)
	}
	return "Remaining Account #" + strconv.Itoa(keyIndex+1-len(expected))
}

func accountBadges(
	keyIndex int,
	meta domain.AccountMeta,
	sources map[string]string,
	expected []anchor.Account,
	keys []types.Pubkey,
	result Result,
	ix *domain.Instruction,
) []string {
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
	if anchor.VerifyPda(keyIndex, expected, keys, result.Instruction.Args, ix.ProgramID) {
		badges = append(badges, BadgePda)
	}
	return badges
}
