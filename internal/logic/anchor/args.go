package anchor

import (
	"anchor-explorer-sol/internal/logic/coder"
	"anchor-explorer-sol/internal/logic/idl"
	"anchor-explorer-sol/internal/types"
)

// ArgRow 是参数表中的一行
type ArgRow struct {
	Name    string
	Type    string
	Value   string
	Address *types.Pubkey // 参数为 pubkey 时以地址形式展示
}

// MapIxArgsToRows 按 IDL 中参数的声明顺序生成参数行。
// program 用于区分 defined 类型是结构体还是枚举，以给出更准确的类型名。
func MapIxArgsToRows(args []coder.Arg, def *idl.Instruction, program *idl.Program) []ArgRow {
	if def == nil || len(def.Args) == 0 {
		return nil
	}
	byName := make(map[string]*coder.Arg, len(args))
	for i := range args {
		byName[args[i].Name] = &args[i]
	}

	rows := make([]ArgRow, 0, len(def.Args))
	for _, field := range def.Args {
		arg, ok := byName[field.Name]
		if !ok {
			continue
		}
		row := ArgRow{
			Name:  field.Name,
			Type:  typeDisplayName(field.Type, program),
			Value: arg.Value.String(),
		}
		if arg.Value.Kind == coder.ValuePubkey {
			pk := arg.Value.Pubkey
			row.Address = &pk
		}
		rows = append(rows, row)
	}
	return rows
}

func typeDisplayName(t *idl.Type, program *idl.Program) string {
	if t == nil || t.Kind != idl.KindDefined || program == nil {
		return t.String()
	}
	td, ok := program.TypeDef(t.Defined)
	if !ok {
		return t.String()
	}
	switch td.Kind {
	case idl.TypeDefEnum:
		return t.Defined + " (enum)"
	case idl.TypeDefAlias:
		return t.Defined + " = " + td.Alias.String()
	}
	return t.Defined
}
