package anchor

import (
	"strings"
	"unicode"

	"anchor-explorer-sol/internal/logic/coder"
	"anchor-explorer-sol/internal/logic/idl"
)

// ProgramName 返回 IDL 中声明的程序名，无 IDL 时返回 false
func ProgramName(program *idl.Program) (string, bool) {
	if program == nil {
		return "", false
	}
	return program.Name()
}

// InstructionName 解码指令数据并返回指令名，无法解码时返回 false
func InstructionName(data []byte, program *idl.Program) (string, bool) {
	if program == nil {
		return "", false
	}
	decoded, err := coder.NewInstructionCoder(program).Decode(data)
	if err != nil {
		return "", false
	}
	return decoded.Name, true
}

// CamelToTitleCase 将 camelCase / snake_case 名称转为以空格分隔的首字母大写形式：
//
//	initializeUser -> Initialize User
//	create_pool_v2 -> Create Pool V2
//	createATA      -> Create ATA
//
// 与逐个大写字母断词的写法不同：连续大写作为缩写保留，下划线也按分隔符处理（0.30 之后的 IDL 名称是 snake_case）。
func CamelToTitleCase(s string) string {
	if s == "" {
		return s
	}
	if strings.Contains(s, "_") {
		parts := strings.FieldsFunc(s, func(r rune) bool { return r == '_' })
		for i, p := range parts {
			parts[i] = upperFirst(p)
		}
		return strings.Join(parts, " ")
	}

	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s) + 8)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteByte(' ')
			}
		}
		b.WriteRune(r)
	}
	return upperFirst(b.String())
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
