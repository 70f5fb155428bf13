package card

import (
	"bytes"
	"errors"
	"sync"

	"anchor-explorer-sol/internal/logic/anchor"
	"anchor-explorer-sol/internal/logic/coder"
	"anchor-explorer-sol/internal/logic/idl"
)

type ResultKind uint8

const (
	Failed ResultKind = iota
	Decoded
)

var ErrNoProgram = errors.New("no anchor program")

// Result 是一次解码的结果，Kind 为 Decoded 时 Instruction / Definition / Accounts 均有效
type Result struct {
	Kind        ResultKind
	Instruction *coder.Instruction
	Definition  *idl.Instruction
	Accounts    []anchor.Account
	Err         error
}

// DecodeFunc 对 (program, data) 做解码，必须是纯函数
type DecodeFunc func(program *idl.Program, data []byte) Result

// Decode 依次完成：指令解码 → 按名称匹配 IDL 定义 → 解析期望账户；任一步失败即返回 Failed
func Decode(program *idl.Program, data []byte) Result {
	if program == nil {
		return Result{Kind: Failed, Err: ErrNoProgram}
	}
	decoded, err := coder.NewInstructionCoder(program).Decode(data)
	if err != nil {
		return Result{Kind: Failed, Err: err}
	}
	// 失败结果中保留已解码的指令，标题仍可显示指令名
	def, ok := program.InstructionByName(decoded.Name)
	if !ok {
		return Result{Kind: Failed, Instruction: decoded, Err: anchor.ErrInstructionNotFound}
	}
	accounts, err := anchor.AccountsFromInstruction(decoded, program)
	if err != nil {
		return Result{Kind: Failed, Instruction: decoded, Err: err}
	}
	return Result{
		Kind:        Decoded,
		Instruction: decoded,
		Definition:  def,
		Accounts:    accounts,
	}
}

// Memo 缓存最近一次解码结果，只有 program 或 data 变化时才重新解码。
// 每个渲染位置（一条指令卡片）持有一个 Memo。
type Memo struct {
	mu      sync.Mutex
	decode  DecodeFunc
	valid   bool
	program *idl.Program
	data    []byte
	result  Result
}

func NewMemo() *Memo {
	return NewMemoWith(Decode)
}

func NewMemoWith(decode DecodeFunc) *Memo {
	return &Memo{decode: decode}
}

// Get 返回 (program, data) 的解码结果，输入未变化时直接返回缓存
func (m *Memo) Get(program *idl.Program, data []byte) Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.valid && m.program == program && bytes.Equal(m.data, data) {
		return m.result
	}
	m.result = m.decode(program, data)
	m.program = program
	m.data = append(m.data[:0], data...)
	m.valid = true
	return m.result
}
