package progress

// SlotStatus 表示 slot 在 watch 流水线中的处理状态
type SlotStatus int

const (
	SlotUnknown   SlotStatus = 0 // Redis 中不存在
	SlotProcessed SlotStatus = 1 // 卡片已全部投递
	SlotInvalid   SlotStatus = 2 // 结构错误，已跳过
	SlotPending   SlotStatus = 3 // 正在处理
)

func (s SlotStatus) String() string {
	switch s {
	case SlotProcessed:
		return "processed"
	case SlotInvalid:
		return "invalid"
	case SlotPending:
		return "pending"
	default:
		return "unknown"
	}
}

// Store 记录 slot 处理进度，重连后重复推送的 block 据此跳过
type Store interface {
	GetSlotStatus(slot uint64) (SlotStatus, error)
	MarkSlotStatus(slot uint64, status SlotStatus) error
}

// NopStore 不记录进度，未配置 Redis 时使用
type NopStore struct{}

func (NopStore) GetSlotStatus(uint64) (SlotStatus, error) { return SlotUnknown, nil }
func (NopStore) MarkSlotStatus(uint64, SlotStatus) error { return nil }
