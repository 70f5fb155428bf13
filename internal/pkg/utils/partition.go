package utils

// PartitionHashBytes 从 32 字节公钥中选取 4 字节构造 uint32 并模 mod，用于 Kafka 分区选择。
// 公钥本身近似均匀分布，无需再做哈希；长度不足 32 或 mod <= 1 时返回 0。
func PartitionHashBytes(b []byte, mod uint32) uint32 {
	if len(b) < 32 || mod <= 1 {
		return 0
	}
	if mod&(mod-1) == 0 {
		return uint32(b[31]) & (mod - 1) // 2 的幂：低位掩码
	}
	hash := uint32(b[7])<<24 | uint32(b[15])<<16 | uint32(b[23])<<8 | uint32(b[31])
	return hash % mod
}
