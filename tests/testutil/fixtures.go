package testutil

import (
	"time"
)

// 测试数据固件
//
// 提供测试中常用的常量与载荷构造器，确保测试一致性。

const (
	// DefaultTestTimeout 默认等待超时
	//
	// 内存管道与本机 TCP 场景下远超实际需要，仅用于兜底防止测试挂死。
	DefaultTestTimeout = 10 * time.Second

	// DefaultBlockSize 默认测试数据块大小
	DefaultBlockSize = 4 * 1024
)

// MakeBlock 构造确定性的测试载荷
//
// 内容由 seed 推导，相同入参产生相同字节序列，
// 便于接收端校验数据完整性。
func MakeBlock(seed int, size int) []byte {
	block := make([]byte, size)
	for i := range block {
		block[i] = byte((seed*31 + i) % 251)
	}
	return block
}
