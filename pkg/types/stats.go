package types

import "time"

// ============================================================================
//                              ChainStats - 数据链统计
// ============================================================================

// ChainStats 单条缓冲链的快照统计
type ChainStats struct {
	// Channel 所属通道
	Channel ChannelID

	// Blocks 数据块数量
	Blocks int

	// Bytes 载荷总字节数
	Bytes uint64

	// Completed 链是否已完成（对应通道 Closed）
	Completed bool

	// Failed 链是否已失败
	Failed bool
}

// ============================================================================
//                              BandwidthSnapshot - 带宽统计
// ============================================================================

// BandwidthSnapshot 某一方向（或某一对端）的流量快照
type BandwidthSnapshot struct {
	// BytesSent 发送字节数
	BytesSent uint64

	// BytesRecv 接收字节数
	BytesRecv uint64

	// BlocksSent 发送数据块数
	BlocksSent uint64

	// BlocksRecv 接收数据块数
	BlocksRecv uint64

	// RateOut 发送速率（字节/秒，EWMA 估计）
	RateOut float64

	// RateIn 接收速率（字节/秒，EWMA 估计）
	RateIn float64
}

// TotalBytes 返回总传输字节数
func (s BandwidthSnapshot) TotalBytes() uint64 {
	return s.BytesSent + s.BytesRecv
}

// ============================================================================
//                              ExchangeStats - 交换层统计
// ============================================================================

// ExchangeStats 多路复用器整体快照
type ExchangeStats struct {
	// StartedAt 连接建立时间
	StartedAt time.Time

	// ChannelsOpen 当前开放的通道数
	ChannelsOpen int

	// ChannelsClosed 已正常关闭的通道数
	ChannelsClosed int

	// ChannelsFailed 已失败的通道数
	ChannelsFailed int

	// Bandwidth 总流量快照
	Bandwidth BandwidthSnapshot

	// Degraded 是否已降级（至少一个对端失联）
	Degraded bool
}

// Uptime 返回连接存续时间
func (s ExchangeStats) Uptime() time.Duration {
	if s.StartedAt.IsZero() {
		return 0
	}
	return time.Since(s.StartedAt)
}
