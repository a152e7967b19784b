package bandwidth

import (
	"time"

	"github.com/flowmesh/go-flowmesh/pkg/types"
)

// ============================================================================
//                              带宽计数器
// ============================================================================

// Counter 数据交换层带宽计数器
//
// 统计经网络收发的数据块（环回流量不计入）。
// 总量始终统计，按对端细分由配置开关控制。
type Counter struct {
	config Config

	// 总量计量器
	totalIn  *Meter
	totalOut *Meter

	// 按对端的计量器
	peerIn  MeterRegistry
	peerOut MeterRegistry
}

// NewCounter 创建带宽计数器
func NewCounter(config Config) *Counter {
	return &Counter{
		config:   config,
		totalIn:  NewMeter(),
		totalOut: NewMeter(),
	}
}

// ==================== 记录流量 ====================

// LogSentBlock 记录向对端发出的一个数据块
func (c *Counter) LogSentBlock(peer types.Rank, size int) {
	if !c.config.Enabled || size <= 0 {
		return
	}
	c.totalOut.Mark(uint64(size))
	if c.config.TrackByPeer {
		c.peerOut.Get(peer).Mark(uint64(size))
	}
}

// LogRecvBlock 记录从对端收到的一个数据块
func (c *Counter) LogRecvBlock(peer types.Rank, size int) {
	if !c.config.Enabled || size <= 0 {
		return
	}
	c.totalIn.Mark(uint64(size))
	if c.config.TrackByPeer {
		c.peerIn.Get(peer).Mark(uint64(size))
	}
}

// ==================== 获取统计 ====================

// Totals 获取总带宽快照
func (c *Counter) Totals() types.BandwidthSnapshot {
	inSnap := c.totalIn.Snapshot()
	outSnap := c.totalOut.Snapshot()

	return types.BandwidthSnapshot{
		BytesSent:  outSnap.Bytes,
		BytesRecv:  inSnap.Bytes,
		BlocksSent: outSnap.Blocks,
		BlocksRecv: inSnap.Blocks,
		RateOut:    outSnap.Rate,
		RateIn:     inSnap.Rate,
	}
}

// ForPeer 获取指定对端的带宽快照
//
// 需要开启 TrackByPeer，否则恒为零值。
func (c *Counter) ForPeer(peer types.Rank) types.BandwidthSnapshot {
	var stats types.BandwidthSnapshot

	// 使用 Load 而不是 Get，避免创建不存在的条目
	if in, ok := c.peerIn.Load(peer); ok {
		snap := in.Snapshot()
		stats.BytesRecv = snap.Bytes
		stats.BlocksRecv = snap.Blocks
		stats.RateIn = snap.Rate
	}
	if out, ok := c.peerOut.Load(peer); ok {
		snap := out.Snapshot()
		stats.BytesSent = snap.Bytes
		stats.BlocksSent = snap.Blocks
		stats.RateOut = snap.Rate
	}
	return stats
}

// ByPeer 获取全部对端的带宽快照
func (c *Counter) ByPeer() map[types.Rank]types.BandwidthSnapshot {
	peers := make(map[types.Rank]types.BandwidthSnapshot)

	c.peerIn.ForEach(func(peer types.Rank, meter *Meter) {
		snap := meter.Snapshot()
		stat := peers[peer]
		stat.BytesRecv = snap.Bytes
		stat.BlocksRecv = snap.Blocks
		stat.RateIn = snap.Rate
		peers[peer] = stat
	})
	c.peerOut.ForEach(func(peer types.Rank, meter *Meter) {
		snap := meter.Snapshot()
		stat := peers[peer]
		stat.BytesSent = snap.Bytes
		stat.BlocksSent = snap.Blocks
		stat.RateOut = snap.Rate
		peers[peer] = stat
	})
	return peers
}

// LastRecvFrom 获取最近一次从指定对端收到数据的时间
//
// 从未收到数据或未开启 TrackByPeer 时 ok 为 false。
func (c *Counter) LastRecvFrom(peer types.Rank) (time.Time, bool) {
	m, ok := c.peerIn.Load(peer)
	if !ok {
		return time.Time{}, false
	}
	return m.LastActive(), true
}

// ==================== 管理 ====================

// Reset 重置所有统计
func (c *Counter) Reset() {
	c.totalIn.Reset()
	c.totalOut.Reset()
	c.peerIn.Clear()
	c.peerOut.Clear()
}

// PeerCount 返回有流量记录的对端数量
func (c *Counter) PeerCount() int {
	inCount := c.peerIn.Count()
	outCount := c.peerOut.Count()
	if inCount > outCount {
		return inCount
	}
	return outCount
}
