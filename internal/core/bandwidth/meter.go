package bandwidth

import (
	"math"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/flowmesh/go-flowmesh/pkg/types"
)

// ============================================================================
//                              流量计量器
// ============================================================================

// EWMA 参数
const (
	// alpha 是 EWMA 的平滑因子，值越大对新数据越敏感
	alpha = 0.25

	// tickInterval 是速率更新间隔
	tickInterval = time.Second
)

// Meter 流量计量器
//
// 累计字节数与数据块数，并以指数加权移动平均 (EWMA)
// 估计实时字节速率。所有操作都是线程安全的。
type Meter struct {
	// 累计量
	bytes  uint64
	blocks uint64

	// EWMA 速率计算
	rateMu    sync.Mutex
	rate      float64
	lastTick  time.Time
	lastBytes uint64

	// 上次活动时间
	lastActive atomic.Value // time.Time
}

// NewMeter 创建新的计量器
func NewMeter() *Meter {
	m := &Meter{
		lastTick: time.Now(),
	}
	m.lastActive.Store(time.Now())
	return m
}

// Mark 记录一个 n 字节的数据块
func (m *Meter) Mark(n uint64) {
	atomic.AddUint64(&m.bytes, n)
	atomic.AddUint64(&m.blocks, 1)
	m.lastActive.Store(time.Now())
	m.updateRate()
}

// updateRate 更新速率估计
func (m *Meter) updateRate() {
	m.rateMu.Lock()
	defer m.rateMu.Unlock()

	now := time.Now()
	elapsed := now.Sub(m.lastTick)

	// 只有经过足够时间才更新
	if elapsed < tickInterval {
		return
	}

	// 这段时间内的字节数换算成瞬时速率
	total := atomic.LoadUint64(&m.bytes)
	instantRate := float64(total-m.lastBytes) / elapsed.Seconds()

	// 使用 EWMA 更新速率
	if m.rate == 0 {
		m.rate = instantRate
	} else {
		m.rate = alpha*instantRate + (1-alpha)*m.rate
	}

	m.lastTick = now
	m.lastBytes = total
}

// Snapshot 获取统计快照
func (m *Meter) Snapshot() MeterSnapshot {
	m.rateMu.Lock()
	rate := m.rate
	m.rateMu.Unlock()

	return MeterSnapshot{
		Bytes:  atomic.LoadUint64(&m.bytes),
		Blocks: atomic.LoadUint64(&m.blocks),
		Rate:   rate,
	}
}

// Bytes 获取累计字节数
func (m *Meter) Bytes() uint64 {
	return atomic.LoadUint64(&m.bytes)
}

// Blocks 获取累计数据块数
func (m *Meter) Blocks() uint64 {
	return atomic.LoadUint64(&m.blocks)
}

// LastActive 获取上次活动时间
func (m *Meter) LastActive() time.Time {
	return m.lastActive.Load().(time.Time)
}

// Reset 重置计量器
func (m *Meter) Reset() {
	atomic.StoreUint64(&m.bytes, 0)
	atomic.StoreUint64(&m.blocks, 0)

	m.rateMu.Lock()
	m.rate = 0
	m.lastTick = time.Now()
	m.lastBytes = 0
	m.rateMu.Unlock()

	m.lastActive.Store(time.Now())
}

// MeterSnapshot 计量器快照
type MeterSnapshot struct {
	// Bytes 累计字节数
	Bytes uint64

	// Blocks 累计数据块数
	Blocks uint64

	// Rate 字节速率 (bytes/sec)
	Rate float64
}

// ============================================================================
//                              计量器注册表
// ============================================================================

// MeterRegistry 按对端序号索引的计量器集合
type MeterRegistry struct {
	meters sync.Map // map[types.Rank]*Meter
}

// Get 获取或创建计量器
func (r *MeterRegistry) Get(peer types.Rank) *Meter {
	if m, ok := r.meters.Load(peer); ok {
		return m.(*Meter)
	}

	newMeter := NewMeter()
	actual, loaded := r.meters.LoadOrStore(peer, newMeter)
	if loaded {
		return actual.(*Meter)
	}
	return newMeter
}

// Load 加载已存在的计量器，不创建新的
func (r *MeterRegistry) Load(peer types.Rank) (*Meter, bool) {
	m, ok := r.meters.Load(peer)
	if !ok {
		return nil, false
	}
	return m.(*Meter), true
}

// ForEach 遍历所有计量器
func (r *MeterRegistry) ForEach(fn func(peer types.Rank, meter *Meter)) {
	r.meters.Range(func(k, v interface{}) bool {
		fn(k.(types.Rank), v.(*Meter))
		return true
	})
}

// Clear 清除所有计量器
func (r *MeterRegistry) Clear() {
	r.meters.Range(func(k, _ interface{}) bool {
		r.meters.Delete(k)
		return true
	})
}

// Count 返回计量器数量
func (r *MeterRegistry) Count() int {
	count := 0
	r.meters.Range(func(_, _ interface{}) bool {
		count++
		return true
	})
	return count
}

// ============================================================================
//                              辅助函数
// ============================================================================

// FormatBytes 格式化字节数为人类可读格式
func FormatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return formatValue(float64(bytes), "B")
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return formatValue(float64(bytes)/float64(div), "KMGTPE"[exp:exp+1]+"B")
}

// FormatRate 格式化速率为人类可读格式
func FormatRate(bytesPerSec float64) string {
	const unit = 1024
	if bytesPerSec < unit {
		return formatValue(bytesPerSec, "B/s")
	}
	div, exp := float64(unit), 0
	for n := bytesPerSec / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return formatValue(bytesPerSec/div, "KMGTPE"[exp:exp+1]+"B/s")
}

func formatValue(val float64, suffix string) string {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return "0 " + suffix
	}
	switch {
	case val < 10:
		return strconvFloat(val, 2) + " " + suffix
	case val < 100:
		return strconvFloat(val, 1) + " " + suffix
	default:
		return strconvFloat(val, 0) + " " + suffix
	}
}

func strconvFloat(val float64, precision int) string {
	return strconv.FormatFloat(val, 'f', precision, 64)
}
