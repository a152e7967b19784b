package mux

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/flowmesh/go-flowmesh/internal/core/bandwidth"
	"github.com/flowmesh/go-flowmesh/internal/core/chain"
	"github.com/flowmesh/go-flowmesh/internal/core/channel"
	"github.com/flowmesh/go-flowmesh/internal/core/emitter"
	"github.com/flowmesh/go-flowmesh/internal/core/wire"
	pkgif "github.com/flowmesh/go-flowmesh/pkg/interfaces"
	"github.com/flowmesh/go-flowmesh/pkg/lib/log"
	"github.com/flowmesh/go-flowmesh/pkg/types"
)

var logger = log.Logger("core/mux")

// 接口实现检查
var _ pkgif.Exchange = (*Multiplexer)(nil)

// ============================================================================
//                              通道多路复用器
// ============================================================================

// Multiplexer 通道多路复用器
//
// 在固定的节点组连接集合上复用任意数量的逻辑通道：
// 出向数据由 OpenChannel 返回的发射器分发，入向数据由每条连接上
// 常驻的头部读取解复用进对应通道的缓冲链。
//
// 全部读取回调与失败回调经调度器的顺序化协程执行；
// 查询方法可从任意协程调用。
type Multiplexer struct {
	cfg        Config
	dispatcher pkgif.Dispatcher
	bwc        *bandwidth.Counter
	bus        pkgif.EventBus
	clk        clock.Clock

	mu          sync.Mutex
	group       pkgif.Group
	size        int
	rank        types.Rank
	channels    map[types.ChannelID]*channel.Channel
	degraded    bool
	failedPeers map[types.Rank]bool
	startedAt   time.Time
	dog         *watchdog

	// 事件发射器，Connect 时按需创建
	evtOpened     pkgif.EventEmitter
	evtClosed     pkgif.EventEmitter
	evtPeerFailed pkgif.EventEmitter

	store *chain.Store

	closedCount atomic.Int64
	failedCount atomic.Int64
}

// Option 多路复用器可选依赖
type Option func(*Multiplexer)

// WithBandwidth 挂接带宽计数器
func WithBandwidth(c *bandwidth.Counter) Option {
	return func(m *Multiplexer) { m.bwc = c }
}

// WithEventBus 挂接事件总线
func WithEventBus(bus pkgif.EventBus) Option {
	return func(m *Multiplexer) { m.bus = bus }
}

// WithClock 替换时钟源，用于测试
func WithClock(clk clock.Clock) Option {
	return func(m *Multiplexer) { m.clk = clk }
}

// New 创建多路复用器
//
// 创建后处于未连接状态，须先 Connect 绑定节点组。
func New(cfg Config, d pkgif.Dispatcher, opts ...Option) *Multiplexer {
	m := &Multiplexer{
		cfg:         cfg,
		dispatcher:  d,
		clk:         clock.New(),
		channels:    make(map[types.ChannelID]*channel.Channel),
		failedPeers: make(map[types.Rank]bool),
		store:       chain.NewStore(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ============================================================================
//                              连接管理
// ============================================================================

// Connect 绑定节点组并启动各对端连接上的读循环
func (m *Multiplexer) Connect(group pkgif.Group) error {
	if group == nil {
		return ErrNilGroup
	}

	m.mu.Lock()
	if m.group != nil {
		m.mu.Unlock()
		return ErrAlreadyConnected
	}
	m.group = group
	m.size = group.Size()
	m.rank = group.Rank()
	m.degraded = false
	m.failedPeers = make(map[types.Rank]bool)
	m.startedAt = m.clk.Now()
	m.setupEventEmittersLocked()

	var dog *watchdog
	if m.cfg.Liveness.Enabled && m.size > 1 {
		dog = newWatchdog(m.clk, m.cfg.Liveness.CheckInterval, m.cfg.Liveness.IdleWarn, m.hasOpenChannels)
		m.dog = dog
	}
	size := m.size
	rank := m.rank
	m.mu.Unlock()

	m.dispatcher.OnFailure(m.onConnFailure)

	// 每条对端连接挂载一次常驻头部读取
	links := 0
	for p := 0; p < size; p++ {
		peer := types.Rank(p)
		conn := group.Connection(peer)
		if conn == nil {
			continue
		}
		if dog != nil {
			dog.touch(peer)
		}
		m.expectHeader(conn)
		links++
	}
	if dog != nil {
		dog.start()
	}

	logger.Info("数据交换层已连接", "rank", rank, "size", size, "links", links)
	return nil
}

// Close 关闭全部对端连接并复位交换层
//
// 未终结的通道以 ErrClosed 失败。已积累的缓冲链保持可读，
// 重新 Connect 后通道 ID 序列继续，不回退。
func (m *Multiplexer) Close() error {
	m.mu.Lock()
	if m.group == nil {
		m.mu.Unlock()
		return nil
	}
	group := m.group
	dog := m.dog
	m.group = nil
	m.dog = nil
	rank := m.rank
	chans := m.snapshotChannelsLocked()
	m.mu.Unlock()

	if dog != nil {
		dog.stop()
	}
	for _, ch := range chans {
		ch.Fail(ErrClosed)
	}
	err := group.Close()

	logger.Info("数据交换层已关闭", "rank", rank)
	return err
}

// onConnFailure 对端连接失败处理，在顺序化协程上执行
//
// 首次失败使交换层进入降级状态：全部未终结通道立即失败，
// 之后创建的通道出生即失败。同一对端的重复失败被忽略。
func (m *Multiplexer) onConnFailure(conn pkgif.Connection, err error) {
	peer := conn.Peer()

	m.mu.Lock()
	if m.group == nil || m.failedPeers[peer] {
		m.mu.Unlock()
		return
	}
	m.failedPeers[peer] = true
	m.degraded = true
	chans := m.snapshotChannelsLocked()
	m.mu.Unlock()

	logger.Error("对端失联，交换层降级", "peer", peer, "err", err)

	failErr := fmt.Errorf("%w: %s: %v", ErrPeerFailed, peer, err)
	for _, ch := range chans {
		ch.Fail(failErr)
	}
	m.publish(types.EvtPeerFailed{
		BaseEvent: types.NewBaseEvent("peer.failed"),
		Peer:      peer,
		Err:       err,
	})
}

// snapshotChannelsLocked 复制当前通道集合，调用方须持有 m.mu
func (m *Multiplexer) snapshotChannelsLocked() []*channel.Channel {
	chans := make([]*channel.Channel, 0, len(m.channels))
	for _, ch := range m.channels {
		chans = append(chans, ch)
	}
	return chans
}

// ============================================================================
//                              入向读循环
// ============================================================================

// expectHeader 在连接上挂载下一次头部读取
//
// 每条连接任意时刻恰好一次未完成的头部读取：初次由 Connect 挂载，
// 之后由通道在消费完一个数据块或结束标记后重新挂载。
func (m *Multiplexer) expectHeader(conn pkgif.Connection) {
	m.dispatcher.AsyncRead(conn, wire.HeaderLen, m.onHeader)
}

// onHeader 头部读取完成回调，在顺序化协程上执行
func (m *Multiplexer) onHeader(conn pkgif.Connection, buf []byte, err error) {
	if err != nil {
		// 连接失败经失败处理器统一上报
		return
	}

	h, perr := wire.ParseBlockHeader(buf, m.cfg.MaxBlockSize)
	if perr != nil {
		// 头部不可信后，该连接上的块边界全部不可信
		logger.Error("头部协议违规", "peer", conn.Peer(), "err", perr)
		m.onConnFailure(conn, fmt.Errorf("%w: %v", ErrProtocol, perr))
		conn.Close()
		return
	}

	m.touchPeer(conn.Peer())
	if m.bwc != nil && !h.IsEnd() {
		m.bwc.LogRecvBlock(conn.Peer(), int(h.Length))
	}

	m.ensureChannel(h.Channel).PickupBlock(conn, h)
}

// ensureChannel 获取或创建通道对象
//
// 本地打开与远端首个头部到达共用此路径，先到者创建。
// 交换层已降级时新通道出生即失败。
func (m *Multiplexer) ensureChannel(id types.ChannelID) *channel.Channel {
	m.mu.Lock()
	ch, ok := m.channels[id]
	var bornFailed bool
	if !ok {
		target := m.store.Chain(id)
		ch = channel.New(m.dispatcher, m.expectHeader, id, m.size, target, m.terminalFunc(id, target))
		m.channels[id] = ch
		bornFailed = m.degraded
	}
	m.mu.Unlock()

	if bornFailed {
		ch.Fail(ErrDegraded)
	}
	return ch
}

// terminalFunc 构造通道终态回调
//
// 回调不获取 m.mu，避免与持锁创建通道的路径死锁。
func (m *Multiplexer) terminalFunc(id types.ChannelID, target *chain.Chain) channel.TerminalFunc {
	return func(state types.ChannelState, err error) {
		failed := state == types.ChannelFailed
		if failed {
			m.failedCount.Add(1)
		} else {
			m.closedCount.Add(1)
		}

		logger.Debug("通道终结",
			"channel", id,
			"state", state,
			"blocks", target.Len(),
			"bytes", target.Bytes())

		m.publish(types.EvtChannelClosed{
			BaseEvent: types.NewBaseEvent("channel.closed"),
			Channel:   id,
			Blocks:    target.Len(),
			Bytes:     target.Bytes(),
			Failed:    failed,
			Err:       err,
		})
	}
}

// touchPeer 记录对端入向活动
func (m *Multiplexer) touchPeer(peer types.Rank) {
	m.mu.Lock()
	dog := m.dog
	m.mu.Unlock()
	if dog != nil {
		dog.touch(peer)
	}
}

// hasOpenChannels 检查是否存在未终结的通道
func (m *Multiplexer) hasOpenChannels() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.channels {
		if !ch.State().Terminal() {
			return true
		}
	}
	return false
}

// ============================================================================
//                              通道操作
// ============================================================================

// OpenChannel 打开通道用于发送，返回按节点序号排列的发射器
func (m *Multiplexer) OpenChannel(id types.ChannelID) ([]pkgif.BlockEmitter, error) {
	m.mu.Lock()
	if m.group == nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: open %s", ErrNotConnected, id)
	}
	if m.degraded {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: open %s", ErrDegraded, id)
	}
	group := m.group
	size := m.size
	rank := m.rank
	m.mu.Unlock()

	ch := m.ensureChannel(id)
	if !ch.MarkLocallyOpened() {
		return nil, fmt.Errorf("%w: %s", ErrChannelAlreadyOpen, id)
	}

	emitters := make([]pkgif.BlockEmitter, size)
	for p := 0; p < size; p++ {
		peer := types.Rank(p)
		if peer == rank {
			emitters[p] = emitter.NewLoopbackTarget(ch.Chain(), ch.CloseLoopback)
			continue
		}
		emitters[p] = emitter.NewSocketTarget(m.dispatcher, group.Connection(peer), id, m.sentHook(peer))
	}

	logger.Debug("通道已打开", "channel", id, "peers", size)
	m.publish(types.EvtChannelOpened{
		BaseEvent: types.NewBaseEvent("channel.opened"),
		Channel:   id,
		Peers:     size,
	})
	return emitters, nil
}

// sentHook 构造按对端计量的发送统计钩子
func (m *Multiplexer) sentHook(peer types.Rank) func(int) {
	if m.bwc == nil {
		return nil
	}
	return func(size int) {
		m.bwc.LogSentBlock(peer, size)
	}
}

// HasChannel 检查指定通道的通道对象是否已实例化
func (m *Multiplexer) HasChannel(id types.ChannelID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.channels[id]
	return ok
}

// HasData 检查指定通道是否已有缓冲链
func (m *Multiplexer) HasData(id types.ChannelID) bool {
	return m.store.Contains(id)
}

// AccessData 返回指定通道的缓冲链，不存在则创建空链
func (m *Multiplexer) AccessData(id types.ChannelID) pkgif.BufferChain {
	return m.store.Chain(id)
}

// AllocateNext 分配下一个通道 ID
//
// 集群内所有节点须以相同顺序、相同次数调用，
// 使同一 ID 在每个节点上指向同一个逻辑数据交换。
// 这是协议层契约，本地无法校验。
func (m *Multiplexer) AllocateNext() types.ChannelID {
	return m.store.AllocateNext()
}

// ============================================================================
//                              统计
// ============================================================================

// Stats 返回交换层统计快照
func (m *Multiplexer) Stats() types.ExchangeStats {
	m.mu.Lock()
	open := 0
	for _, ch := range m.channels {
		if !ch.State().Terminal() {
			open++
		}
	}
	stats := types.ExchangeStats{
		StartedAt:      m.startedAt,
		ChannelsOpen:   open,
		ChannelsClosed: int(m.closedCount.Load()),
		ChannelsFailed: int(m.failedCount.Load()),
		Degraded:       m.degraded,
	}
	m.mu.Unlock()

	if m.bwc != nil {
		stats.Bandwidth = m.bwc.Totals()
	}
	return stats
}

// ============================================================================
//                              事件发布
// ============================================================================

// setupEventEmittersLocked 创建事件发射器，调用方须持有 m.mu
//
// 事件属于可观测性辅助，创建失败只降级为不发布，不影响数据面。
func (m *Multiplexer) setupEventEmittersLocked() {
	if m.bus == nil || m.evtClosed != nil {
		return
	}

	var err error
	if m.evtOpened, err = m.bus.Emitter(new(types.EvtChannelOpened)); err != nil {
		logger.Warn("事件发射器创建失败", "event", "channel.opened", "err", err)
	}
	if m.evtClosed, err = m.bus.Emitter(new(types.EvtChannelClosed)); err != nil {
		logger.Warn("事件发射器创建失败", "event", "channel.closed", "err", err)
	}
	if m.evtPeerFailed, err = m.bus.Emitter(new(types.EvtPeerFailed)); err != nil {
		logger.Warn("事件发射器创建失败", "event", "peer.failed", "err", err)
	}
}

// publish 发布一个交换层事件
func (m *Multiplexer) publish(evt types.Event) {
	m.mu.Lock()
	var e pkgif.EventEmitter
	switch evt.(type) {
	case types.EvtChannelOpened:
		e = m.evtOpened
	case types.EvtChannelClosed:
		e = m.evtClosed
	case types.EvtPeerFailed:
		e = m.evtPeerFailed
	}
	m.mu.Unlock()

	if e == nil {
		return
	}
	if err := e.Emit(evt); err != nil {
		logger.Debug("事件发布失败", "type", evt.Type(), "err", err)
	}
}
