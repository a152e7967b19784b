package channel

import (
	"sync"

	"github.com/flowmesh/go-flowmesh/internal/core/chain"
	"github.com/flowmesh/go-flowmesh/internal/core/wire"
	pkgif "github.com/flowmesh/go-flowmesh/pkg/interfaces"
	"github.com/flowmesh/go-flowmesh/pkg/lib/log"
	"github.com/flowmesh/go-flowmesh/pkg/types"
)

var logger = log.Logger("core/channel")

// RearmFunc 处理完一个头部后在同一连接上挂载下一次头部读取
type RearmFunc func(conn pkgif.Connection)

// TerminalFunc 通道进入终态时的通知回调，每通道恰好调用一次
type TerminalFunc func(state types.ChannelState, err error)

// Channel 单个逻辑通道的接收侧状态机
//
// 跟踪还有多少对端尚未发送结束标记，并把到达的载荷追加进
// 所属缓冲链。状态转换：
//
//	Open ──► Closed   收齐 P-1 个远端结束标记且本地环回已关闭
//	Open ──► Failed   对端失联 / 协议违规
//
// 终态恰好进入一次。数据路径方法（PickupBlock）仅在调度器的
// 顺序化协程上调用；CloseLoopback 与 Fail 可能来自用户协程，
// 内部用互斥锁保护。
type Channel struct {
	id         types.ChannelID
	dispatcher pkgif.Dispatcher
	target     *chain.Chain

	// rearm 在同一连接上挂载下一次头部读取，保持
	// "每连接恰好一个未完成头部读取"的循环
	rearm RearmFunc

	// onTerminal 终态通知，持锁外调用
	onTerminal TerminalFunc

	mu sync.Mutex

	state types.ChannelState
	err   error

	// remaining 尚未收到结束标记的对端数（不含本节点）
	remaining int

	// finished 已收到结束标记的对端，用于拒绝重复结束标记
	finished map[types.Rank]bool

	// loopbackDone 本地环回子流是否已关闭
	loopbackDone bool

	// locallyOpened 本地是否已调用过 OpenChannel
	locallyOpened bool
}

// New 创建通道状态机
//
// peers 为参与方总数（含本节点），远端结束标记预期 peers-1 个。
// rearm 与 onTerminal 不可为 nil。
func New(d pkgif.Dispatcher, rearm RearmFunc, id types.ChannelID, peers int, target *chain.Chain, onTerminal TerminalFunc) *Channel {
	return &Channel{
		id:         id,
		dispatcher: d,
		target:     target,
		rearm:      rearm,
		onTerminal: onTerminal,
		state:      types.ChannelOpen,
		remaining:  peers - 1,
		finished:   make(map[types.Rank]bool),
	}
}

// ID 返回通道标识
func (c *Channel) ID() types.ChannelID {
	return c.id
}

// State 返回当前状态
func (c *Channel) State() types.ChannelState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Chain 返回通道写入的缓冲链
func (c *Channel) Chain() *chain.Chain {
	return c.target
}

// MarkLocallyOpened 记录本地打开；已打开过则返回 false
func (c *Channel) MarkLocallyOpened() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.locallyOpened {
		return false
	}
	c.locallyOpened = true
	return true
}

// PickupBlock 处理该通道在 conn 上刚到达的一个块头部
//
// 结束标记：计入对端完成并检查关闭条件。数据头部：在同一连接上
// 挂载恰好 Length 字节的载荷读取，读满后追加进缓冲链。
// 两条路径处理完后都重新挂载下一次头部读取，维持每连接的
// 头部→载荷→头部循环。仅在顺序化协程上调用。
func (c *Channel) PickupBlock(conn pkgif.Connection, h wire.BlockHeader) {
	if h.IsEnd() {
		c.finishPeer(conn.Peer())
		c.rearm(conn)
		return
	}

	c.dispatcher.AsyncRead(conn, int(h.Length), func(conn pkgif.Connection, buf []byte, err error) {
		if err != nil {
			// 连接级失败由失败处理器统一接管，这里只终止循环
			return
		}
		c.target.Append(buf)
		c.rearm(conn)
	})
}

// CloseLoopback 关闭本地环回子流
//
// 环回发射器无法发送真实头部，本地结束通过此方法合成。
// 幂等：重复调用无副作用。
func (c *Channel) CloseLoopback() {
	c.mu.Lock()
	if c.state != types.ChannelOpen || c.loopbackDone {
		c.mu.Unlock()
		return
	}
	c.loopbackDone = true
	closed := c.remaining == 0
	if closed {
		c.state = types.ChannelClosed
	}
	c.mu.Unlock()

	logger.Debug("环回子流已关闭", "channel", c.id)
	if closed {
		c.finish(types.ChannelClosed, nil)
	}
}

// Fail 将通道转入失败终态
//
// 对端失联或协议违规时由多路复用器调用。
// 幂等；通道已关闭时不生效（第一个终态生效）。
func (c *Channel) Fail(err error) {
	c.mu.Lock()
	if c.state != types.ChannelOpen {
		c.mu.Unlock()
		return
	}
	c.state = types.ChannelFailed
	c.err = err
	c.mu.Unlock()

	c.finish(types.ChannelFailed, err)
}

// finishPeer 计入一个对端的结束标记，条件满足时转入 Closed
func (c *Channel) finishPeer(peer types.Rank) {
	c.mu.Lock()
	if c.state != types.ChannelOpen {
		c.mu.Unlock()
		return
	}
	if c.finished[peer] {
		c.mu.Unlock()
		logger.Warn("忽略重复的结束标记", "channel", c.id, "peer", peer)
		return
	}
	c.finished[peer] = true
	c.remaining--
	closed := c.remaining == 0 && c.loopbackDone
	if closed {
		c.state = types.ChannelClosed
	}
	remaining := c.remaining
	c.mu.Unlock()

	logger.Debug("收到结束标记", "channel", c.id, "peer", peer, "remaining", remaining)
	if closed {
		c.finish(types.ChannelClosed, nil)
	}
}

// finish 终结缓冲链并发出终态通知；仅状态转换的胜出方调用
func (c *Channel) finish(state types.ChannelState, err error) {
	if state == types.ChannelFailed {
		c.target.Fail(err)
	} else {
		c.target.MarkComplete()
	}
	c.onTerminal(state, err)
}
