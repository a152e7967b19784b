package types

// ============================================================================
//                              ChannelState - 通道状态
// ============================================================================

// ChannelState 逻辑通道的生命周期状态
//
// 状态机：
//
//	Open ──► Closed   （收齐全部对端结束标记 + 本地环回关闭）
//	Open ──► Failed   （任一对端连接失败 / 协议违规）
//
// Closed 与 Failed 均为终态，通道恰好进入其中一个，且只进入一次。
type ChannelState int

const (
	// ChannelOpen 通道开放中，仍在等待数据或结束标记
	ChannelOpen ChannelState = iota
	// ChannelClosed 通道已完成：全部参与方的子流都已结束
	ChannelClosed
	// ChannelFailed 通道已失败：至少一个参与方在结束前失联
	ChannelFailed
)

// String 返回通道状态的字符串表示
func (s ChannelState) String() string {
	switch s {
	case ChannelOpen:
		return "open"
	case ChannelClosed:
		return "closed"
	case ChannelFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal 检查状态是否为终态
func (s ChannelState) Terminal() bool {
	return s == ChannelClosed || s == ChannelFailed
}

// ============================================================================
//                              WorkerState - 节点状态
// ============================================================================

// WorkerState 工作节点的生命周期状态
type WorkerState int

const (
	// WorkerIdle 已创建，尚未启动
	WorkerIdle WorkerState = iota
	// WorkerInitializing 正在建立集群连接
	WorkerInitializing
	// WorkerRunning 运行中，可收发数据
	WorkerRunning
	// WorkerStopping 正在关闭
	WorkerStopping
	// WorkerStopped 已停止
	WorkerStopped
)

// String 返回节点状态的字符串表示
func (s WorkerState) String() string {
	switch s {
	case WorkerIdle:
		return "idle"
	case WorkerInitializing:
		return "initializing"
	case WorkerRunning:
		return "running"
	case WorkerStopping:
		return "stopping"
	case WorkerStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
