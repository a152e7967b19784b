// Package types 定义 FlowMesh 公共类型
//
// 本文件定义事件相关类型。
package types

import (
	"time"
)

// ============================================================================
//                              Event - 事件接口
// ============================================================================

// Event 基础事件接口
type Event interface {
	// Type 返回事件类型
	Type() string

	// Timestamp 返回事件时间戳
	Timestamp() time.Time
}

// BaseEvent 基础事件实现
type BaseEvent struct {
	EventType string
	Time      time.Time
}

// Type 返回事件类型
func (e BaseEvent) Type() string {
	return e.EventType
}

// Timestamp 返回事件时间戳
func (e BaseEvent) Timestamp() time.Time {
	return e.Time
}

// NewBaseEvent 创建基础事件
func NewBaseEvent(eventType string) BaseEvent {
	return BaseEvent{
		EventType: eventType,
		Time:      time.Now(),
	}
}

// ============================================================================
//                              通道事件
// ============================================================================

// EvtChannelClosed 通道进入终态事件
//
// 通道收齐全部结束标记（Failed=false）或因对端失联而失败
// （Failed=true）时发布，每个通道恰好发布一次。
type EvtChannelClosed struct {
	BaseEvent
	Channel ChannelID
	Blocks  int    // 链上数据块数量
	Bytes   uint64 // 链上载荷总字节数
	Failed  bool   // 是否以失败终结
	Err     error  // 失败原因（仅 Failed=true 时有效）
}

// EvtChannelOpened 本地打开通道事件
type EvtChannelOpened struct {
	BaseEvent
	Channel ChannelID
	Peers   int // 参与方数量（含本节点）
}

// ============================================================================
//                              连接事件
// ============================================================================

// EvtPeerFailed 对端失联事件
//
// 对端连接读写出错、协议违规或在发送结束标记前断开时发布。
// 此后该多路复用器进入降级状态，未终结的通道全部失败。
type EvtPeerFailed struct {
	BaseEvent
	Peer Rank
	Err  error
}
