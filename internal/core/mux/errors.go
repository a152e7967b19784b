package mux

import "errors"

// 数据交换层错误定义
var (
	// ErrNotConnected 尚未绑定节点组
	ErrNotConnected = errors.New("exchange not connected")

	// ErrAlreadyConnected 已绑定节点组，重复 Connect
	ErrAlreadyConnected = errors.New("exchange already connected")

	// ErrNilGroup Connect 传入空节点组
	ErrNilGroup = errors.New("nil peer group")

	// ErrChannelAlreadyOpen 同一通道重复打开
	ErrChannelAlreadyOpen = errors.New("channel already open")

	// ErrDegraded 交换层已降级，不再接受新通道
	ErrDegraded = errors.New("exchange degraded")

	// ErrPeerFailed 对端连接失败
	ErrPeerFailed = errors.New("peer connection failed")

	// ErrProtocol 对端连接上出现协议违规
	ErrProtocol = errors.New("protocol violation")

	// ErrClosed 交换层已关闭
	ErrClosed = errors.New("exchange closed")
)
