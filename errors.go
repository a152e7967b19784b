package flowmesh

import (
	"errors"

	"github.com/flowmesh/go-flowmesh/internal/core/emitter"
	"github.com/flowmesh/go-flowmesh/internal/core/group"
	"github.com/flowmesh/go-flowmesh/internal/core/mux"
)

// 公共错误定义
var (
	// ────────────────────────────────────────────────────────────────────────
	// 工作节点生命周期错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrNotStarted 工作节点未启动
	ErrNotStarted = errors.New("worker not started")

	// ErrAlreadyStarted 工作节点已启动
	ErrAlreadyStarted = errors.New("worker already started")

	// ErrWorkerClosed 工作节点已关闭
	ErrWorkerClosed = errors.New("worker closed")
)

// 交换层错误再导出
//
// 门面方法返回的错误可直接用 errors.Is 与这些值比对，
// 无需引用 internal 包。
var (
	// ErrChannelAlreadyOpen 通道已打开
	ErrChannelAlreadyOpen = mux.ErrChannelAlreadyOpen

	// ErrDegraded 交换层已降级（某对端失效后拒绝打开新通道）
	ErrDegraded = mux.ErrDegraded

	// ErrPeerFailed 对端失效
	ErrPeerFailed = mux.ErrPeerFailed

	// ErrProtocol 对端违反线上协议
	ErrProtocol = mux.ErrProtocol

	// ErrEmitterClosed 发射器已关闭
	ErrEmitterClosed = emitter.ErrEmitterClosed

	// ErrEmptyBlock 空数据块不可发送
	ErrEmptyBlock = emitter.ErrEmptyBlock
)

// 建组错误再导出
var (
	// ErrRunMismatch 对端运行标识不符
	ErrRunMismatch = group.ErrRunMismatch

	// ErrBadHandshake 握手格式或内容不符
	ErrBadHandshake = group.ErrBadHandshake
)
