package emitter

import (
	"fmt"

	"github.com/flowmesh/go-flowmesh/internal/core/chain"
	pkgif "github.com/flowmesh/go-flowmesh/pkg/interfaces"
)

// 接口实现检查
var _ pkgif.BlockEmitter = (*LoopbackTarget)(nil)

// LoopbackTarget 环回发射器
//
// 发往本节点的数据不经网络栈，直接追加进本地缓冲链，
// 不组帧也不产生头部。Close 通过 closer 回调合成本地结束信号，
// 因为环回路径上不存在真实的结束标记头部。
//
// 追加前载荷被复制，Emit 返回后调用方可复用 block。
// 单个发射器不支持并发调用。
type LoopbackTarget struct {
	target *chain.Chain

	// closer 关闭时合成本地结束信号（通道的 CloseLoopback）
	closer func()

	closed bool
}

// NewLoopbackTarget 创建写入本地缓冲链的发射器
func NewLoopbackTarget(target *chain.Chain, closer func()) *LoopbackTarget {
	return &LoopbackTarget{
		target: target,
		closer: closer,
	}
}

// Emit 把数据块副本追加进本地缓冲链
func (l *LoopbackTarget) Emit(block []byte) error {
	if l.closed {
		return fmt.Errorf("%w: %s loopback", ErrEmitterClosed, l.target.ID())
	}
	if len(block) == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyBlock, l.target.ID())
	}

	cp := make([]byte, len(block))
	copy(cp, block)
	l.target.Append(cp)
	return nil
}

// Close 关闭本地子流并触发环回结束信号
//
// 幂等：重复关闭无副作用。
func (l *LoopbackTarget) Close() error {
	if l.closed {
		return nil
	}
	l.closed = true
	l.closer()
	return nil
}
