package emitter

import (
	"fmt"

	"github.com/flowmesh/go-flowmesh/internal/core/wire"
	pkgif "github.com/flowmesh/go-flowmesh/pkg/interfaces"
	"github.com/flowmesh/go-flowmesh/pkg/types"
)

// 接口实现检查
var _ pkgif.BlockEmitter = (*SocketTarget)(nil)

// SocketTarget 远端发射器
//
// 每个数据块组帧（头部+载荷连续内存）后追加到目的连接的发送队列，
// 同一发射器写出的块保持调用顺序。Close 发送结束标记头部。
//
// 组帧时载荷被复制，Emit 返回后调用方可复用 block。
// 单个发射器不支持并发调用。
type SocketTarget struct {
	dispatcher pkgif.Dispatcher
	conn       pkgif.Connection
	id         types.ChannelID

	// onEmit 发送统计钩子，可为 nil
	onEmit func(size int)

	closed bool
}

// NewSocketTarget 创建指向 conn 对端的发射器
func NewSocketTarget(d pkgif.Dispatcher, conn pkgif.Connection, id types.ChannelID, onEmit func(int)) *SocketTarget {
	return &SocketTarget{
		dispatcher: d,
		conn:       conn,
		id:         id,
		onEmit:     onEmit,
	}
}

// Emit 组帧并入队一个数据块
func (s *SocketTarget) Emit(block []byte) error {
	if s.closed {
		return fmt.Errorf("%w: %s to %s", ErrEmitterClosed, s.id, s.conn.Peer())
	}
	if len(block) == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyBlock, s.id)
	}

	s.dispatcher.AsyncWrite(s.conn, wire.Frame(s.id, block))
	if s.onEmit != nil {
		s.onEmit(len(block))
	}
	return nil
}

// Close 结束该通道朝此对端的子流，发送结束标记
//
// 幂等：重复关闭无副作用。
func (s *SocketTarget) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.dispatcher.AsyncWrite(s.conn, wire.EndHeader(s.id).Marshal())
	return nil
}
