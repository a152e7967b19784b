// Package interfaces 定义 FlowMesh 公共接口
//
// 本文件定义 Group 接口，抽象固定成员的节点组及其两两连接。
package interfaces

import (
	"io"
	"net"

	"github.com/flowmesh/go-flowmesh/pkg/types"
)

// Group 定义节点组接口
//
// 节点组是一次运行中固定的工作节点集合，节点间两两保持
// 恰好一条双工连接。成员与序号在组建立后不再变化。
type Group interface {
	// Size 返回组内节点数量
	Size() int

	// Rank 返回本节点序号
	Rank() types.Rank

	// Connection 返回到指定对端的连接
	//
	// peer 为本节点序号或越界时返回 nil。
	Connection(peer types.Rank) Connection

	// Close 关闭全部连接
	Close() error
}

// Connection 定义节点间连接接口
//
// 读写语义与 net.Conn 相同；Peer 标识连接另一端的节点序号。
type Connection interface {
	io.ReadWriteCloser

	// Peer 返回对端节点序号
	Peer() types.Rank

	// LocalAddr 返回本端地址
	LocalAddr() net.Addr

	// RemoteAddr 返回对端地址
	RemoteAddr() net.Addr
}
