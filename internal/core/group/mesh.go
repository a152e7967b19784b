package group

import (
	"net"

	"go.uber.org/multierr"

	pkgif "github.com/flowmesh/go-flowmesh/pkg/interfaces"
	"github.com/flowmesh/go-flowmesh/pkg/lib/log"
	"github.com/flowmesh/go-flowmesh/pkg/types"
)

var logger = log.Logger("core/group")

// 接口实现检查
var _ pkgif.Group = (*Mesh)(nil)
var _ pkgif.Connection = (*rankedConn)(nil)

// Mesh 固定成员的节点组
//
// 组内节点两两保持恰好一条双工连接，按对端序号索引；
// 本节点位置为 nil。成员与序号在建组后不再变化。
// 由 Dial（TCP 全网格）或 NewMemCluster（进程内管道）构建。
type Mesh struct {
	rank  types.Rank
	conns []pkgif.Connection

	// cleanup 额外清理动作（如关闭监听器），可为 nil
	cleanup func() error
}

// Size 返回组内节点数量
func (m *Mesh) Size() int {
	return len(m.conns)
}

// Rank 返回本节点序号
func (m *Mesh) Rank() types.Rank {
	return m.rank
}

// Connection 返回到指定对端的连接
//
// peer 为本节点序号或越界时返回 nil。
func (m *Mesh) Connection(peer types.Rank) pkgif.Connection {
	if !peer.Valid(len(m.conns)) || peer == m.rank {
		return nil
	}
	return m.conns[peer]
}

// Close 关闭全部连接，聚合所有关闭错误
func (m *Mesh) Close() error {
	var errs error
	for peer, conn := range m.conns {
		if conn == nil {
			continue
		}
		if err := conn.Close(); err != nil {
			errs = multierr.Append(errs, err)
		}
		m.conns[peer] = nil
	}
	if m.cleanup != nil {
		errs = multierr.Append(errs, m.cleanup())
	}

	logger.Debug("节点组已关闭", "rank", m.rank)
	return errs
}

// rankedConn 标注了对端序号的连接
type rankedConn struct {
	net.Conn
	peer types.Rank
}

// Peer 返回对端节点序号
func (c *rankedConn) Peer() types.Rank {
	return c.peer
}
