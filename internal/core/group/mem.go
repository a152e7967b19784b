package group

import (
	"net"

	pkgif "github.com/flowmesh/go-flowmesh/pkg/interfaces"
	"github.com/flowmesh/go-flowmesh/pkg/types"
)

// ============================================================================
//                              进程内建组
// ============================================================================

// NewMemCluster 创建 n 个全互联的进程内节点组
//
// 每对节点之间以 net.Pipe 相连，无需网络与握手，
// 返回的切片按序号排列。用于单进程演示与测试。
func NewMemCluster(n int) []*Mesh {
	meshes := make([]*Mesh, n)
	for i := range meshes {
		meshes[i] = &Mesh{
			rank:  types.Rank(i),
			conns: make([]pkgif.Connection, n),
		}
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			a, b := net.Pipe()
			meshes[i].conns[j] = &rankedConn{Conn: a, peer: types.Rank(j)}
			meshes[j].conns[i] = &rankedConn{Conn: b, peer: types.Rank(i)}
		}
	}

	logger.Debug("进程内节点组已建立", "size", n)
	return meshes
}
