// Package types 定义 FlowMesh 的基础类型
//
// 这是整个系统的最底层包，不依赖任何其他 flowmesh 内部包。
// 所有类型都是纯值类型，用于在各模块间传递数据。
package types

import (
	"fmt"
	"strconv"
)

// ============================================================================
//                              ChannelID - 通道标识
// ============================================================================

// ChannelID 逻辑数据通道的唯一标识符
//
// 同一次运行中，集群内所有工作节点按相同顺序分配通道 ID，
// 因此同一个 ID 在每个节点上指向同一个逻辑数据交换。
// ID 从 0 开始单调递增，由 Store.AllocateNext 分配。
type ChannelID uint32

// String 返回通道 ID 的字符串表示
func (id ChannelID) String() string {
	return "ch-" + strconv.FormatUint(uint64(id), 10)
}

// ============================================================================
//                              Rank - 节点序号
// ============================================================================

// Rank 工作节点在集群中的序号
//
// 取值范围 [0, Size)，由集群启动时静态指定。
// Rank 同时决定连接建立方向：低序号节点监听，高序号节点拨号。
type Rank int

// InvalidRank 无效的节点序号
const InvalidRank Rank = -1

// String 返回节点序号的字符串表示
func (r Rank) String() string {
	if r == InvalidRank {
		return "rank-invalid"
	}
	return "rank-" + strconv.Itoa(int(r))
}

// Valid 检查序号在给定集群规模下是否有效
func (r Rank) Valid(size int) bool {
	return r >= 0 && int(r) < size
}

// ============================================================================
//                              RunID - 运行标识
// ============================================================================

// RunID 一次集群运行的标识符
//
// 连接握手时用于拒绝来自其他运行实例的节点，
// 通常由协调方生成（如 uuid）并分发给全部节点。
type RunID string

// String 返回运行标识字符串
func (r RunID) String() string {
	return string(r)
}

// IsEmpty 检查运行标识是否为空
func (r RunID) IsEmpty() bool {
	return r == ""
}

// ============================================================================
//                              BlockInfo - 数据块描述
// ============================================================================

// BlockInfo 描述一个已接收数据块的来源与大小
type BlockInfo struct {
	// Channel 数据块所属通道
	Channel ChannelID

	// From 数据块来源节点
	From Rank

	// Size 载荷字节数
	Size int
}

// String 返回数据块描述的字符串表示
func (b BlockInfo) String() string {
	return fmt.Sprintf("%s/%s/%dB", b.Channel, b.From, b.Size)
}
