// Package types 定义 FlowMesh 的公共数据结构
//
// 这是整个系统的最底层包，不依赖任何其他 flowmesh 内部包。
// 所有类型都是纯值类型，用于在各模块间传递数据。
//
// # 职能
//
// pkg/types 的职能是定义 **Go 内部数据结构**：
//   - 模块间数据传递
//   - API 参数/返回值
//   - 事件类型、统计快照
//
// # 文件组织
//
// 基础类型:
//   - ids.go   - ChannelID, Rank, RunID, BlockInfo
//   - enums.go - ChannelState, WorkerState
//
// 事件类型:
//   - events.go - EvtChannelOpened, EvtChannelClosed, EvtPeerFailed
//
// 统计类型:
//   - stats.go - ChainStats, BandwidthSnapshot, ExchangeStats
//
// # 类型分类
//
// ID 类型:
//   - ChannelID - 逻辑通道标识（全集群按相同顺序分配）
//   - Rank      - 工作节点序号（静态指定，决定连接方向）
//   - RunID     - 运行标识（握手时隔离不同运行实例）
//
// 枚举类型:
//   - ChannelState - 通道状态（Open/Closed/Failed）
//   - WorkerState  - 节点状态（Idle/Initializing/Running/...）
//
// 事件类型 (EvtXXX):
//   - EvtChannelOpened - 本地打开通道事件
//   - EvtChannelClosed - 通道进入终态事件
//   - EvtPeerFailed    - 对端失联事件
//
// # 设计原则
//
//  1. 不可变性：类型创建后尽量不可修改，使用值类型
//  2. 可比较性：可作为 map key 使用
//  3. 零依赖：不依赖任何其他 flowmesh 内部包（最底层）
//
// # 使用示例
//
//	import "github.com/flowmesh/go-flowmesh/pkg/types"
//
//	// 分配通道 ID 后按序号定位发射器
//	var id types.ChannelID = 7
//	var self types.Rank = 1
//
//	// 订阅通道终态事件
//	// sub, _ := bus.Subscribe(new(types.EvtChannelClosed))
package types
