// Package interfaces 定义 FlowMesh 的公共接口
//
// 本包采用扁平命名组织接口定义（无层级前缀）：
//
// # API Layer 接口
//
// 数据交换入口：
//   - exchange.go   - Exchange 门面接口（通道多路复用器的公共能力）
//
// # Core Layer 接口
//
// 交换层核心能力（一个接口文件 = 一个实现目录）：
//   - dispatcher.go - 异步调度器（回调式连接读写引擎）
//   - group.go      - 节点组与节点间连接
//   - eventbus.go   - 事件总线
//
// # 依赖方向
//
//	Exchange → Dispatcher / Group / EventBus
//
// 禁止反向依赖。
//
// # 设计原则
//
// 本包仅包含纯接口定义，数据结构定义在 pkg/types 包中。
//
// 采用扁平命名结构：
//   - 简化导入：一次性导入所有接口
//   - 避免循环依赖：清晰的依赖关系
//   - 降低包层级：提高可维护性
package interfaces
