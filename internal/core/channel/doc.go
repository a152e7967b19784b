// Package channel 实现逻辑通道的接收侧状态机
//
// 每个通道 ID 对应一个 Channel：跟踪尚未结束的对端数量、
// 本地环回子流状态，并驱动所在连接的头部→载荷→头部读取循环。
//
// 解复用按连接进行而非全局进行：每条连接是独立的严格有序字节流，
// 头部只声明"本连接上接下来的 N 字节属于通道 X"。因此任意时刻
// 每条连接上恰好挂载一次头部读取，处理完一个块后由 rearm 回调
// 续上下一次。
//
// # 架构定位
//
// Tier: Core Layer Level 2
//
// 依赖关系：
//   - 依赖：chain, wire, pkg/interfaces, pkg/types
//   - 被依赖：mux
package channel
