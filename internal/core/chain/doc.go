// Package chain 实现通道数据的接收缓冲
//
// 每个逻辑通道在本节点对应一条缓冲链（Chain）：按到达顺序追加的
// 数据块序列，外加完成/失败终态。Store 按通道 ID 管理全部链，
// 并承担集群锁步的通道 ID 分配。
//
// 同一通道的数据块来自多个对端连接与本地环回；链只保证追加顺序
// 即到达顺序，不同来源之间没有确定的交错顺序。
//
// # 架构定位
//
// Tier: Core Layer Level 0（无依赖）
//
// 依赖关系：
//   - 依赖：pkg/types, pkg/interfaces
//   - 被依赖：channel, emitter, mux
package chain
