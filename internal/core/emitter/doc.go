// Package emitter 实现通道发送侧的两种目的地策略
//
// 打开通道后，调用方拿到按节点序号排列的发射器列表：
//   - SocketTarget：数据块组帧后入队到对端连接（其余全部序号）
//   - LoopbackTarget：数据块直接追加进本地缓冲链（本节点序号）
//
// 两者都只出不进，并保持调用方的写入顺序。
//
// # 架构定位
//
// Tier: Core Layer Level 2
//
// 依赖关系：
//   - 依赖：chain, wire, pkg/interfaces
//   - 被依赖：mux
package emitter
