// Package wire 定义节点间连接上的线级格式
//
// 所有通道的数据块交错复用在同一条连接上，每块前置一个 8 字节定长头部：
//
//	 0                   4                   8
//	 +-------------------+-------------------+----------------
//	 |  Length (u32 BE)  | Channel (u32 BE)  | payload ...
//	 +-------------------+-------------------+----------------
//
// Length 为载荷字节数；Length == 0 是结束标记，表示发送方在该通道上的
// 子流已结束，其后没有载荷。因此空数据块不允许出现在线上。
//
// 头部之外本包还提供 Frame：把头部与载荷拼成一段连续内存，
// 供发送侧一次性入队，避免并发通道的帧互相穿插。
//
// # 架构定位
//
// Tier: Core Layer Level 0（无依赖）
//
// 依赖关系：
//   - 依赖：pkg/types
//   - 被依赖：emitter, mux
package wire
