// Package mux 实现通道多路复用器
//
// 多路复用器是数据交换层的编排中心：持有通道注册表与缓冲链仓库，
// 在节点组的每条连接上维持恰好一次未完成的头部读取，按头部中的
// 通道 ID 把入向数据块解复用进对应缓冲链；出向方向按通道返回一组
// 发射器，远端走连接发送队列，本节点走环回直写。
//
// 状态与生命周期：
//   - 未连接 → Connect → 已连接 → Close → 未连接（可重连）
//   - 任一对端失联即永久降级：未终结通道全部失败，
//     之后打开的通道出生即失败
//
// 并发模型：入向回调全部在调度器的顺序化协程上执行；
// 查询与打开操作可从任意协程调用，内部以互斥锁保护注册表。
//
// 主要类型：
//   - Multiplexer：多路复用器实现，见 pkg/interfaces.Exchange
//   - Config：块大小上限与空闲监视配置
package mux
