// Package bandwidth 提供数据交换层的流量统计
//
// 计数器按发送/接收两个方向累计字节数与数据块数，
// 以 EWMA 估计实时速率，并可按对端序号细分。
// 环回（发往本节点）的数据不经网络，不计入统计。
//
// 主要类型：
//   - Meter：单方向计量器，线程安全
//   - MeterRegistry：按对端序号索引的计量器集合
//   - Counter：交换层计数器，聚合总量与按对端统计
//   - Collector：prometheus 指标采集器
package bandwidth
