// Package group 实现固定成员的节点组
//
// 节点组为集群内每对工作节点维持恰好一条双工连接，
// 是多路复用器之下的物理传输层。组成员与序号静态指定，
// 建组完成后不再变化。
//
// 两种构建方式：
//   - Dial：TCP 全网格。低序号节点监听，高序号节点拨号，
//     每条连接以 16 字节握手帧校验运行摘要与对端序号。
//   - NewMemCluster：进程内 net.Pipe 全互联，用于演示与测试。
//
// 主要类型：
//   - Mesh：节点组实现，按对端序号索引连接
//   - Config：TCP 建组配置
package group
