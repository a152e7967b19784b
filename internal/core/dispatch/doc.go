// Package dispatch 实现异步连接读写引擎
//
// 为交换层提供回调式连接读写：
//   - AsyncRead：恰好 n 字节的一次性读取，完成回调在顺序化协程执行
//   - AsyncWrite：每连接严格 FIFO 的无界发送队列
//   - Post：与读取回调互斥的管理任务
//   - OnFailure：读写任一方向出错时的集中失败上报（每连接至多一次）
//
// # 并发模型
//
// 一个顺序化协程消费任务队列，全部回调在其上串行执行，
// 上层回调之间无需互斥。每个连接另有一个专属写协程，
// 保证同一连接上帧不穿插；不同连接的写入互不影响。
//
// 回调内不得阻塞。需要等待更多数据时再次挂载 AsyncRead，
// 需要执行管理操作时使用 Post。
//
// # 快速开始
//
//	d := dispatch.New(dispatch.DefaultConfig())
//	defer d.Close()
//
//	d.OnFailure(func(conn pkgif.Connection, err error) {
//	    // 连接级失败处理
//	})
//
//	d.AsyncRead(conn, 8, func(conn pkgif.Connection, buf []byte, err error) {
//	    if err != nil {
//	        return // 失败处理器随后触发
//	    }
//	    // 处理 buf，然后再次挂载读取
//	})
//
//	d.AsyncWrite(conn, frame)
//
// # 架构定位
//
// Tier: Core Layer Level 1
//
// 依赖关系：
//   - 依赖：pkg/interfaces, pkg/lib/log, config
//   - 被依赖：channel, emitter, mux
package dispatch
