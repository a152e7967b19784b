// Package interfaces 定义 FlowMesh 公共接口
//
// 本文件定义 Dispatcher 接口，抽象异步连接读写引擎。
package interfaces

// ReadCallback 异步读取完成后的回调
//
// conn 为发起读取的连接，buf 为恰好读满 n 字节的缓冲区。
// err 非 nil 时 buf 无效，连接随后会经失败处理器上报。
type ReadCallback func(conn Connection, buf []byte, err error)

// FailureHandler 连接失败处理器
//
// 读写任一方向出错时调用，同一连接至多调用一次。
type FailureHandler func(conn Connection, err error)

// Dispatcher 定义异步调度器接口
//
// Dispatcher 为上层提供回调式连接读写：所有读取完成回调与失败回调
// 都在调度器的单一顺序化协程上执行，回调之间天然互斥。
// 回调内不得执行阻塞操作，"等待更多数据"一律通过再次挂载读取表达。
type Dispatcher interface {
	// AsyncRead 在连接上挂载一次恰好 n 字节的读取
	//
	// 同一连接上调用方须保证任意时刻至多一次未完成读取。
	AsyncRead(conn Connection, n int, cb ReadCallback)

	// AsyncWrite 将帧追加到连接的发送队列
	//
	// 同一连接上的帧严格按入队顺序写出；本层无背压，
	// 队列无界，生产速度由上层自行约束。
	AsyncWrite(conn Connection, frame []byte)

	// Post 将任务投递到顺序化协程执行
	//
	// 与读取回调串行，适合需要与回调互斥的管理操作。
	Post(task func())

	// OnFailure 注册连接失败处理器（整个调度器一个）
	OnFailure(handler FailureHandler)

	// Close 停止调度器，丢弃未完成的读写
	Close() error
}
