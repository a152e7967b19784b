// Package interfaces 定义 FlowMesh 公共接口
//
// 本文件定义 Exchange 接口，即数据交换层（通道多路复用器）的公共能力。
package interfaces

import (
	"github.com/flowmesh/go-flowmesh/pkg/types"
)

// Exchange 定义数据交换层接口
//
// Exchange 把任意数量的逻辑数据通道复用到固定的节点间连接集合上：
// 出向数据经发射器分发到各对端（本节点走环回直写），
// 入向数据按通道 ID 解复用进对应的缓冲链。
type Exchange interface {
	// Connect 绑定节点组并启动各对端连接上的读循环
	//
	// 重复调用返回 ErrAlreadyConnected。
	Connect(group Group) error

	// HasChannel 检查指定通道的通道对象是否已实例化
	//
	// 本地打开或首个远端头部到达都会实例化通道对象。
	HasChannel(id types.ChannelID) bool

	// HasData 检查指定通道是否已有缓冲链
	HasData(id types.ChannelID) bool

	// AccessData 返回指定通道的缓冲链，不存在则创建空链
	//
	// 本方法永不失败：尚无数据时返回的空链会在数据到达后被填充。
	AccessData(id types.ChannelID) BufferChain

	// AllocateNext 分配下一个通道 ID
	//
	// 集群内所有节点须按相同顺序调用，以保证 ID 全局一致。
	AllocateNext() types.ChannelID

	// OpenChannel 打开通道用于发送，返回按节点序号排列的发射器
	//
	// 自身序号位置是环回发射器，其余为对应连接的套接字发射器。
	// 同一通道只能打开一次，重复打开返回 ErrChannelAlreadyOpen。
	OpenChannel(id types.ChannelID) ([]BlockEmitter, error)

	// Stats 返回交换层统计快照
	Stats() types.ExchangeStats

	// Close 关闭全部对端连接并复位交换层
	//
	// 关闭后须重新 Connect 才能继续使用。
	Close() error
}

// BufferChain 定义缓冲链的消费侧接口
//
// 缓冲链是单个通道的接收缓冲：按到达顺序追加的数据块序列。
// 消费方可在数据仍在到达时读取快照，终态后读取完整内容。
type BufferChain interface {
	// Blocks 返回当前数据块序列的快照
	Blocks() [][]byte

	// Len 返回数据块数量
	Len() int

	// Bytes 返回载荷总字节数
	Bytes() uint64

	// Completed 检查链是否已完成（通道正常关闭）
	Completed() bool

	// Failed 检查链是否已失败
	Failed() bool

	// Err 返回失败原因，未失败时为 nil
	Err() error

	// Done 返回终态通知通道，链完成或失败时关闭
	Done() <-chan struct{}
}

// BlockEmitter 定义数据块发射器接口
//
// 每个发射器对应打开通道的一个目的节点。
// 单个发射器不支持并发调用，调用方须自行串行化。
type BlockEmitter interface {
	// Emit 发送一个数据块
	//
	// 数据块不能为空（长度 0 在线上格式中保留作结束标记）。
	// 关闭后调用返回 ErrEmitterClosed。
	Emit(block []byte) error

	// Close 结束本方向该通道的子流，发送结束标记
	//
	// 幂等：重复关闭无副作用。
	Close() error
}
