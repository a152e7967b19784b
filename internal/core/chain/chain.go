package chain

import (
	"sync"

	pkgif "github.com/flowmesh/go-flowmesh/pkg/interfaces"
	"github.com/flowmesh/go-flowmesh/pkg/types"
)

// 接口实现检查
var _ pkgif.BufferChain = (*Chain)(nil)

// Chain 单个通道的接收缓冲链
//
// 数据块按到达顺序追加，消费方可在数据仍在到达时读取快照。
// 链与所属通道同生命周期进入终态：通道正常关闭时 MarkComplete，
// 对端失联时 Fail。两者幂等，先到者生效。
type Chain struct {
	id types.ChannelID

	mu        sync.Mutex
	blocks    [][]byte
	bytes     uint64
	completed bool
	failed    bool
	err       error

	// done 终态通知，MarkComplete 或 Fail 时关闭
	done chan struct{}
}

// New 创建空缓冲链
func New(id types.ChannelID) *Chain {
	return &Chain{
		id:   id,
		done: make(chan struct{}),
	}
}

// ID 返回所属通道
func (c *Chain) ID() types.ChannelID {
	return c.id
}

// Append 追加一个数据块
//
// block 的所有权转移给链，调用方此后不得修改。
// 链进入终态后的追加被丢弃（只会出现在失败竞态下，数据已无意义）。
func (c *Chain) Append(block []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.completed || c.failed {
		return
	}
	c.blocks = append(c.blocks, block)
	c.bytes += uint64(len(block))
}

// Blocks 返回当前数据块序列的快照
//
// 返回切片为新分配，元素与内部共享底层字节，消费方不得修改。
func (c *Chain) Blocks() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([][]byte, len(c.blocks))
	copy(out, c.blocks)
	return out
}

// Len 返回数据块数量
func (c *Chain) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.blocks)
}

// Bytes 返回载荷总字节数
func (c *Chain) Bytes() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bytes
}

// MarkComplete 标记链已完成
//
// 幂等；链已失败时不生效（第一个终态生效）。
func (c *Chain) MarkComplete() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.completed || c.failed {
		return
	}
	c.completed = true
	close(c.done)
}

// Fail 标记链已失败并记录原因
//
// 幂等；链已完成时不生效（第一个终态生效）。
func (c *Chain) Fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.completed || c.failed {
		return
	}
	c.failed = true
	c.err = err
	close(c.done)
}

// Completed 检查链是否已完成
func (c *Chain) Completed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.completed
}

// Failed 检查链是否已失败
func (c *Chain) Failed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failed
}

// Err 返回失败原因，未失败时为 nil
func (c *Chain) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Done 返回终态通知通道
func (c *Chain) Done() <-chan struct{} {
	return c.done
}

// Stats 返回链的统计快照
func (c *Chain) Stats() types.ChainStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return types.ChainStats{
		Channel:   c.id,
		Blocks:    len(c.blocks),
		Bytes:     c.bytes,
		Completed: c.completed,
		Failed:    c.failed,
	}
}
