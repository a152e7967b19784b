package chain

import (
	"sync"

	"github.com/flowmesh/go-flowmesh/pkg/types"
)

// Store 缓冲链注册表
//
// 维护通道 ID 到缓冲链的映射与单调递增的 ID 分配计数。
// 链的创建遵循"先到先建"：本地分配与远端首块到达谁先发生
// 谁创建，后到者拿到同一条链。
//
// ID 分配依赖集群锁步约定：所有节点按相同顺序调用 AllocateNext，
// 因此计数器只前进，不因远端先建链而跳号。
type Store struct {
	mu     sync.Mutex
	chains map[types.ChannelID]*Chain
	next   types.ChannelID
}

// NewStore 创建空注册表，ID 从 0 开始分配
func NewStore() *Store {
	return &Store{
		chains: make(map[types.ChannelID]*Chain),
	}
}

// AllocateNext 分配下一个通道 ID 并确保其缓冲链存在
//
// 远端数据先行到达已建链时返回同一 ID 与既有链。
func (s *Store) AllocateNext() types.ChannelID {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.next
	s.next++
	s.ensure(id)
	return id
}

// Allocate 为指定通道预创建缓冲链
//
// 返回是否由本次调用创建；链已存在时不生效并返回 false。
// 不影响 AllocateNext 的分配计数。
func (s *Store) Allocate(id types.ChannelID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.chains[id]; ok {
		return false
	}
	s.chains[id] = New(id)
	return true
}

// Chain 返回指定通道的缓冲链，不存在则创建空链
func (s *Store) Chain(id types.ChannelID) *Chain {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensure(id)
}

// Contains 检查指定通道是否已有缓冲链
//
// 链在本地分配或远端数据到达时即存在。
func (s *Store) Contains(id types.ChannelID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.chains[id]
	return ok
}

// Len 返回已存在的缓冲链数量
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chains)
}

// ForEach 对每条缓冲链调用 fn
//
// 在锁外遍历持锁时取得的快照，期间新建的链不在本次遍历中。
func (s *Store) ForEach(fn func(*Chain)) {
	s.mu.Lock()
	snapshot := make([]*Chain, 0, len(s.chains))
	for _, c := range s.chains {
		snapshot = append(snapshot, c)
	}
	s.mu.Unlock()

	for _, c := range snapshot {
		fn(c)
	}
}

// ensure 返回 id 对应的链，不存在则创建；须持锁调用
func (s *Store) ensure(id types.ChannelID) *Chain {
	if c, ok := s.chains[id]; ok {
		return c
	}
	c := New(id)
	s.chains[id] = c
	return c
}
