// Package eventbus 实现事件总线
package eventbus

import (
	"errors"
	"reflect"
	"sync"
	"sync/atomic"

	pkgif "github.com/flowmesh/go-flowmesh/pkg/interfaces"
	"github.com/flowmesh/go-flowmesh/pkg/lib/log"
)

var logger = log.Logger("core/eventbus")

// ============================================================================
// 错误定义
// ============================================================================

var (
	// ErrInvalidEventType 无效的事件类型
	ErrInvalidEventType = errors.New("invalid event type")
	// ErrNonPointerType 订阅或发射时传入了非指针类型
	ErrNonPointerType = errors.New("event type must be a pointer")
	// ErrEmitterClosed 发射器已关闭
	ErrEmitterClosed = errors.New("event emitter closed")
)

// ============================================================================
// Bus 实现
// ============================================================================

// 接口实现检查
var _ pkgif.EventBus = (*Bus)(nil)

// Bus 事件总线
//
// 按事件类型路由：交换层以 types.EvtChannelOpened、
// types.EvtChannelClosed、types.EvtPeerFailed 等事件通知上层。
// 投递非阻塞，慢消费者的事件被丢弃并周期性告警。
type Bus struct {
	mu sync.RWMutex

	// nodes 事件类型节点映射
	nodes map[reflect.Type]*node
}

// node 单个事件类型的路由节点
type node struct {
	lk        sync.Mutex
	typ       reflect.Type
	sinks     []*Subscription
	nEmitters atomic.Int32
	dropCount atomic.Int64
}

// NewBus 创建新的事件总线
func NewBus() *Bus {
	return &Bus{
		nodes: make(map[reflect.Type]*node),
	}
}

// ============================================================================
// EventBus 接口实现
// ============================================================================

// Subscribe 订阅事件
//
// eventType 为事件类型的指针，如 new(types.EvtChannelClosed)。
func (b *Bus) Subscribe(eventType interface{}, opts ...pkgif.SubscriptionOpt) (pkgif.Subscription, error) {
	elemType, err := elemTypeOf(eventType)
	if err != nil {
		return nil, err
	}

	settings := &pkgif.SubscriptionSettings{
		Buffer: 16,
	}
	for _, opt := range opts {
		opt(settings)
	}

	sub := &Subscription{
		bus: b,
		typ: elemType,
		out: make(chan interface{}, settings.Buffer),
	}

	b.withNode(elemType, func(n *node) {
		n.sinks = append(n.sinks, sub)
	})

	return sub, nil
}

// Emitter 获取指定事件类型的发射器
func (b *Bus) Emitter(eventType interface{}) (pkgif.EventEmitter, error) {
	elemType, err := elemTypeOf(eventType)
	if err != nil {
		return nil, err
	}

	var n *node
	b.withNode(elemType, func(found *node) {
		n = found
		n.nEmitters.Add(1)
	})

	return &Emitter{
		bus:  b,
		node: n,
		typ:  elemType,
	}, nil
}

// elemTypeOf 解析事件类型指针的元素类型
func elemTypeOf(eventType interface{}) (reflect.Type, error) {
	if eventType == nil {
		return nil, ErrInvalidEventType
	}
	typ := reflect.TypeOf(eventType)
	if typ.Kind() != reflect.Ptr {
		return nil, ErrNonPointerType
	}
	return typ.Elem(), nil
}

// ============================================================================
// 内部方法
// ============================================================================

// withNode 获取或创建类型节点并在其上执行操作
func (b *Bus) withNode(typ reflect.Type, cb func(*node)) {
	b.mu.Lock()

	n, ok := b.nodes[typ]
	if !ok {
		n = &node{
			typ:   typ,
			sinks: make([]*Subscription, 0),
		}
		b.nodes[typ] = n
	}

	n.lk.Lock()
	b.mu.Unlock()

	cb(n)
	n.lk.Unlock()
}

// tryDropNode 在没有订阅者和发射器时删除节点
func (b *Bus) tryDropNode(typ reflect.Type) {
	b.mu.Lock()
	n, ok := b.nodes[typ]
	if !ok {
		b.mu.Unlock()
		return
	}

	n.lk.Lock()
	if len(n.sinks) > 0 || n.nEmitters.Load() > 0 {
		n.lk.Unlock()
		b.mu.Unlock()
		return
	}
	n.lk.Unlock()

	delete(b.nodes, typ)
	b.mu.Unlock()
}

// removeSub 移除订阅
func (b *Bus) removeSub(sub *Subscription) {
	b.mu.Lock()
	n, ok := b.nodes[sub.typ]
	if !ok {
		b.mu.Unlock()
		return
	}

	n.lk.Lock()
	b.mu.Unlock()

	for i, s := range n.sinks {
		if s == sub {
			n.sinks = append(n.sinks[:i], n.sinks[i+1:]...)
			break
		}
	}

	shouldDrop := len(n.sinks) == 0 && n.nEmitters.Load() == 0
	n.lk.Unlock()

	if shouldDrop {
		b.tryDropNode(sub.typ)
	}
}

// emit 发射事件到所有订阅者
func (n *node) emit(event interface{}) {
	n.lk.Lock()
	defer n.lk.Unlock()

	for _, sub := range n.sinks {
		select {
		case sub.out <- event:
		default:
			// 缓冲区满，丢弃事件
			dropped := n.dropCount.Add(1)

			// 每丢弃 100 个事件警告一次，避免日志泛滥
			if dropped%100 == 1 {
				logger.Warn("慢消费者检测",
					"dropped", dropped,
					"type", n.typ.String(),
					"reason", "subscriber buffer full")
			}
		}
	}
}
