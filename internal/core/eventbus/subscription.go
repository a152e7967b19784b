// Package eventbus 实现事件总线
package eventbus

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
)

// ============================================================================
// Subscription 实现
// ============================================================================

// Subscription 订阅
type Subscription struct {
	bus       *Bus
	typ       reflect.Type
	out       chan interface{}
	closeOnce sync.Once
	closed    atomic.Bool
}

// Out 返回事件通道
func (s *Subscription) Out() <-chan interface{} {
	return s.out
}

// Close 取消订阅
//
// 并发安全，可多次调用。关闭后：
//  1. 从总线移除订阅
//  2. 后台排空通道，防止阻塞发射者
//  3. 关闭通道
func (s *Subscription) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)

		s.bus.removeSub(s)

		go func() {
			for range s.out {
				// 丢弃剩余事件
			}
		}()

		close(s.out)
	})

	return nil
}

// ============================================================================
// Emitter 实现
// ============================================================================

// Emitter 事件发射器
type Emitter struct {
	bus       *Bus
	node      *node
	typ       reflect.Type
	closed    atomic.Bool
	closeOnce sync.Once
}

// Emit 发射事件
//
// 事件须为发射器绑定类型的值（非指针）。
func (e *Emitter) Emit(event interface{}) error {
	if e.closed.Load() {
		return ErrEmitterClosed
	}
	if et := reflect.TypeOf(event); et != e.typ {
		return fmt.Errorf("%w: emit %v on emitter of %v", ErrInvalidEventType, et, e.typ)
	}

	e.node.emit(event)
	return nil
}

// Close 关闭发射器
//
// 减少节点的发射器引用计数，计数归零且无订阅者时删除节点。
func (e *Emitter) Close() error {
	e.closeOnce.Do(func() {
		e.closed.Store(true)

		if e.node.nEmitters.Add(-1) == 0 {
			e.bus.tryDropNode(e.typ)
		}
	})

	return nil
}
