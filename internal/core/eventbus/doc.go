// Package eventbus 实现进程内事件总线
//
// 提供类型安全的事件发布/订阅机制，交换层用它向上层通知
// 通道终态与对端失联，支持：
//   - 多订阅者
//   - 缓冲区配置
//   - 发射器引用计数
//   - 并发安全（慢消费者丢弃事件而不阻塞发射者）
//
// # 快速开始
//
//	// 创建总线
//	bus := eventbus.NewBus()
//
//	// 订阅通道终态事件
//	sub, _ := bus.Subscribe(new(types.EvtChannelClosed))
//	defer sub.Close()
//
//	go func() {
//	    for evt := range sub.Out() {
//	        e := evt.(types.EvtChannelClosed)
//	        // 处理事件
//	    }
//	}()
//
//	// 发射事件
//	em, _ := bus.Emitter(new(types.EvtChannelClosed))
//	defer em.Close()
//	em.Emit(types.EvtChannelClosed{...})
//
// # 并发安全
//
// EventBus 使用 sync.RWMutex 和 atomic 保证并发安全：
//   - 订阅/取消订阅：RWMutex 保护
//   - 发射器引用计数：atomic.Int32
//   - 通道关闭：closeOnce 防止重复
package eventbus
