package mux

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/flowmesh/go-flowmesh/pkg/types"
)

// ============================================================================
//                              空闲监视器
// ============================================================================

// watchdog 对端入向活动监视器
//
// 对端在发送结束标记前断开的情况由连接错误兜底，但对端进程
// 假死时连接不报错，通道会永远停在开放状态。监视器周期性检查
// 各对端的最近入向活动，在仍有未终结通道时对长时间静默的对端
// 发出告警日志。只告警，不改变任何通道状态。
type watchdog struct {
	clk      clock.Clock
	interval time.Duration
	idleWarn time.Duration

	// hasWork 报告是否存在未终结的通道
	hasWork func() bool

	mu     sync.Mutex
	last   map[types.Rank]time.Time
	warned map[types.Rank]bool

	quit chan struct{}
	done chan struct{}
}

// newWatchdog 创建监视器，须再调用 start 启动
func newWatchdog(clk clock.Clock, interval, idleWarn time.Duration, hasWork func() bool) *watchdog {
	return &watchdog{
		clk:      clk,
		interval: interval,
		idleWarn: idleWarn,
		hasWork:  hasWork,
		last:     make(map[types.Rank]time.Time),
		warned:   make(map[types.Rank]bool),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// touch 记录对端一次入向活动并清除其告警状态
func (w *watchdog) touch(peer types.Rank) {
	w.mu.Lock()
	w.last[peer] = w.clk.Now()
	w.warned[peer] = false
	w.mu.Unlock()
}

// start 启动周期检查协程
func (w *watchdog) start() {
	go func() {
		defer close(w.done)

		ticker := w.clk.Ticker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				for _, peer := range w.check() {
					logger.Warn("对端长时间无入向数据",
						"peer", peer,
						"idle", w.idleWarn.String())
				}
			case <-w.quit:
				return
			}
		}
	}()
}

// check 返回本轮新制造告警的对端
//
// 同一对端静默期间只告警一次，收到数据后重新武装。
func (w *watchdog) check() []types.Rank {
	if !w.hasWork() {
		return nil
	}

	now := w.clk.Now()

	w.mu.Lock()
	defer w.mu.Unlock()

	var stalled []types.Rank
	for peer, last := range w.last {
		if w.warned[peer] {
			continue
		}
		if now.Sub(last) >= w.idleWarn {
			w.warned[peer] = true
			stalled = append(stalled, peer)
		}
	}
	return stalled
}

// stop 停止检查协程并等待其退出
func (w *watchdog) stop() {
	close(w.quit)
	<-w.done
}
