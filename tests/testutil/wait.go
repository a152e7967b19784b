// Package testutil 提供测试辅助工具
package testutil

import (
	"context"
	"testing"
	"time"

	pkgif "github.com/flowmesh/go-flowmesh/pkg/interfaces"
)

// WaitForCondition 等待条件满足或超时
//
// 参数：
//   - t: 测试对象
//   - timeout: 超时时间
//   - interval: 检查间隔
//   - condition: 条件函数，返回 true 表示条件满足
//
// 返回：条件是否满足（超时返回 false）
func WaitForCondition(t *testing.T, timeout time.Duration, interval time.Duration, condition func() bool) bool {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// 立即检查一次
	if condition() {
		return true
	}

	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			if condition() {
				return true
			}
		}
	}
}

// WaitForConditionOrFail 等待条件满足，超时则 fail 测试
func WaitForConditionOrFail(t *testing.T, timeout time.Duration, interval time.Duration, condition func() bool, msg string) {
	t.Helper()

	if !WaitForCondition(t, timeout, interval, condition) {
		t.Fatalf("等待超时: %s", msg)
	}
}

// Eventually 在指定时间内重试条件检查
//
// 使用默认间隔 100ms。
//
// 示例:
//
//	testutil.Eventually(t, 10*time.Second, func() bool {
//	    return worker.HasData(0)
//	}, "应该收到数据")
func Eventually(t *testing.T, timeout time.Duration, condition func() bool, msg string) {
	t.Helper()
	WaitForConditionOrFail(t, timeout, 100*time.Millisecond, condition, msg)
}

// WaitForChain 等待缓冲链进入终态（完成或失败）
//
// 示例:
//
//	chain, _ := worker.AccessData(id)
//	testutil.WaitForChain(t, chain, 10*time.Second)
//	require.True(t, chain.Completed())
func WaitForChain(t *testing.T, chain pkgif.BufferChain, timeout time.Duration) {
	t.Helper()

	select {
	case <-chain.Done():
	case <-time.After(timeout):
		t.Fatalf("缓冲链未在 %v 内进入终态", timeout)
	}
}

// WaitForEvent 从订阅中读取下一个事件，超时则失败
//
// 示例:
//
//	e := testutil.WaitForEvent(t, sub, 5*time.Second)
//	evt := e.(types.EvtChannelClosed)
func WaitForEvent(t *testing.T, sub pkgif.Subscription, timeout time.Duration) interface{} {
	t.Helper()

	select {
	case e, ok := <-sub.Out():
		if !ok {
			t.Fatal("订阅已关闭")
		}
		return e
	case <-time.After(timeout):
		t.Fatalf("等待事件超时（%v）", timeout)
	}
	return nil
}
