package chain

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	pkgif "github.com/flowmesh/go-flowmesh/pkg/interfaces"
)

// ============================================================================
// 接口契约测试
// ============================================================================

// TestChain_ImplementsInterface 验证 Chain 实现消费侧接口
func TestChain_ImplementsInterface(t *testing.T) {
	var _ pkgif.BufferChain = (*Chain)(nil)
}

// ============================================================================
// 追加与读取测试
// ============================================================================

// TestChain_AppendOrder 测试数据块按追加顺序保留
func TestChain_AppendOrder(t *testing.T) {
	c := New(7)

	c.Append([]byte("alpha"))
	c.Append([]byte("beta"))
	c.Append([]byte("gamma"))

	blocks := c.Blocks()
	if len(blocks) != 3 {
		t.Fatalf("Blocks() length = %d, want 3", len(blocks))
	}
	want := [][]byte{[]byte("alpha"), []byte("beta"), []byte("gamma")}
	for i := range want {
		if !bytes.Equal(blocks[i], want[i]) {
			t.Errorf("Blocks()[%d] = %q, want %q", i, blocks[i], want[i])
		}
	}
	if c.Len() != 3 {
		t.Errorf("Len() = %d, want 3", c.Len())
	}
	if c.Bytes() != uint64(len("alpha")+len("beta")+len("gamma")) {
		t.Errorf("Bytes() = %d, want %d", c.Bytes(), len("alpha")+len("beta")+len("gamma"))
	}
}

// TestChain_SnapshotIsolation 测试快照不受后续追加影响
func TestChain_SnapshotIsolation(t *testing.T) {
	c := New(1)
	c.Append([]byte("a"))

	snapshot := c.Blocks()
	c.Append([]byte("b"))

	if len(snapshot) != 1 {
		t.Errorf("snapshot length = %d, want 1", len(snapshot))
	}
	if c.Len() != 2 {
		t.Errorf("Len() after append = %d, want 2", c.Len())
	}
}

// TestChain_ConcurrentAppendAndRead 测试并发追加与读取安全
func TestChain_ConcurrentAppendAndRead(t *testing.T) {
	c := New(1)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Append([]byte{byte(j)})
			}
		}()
	}
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = c.Blocks()
				_ = c.Bytes()
			}
		}()
	}
	wg.Wait()

	if c.Len() != 400 {
		t.Errorf("Len() = %d, want 400", c.Len())
	}
}

// ============================================================================
// 终态测试
// ============================================================================

// TestChain_MarkComplete 测试完成终态及通知
func TestChain_MarkComplete(t *testing.T) {
	c := New(2)
	c.Append([]byte("x"))

	select {
	case <-c.Done():
		t.Fatal("Done() closed before terminal state")
	default:
	}

	c.MarkComplete()

	if !c.Completed() {
		t.Error("Completed() = false after MarkComplete()")
	}
	if c.Failed() {
		t.Error("Failed() = true after MarkComplete()")
	}
	select {
	case <-c.Done():
	default:
		t.Error("Done() not closed after MarkComplete()")
	}

	// 幂等
	c.MarkComplete()
}

// TestChain_Fail 测试失败终态记录原因
func TestChain_Fail(t *testing.T) {
	c := New(2)
	cause := errors.New("peer vanished")

	c.Fail(cause)

	if !c.Failed() {
		t.Error("Failed() = false after Fail()")
	}
	if c.Completed() {
		t.Error("Completed() = true after Fail()")
	}
	if !errors.Is(c.Err(), cause) {
		t.Errorf("Err() = %v, want %v", c.Err(), cause)
	}
	select {
	case <-c.Done():
	default:
		t.Error("Done() not closed after Fail()")
	}
}

// TestChain_FirstTerminalWins 测试第一个终态生效
func TestChain_FirstTerminalWins(t *testing.T) {
	c := New(3)
	c.MarkComplete()
	c.Fail(errors.New("late failure"))

	if c.Failed() {
		t.Error("Failed() = true, complete state should win")
	}
	if c.Err() != nil {
		t.Errorf("Err() = %v, want nil", c.Err())
	}

	c2 := New(4)
	c2.Fail(errors.New("first failure"))
	c2.MarkComplete()

	if c2.Completed() {
		t.Error("Completed() = true, failed state should win")
	}
}

// TestChain_AppendAfterTerminal 测试终态后的追加被丢弃
func TestChain_AppendAfterTerminal(t *testing.T) {
	c := New(5)
	c.Append([]byte("kept"))
	c.MarkComplete()
	c.Append([]byte("dropped"))

	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

// TestChain_Stats 测试统计快照
func TestChain_Stats(t *testing.T) {
	c := New(9)
	c.Append([]byte("abcd"))
	c.MarkComplete()

	s := c.Stats()
	if s.Channel != 9 || s.Blocks != 1 || s.Bytes != 4 || !s.Completed || s.Failed {
		t.Errorf("Stats() = %+v, want {Channel: 9, Blocks: 1, Bytes: 4, Completed: true}", s)
	}
}
