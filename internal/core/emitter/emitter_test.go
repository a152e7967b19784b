package emitter

import (
	"bytes"
	"errors"
	"net"
	"testing"

	"github.com/flowmesh/go-flowmesh/internal/core/chain"
	"github.com/flowmesh/go-flowmesh/internal/core/wire"
	pkgif "github.com/flowmesh/go-flowmesh/pkg/interfaces"
	"github.com/flowmesh/go-flowmesh/pkg/types"
)

// ============================================================================
// 测试辅助
// ============================================================================

// recordDispatcher 记录入队帧的测试调度器
type recordDispatcher struct {
	frames [][]byte
}

func (d *recordDispatcher) AsyncWrite(_ pkgif.Connection, frame []byte) {
	d.frames = append(d.frames, frame)
}

func (d *recordDispatcher) AsyncRead(pkgif.Connection, int, pkgif.ReadCallback) {}
func (d *recordDispatcher) Post(task func())                                    { task() }
func (d *recordDispatcher) OnFailure(pkgif.FailureHandler)                      {}
func (d *recordDispatcher) Close() error                                        { return nil }

// nopConn 测试用空连接
type nopConn struct {
	peer types.Rank
}

func (n *nopConn) Read([]byte) (int, error)    { return 0, nil }
func (n *nopConn) Write(p []byte) (int, error) { return len(p), nil }
func (n *nopConn) Close() error                { return nil }
func (n *nopConn) LocalAddr() net.Addr         { return nil }
func (n *nopConn) RemoteAddr() net.Addr        { return nil }
func (n *nopConn) Peer() types.Rank            { return n.peer }

// ============================================================================
// SocketTarget 测试
// ============================================================================

// TestSocketTarget_EmitFramesBlock 测试数据块组帧入队
func TestSocketTarget_EmitFramesBlock(t *testing.T) {
	d := &recordDispatcher{}
	s := NewSocketTarget(d, &nopConn{peer: 2}, 7, nil)

	if err := s.Emit([]byte("hello")); err != nil {
		t.Fatalf("Emit() failed: %v", err)
	}

	if len(d.frames) != 1 {
		t.Fatalf("queued frames = %d, want 1", len(d.frames))
	}
	frame := d.frames[0]
	h, err := wire.ParseBlockHeader(frame[:wire.HeaderLen], 0)
	if err != nil {
		t.Fatalf("ParseBlockHeader() failed: %v", err)
	}
	if h.Channel != 7 || h.Length != 5 {
		t.Errorf("frame header = %+v, want {Length: 5, Channel: 7}", h)
	}
	if !bytes.Equal(frame[wire.HeaderLen:], []byte("hello")) {
		t.Errorf("frame payload = %q, want %q", frame[wire.HeaderLen:], "hello")
	}
}

// TestSocketTarget_EmitOrder 测试块按调用顺序入队
func TestSocketTarget_EmitOrder(t *testing.T) {
	d := &recordDispatcher{}
	s := NewSocketTarget(d, &nopConn{peer: 1}, 3, nil)

	for _, block := range []string{"i1", "i2", "i3"} {
		if err := s.Emit([]byte(block)); err != nil {
			t.Fatalf("Emit(%q) failed: %v", block, err)
		}
	}

	if len(d.frames) != 3 {
		t.Fatalf("queued frames = %d, want 3", len(d.frames))
	}
	for i, want := range []string{"i1", "i2", "i3"} {
		got := d.frames[i][wire.HeaderLen:]
		if !bytes.Equal(got, []byte(want)) {
			t.Errorf("frames[%d] payload = %q, want %q", i, got, want)
		}
	}
}

// TestSocketTarget_EmitCopiesBlock 测试 Emit 返回后调用方可复用缓冲
func TestSocketTarget_EmitCopiesBlock(t *testing.T) {
	d := &recordDispatcher{}
	s := NewSocketTarget(d, &nopConn{peer: 1}, 3, nil)

	block := []byte("original")
	if err := s.Emit(block); err != nil {
		t.Fatalf("Emit() failed: %v", err)
	}
	copy(block, "mutated!")

	got := d.frames[0][wire.HeaderLen:]
	if !bytes.Equal(got, []byte("original")) {
		t.Errorf("queued payload = %q, want %q (caller mutation leaked)", got, "original")
	}
}

// TestSocketTarget_CloseSendsEndMarker 测试 Close 发送结束标记头部
func TestSocketTarget_CloseSendsEndMarker(t *testing.T) {
	d := &recordDispatcher{}
	s := NewSocketTarget(d, &nopConn{peer: 2}, 7, nil)

	if err := s.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	if len(d.frames) != 1 {
		t.Fatalf("queued frames = %d, want 1", len(d.frames))
	}
	h, err := wire.ParseBlockHeader(d.frames[0], 0)
	if err != nil {
		t.Fatalf("ParseBlockHeader() failed: %v", err)
	}
	if !h.IsEnd() || h.Channel != 7 {
		t.Errorf("close frame header = %+v, want end marker for channel 7", h)
	}

	// 幂等：第二次 Close 不再发送
	if err := s.Close(); err != nil {
		t.Errorf("second Close() failed: %v", err)
	}
	if len(d.frames) != 1 {
		t.Errorf("queued frames after double close = %d, want 1", len(d.frames))
	}
}

// TestSocketTarget_EmitAfterClose 测试关闭后发送报错
func TestSocketTarget_EmitAfterClose(t *testing.T) {
	d := &recordDispatcher{}
	s := NewSocketTarget(d, &nopConn{peer: 2}, 7, nil)

	s.Close()
	err := s.Emit([]byte("late"))
	if !errors.Is(err, ErrEmitterClosed) {
		t.Errorf("Emit() after close error = %v, want ErrEmitterClosed", err)
	}
}

// TestSocketTarget_EmptyBlockRejected 测试空块被拒绝
func TestSocketTarget_EmptyBlockRejected(t *testing.T) {
	d := &recordDispatcher{}
	s := NewSocketTarget(d, &nopConn{peer: 2}, 7, nil)

	err := s.Emit(nil)
	if !errors.Is(err, ErrEmptyBlock) {
		t.Errorf("Emit(nil) error = %v, want ErrEmptyBlock", err)
	}
	if len(d.frames) != 0 {
		t.Errorf("queued frames = %d, want 0", len(d.frames))
	}
}

// TestSocketTarget_EmitHook 测试发送统计钩子
func TestSocketTarget_EmitHook(t *testing.T) {
	d := &recordDispatcher{}
	var total int
	s := NewSocketTarget(d, &nopConn{peer: 1}, 3, func(size int) { total += size })

	s.Emit([]byte("abcd"))
	s.Emit([]byte("ef"))
	s.Close()

	if total != 6 {
		t.Errorf("emit hook total = %d, want 6", total)
	}
}

// ============================================================================
// LoopbackTarget 测试
// ============================================================================

// TestLoopbackTarget_EmitAppendsDirectly 测试环回直接追加不组帧
func TestLoopbackTarget_EmitAppendsDirectly(t *testing.T) {
	target := chain.New(7)
	l := NewLoopbackTarget(target, func() {})

	if err := l.Emit([]byte("local")); err != nil {
		t.Fatalf("Emit() failed: %v", err)
	}

	blocks := target.Blocks()
	if len(blocks) != 1 || !bytes.Equal(blocks[0], []byte("local")) {
		t.Errorf("chain blocks = %q, want [local]", blocks)
	}
}

// TestLoopbackTarget_EmitCopiesBlock 测试追加前复制载荷
func TestLoopbackTarget_EmitCopiesBlock(t *testing.T) {
	target := chain.New(7)
	l := NewLoopbackTarget(target, func() {})

	block := []byte("original")
	l.Emit(block)
	copy(block, "mutated!")

	got := target.Blocks()[0]
	if !bytes.Equal(got, []byte("original")) {
		t.Errorf("chain block = %q, want %q (caller mutation leaked)", got, "original")
	}
}

// TestLoopbackTarget_CloseInvokesCloser 测试 Close 触发环回结束信号一次
func TestLoopbackTarget_CloseInvokesCloser(t *testing.T) {
	target := chain.New(7)
	var closerCalls int
	l := NewLoopbackTarget(target, func() { closerCalls++ })

	if err := l.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Errorf("second Close() failed: %v", err)
	}

	if closerCalls != 1 {
		t.Errorf("closer calls = %d, want 1", closerCalls)
	}
}

// TestLoopbackTarget_EmitAfterClose 测试关闭后发送报错
func TestLoopbackTarget_EmitAfterClose(t *testing.T) {
	target := chain.New(7)
	l := NewLoopbackTarget(target, func() {})

	l.Close()
	err := l.Emit([]byte("late"))
	if !errors.Is(err, ErrEmitterClosed) {
		t.Errorf("Emit() after close error = %v, want ErrEmitterClosed", err)
	}
	if target.Len() != 0 {
		t.Errorf("chain length = %d, want 0", target.Len())
	}
}

// TestLoopbackTarget_EmptyBlockRejected 测试空块被拒绝
func TestLoopbackTarget_EmptyBlockRejected(t *testing.T) {
	target := chain.New(7)
	l := NewLoopbackTarget(target, func() {})

	err := l.Emit([]byte{})
	if !errors.Is(err, ErrEmptyBlock) {
		t.Errorf("Emit(empty) error = %v, want ErrEmptyBlock", err)
	}
}
