package mux

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/flowmesh/go-flowmesh/internal/core/bandwidth"
	"github.com/flowmesh/go-flowmesh/internal/core/dispatch"
	"github.com/flowmesh/go-flowmesh/internal/core/group"
	pkgif "github.com/flowmesh/go-flowmesh/pkg/interfaces"
	"github.com/flowmesh/go-flowmesh/pkg/types"
)

// ============================================================================
//                              测试辅助
// ============================================================================

// testConfig 返回测试用配置，关闭空闲监视保证确定性
func testConfig() Config {
	return Config{
		MaxBlockSize: 1 << 20,
		Liveness:     LivenessConfig{Enabled: false},
	}
}

// testNode 单个测试节点：多路复用器加独立调度器
type testNode struct {
	mux *Multiplexer
	d   *dispatch.Dispatcher
}

// newTestCluster 创建 n 个经进程内管道互联的节点
func newTestCluster(t *testing.T, n int, cfg Config, opts ...Option) []*testNode {
	t.Helper()

	meshes := group.NewMemCluster(n)
	nodes := make([]*testNode, n)
	for i := range nodes {
		d := dispatch.New(dispatch.DefaultConfig())
		m := New(cfg, d, opts...)
		if err := m.Connect(meshes[i]); err != nil {
			t.Fatalf("node %d: Connect() error = %v", i, err)
		}
		nodes[i] = &testNode{mux: m, d: d}
	}

	t.Cleanup(func() {
		for _, node := range nodes {
			node.mux.Close()
			node.d.Close()
		}
	})
	return nodes
}

// waitDone 等待缓冲链进入终态
func waitDone(t *testing.T, c pkgif.BufferChain) {
	t.Helper()
	select {
	case <-c.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("chain did not reach terminal state in time")
	}
}

// waitFor 轮询等待条件成立
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

// blockIndex 返回内容等于 want 的数据块下标，找不到返回 -1
func blockIndex(blocks [][]byte, want []byte) int {
	for i, b := range blocks {
		if bytes.Equal(b, want) {
			return i
		}
	}
	return -1
}

// closeAll 关闭一组发射器
func closeAll(t *testing.T, emitters []pkgif.BlockEmitter) {
	t.Helper()
	for _, e := range emitters {
		if err := e.Close(); err != nil {
			t.Fatalf("emitter Close() error = %v", err)
		}
	}
}

// stubBus 记录全部发射事件的事件总线桩
type stubBus struct {
	mu     sync.Mutex
	events []types.Event
}

func (b *stubBus) Subscribe(interface{}, ...pkgif.SubscriptionOpt) (pkgif.Subscription, error) {
	return nil, errors.New("not implemented")
}

func (b *stubBus) Emitter(interface{}) (pkgif.EventEmitter, error) {
	return &stubEmitter{bus: b}, nil
}

func (b *stubBus) snapshot() []types.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]types.Event(nil), b.events...)
}

type stubEmitter struct{ bus *stubBus }

func (e *stubEmitter) Emit(evt interface{}) error {
	e.bus.mu.Lock()
	defer e.bus.mu.Unlock()
	e.bus.events = append(e.bus.events, evt.(types.Event))
	return nil
}

func (e *stubEmitter) Close() error { return nil }

// ============================================================================
//                              连接前置条件测试
// ============================================================================

// 测试未连接时打开通道被拒绝
func TestMultiplexer_NotConnected(t *testing.T) {
	m := New(testConfig(), dispatch.New(dispatch.DefaultConfig()))

	if _, err := m.OpenChannel(0); !errors.Is(err, ErrNotConnected) {
		t.Errorf("OpenChannel() error = %v, want ErrNotConnected", err)
	}
	if m.HasChannel(0) {
		t.Error("HasChannel(0) should be false before Connect")
	}
	if err := m.Close(); err != nil {
		t.Errorf("Close() before Connect error = %v, want nil", err)
	}
}

// 测试重复连接与空节点组被拒绝
func TestMultiplexer_ConnectErrors(t *testing.T) {
	nodes := newTestCluster(t, 1, testConfig())

	if err := nodes[0].mux.Connect(group.NewMemCluster(1)[0]); !errors.Is(err, ErrAlreadyConnected) {
		t.Errorf("second Connect() error = %v, want ErrAlreadyConnected", err)
	}
	if err := New(testConfig(), nodes[0].d).Connect(nil); !errors.Is(err, ErrNilGroup) {
		t.Errorf("Connect(nil) error = %v, want ErrNilGroup", err)
	}
}

// ============================================================================
//                              查询与分配测试
// ============================================================================

// 测试从未引用的通道 ID 无任何痕迹
func TestMultiplexer_NeverReferenced(t *testing.T) {
	nodes := newTestCluster(t, 1, testConfig())

	if nodes[0].mux.HasChannel(42) {
		t.Error("HasChannel(42) = true for never-referenced id")
	}
	if nodes[0].mux.HasData(42) {
		t.Error("HasData(42) = true for never-referenced id")
	}
}

// 测试 AccessData 创建缓冲链但不创建通道对象
func TestMultiplexer_AccessDataCreatesChain(t *testing.T) {
	nodes := newTestCluster(t, 1, testConfig())
	m := nodes[0].mux

	c := m.AccessData(7)
	if c == nil {
		t.Fatal("AccessData(7) returned nil")
	}
	if c.Len() != 0 {
		t.Errorf("fresh chain Len() = %d, want 0", c.Len())
	}
	if !m.HasData(7) {
		t.Error("HasData(7) should be true after AccessData")
	}
	if m.HasChannel(7) {
		t.Error("HasChannel(7) should remain false, only the chain exists")
	}
}

// 测试 ID 分配严格递增且从零开始
func TestMultiplexer_AllocateNext(t *testing.T) {
	nodes := newTestCluster(t, 1, testConfig())
	m := nodes[0].mux

	for want := types.ChannelID(0); want < 5; want++ {
		if got := m.AllocateNext(); got != want {
			t.Fatalf("AllocateNext() = %s, want %s", got, want)
		}
	}
}

// ============================================================================
//                              通道打开测试
// ============================================================================

// 测试重复打开同一通道被拒绝
func TestMultiplexer_OpenChannelTwice(t *testing.T) {
	nodes := newTestCluster(t, 1, testConfig())
	m := nodes[0].mux

	id := m.AllocateNext()
	if _, err := m.OpenChannel(id); err != nil {
		t.Fatalf("first OpenChannel() error = %v", err)
	}
	if _, err := m.OpenChannel(id); !errors.Is(err, ErrChannelAlreadyOpen) {
		t.Errorf("second OpenChannel() error = %v, want ErrChannelAlreadyOpen", err)
	}
}

// 测试单节点纯环回通道的完整生命周期
func TestMultiplexer_SingleNodeLoopback(t *testing.T) {
	nodes := newTestCluster(t, 1, testConfig())
	m := nodes[0].mux

	id := m.AllocateNext()
	emitters, err := m.OpenChannel(id)
	if err != nil {
		t.Fatalf("OpenChannel() error = %v", err)
	}
	if len(emitters) != 1 {
		t.Fatalf("got %d emitters, want 1", len(emitters))
	}
	if !m.HasChannel(id) {
		t.Error("HasChannel should be true after OpenChannel")
	}

	emitters[0].Emit([]byte("alpha"))
	emitters[0].Emit([]byte("beta"))
	closeAll(t, emitters)

	c := m.AccessData(id)
	waitDone(t, c)
	if !c.Completed() {
		t.Error("chain should be completed")
	}
	if c.Len() != 2 {
		t.Errorf("chain Len() = %d, want 2", c.Len())
	}
	blocks := c.Blocks()
	if !bytes.Equal(blocks[0], []byte("alpha")) || !bytes.Equal(blocks[1], []byte("beta")) {
		t.Errorf("loopback order broken: %q", blocks)
	}
}

// ============================================================================
//                              双节点交换测试
// ============================================================================

// 测试同一连接上的数据块保持发射顺序
func TestMultiplexer_RemoteOrderPreserved(t *testing.T) {
	nodes := newTestCluster(t, 2, testConfig())

	id0 := nodes[0].mux.AllocateNext()
	id1 := nodes[1].mux.AllocateNext()
	if id0 != id1 {
		t.Fatalf("lockstep allocation broken: %s vs %s", id0, id1)
	}

	em0, err := nodes[0].mux.OpenChannel(id0)
	if err != nil {
		t.Fatalf("node 0 OpenChannel() error = %v", err)
	}
	em1, err := nodes[1].mux.OpenChannel(id1)
	if err != nil {
		t.Fatalf("node 1 OpenChannel() error = %v", err)
	}

	// 节点 0 按序向节点 1 发送三个数据块
	for _, payload := range []string{"o1", "o2", "o3"} {
		if err := em0[1].Emit([]byte(payload)); err != nil {
			t.Fatalf("Emit(%s) error = %v", payload, err)
		}
	}
	closeAll(t, em0)
	closeAll(t, em1)

	c := nodes[1].mux.AccessData(id1)
	waitDone(t, c)
	if !c.Completed() {
		t.Fatalf("chain failed: %v", c.Err())
	}

	blocks := c.Blocks()
	i1 := blockIndex(blocks, []byte("o1"))
	i2 := blockIndex(blocks, []byte("o2"))
	i3 := blockIndex(blocks, []byte("o3"))
	if i1 < 0 || i2 < 0 || i3 < 0 {
		t.Fatalf("blocks missing: %q", blocks)
	}
	if !(i1 < i2 && i2 < i3) {
		t.Errorf("per-connection order broken: indexes %d, %d, %d", i1, i2, i3)
	}
}

// 测试远端结束标记先于本地打开到达时通道対象已实例化
func TestMultiplexer_RemoteHeaderInstantiatesChannel(t *testing.T) {
	nodes := newTestCluster(t, 2, testConfig())

	id0 := nodes[0].mux.AllocateNext()
	nodes[1].mux.AllocateNext()

	// 节点 0 打开并立即关闭，只发出结束标记
	em0, err := nodes[0].mux.OpenChannel(id0)
	if err != nil {
		t.Fatalf("OpenChannel() error = %v", err)
	}
	closeAll(t, em0)

	// 节点 1 尚未打开，但远端头部到达后通道对象应已创建
	waitFor(t, func() bool { return nodes[1].mux.HasChannel(id0) },
		"remote end marker should instantiate the channel")

	c1 := nodes[1].mux.AccessData(id0)
	if c1.Completed() {
		t.Error("chain must not complete before the local loopback close")
	}

	// 节点 1 打开并关闭后双方通道都应关闭
	em1, err := nodes[1].mux.OpenChannel(id0)
	if err != nil {
		t.Fatalf("node 1 OpenChannel() error = %v", err)
	}
	closeAll(t, em1)

	waitDone(t, c1)
	waitDone(t, nodes[0].mux.AccessData(id0))
	if !c1.Completed() {
		t.Errorf("chain failed: %v", c1.Err())
	}
}

// 测试带宽计数只统计网络流量，不含环回
func TestMultiplexer_BandwidthCounting(t *testing.T) {
	bwc0 := bandwidth.NewCounter(bandwidth.Config{Enabled: true, TrackByPeer: true})
	bwc1 := bandwidth.NewCounter(bandwidth.Config{Enabled: true, TrackByPeer: true})

	meshes := group.NewMemCluster(2)
	d0 := dispatch.New(dispatch.DefaultConfig())
	d1 := dispatch.New(dispatch.DefaultConfig())
	m0 := New(testConfig(), d0, WithBandwidth(bwc0))
	m1 := New(testConfig(), d1, WithBandwidth(bwc1))
	t.Cleanup(func() {
		m0.Close()
		m1.Close()
		d0.Close()
		d1.Close()
	})
	if err := m0.Connect(meshes[0]); err != nil {
		t.Fatal(err)
	}
	if err := m1.Connect(meshes[1]); err != nil {
		t.Fatal(err)
	}

	id := m0.AllocateNext()
	m1.AllocateNext()

	em0, _ := m0.OpenChannel(id)
	em1, _ := m1.OpenChannel(id)

	em0[0].Emit([]byte("loopback-not-counted"))
	em0[1].Emit([]byte("12345678")) // 8 字节载荷走网络
	closeAll(t, em0)
	closeAll(t, em1)

	waitDone(t, m0.AccessData(id))
	waitDone(t, m1.AccessData(id))

	if got := bwc0.Totals().BytesSent; got != 8 {
		t.Errorf("node 0 BytesSent = %d, want 8 (loopback must not count)", got)
	}
	waitFor(t, func() bool { return bwc1.Totals().BytesRecv == 8 },
		"node 1 should count 8 received bytes")
	if got := bwc1.ForPeer(0).BytesRecv; got != 8 {
		t.Errorf("node 1 per-peer BytesRecv = %d, want 8", got)
	}
}

// ============================================================================
//                              三节点场景测试
// ============================================================================

// 测试三个节点对同一通道的全互联交换：每个节点的缓冲链
// 最终包含三个来源各一个数据块，通道全部正常关闭
func TestMultiplexer_ThreeWorkerExchange(t *testing.T) {
	nodes := newTestCluster(t, 3, testConfig())

	ids := make([]types.ChannelID, 3)
	for i, node := range nodes {
		ids[i] = node.mux.AllocateNext()
	}
	if ids[0] != ids[1] || ids[1] != ids[2] {
		t.Fatalf("lockstep allocation broken: %v", ids)
	}
	id := ids[0]

	// 每个节点向全部参与方（含自身）各发一个带来源标记的数据块
	for i, node := range nodes {
		emitters, err := node.mux.OpenChannel(id)
		if err != nil {
			t.Fatalf("node %d OpenChannel() error = %v", i, err)
		}
		payload := []byte(fmt.Sprintf("from-%d", i))
		for _, e := range emitters {
			if err := e.Emit(payload); err != nil {
				t.Fatalf("node %d Emit() error = %v", i, err)
			}
		}
		closeAll(t, emitters)
	}

	for i, node := range nodes {
		c := node.mux.AccessData(id)
		waitDone(t, c)
		if !c.Completed() {
			t.Fatalf("node %d chain failed: %v", i, c.Err())
		}
		if c.Len() != 3 {
			t.Errorf("node %d chain Len() = %d, want 3", i, c.Len())
		}

		blocks := c.Blocks()
		for origin := 0; origin < 3; origin++ {
			if blockIndex(blocks, []byte(fmt.Sprintf("from-%d", origin))) < 0 {
				t.Errorf("node %d chain missing block from origin %d: %q", i, origin, blocks)
			}
		}
	}

	// 全部通道正常关闭后统计一致
	for i, node := range nodes {
		waitFor(t, func() bool { return node.mux.Stats().ChannelsClosed == 1 },
			fmt.Sprintf("node %d should count 1 closed channel", i))
		if s := node.mux.Stats(); s.ChannelsOpen != 0 || s.ChannelsFailed != 0 {
			t.Errorf("node %d stats = %+v, want 0 open / 0 failed", i, s)
		}
	}
}

// ============================================================================
//                              故障路径测试
// ============================================================================

// 测试头部声明超限载荷视为协议违规，接收侧降级
func TestMultiplexer_ProtocolViolation(t *testing.T) {
	cfg := testConfig()
	cfg.MaxBlockSize = 1024
	nodes := newTestCluster(t, 2, cfg)

	id := nodes[0].mux.AllocateNext()
	nodes[1].mux.AllocateNext()

	if _, err := nodes[1].mux.OpenChannel(id); err != nil {
		t.Fatalf("node 1 OpenChannel() error = %v", err)
	}
	em0, err := nodes[0].mux.OpenChannel(id)
	if err != nil {
		t.Fatalf("node 0 OpenChannel() error = %v", err)
	}

	// 超过接收侧上限的数据块
	if err := em0[1].Emit(make([]byte, 2048)); err != nil {
		t.Fatalf("Emit() error = %v", err)
	}

	c1 := nodes[1].mux.AccessData(id)
	waitDone(t, c1)
	if !c1.Failed() {
		t.Fatal("chain should fail on protocol violation")
	}
	if !errors.Is(c1.Err(), ErrPeerFailed) {
		t.Errorf("chain Err() = %v, want ErrPeerFailed", c1.Err())
	}

	waitFor(t, func() bool { return nodes[1].mux.Stats().Degraded },
		"node 1 should be degraded")

	// 降级后不再接受新通道
	next := nodes[1].mux.AllocateNext()
	if _, err := nodes[1].mux.OpenChannel(next); !errors.Is(err, ErrDegraded) {
		t.Errorf("OpenChannel() after degrade error = %v, want ErrDegraded", err)
	}
}

// 测试对端在结束标记前断开时本端通道快速失败
func TestMultiplexer_PeerDisconnect(t *testing.T) {
	nodes := newTestCluster(t, 2, testConfig())

	id := nodes[0].mux.AllocateNext()
	nodes[1].mux.AllocateNext()

	if _, err := nodes[0].mux.OpenChannel(id); err != nil {
		t.Fatalf("OpenChannel() error = %v", err)
	}

	// 节点 1 直接关闭，不发送任何结束标记
	nodes[1].mux.Close()

	c0 := nodes[0].mux.AccessData(id)
	waitDone(t, c0)
	if !c0.Failed() {
		t.Fatal("chain should fail after peer disconnect")
	}
	if !errors.Is(c0.Err(), ErrPeerFailed) {
		t.Errorf("chain Err() = %v, want ErrPeerFailed", c0.Err())
	}

	waitFor(t, func() bool {
		s := nodes[0].mux.Stats()
		return s.Degraded && s.ChannelsFailed == 1
	}, "node 0 should be degraded with 1 failed channel")
}

// 测试关闭交换层使未终结通道以 ErrClosed 失败
func TestMultiplexer_CloseFailsOpenChannels(t *testing.T) {
	nodes := newTestCluster(t, 2, testConfig())
	m := nodes[0].mux

	id := m.AllocateNext()
	if _, err := m.OpenChannel(id); err != nil {
		t.Fatalf("OpenChannel() error = %v", err)
	}

	if err := m.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	c := m.AccessData(id)
	waitDone(t, c)
	if !errors.Is(c.Err(), ErrClosed) {
		t.Errorf("chain Err() = %v, want ErrClosed", c.Err())
	}
	if err := m.Close(); err != nil {
		t.Errorf("second Close() error = %v, want nil", err)
	}
}

// 测试关闭后重连：ID 序列不回退，已有数据保持可读
func TestMultiplexer_ReconnectAfterClose(t *testing.T) {
	d := dispatch.New(dispatch.DefaultConfig())
	t.Cleanup(func() { d.Close() })
	m := New(testConfig(), d)

	if err := m.Connect(group.NewMemCluster(1)[0]); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	id0 := m.AllocateNext()
	em, err := m.OpenChannel(id0)
	if err != nil {
		t.Fatalf("OpenChannel() error = %v", err)
	}
	em[0].Emit([]byte("kept"))
	closeAll(t, em)
	waitDone(t, m.AccessData(id0))

	if err := m.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if err := m.Connect(group.NewMemCluster(1)[0]); err != nil {
		t.Fatalf("reconnect error = %v", err)
	}
	t.Cleanup(func() { m.Close() })

	if got := m.AllocateNext(); got != id0+1 {
		t.Errorf("AllocateNext() after reconnect = %s, want %s", got, id0+1)
	}
	if c := m.AccessData(id0); c.Len() != 1 {
		t.Errorf("old chain Len() = %d, data should survive reconnect", c.Len())
	}
	if m.Stats().Degraded {
		t.Error("reconnect should clear degraded state")
	}
}

// ============================================================================
//                              事件发布测试
// ============================================================================

// 测试通道打开与关闭事件的发布
func TestMultiplexer_Events(t *testing.T) {
	bus := &stubBus{}
	nodes := newTestCluster(t, 1, testConfig(), WithEventBus(bus))
	m := nodes[0].mux

	id := m.AllocateNext()
	em, err := m.OpenChannel(id)
	if err != nil {
		t.Fatalf("OpenChannel() error = %v", err)
	}
	em[0].Emit([]byte("payload"))
	closeAll(t, em)
	waitDone(t, m.AccessData(id))

	waitFor(t, func() bool { return len(bus.snapshot()) >= 2 },
		"expected open and close events")

	var opened *types.EvtChannelOpened
	var closed *types.EvtChannelClosed
	for _, evt := range bus.snapshot() {
		switch e := evt.(type) {
		case types.EvtChannelOpened:
			opened = &e
		case types.EvtChannelClosed:
			closed = &e
		}
	}

	if opened == nil {
		t.Fatal("EvtChannelOpened not published")
	}
	if opened.Channel != id || opened.Peers != 1 {
		t.Errorf("EvtChannelOpened = %+v", opened)
	}
	if closed == nil {
		t.Fatal("EvtChannelClosed not published")
	}
	if closed.Channel != id || closed.Failed || closed.Blocks != 1 || closed.Bytes != 7 {
		t.Errorf("EvtChannelClosed = %+v", closed)
	}
}

// ============================================================================
//                              空闲监视器测试
// ============================================================================

// 测试静默对端的告警产生与重新武装
func TestWatchdog_Check(t *testing.T) {
	mock := clock.NewMock()
	w := newWatchdog(mock, time.Second, 10*time.Second, func() bool { return true })

	w.touch(1)
	w.touch(2)

	// 未超过静默阈值，无告警
	mock.Add(5 * time.Second)
	if stalled := w.check(); len(stalled) != 0 {
		t.Errorf("check() = %v before idle threshold", stalled)
	}

	// 超过阈值后两个对端都告警，且只告警一次
	mock.Add(6 * time.Second)
	if stalled := w.check(); len(stalled) != 2 {
		t.Errorf("check() reported %d stalled peers, want 2", len(stalled))
	}
	if stalled := w.check(); len(stalled) != 0 {
		t.Errorf("repeated check() = %v, warning should fire once per episode", stalled)
	}

	// 收到数据后重新武装
	w.touch(1)
	mock.Add(11 * time.Second)
	stalled := w.check()
	if len(stalled) != 1 || stalled[0] != 1 {
		t.Errorf("check() after touch = %v, want [rank-1]", stalled)
	}
}

// 测试无未终结通道时不产生告警
func TestWatchdog_NoWorkNoWarn(t *testing.T) {
	mock := clock.NewMock()
	w := newWatchdog(mock, time.Second, time.Second, func() bool { return false })

	w.touch(1)
	mock.Add(time.Minute)
	if stalled := w.check(); stalled != nil {
		t.Errorf("check() = %v with no open channels", stalled)
	}
}

// 测试监视协程启动与停止不泄漏
func TestWatchdog_StartStop(t *testing.T) {
	mock := clock.NewMock()
	w := newWatchdog(mock, time.Second, time.Minute, func() bool { return false })

	w.start()
	time.Sleep(10 * time.Millisecond)
	mock.Add(3 * time.Second)

	done := make(chan struct{})
	go func() {
		w.stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stop() did not return")
	}
}
