package testutil

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/flowmesh/go-flowmesh"
	"github.com/flowmesh/go-flowmesh/pkg/types"
)

// StartMemCluster 启动 n 个经内存管道互联的工作节点
//
// 节点全部进入运行状态后返回，测试结束时自动关闭。
// 额外的选项追加到每个节点上。
//
// 示例:
//
//	workers := testutil.StartMemCluster(t, 3)
//	id, _ := workers[0].AllocateNext()
func StartMemCluster(t *testing.T, n int, extra ...flowmesh.Option) []*flowmesh.Worker {
	t.Helper()

	groups := flowmesh.NewMemCluster(n)
	workers := make([]*flowmesh.Worker, n)
	for i := range workers {
		opts := append([]flowmesh.Option{
			flowmesh.WithGroup(groups[i]),
			flowmesh.WithLivenessTimeout(0),
		}, extra...)

		w, err := flowmesh.Start(context.Background(), opts...)
		if err != nil {
			t.Fatalf("启动节点 %d 失败: %v", i, err)
		}
		workers[i] = w
	}

	t.Cleanup(func() {
		for _, w := range workers {
			_ = w.Close()
		}
	})
	return workers
}

// StartTCPCluster 启动 n 个经 127.0.0.1 TCP 套接字互联的工作节点
//
// 自动挑选空闲端口构建成员表，并发建组（建组会阻塞到全部握手完成）。
// 所有节点共享同一个运行标识，测试结束时自动关闭。
func StartTCPCluster(t *testing.T, n int, extra ...flowmesh.Option) []*flowmesh.Worker {
	t.Helper()

	peers := FreePorts(t, n)
	runID := flowmesh.NewRunID()

	workers := make([]*flowmesh.Worker, n)
	g, ctx := errgroup.WithContext(context.Background())
	for i := range workers {
		i := i
		g.Go(func() error {
			opts := append([]flowmesh.Option{
				flowmesh.WithRank(i),
				flowmesh.WithPeers(peers...),
				flowmesh.WithRunID(runID),
				flowmesh.WithLivenessTimeout(0),
			}, extra...)

			w, err := flowmesh.Start(ctx, opts...)
			if err != nil {
				return fmt.Errorf("node %d: %w", i, err)
			}
			workers[i] = w
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		// 先清理已启动的节点再失败
		for _, w := range workers {
			if w != nil {
				_ = w.Close()
			}
		}
		t.Fatalf("TCP 建组失败: %v", err)
	}

	t.Cleanup(func() {
		for _, w := range workers {
			_ = w.Close()
		}
	})
	return workers
}

// FreePorts 返回 n 个当前空闲的 127.0.0.1 监听地址
//
// 通过短暂监听 :0 让内核分配端口后立即释放。
// 端口在返回到实际使用之间理论上可能被抢占，本地测试可以接受。
func FreePorts(t *testing.T, n int) []string {
	t.Helper()

	addrs := make([]string, n)
	listeners := make([]net.Listener, n)
	for i := 0; i < n; i++ {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("获取空闲端口失败: %v", err)
		}
		listeners[i] = ln
		addrs[i] = ln.Addr().String()
	}
	for _, ln := range listeners {
		_ = ln.Close()
	}
	return addrs
}

// RunShuffleRound 在一组节点上并发执行一轮全交换
//
// 每个节点分配一个通道，向全部参与方发送 blocks 个载荷为
// payload 的数据块，等待本节点的缓冲链完成后校验块数。
// 返回本轮使用的通道 ID（所有节点必须分配到同一个 ID）。
func RunShuffleRound(t *testing.T, workers []*flowmesh.Worker, blocks int, payload []byte) types.ChannelID {
	t.Helper()

	n := len(workers)
	ids := make([]types.ChannelID, n)

	g, ctx := errgroup.WithContext(context.Background())
	for i, w := range workers {
		i, w := i, w
		g.Go(func() error {
			id, err := w.AllocateNext()
			if err != nil {
				return fmt.Errorf("node %d: %w", i, err)
			}
			ids[i] = id

			emitters, err := w.OpenChannel(id)
			if err != nil {
				return fmt.Errorf("node %d: %w", i, err)
			}
			for p, em := range emitters {
				for b := 0; b < blocks; b++ {
					if err := em.Emit(payload); err != nil {
						return fmt.Errorf("node %d: emit to %d: %w", i, p, err)
					}
				}
				if err := em.Close(); err != nil {
					return fmt.Errorf("node %d: close emitter %d: %w", i, p, err)
				}
			}

			chain, err := w.AccessData(id)
			if err != nil {
				return fmt.Errorf("node %d: %w", i, err)
			}
			select {
			case <-chain.Done():
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(30 * time.Second):
				return fmt.Errorf("node %d: chain timeout", i)
			}
			if chain.Failed() {
				return fmt.Errorf("node %d: chain failed: %w", i, chain.Err())
			}
			if got, want := chain.Len(), n*blocks; got != want {
				return fmt.Errorf("node %d: got %d blocks, want %d", i, got, want)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("全交换失败: %v", err)
	}
	for i, id := range ids {
		if id != ids[0] {
			t.Fatalf("通道 ID 不一致: node 0 = %d, node %d = %d", ids[0], i, id)
		}
	}
	return ids[0]
}
