// Package integration 提供真实 TCP 套接字的集成测试
//
// 本文件覆盖 TCP 建组路径：
//   - 本机三节点全网格建组与全交换
//   - 运行标识不一致时握手拒绝
package integration

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowmesh/go-flowmesh"
	"github.com/flowmesh/go-flowmesh/tests/testutil"
)

// ============================================================================
//                              测试场景 1: TCP 全交换
// ============================================================================

// TestTCPClusterShuffle 测试本机 TCP 三节点全交换
//
// 场景：三个节点经 127.0.0.1 TCP 全网格建组，执行两轮全交换
// 预期：与内存管道行为一致，且跨连接流量计入带宽统计
func TestTCPClusterShuffle(t *testing.T) {
	workers := testutil.StartTCPCluster(t, 3)
	payload := testutil.MakeBlock(11, testutil.DefaultBlockSize)

	for round := 0; round < 2; round++ {
		id := testutil.RunShuffleRound(t, workers, 3, payload)
		require.EqualValues(t, round, id)
	}

	for i, w := range workers {
		require.EqualValues(t, i, w.Rank())
		require.Equal(t, 3, w.ClusterSize())

		stats := w.Stats()
		assert.Equal(t, 2, stats.ChannelsClosed, "节点 %d", i)
		assert.False(t, stats.Degraded, "节点 %d", i)

		// 每轮向 2 个远端各发 3 块，跨连接流量必须非零
		bw := w.BandwidthTotals()
		assert.NotZero(t, bw.BytesSent, "节点 %d 发送流量", i)
		assert.NotZero(t, bw.BytesRecv, "节点 %d 接收流量", i)
		assert.EqualValues(t, 2*2*3, bw.BlocksSent, "节点 %d 发送块数", i)

		// 按对端细分的统计之和应等于总量
		var perPeerSent uint64
		for _, snap := range w.BandwidthByPeer() {
			perPeerSent += snap.BytesSent
		}
		assert.Equal(t, bw.BytesSent, perPeerSent, "节点 %d 分对端统计", i)
	}

	t.Log("✅ TCP 三节点全交换完成")
}

// ============================================================================
//                              测试场景 2: 握手拒绝
// ============================================================================

// TestTCPRunIDMismatch 测试运行标识不一致时建组失败
//
// 场景：两个节点使用不同的运行标识建组
// 预期：监听方以 ErrRunMismatch 拒绝，拨号方握手失败，双方启动都报错
func TestTCPRunIDMismatch(t *testing.T) {
	peers := testutil.FreePorts(t, 2)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			w, err := flowmesh.Start(context.Background(),
				flowmesh.WithRank(i),
				flowmesh.WithPeers(peers...),
				flowmesh.WithRunID(flowmesh.NewRunID()), // 各自生成，必然不同
			)
			if err == nil {
				_ = w.Close()
			}
			errs[i] = err
		}()
	}
	wg.Wait()

	require.Error(t, errs[0], "监听方应拒绝握手")
	require.Error(t, errs[1], "拨号方应握手失败")
	assert.ErrorIs(t, errs[0], flowmesh.ErrRunMismatch)

	t.Log("✅ 运行标识不一致被拒绝")
}
