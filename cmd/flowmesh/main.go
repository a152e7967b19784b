// Package main 提供 flowmesh 命令行入口
//
// 支持两种运行模式：
//   - 演示模式（默认）：单进程内启动多个经内存管道互联的节点，
//     执行全交换并打印统计报告，用于快速验证与压测。
//   - 集群模式（指定 -rank 与 -peers）：作为成员表中的一个节点
//     参与 TCP 全网格建组，与其余进程协同完成全交换。
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/flowmesh/go-flowmesh"
	"github.com/flowmesh/go-flowmesh/internal/core/bandwidth"
	"github.com/flowmesh/go-flowmesh/pkg/lib/log"
)

var logger = log.Logger("flowmesh/cmd")

// ═══════════════════════════════════════════════════════════════════════════
// 命令行参数
// ═══════════════════════════════════════════════════════════════════════════
//
// 配置边界：
//
//	命令行参数：运行时覆盖 / 快速测试（「这次运行」想怎么跑）
//	JSON 配置文件：持久化配置 / 长期运行（「这个节点」的固定配置）
//
// ═══════════════════════════════════════════════════════════════════════════
var (
	// ─────────────────────────────────────────────────────────────────────
	// 集群模式参数
	// ─────────────────────────────────────────────────────────────────────
	rank       = flag.Int("rank", -1, "本节点序号（-1 = 单进程演示模式）")
	peers      = flag.String("peers", "", "成员表，逗号分隔的 host:port（按序号排列）")
	listenAddr = flag.String("listen", "", "监听地址（默认取成员表中本节点的地址）")
	runID      = flag.String("run-id", "", "运行标识（同一批次的所有节点必须相同）")

	// ─────────────────────────────────────────────────────────────────────
	// 配置参数
	// ─────────────────────────────────────────────────────────────────────
	configFile = flag.String("config", "", "配置文件路径")
	preset     = flag.String("preset", "", "预设配置 (local/cluster/bench)")

	// ─────────────────────────────────────────────────────────────────────
	// 交换负载参数
	// ─────────────────────────────────────────────────────────────────────
	workers   = flag.Int("workers", 3, "演示模式的节点数量")
	channels  = flag.Int("channels", 4, "交换轮数（每轮一个通道）")
	blocks    = flag.Int("blocks", 8, "每个发射器每轮发送的数据块数")
	blockSize = flag.Int("block-bytes", 64*1024, "单个数据块的载荷字节数")

	// ─────────────────────────────────────────────────────────────────────
	// 日志参数
	// ─────────────────────────────────────────────────────────────────────
	logFile = flag.String("log", "", "日志文件路径")
	logDir  = flag.String("log-dir", "logs", "日志目录")
	autoLog = flag.Bool("auto-log", true, "自动生成日志文件")

	// ─────────────────────────────────────────────────────────────────────
	// 信息显示
	// ─────────────────────────────────────────────────────────────────────
	showVersion = flag.Bool("version", false, "显示版本信息")
	showHelp    = flag.Bool("help", false, "显示帮助信息")
)

// actualLogPath 实际使用的日志文件路径（用于输出显示）
var actualLogPath string

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flag.Parse()

	if *showVersion {
		printVersion()
		return nil
	}
	if *showHelp {
		printHelp()
		return nil
	}

	// 设置日志
	var logFileHandle *os.File
	var err error
	actualLogPath, logFileHandle, err = setupLogging()
	if err != nil {
		fmt.Fprintf(os.Stderr, "警告: %v\n", err)
		fmt.Fprintln(os.Stderr, "将继续使用控制台输出日志")
	}
	if logFileHandle != nil {
		defer func() { _ = logFileHandle.Close() }()
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("📦 %s\n", flowmesh.VersionInfo())
	logger.Info("flowmesh 启动", "version", flowmesh.Version, "commit", flowmesh.GitCommit)

	load := shuffleLoad{
		channels:  *channels,
		blocks:    *blocks,
		blockSize: *blockSize,
	}
	if err := load.validate(); err != nil {
		return err
	}

	if *rank < 0 {
		return runDemo(ctx, load)
	}
	return runClusterNode(ctx, load)
}

// signalContext 返回在 SIGINT/SIGTERM 时取消的上下文
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-signals:
			fmt.Println("\n收到退出信号，正在停止...")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// ═══════════════════════════════════════════════════════════════════════════
// 演示模式：单进程多节点
// ═══════════════════════════════════════════════════════════════════════════

// runDemo 在单进程内启动多个节点执行全交换
func runDemo(ctx context.Context, load shuffleLoad) error {
	n := *workers
	if n < 1 {
		return fmt.Errorf("workers must be at least 1: %d", n)
	}

	fmt.Printf("正在启动演示集群（%d 个节点，内存管道互联）...\n", n)

	groups := flowmesh.NewMemCluster(n)
	nodes := make([]*flowmesh.Worker, n)
	for i := range nodes {
		opts, err := commonOptions()
		if err != nil {
			return err
		}
		opts = append(opts, flowmesh.WithGroup(groups[i]))

		w, err := flowmesh.Start(ctx, opts...)
		if err != nil {
			return fmt.Errorf("启动节点 %d 失败: %w", i, err)
		}
		nodes[i] = w
	}
	defer func() {
		for _, w := range nodes {
			_ = w.Close()
		}
	}()

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	results := make([]shuffleResult, n)
	for i, w := range nodes {
		i, w := i, w
		g.Go(func() error {
			res, err := runShuffle(gctx, w, load)
			results[i] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("交换失败: %w", err)
	}
	elapsed := time.Since(start)

	printReport(nodes, results, elapsed)
	return nil
}

// ═══════════════════════════════════════════════════════════════════════════
// 集群模式：成员表中的单个节点
// ═══════════════════════════════════════════════════════════════════════════

// runClusterNode 作为成员表中的一个节点参与 TCP 全交换
func runClusterNode(ctx context.Context, load shuffleLoad) error {
	peerList := splitAndTrim(*peers, ",")
	if len(peerList) == 0 {
		return fmt.Errorf("cluster mode requires -peers")
	}
	if *rank >= len(peerList) {
		return fmt.Errorf("rank %d out of range for %d peers", *rank, len(peerList))
	}

	opts, err := commonOptions()
	if err != nil {
		return err
	}
	opts = append(opts,
		flowmesh.WithRank(*rank),
		flowmesh.WithPeers(peerList...),
	)
	if *listenAddr != "" {
		opts = append(opts, flowmesh.WithListenAddr(*listenAddr))
	}
	if id := resolveRunID(); id != "" {
		opts = append(opts, flowmesh.WithRunID(id))
	}

	fmt.Printf("正在加入集群（rank=%d, size=%d）...\n", *rank, len(peerList))

	w, err := flowmesh.Start(ctx, opts...)
	if err != nil {
		return fmt.Errorf("启动失败: %w", err)
	}
	defer func() { _ = w.Close() }()

	fmt.Printf("已建组：rank=%d size=%d\n", w.Rank(), w.ClusterSize())

	start := time.Now()
	res, err := runShuffle(ctx, w, load)
	if err != nil {
		return fmt.Errorf("交换失败: %w", err)
	}
	elapsed := time.Since(start)

	printReport([]*flowmesh.Worker{w}, []shuffleResult{res}, elapsed)
	return nil
}

// ═══════════════════════════════════════════════════════════════════════════
// 全交换负载
// ═══════════════════════════════════════════════════════════════════════════

// shuffleLoad 全交换负载参数
type shuffleLoad struct {
	channels  int // 轮数
	blocks    int // 每个发射器的数据块数
	blockSize int // 单块载荷字节数
}

func (l shuffleLoad) validate() error {
	if l.channels < 1 {
		return fmt.Errorf("channels must be at least 1: %d", l.channels)
	}
	if l.blocks < 1 {
		return fmt.Errorf("blocks must be at least 1: %d", l.blocks)
	}
	if l.blockSize < 1 {
		return fmt.Errorf("block-bytes must be at least 1: %d", l.blockSize)
	}
	return nil
}

// shuffleResult 单节点的交换结果
type shuffleResult struct {
	recvBlocks int
	recvBytes  uint64
}

// runShuffle 在单个节点上执行全部交换轮次
//
// 每轮分配一个通道，向全部参与方（含自身）发送 blocks 个数据块，
// 然后等待本节点收齐该通道的全部数据。所有节点按相同顺序分配通道，
// 保证通道 ID 全局一致。
func runShuffle(ctx context.Context, w *flowmesh.Worker, load shuffleLoad) (shuffleResult, error) {
	var res shuffleResult
	payload := make([]byte, load.blockSize)
	for i := range payload {
		payload[i] = byte(i)
	}

	for round := 0; round < load.channels; round++ {
		id, err := w.AllocateNext()
		if err != nil {
			return res, err
		}

		emitters, err := w.OpenChannel(id)
		if err != nil {
			return res, fmt.Errorf("channel %d: %w", id, err)
		}
		for p, em := range emitters {
			for b := 0; b < load.blocks; b++ {
				if err := em.Emit(payload); err != nil {
					return res, fmt.Errorf("channel %d: emit to %d: %w", id, p, err)
				}
			}
			if err := em.Close(); err != nil {
				return res, fmt.Errorf("channel %d: close emitter %d: %w", id, p, err)
			}
		}

		chain, err := w.AccessData(id)
		if err != nil {
			return res, err
		}
		select {
		case <-chain.Done():
		case <-ctx.Done():
			return res, ctx.Err()
		}
		if chain.Failed() {
			return res, fmt.Errorf("channel %d: %w", id, chain.Err())
		}

		res.recvBlocks += chain.Len()
		res.recvBytes += chain.Bytes()
		logger.Debug("交换轮次完成", "rank", w.Rank(), "channel", id,
			"blocks", chain.Len(), "bytes", chain.Bytes())
	}
	return res, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// 统计报告
// ═══════════════════════════════════════════════════════════════════════════

// printReport 打印交换统计报告
func printReport(nodes []*flowmesh.Worker, results []shuffleResult, elapsed time.Duration) {
	fmt.Println()
	fmt.Println("╔════════════════════════════════════════════════════════════════════════╗")
	fmt.Printf("║                    FlowMesh Shuffle Report (%s)                    ║\n", flowmesh.Version)
	fmt.Println("╠════════════════════════════════════════════════════════════════════════╣")

	var totalBytes uint64
	for i, w := range nodes {
		stats := w.Stats()
		bw := w.BandwidthTotals()
		totalBytes += results[i].recvBytes

		line := fmt.Sprintf("rank %-2d  recv %4d blocks / %-10s  closed %-3d  sent %-10s",
			w.Rank(), results[i].recvBlocks,
			bandwidth.FormatBytes(results[i].recvBytes),
			stats.ChannelsClosed,
			bandwidth.FormatBytes(bw.BytesSent))
		fmt.Printf("║  %-70s  ║\n", line)
	}

	fmt.Println("║                                                                        ║")
	rate := float64(totalBytes) / elapsed.Seconds()
	summary := fmt.Sprintf("total %s in %v (%s)",
		bandwidth.FormatBytes(totalBytes), elapsed.Round(time.Millisecond),
		bandwidth.FormatRate(rate))
	fmt.Printf("║  %-70s  ║\n", summary)

	if actualLogPath != "" {
		fmt.Printf("║  log: %-65s  ║\n", actualLogPath)
	}
	fmt.Println("╚════════════════════════════════════════════════════════════════════════╝")
	fmt.Println()
}

// ═══════════════════════════════════════════════════════════════════════════
// 日志与帮助
// ═══════════════════════════════════════════════════════════════════════════

// setupLogging 设置日志输出
//
// 根据配置自动创建日志文件，返回实际使用的日志路径。
// 如果禁用自动日志且未指定日志文件，返回空字符串（日志输出到 stderr）。
func setupLogging() (string, *os.File, error) {
	if !*autoLog && *logFile == "" {
		return "", nil, nil
	}

	logPath := *logFile
	if logPath == "" {
		prefix := "flowmesh"
		if *rank >= 0 {
			prefix = fmt.Sprintf("flowmesh-r%d", *rank)
		}
		timestamp := time.Now().Format("20060102-150405")
		logPath = filepath.Join(*logDir, fmt.Sprintf("%s-%s-%d.log", prefix, timestamp, os.Getpid()))
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0750); err != nil {
		return "", nil, fmt.Errorf("创建日志目录失败: %w", err)
	}

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return "", nil, fmt.Errorf("打开日志文件失败: %w", err)
	}

	log.SetOutput(file)
	return logPath, file, nil
}

// printVersion 打印版本信息
func printVersion() {
	fmt.Printf("flowmesh %s\n", flowmesh.Version)
	if flowmesh.GitCommit != "" {
		fmt.Printf("  commit: %s\n", flowmesh.GitCommit)
	}
	if flowmesh.BuildDate != "" {
		fmt.Printf("  built:  %s\n", flowmesh.BuildDate)
	}
}

// printHelp 打印帮助信息
func printHelp() {
	fmt.Println("flowmesh - 分布式数据流的块交换层")
	fmt.Println()
	fmt.Println("用法:")
	fmt.Println("  flowmesh [选项]")
	fmt.Println()
	fmt.Println("选项:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("═══════════════════════════════════════════════════════════════════════════")
	fmt.Println("运行模式")
	fmt.Println("═══════════════════════════════════════════════════════════════════════════")
	fmt.Println()
	fmt.Println("演示模式（默认，单进程多节点）:")
	fmt.Println()
	fmt.Println("  # 三节点全交换，默认负载")
	fmt.Println("  flowmesh")
	fmt.Println()
	fmt.Println("  # 八节点压测")
	fmt.Println("  flowmesh -workers 8 -channels 16 -blocks 64 -block-bytes 262144 -preset bench")
	fmt.Println()
	fmt.Println("集群模式（每台机器一个进程）:")
	fmt.Println()
	fmt.Println("  # 生成共享的运行标识")
	fmt.Println("  RUN_ID=$(uuidgen)")
	fmt.Println()
	fmt.Println("  # 节点 0（第一台机器）")
	fmt.Println("  flowmesh -rank 0 -peers 10.0.0.1:9000,10.0.0.2:9000 -run-id $RUN_ID")
	fmt.Println()
	fmt.Println("  # 节点 1（第二台机器）")
	fmt.Println("  flowmesh -rank 1 -peers 10.0.0.1:9000,10.0.0.2:9000 -run-id $RUN_ID")
	fmt.Println()
	fmt.Println("═══════════════════════════════════════════════════════════════════════════")
	fmt.Println("预设配置")
	fmt.Println("═══════════════════════════════════════════════════════════════════════════")
	fmt.Println()
	fmt.Println("  local     - 单机测试，小块快超时")
	fmt.Println("  cluster   - 多机集群，宽超时")
	fmt.Println("  bench     - 压测，大块少日志")
	fmt.Println()
	fmt.Println("环境变量:")
	fmt.Println("  FLOWMESH_PRESET       预设名称")
	fmt.Println("  FLOWMESH_RUN_ID       运行标识")
	fmt.Println("  FLOWMESH_LOG_FILE     日志文件路径")
	fmt.Println()
	fmt.Println("配置文件示例 (config.json):")
	fmt.Println()
	fmt.Println(`  {`)
	fmt.Println(`    "exchange": {`)
	fmt.Println(`      "max_block_size": 67108864`)
	fmt.Println(`    },`)
	fmt.Println(`    "transport": {`)
	fmt.Println(`      "dial_timeout": "10s",`)
	fmt.Println(`      "retry_interval": "100ms"`)
	fmt.Println(`    },`)
	fmt.Println(`    "liveness": {`)
	fmt.Println(`      "enabled": true,`)
	fmt.Println(`      "idle_warn": "30s"`)
	fmt.Println(`    }`)
	fmt.Println(`  }`)
}
