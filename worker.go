package flowmesh

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/multierr"

	"github.com/flowmesh/go-flowmesh/internal/core/bandwidth"
	"github.com/flowmesh/go-flowmesh/internal/core/group"
	pkgif "github.com/flowmesh/go-flowmesh/pkg/interfaces"
	"github.com/flowmesh/go-flowmesh/pkg/lib/log"
	"github.com/flowmesh/go-flowmesh/pkg/types"
)

var logger = log.Logger("flowmesh")

// 启动与停止超时配置
const (
	// initializeTimeout 初始化超时（Fx App Start）
	initializeTimeout = 30 * time.Second

	// shutdownTimeout 停止超时（Fx App Stop）
	shutdownTimeout = 10 * time.Second
)

// Worker 是集群中的一个工作节点
//
// Worker 是用户与 FlowMesh 集群交互的主入口。
// 它是一个门面（Facade），聚合了交换层、调度器、事件总线与带宽统计。
//
// 生命周期：
//
//	Idle ──► Initializing ──► Running ──► Stopping ──► Stopped
//
// 使用示例：
//
//	worker, err := flowmesh.New(
//	    flowmesh.WithRank(0),
//	    flowmesh.WithPeers("10.0.0.1:9000", "10.0.0.2:9000"),
//	    flowmesh.WithRunID(runID),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := worker.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer worker.Close()
type Worker struct {
	// ────────────────────────────────────────────────────────────────────────
	// 配置和状态
	// ────────────────────────────────────────────────────────────────────────

	// config 节点配置
	config *workerConfig

	// app Fx 应用
	app *fx.App

	// ────────────────────────────────────────────────────────────────────────
	// 核心组件（由 Fx 注入）
	// ────────────────────────────────────────────────────────────────────────

	// exchange 交换层
	exchange pkgif.Exchange

	// bus 事件总线
	bus pkgif.EventBus

	// bandwidth 带宽统计（可选）
	bandwidth *bandwidth.Counter

	// ────────────────────────────────────────────────────────────────────────
	// 运行期资源
	// ────────────────────────────────────────────────────────────────────────

	// grp 已连接的节点组
	grp pkgif.Group

	// collector 已注册的 Prometheus 采集器
	collector *bandwidth.Collector

	// logFile 打开的日志文件
	logFile *os.File

	// ────────────────────────────────────────────────────────────────────────
	// 生命周期状态
	// ────────────────────────────────────────────────────────────────────────

	mu      sync.RWMutex
	state   types.WorkerState
	started bool
	closed  bool
}

// ════════════════════════════════════════════════════════════════════════════
//                              构造函数
// ════════════════════════════════════════════════════════════════════════════

// New 创建新的工作节点
//
// 创建节点但不启动，需要调用 Start() 启动。
// 通过 Option 函数配置节点。
//
// 示例：
//
//	worker, err := flowmesh.New(
//	    flowmesh.WithPreset("local"),
//	    flowmesh.WithRank(0),
//	    flowmesh.WithPeers("127.0.0.1:9000"),
//	)
func New(opts ...Option) (*Worker, error) {
	// 创建配置
	cfg := newWorkerConfig()

	// 应用选项
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	// 创建 Worker 实例
	w := &Worker{
		config: cfg,
		state:  types.WorkerIdle,
	}

	// 构建 Fx 应用
	var err error
	w.app, err = buildFxApp(cfg, w)
	if err != nil {
		return nil, fmt.Errorf("build fx app: %w", err)
	}

	return w, nil
}

// Start 快捷启动函数
//
// 创建工作节点并立即启动。
// 等价于 New() + Start()。
func Start(ctx context.Context, opts ...Option) (*Worker, error) {
	w, err := New(opts...)
	if err != nil {
		return nil, err
	}

	if err := w.Start(ctx); err != nil {
		return nil, fmt.Errorf("start worker: %w", err)
	}

	return w, nil
}

// ════════════════════════════════════════════════════════════════════════════
//                              生命周期管理
// ════════════════════════════════════════════════════════════════════════════

// Start 启动工作节点
//
// 采用阶段化启动策略：
//  1. Initialize: 启动 Fx App，初始化所有组件
//  2. Connect: 建立节点组（TCP 全网格或注入的组）并绑定交换层
//  3. Running: 进入运行状态，可收发数据
//
// 建组会阻塞到与全部对端完成握手，受 ctx 控制；
// 对端迟迟不上线时通过 ctx 超时退出。
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWorkerClosed
	}
	if w.started {
		return ErrAlreadyStarted
	}

	// ════════════════════════════════════════════════════════════════════════
	// Phase 0: 日志输出重定向
	// ════════════════════════════════════════════════════════════════════════
	if err := w.applyLogOutput(); err != nil {
		return err
	}

	// ════════════════════════════════════════════════════════════════════════
	// Phase 1: Initialize - 启动 Fx App
	// ════════════════════════════════════════════════════════════════════════
	w.state = types.WorkerInitializing
	logger.Info("正在初始化工作节点", "rank", w.config.config.Transport.Rank)

	initCtx, initCancel := context.WithTimeout(ctx, initializeTimeout)
	defer initCancel()

	if err := w.app.Start(initCtx); err != nil {
		w.state = types.WorkerIdle
		logger.Error("工作节点初始化失败", "error", err)
		return fmt.Errorf("initialize failed: %w", err)
	}
	logger.Debug("Fx 应用启动成功")

	// ════════════════════════════════════════════════════════════════════════
	// Phase 2: Connect - 建立节点组并绑定交换层
	// ════════════════════════════════════════════════════════════════════════
	grp, err := w.buildGroup(ctx)
	if err != nil {
		w.abortStart()
		logger.Error("建组失败", "error", err)
		return fmt.Errorf("build group: %w", err)
	}

	if err := w.exchange.Connect(grp); err != nil {
		grp.Close()
		w.abortStart()
		logger.Error("绑定交换层失败", "error", err)
		return fmt.Errorf("connect exchange: %w", err)
	}
	w.grp = grp

	// ════════════════════════════════════════════════════════════════════════
	// Phase 3: Prometheus 采集器注册（可选）
	// ════════════════════════════════════════════════════════════════════════
	if w.config.config.Bandwidth.EnablePrometheus && w.bandwidth != nil {
		c := bandwidth.NewCollector(w.bandwidth, grp.Rank())
		if err := prometheus.Register(c); err != nil {
			logger.Warn("Prometheus 采集器注册失败", "error", err)
		} else {
			w.collector = c
		}
	}

	// ════════════════════════════════════════════════════════════════════════
	// Phase 4: Running - 进入运行状态
	// ════════════════════════════════════════════════════════════════════════
	w.state = types.WorkerRunning
	w.started = true
	logger.Info("工作节点启动成功", "rank", grp.Rank(), "size", grp.Size())

	return nil
}

// Close 关闭工作节点并释放所有资源
//
// 关闭交换层全部连接，停止内部组件。
// 幂等：重复调用返回 nil。关闭后节点不可重新启动。
func (w *Worker) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	w.state = types.WorkerStopping
	logger.Info("正在停止工作节点")

	var errs error

	// 注销 Prometheus 采集器
	if w.collector != nil {
		prometheus.Unregister(w.collector)
		w.collector = nil
	}

	// 停止 Fx 应用（交换层在模块 OnStop 中关闭，连带关闭节点组）
	stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	if err := w.app.Stop(stopCtx); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("stop fx app: %w", err))
	}
	stopCancel()
	w.started = false

	if w.logFile != nil {
		if err := w.logFile.Close(); err != nil {
			errs = multierr.Append(errs, err)
		}
		w.logFile = nil
	}

	w.state = types.WorkerStopped
	logger.Info("工作节点已停止")
	return errs
}

// abortStart 回滚失败的启动
//
// 调用方须持有 w.mu。
func (w *Worker) abortStart() {
	w.state = types.WorkerStopping
	stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	_ = w.app.Stop(stopCtx)
	stopCancel()
	w.state = types.WorkerStopped
}

// buildGroup 构建节点组
//
// 注入的组优先；否则按成员表 TCP 建组；
// 成员表为空时退化为单节点组。
func (w *Worker) buildGroup(ctx context.Context) (pkgif.Group, error) {
	if w.config.group != nil {
		return w.config.group, nil
	}

	tc := w.config.config.Transport
	if len(tc.Peers) == 0 {
		if tc.Rank != 0 {
			return nil, fmt.Errorf("rank %d requires a peer table", tc.Rank)
		}
		// 单节点运行，无需网络
		return group.NewMemCluster(1)[0], nil
	}

	return group.Dial(ctx, group.Config{
		Rank:             types.Rank(tc.Rank),
		Peers:            tc.Peers,
		RunID:            types.RunID(tc.RunID),
		ListenAddr:       tc.ListenAddr,
		DialTimeout:      tc.DialTimeout.Duration(),
		HandshakeTimeout: tc.HandshakeTimeout.Duration(),
		RetryInterval:    tc.RetryInterval.Duration(),
	})
}

// applyLogOutput 应用日志输出配置
//
// 调用方须持有 w.mu。
func (w *Worker) applyLogOutput() error {
	cfg := w.config.config
	level := parseLogLevel(cfg.LogLevel)

	if cfg.LogFile == "" {
		if cfg.LogLevel != "" && cfg.LogLevel != "info" {
			log.SetLevel(level)
		}
		return nil
	}

	file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	w.logFile = file
	log.SetOutputWithLevel(file, level)
	logger.Info("日志文件初始化成功", "path", cfg.LogFile)
	return nil
}

// parseLogLevel 解析日志级别名称
func parseLogLevel(name string) slog.Level {
	switch name {
	case "debug":
		return log.LevelDebug
	case "warn":
		return log.LevelWarn
	case "error":
		return log.LevelError
	default:
		return log.LevelInfo
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              基本信息
// ════════════════════════════════════════════════════════════════════════════

// State 返回节点当前的生命周期状态
func (w *Worker) State() types.WorkerState {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// Rank 返回本节点在成员表中的序号
func (w *Worker) Rank() types.Rank {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.grp != nil {
		return w.grp.Rank()
	}
	return types.Rank(w.config.config.Transport.Rank)
}

// ClusterSize 返回集群规模
//
// 未启动时按成员表长度推算（空表视为单节点）。
func (w *Worker) ClusterSize() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.grp != nil {
		return w.grp.Size()
	}
	if n := len(w.config.config.Transport.Peers); n > 0 {
		return n
	}
	return 1
}

// RunID 返回本次运行的标识
func (w *Worker) RunID() string {
	return w.config.config.Transport.RunID
}

// ════════════════════════════════════════════════════════════════════════════
//                              交换层门面
// ════════════════════════════════════════════════════════════════════════════

// runningExchange 返回运行中的交换层
func (w *Worker) runningExchange() (pkgif.Exchange, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return nil, ErrWorkerClosed
	}
	if !w.started || w.exchange == nil {
		return nil, ErrNotStarted
	}
	return w.exchange, nil
}

// AllocateNext 分配下一个通道 ID
//
// 集群内所有节点须按相同顺序调用，以保证 ID 全局一致。
func (w *Worker) AllocateNext() (types.ChannelID, error) {
	ex, err := w.runningExchange()
	if err != nil {
		return 0, err
	}
	return ex.AllocateNext(), nil
}

// OpenChannel 打开通道用于发送，返回按节点序号排列的发射器
//
// 自身序号位置是环回发射器，其余为对应连接的套接字发射器。
// 同一通道只能打开一次，重复打开返回 ErrChannelAlreadyOpen。
func (w *Worker) OpenChannel(id types.ChannelID) ([]pkgif.BlockEmitter, error) {
	ex, err := w.runningExchange()
	if err != nil {
		return nil, err
	}
	return ex.OpenChannel(id)
}

// HasChannel 检查指定通道的通道对象是否已实例化
func (w *Worker) HasChannel(id types.ChannelID) bool {
	ex, err := w.runningExchange()
	if err != nil {
		return false
	}
	return ex.HasChannel(id)
}

// HasData 检查指定通道是否已有缓冲链
func (w *Worker) HasData(id types.ChannelID) bool {
	ex, err := w.runningExchange()
	if err != nil {
		return false
	}
	return ex.HasData(id)
}

// AccessData 返回指定通道的缓冲链，不存在则创建空链
func (w *Worker) AccessData(id types.ChannelID) (pkgif.BufferChain, error) {
	ex, err := w.runningExchange()
	if err != nil {
		return nil, err
	}
	return ex.AccessData(id), nil
}

// Stats 返回交换层统计快照
//
// 未启动时返回零值快照。
func (w *Worker) Stats() types.ExchangeStats {
	ex, err := w.runningExchange()
	if err != nil {
		return types.ExchangeStats{}
	}
	return ex.Stats()
}

// ════════════════════════════════════════════════════════════════════════════
//                              观测门面
// ════════════════════════════════════════════════════════════════════════════

// Events 订阅交换层事件
//
// 事件类型用指向事件结构体的空指针表达：
//
//	sub, _ := worker.Events(new(types.EvtChannelClosed))
//	for e := range sub.Out() {
//	    evt := e.(types.EvtChannelClosed)
//	    fmt.Println("通道关闭:", evt.Channel)
//	}
func (w *Worker) Events(eventType interface{}, opts ...pkgif.SubscriptionOpt) (pkgif.Subscription, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return nil, ErrWorkerClosed
	}
	if w.bus == nil {
		return nil, ErrNotStarted
	}
	return w.bus.Subscribe(eventType, opts...)
}

// OnChannelClosed 注册通道终态回调
//
// 通道进入 Closed 或 Failed 终态时调用。
// 回调在独立 goroutine 中执行，不阻塞交换层。
func (w *Worker) OnChannelClosed(handler func(types.EvtChannelClosed)) error {
	sub, err := w.Events(new(types.EvtChannelClosed))
	if err != nil {
		return err
	}
	go func() {
		for e := range sub.Out() {
			if evt, ok := e.(types.EvtChannelClosed); ok {
				handler(evt)
			}
		}
	}()
	return nil
}

// OnPeerFailed 注册对端失效回调
//
// 回调在独立 goroutine 中执行，不阻塞交换层。
func (w *Worker) OnPeerFailed(handler func(types.EvtPeerFailed)) error {
	sub, err := w.Events(new(types.EvtPeerFailed))
	if err != nil {
		return err
	}
	go func() {
		for e := range sub.Out() {
			if evt, ok := e.(types.EvtPeerFailed); ok {
				handler(evt)
			}
		}
	}()
	return nil
}

// BandwidthTotals 返回总带宽统计快照
//
// 带宽统计未启用时返回零值快照。
func (w *Worker) BandwidthTotals() types.BandwidthSnapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.bandwidth == nil {
		return types.BandwidthSnapshot{}
	}
	return w.bandwidth.Totals()
}

// BandwidthForPeer 返回与指定对端之间的带宽统计快照
func (w *Worker) BandwidthForPeer(peer types.Rank) types.BandwidthSnapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.bandwidth == nil {
		return types.BandwidthSnapshot{}
	}
	return w.bandwidth.ForPeer(peer)
}

// BandwidthByPeer 返回按对端细分的带宽统计快照
//
// 未启用按对端统计时返回空表。
func (w *Worker) BandwidthByPeer() map[types.Rank]types.BandwidthSnapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.bandwidth == nil {
		return nil
	}
	return w.bandwidth.ByPeer()
}
