package flowmesh

import (
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/flowmesh/go-flowmesh/internal/core/bandwidth"
	"github.com/flowmesh/go-flowmesh/internal/core/dispatch"
	"github.com/flowmesh/go-flowmesh/internal/core/eventbus"
	"github.com/flowmesh/go-flowmesh/internal/core/mux"
	pkgif "github.com/flowmesh/go-flowmesh/pkg/interfaces"
	"github.com/flowmesh/go-flowmesh/pkg/lib/log"
)

var fxLogger = log.Logger("flowmesh/fx")

// buildFxApp 构建 Fx 应用
//
// 组装所有内部模块，采用条件加载策略：
//   - 核心模块：必须加载（EventBus, Dispatcher, Multiplexer）
//   - 条件模块：根据配置加载（Bandwidth）
//   - 扩展模块：用户自定义 Fx 选项
//
// 加载顺序（按依赖）：
//  1. EventBus → Dispatcher → Bandwidth → Multiplexer
//  2. 组件注入到 Worker
func buildFxApp(cfg *workerConfig, w *Worker) (*fx.App, error) {
	// ════════════════════════════════════════════════════════════════════════
	// 1. 配置验证（前置）
	// ════════════════════════════════════════════════════════════════════════
	if err := cfg.config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	// ════════════════════════════════════════════════════════════════════════
	// 2. 核心模块（必须加载）
	// ════════════════════════════════════════════════════════════════════════
	modules := []fx.Option{
		// 配置注入
		fx.Supply(cfg.config),

		// 基础组件（必须）
		eventbus.Module, // 事件总线
		dispatch.Module, // 异步调度器
	}

	// ════════════════════════════════════════════════════════════════════════
	// 3. 带宽统计（条件加载）
	// ════════════════════════════════════════════════════════════════════════
	if cfg.config.Bandwidth.Enabled {
		modules = append(modules, bandwidth.Module)
		fxLogger.Debug("已加载带宽统计模块", "trackByPeer", cfg.config.Bandwidth.TrackByPeer)
	}

	// ════════════════════════════════════════════════════════════════════════
	// 4. 多路复用器（核心）
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules, mux.Module)

	// ════════════════════════════════════════════════════════════════════════
	// 5. 用户扩展（Fx Options）
	// ════════════════════════════════════════════════════════════════════════
	if len(cfg.userFxOptions) > 0 {
		modules = append(modules, cfg.userFxOptions...)
	}

	// ════════════════════════════════════════════════════════════════════════
	// 6. Worker 组件注入
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules, fx.Invoke(injectWorkerComponents(w)))

	// ════════════════════════════════════════════════════════════════════════
	// 7. Fx 配置
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules,
		// 禁用 Fx 日志输出（避免干扰用户日志）
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}),
		fx.NopLogger,
	)

	app := fx.New(modules...)
	if err := app.Err(); err != nil {
		return nil, fmt.Errorf("assemble fx app: %w", err)
	}
	return app, nil
}

// ════════════════════════════════════════════════════════════════════════════
//                              组件注入辅助函数
// ════════════════════════════════════════════════════════════════════════════

// workerInjectParams Worker 组件注入参数
type workerInjectParams struct {
	fx.In

	// 核心组件（必需）
	Exchange pkgif.Exchange // 交换层
	Bus      pkgif.EventBus // 事件总线

	// 可选组件
	Bandwidth *bandwidth.Counter `optional:"true"` // 带宽统计
}

// injectWorkerComponents 创建 Worker 组件注入函数
//
// 所有可选组件通过 optional:"true" 标签处理。
func injectWorkerComponents(w *Worker) interface{} {
	return func(params workerInjectParams) {
		w.exchange = params.Exchange
		w.bus = params.Bus
		w.bandwidth = params.Bandwidth
	}
}
