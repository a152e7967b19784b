package dispatch

import (
	"context"

	"go.uber.org/fx"

	"github.com/flowmesh/go-flowmesh/config"
	pkgif "github.com/flowmesh/go-flowmesh/pkg/interfaces"
)

// Config 调度器配置
type Config struct {
	QueueWarn int // 单连接发送队列长度告警阈值，0 表示不告警
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		QueueWarn: 1024,
	}
}

// ConfigFromUnified 从统一配置创建调度器配置
func ConfigFromUnified(cfg *config.Config) Config {
	if cfg == nil {
		return DefaultConfig()
	}
	return Config{
		QueueWarn: cfg.Exchange.EmitterQueueWarn,
	}
}

// Params 调度器依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
}

// Module 是 dispatch 的 Fx 模块
var Module = fx.Module("dispatch",
	fx.Provide(
		fx.Annotate(
			NewFromParams,
			fx.As(new(pkgif.Dispatcher)),
		),
	),
)

// NewFromParams 从参数创建调度器
func NewFromParams(p Params, lc fx.Lifecycle) *Dispatcher {
	d := New(ConfigFromUnified(p.UnifiedCfg))
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return d.Close()
		},
	})
	return d
}
