package mux

import (
	"context"
	"time"

	"go.uber.org/fx"

	"github.com/flowmesh/go-flowmesh/config"
	"github.com/flowmesh/go-flowmesh/internal/core/bandwidth"
	pkgif "github.com/flowmesh/go-flowmesh/pkg/interfaces"
)

// Config 多路复用器配置
type Config struct {
	// MaxBlockSize 允许的单个数据块载荷上限（字节），0 表示不限制。
	// 头部声明超过上限视为协议违规。
	MaxBlockSize uint32

	// Liveness 空闲监视配置
	Liveness LivenessConfig
}

// LivenessConfig 空闲监视配置
type LivenessConfig struct {
	// Enabled 是否启用空闲监视
	Enabled bool

	// CheckInterval 检查周期
	CheckInterval time.Duration

	// IdleWarn 对端静默多久后告警
	IdleWarn time.Duration
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		MaxBlockSize: 64 << 20,
		Liveness: LivenessConfig{
			Enabled:       true,
			CheckInterval: 5 * time.Second,
			IdleWarn:      30 * time.Second,
		},
	}
}

// ConfigFromUnified 从统一配置创建多路复用器配置
func ConfigFromUnified(cfg *config.Config) Config {
	if cfg == nil {
		return DefaultConfig()
	}
	return Config{
		MaxBlockSize: cfg.Exchange.MaxBlockSize,
		Liveness: LivenessConfig{
			Enabled:       cfg.Liveness.Enabled,
			CheckInterval: cfg.Liveness.CheckInterval.Duration(),
			IdleWarn:      cfg.Liveness.IdleWarn.Duration(),
		},
	}
}

// Params 多路复用器依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config     `optional:"true"`
	Dispatcher pkgif.Dispatcher
	Bandwidth  *bandwidth.Counter `optional:"true"`
	Bus        pkgif.EventBus     `optional:"true"`
}

// Module 是 mux 的 Fx 模块
var Module = fx.Module("mux",
	fx.Provide(
		fx.Annotate(
			NewFromParams,
			fx.As(new(pkgif.Exchange)),
		),
	),
)

// NewFromParams 从参数创建多路复用器
func NewFromParams(p Params, lc fx.Lifecycle) *Multiplexer {
	var opts []Option
	if p.Bandwidth != nil {
		opts = append(opts, WithBandwidth(p.Bandwidth))
	}
	if p.Bus != nil {
		opts = append(opts, WithEventBus(p.Bus))
	}

	m := New(ConfigFromUnified(p.UnifiedCfg), p.Dispatcher, opts...)
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return m.Close()
		},
	})
	return m
}
