package bandwidth

import (
	"go.uber.org/fx"

	"github.com/flowmesh/go-flowmesh/config"
)

// Config 带宽统计配置
type Config struct {
	// Enabled 是否统计流量，关闭后全部记录调用为空操作
	Enabled bool

	// TrackByPeer 是否按对端细分统计
	TrackByPeer bool
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Enabled:     true,
		TrackByPeer: true,
	}
}

// ConfigFromUnified 从统一配置创建带宽统计配置
func ConfigFromUnified(cfg *config.Config) Config {
	if cfg == nil {
		return DefaultConfig()
	}
	return Config{
		Enabled:     cfg.Bandwidth.Enabled,
		TrackByPeer: cfg.Bandwidth.TrackByPeer,
	}
}

// Params 带宽统计依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
}

// Module 是 bandwidth 的 Fx 模块
var Module = fx.Module("bandwidth",
	fx.Provide(NewFromParams),
)

// NewFromParams 从参数创建带宽计数器
func NewFromParams(p Params) *Counter {
	return NewCounter(ConfigFromUnified(p.UnifiedCfg))
}
