package config

import (
	"errors"
	"time"
)

// LivenessConfig 空闲监控配置
//
// 监控各对端的入向数据活跃度。某对端超过 IdleWarn 未送达任何
// 帧头时记录警告日志。监控只告警，不改变任何通道状态。
type LivenessConfig struct {
	// Enabled 是否启用空闲监控
	// 默认值: true
	Enabled bool `json:"enabled"`

	// CheckInterval 检查间隔
	// 默认值: 5s
	CheckInterval Duration `json:"check_interval"`

	// IdleWarn 对端空闲告警阈值
	//
	// 自上次收到该对端帧头起，超过该时长即告警（每次停顿只告警一次）。
	// 默认值: 30s
	IdleWarn Duration `json:"idle_warn"`
}

// DefaultLivenessConfig 返回默认的空闲监控配置
func DefaultLivenessConfig() LivenessConfig {
	return LivenessConfig{
		Enabled:       true,
		CheckInterval: Duration(5 * time.Second),
		IdleWarn:      Duration(30 * time.Second),
	}
}

// Validate 验证空闲监控配置的有效性
func (c LivenessConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.CheckInterval <= 0 {
		return errors.New("liveness check interval must be positive")
	}
	if c.IdleWarn <= 0 {
		return errors.New("liveness idle warn must be positive")
	}
	return nil
}

// WithIdleWarn 设置空闲告警阈值
func (c LivenessConfig) WithIdleWarn(d time.Duration) LivenessConfig {
	c.IdleWarn = Duration(d)
	return c
}
