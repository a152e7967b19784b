package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// FromJSON 从 JSON 数据创建配置
//
// 支持从 JSON 文件或字符串加载配置。
// JSON 格式与 Config 结构体一一对应，未出现的字段保持默认值。
//
// 示例 JSON:
//
//	{
//	  "exchange": {"max_block_size": 1048576},
//	  "transport": {"rank": 0, "peers": ["10.0.0.1:9000", "10.0.0.2:9000"]}
//	}
func FromJSON(data []byte) (*Config, error) {
	cfg := NewConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// ToJSON 将配置序列化为 JSON
func ToJSON(cfg *Config) ([]byte, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// LoadFile 从文件加载配置
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return FromJSON(data)
}

// SaveFile 将配置保存到文件
func SaveFile(cfg *Config, path string) error {
	data, err := ToJSON(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ApplyPreset 应用预设配置
//
// Preset 提供了针对不同场景优化的配置组合。
// 该函数将预设应用到配置上。
//
// 支持的预设：
//   - "local": 单机测试
//   - "cluster": 多机集群
//   - "bench": 压测
func ApplyPreset(cfg *Config, presetName string) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	switch presetName {
	case "local":
		return applyLocalPreset(cfg)
	case "cluster":
		return applyClusterPreset(cfg)
	case "bench":
		return applyBenchPreset(cfg)
	case "":
		// 空预设，不做任何操作
		return nil
	default:
		return fmt.Errorf("unknown preset: %s", presetName)
	}
}

// applyLocalPreset 应用单机测试预设
//
// 单机测试配置优化：
//   - 小块上限（尽早暴露尺寸问题）
//   - 快速失败（短超时、短重试间隔）
//   - 细粒度统计
func applyLocalPreset(cfg *Config) error {
	// 交换：小块上限
	cfg.Exchange.MaxBlockSize = 4 << 20 // 4 MB
	cfg.Exchange.EmitterQueueWarn = 256

	// 传输：本机回环快速失败
	cfg.Transport.DialTimeout = Duration(3 * time.Second)
	cfg.Transport.HandshakeTimeout = Duration(2 * time.Second)
	cfg.Transport.RetryInterval = Duration(20 * time.Millisecond)

	// 空闲监控：短间隔，尽早发现卡住的对端
	cfg.Liveness.Enabled = true
	cfg.Liveness.CheckInterval = Duration(1 * time.Second)
	cfg.Liveness.IdleWarn = Duration(5 * time.Second)

	// 带宽：全量统计
	cfg.Bandwidth.Enabled = true
	cfg.Bandwidth.TrackByPeer = true

	return nil
}

// applyClusterPreset 应用多机集群预设
//
// 集群配置优化：
//   - 容忍慢启动（长超时、长重试间隔）
//   - 启用 Prometheus 采集
func applyClusterPreset(cfg *Config) error {
	// 传输：容忍节点启动顺序不一致
	cfg.Transport.DialTimeout = Duration(30 * time.Second)
	cfg.Transport.HandshakeTimeout = Duration(10 * time.Second)
	cfg.Transport.RetryInterval = Duration(500 * time.Millisecond)

	// 空闲监控：集群网络抖动更常见，放宽阈值
	cfg.Liveness.Enabled = true
	cfg.Liveness.CheckInterval = Duration(10 * time.Second)
	cfg.Liveness.IdleWarn = Duration(60 * time.Second)

	// 带宽：启用 Prometheus 导出
	cfg.Bandwidth.Enabled = true
	cfg.Bandwidth.TrackByPeer = true
	cfg.Bandwidth.EnablePrometheus = true

	return nil
}

// applyBenchPreset 应用压测预设
//
// 压测配置优化：
//   - 大块上限
//   - 关闭空闲监控（避免告警噪音）
//   - 只保留总量统计，降低原子操作竞争
func applyBenchPreset(cfg *Config) error {
	// 交换：大块上限，高队列阈值
	cfg.Exchange.MaxBlockSize = 256 << 20 // 256 MB
	cfg.Exchange.EmitterQueueWarn = 8192

	// 空闲监控：压测期间不告警
	cfg.Liveness.Enabled = false

	// 带宽：总量统计保留，按对端统计关闭
	cfg.Bandwidth.Enabled = true
	cfg.Bandwidth.TrackByPeer = false

	// 日志：只输出警告以上
	cfg.LogLevel = "warn"

	return nil
}

// CloneConfig 克隆配置
//
// 创建配置的深拷贝，用于安全地修改配置而不影响原始配置。
func CloneConfig(cfg *Config) *Config {
	if cfg == nil {
		return nil
	}

	cloned := &Config{
		Exchange:  cfg.Exchange,
		Transport: cfg.Transport,
		Liveness:  cfg.Liveness,
		Bandwidth: cfg.Bandwidth,
		LogFile:   cfg.LogFile,
		LogLevel:  cfg.LogLevel,
	}

	// Peers 切片是引用，需要单独拷贝
	if cfg.Transport.Peers != nil {
		cloned.Transport.Peers = append([]string(nil), cfg.Transport.Peers...)
	}

	return cloned
}
