package config

import (
	"errors"
	"fmt"
)

// ValidateAll 验证整个配置的有效性
//
// 这是 Config.Validate() 的别名，提供更明确的语义。
// 它会递归验证所有子配置。
func ValidateAll(c *Config) error {
	if c == nil {
		return errors.New("config is nil")
	}
	return c.Validate()
}

// ValidateAndFix 验证配置并尝试自动修复常见问题
//
// 该函数会：
//  1. 检查配置有效性
//  2. 对于某些可修复的问题，自动应用修复
//  3. 返回修复后的配置或错误
//
// 可修复的问题示例：
//   - 检查间隔大于告警阈值 -> 交换值
//   - 块上限为零 -> 使用默认值
//   - 队列阈值为负 -> 置零（不告警）
func ValidateAndFix(c *Config) (*Config, error) {
	if c == nil {
		return NewConfig(), nil
	}

	// 交换：修复尺寸问题
	if c.Exchange.MaxBlockSize == 0 {
		c.Exchange.MaxBlockSize = DefaultExchangeConfig().MaxBlockSize
	}
	if c.Exchange.EmitterQueueWarn < 0 {
		c.Exchange.EmitterQueueWarn = 0
	}

	// 空闲监控：检查间隔不应长于告警阈值
	if c.Liveness.Enabled && c.Liveness.CheckInterval > c.Liveness.IdleWarn {
		c.Liveness.CheckInterval, c.Liveness.IdleWarn = c.Liveness.IdleWarn, c.Liveness.CheckInterval
	}

	// 传输：缺失的超时使用默认值
	def := DefaultTransportConfig()
	if c.Transport.DialTimeout <= 0 {
		c.Transport.DialTimeout = def.DialTimeout
	}
	if c.Transport.HandshakeTimeout <= 0 {
		c.Transport.HandshakeTimeout = def.HandshakeTimeout
	}
	if c.Transport.RetryInterval <= 0 {
		c.Transport.RetryInterval = def.RetryInterval
	}

	// 验证修复后的配置
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed after fixes: %w", err)
	}

	return c, nil
}

// MustValidate 验证配置，如果失败则 panic
//
// 仅用于初始化阶段或测试代码。
// 生产代码应使用 Validate() 并处理错误。
func MustValidate(c *Config) {
	if err := c.Validate(); err != nil {
		panic(fmt.Sprintf("config validation failed: %v", err))
	}
}

// ValidateCompatibility 验证配置之间的兼容性
//
// 检查配置的各个部分是否相互兼容。
// 例如：
//   - 成员表非空时序号必须落在表内
//   - 空闲告警阈值应覆盖至少一个检查周期
func ValidateCompatibility(c *Config) error {
	if c == nil {
		return errors.New("config is nil")
	}

	// 检查：成员表与序号
	if len(c.Transport.Peers) > 0 && c.Transport.Rank >= len(c.Transport.Peers) {
		return fmt.Errorf("rank %d not covered by membership of %d peers",
			c.Transport.Rank, len(c.Transport.Peers))
	}

	// 检查：告警阈值至少覆盖一个检查周期
	if c.Liveness.Enabled && c.Liveness.IdleWarn < c.Liveness.CheckInterval {
		return fmt.Errorf("liveness idle warn (%s) shorter than check interval (%s)",
			c.Liveness.IdleWarn, c.Liveness.CheckInterval)
	}

	return nil
}
