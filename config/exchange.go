package config

import "errors"

// ExchangeConfig 数据交换层配置
//
// 配置块传输的尺寸上限与发送队列的告警阈值。
type ExchangeConfig struct {
	// MaxBlockSize 单个数据块的最大字节数
	//
	// 入向帧头声明的长度超过该值视为协议违规，对应连接会被标记失效。
	// 默认值: 64 MB
	MaxBlockSize uint32 `json:"max_block_size"`

	// EmitterQueueWarn 发送队列深度告警阈值
	//
	// 某连接的待写块数量达到该值时记录警告日志（不丢弃、不阻断）。
	// 0 表示不告警。
	// 默认值: 1024
	EmitterQueueWarn int `json:"emitter_queue_warn"`
}

// DefaultExchangeConfig 返回默认的数据交换层配置
func DefaultExchangeConfig() ExchangeConfig {
	return ExchangeConfig{
		MaxBlockSize:     64 << 20, // 64 MB
		EmitterQueueWarn: 1024,
	}
}

// Validate 验证数据交换层配置的有效性
func (c ExchangeConfig) Validate() error {
	if c.MaxBlockSize == 0 {
		return errors.New("exchange max block size must be positive")
	}
	if c.EmitterQueueWarn < 0 {
		return errors.New("exchange emitter queue warn must not be negative")
	}
	return nil
}

// WithMaxBlockSize 设置单块最大字节数
func (c ExchangeConfig) WithMaxBlockSize(n uint32) ExchangeConfig {
	c.MaxBlockSize = n
	return c
}
