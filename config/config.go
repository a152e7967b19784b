// Package config 提供统一的配置管理
//
// 本包采用混合配置模式：
//   - 主 Config 结构体嵌入所有子配置
//   - 每个子配置在独立文件中定义
//   - 支持从 JSON 加载和保存配置
//   - 支持预设配置（local/cluster/bench）
//
// 使用示例：
//
//	// 创建默认配置
//	cfg := config.NewConfig()
//	cfg.Transport.Peers = []string{"10.0.0.1:9000", "10.0.0.2:9000"}
//	cfg.Transport.Rank = 0
//
//	// 应用预设到现有配置
//	config.ApplyPreset(cfg, "cluster")
//
//	// 从 JSON 加载
//	cfg, err := config.FromJSON(data)
package config

// Config 是 FlowMesh 的完整配置结构
//
// 该结构体嵌入了所有组件的子配置，提供统一的配置接口。
// 配置按照功能模块组织：
//   - Exchange: 数据交换层（块大小、队列阈值）
//   - Transport: 传输层（成员表、监听地址、握手参数）
//   - Liveness: 空闲监控
//   - Bandwidth: 带宽统计
type Config struct {
	// Exchange 数据交换层配置
	Exchange ExchangeConfig `json:"exchange"`

	// Transport 传输层配置
	Transport TransportConfig `json:"transport"`

	// Liveness 空闲监控配置
	Liveness LivenessConfig `json:"liveness"`

	// Bandwidth 带宽统计配置
	Bandwidth BandwidthConfig `json:"bandwidth"`

	// LogFile 日志文件路径
	//
	// 非空时将所有日志重定向到该文件，空则输出到 stderr。
	LogFile string `json:"log_file,omitempty"`

	// LogLevel 日志级别（debug/info/warn/error）
	// 默认值: info
	LogLevel string `json:"log_level,omitempty"`
}

// NewConfig 创建默认配置
//
// 返回的配置使用所有组件的默认值，适用于大多数场景。
// 可以通过修改字段或使用 Option 函数来定制配置。
func NewConfig() *Config {
	return &Config{
		Exchange:  DefaultExchangeConfig(),
		Transport: DefaultTransportConfig(),
		Liveness:  DefaultLivenessConfig(),
		Bandwidth: DefaultBandwidthConfig(),
		LogLevel:  "info",
	}
}

// Validate 验证配置的有效性
//
// 检查所有子配置是否有效，如果发现无效配置则返回错误。
// 建议在使用配置前调用此方法。
func (c *Config) Validate() error {
	if err := c.Exchange.Validate(); err != nil {
		return err
	}
	if err := c.Transport.Validate(); err != nil {
		return err
	}
	if err := c.Liveness.Validate(); err != nil {
		return err
	}
	if err := c.Bandwidth.Validate(); err != nil {
		return err
	}
	return nil
}
