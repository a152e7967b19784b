package config

// BandwidthConfig 带宽统计配置
//
// 配置带宽统计功能，支持按对端序号分类统计流量。
type BandwidthConfig struct {
	// Enabled 是否启用带宽统计
	// 默认值: true
	Enabled bool `json:"enabled"`

	// TrackByPeer 是否启用按对端统计
	// 默认值: true
	TrackByPeer bool `json:"track_by_peer"`

	// EnablePrometheus 是否注册 Prometheus 采集器
	//
	// 启用后将统计量注册到默认 Prometheus registry，
	// 指标族以 flowmesh_exchange_ 为前缀。
	// 默认值: false
	EnablePrometheus bool `json:"enable_prometheus"`
}

// DefaultBandwidthConfig 返回默认的带宽统计配置
func DefaultBandwidthConfig() BandwidthConfig {
	return BandwidthConfig{
		Enabled:          true,
		TrackByPeer:      true,
		EnablePrometheus: false,
	}
}

// Validate 验证带宽统计配置的有效性
func (c BandwidthConfig) Validate() error {
	// 带宽统计配置无需严格验证
	return nil
}
