package config

import (
	"errors"
	"fmt"
	"time"
)

// TransportConfig 传输层配置
//
// 配置网格的成员表与连接建立参数。成员表是按序号排列的节点地址
// 列表，所有节点必须持有相同的列表；本节点的序号通过 Rank 指定。
// 连接方向固定：低序号节点监听，高序号节点拨号。
type TransportConfig struct {
	// Rank 本节点在成员表中的序号（从 0 开始）
	Rank int `json:"rank"`

	// Peers 成员表：按序号排列的节点地址（host:port）
	//
	// 所有节点的列表内容与顺序必须一致。单节点运行可留空。
	Peers []string `json:"peers,omitempty"`

	// ListenAddr 监听地址
	//
	// 空则使用 Peers[Rank]。最高序号节点只拨号，不监听。
	ListenAddr string `json:"listen_addr,omitempty"`

	// RunID 本次运行的标识
	//
	// 握手时校验，防止不同运行批次的节点互连。
	RunID string `json:"run_id,omitempty"`

	// DialTimeout 单次拨号超时
	// 默认值: 10s
	DialTimeout Duration `json:"dial_timeout"`

	// HandshakeTimeout 握手超时
	// 默认值: 5s
	HandshakeTimeout Duration `json:"handshake_timeout"`

	// RetryInterval 拨号失败后的重试间隔
	//
	// 对端尚未监听时拨号会失败，按该间隔重试直至拨号超时。
	// 握手失败不重试。
	// 默认值: 100ms
	RetryInterval Duration `json:"retry_interval"`
}

// DefaultTransportConfig 返回默认传输配置
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		Rank:             0,
		DialTimeout:      Duration(10 * time.Second),
		HandshakeTimeout: Duration(5 * time.Second),
		RetryInterval:    Duration(100 * time.Millisecond),
	}
}

// Validate 验证传输配置
func (c TransportConfig) Validate() error {
	if c.Rank < 0 {
		return errors.New("transport rank must not be negative")
	}
	if len(c.Peers) > 0 && c.Rank >= len(c.Peers) {
		return fmt.Errorf("transport rank %d out of range (membership size %d)", c.Rank, len(c.Peers))
	}
	if c.DialTimeout <= 0 {
		return errors.New("transport dial timeout must be positive")
	}
	if c.HandshakeTimeout <= 0 {
		return errors.New("transport handshake timeout must be positive")
	}
	if c.RetryInterval <= 0 {
		return errors.New("transport retry interval must be positive")
	}
	return nil
}

// WithPeers 设置成员表
func (c TransportConfig) WithPeers(peers []string) TransportConfig {
	c.Peers = peers
	return c
}

// WithRank 设置本节点序号
func (c TransportConfig) WithRank(rank int) TransportConfig {
	c.Rank = rank
	return c
}

// WithDialTimeout 设置拨号超时
func (c TransportConfig) WithDialTimeout(timeout time.Duration) TransportConfig {
	c.DialTimeout = Duration(timeout)
	return c
}
