package flowmesh

import (
	"fmt"
	"time"

	"go.uber.org/fx"

	"github.com/flowmesh/go-flowmesh/config"
	pkgif "github.com/flowmesh/go-flowmesh/pkg/interfaces"
)

// Option 用户配置选项函数
type Option func(*workerConfig) error

// workerConfig 内部配置结构
//
// 聚合统一配置与只在门面层使用的注入项。
type workerConfig struct {
	// config 统一配置
	config *config.Config

	// group 预构建的节点组（测试或单进程多节点场景注入）
	//
	// 非空时跳过 TCP 建组，直接使用注入的组。
	group pkgif.Group

	// userFxOptions 用户扩展的 Fx 选项
	userFxOptions []fx.Option
}

// newWorkerConfig 创建默认配置
func newWorkerConfig() *workerConfig {
	return &workerConfig{
		config: config.NewConfig(),
	}
}

// ============================================================================
//                              配置来源选项
// ============================================================================

// WithConfig 使用完整的统一配置
//
// 后续选项仍可覆盖配置中的单个字段。
// 传入的配置会被克隆，调用方可安全复用原对象。
func WithConfig(cfg *config.Config) Option {
	return func(c *workerConfig) error {
		if cfg == nil {
			return fmt.Errorf("config must not be nil")
		}
		c.config = config.CloneConfig(cfg)
		return nil
	}
}

// WithConfigFile 从 JSON 文件加载统一配置
func WithConfigFile(path string) Option {
	return func(c *workerConfig) error {
		cfg, err := config.LoadFile(path)
		if err != nil {
			return err
		}
		c.config = cfg
		return nil
	}
}

// WithPreset 应用预设配置
//
// 预设提供针对不同场景优化的默认配置：
//   - "local": 单机测试
//   - "cluster": 多机集群
//   - "bench": 压测
//
// 预设先于其他覆盖选项应用时，后者可继续微调。
func WithPreset(name string) Option {
	return func(c *workerConfig) error {
		return config.ApplyPreset(c.config, name)
	}
}

// ============================================================================
//                              成员与传输选项
// ============================================================================

// WithRank 设置本节点在成员表中的序号
func WithRank(rank int) Option {
	return func(c *workerConfig) error {
		if rank < 0 {
			return fmt.Errorf("rank must not be negative: %d", rank)
		}
		c.config.Transport.Rank = rank
		return nil
	}
}

// WithPeers 设置成员表
//
// 地址按序号排列（host:port），所有节点必须传入相同的表。
func WithPeers(peers ...string) Option {
	return func(c *workerConfig) error {
		c.config.Transport.Peers = append([]string(nil), peers...)
		return nil
	}
}

// WithListenAddr 设置监听地址
//
// 覆盖默认的 Peers[Rank]。用于节点监听 0.0.0.0
// 而成员表中登记公网地址的场景。
func WithListenAddr(addr string) Option {
	return func(c *workerConfig) error {
		c.config.Transport.ListenAddr = addr
		return nil
	}
}

// WithRunID 设置运行标识
//
// 同一批次的所有节点必须使用相同的标识，握手时校验。
// 用 NewRunID() 生成后分发给所有节点。
func WithRunID(runID string) Option {
	return func(c *workerConfig) error {
		c.config.Transport.RunID = runID
		return nil
	}
}

// WithGroup 注入预构建的节点组
//
// 跳过 TCP 建组，直接使用注入的组。
// 用于测试或单进程多节点场景：
//
//	meshes := flowmesh.NewMemCluster(3)
//	w0, _ := flowmesh.New(flowmesh.WithGroup(meshes[0]), flowmesh.WithRank(0))
func WithGroup(g pkgif.Group) Option {
	return func(c *workerConfig) error {
		if g == nil {
			return fmt.Errorf("group must not be nil")
		}
		c.group = g
		return nil
	}
}

// ============================================================================
//                              功能选项
// ============================================================================

// WithLivenessTimeout 设置对端空闲告警阈值
//
// 传入 0 关闭空闲监控。
func WithLivenessTimeout(d time.Duration) Option {
	return func(c *workerConfig) error {
		if d <= 0 {
			c.config.Liveness.Enabled = false
			return nil
		}
		c.config.Liveness.Enabled = true
		c.config.Liveness.IdleWarn = config.Duration(d)
		return nil
	}
}

// WithBandwidthStats 设置是否启用带宽统计
func WithBandwidthStats(enabled bool) Option {
	return func(c *workerConfig) error {
		c.config.Bandwidth.Enabled = enabled
		return nil
	}
}

// WithLogFile 将日志输出重定向到指定文件
//
// 文件不存在时自动创建，存在时追加写入。
//
// 示例：
//
//	flowmesh.New(flowmesh.WithLogFile("worker-0.log"))
func WithLogFile(path string) Option {
	return func(c *workerConfig) error {
		c.config.LogFile = path
		return nil
	}
}

// WithFxOption 注入用户扩展的 Fx 选项
//
// 高级用法：向内部依赖注入容器追加模块或装饰器。
func WithFxOption(opts ...fx.Option) Option {
	return func(c *workerConfig) error {
		c.userFxOptions = append(c.userFxOptions, opts...)
		return nil
	}
}
