package group

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	pkgif "github.com/flowmesh/go-flowmesh/pkg/interfaces"
	"github.com/flowmesh/go-flowmesh/pkg/types"
)

// ============================================================================
//                              TCP 全网格建组
// ============================================================================

// 默认超时参数
const (
	// DefaultDialTimeout 单次拨号尝试超时
	DefaultDialTimeout = 10 * time.Second

	// DefaultHandshakeTimeout 单条连接握手超时
	DefaultHandshakeTimeout = 5 * time.Second

	// DefaultRetryInterval 拨号失败后的重试间隔
	DefaultRetryInterval = 100 * time.Millisecond
)

// Config TCP 建组配置
type Config struct {
	// Rank 本节点序号
	Rank types.Rank

	// Peers 按序号排列的节点地址表，长度即集群规模
	Peers []string

	// RunID 运行标识，用于握手摘要
	RunID types.RunID

	// ListenAddr 本节点监听地址，空则使用 Peers[Rank]
	ListenAddr string

	// Listener 预绑定监听器，非空时忽略 ListenAddr。
	// Dial 接管其生命周期，建组完成或失败后关闭。
	Listener net.Listener

	// DialTimeout 单次拨号尝试超时，零值取 DefaultDialTimeout
	DialTimeout time.Duration

	// HandshakeTimeout 单条连接握手超时，零值取 DefaultHandshakeTimeout
	HandshakeTimeout time.Duration

	// RetryInterval 拨号重试间隔，零值取 DefaultRetryInterval
	RetryInterval time.Duration
}

// normalize 填充零值配置
func (c *Config) normalize() {
	if c.DialTimeout <= 0 {
		c.DialTimeout = DefaultDialTimeout
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = DefaultRetryInterval
	}
	if c.ListenAddr == "" && c.Rank.Valid(len(c.Peers)) {
		c.ListenAddr = c.Peers[c.Rank]
	}
}

// Dial 建立 TCP 全网格节点组
//
// 本节点监听并接受全部高序号节点的接入，同时向全部低序号节点
// 拨号，直至与每个对端各保持一条已握手连接。对端尚未启动时
// 拨号按 RetryInterval 重试，直到 ctx 取消或超时。
//
// 任一连接握手失败（魔数、版本、运行摘要或序号不符）立即终止
// 建组并关闭全部已建连接。
func Dial(ctx context.Context, cfg Config) (*Mesh, error) {
	cfg.normalize()
	size := len(cfg.Peers)
	if size == 0 {
		return nil, fmt.Errorf("%w: empty peer table", ErrBadConfig)
	}
	if !cfg.Rank.Valid(size) {
		return nil, fmt.Errorf("%w: rank %s out of range [0, %d)", ErrBadConfig, cfg.Rank, size)
	}

	// 单节点组无需任何连接
	if size == 1 {
		if cfg.Listener != nil {
			cfg.Listener.Close()
		}
		return &Mesh{rank: cfg.Rank, conns: make([]pkgif.Connection, 1)}, nil
	}

	digest := runDigest(cfg.RunID, size)
	expect := size - 1 - int(cfg.Rank)

	ln := cfg.Listener
	if ln == nil && expect > 0 {
		var err error
		ln, err = net.Listen("tcp", cfg.ListenAddr)
		if err != nil {
			return nil, fmt.Errorf("listen %s: %w", cfg.ListenAddr, err)
		}
	}

	conns := make([]pkgif.Connection, size)
	var mu sync.Mutex
	claim := func(peer types.Rank, c pkgif.Connection) error {
		mu.Lock()
		defer mu.Unlock()
		if conns[peer] != nil {
			return fmt.Errorf("%w: %s", ErrDuplicateRank, peer)
		}
		conns[peer] = c
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)

	// ctx 取消时关闭监听器，解除 Accept 阻塞
	watchDone := make(chan struct{})
	if ln != nil {
		go func() {
			select {
			case <-gctx.Done():
				ln.Close()
			case <-watchDone:
			}
		}()
	}

	// 接受高序号节点接入
	if expect > 0 {
		g.Go(func() error {
			for i := 0; i < expect; i++ {
				raw, err := ln.Accept()
				if err != nil {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					return fmt.Errorf("accept: %w", err)
				}
				peer, err := acceptHandshake(raw, cfg, digest)
				if err != nil {
					raw.Close()
					return err
				}
				if err := claim(peer, &rankedConn{Conn: raw, peer: peer}); err != nil {
					raw.Close()
					return err
				}
				logger.Debug("接受对端接入", "rank", cfg.Rank, "peer", peer)
			}
			return nil
		})
	}

	// 向低序号节点拨号
	for p := 0; p < int(cfg.Rank); p++ {
		peer := types.Rank(p)
		g.Go(func() error {
			raw, err := dialPeer(gctx, cfg, peer, digest)
			if err != nil {
				return err
			}
			if err := claim(peer, &rankedConn{Conn: raw, peer: peer}); err != nil {
				raw.Close()
				return err
			}
			logger.Debug("已连接对端", "rank", cfg.Rank, "peer", peer)
			return nil
		})
	}

	err := g.Wait()
	close(watchDone)
	if ln != nil {
		ln.Close()
	}
	if err != nil {
		for _, c := range conns {
			if c != nil {
				c.Close()
			}
		}
		return nil, err
	}

	logger.Info("节点组已建立", "rank", cfg.Rank, "size", size)
	return &Mesh{rank: cfg.Rank, conns: conns}, nil
}

// acceptHandshake 在监听侧完成握手，返回对端序号
func acceptHandshake(conn net.Conn, cfg Config, digest uint32) (types.Rank, error) {
	tuneConn(conn)
	conn.SetDeadline(time.Now().Add(cfg.HandshakeTimeout))
	defer conn.SetDeadline(time.Time{})

	h, err := readHello(conn)
	if err != nil {
		return types.InvalidRank, err
	}
	if h.Digest != digest {
		return types.InvalidRank, fmt.Errorf("%w: peer %s", ErrRunMismatch, h.Rank)
	}
	if !h.Rank.Valid(len(cfg.Peers)) || h.Rank <= cfg.Rank {
		return types.InvalidRank, fmt.Errorf("%w: unexpected peer %s", ErrBadHandshake, h.Rank)
	}

	reply := hello{Rank: cfg.Rank, Digest: digest}
	if _, err := conn.Write(reply.marshal()); err != nil {
		return types.InvalidRank, fmt.Errorf("%w: %v", ErrBadHandshake, err)
	}
	return h.Rank, nil
}

// dialPeer 向单个低序号对端拨号并握手
//
// 拨号失败按 RetryInterval 重试，对端可能尚未监听；
// 握手失败不重试，视为集群配置错误。
func dialPeer(ctx context.Context, cfg Config, peer types.Rank, digest uint32) (net.Conn, error) {
	dialer := net.Dialer{Timeout: cfg.DialTimeout}
	addr := cfg.Peers[peer]

	for {
		raw, err := dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			if err := dialHandshake(raw, cfg, peer, digest); err != nil {
				raw.Close()
				return nil, err
			}
			return raw, nil
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("dial %s (peer %s): %w", addr, peer, ctx.Err())
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("dial %s (peer %s): %w", addr, peer, ctx.Err())
		case <-time.After(cfg.RetryInterval):
		}
	}
}

// dialHandshake 在拨号侧完成握手
func dialHandshake(conn net.Conn, cfg Config, peer types.Rank, digest uint32) error {
	tuneConn(conn)
	conn.SetDeadline(time.Now().Add(cfg.HandshakeTimeout))
	defer conn.SetDeadline(time.Time{})

	h := hello{Rank: cfg.Rank, Digest: digest}
	if _, err := conn.Write(h.marshal()); err != nil {
		return fmt.Errorf("%w: %v", ErrBadHandshake, err)
	}

	reply, err := readHello(conn)
	if err != nil {
		return err
	}
	if reply.Digest != digest {
		return fmt.Errorf("%w: peer %s", ErrRunMismatch, peer)
	}
	if reply.Rank != peer {
		return fmt.Errorf("%w: dialed peer %s, got %s", ErrBadHandshake, peer, reply.Rank)
	}
	return nil
}

// tuneConn 设置数据块传输的连接参数
func tuneConn(conn net.Conn) {
	if tc, ok := conn.(*net.TCPConn); ok {
		tc.SetNoDelay(true)
	}
}
