package flowmesh

import (
	"github.com/google/uuid"

	"github.com/flowmesh/go-flowmesh/internal/core/group"
	pkgif "github.com/flowmesh/go-flowmesh/pkg/interfaces"
)

// ════════════════════════════════════════════════════════════════════════════
//                              版本信息
// ════════════════════════════════════════════════════════════════════════════

// Version 当前版本
const Version = "v0.1.0"

// BuildInfo 构建信息（通过 ldflags 注入）
var (
	// GitCommit Git 提交哈希
	GitCommit string

	// BuildDate 构建日期
	BuildDate string
)

// VersionInfo 返回完整版本信息字符串
func VersionInfo() string {
	info := "FlowMesh " + Version
	if GitCommit != "" {
		info += " (" + GitCommit[:min(8, len(GitCommit))] + ")"
	}
	if BuildDate != "" {
		info += " built " + BuildDate
	}
	return info
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// ════════════════════════════════════════════════════════════════════════════
//                              运行标识
// ════════════════════════════════════════════════════════════════════════════

// NewRunID 生成一个新的运行标识
//
// 同一批次的所有工作节点必须使用相同的运行标识，握手时校验，
// 防止不同批次的节点互连。由启动器生成一次并分发给所有节点：
//
//	runID := flowmesh.NewRunID()
//	w0, _ := flowmesh.New(flowmesh.WithRank(0), flowmesh.WithRunID(runID), ...)
//	w1, _ := flowmesh.New(flowmesh.WithRank(1), flowmesh.WithRunID(runID), ...)
func NewRunID() string {
	return uuid.NewString()
}

// ════════════════════════════════════════════════════════════════════════════
//                              进程内集群
// ════════════════════════════════════════════════════════════════════════════

// NewMemCluster 创建 n 个通过内存管道互连的节点组
//
// 返回的组按序号排列，配合 WithGroup 使用，
// 用于单进程内的测试与演示，无需监听端口：
//
//	groups := flowmesh.NewMemCluster(3)
//	for i, g := range groups {
//	    w, _ := flowmesh.New(flowmesh.WithGroup(g))
//	    // ...
//	    _ = i
//	    _ = w
//	}
func NewMemCluster(n int) []pkgif.Group {
	meshes := group.NewMemCluster(n)
	groups := make([]pkgif.Group, len(meshes))
	for i, m := range meshes {
		groups[i] = m
	}
	return groups
}
