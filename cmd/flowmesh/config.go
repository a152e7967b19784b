package main

import (
	"os"
	"strings"

	"github.com/flowmesh/go-flowmesh"
)

// ============================================================================
//                              配置加载（CLI 专用）
// ============================================================================

// 环境变量名（均使用 FLOWMESH_ 前缀）
const (
	envPreset  = "FLOWMESH_PRESET"
	envRunID   = "FLOWMESH_RUN_ID"
	envLogFile = "FLOWMESH_LOG_FILE"
)

// commonOptions 构建两种运行模式共享的选项
//
// 配置优先级（从高到低）：
//  1. 命令行参数（运行时覆盖）
//  2. 环境变量（FLOWMESH_* 前缀）
//  3. 配置文件（持久化配置）
//  4. 预设默认值
func commonOptions() ([]flowmesh.Option, error) {
	var opts []flowmesh.Option

	// 配置文件（持久化配置）
	if *configFile != "" {
		opts = append(opts, flowmesh.WithConfigFile(*configFile))
	}

	// 预设（命令行 > 环境变量）
	presetName := *preset
	if presetName == "" {
		presetName = os.Getenv(envPreset)
	}
	if presetName != "" {
		opts = append(opts, flowmesh.WithPreset(presetName))
	}

	// 日志文件（命令行在 setupLogging 中处理，此处仅环境变量）
	if *logFile == "" {
		if v := os.Getenv(envLogFile); v != "" {
			opts = append(opts, flowmesh.WithLogFile(v))
		}
	}

	return opts, nil
}

// resolveRunID 解析运行标识（命令行 > 环境变量）
func resolveRunID() string {
	if *runID != "" {
		return *runID
	}
	return os.Getenv(envRunID)
}

// ============================================================================
//                              辅助函数
// ============================================================================

// splitAndTrim 分割字符串并去除空白
func splitAndTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
