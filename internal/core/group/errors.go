package group

import "errors"

// 节点组错误定义
var (
	// ErrBadConfig 建组配置不合法
	ErrBadConfig = errors.New("invalid group config")

	// ErrBadHandshake 握手帧不合法或握手传输失败
	ErrBadHandshake = errors.New("bad handshake")

	// ErrRunMismatch 对端属于其他运行实例或规模配置不一致
	ErrRunMismatch = errors.New("run digest mismatch")

	// ErrDuplicateRank 同一对端序号出现多条连接
	ErrDuplicateRank = errors.New("duplicate peer rank")
)
