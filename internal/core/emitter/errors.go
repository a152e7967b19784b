package emitter

import "errors"

var (
	// ErrEmitterClosed 发射器已关闭错误
	ErrEmitterClosed = errors.New("emitter closed")

	// ErrEmptyBlock 空数据块错误
	//
	// 线上格式把载荷长度 0 保留作结束标记，空块无法表达。
	ErrEmptyBlock = errors.New("empty block not allowed")
)
