package wire

import "errors"

var (
	// ErrHeaderTruncated 头部字节不足错误
	ErrHeaderTruncated = errors.New("truncated block header")

	// ErrBlockTooLarge 载荷长度超过配置上限错误
	ErrBlockTooLarge = errors.New("block length exceeds limit")
)
