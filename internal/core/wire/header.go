package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/flowmesh/go-flowmesh/pkg/types"
)

// HeaderLen 块头部的编码长度（字节）
const HeaderLen = 8

// BlockHeader 数据块头部
//
// 每个数据块写入连接前都先写入一个定长头部，
// 接收端据此把后续载荷路由到正确的通道。
//
// Length 为 0 表示结束标记：发送方在该通道上的子流已结束，
// 其后没有载荷字节。因此合法数据块的载荷长度必须大于 0。
type BlockHeader struct {
	// Length 载荷字节数，0 表示子流结束
	Length uint32

	// Channel 数据块所属通道
	Channel types.ChannelID
}

// EndHeader 返回指定通道的结束标记头部
func EndHeader(id types.ChannelID) BlockHeader {
	return BlockHeader{Length: 0, Channel: id}
}

// IsEnd 检查头部是否为结束标记
func (h BlockHeader) IsEnd() bool {
	return h.Length == 0
}

// AppendTo 把头部编码追加到 buf 并返回扩展后的切片
func (h BlockHeader) AppendTo(buf []byte) []byte {
	var b [HeaderLen]byte
	binary.BigEndian.PutUint32(b[0:4], h.Length)
	binary.BigEndian.PutUint32(b[4:8], uint32(h.Channel))
	return append(buf, b[:]...)
}

// Marshal 返回头部的编码字节
func (h BlockHeader) Marshal() []byte {
	return h.AppendTo(make([]byte, 0, HeaderLen))
}

// String 返回头部的字符串表示
func (h BlockHeader) String() string {
	if h.IsEnd() {
		return fmt.Sprintf("%s/end", h.Channel)
	}
	return fmt.Sprintf("%s/%dB", h.Channel, h.Length)
}

// ParseBlockHeader 解析块头部
//
// maxLen 大于 0 时校验载荷长度上限，超限视为协议违规，
// 返回 ErrBlockTooLarge；buf 不足 HeaderLen 字节返回 ErrHeaderTruncated。
func ParseBlockHeader(buf []byte, maxLen uint32) (BlockHeader, error) {
	if len(buf) < HeaderLen {
		return BlockHeader{}, fmt.Errorf("%w: got %d bytes, need %d", ErrHeaderTruncated, len(buf), HeaderLen)
	}

	h := BlockHeader{
		Length:  binary.BigEndian.Uint32(buf[0:4]),
		Channel: types.ChannelID(binary.BigEndian.Uint32(buf[4:8])),
	}

	if maxLen > 0 && h.Length > maxLen {
		return BlockHeader{}, fmt.Errorf("%w: %d > %d", ErrBlockTooLarge, h.Length, maxLen)
	}
	return h, nil
}

// Frame 构造完整的出向帧：头部与载荷的连续内存
//
// 头部与载荷一次性入队，保证同一连接上不会有其他帧插入二者之间。
func Frame(id types.ChannelID, payload []byte) []byte {
	buf := make([]byte, 0, HeaderLen+len(payload))
	buf = BlockHeader{Length: uint32(len(payload)), Channel: id}.AppendTo(buf)
	return append(buf, payload...)
}
