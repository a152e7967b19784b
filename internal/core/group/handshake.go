package group

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"io"
	"strconv"

	"github.com/flowmesh/go-flowmesh/pkg/types"
)

// ============================================================================
//                              连接握手
// ============================================================================

// 握手帧布局（16 字节，网络字节序）：
//
//	+0  magic    [4]byte  "FMSH"
//	+4  version  uint8    协议版本
//	+5  reserved [3]byte  置零
//	+8  rank     uint32   发送方节点序号
//	+12 digest   uint32   运行摘要，见 runDigest
//
// 拨号方先发帧，监听方校验后回帧。任一侧校验失败即关闭连接。

const (
	// handshakeLen 握手帧字节数
	handshakeLen = 16

	// handshakeVersion 当前协议版本
	handshakeVersion = 1
)

// handshakeMagic 握手帧魔数
var handshakeMagic = [4]byte{'F', 'M', 'S', 'H'}

// hello 握手帧内容
type hello struct {
	Rank   types.Rank
	Digest uint32
}

// runDigest 计算运行摘要
//
// 摘要绑定运行标识与集群规模，拒绝来自其他运行实例
// 或规模配置不一致的节点接入。
func runDigest(runID types.RunID, size int) uint32 {
	h := fnv.New32a()
	h.Write([]byte(runID))
	h.Write([]byte{':'})
	h.Write([]byte(strconv.Itoa(size)))
	return h.Sum32()
}

// marshal 编码握手帧
func (h hello) marshal() []byte {
	buf := make([]byte, handshakeLen)
	copy(buf[0:4], handshakeMagic[:])
	buf[4] = handshakeVersion
	binary.BigEndian.PutUint32(buf[8:12], uint32(h.Rank))
	binary.BigEndian.PutUint32(buf[12:16], h.Digest)
	return buf
}

// readHello 读取并校验一个握手帧
//
// 魔数或版本不符返回 ErrBadHandshake，其余字段由调用方比对。
func readHello(r io.Reader) (hello, error) {
	buf := make([]byte, handshakeLen)
	if _, err := io.ReadFull(r, buf); err != nil {
		return hello{}, fmt.Errorf("%w: %v", ErrBadHandshake, err)
	}
	if [4]byte(buf[0:4]) != handshakeMagic {
		return hello{}, fmt.Errorf("%w: bad magic %q", ErrBadHandshake, buf[0:4])
	}
	if buf[4] != handshakeVersion {
		return hello{}, fmt.Errorf("%w: version %d, want %d", ErrBadHandshake, buf[4], handshakeVersion)
	}
	return hello{
		Rank:   types.Rank(binary.BigEndian.Uint32(buf[8:12])),
		Digest: binary.BigEndian.Uint32(buf[12:16]),
	}, nil
}
