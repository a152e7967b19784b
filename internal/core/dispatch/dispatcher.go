package dispatch

import (
	"io"
	"sync"

	pkgif "github.com/flowmesh/go-flowmesh/pkg/interfaces"
	"github.com/flowmesh/go-flowmesh/pkg/lib/log"
)

var logger = log.Logger("core/dispatch")

// 接口实现检查
var _ pkgif.Dispatcher = (*Dispatcher)(nil)

// taskQueueSize 顺序化协程的任务队列容量
const taskQueueSize = 128

// Dispatcher 异步连接读写引擎
//
// 读取完成回调与连接失败回调全部投递到单一顺序化协程执行，
// 回调之间天然互斥；写入由每连接一个的写协程按入队顺序落盘。
//
// 顺序化协程上的回调不得阻塞："等待更多数据"通过再次 AsyncRead
// 表达，管理操作通过 Post 表达。
type Dispatcher struct {
	cfg Config

	// tasks 顺序化协程的任务队列
	tasks chan func()
	quit  chan struct{}

	mu      sync.Mutex
	writers map[pkgif.Connection]*connWriter
	handler pkgif.FailureHandler
	closed  bool

	// failed 已上报失败的连接，仅顺序化协程访问
	failed map[pkgif.Connection]bool

	seqDone chan struct{}
}

// New 创建调度器并启动顺序化协程
func New(cfg Config) *Dispatcher {
	d := &Dispatcher{
		cfg:     cfg,
		tasks:   make(chan func(), taskQueueSize),
		quit:    make(chan struct{}),
		writers: make(map[pkgif.Connection]*connWriter),
		failed:  make(map[pkgif.Connection]bool),
		seqDone: make(chan struct{}),
	}
	go d.run()
	return d
}

// run 顺序化协程主循环
func (d *Dispatcher) run() {
	defer close(d.seqDone)
	for {
		select {
		case task := <-d.tasks:
			task()
		case <-d.quit:
			return
		}
	}
}

// Post 将任务投递到顺序化协程执行
//
// 调度器已关闭时任务被丢弃。顺序化协程内部不得调用 Post，
// 队列满时会互相等待。
func (d *Dispatcher) Post(task func()) {
	select {
	case d.tasks <- task:
	case <-d.quit:
	}
}

// AsyncRead 在连接上挂载一次恰好 n 字节的读取
//
// 读满后回调在顺序化协程上执行；读取出错时回调收到 err，
// 连接随后经失败处理器上报（每连接至多一次）。
func (d *Dispatcher) AsyncRead(conn pkgif.Connection, n int, cb pkgif.ReadCallback) {
	select {
	case <-d.quit:
		return
	default:
	}

	go func() {
		buf := make([]byte, n)
		_, err := io.ReadFull(conn, buf)
		d.Post(func() {
			if err != nil {
				cb(conn, nil, err)
				d.failConn(conn, err)
				return
			}
			cb(conn, buf, nil)
		})
	}()
}

// AsyncWrite 将帧追加到连接的发送队列
//
// 同一连接上的帧严格按入队顺序写出。队列无界，本层无背压。
func (d *Dispatcher) AsyncWrite(conn pkgif.Connection, frame []byte) {
	w := d.writer(conn)
	if w == nil {
		return
	}
	w.enqueue(frame)
}

// OnFailure 注册连接失败处理器
//
// 须在挂载任何读写之前调用；处理器在顺序化协程上执行。
func (d *Dispatcher) OnFailure(handler pkgif.FailureHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handler = handler
}

// Close 停止调度器
//
// 未写出的帧被丢弃；阻塞中的读取在连接关闭后自然退出。
// 会等待顺序化协程退出，因此不得在回调内调用。
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	writers := d.writers
	d.writers = nil
	d.mu.Unlock()

	close(d.quit)
	<-d.seqDone

	for _, w := range writers {
		w.close()
	}

	logger.Debug("调度器已关闭", "writers", len(writers))
	return nil
}

// writer 返回连接的写协程，不存在则创建；调度器已关闭时返回 nil
func (d *Dispatcher) writer(conn pkgif.Connection) *connWriter {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	if w, ok := d.writers[conn]; ok {
		return w
	}
	w := newConnWriter(d, conn, d.cfg.QueueWarn)
	d.writers[conn] = w
	return w
}

// failConn 上报连接失败，每连接至多一次；仅顺序化协程调用
func (d *Dispatcher) failConn(conn pkgif.Connection, err error) {
	if d.failed[conn] {
		return
	}
	d.failed[conn] = true

	d.mu.Lock()
	handler := d.handler
	d.mu.Unlock()

	logger.Warn("连接失败", "peer", conn.Peer(), "err", err)
	if handler != nil {
		handler(conn, err)
	}
}

// reportWriteFailure 写协程出错时经顺序化协程上报
func (d *Dispatcher) reportWriteFailure(conn pkgif.Connection, err error) {
	d.Post(func() {
		d.failConn(conn, err)
	})
}
