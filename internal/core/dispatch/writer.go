package dispatch

import (
	"sync"

	pkgif "github.com/flowmesh/go-flowmesh/pkg/interfaces"
)

// connWriter 单连接写协程
//
// 维护无界 FIFO 发送队列，由专属协程按顺序写出。
// 首个写错误后连接视为不可用，后续帧直接丢弃。
type connWriter struct {
	d    *Dispatcher
	conn pkgif.Connection

	// warnAt 队列长度告警阈值，0 表示不告警
	warnAt int

	mu     sync.Mutex
	cond   *sync.Cond
	queue  [][]byte
	closed bool
	err    error
	warned bool
}

// newConnWriter 创建写协程并启动
func newConnWriter(d *Dispatcher, conn pkgif.Connection, warnAt int) *connWriter {
	w := &connWriter{
		d:      d,
		conn:   conn,
		warnAt: warnAt,
	}
	w.cond = sync.NewCond(&w.mu)
	go w.run()
	return w
}

// enqueue 追加一帧；连接已失败或关闭时丢弃
func (w *connWriter) enqueue(frame []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || w.err != nil {
		return
	}
	w.queue = append(w.queue, frame)

	if w.warnAt > 0 && len(w.queue) >= w.warnAt && !w.warned {
		w.warned = true
		logger.Warn("发送队列积压", "peer", w.conn.Peer(), "queued", len(w.queue))
	}

	w.cond.Signal()
}

// run 写协程主循环
func (w *connWriter) run() {
	for {
		w.mu.Lock()
		for len(w.queue) == 0 && !w.closed {
			w.cond.Wait()
		}
		if w.closed {
			w.queue = nil
			w.mu.Unlock()
			return
		}
		frame := w.queue[0]
		w.queue = w.queue[1:]
		if len(w.queue) < w.warnAt/2 {
			w.warned = false
		}
		w.mu.Unlock()

		if _, err := w.conn.Write(frame); err != nil {
			w.mu.Lock()
			w.err = err
			w.queue = nil
			w.mu.Unlock()

			w.d.reportWriteFailure(w.conn, err)
			return
		}
	}
}

// close 停止写协程，丢弃未写出的帧
func (w *connWriter) close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	w.closed = true
	w.cond.Signal()
}
