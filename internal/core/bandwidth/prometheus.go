package bandwidth

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/flowmesh/go-flowmesh/pkg/types"
)

// ============================================================================
//                              Prometheus 采集器
// ============================================================================

// 接口实现检查
var _ prometheus.Collector = (*Collector)(nil)

// Collector 将带宽计数器暴露为 prometheus 指标
//
// 采集时读取计数器快照，不维护自身状态。
// 注册方式：prometheus.MustRegister(NewCollector(counter, rank))。
type Collector struct {
	counter *Counter

	bytesDesc     *prometheus.Desc
	blocksDesc    *prometheus.Desc
	rateDesc      *prometheus.Desc
	peerBytesDesc *prometheus.Desc
}

// NewCollector 创建带宽指标采集器
func NewCollector(counter *Counter, rank types.Rank) *Collector {
	constLabels := prometheus.Labels{"rank": strconv.Itoa(int(rank))}
	return &Collector{
		counter: counter,
		bytesDesc: prometheus.NewDesc(
			"flowmesh_exchange_bytes_total",
			"Total payload bytes exchanged over the network.",
			[]string{"direction"}, constLabels,
		),
		blocksDesc: prometheus.NewDesc(
			"flowmesh_exchange_blocks_total",
			"Total data blocks exchanged over the network.",
			[]string{"direction"}, constLabels,
		),
		rateDesc: prometheus.NewDesc(
			"flowmesh_exchange_rate_bytes_per_second",
			"EWMA estimate of the current transfer rate.",
			[]string{"direction"}, constLabels,
		),
		peerBytesDesc: prometheus.NewDesc(
			"flowmesh_exchange_peer_bytes_total",
			"Total payload bytes exchanged with a single peer.",
			[]string{"direction", "peer"}, constLabels,
		),
	}
}

// Describe 实现 prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.bytesDesc
	ch <- c.blocksDesc
	ch <- c.rateDesc
	ch <- c.peerBytesDesc
}

// Collect 实现 prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	totals := c.counter.Totals()

	ch <- prometheus.MustNewConstMetric(c.bytesDesc, prometheus.CounterValue,
		float64(totals.BytesSent), "out")
	ch <- prometheus.MustNewConstMetric(c.bytesDesc, prometheus.CounterValue,
		float64(totals.BytesRecv), "in")
	ch <- prometheus.MustNewConstMetric(c.blocksDesc, prometheus.CounterValue,
		float64(totals.BlocksSent), "out")
	ch <- prometheus.MustNewConstMetric(c.blocksDesc, prometheus.CounterValue,
		float64(totals.BlocksRecv), "in")
	ch <- prometheus.MustNewConstMetric(c.rateDesc, prometheus.GaugeValue,
		totals.RateOut, "out")
	ch <- prometheus.MustNewConstMetric(c.rateDesc, prometheus.GaugeValue,
		totals.RateIn, "in")

	for peer, snap := range c.counter.ByPeer() {
		peerLabel := strconv.Itoa(int(peer))
		ch <- prometheus.MustNewConstMetric(c.peerBytesDesc, prometheus.CounterValue,
			float64(snap.BytesSent), "out", peerLabel)
		ch <- prometheus.MustNewConstMetric(c.peerBytesDesc, prometheus.CounterValue,
			float64(snap.BytesRecv), "in", peerLabel)
	}
}
