// Package metrics exposes the protocol counters as prometheus metrics for
// the live node.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/minisr/minisr/internal/selectiverepeat"
)

const namespace = "minisr"

// SenderProvider returns a fresh snapshot of a sender's counters.
type SenderProvider func() selectiverepeat.SenderCounters

// ReceiverProvider returns a fresh snapshot of a receiver's counters.
type ReceiverProvider func() selectiverepeat.ReceiverCounters

// SenderCollector is a prometheus collector over a sender's counters.
type SenderCollector struct {
	provider SenderProvider

	messagesAcceptedDesc *prometheus.Desc
	windowFullDesc       *prometheus.Desc
	packetsSentDesc      *prometheus.Desc
	packetsResentDesc    *prometheus.Desc
	acksReceivedDesc     *prometheus.Desc
	newACKsDesc          *prometheus.Desc
}

// NewSenderCollector creates a collector reading counters from the given
// provider, which is called on every scrape.
func NewSenderCollector(provider SenderProvider) *SenderCollector {
	return &SenderCollector{
		provider: provider,
		messagesAcceptedDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "sender", "messages_accepted_total"),
			"Messages accepted into the send window", nil, nil),
		windowFullDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "sender", "window_full_total"),
			"Messages rejected because the send window was full", nil, nil),
		packetsSentDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "sender", "packets_sent_total"),
			"Original packet transmissions", nil, nil),
		packetsResentDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "sender", "packets_resent_total"),
			"Timeout-driven retransmissions", nil, nil),
		acksReceivedDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "sender", "acks_received_total"),
			"Uncorrupted acknowledgments received", nil, nil),
		newACKsDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "sender", "new_acks_total"),
			"Acknowledgments for in-window unacked packets", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *SenderCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.messagesAcceptedDesc
	ch <- c.windowFullDesc
	ch <- c.packetsSentDesc
	ch <- c.packetsResentDesc
	ch <- c.acksReceivedDesc
	ch <- c.newACKsDesc
}

// Collect implements prometheus.Collector.
func (c *SenderCollector) Collect(ch chan<- prometheus.Metric) {
	counters := c.provider()
	ch <- prometheus.MustNewConstMetric(c.messagesAcceptedDesc,
		prometheus.CounterValue, float64(counters.MessagesAccepted))
	ch <- prometheus.MustNewConstMetric(c.windowFullDesc,
		prometheus.CounterValue, float64(counters.WindowFull))
	ch <- prometheus.MustNewConstMetric(c.packetsSentDesc,
		prometheus.CounterValue, float64(counters.PacketsSent))
	ch <- prometheus.MustNewConstMetric(c.packetsResentDesc,
		prometheus.CounterValue, float64(counters.PacketsResent))
	ch <- prometheus.MustNewConstMetric(c.acksReceivedDesc,
		prometheus.CounterValue, float64(counters.ACKsReceived))
	ch <- prometheus.MustNewConstMetric(c.newACKsDesc,
		prometheus.CounterValue, float64(counters.NewACKs))
}

// ReceiverCollector is a prometheus collector over a receiver's counters.
type ReceiverCollector struct {
	provider ReceiverProvider

	packetsReceivedDesc  *prometheus.Desc
	corruptedPacketsDesc *prometheus.Desc
	deliveredDesc        *prometheus.Desc
	acksSentDesc         *prometheus.Desc
	naksSentDesc         *prometheus.Desc
}

// NewReceiverCollector creates a collector reading counters from the given
// provider, which is called on every scrape.
func NewReceiverCollector(provider ReceiverProvider) *ReceiverCollector {
	return &ReceiverCollector{
		provider: provider,
		packetsReceivedDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "receiver", "packets_received_total"),
			"Uncorrupted data packets received", nil, nil),
		corruptedPacketsDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "receiver", "corrupted_packets_total"),
			"Arrivals rejected by the checksum", nil, nil),
		deliveredDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "receiver", "delivered_total"),
			"Payloads delivered upward in order", nil, nil),
		acksSentDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "receiver", "acks_sent_total"),
			"Positive acknowledgments emitted", nil, nil),
		naksSentDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "receiver", "naks_sent_total"),
			"Advisory negative acknowledgments emitted", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *ReceiverCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.packetsReceivedDesc
	ch <- c.corruptedPacketsDesc
	ch <- c.deliveredDesc
	ch <- c.acksSentDesc
	ch <- c.naksSentDesc
}

// Collect implements prometheus.Collector.
func (c *ReceiverCollector) Collect(ch chan<- prometheus.Metric) {
	counters := c.provider()
	ch <- prometheus.MustNewConstMetric(c.packetsReceivedDesc,
		prometheus.CounterValue, float64(counters.PacketsReceived))
	ch <- prometheus.MustNewConstMetric(c.corruptedPacketsDesc,
		prometheus.CounterValue, float64(counters.CorruptedPackets))
	ch <- prometheus.MustNewConstMetric(c.deliveredDesc,
		prometheus.CounterValue, float64(counters.Delivered))
	ch <- prometheus.MustNewConstMetric(c.acksSentDesc,
		prometheus.CounterValue, float64(counters.ACKsSent))
	ch <- prometheus.MustNewConstMetric(c.naksSentDesc,
		prometheus.CounterValue, float64(counters.NAKsSent))
}
