// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ntdcp

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is a custom prometheus.Collector exposing the stack's protocol
// counters: dedup hits, forwarded/dropped/originated packages, and socket
// retransmissions/acks. It mirrors the Describe/Collect shape
// runZeroInc-sockstats' TCPInfoCollector uses for kernel TCP_INFO gauges,
// applied here to the network and transport layers' own bookkeeping
// instead of a syscall.
//
// A nil *Metrics is valid everywhere it is accepted: every increment
// method is a no-op on a nil receiver, so metrics wiring is opt-in.
type Metrics struct {
	dedupHits         atomic.Uint64
	originated        atomic.Uint64
	forwarded         atomic.Uint64
	droppedHopLimit   atomic.Uint64
	droppedMalformed  atomic.Uint64
	socketRetransmits atomic.Uint64
	socketAcksSent    atomic.Uint64
}

// NewMetrics returns a ready-to-register Metrics collector.
func NewMetrics() *Metrics { return &Metrics{} }

func (m *Metrics) IncDedupHit() {
	if m == nil {
		return
	}
	m.dedupHits.Add(1)
}

func (m *Metrics) IncOriginated() {
	if m == nil {
		return
	}
	m.originated.Add(1)
}

func (m *Metrics) IncForwarded() {
	if m == nil {
		return
	}
	m.forwarded.Add(1)
}

func (m *Metrics) IncDroppedHopLimit() {
	if m == nil {
		return
	}
	m.droppedHopLimit.Add(1)
}

func (m *Metrics) IncDroppedMalformed() {
	if m == nil {
		return
	}
	m.droppedMalformed.Add(1)
}

func (m *Metrics) IncSocketRetransmit() {
	if m == nil {
		return
	}
	m.socketRetransmits.Add(1)
}

func (m *Metrics) IncSocketAckSent() {
	if m == nil {
		return
	}
	m.socketAcksSent.Add(1)
}

var (
	descDedupHits = prometheus.NewDesc(
		"ntdcp_network_dedup_hits_total",
		"Packages dropped because their package id was already in the deduplication set.",
		nil, nil,
	)
	descOriginated = prometheus.NewDesc(
		"ntdcp_network_originated_total",
		"Packages originated by this node.",
		nil, nil,
	)
	descForwarded = prometheus.NewDesc(
		"ntdcp_network_forwarded_total",
		"Packages flood-forwarded toward their destination.",
		nil, nil,
	)
	descDroppedHopLimit = prometheus.NewDesc(
		"ntdcp_network_dropped_hop_limit_total",
		"Packages dropped because their hop limit reached zero.",
		nil, nil,
	)
	descDroppedMalformed = prometheus.NewDesc(
		"ntdcp_network_dropped_malformed_total",
		"Frames dropped because their network or transport header failed to decode.",
		nil, nil,
	)
	descSocketRetransmits = prometheus.NewDesc(
		"ntdcp_transport_socket_retransmits_total",
		"Retransmissions of an unacknowledged reliable-socket send task.",
		nil, nil,
	)
	descSocketAcksSent = prometheus.NewDesc(
		"ntdcp_transport_socket_acks_sent_total",
		"Acknowledgements (piggy-backed or forced) sent by reliable sockets.",
		nil, nil,
	)
)

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(descs chan<- *prometheus.Desc) {
	descs <- descDedupHits
	descs <- descOriginated
	descs <- descForwarded
	descs <- descDroppedHopLimit
	descs <- descDroppedMalformed
	descs <- descSocketRetransmits
	descs <- descSocketAcksSent
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(metrics chan<- prometheus.Metric) {
	metrics <- prometheus.MustNewConstMetric(descDedupHits, prometheus.CounterValue, float64(m.dedupHits.Load()))
	metrics <- prometheus.MustNewConstMetric(descOriginated, prometheus.CounterValue, float64(m.originated.Load()))
	metrics <- prometheus.MustNewConstMetric(descForwarded, prometheus.CounterValue, float64(m.forwarded.Load()))
	metrics <- prometheus.MustNewConstMetric(descDroppedHopLimit, prometheus.CounterValue, float64(m.droppedHopLimit.Load()))
	metrics <- prometheus.MustNewConstMetric(descDroppedMalformed, prometheus.CounterValue, float64(m.droppedMalformed.Load()))
	metrics <- prometheus.MustNewConstMetric(descSocketRetransmits, prometheus.CounterValue, float64(m.socketRetransmits.Load()))
	metrics <- prometheus.MustNewConstMetric(descSocketAcksSent, prometheus.CounterValue, float64(m.socketAcksSent.Load()))
}
