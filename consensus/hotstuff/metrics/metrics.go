// Package metrics collects the summary statistics spec.md §6.2's
// driver API exposes under `GET metrics`, in-process and without an
// HTTP exporter (SPEC_FULL.md §10: the out-of-scope web dashboard owns
// any export/plotting). Grounded on the teacher's
// module/metrics/consensus package, which registers its own
// Counter/Histogram/Summary collectors against a private
// prometheus.Registry rather than the global one, and reads them back
// through its own accessor methods instead of scraping an HTTP
// endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector accumulates the counts and latencies a simulation run
// produces, backed by a private prometheus.Registry so nothing here
// touches the global default registry (SPEC_FULL.md §10).
type Collector struct {
	registry *prometheus.Registry

	blocksCommitted prometheus.Counter
	timeouts        prometheus.Counter
	viewChanges     prometheus.Counter
	reordered       prometheus.Counter
	commitLatency   prometheus.Summary

	firstCommitMs int64
	lastCommitMs  int64
	haveCommit    bool
}

// New returns an empty Collector with its collectors registered against
// a fresh, private registry.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		blocksCommitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hotstuff_sim_blocks_committed_total",
			Help: "Total blocks committed across all replicas.",
		}),
		timeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hotstuff_sim_timeouts_total",
			Help: "Total pacemaker timeouts fired.",
		}),
		viewChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hotstuff_sim_view_changes_total",
			Help: "Total view-change transitions observed.",
		}),
		reordered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hotstuff_sim_reordered_deliveries_total",
			Help: "Total deliveries that arrived out of send order relative to the previous delivery on the same edge.",
		}),
		commitLatency: prometheus.NewSummary(prometheus.SummaryOpts{
			Name: "hotstuff_sim_commit_latency_ms",
			Help: "Per-block commit latency in milliseconds.",
			Objectives: map[float64]float64{
				0.5:  0.01,
				0.95: 0.005,
				0.99: 0.001,
			},
		}),
	}
	c.registry.MustRegister(c.blocksCommitted, c.timeouts, c.viewChanges, c.reordered, c.commitLatency)
	return c
}

// RecordCommit accounts one committed block at simulated time nowMs
// with the given end-to-end commit latency.
func (c *Collector) RecordCommit(nowMs int64, latencyMs int64) {
	c.blocksCommitted.Inc()
	c.commitLatency.Observe(float64(latencyMs))
	if !c.haveCommit {
		c.firstCommitMs = nowMs
		c.haveCommit = true
	}
	c.lastCommitMs = nowMs
}

// RecordTimeout accounts one fired pacemaker timeout.
func (c *Collector) RecordTimeout() {
	c.timeouts.Inc()
}

// RecordViewChange accounts one view-change transition.
func (c *Collector) RecordViewChange() {
	c.viewChanges.Inc()
}

// RecordReorder accounts one delivery the Network's per-edge buffer
// found arrived out of send order (network.Network.Reordered).
func (c *Collector) RecordReorder() {
	c.reordered.Inc()
}

// Snapshot is the point-in-time summary matching spec.md §6.2's
// `GET metrics` response shape.
type Snapshot struct {
	TotalBlocksCommitted      uint64
	TotalTimeouts             uint64
	ViewChangeCount           uint64
	TotalReordered            uint64
	AverageCommitLatencyMs    float64
	ThroughputBlocksPerSecond float64
	P50LatencyMs              float64
	P95LatencyMs              float64
	P99LatencyMs              float64
}

// Snapshot gathers the current metric values by scraping the private
// registry's families, the way a local accessor would - no HTTP layer
// involved (SPEC_FULL.md §10).
func (c *Collector) Snapshot() (Snapshot, error) {
	families, err := c.registry.Gather()
	if err != nil {
		return Snapshot{}, err
	}

	var snap Snapshot
	var sampleSum float64
	var sampleCount uint64
	quantiles := map[float64]float64{}

	for _, mf := range families {
		switch mf.GetName() {
		case "hotstuff_sim_blocks_committed_total":
			snap.TotalBlocksCommitted = uint64(mf.GetMetric()[0].GetCounter().GetValue())
		case "hotstuff_sim_timeouts_total":
			snap.TotalTimeouts = uint64(mf.GetMetric()[0].GetCounter().GetValue())
		case "hotstuff_sim_view_changes_total":
			snap.ViewChangeCount = uint64(mf.GetMetric()[0].GetCounter().GetValue())
		case "hotstuff_sim_reordered_deliveries_total":
			snap.TotalReordered = uint64(mf.GetMetric()[0].GetCounter().GetValue())
		case "hotstuff_sim_commit_latency_ms":
			summary := mf.GetMetric()[0].GetSummary()
			sampleSum = summary.GetSampleSum()
			sampleCount = summary.GetSampleCount()
			for _, q := range summary.GetQuantile() {
				quantiles[q.GetQuantile()] = q.GetValue()
			}
		}
	}

	if sampleCount > 0 {
		snap.AverageCommitLatencyMs = sampleSum / float64(sampleCount)
	}
	snap.P50LatencyMs = quantiles[0.5]
	snap.P95LatencyMs = quantiles[0.95]
	snap.P99LatencyMs = quantiles[0.99]

	if c.haveCommit && c.lastCommitMs > c.firstCommitMs {
		elapsedSeconds := float64(c.lastCommitMs-c.firstCommitMs) / 1000.0
		snap.ThroughputBlocksPerSecond = float64(snap.TotalBlocksCommitted) / elapsedSeconds
	}

	return snap, nil
}
