/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package metrics

import (
	"quant-hft-core/dispatch"
	"quant-hft-core/strategy"
)

// CriticalQueueCollector exports dispatch.CriticalQueueStats under the
// names §6 calls out explicitly: python_callback_dispatcher_dropped_total,
// ..._critical_timeout_total, ..._critical_queue_delay_exceeded_total (the
// "python_callback_dispatcher" prefix is kept verbatim from the source's
// metric names since operators' existing dashboards key off it).
type CriticalQueueCollector struct {
	dropped         *Counter
	criticalTimeout *Counter
	delayExceeded   *Counter
	pending         *Gauge
	maxPending      *Gauge

	lastDropped         uint64
	lastCriticalTimeout uint64
	lastDelayExceeded   uint64
}

// NewCriticalQueueCollector registers the critical-queue metric family. reg
// may be nil, in which case every Collect call is a no-op.
func NewCriticalQueueCollector(reg *Registry, labels Labels) *CriticalQueueCollector {
	return &CriticalQueueCollector{
		dropped:         reg.BuildCounter("python_callback_dispatcher_dropped_total", "tasks dropped: non-critical on a full queue, critical after the bounded wait", labels),
		criticalTimeout: reg.BuildCounter("python_callback_dispatcher_critical_timeout_total", "critical tasks rejected after the bounded wait elapsed", labels),
		delayExceeded:   reg.BuildCounter("python_callback_dispatcher_critical_queue_delay_exceeded_total", "critical tasks whose queue delay exceeded the alert threshold", labels),
		pending:         reg.BuildGauge("python_callback_dispatcher_pending", "current queue occupancy", labels),
		maxPending:      reg.BuildGauge("python_callback_dispatcher_max_pending", "high-water mark of queue occupancy", labels),
	}
}

// Collect takes a Stats snapshot and publishes it. Counters only move
// forward (the snapshot is cumulative, same as the source's Stats struct),
// so Collect tracks the last-seen value per counter and adds the delta.
func (c *CriticalQueueCollector) Collect(stats dispatch.CriticalQueueStats) {
	if c == nil {
		return
	}
	c.dropped.Add(deltaUint64(&c.lastDropped, stats.Dropped))
	c.criticalTimeout.Add(deltaUint64(&c.lastCriticalTimeout, stats.CriticalTimeout))
	c.delayExceeded.Add(deltaUint64(&c.lastDelayExceeded, stats.CriticalDelayExceeded))
	c.pending.Set(float64(stats.Pending))
	c.maxPending.Set(float64(stats.MaxPending))
}

// DispatcherCollector exports dispatch.Stats (event dispatcher
// processed/dropped + worker gauges, §6).
type DispatcherCollector struct {
	processed     *Counter
	pendingHigh   *Gauge
	pendingNormal *Gauge
	pendingLow    *Gauge
	workers       *Gauge

	lastProcessed uint64
}

func NewDispatcherCollector(reg *Registry, labels Labels) *DispatcherCollector {
	return &DispatcherCollector{
		processed:     reg.BuildCounter("event_dispatcher_processed_total", "tasks processed by the priority worker pool", labels),
		pendingHigh:   reg.BuildGauge("event_dispatcher_pending_high", "pending high-priority tasks", labels),
		pendingNormal: reg.BuildGauge("event_dispatcher_pending_normal", "pending normal-priority tasks", labels),
		pendingLow:    reg.BuildGauge("event_dispatcher_pending_low", "pending low-priority tasks", labels),
		workers:       reg.BuildGauge("event_dispatcher_workers", "configured worker count", labels),
	}
}

func (c *DispatcherCollector) Collect(stats dispatch.Stats) {
	if c == nil {
		return
	}
	c.processed.Add(deltaUint64(&c.lastProcessed, stats.ProcessedTotal))
	c.pendingHigh.Set(float64(stats.PendingHigh))
	c.pendingNormal.Set(float64(stats.PendingNormal))
	c.pendingLow.Set(float64(stats.PendingLow))
	c.workers.Set(float64(stats.WorkerThreads))
}

// StrategyEngineCollector exports strategy.Stats: enqueued, processed,
// dropped, broadcast, unmatched, exceptions, snapshot runs, collection runs
// (§6's "strategy-engine stat fields" line).
type StrategyEngineCollector struct {
	enqueued          *Counter
	processed         *Counter
	droppedOldest     *Counter
	broadcastOrders   *Counter
	unmatchedOrders   *Counter
	callbackExceptions *Counter
	snapshotRuns      *Counter
	snapshotFailures  *Counter
	collectionRuns    *Counter

	last strategy.Stats
}

func NewStrategyEngineCollector(reg *Registry, labels Labels) *StrategyEngineCollector {
	return &StrategyEngineCollector{
		enqueued:           reg.BuildCounter("strategy_engine_enqueued_total", "events enqueued onto the strategy engine", labels),
		processed:          reg.BuildCounter("strategy_engine_processed_total", "events processed by the strategy engine worker", labels),
		droppedOldest:      reg.BuildCounter("strategy_engine_dropped_oldest_total", "oldest events dropped on a full queue", labels),
		broadcastOrders:    reg.BuildCounter("strategy_engine_broadcast_order_events_total", "order events broadcast to registered strategies", labels),
		unmatchedOrders:    reg.BuildCounter("strategy_engine_unmatched_order_events_total", "order events with no registered strategy to receive them", labels),
		callbackExceptions: reg.BuildCounter("strategy_engine_callback_exceptions_total", "panics recovered from a strategy callback", labels),
		snapshotRuns:       reg.BuildCounter("strategy_engine_state_snapshot_runs_total", "state-persistence sweeps executed", labels),
		snapshotFailures:   reg.BuildCounter("strategy_engine_state_snapshot_failures_total", "state-persistence sweeps that failed to save", labels),
		collectionRuns:     reg.BuildCounter("strategy_engine_metrics_collection_runs_total", "metrics-collection sweeps executed", labels),
	}
}

func (c *StrategyEngineCollector) Collect(stats strategy.Stats) {
	if c == nil {
		return
	}
	c.enqueued.Add(deltaUint64(&c.last.Enqueued, stats.Enqueued))
	c.processed.Add(deltaUint64(&c.last.Processed, stats.Processed))
	c.droppedOldest.Add(deltaUint64(&c.last.DroppedOldest, stats.DroppedOldest))
	c.broadcastOrders.Add(deltaUint64(&c.last.BroadcastOrderEvents, stats.BroadcastOrderEvents))
	c.unmatchedOrders.Add(deltaUint64(&c.last.UnmatchedOrderEvents, stats.UnmatchedOrderEvents))
	c.callbackExceptions.Add(deltaUint64(&c.last.StrategyCallbackExceptions, stats.StrategyCallbackExceptions))
	c.snapshotRuns.Add(deltaUint64(&c.last.StateSnapshotRuns, stats.StateSnapshotRuns))
	c.snapshotFailures.Add(deltaUint64(&c.last.StateSnapshotFailures, stats.StateSnapshotFailures))
	c.collectionRuns.Add(deltaUint64(&c.last.MetricsCollectionRuns, stats.MetricsCollectionRuns))
}

// deltaUint64 returns next-*prev, or next itself if the counter went
// backwards (e.g. process restart), and advances *prev to next.
func deltaUint64(prev *uint64, next uint64) float64 {
	if next < *prev {
		*prev = next
		return float64(next)
	}
	delta := next - *prev
	*prev = next
	return float64(delta)
}
