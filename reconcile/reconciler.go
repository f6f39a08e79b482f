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

package reconcile

import (
	"context"
	"sync"

	"quant-hft-core/contracts"
	"quant-hft-core/logging"
	"quant-hft-core/store"
)

// OrderEventSink is invoked once per genuinely-new order event a replay
// pass applies, typically execution.Engine.HandleOrderEvent or
// strategy.Engine.EnqueueOrderEvent.
type OrderEventSink func(contracts.OrderEvent)

// Stats is a point-in-time snapshot of reconciliation activity.
type Stats struct {
	Replayed  uint64
	Applied   uint64
	Duplicate uint64
	Failures  uint64
}

// Reconciler drives a query-replay result set (§4.1's post-reconnect
// qry_order/qry_trade replay) through the processed-event dedupe index,
// ledgers genuinely new events, refreshes the realtime cache, and advances
// the per-stream replay offset (SPEC_FULL supplemented features 3, 4).
type Reconciler struct {
	index *ProcessedEventIndex
	ledger store.Ledger
	cache  *store.RedisRealtimeCache
	sink   OrderEventSink
	log    *logging.Logger

	mu    sync.Mutex
	stats Stats
}

// New builds a Reconciler. ledger and cache may be nil in tests that only
// care about dedupe/offset bookkeeping; sink may be nil if nothing needs
// to observe newly-applied events.
func New(index *ProcessedEventIndex, ledger store.Ledger, cache *store.RedisRealtimeCache, sink OrderEventSink, log *logging.Logger) *Reconciler {
	if index == nil {
		index = NewProcessedEventIndex()
	}
	if log == nil {
		log = logging.Default()
	}
	return &Reconciler{index: index, ledger: ledger, cache: cache, sink: sink, log: log}
}

// ApplyReplayBatch applies a batch of replayed order events for stream
// (one of "orders", "trades", "market" per §6's replay_offsets table),
// skipping anything the dedupe index has already seen, then advances the
// stream's replay offset to latestOffset so a future reconnect resumes
// from here instead of re-querying from scratch. If any event in the batch
// fails to apply, the offset is left where it was.
func (r *Reconciler) ApplyReplayBatch(stream string, events []contracts.OrderEvent, latestOffset int64) error {
	failed := false
	for _, evt := range events {
		r.incReplayed()
		if r.index.Exists(evt) {
			r.incDuplicate()
			continue
		}
		if err := r.applyNew(evt); err != nil {
			r.incFailures()
			r.log.Warn("reconcile_apply_failed", logging.F("client_order_id", evt.ClientOrderID), logging.F("error", err.Error()))
			failed = true
			continue
		}
		r.incApplied()
	}

	if r.ledger != nil && stream != "" && !failed {
		if err := r.ledger.SetReplayOffset(stream, latestOffset); err != nil {
			r.log.Warn("replay_offset_persist_failed", logging.F("stream", stream), logging.F("error", err.Error()))
			return err
		}
	}
	return nil
}

func (r *Reconciler) applyNew(evt contracts.OrderEvent) error {
	if r.ledger != nil {
		var err error
		if store.IsTradeSourced(evt) {
			err = r.ledger.AppendTradeEvent(evt)
		} else {
			err = r.ledger.AppendOrderEvent(evt)
		}
		if err != nil {
			return err
		}
	}
	if r.cache != nil {
		if err := r.cache.UpsertOrderEvent(context.Background(), evt); err != nil {
			return err
		}
	}
	r.index.Mark(evt)
	if r.sink != nil {
		r.sink(evt)
	}
	return nil
}

// ResumeOffset returns the last durably-recorded replay offset for stream,
// or (0, false) if none has ever been set — the reconnect worker's cue to
// replay from the beginning.
func (r *Reconciler) ResumeOffset(stream string) (int64, bool, error) {
	if r.ledger == nil {
		return 0, false, nil
	}
	return r.ledger.ReplayOffset(stream)
}

// Stats returns a point-in-time snapshot of reconciliation counters.
func (r *Reconciler) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

func (r *Reconciler) incReplayed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.Replayed++
}

func (r *Reconciler) incApplied() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.Applied++
}

func (r *Reconciler) incDuplicate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.Duplicate++
}

func (r *Reconciler) incFailures() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.Failures++
}
