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

// Package reconcile implements the post-reconnect reconciliation pass
// (SPEC_FULL supplemented features 3 and 4): a processed-order-event
// dedupe index that lets a query replay tell a genuinely new fill from one
// it already applied, and replay-offset bookkeeping per upstream stream.
package reconcile

import (
	"sync"

	"quant-hft-core/contracts"
	"quant-hft-core/store"
)

// ProcessedEventIndex mirrors ITradingDomainStore's
// MarkProcessedOrderEvent/ExistsProcessedOrderEvent: a dedupe table keyed
// on the same idempotency key the ledger uses
// (client_order_id|event_source|ts_ns|filled_volume|trade_id), but held
// in-process so a replay check never has to round-trip the ledger just to
// learn "have I seen this already". It supplements, never replaces, the
// ledger's own insert-dedupe.
type ProcessedEventIndex struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewProcessedEventIndex builds an empty dedupe index.
func NewProcessedEventIndex() *ProcessedEventIndex {
	return &ProcessedEventIndex{seen: make(map[string]struct{})}
}

// Exists reports whether evt's idempotency key has already been marked
// processed.
func (idx *ProcessedEventIndex) Exists(evt contracts.OrderEvent) bool {
	key := store.OrderEventIdempotencyKey(evt)
	idx.mu.Lock()
	defer idx.mu.Unlock()
	_, ok := idx.seen[key]
	return ok
}

// Mark records evt's idempotency key as processed. Marking an
// already-marked key is a no-op, matching the idempotent-insert contract.
func (idx *ProcessedEventIndex) Mark(evt contracts.OrderEvent) {
	key := store.OrderEventIdempotencyKey(evt)
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.seen[key] = struct{}{}
}

// Len reports the number of distinct processed events tracked, mainly for
// tests and diagnostics.
func (idx *ProcessedEventIndex) Len() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return len(idx.seen)
}
