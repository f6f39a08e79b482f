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
	"path/filepath"
	"testing"

	"quant-hft-core/contracts"
	"quant-hft-core/store"
)

func newTestLedger(t *testing.T) *store.SQLiteLedger {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.db")
	ledger, err := store.NewSQLiteLedger(path)
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() { _ = ledger.Close() })
	return ledger
}

func TestReconcilerApplyReplayBatchSkipsDuplicates(t *testing.T) {
	ledger := newTestLedger(t)
	var sunk []contracts.OrderEvent
	r := New(nil, ledger, nil, func(evt contracts.OrderEvent) { sunk = append(sunk, evt) }, nil)

	evt := contracts.OrderEvent{ClientOrderID: "cli-1", Source: contracts.EventSourceRtnTrade, TsNs: 1, FilledVolume: 1, TradeID: "trade-1"}

	if err := r.ApplyReplayBatch("trades", []contracts.OrderEvent{evt}, 10); err != nil {
		t.Fatalf("first batch: %v", err)
	}
	if err := r.ApplyReplayBatch("trades", []contracts.OrderEvent{evt}, 11); err != nil {
		t.Fatalf("second batch: %v", err)
	}

	stats := r.Stats()
	if stats.Applied != 1 || stats.Duplicate != 1 || stats.Replayed != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if len(sunk) != 1 {
		t.Fatalf("expected sink invoked exactly once, got %d", len(sunk))
	}

	offset, ok, err := r.ResumeOffset("trades")
	if err != nil || !ok || offset != 11 {
		t.Fatalf("expected resume offset 11, got %d (ok=%v err=%v)", offset, ok, err)
	}
}

func TestReconcilerResumeOffsetDefaultsToNotFound(t *testing.T) {
	ledger := newTestLedger(t)
	r := New(nil, ledger, nil, nil, nil)

	_, ok, err := r.ResumeOffset("orders")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected no offset recorded yet")
	}
}

func TestReconcilerWithNilLedgerStillDedupesInMemory(t *testing.T) {
	r := New(nil, nil, nil, nil, nil)
	evt := contracts.OrderEvent{ClientOrderID: "cli-1", Source: contracts.EventSourceRtnTrade, TsNs: 1, FilledVolume: 1, TradeID: "trade-1"}

	if err := r.ApplyReplayBatch("orders", []contracts.OrderEvent{evt, evt}, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stats := r.Stats()
	if stats.Applied != 1 || stats.Duplicate != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
