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

package store

import (
	"path/filepath"
	"testing"

	"quant-hft-core/contracts"
)

func newTestSQLiteLedger(t *testing.T) *SQLiteLedger {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.db")
	ledger, err := NewSQLiteLedger(path)
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() { _ = ledger.Close() })
	return ledger
}

func TestSQLiteLedgerAppendOrderEventSucceeds(t *testing.T) {
	ledger := newTestSQLiteLedger(t)
	evt := contracts.OrderEvent{
		AccountID:     "acct-1",
		ClientOrderID: "cli-1",
		InstrumentID:  "SHFE.rb2405",
		Status:        contracts.OrderStatusFilled,
		FilledVolume:  1,
		Source:        contracts.EventSourceRtnTrade,
		TsNs:          1700000000000000000,
		TradeID:       "trade-1",
	}
	if err := ledger.AppendOrderEvent(evt); err != nil {
		t.Fatalf("append: %v", err)
	}
}

func TestSQLiteLedgerAppendOrderEventDuplicateIsSuccess(t *testing.T) {
	ledger := newTestSQLiteLedger(t)
	evt := contracts.OrderEvent{
		ClientOrderID: "cli-dup",
		Status:        contracts.OrderStatusFilled,
		FilledVolume:  1,
		Source:        contracts.EventSourceRtnTrade,
		TsNs:          42,
		TradeID:       "trade-dup",
	}
	if err := ledger.AppendOrderEvent(evt); err != nil {
		t.Fatalf("first append: %v", err)
	}
	if err := ledger.AppendOrderEvent(evt); err != nil {
		t.Fatalf("duplicate append should be treated as success, got: %v", err)
	}
}

func TestSQLiteLedgerAppendTradeEventSucceedsAndDedupes(t *testing.T) {
	ledger := newTestSQLiteLedger(t)
	evt := contracts.OrderEvent{
		AccountID:     "acct-1",
		ClientOrderID: "cli-2",
		InstrumentID:  "SHFE.rb2405",
		Status:        contracts.OrderStatusFilled,
		FilledVolume:  1,
		Source:        contracts.EventSourceRtnTrade,
		TsNs:          1700000000000000001,
		TradeID:       "trade-2",
	}
	if err := ledger.AppendTradeEvent(evt); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := ledger.AppendTradeEvent(evt); err != nil {
		t.Fatalf("duplicate append should be treated as success, got: %v", err)
	}
}

func TestSQLiteLedgerReplayOffsetRoundTrips(t *testing.T) {
	ledger := newTestSQLiteLedger(t)

	_, ok, err := ledger.ReplayOffset("qry_order")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected no offset recorded yet")
	}

	if err := ledger.SetReplayOffset("qry_order", 100); err != nil {
		t.Fatalf("set offset: %v", err)
	}
	offset, ok, err := ledger.ReplayOffset("qry_order")
	if err != nil {
		t.Fatalf("get offset: %v", err)
	}
	if !ok || offset != 100 {
		t.Fatalf("expected offset 100, got %d (ok=%v)", offset, ok)
	}

	if err := ledger.SetReplayOffset("qry_order", 250); err != nil {
		t.Fatalf("update offset: %v", err)
	}
	offset, ok, err = ledger.ReplayOffset("qry_order")
	if err != nil || !ok || offset != 250 {
		t.Fatalf("expected updated offset 250, got %d (ok=%v err=%v)", offset, ok, err)
	}
}

func TestSQLiteLedgerAppendMarketSnapshotAndAccountSnapshot(t *testing.T) {
	ledger := newTestSQLiteLedger(t)

	if err := ledger.AppendMarketSnapshot(contracts.MarketSnapshot{InstrumentID: "SHFE.rb2405", LastPrice: 4500}); err != nil {
		t.Fatalf("append market snapshot: %v", err)
	}
	if err := ledger.AppendAccountSnapshot(contracts.AccountSnapshot{AccountID: "acct-1", Balance: 1000}); err != nil {
		t.Fatalf("append account snapshot: %v", err)
	}
	if err := ledger.AppendPositionSnapshot(contracts.PositionSnapshot{AccountID: "acct-1", InstrumentID: "SHFE.rb2405"}); err != nil {
		t.Fatalf("append position snapshot: %v", err)
	}
	if err := ledger.AppendRiskDecision(contracts.OrderIntent{AccountID: "acct-1"}, contracts.RiskDecision{Allowed: true}); err != nil {
		t.Fatalf("append risk decision: %v", err)
	}
}

func TestSQLiteLedgerPing(t *testing.T) {
	ledger := newTestSQLiteLedger(t)
	if err := ledger.Ping(); err != nil {
		t.Fatalf("ping: %v", err)
	}
}
