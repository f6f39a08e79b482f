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

package session

import (
	"testing"
	"time"

	"quant-hft-core/contracts"
	"quant-hft-core/transport"
)

func testConfig() contracts.SessionConfig {
	return contracts.SessionConfig{
		TraderFrontAddrs:     []string{"tcp://127.0.0.1:41213"},
		MarketFrontAddrs:     []string{"tcp://127.0.0.1:41214"},
		ConnectTimeout:       time.Second,
		ReconnectInitialBackoff: 5 * time.Millisecond,
		ReconnectMaxBackoff:     20 * time.Millisecond,
		ReconnectMaxAttempts:    3,
	}
}

func TestManagerConnectReachesReadyWithoutSettlementConfirm(t *testing.T) {
	sim := transport.NewSimulator()
	m := New(sim, nil)
	if !m.Connect(testConfig()) {
		t.Fatalf("Connect() = false, lastError = %q", m.LastError())
	}
	if m.TraderState() != StateReady {
		t.Fatalf("TraderState() = %v, want Ready", m.TraderState())
	}
	if !m.IsReady() {
		t.Fatal("IsReady() = false after successful connect")
	}
}

func TestManagerConnectRequiresSettlementConfirm(t *testing.T) {
	sim := transport.NewSimulator()
	m := New(sim, nil)
	cfg := testConfig()
	cfg.SettlementConfirmRequired = true

	m.Connect(cfg)
	if m.TraderState() == StateReady {
		t.Fatal("TraderState() should not reach Ready before ConfirmSettlement")
	}
	if err := m.ConfirmSettlement("acct1"); err != nil {
		t.Fatalf("ConfirmSettlement() error = %v", err)
	}
	if m.TraderState() != StateReady {
		t.Fatalf("TraderState() = %v, want Ready after confirm", m.TraderState())
	}
}

func TestManagerConnectRejectsEmptyFrontAddrs(t *testing.T) {
	sim := transport.NewSimulator()
	m := New(sim, nil)
	if m.Connect(contracts.SessionConfig{}) {
		t.Fatal("Connect() should fail with no trader front addresses")
	}
	if m.LastError() == "" {
		t.Fatal("expected LastError to be populated on failed connect")
	}
}

func TestManagerSubscribeRequiresReady(t *testing.T) {
	sim := transport.NewSimulator()
	m := New(sim, nil)
	if m.Subscribe([]string{"rb2410"}) {
		t.Fatal("Subscribe should fail before the session is Ready")
	}
	m.Connect(testConfig())
	if !m.Subscribe([]string{"rb2410"}) {
		t.Fatal("Subscribe should succeed once the session is Ready")
	}
}

func TestManagerReconnectAfterLogout(t *testing.T) {
	sim := transport.NewSimulator()
	m := New(sim, nil)
	m.Connect(testConfig())

	sim.Disconnect()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if m.TraderState() == StateReady {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if m.TraderState() != StateReady {
		t.Fatalf("expected reconnect worker to restore Ready, got %v", m.TraderState())
	}
}

func TestManagerOrderEventBindsExchangeID(t *testing.T) {
	sim := transport.NewSimulator()
	m := New(sim, nil)
	m.Connect(testConfig())

	m.Orders().Put(OrderMeta{OrderRef: "cli-1", AccountID: "acct1", InstrumentID: "rb2410"})

	var received contracts.OrderEvent
	m.OnOrderEvent(func(e contracts.OrderEvent) { received = e })
	m.handleOrderEvent(contracts.OrderEvent{OrderRef: "cli-1", ExchangeOrderID: "exch-1"})

	meta, ok := m.Orders().Get("cli-1")
	if !ok || meta.ExchangeOrderID != "exch-1" {
		t.Fatalf("expected order meta to be updated with exchange id, got %+v ok=%v", meta, ok)
	}
	if received.OrderRef != "cli-1" {
		t.Fatalf("expected downstream callback to fire with order ref cli-1, got %+v", received)
	}
}

func TestManagerOrderEventFillsStrategyIDFromMeta(t *testing.T) {
	sim := transport.NewSimulator()
	m := New(sim, nil)
	m.Connect(testConfig())

	m.Orders().Put(OrderMeta{OrderRef: "cli-1", AccountID: "acct1", StrategyID: "strat1", InstrumentID: "rb2410"})

	var received contracts.OrderEvent
	m.OnOrderEvent(func(e contracts.OrderEvent) { received = e })
	m.handleOrderEvent(contracts.OrderEvent{OrderRef: "cli-1", ExchangeOrderID: "exch-1"})

	if received.StrategyID != "strat1" {
		t.Fatalf("expected event StrategyID filled in from order meta, got %q", received.StrategyID)
	}
}

func TestManagerOrderEventPrunesMetaOnTerminalStatus(t *testing.T) {
	sim := transport.NewSimulator()
	m := New(sim, nil)
	m.Connect(testConfig())

	m.Orders().Put(OrderMeta{OrderRef: "cli-1", AccountID: "acct1", InstrumentID: "rb2410"})
	m.handleOrderEvent(contracts.OrderEvent{OrderRef: "cli-1", ExchangeOrderID: "exch-1", Status: contracts.OrderStatusFilled})

	if _, ok := m.Orders().Get("cli-1"); ok {
		t.Fatal("expected order meta to be pruned once the order reached a terminal status")
	}
}
