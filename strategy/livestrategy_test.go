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

package strategy

import (
	"testing"

	"quant-hft-core/contracts"
)

func TestDemoLiveStrategyEmitsOneIntentPerState(t *testing.T) {
	s := NewDemoLiveStrategy()
	s.Initialize(Context{StrategyID: "demo-alpha"})

	intents := s.OnState(contracts.MarketSnapshot{
		InstrumentID: "SHFE.ag2406",
		BidPrice1:    100, AskPrice1: 102, LastPrice: 105,
		ExchangeTsNs: 101,
	})

	if len(intents) != 1 {
		t.Fatalf("len(intents) = %d, want 1", len(intents))
	}
	intent := intents[0]
	if intent.StrategyID != "demo-alpha" || intent.InstrumentID != "SHFE.ag2406" {
		t.Fatalf("unexpected intent identity: %+v", intent)
	}
	if intent.Side != contracts.SideBuy {
		t.Fatalf("Side = %v, want Buy for a first observation", intent.Side)
	}
	if intent.TraceID != "demo-alpha-SHFE.ag2406-101-1" {
		t.Fatalf("TraceID = %q", intent.TraceID)
	}
}

func TestDemoLiveStrategyIncrementsTraceCounterAndSwitchesSide(t *testing.T) {
	s := NewDemoLiveStrategy()
	s.Initialize(Context{StrategyID: "demo-beta"})

	s.OnState(contracts.MarketSnapshot{InstrumentID: "SHFE.rb2405", BidPrice1: 100, AskPrice1: 100, LastPrice: 105, ExchangeTsNs: 201})
	intents := s.OnState(contracts.MarketSnapshot{InstrumentID: "SHFE.rb2405", BidPrice1: 100, AskPrice1: 100, LastPrice: 90, ExchangeTsNs: 202})

	if len(intents) != 1 {
		t.Fatalf("len(intents) = %d, want 1", len(intents))
	}
	if intents[0].Side != contracts.SideSell {
		t.Fatalf("Side = %v, want Sell once price drops below the prior midpoint", intents[0].Side)
	}
	if intents[0].TraceID != "demo-beta-SHFE.rb2405-202-2" {
		t.Fatalf("TraceID = %q", intents[0].TraceID)
	}
}

func TestDemoLiveStrategyOnTimerEmitsNothing(t *testing.T) {
	s := NewDemoLiveStrategy()
	s.Initialize(Context{StrategyID: "demo-gamma"})

	if intents := s.OnTimer(0); len(intents) != 0 {
		t.Fatalf("OnTimer produced %d intents, want 0", len(intents))
	}
}
