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
	"fmt"
	"sync"

	"quant-hft-core/contracts"
)

// Context carries per-strategy identity and metadata into Initialize,
// grounded on strategy/live_strategy.h's StrategyContext.
type Context struct {
	StrategyID string
	AccountID  string
	Metadata   map[string]string
}

// Metric is a single strategy-reported measurement, grounded on
// live_strategy.h's StrategyMetric.
type Metric struct {
	Name   string
	Value  float64
	Labels map[string]string
}

// State is the opaque persisted blob a strategy reads/writes across
// restarts via SaveState/LoadState.
type State map[string]string

// LiveStrategy is the pluggable strategy interface dispatched by Engine.
// Default no-op behavior for OnAccountSnapshot, CollectMetrics, SaveState,
// and LoadState is left to concrete implementations, mirroring the
// source's default virtual method bodies in ILiveStrategy.
type LiveStrategy interface {
	Initialize(ctx Context)
	OnState(state contracts.MarketSnapshot) []contracts.SignalIntent
	OnOrderEvent(event contracts.OrderEvent)
	OnAccountSnapshot(snapshot contracts.AccountSnapshot)
	OnTimer(nowNs int64) []contracts.SignalIntent
	CollectMetrics() []Metric
	SaveState() (State, error)
	LoadState(state State) error
	Shutdown()
}

// DemoLiveStrategy emits a single open intent per observed market
// snapshot, direction set by the sign of the snapshot's last price minus the
// bid/ask midpoint of the previous snapshot for the same instrument (buy on
// the first snapshot), grounded on strategy/demo_live_strategy.cpp.
type DemoLiveStrategy struct {
	mu            sync.Mutex
	strategyID    string
	signalCounter uint64
	lastMid       map[string]float64
}

var _ LiveStrategy = (*DemoLiveStrategy)(nil)

// NewDemoLiveStrategy constructs an unintialized DemoLiveStrategy; callers
// must still call Initialize before OnState/OnTimer are dispatched.
func NewDemoLiveStrategy() *DemoLiveStrategy {
	return &DemoLiveStrategy{lastMid: make(map[string]float64)}
}

func (d *DemoLiveStrategy) Initialize(ctx Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.strategyID = ctx.StrategyID
	d.signalCounter = 0
}

// OnState emits a buy intent when the snapshot's last price is at or above
// the bid/ask midpoint it last observed for the instrument, a sell intent
// otherwise; the source used a trend-feature sign, which this rewrite does
// not have a feed for, so the midpoint comparison stands in for it.
func (d *DemoLiveStrategy) OnState(state contracts.MarketSnapshot) []contracts.SignalIntent {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.signalCounter++
	mid := (state.BidPrice1 + state.AskPrice1) / 2
	prevMid, seen := d.lastMid[state.InstrumentID]
	d.lastMid[state.InstrumentID] = mid

	side := contracts.SideBuy
	if seen && state.LastPrice < prevMid {
		side = contracts.SideSell
	}

	intent := contracts.SignalIntent{
		StrategyID:   d.strategyID,
		InstrumentID: state.InstrumentID,
		Side:         side,
		Offset:       contracts.OffsetOpen,
		Volume:       1,
		LimitPrice:   state.LastPrice,
		TsNs:         state.ExchangeTsNs,
		TraceID:      fmt.Sprintf("%s-%s-%d-%d", d.strategyID, state.InstrumentID, state.ExchangeTsNs, d.signalCounter),
	}
	return []contracts.SignalIntent{intent}
}

func (d *DemoLiveStrategy) OnOrderEvent(contracts.OrderEvent) {}

func (d *DemoLiveStrategy) OnAccountSnapshot(contracts.AccountSnapshot) {}

func (d *DemoLiveStrategy) OnTimer(int64) []contracts.SignalIntent { return nil }

func (d *DemoLiveStrategy) CollectMetrics() []Metric { return nil }

func (d *DemoLiveStrategy) SaveState() (State, error) { return nil, nil }

func (d *DemoLiveStrategy) LoadState(State) error { return nil }

func (d *DemoLiveStrategy) Shutdown() {}
