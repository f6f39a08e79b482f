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
	"sync"
	"testing"
	"time"

	"quant-hft-core/contracts"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	if !cond() {
		t.Fatal("condition not met before timeout")
	}
}

func fastTestConfig() Config {
	cfg := DefaultConfig()
	cfg.TimerInterval = 5 * time.Millisecond
	return cfg
}

func TestEngineDispatchesStateEventsAndCollectsIntents(t *testing.T) {
	var mu sync.Mutex
	var received []contracts.SignalIntent

	e := New(fastTestConfig(), nil, func(i contracts.SignalIntent) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, i)
	})
	defer e.Stop()

	e.Start([]string{"demo"}, func(string) LiveStrategy { return NewDemoLiveStrategy() }, Context{})

	e.EnqueueState(contracts.MarketSnapshot{InstrumentID: "rb2410", BidPrice1: 100, AskPrice1: 102, LastPrice: 105})

	waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	})
}

func TestEngineDropsOldestWhenQueueFull(t *testing.T) {
	cfg := fastTestConfig()
	cfg.QueueCapacity = 2
	e := New(cfg, nil, nil)

	for i := 0; i < 5; i++ {
		e.EnqueueState(contracts.MarketSnapshot{})
	}

	stats := e.GetStats()
	if stats.Enqueued != 5 {
		t.Fatalf("Enqueued = %d, want 5", stats.Enqueued)
	}
	if stats.DroppedOldest != 3 {
		t.Fatalf("DroppedOldest = %d, want 3", stats.DroppedOldest)
	}
}

func TestEngineProcessesQueuedEventsAfterStart(t *testing.T) {
	e := New(fastTestConfig(), nil, nil)
	defer e.Stop()
	e.Start([]string{"demo"}, func(string) LiveStrategy { return NewDemoLiveStrategy() }, Context{})

	e.EnqueueOrderEvent(contracts.OrderEvent{OrderRef: "ref-1"})

	waitFor(t, time.Second, func() bool {
		return e.GetStats().Processed >= 1
	})
}

type recordingOrderEventStrategy struct {
	DemoLiveStrategy
	mu   sync.Mutex
	seen []contracts.OrderEvent
}

func (r *recordingOrderEventStrategy) OnOrderEvent(evt contracts.OrderEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, evt)
}

func (r *recordingOrderEventStrategy) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}

func TestEngineRoutesOrderEventByStrategyID(t *testing.T) {
	a := &recordingOrderEventStrategy{}
	b := &recordingOrderEventStrategy{}

	e := New(fastTestConfig(), nil, nil)
	defer e.Stop()
	e.Start([]string{"alpha", "beta"}, func(id string) LiveStrategy {
		if id == "alpha" {
			return a
		}
		return b
	}, Context{})

	e.EnqueueOrderEvent(contracts.OrderEvent{OrderRef: "ref-1", StrategyID: "alpha"})

	waitFor(t, time.Second, func() bool { return a.count() == 1 })
	time.Sleep(20 * time.Millisecond)
	if b.count() != 0 {
		t.Fatalf("expected beta to receive 0 order events targeted at alpha, got %d", b.count())
	}
	if e.GetStats().UnmatchedOrderEvents != 0 {
		t.Fatalf("expected no unmatched order events, got %d", e.GetStats().UnmatchedOrderEvents)
	}
}

func TestEngineBroadcastsOrderEventWithEmptyStrategyID(t *testing.T) {
	a := &recordingOrderEventStrategy{}
	b := &recordingOrderEventStrategy{}

	e := New(fastTestConfig(), nil, nil)
	defer e.Stop()
	e.Start([]string{"alpha", "beta"}, func(id string) LiveStrategy {
		if id == "alpha" {
			return a
		}
		return b
	}, Context{})

	e.EnqueueOrderEvent(contracts.OrderEvent{OrderRef: "ref-1"})

	waitFor(t, time.Second, func() bool { return a.count() == 1 && b.count() == 1 })
	if e.GetStats().BroadcastOrderEvents != 1 {
		t.Fatalf("expected BroadcastOrderEvents = 1, got %d", e.GetStats().BroadcastOrderEvents)
	}
}

func TestEngineCountsUnmatchedOrderEventForUnknownStrategyID(t *testing.T) {
	e := New(fastTestConfig(), nil, nil)
	defer e.Stop()
	e.Start([]string{"alpha"}, func(string) LiveStrategy { return NewDemoLiveStrategy() }, Context{})

	e.EnqueueOrderEvent(contracts.OrderEvent{OrderRef: "ref-1", StrategyID: "ghost"})

	waitFor(t, time.Second, func() bool { return e.GetStats().UnmatchedOrderEvents == 1 })
}

type panickingStrategy struct{ DemoLiveStrategy }

func (p *panickingStrategy) OnState(contracts.MarketSnapshot) []contracts.SignalIntent {
	panic("boom")
}

func TestEngineRecoversFromStrategyPanic(t *testing.T) {
	e := New(fastTestConfig(), nil, nil)
	defer e.Stop()
	e.Start([]string{"crashy"}, func(string) LiveStrategy {
		return &panickingStrategy{}
	}, Context{})

	e.EnqueueState(contracts.MarketSnapshot{InstrumentID: "rb2410"})

	waitFor(t, time.Second, func() bool {
		return e.GetStats().StrategyCallbackExceptions >= 1
	})
}

func TestEngineCollectAllMetricsTagsByStrategyID(t *testing.T) {
	e := New(fastTestConfig(), nil, nil)
	defer e.Stop()
	e.Start([]string{"demo-a", "demo-b"}, func(id string) LiveStrategy { return NewDemoLiveStrategy() }, Context{})

	metrics := e.CollectAllMetrics()
	if _, ok := metrics["demo-a"]; !ok {
		t.Fatal("expected demo-a to be present in collected metrics")
	}
	if _, ok := metrics["demo-b"]; !ok {
		t.Fatal("expected demo-b to be present in collected metrics")
	}
}
