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

// Package strategy hosts the bounded single-consumer strategy event loop
// (§4.6), grounded on strategy/strategy_engine.cpp: one worker goroutine
// fans State/OrderEvent/AccountSnapshot events and timer ticks out to every
// registered LiveStrategy, collecting the SignalIntent slices each produces
// and forwarding them to an IntentSink.
package strategy

import (
	"sync"
	"time"

	"quant-hft-core/contracts"
	"quant-hft-core/logging"
)

// IntentSink receives every SignalIntent a strategy emits from OnState or
// OnTimer.
type IntentSink func(contracts.SignalIntent)

// Config tunes queue depth and the periodic hooks, mirroring
// StrategyEngineConfig.
type Config struct {
	QueueCapacity          int
	TimerInterval          time.Duration
	StatePersistence       bool
	LoadStateOnStart       bool
	StateSnapshotInterval  time.Duration
	MetricsCollectInterval time.Duration
}

// DefaultConfig mirrors the source's StrategyEngineConfig defaults.
func DefaultConfig() Config {
	return Config{
		QueueCapacity:          8192,
		TimerInterval:          100 * time.Millisecond,
		StatePersistence:       false,
		LoadStateOnStart:       false,
		StateSnapshotInterval:  time.Minute,
		MetricsCollectInterval: 10 * time.Second,
	}
}

func (c Config) normalized() Config {
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = 8192
	}
	if c.TimerInterval <= 0 {
		c.TimerInterval = 100 * time.Millisecond
	}
	if c.StateSnapshotInterval <= 0 {
		c.StateSnapshotInterval = time.Minute
	}
	if c.MetricsCollectInterval <= 0 {
		c.MetricsCollectInterval = 10 * time.Second
	}
	return c
}

// StateStore persists and restores a strategy's opaque State, backing the
// optional StatePersistence hooks; callers needing durability wire a
// store-package implementation here.
type StateStore interface {
	SaveState(strategyID string, state State) error
	LoadState(strategyID string) (State, error)
}

type eventType int

const (
	eventState eventType = iota
	eventOrderEvent
	eventAccountSnapshot
)

type engineEvent struct {
	typ             eventType
	state           contracts.MarketSnapshot
	orderEvent      contracts.OrderEvent
	accountSnapshot contracts.AccountSnapshot
}

type strategyEntry struct {
	id       string
	strategy LiveStrategy
}

// Stats mirrors StrategyEngine::Stats for observability (§6).
type Stats struct {
	Enqueued                   uint64
	Processed                  uint64
	DroppedOldest              uint64
	BroadcastOrderEvents       uint64
	UnmatchedOrderEvents       uint64
	StrategyCallbackExceptions uint64
	StateSnapshotRuns          uint64
	StateSnapshotFailures      uint64
	MetricsCollectionRuns      uint64
}

// Engine is the single-consumer dispatcher fanning events out to every
// registered strategy.
type Engine struct {
	cfg   Config
	log   *logging.Logger
	sink  IntentSink
	store StateStore

	mu      sync.Mutex
	queue   []engineEvent
	entries []strategyEntry
	stats   Stats

	cond    *sync.Cond
	running bool
	stop    chan struct{}
	wg      sync.WaitGroup
}

// New builds an Engine. sink receives every SignalIntent produced by
// OnState/OnTimer dispatch; a nil sink discards intents.
func New(cfg Config, log *logging.Logger, sink IntentSink) *Engine {
	if log == nil {
		log = logging.Default()
	}
	e := &Engine{
		cfg:  cfg.normalized(),
		log:  log,
		sink: sink,
		stop: make(chan struct{}),
	}
	e.cond = sync.NewCond(&e.mu)
	return e
}

// SetStateStore installs the optional state-persistence collaborator.
func (e *Engine) SetStateStore(store StateStore) { e.store = store }

// Start registers a LiveStrategy under each strategyID (built via factory,
// once per id), calls Initialize (and LoadState if configured) on each, and
// launches the worker goroutine. It is not safe to call Start twice.
func (e *Engine) Start(strategyIDs []string, factory func(strategyID string) LiveStrategy, baseCtx Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil
	}

	for _, id := range strategyIDs {
		s := factory(id)
		ctx := baseCtx
		ctx.StrategyID = id
		s.Initialize(ctx)

		if e.cfg.LoadStateOnStart && e.store != nil {
			if state, err := e.store.LoadState(id); err == nil && state != nil {
				if loadErr := s.LoadState(state); loadErr != nil {
					e.log.Warn("strategy_load_state_failed", logging.F("strategy_id", id), logging.F("error", loadErr.Error()))
				}
			}
		}

		e.entries = append(e.entries, strategyEntry{id: id, strategy: s})
	}

	e.running = true
	e.mu.Unlock()

	e.wg.Add(1)
	go e.workerLoop()
	return nil
}

// Stop drains and halts the worker, calling Shutdown on every strategy.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	e.mu.Unlock()

	close(e.stop)
	e.cond.Broadcast()
	e.wg.Wait()

	for _, entry := range e.entries {
		entry.strategy.Shutdown()
	}
}

// EnqueueState posts a market-snapshot event, dropping the oldest queued
// event if the bounded queue is full (never blocks the broker thread).
func (e *Engine) EnqueueState(state contracts.MarketSnapshot) {
	e.enqueue(engineEvent{typ: eventState, state: state})
}

// EnqueueOrderEvent posts an order-event broadcast.
func (e *Engine) EnqueueOrderEvent(evt contracts.OrderEvent) {
	e.enqueue(engineEvent{typ: eventOrderEvent, orderEvent: evt})
}

// EnqueueAccountSnapshot posts an account-funds snapshot.
func (e *Engine) EnqueueAccountSnapshot(snap contracts.AccountSnapshot) {
	e.enqueue(engineEvent{typ: eventAccountSnapshot, accountSnapshot: snap})
}

func (e *Engine) enqueue(evt engineEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.queue) >= e.cfg.QueueCapacity {
		e.queue = e.queue[1:]
		e.stats.DroppedOldest++
	}
	e.queue = append(e.queue, evt)
	e.stats.Enqueued++
	e.cond.Signal()
}

// GetStats returns a copy of the running counters.
func (e *Engine) GetStats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// CollectAllMetrics gathers CollectMetrics() from every registered
// strategy, tagging each metric with its owning strategy id.
func (e *Engine) CollectAllMetrics() map[string][]Metric {
	e.mu.Lock()
	entries := append([]strategyEntry(nil), e.entries...)
	e.stats.MetricsCollectionRuns++
	e.mu.Unlock()

	out := make(map[string][]Metric, len(entries))
	for _, entry := range entries {
		out[entry.id] = entry.strategy.CollectMetrics()
	}
	return out
}

func (e *Engine) workerLoop() {
	defer e.wg.Done()

	timerTicker := time.NewTicker(e.cfg.TimerInterval)
	defer timerTicker.Stop()
	e.wg.Add(1)
	go e.timerPump(timerTicker)

	for {
		e.mu.Lock()
		for len(e.queue) == 0 {
			select {
			case <-e.stop:
				e.mu.Unlock()
				return
			default:
			}
			e.cond.Wait()
			select {
			case <-e.stop:
				e.mu.Unlock()
				return
			default:
			}
		}
		evt := e.queue[0]
		e.queue = e.queue[1:]
		e.mu.Unlock()

		e.dispatch(evt)

		e.mu.Lock()
		e.stats.Processed++
		e.mu.Unlock()
	}
}

// timerPump periodically wakes the worker via a synthetic signal so
// OnTimer fires even when the event queue is otherwise idle.
func (e *Engine) timerPump(ticker *time.Ticker) {
	defer e.wg.Done()
	for {
		select {
		case <-e.stop:
			return
		case now := <-ticker.C:
			e.dispatchTimer(now.UnixNano())
			e.maybeSnapshotStates()
		}
	}
}

func (e *Engine) dispatch(evt engineEvent) {
	switch evt.typ {
	case eventState:
		e.dispatchState(evt.state)
	case eventOrderEvent:
		e.dispatchOrderEvent(evt.orderEvent)
	case eventAccountSnapshot:
		e.dispatchAccountSnapshot(evt.accountSnapshot)
	}
}

func (e *Engine) dispatchState(state contracts.MarketSnapshot) {
	e.mu.Lock()
	entries := append([]strategyEntry(nil), e.entries...)
	e.mu.Unlock()

	for _, entry := range entries {
		intents := e.safeOnState(entry, state)
		e.emitIntents(intents)
	}
}

// dispatchOrderEvent routes an order event to the strategy named by its
// StrategyID, the way the source's StrategyEngine::onOrderEvent dispatches
// on OrderEvent.strategy_id. An empty StrategyID (events the session can't
// attribute to a single owner) broadcasts to every registered strategy
// instead.
func (e *Engine) dispatchOrderEvent(evt contracts.OrderEvent) {
	e.mu.Lock()
	entries := append([]strategyEntry(nil), e.entries...)
	e.mu.Unlock()

	if evt.StrategyID == "" {
		e.mu.Lock()
		e.stats.BroadcastOrderEvents++
		e.mu.Unlock()
		for _, entry := range entries {
			e.safeOnOrderEvent(entry.strategy, evt)
		}
		return
	}

	for _, entry := range entries {
		if entry.id != evt.StrategyID {
			continue
		}
		e.safeOnOrderEvent(entry.strategy, evt)
		return
	}

	e.mu.Lock()
	e.stats.UnmatchedOrderEvents++
	e.mu.Unlock()
}

func (e *Engine) dispatchAccountSnapshot(snap contracts.AccountSnapshot) {
	e.mu.Lock()
	entries := append([]strategyEntry(nil), e.entries...)
	e.mu.Unlock()

	for _, entry := range entries {
		e.safeOnAccountSnapshot(entry.strategy, snap)
	}
}

func (e *Engine) dispatchTimer(nowNs int64) {
	e.mu.Lock()
	entries := append([]strategyEntry(nil), e.entries...)
	e.mu.Unlock()

	for _, entry := range entries {
		intents := e.safeOnTimer(entry, nowNs)
		e.emitIntents(intents)
	}
}

func (e *Engine) emitIntents(intents []contracts.SignalIntent) {
	if e.sink == nil {
		return
	}
	for _, intent := range intents {
		e.sink(intent)
	}
}

func (e *Engine) maybeSnapshotStates() {
	if !e.cfg.StatePersistence || e.store == nil {
		return
	}
	e.mu.Lock()
	entries := append([]strategyEntry(nil), e.entries...)
	e.stats.StateSnapshotRuns++
	e.mu.Unlock()

	for _, entry := range entries {
		state, err := entry.strategy.SaveState()
		if err != nil {
			e.mu.Lock()
			e.stats.StateSnapshotFailures++
			e.mu.Unlock()
			e.log.Warn("strategy_save_state_failed", logging.F("strategy_id", entry.id), logging.F("error", err.Error()))
			continue
		}
		if state == nil {
			continue
		}
		if err := e.store.SaveState(entry.id, state); err != nil {
			e.mu.Lock()
			e.stats.StateSnapshotFailures++
			e.mu.Unlock()
			e.log.Warn("strategy_persist_state_failed", logging.F("strategy_id", entry.id), logging.F("error", err.Error()))
		}
	}
}

// safeOnState recovers from a strategy panic so one misbehaving strategy
// never takes down the worker goroutine, mirroring the source's uncaught-
// exception containment (§7).
func (e *Engine) safeOnState(entry strategyEntry, state contracts.MarketSnapshot) (intents []contracts.SignalIntent) {
	defer e.recoverCallback(entry.id)
	return entry.strategy.OnState(state)
}

func (e *Engine) safeOnTimer(entry strategyEntry, nowNs int64) (intents []contracts.SignalIntent) {
	defer e.recoverCallback(entry.id)
	return entry.strategy.OnTimer(nowNs)
}

func (e *Engine) safeOnOrderEvent(s LiveStrategy, evt contracts.OrderEvent) {
	defer e.recoverCallback("")
	s.OnOrderEvent(evt)
}

func (e *Engine) safeOnAccountSnapshot(s LiveStrategy, snap contracts.AccountSnapshot) {
	defer e.recoverCallback("")
	s.OnAccountSnapshot(snap)
}

func (e *Engine) recoverCallback(strategyID string) {
	if r := recover(); r != nil {
		e.mu.Lock()
		e.stats.StrategyCallbackExceptions++
		e.mu.Unlock()
		e.log.Error("strategy_callback_panic", logging.F("strategy_id", strategyID))
	}
}
