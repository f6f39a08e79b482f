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

// cmd/core-engine is the thin, demonstration-only wiring the spec
// explicitly places out of the core's unit-testable surface (Non-goals:
// "config file parsing; CLI entry points"). It exists only to show the
// library packages composed end to end; the core packages themselves never
// read an environment variable or parse a flag.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"quant-hft-core/constants"
	"quant-hft-core/contracts"
	"quant-hft-core/execution"
	"quant-hft-core/flowctl"
	"quant-hft-core/logging"
	"quant-hft-core/metrics"
	"quant-hft-core/reconcile"
	"quant-hft-core/session"
	"quant-hft-core/store"
	"quant-hft-core/strategy"
	"quant-hft-core/transport"
)

func main() {
	if len(os.Args) > 1 {
		os.Exit(runAdmin(os.Args[1:]))
	}
	os.Exit(run())
}

func run() int {
	cfg, err := loadConfigFromEnv()
	if err != nil {
		os.Stderr.WriteString("config error: " + err.Error() + "\n")
		return constants.ExitConfigError
	}

	log := logging.New("core-engine", cfg.logLevel, os.Stderr)
	reg := metrics.NewRegistry()

	ledger, err := store.OpenLedger(cfg.storage)
	if err != nil {
		log.Error("ledger_unhealthy", logging.F("error", err.Error()))
		return constants.ExitLedgerUnhealthy
	}
	defer ledger.Close()
	if err := ledger.Ping(); err != nil {
		log.Error("ledger_unhealthy", logging.F("error", err.Error()))
		return constants.ExitLedgerUnhealthy
	}

	cache := store.OpenRealtimeCache(cfg.storage)
	if err := cache.Ping(context.Background()); err != nil {
		log.Error("cache_unhealthy", logging.F("error", err.Error()))
		return constants.ExitCacheUnhealthy
	}

	var bt transport.BrokerTransport
	if cfg.useSimulator {
		bt = transport.NewSimulator()
	} else {
		bt = transport.NewQuickfixTransport(log)
	}

	sessionMgr := session.New(bt, log)
	flowController := flowctl.NewController()
	breakers := flowctl.NewCircuitBreakerManager()

	execEngine := execution.New(bt, sessionMgr, flowController, breakers, execution.DefaultConfig())
	execEngine.SetRiskDecisionRecorder(store.NewLedgerRiskRecorder(ledger, log))

	stratCfg := strategy.DefaultConfig()
	stratCfg.StatePersistence = true
	stratCfg.LoadStateOnStart = true
	stateStore := store.NewStrategyStateStore(cache, cfg.accountID)

	stratEngine := strategy.New(stratCfg, log, func(intent contracts.SignalIntent) {
		accepted, reason := execEngine.PlaceOrder(contracts.OrderIntent{
			AccountID:     cfg.accountID,
			ClientOrderID: intent.TraceID,
			StrategyID:    intent.StrategyID,
			InstrumentID:  intent.InstrumentID,
			Side:          intent.Side,
			Offset:        intent.Offset,
			Type:          contracts.OrderTypeLimit,
			Volume:        intent.Volume,
			Price:         intent.LimitPrice,
			TraceID:       intent.TraceID,
			TimestampNs:   intent.TsNs,
		})
		if !accepted {
			log.Warn("signal_intent_rejected", logging.F("trace_id", intent.TraceID), logging.F("reason", reason))
		}
	})
	stratEngine.SetStateStore(stateStore)

	// Order events fan out to both the execution engine's own order-status
	// tracking and the strategy engine's event queue; session.Manager only
	// holds one callback slot, so the fan-out happens here. The reconciler
	// owns the actual ledger/cache writes (and their trade/order-table
	// split) so the same dedupe path covers both live events and the
	// post-reconnect replay below.
	orderReconciler := reconcile.New(reconcile.NewProcessedEventIndex(), ledger, cache, func(evt contracts.OrderEvent) {
		execEngine.HandleOrderEvent(evt)
		stratEngine.EnqueueOrderEvent(evt)
	}, log)
	sessionMgr.OnOrderEvent(func(evt contracts.OrderEvent) {
		if err := orderReconciler.ApplyReplayBatch("orders", []contracts.OrderEvent{evt}, evt.TsNs); err != nil {
			log.Warn("order_event_reconcile_failed", logging.F("client_order_id", evt.ClientOrderID), logging.F("error", err.Error()))
		}
	})
	// After a reconnect the broker-side order state may have moved while we
	// were disconnected; surface the durable resume point. Real broker bulk
	// replay (re-querying every order/trade since that offset) is left to
	// the QueryTradingAccount/QueryInvestorPosition callers, since transport
	// has no bulk-query API of its own to drive it automatically here.
	sessionMgr.OnReconnected(func() {
		if offset, ok, err := orderReconciler.ResumeOffset("orders"); err != nil {
			log.Warn("reconcile_resume_offset_failed", logging.F("error", err.Error()))
		} else if ok {
			log.Info("reconcile_resuming", logging.F("stream", "orders"), logging.F("offset", fmt.Sprintf("%d", offset)))
		} else {
			log.Info("reconcile_resuming", logging.F("stream", "orders"), logging.F("offset", "none"))
		}
	})
	sessionMgr.OnMarketTick(func(snap contracts.MarketSnapshot) {
		stratEngine.EnqueueState(snap)
		if err := cache.UpsertMarketSnapshot(context.Background(), snap); err != nil {
			log.Warn("market_snapshot_cache_write_failed", logging.F("instrument_id", snap.InstrumentID), logging.F("error", err.Error()))
		}
	})

	strategyCollector := metrics.NewStrategyEngineCollector(reg, metrics.Labels{"account_id": cfg.accountID})
	strategyCollector.Collect(stratEngine.GetStats())

	if err := stratEngine.Start([]string{cfg.strategyID}, func(strategyID string) strategy.LiveStrategy {
		return strategy.NewDemoLiveStrategy()
	}, strategy.Context{AccountID: cfg.accountID}); err != nil {
		log.Error("strategy_engine_start_failed", logging.F("error", err.Error()))
		return constants.ExitConfigError
	}
	defer stratEngine.Stop()

	if !sessionMgr.Connect(cfg.session) {
		log.Error("session_connect_failed", logging.F("last_error", sessionMgr.LastError()))
		return constants.ExitSessionConnect
	}
	defer sessionMgr.Disconnect()

	log.Info("core_engine_started", logging.F("account_id", cfg.accountID), logging.F("strategy_id", cfg.strategyID))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info("core_engine_shutting_down")
	return constants.ExitOK
}
