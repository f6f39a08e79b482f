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

// Package constants collects the literal reason codes, realtime-cache key
// templates, and ledger table names the rest of the module is pinned to by
// the external-interfaces section of the spec. Keeping them centralized
// avoids drift between the flow controller, the execution engine, and the
// store adapters that all reference the same strings.
package constants

// --- Flow-control / breaker rejection reason codes (§7) ---
const (
	ReasonRateLimited           = "rate_limited"
	ReasonRateLimitedTimeout    = "rate_limited_timeout"
	ReasonBreakerOpen           = "blocked by circuit breaker"
	ReasonFlowRejectOrderInsert = "flow control rejected order insert"
	ReasonFlowRejectOrderCancel = "flow control rejected order cancel"
	ReasonFlowRejectQuery       = "flow control rejected query"
)

// --- Dispatcher / critical-queue structured log events (§4.2) ---
const (
	LogEventQueueFull             = "queue_full"
	LogEventCriticalTimeout       = "critical_timeout"
	LogEventCriticalDelayExceeded = "critical_delay_exceeded"
	LogEventReconnectAttempt      = "reconnect_attempt"
	LogEventReconnectSuccess      = "reconnect_success"
	LogEventReconnectExhausted    = "reconnect_exhausted"
	LogEventBreakerOpened         = "breaker_opened"
	LogEventBreakerHalfOpen       = "breaker_half_open"
	LogEventBreakerClosed         = "breaker_closed"
)

// --- Realtime cache (hash store) key templates (§6) ---
const (
	KeyMarketTickFmt     = "market:tick:%s:latest"
	KeyRtOrderFmt        = "quant:rt:order:%s"
	KeyPositionFmt       = "position:%s:%s"
	KeyStrategyIntentFmt = "strategy:intent:%s:latest"
	KeyStrategyStateFmt  = "strategy_state:%s:%s"
)

// --- Ledger (time-series store) table names (§6) ---
const (
	TableOrderEvents       = "order_events"
	TableTradeEvents       = "trade_events"
	TableMarketSnapshots   = "market_snapshots"
	TableRiskDecisions     = "risk_decisions"
	TableAccountSnapshots  = "account_snapshots"
	TablePositionSnapshots = "position_snapshots"
	TableReplayOffsets     = "replay_offsets"
)

// --- Replay-offset stream names (SPEC_FULL supplemented feature 4) ---
const (
	StreamOrders = "orders"
	StreamTrades = "trades"
	StreamMarket = "market"
)

// --- Exit codes (§6, core engine CLI) ---
const (
	ExitOK                 = 0
	ExitConfigError        = 1
	ExitSessionConnect     = 2
	ExitRiskReject         = 3
	ExitStateMachineReject = 4
	ExitCacheUnhealthy     = 5
	ExitLedgerUnhealthy    = 6
)

// ExchangePrefixes maps an instrument-id prefix to its exchange, used to
// derive a missing exchange-id during market-snapshot normalization
// (SPEC_FULL supplemented feature 1).
var ExchangePrefixes = map[string]string{
	"SHFE":  "SHFE",
	"DCE":   "DCE",
	"CZCE":  "CZCE",
	"CFFEX": "CFFEX",
	"INE":   "INE",
	"GFEX":  "GFEX",
}

// SettlementSentinelLow and SettlementSentinelHigh bound the valid range for
// a broker-reported settlement price; values outside this band are treated
// as "not yet published" and zeroed during normalization.
const (
	SettlementSentinelLow  = 0.0
	SettlementSentinelHigh = 1e8
)
