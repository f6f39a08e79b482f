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

// Package contracts holds the wire-independent data model shared by every
// subsystem: session configuration, order intents/events, market snapshots,
// and the small value types the spec pins down exactly (sides, offsets,
// statuses, operation kinds).
package contracts

import "time"

// Side is the trade direction of an order.
type Side int

const (
	SideBuy Side = iota
	SideSell
)

func (s Side) String() string {
	if s == SideSell {
		return "Sell"
	}
	return "Buy"
}

// Offset distinguishes opening a position from the various ways of closing one.
type Offset int

const (
	OffsetOpen Offset = iota
	OffsetClose
	OffsetCloseToday
	OffsetCloseYesterday
)

func (o Offset) String() string {
	switch o {
	case OffsetClose:
		return "Close"
	case OffsetCloseToday:
		return "CloseToday"
	case OffsetCloseYesterday:
		return "CloseYesterday"
	default:
		return "Open"
	}
}

// OrderType is the order's price instruction.
type OrderType int

const (
	OrderTypeMarket OrderType = iota
	OrderTypeLimit
)

// OrderStatus tracks the monotonic lifecycle of an order (§3 invariants).
type OrderStatus int

const (
	OrderStatusNew OrderStatus = iota
	OrderStatusAccepted
	OrderStatusPartiallyFilled
	OrderStatusFilled
	OrderStatusCanceled
	OrderStatusRejected
)

func (s OrderStatus) String() string {
	switch s {
	case OrderStatusAccepted:
		return "Accepted"
	case OrderStatusPartiallyFilled:
		return "PartiallyFilled"
	case OrderStatusFilled:
		return "Filled"
	case OrderStatusCanceled:
		return "Canceled"
	case OrderStatusRejected:
		return "Rejected"
	default:
		return "New"
	}
}

// IsTerminal reports whether no further transitions are expected for an
// order in this status.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusCanceled, OrderStatusRejected:
		return true
	default:
		return false
	}
}

// rank gives the monotonic ordering used to reject out-of-order transitions;
// PartiallyFilled and Accepted share a rank since repeated partial fills are
// legal self-transitions.
func (s OrderStatus) rank() int {
	switch s {
	case OrderStatusNew:
		return 0
	case OrderStatusAccepted, OrderStatusPartiallyFilled:
		return 1
	case OrderStatusFilled, OrderStatusCanceled, OrderStatusRejected:
		return 2
	default:
		return -1
	}
}

// CanTransitionTo reports whether moving from s to next respects the
// monotonic state machine in §3: New -> Accepted -> {PartiallyFilled}* ->
// terminal. Terminal states never transition further.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if s == OrderStatusPartiallyFilled && next == OrderStatusAccepted {
		return false
	}
	return next.rank() >= s.rank()
}

// EventSource identifies which broker callback produced an OrderEvent.
type EventSource int

const (
	EventSourceRtnOrder EventSource = iota
	EventSourceRtnTrade
	EventSourceQryOrder
	EventSourceQryTrade
)

func (e EventSource) String() string {
	switch e {
	case EventSourceRtnTrade:
		return "OnRtnTrade"
	case EventSourceQryOrder:
		return "OnRspQryOrder"
	case EventSourceQryTrade:
		return "OnRspQryTrade"
	default:
		return "OnRtnOrder"
	}
}

// OpKind is the operation a flow-control token gates (§4.4).
type OpKind int

const (
	OpOrderInsert OpKind = iota
	OpOrderCancel
	OpQuery
	OpSettlementQuery
)

func (o OpKind) String() string {
	switch o {
	case OpOrderCancel:
		return "OrderCancel"
	case OpQuery:
		return "Query"
	case OpSettlementQuery:
		return "SettlementQuery"
	default:
		return "OrderInsert"
	}
}

// BreakerScope is one of the three independent circuit-breaker scopes (§4.4).
type BreakerScope int

const (
	ScopeStrategy BreakerScope = iota
	ScopeAccount
	ScopeSystem
)

func (b BreakerScope) String() string {
	switch b {
	case ScopeAccount:
		return "account"
	case ScopeSystem:
		return "system"
	default:
		return "strategy"
	}
}

// EventPriority is the dispatcher's three-level priority (§4.2).
type EventPriority int

const (
	PriorityHigh EventPriority = iota
	PriorityNormal
	PriorityLow
)

// SessionConfig carries everything needed to connect a broker session (§3).
// It is immutable once handed to session.Manager.Connect.
type SessionConfig struct {
	MarketFrontAddrs []string
	TraderFrontAddrs []string
	BrokerID         string
	UserID           string
	InvestorID       string
	Password         string
	AppID            string
	AuthCode         string
	IsProduction     bool
	EnableRealAPI    bool
	EnableTerminalAuth bool
	SettlementConfirmRequired bool

	ConnectTimeout        time.Duration
	ReconnectInitialBackoff time.Duration
	ReconnectMaxBackoff     time.Duration
	ReconnectMaxAttempts    int
	RecoveryQuietPeriod     time.Duration
}

// OrderIntent is the input to ExecutionEngine.PlaceOrder (§3).
type OrderIntent struct {
	AccountID     string
	ClientOrderID string
	StrategyID    string
	InstrumentID  string
	Side          Side
	Offset        Offset
	Type          OrderType
	Volume        int
	Price         float64
	TraceID       string
	TimestampNs   int64
}

// OrderEvent is the uniform broker-callback shape fanned out to downstream
// consumers (§3).
type OrderEvent struct {
	AccountID      string
	ClientOrderID  string
	StrategyID     string
	ExchangeOrderID string
	OrderRef       string
	FrontID        int
	SessionID      int
	InstrumentID   string
	Status         OrderStatus
	TotalVolume    int
	FilledVolume   int
	AvgFillPrice   float64
	Reason         string
	Source         EventSource
	TsNs           int64
	ExchangeTsNs   int64
	RecvTsNs       int64
	TraceID        string
	TradeID        string
}

// MarketSnapshot is a single normalized tick (§3).
type MarketSnapshot struct {
	InstrumentID      string
	ExchangeID        string
	TradingDay        string
	ActionDay         string
	UpdateTime        string
	UpdateMs          int
	BidPrice1         float64
	BidVolume1        int
	AskPrice1         float64
	AskVolume1        int
	LastPrice         float64
	Volume            int64
	SettlementPrice   *float64
	AvgPriceRaw       float64
	AvgPriceNormalized float64
	Valid             bool
	ExchangeTsNs      int64
	RecvTsNs          int64
}

// SignalIntent is a single strategy-emitted trading signal (§3).
type SignalIntent struct {
	StrategyID   string
	InstrumentID string
	Side         Side
	Offset       Offset
	Volume       int
	LimitPrice   float64
	TsNs         int64
	TraceID      string
}

// StrategyIntentBatch is the decoded payload read from the intent inbox (§3).
type StrategyIntentBatch struct {
	StrategyID string
	Seq        int64
	TsNs       int64
	Intents    []SignalIntent
}

// AccountSnapshot is a coarse funds snapshot forwarded to strategies.
type AccountSnapshot struct {
	AccountID   string
	Balance     float64
	Available   float64
	CurrMargin  float64
	TsNs        int64
}

// RiskDecision records the outcome of the pre-trade risk check in
// ExecutionEngine.PlaceOrder step 2, persisted regardless of outcome
// (SPEC_FULL supplemented feature 5).
type RiskDecision struct {
	Allowed bool
	Reason  string
}

// PositionSnapshot is a per-account, per-instrument position row, matching
// the realtime-cache "position:<accountId>:<instrumentId>" hash shape from
// §6 (long/short volumes split into today/yesterday legs).
type PositionSnapshot struct {
	AccountID    string
	InstrumentID string
	LongVolume   int
	ShortVolume  int
	LongToday    int
	ShortToday   int
	LongYesterday  int
	ShortYesterday int
	TsNs         int64
}
