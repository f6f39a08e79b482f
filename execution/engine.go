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

// Package execution composes session, flowctl, and the broker transport
// into the order-placement/cancellation path of §4.5, grounded on the
// source's ExecutionEngine (services/order/execution_engine.cpp): breaker
// checks at three scopes, a flow-control permit, broker submission, then
// breaker success/failure recording depending on the outcome.
package execution

import (
	"fmt"
	"sync"
	"time"

	"quant-hft-core/constants"
	"quant-hft-core/contracts"
	"quant-hft-core/flowctl"
	"quant-hft-core/query"
	"quant-hft-core/session"
	"quant-hft-core/transport"
)

const systemBreakerKey = "__system__"

// RiskChecker is the pluggable pre-trade risk check invoked before an order
// ever reaches the breaker/flow stages. A nil RiskChecker allows everything.
type RiskChecker interface {
	CheckOrder(intent contracts.OrderIntent) contracts.RiskDecision
}

// RiskDecisionRecorder persists every risk-check outcome regardless of
// accept/reject, satisfying the audit-trail requirement of SPEC_FULL
// supplemented feature 5 (risk_decisions table).
type RiskDecisionRecorder interface {
	RecordRiskDecision(intent contracts.OrderIntent, decision contracts.RiskDecision)
}

// Config tunes retry/backoff and timeout knobs, mirroring the source
// constructor's trailing parameters.
type Config struct {
	AcquireTimeout        time.Duration
	CancelRetryMax        int
	CancelRetryBaseDelay  time.Duration
	CancelRetryMaxDelay   time.Duration
	CancelWaitAckTimeout  time.Duration
}

// DefaultConfig mirrors the source's constructor defaults.
func DefaultConfig() Config {
	return Config{
		AcquireTimeout:       time.Second,
		CancelRetryMax:       5,
		CancelRetryBaseDelay: 100 * time.Millisecond,
		CancelRetryMaxDelay:  2 * time.Second,
		CancelWaitAckTimeout: 3 * time.Second,
	}
}

func (c Config) normalized() Config {
	if c.AcquireTimeout < 0 {
		c.AcquireTimeout = 0
	}
	if c.CancelRetryMax < 1 {
		c.CancelRetryMax = 1
	}
	if c.CancelRetryBaseDelay <= 0 {
		c.CancelRetryBaseDelay = time.Millisecond
	}
	if c.CancelRetryMaxDelay < c.CancelRetryBaseDelay {
		c.CancelRetryMaxDelay = c.CancelRetryBaseDelay
	}
	if c.CancelWaitAckTimeout <= 0 {
		c.CancelWaitAckTimeout = time.Millisecond
	}
	return c
}

// Engine is the order placement/cancellation service.
type Engine struct {
	transport transport.BrokerTransport
	sessionMgr *session.Manager
	flow      *flowctl.Controller
	breakers  *flowctl.CircuitBreakerManager
	cfg       Config

	riskChecker RiskChecker
	riskLog     RiskDecisionRecorder

	queryScheduler *query.Scheduler

	mu              sync.Mutex
	orderStatus     map[string]contracts.OrderStatus
	defaultAccount  string
	defaultStrategy string
	snapshotTs      map[string]int64
	nextRequestID   int
}

// New builds an Engine. sessionMgr.OnOrderEvent is registered internally to
// track order status for the terminal-state short-circuits in CancelOrder.
func New(bt transport.BrokerTransport, sessionMgr *session.Manager, flow *flowctl.Controller, breakers *flowctl.CircuitBreakerManager, cfg Config) *Engine {
	e := &Engine{
		transport:      bt,
		sessionMgr:     sessionMgr,
		flow:           flow,
		breakers:       breakers,
		cfg:            cfg.normalized(),
		orderStatus:    make(map[string]contracts.OrderStatus),
		queryScheduler: query.New(0),
		snapshotTs:     make(map[string]int64),
	}
	if sessionMgr != nil {
		sessionMgr.OnOrderEvent(e.handleOrderEvent)
	}
	return e
}

// SetRiskChecker installs the pre-trade risk check.
func (e *Engine) SetRiskChecker(rc RiskChecker) { e.riskChecker = rc }

// SetRiskDecisionRecorder installs the risk-decision audit sink.
func (e *Engine) SetRiskDecisionRecorder(r RiskDecisionRecorder) { e.riskLog = r }

func (e *Engine) handleOrderEvent(evt contracts.OrderEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.orderStatus[evt.OrderRef] = evt.Status
}

// HandleOrderEvent is the exported form of the order-status tracking New
// wires into sessionMgr.OnOrderEvent. Callers that need to fan an order
// event out to more than one subscriber (e.g. cmd/core-engine also
// forwarding to the strategy engine) register their own combined callback
// and call this explicitly, since session.Manager only holds one slot.
func (e *Engine) HandleOrderEvent(evt contracts.OrderEvent) { e.handleOrderEvent(evt) }

func (e *Engine) orderStatusOf(orderRef string) (contracts.OrderStatus, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	status, ok := e.orderStatus[orderRef]
	return status, ok
}

// PlaceOrder runs the pre-trade risk check (if any), the three-scope
// breaker check, acquires a flow-control permit, and submits to the
// broker. It returns (true, "") on success or (false, reason) otherwise.
func (e *Engine) PlaceOrder(intent contracts.OrderIntent) (bool, string) {
	if intent.AccountID == "" || intent.StrategyID == "" {
		return false, "order intent account_id/strategy_id required"
	}

	if e.riskChecker != nil {
		decision := e.riskChecker.CheckOrder(intent)
		if e.riskLog != nil {
			e.riskLog.RecordRiskDecision(intent, decision)
		}
		if !decision.Allowed {
			return false, fmt.Sprintf("risk reject: %s", decision.Reason)
		}
	}

	e.mu.Lock()
	e.defaultAccount = intent.AccountID
	e.defaultStrategy = intent.StrategyID
	e.mu.Unlock()

	if !e.allowByBreaker(intent.StrategyID, intent.AccountID) {
		return false, constants.ReasonBreakerOpen
	}

	if !e.acquireFlowPermit(flowctl.Operation{
		AccountID:    intent.AccountID,
		Type:         contracts.OpOrderInsert,
		InstrumentID: intent.InstrumentID,
	}) {
		e.recordBreakerFailure(intent.StrategyID, intent.AccountID)
		return false, constants.ReasonFlowRejectOrderInsert
	}

	orderRef := intent.ClientOrderID
	if orderRef == "" {
		orderRef = fmt.Sprintf("ord-%d", time.Now().UnixNano())
	}

	req := transport.OrderRequest{
		OrderRef:     orderRef,
		AccountID:    intent.AccountID,
		InvestorID:   intent.AccountID,
		InstrumentID: intent.InstrumentID,
		Side:         intent.Side,
		Offset:       intent.Offset,
		Type:         intent.Type,
		Volume:       intent.Volume,
		Price:        intent.Price,
	}
	if err := e.transport.PlaceOrder(req); err != nil {
		e.recordBreakerFailure(intent.StrategyID, intent.AccountID)
		return false, "broker place order failed: " + err.Error()
	}

	if e.sessionMgr != nil {
		e.sessionMgr.Orders().Put(session.OrderMeta{
			OrderRef:     orderRef,
			AccountID:    intent.AccountID,
			StrategyID:   intent.StrategyID,
			InstrumentID: intent.InstrumentID,
			Side:         intent.Side,
			Offset:       intent.Offset,
			FrontID:      e.sessionMgr.FrontID(),
			SessionID:    e.sessionMgr.SessionID(),
		})
	}
	e.mu.Lock()
	e.orderStatus[orderRef] = contracts.OrderStatusNew
	e.mu.Unlock()

	e.recordBreakerSuccess(intent.StrategyID, intent.AccountID)
	return true, ""
}

// CancelOrder retries the cancel submission with exponential backoff,
// bounded by cfg.CancelRetryMax, waiting up to CancelWaitAckTimeout for a
// terminal order status after each submitted attempt.
func (e *Engine) CancelOrder(accountID, strategyID, clientOrderID, instrumentID string) bool {
	if clientOrderID == "" {
		return false
	}

	e.mu.Lock()
	if accountID != "" {
		e.defaultAccount = accountID
	}
	if strategyID != "" {
		e.defaultStrategy = strategyID
	}
	account := e.defaultAccount
	strategy := e.defaultStrategy
	e.mu.Unlock()

	if !e.allowByBreaker(strategy, account) {
		return false
	}

	if status, ok := e.orderStatusOf(clientOrderID); ok && status.IsTerminal() {
		e.recordBreakerSuccess(strategy, account)
		return true
	}

	// No order-meta mapping means the order manager never saw this
	// clientOrderID placed (and it isn't already-terminal, or the check
	// above would have short-circuited): a pure validation failure, so it
	// returns false without ever acquiring a flow permit or calling the
	// broker.
	if e.sessionMgr == nil {
		return false
	}
	meta, ok := e.sessionMgr.Orders().Get(clientOrderID)
	if !ok {
		return false
	}

	delay := e.cfg.CancelRetryBaseDelay
	for attempt := 1; attempt <= e.cfg.CancelRetryMax; attempt++ {
		if !e.acquireFlowPermit(flowctl.Operation{AccountID: account, Type: contracts.OpOrderCancel}) {
			time.Sleep(delay)
			delay = minDur(e.cfg.CancelRetryMaxDelay, delay*2)
			continue
		}

		err := e.transport.CancelOrder(transport.CancelRequest{
			OrderRef:     clientOrderID,
			ExchangeID:   meta.ExchangeOrderID,
			InstrumentID: instrumentID,
			FrontID:      meta.FrontID,
			SessionID:    meta.SessionID,
		})
		if err == nil {
			deadline := time.Now().Add(e.cfg.CancelWaitAckTimeout)
			for time.Now().Before(deadline) {
				if status, ok := e.orderStatusOf(clientOrderID); ok && status.IsTerminal() {
					e.recordBreakerSuccess(strategy, account)
					return true
				}
				time.Sleep(10 * time.Millisecond)
			}
		}

		if attempt < e.cfg.CancelRetryMax {
			time.Sleep(delay)
			delay = minDur(e.cfg.CancelRetryMaxDelay, delay*2)
		}
	}

	e.recordBreakerFailure(strategy, account)
	return false
}

// QueryTradingAccount requests an account snapshot refresh: acquire a Query
// flow token, hand the broker call to the query scheduler, then poll the
// account's snapshot timestamp until it advances past its prior value or a
// 3s deadline elapses, per §4.5.
func (e *Engine) QueryTradingAccount(accountID string) error {
	if !e.acquireFlowPermit(flowctl.Operation{AccountID: accountID, Type: contracts.OpQuery}) {
		return fmt.Errorf("query flow control rejected")
	}
	return e.runQuery("account:"+accountID, func() error {
		return e.transport.QueryOrder(accountID)
	})
}

// QueryInvestorPosition requests a position snapshot refresh for
// instrumentID, following the same scheduler-and-poll contract as
// QueryTradingAccount.
func (e *Engine) QueryInvestorPosition(accountID, instrumentID string) error {
	if !e.acquireFlowPermit(flowctl.Operation{AccountID: accountID, Type: contracts.OpQuery, InstrumentID: instrumentID}) {
		return fmt.Errorf("query flow control rejected")
	}
	return e.runQuery("position:"+accountID+":"+instrumentID, func() error {
		return e.transport.QueryTrade(accountID)
	})
}

// runQuery enqueues call on the query scheduler and drains it synchronously
// (the scheduler has no background timer loop of its own), then polls the
// named snapshot's timestamp for up to 3s for it to advance past the value
// recorded before this call.
func (e *Engine) runQuery(snapshotKey string, call func() error) error {
	prior := e.snapshotTsOf(snapshotKey)

	var callErr error
	scheduled := e.queryScheduler.TrySchedule(e.nextQueryRequestID(), contracts.PriorityNormal, func() {
		if err := call(); err != nil {
			callErr = err
			return
		}
		e.recordSnapshotTs(snapshotKey, time.Now().UnixNano())
	})
	if !scheduled {
		return fmt.Errorf("query scheduler rejected request")
	}
	e.queryScheduler.DrainOnce()
	if callErr != nil {
		return callErr
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if e.snapshotTsOf(snapshotKey) != prior {
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	return fmt.Errorf("query timed out waiting for snapshot refresh")
}

func (e *Engine) nextQueryRequestID() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextRequestID++
	return e.nextRequestID
}

func (e *Engine) snapshotTsOf(key string) int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotTs[key]
}

func (e *Engine) recordSnapshotTs(key string, ts int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.snapshotTs[key] = ts
}

func (e *Engine) allowByBreaker(strategyID, accountID string) bool {
	if !e.breakers.Allow(contracts.ScopeStrategy, strategyID) {
		return false
	}
	if !e.breakers.Allow(contracts.ScopeAccount, accountID) {
		return false
	}
	return e.breakers.Allow(contracts.ScopeSystem, systemBreakerKey)
}

func (e *Engine) recordBreakerSuccess(strategyID, accountID string) {
	e.breakers.RecordSuccess(contracts.ScopeStrategy, strategyID)
	e.breakers.RecordSuccess(contracts.ScopeAccount, accountID)
	e.breakers.RecordSuccess(contracts.ScopeSystem, systemBreakerKey)
}

func (e *Engine) recordBreakerFailure(strategyID, accountID string) {
	e.breakers.RecordFailure(contracts.ScopeStrategy, strategyID)
	e.breakers.RecordFailure(contracts.ScopeAccount, accountID)
	e.breakers.RecordFailure(contracts.ScopeSystem, systemBreakerKey)
}

func (e *Engine) acquireFlowPermit(op flowctl.Operation) bool {
	return e.flow.Acquire(op, e.cfg.AcquireTimeout).Allowed
}

func minDur(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
