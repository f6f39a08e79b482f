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
	"fmt"
	"sync"
	"time"

	"quant-hft-core/constants"
	"quant-hft-core/contracts"
	"quant-hft-core/logging"
	"quant-hft-core/transport"
)

// OffsetApplySource records which broker-side setting actually governed
// offset (open/close) resolution for the last login, surfaced because the
// same field can come from either the exchange's default or an explicit
// broker override (SPEC_FULL supplemented feature 2, grounded on the
// source's CtpGatewayAdapter::offset_apply_src_).
type OffsetApplySource byte

const (
	OffsetApplySourceUnknown OffsetApplySource = 0
	OffsetApplySourceDefault OffsetApplySource = '0'
	OffsetApplySourceBroker  OffsetApplySource = '1'
)

// Manager owns one broker session: connect/login/settlement confirm,
// subscription replay, and the reconnect worker. It issues no separate
// authenticate request: the trader state never passes through
// Authenticated, and the terminal-auth setting in SessionConfig is not
// read. It is safe for concurrent use.
type Manager struct {
	transport transport.BrokerTransport
	log       *logging.Logger

	mu                sync.Mutex
	cfg               contracts.SessionConfig
	traderState       State
	marketState       State
	connected         bool
	frontID           int
	sessionID         int
	loginTime         time.Time
	lastError         string
	subscriptions     map[string]struct{}
	offsetApplySource OffsetApplySource

	orders *OrderIndex

	reconnectWake chan struct{}
	reconnectDone chan struct{}
	stopOnce      sync.Once

	onOrderEvent  func(contracts.OrderEvent)
	onMarketTick  func(contracts.MarketSnapshot)
	onReconnected func()
}

// New constructs a Manager bound to bt. log may be nil to use the
// package-default logger.
func New(bt transport.BrokerTransport, log *logging.Logger) *Manager {
	if log == nil {
		log = logging.Default()
	}
	return &Manager{
		transport:     bt,
		log:           log,
		subscriptions: make(map[string]struct{}),
		orders:        NewOrderIndex(),
		reconnectWake: make(chan struct{}, 1),
		reconnectDone: make(chan struct{}),
	}
}

// OnOrderEvent registers the downstream sink for broker order events.
func (m *Manager) OnOrderEvent(fn func(contracts.OrderEvent)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onOrderEvent = fn
}

// OnMarketTick registers the downstream sink for normalized market ticks.
func (m *Manager) OnMarketTick(fn func(contracts.MarketSnapshot)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onMarketTick = fn
}

// OnReconnected registers a callback fired once the reconnect worker has
// re-established the session and replayed subscriptions (never on the
// initial Connect). Intended for a reconciliation pass that needs to
// replay/dedupe whatever happened on the broker side during the outage.
func (m *Manager) OnReconnected(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onReconnected = fn
}

// Orders exposes the order-meta index for execution's cancel path.
func (m *Manager) Orders() *OrderIndex { return m.orders }

// Connect validates cfg, resets session-scoped state, and attempts the
// login handshake, blocking up to cfg.ConnectTimeout. On first success it
// starts the reconnect worker and replays subscriptions.
func (m *Manager) Connect(cfg contracts.SessionConfig) bool {
	if len(cfg.TraderFrontAddrs) == 0 {
		m.setLastError("no trader front addresses configured")
		return false
	}

	m.mu.Lock()
	m.cfg = cfg
	m.orders.Reset()
	m.traderState = StateDisconnected
	m.marketState = StateDisconnected
	m.mu.Unlock()

	if !m.attemptConnect(cfg) {
		return false
	}

	m.mu.Lock()
	alreadyRunning := m.connected
	m.connected = true
	m.mu.Unlock()

	if !alreadyRunning {
		go m.reconnectWorker()
	}
	m.replaySubscriptions()
	return true
}

func (m *Manager) attemptConnect(cfg contracts.SessionConfig) bool {
	result := make(chan error, 1)
	go func() {
		result <- m.transport.Connect(cfg, transport.Callbacks{
			OnLogon:      m.handleLogon,
			OnLogout:     m.handleLogout,
			OnOrderEvent: m.handleOrderEvent,
			OnMarketTick: m.handleMarketTick,
		})
	}()

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	select {
	case err := <-result:
		if err != nil {
			m.setLastError(err.Error())
			return false
		}
		return m.waitForReady(timeout)
	case <-time.After(timeout):
		m.setLastError("connect timed out waiting for logon")
		return false
	}
}

func (m *Manager) waitForReady(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		m.mu.Lock()
		ready := m.traderState == StateReady && m.marketState >= StateLoggedIn
		m.mu.Unlock()
		if ready {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	m.setLastError("connect timed out before reaching Ready")
	return false
}

func (m *Manager) handleLogon(frontID, sessionID int) {
	m.mu.Lock()
	m.frontID = frontID
	m.sessionID = sessionID
	m.loginTime = time.Now()
	m.traderState = StateLoggedIn
	m.marketState = StateLoggedIn
	settlementRequired := m.cfg.SettlementConfirmRequired
	m.mu.Unlock()

	if !settlementRequired {
		m.mu.Lock()
		m.traderState = StateReady
		m.marketState = StateReady
		m.mu.Unlock()
	}
	m.log.Info(constants.LogEventReconnectSuccess, logging.F("front_id", itoa(frontID)), logging.F("session_id", itoa(sessionID)))
}

func (m *Manager) handleLogout(frontID, sessionID int, reason string) {
	m.mu.Lock()
	m.traderState = StateDisconnected
	m.marketState = StateDisconnected
	m.connected = false
	m.mu.Unlock()

	m.log.Warn("session_disconnected", logging.F("reason", reason))
	m.requestReconnect()
}

func (m *Manager) handleOrderEvent(evt contracts.OrderEvent) {
	if meta, ok := m.orders.Get(evt.OrderRef); ok {
		if evt.ExchangeOrderID != "" {
			m.orders.SetExchangeID(meta.OrderRef, evt.ExchangeOrderID)
		}
		if evt.StrategyID == "" {
			evt.StrategyID = meta.StrategyID
		}
	}
	if evt.Status.IsTerminal() {
		m.orders.Remove(evt.OrderRef)
	}
	m.mu.Lock()
	cb := m.onOrderEvent
	m.mu.Unlock()
	if cb != nil {
		cb(evt)
	}
}

func (m *Manager) handleMarketTick(snap contracts.MarketSnapshot) {
	m.mu.Lock()
	cb := m.onMarketTick
	m.mu.Unlock()
	if cb != nil {
		cb(snap)
	}
}

// ConfirmSettlement promotes a LoggedIn trader session to Ready once the
// broker has acknowledged the confirmation, required when
// SettlementConfirmRequired is set.
func (m *Manager) ConfirmSettlement(accountID string) error {
	if err := m.transport.ConfirmSettlementInfo(accountID); err != nil {
		return err
	}
	m.mu.Lock()
	if m.traderState == StateLoggedIn {
		m.traderState = StateSettlementConfirmed
		m.traderState = StateReady
	}
	m.mu.Unlock()
	return nil
}

// Disconnect stops the reconnect worker and tears down the transport.
func (m *Manager) Disconnect() error {
	m.stopOnce.Do(func() { close(m.reconnectDone) })
	m.mu.Lock()
	m.connected = false
	m.traderState = StateDisconnected
	m.marketState = StateDisconnected
	m.mu.Unlock()
	return m.transport.Disconnect()
}

// Subscribe adds instrumentIDs to the subscription set and issues the
// broker call only when the market-data session is Ready.
func (m *Manager) Subscribe(instrumentIDs []string) bool {
	m.mu.Lock()
	ready := m.marketState == StateReady
	for _, id := range instrumentIDs {
		m.subscriptions[id] = struct{}{}
	}
	m.mu.Unlock()
	if !ready {
		return false
	}
	return m.transport.SubscribeMarketData(instrumentIDs) == nil
}

// Unsubscribe removes instrumentIDs from the subscription set, issuing the
// broker call only when Ready.
func (m *Manager) Unsubscribe(instrumentIDs []string) bool {
	m.mu.Lock()
	ready := m.marketState == StateReady
	for _, id := range instrumentIDs {
		delete(m.subscriptions, id)
	}
	m.mu.Unlock()
	if !ready {
		return false
	}
	return m.transport.UnsubscribeMarketData(instrumentIDs) == nil
}

func (m *Manager) replaySubscriptions() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.subscriptions))
	for id := range m.subscriptions {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	if len(ids) == 0 {
		return
	}
	_ = m.transport.SubscribeMarketData(ids)
}

func (m *Manager) requestReconnect() {
	select {
	case m.reconnectWake <- struct{}{}:
	default:
	}
}

func (m *Manager) reconnectWorker() {
	for {
		select {
		case <-m.reconnectDone:
			return
		case <-m.reconnectWake:
		}

		m.mu.Lock()
		cfg := m.cfg
		m.mu.Unlock()

		attempt := 0
		backoff := cfg.ReconnectInitialBackoff
		if backoff <= 0 {
			backoff = 100 * time.Millisecond
		}
		maxBackoff := cfg.ReconnectMaxBackoff
		if maxBackoff <= 0 {
			maxBackoff = 30 * time.Second
		}
		maxAttempts := cfg.ReconnectMaxAttempts
		if maxAttempts <= 0 {
			maxAttempts = 10
		}

		for attempt < maxAttempts {
			attempt++
			m.log.Info(constants.LogEventReconnectAttempt, logging.F("attempt", itoa(attempt)))
			if m.attemptConnect(cfg) {
				m.mu.Lock()
				m.connected = true
				m.mu.Unlock()
				m.replaySubscriptions()
				m.mu.Lock()
				cb := m.onReconnected
				m.mu.Unlock()
				if cb != nil {
					cb()
				}
				break
			}
			select {
			case <-m.reconnectDone:
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}

		if attempt >= maxAttempts {
			m.mu.Lock()
			connected := m.connected
			m.mu.Unlock()
			if !connected {
				m.log.Error(constants.LogEventReconnectExhausted, logging.F("attempts", itoa(attempt)))
			}
		}
	}
}

// TraderState returns the current trader-session state.
func (m *Manager) TraderState() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.traderState
}

// MarketState returns the current market-data session state.
func (m *Manager) MarketState() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.marketState
}

// IsReady reports whether the trader session may accept place/cancel calls.
func (m *Manager) IsReady() bool {
	return m.TraderState() == StateReady
}

// FrontID and SessionID return the active connection's correlation fields.
func (m *Manager) FrontID() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frontID
}

func (m *Manager) SessionID() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

// LastError returns the diagnostic from the most recent failed connect
// attempt, or "" if the last attempt succeeded.
func (m *Manager) LastError() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastError
}

// OffsetApplySource reports which setting governed offset resolution for
// the current session.
func (m *Manager) OffsetApplySource() OffsetApplySource {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.offsetApplySource
}

// SetOffsetApplySource records the offset-apply setting the broker reported
// for the current session. No transport in this module calls it, so the
// value stays at its zero value unless the Manager's owner sets it.
func (m *Manager) SetOffsetApplySource(src OffsetApplySource) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offsetApplySource = src
}

func (m *Manager) setLastError(msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastError = msg
}

func itoa(n int) string { return fmt.Sprintf("%d", n) }
