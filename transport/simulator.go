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
	"sync"
	"time"

	"quant-hft-core/contracts"
)

// Simulator is an in-process BrokerTransport that acknowledges every order
// as immediately Accepted, used by session/execution/transport tests and by
// the demo entry point in cmd/core-engine when EnableRealAPI is false.
type Simulator struct {
	mu        sync.Mutex
	cb        Callbacks
	connected bool
	frontID   int
	sessionID int
	failNext  bool
}

// NewSimulator builds a disconnected Simulator.
func NewSimulator() *Simulator {
	return &Simulator{frontID: 1, sessionID: 1}
}

// FailNextConnect makes the next Connect call return an error, modeling a
// broker-side logon rejection for reconnect-path tests.
func (s *Simulator) FailNextConnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = true
}

func (s *Simulator) Connect(cfg contracts.SessionConfig, cb Callbacks) error {
	s.mu.Lock()
	if s.failNext {
		s.failNext = false
		s.mu.Unlock()
		return ErrNotConnected
	}
	s.cb = cb
	s.connected = true
	s.sessionID++
	frontID, sessionID := s.frontID, s.sessionID
	onLogon := cb.OnLogon
	s.mu.Unlock()

	if onLogon != nil {
		onLogon(frontID, sessionID)
	}
	return nil
}

func (s *Simulator) Disconnect() error {
	s.mu.Lock()
	s.connected = false
	onLogout := s.cb.OnLogout
	frontID, sessionID := s.frontID, s.sessionID
	s.mu.Unlock()
	if onLogout != nil {
		onLogout(frontID, sessionID, "disconnect requested")
	}
	return nil
}

func (s *Simulator) SubscribeMarketData(instrumentIDs []string) error   { return s.requireConnected() }
func (s *Simulator) UnsubscribeMarketData(instrumentIDs []string) error { return s.requireConnected() }

func (s *Simulator) PlaceOrder(req OrderRequest) error {
	if err := s.requireConnected(); err != nil {
		return err
	}
	s.mu.Lock()
	cb := s.cb.OnOrderEvent
	frontID, sessionID := s.frontID, s.sessionID
	s.mu.Unlock()
	if cb != nil {
		cb(contracts.OrderEvent{
			AccountID:       req.AccountID,
			OrderRef:        req.OrderRef,
			ExchangeOrderID: req.OrderRef,
			FrontID:         frontID,
			SessionID:       sessionID,
			InstrumentID:    req.InstrumentID,
			Status:          contracts.OrderStatusAccepted,
			TotalVolume:     req.Volume,
			Source:          contracts.EventSourceRtnOrder,
			TsNs:            time.Now().UnixNano(),
			RecvTsNs:        time.Now().UnixNano(),
		})
	}
	return nil
}

func (s *Simulator) CancelOrder(req CancelRequest) error {
	if err := s.requireConnected(); err != nil {
		return err
	}
	s.mu.Lock()
	cb := s.cb.OnOrderEvent
	frontID, sessionID := s.frontID, s.sessionID
	s.mu.Unlock()
	if cb != nil {
		cb(contracts.OrderEvent{
			OrderRef:        req.OrderRef,
			ExchangeOrderID: req.ExchangeID,
			FrontID:         frontID,
			SessionID:       sessionID,
			InstrumentID:    req.InstrumentID,
			Status:          contracts.OrderStatusCanceled,
			Source:          contracts.EventSourceRtnOrder,
			TsNs:            time.Now().UnixNano(),
			RecvTsNs:        time.Now().UnixNano(),
		})
	}
	return nil
}

func (s *Simulator) QueryOrder(accountID string) error             { return s.requireConnected() }
func (s *Simulator) QueryTrade(accountID string) error             { return s.requireConnected() }
func (s *Simulator) QuerySettlementInfo(accountID, day string) error { return s.requireConnected() }
func (s *Simulator) ConfirmSettlementInfo(accountID string) error    { return s.requireConnected() }

func (s *Simulator) FrontID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frontID
}

func (s *Simulator) SessionID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

func (s *Simulator) requireConnected() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return ErrNotConnected
	}
	return nil
}

var _ BrokerTransport = (*Simulator)(nil)
