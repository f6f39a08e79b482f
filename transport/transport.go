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

// Package transport is the broker-facing boundary of the core. The design
// notes call for the concrete CTP gateway adapter to sit behind an interface
// so session/execution can be driven by a deterministic in-process simulator
// in tests; QuickfixTransport is the real adapter, grounded on the teacher's
// FixApp (fixclient/fixapp.go) and its ToAdmin/FromApp logon sequence, wired
// to a FIX counterparty instead of Coinbase Prime market data.
package transport

import (
	"errors"

	"quant-hft-core/contracts"
)

// ErrNotConnected is returned by operations attempted before a successful
// Connect.
var ErrNotConnected = errors.New("transport: not connected")

// Callbacks is the set of broker-pushed events a BrokerTransport fans out to
// its owner (session.Manager). All are invoked from the transport's own
// goroutine(s); implementations must not block for long inside a callback.
type Callbacks struct {
	OnLogon       func(frontID, sessionID int)
	OnLogout      func(frontID, sessionID int, reason string)
	OnOrderEvent  func(contracts.OrderEvent)
	OnMarketTick  func(contracts.MarketSnapshot)
}

// OrderRequest is the wire-independent shape of a new order submission.
type OrderRequest struct {
	OrderRef     string
	AccountID    string
	InvestorID   string
	InstrumentID string
	Side         contracts.Side
	Offset       contracts.Offset
	Type         contracts.OrderType
	Volume       int
	Price        float64
}

// CancelRequest identifies the order to cancel by its original broker
// correlation fields.
type CancelRequest struct {
	OrderRef     string
	ExchangeID   string
	InstrumentID string
	FrontID      int
	SessionID    int
}

// BrokerTransport abstracts the wire connection to the trading venue. A
// single transport instance is bound to one logical session (market data
// front + trader front) at a time; Connect/Disconnect manage that lifecycle
// while the remaining methods assume a connected, logged-in session.
type BrokerTransport interface {
	// Connect dials the configured fronts and performs the logon handshake.
	// It returns once the handshake either succeeds or definitively fails;
	// ongoing reconnection is session.Manager's responsibility, not the
	// transport's.
	Connect(cfg contracts.SessionConfig, cb Callbacks) error

	// Disconnect tears down the connection without attempting to reconnect.
	Disconnect() error

	SubscribeMarketData(instrumentIDs []string) error
	UnsubscribeMarketData(instrumentIDs []string) error

	PlaceOrder(req OrderRequest) error
	CancelOrder(req CancelRequest) error

	QueryOrder(accountID string) error
	QueryTrade(accountID string) error
	QuerySettlementInfo(accountID, tradingDay string) error
	ConfirmSettlementInfo(accountID string) error

	// FrontID and SessionID identify the currently active connection for
	// correlating outbound requests with broker-assigned references.
	FrontID() int
	SessionID() int
}
