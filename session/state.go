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

// Package session owns the broker session lifecycle: connect/login/
// settlement-confirm (no separate authenticate step), reconnect with
// exponential backoff, subscription
// replay, and the order-meta index that lets later CancelOrder calls find an
// order's front/session correlation fields. Grounded on the teacher's
// OrderStore (fixclient/orderstore.go) for the bidirectional-index shape and
// defensive-copy getters.
package session

// State is the trader-session lifecycle of the spec's SessionState: one of
// {Disconnected, Connected, Authenticated, LoggedIn, SettlementConfirmed,
// Ready}. Market-data sessions only ever occupy {Disconnected, Connected,
// LoggedIn, Ready} — Authenticated and SettlementConfirmed are skipped by
// reusing the same monotonic rank.
type State int

const (
	StateDisconnected State = iota
	StateConnected
	StateAuthenticated
	StateLoggedIn
	StateSettlementConfirmed
	StateReady
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "Connected"
	case StateAuthenticated:
		return "Authenticated"
	case StateLoggedIn:
		return "LoggedIn"
	case StateSettlementConfirmed:
		return "SettlementConfirmed"
	case StateReady:
		return "Ready"
	default:
		return "Disconnected"
	}
}
