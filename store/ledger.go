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

package store

import (
	"fmt"
	"time"

	"quant-hft-core/contracts"
)

// Ledger is the append-only time-series sink of §6: order_events,
// trade_events, market_snapshots, risk_decisions, account_snapshots,
// position_snapshots, replay_offsets. Every Append* call is idempotent on
// the (client_order_id, event_source, ts_ns, filled_volume, trade_id) key
// for order/trade rows; a duplicate insert is treated as success.
type Ledger interface {
	AppendOrderEvent(evt contracts.OrderEvent) error
	AppendTradeEvent(evt contracts.OrderEvent) error
	AppendMarketSnapshot(snap contracts.MarketSnapshot) error
	AppendRiskDecision(intent contracts.OrderIntent, decision contracts.RiskDecision) error
	AppendAccountSnapshot(snap contracts.AccountSnapshot) error
	AppendPositionSnapshot(pos contracts.PositionSnapshot) error

	// ReplayOffset and SetReplayOffset back the SPEC_FULL supplemented
	// replay-offset bookkeeping (feature 4): the last durably-ledgered
	// sequence number per upstream stream, so reconnection can resume a
	// query/replay from the right point instead of from the beginning.
	ReplayOffset(stream string) (int64, bool, error)
	SetReplayOffset(stream string, offset int64) error

	Ping() error
	Close() error
}

// OrderEventIdempotencyKey renders the idempotency key named in §6:
// client_order_id|event_source|ts_ns|filled_volume|trade_id.
func OrderEventIdempotencyKey(evt contracts.OrderEvent) string {
	return fmt.Sprintf("%s|%s|%d|%d|%s", evt.ClientOrderID, evt.Source.String(), evt.TsNs, evt.FilledVolume, evt.TradeID)
}

// IsTradeSourced reports whether evt was produced by a trade callback
// (RtnTrade/QryTrade) rather than an order-status callback, and therefore
// belongs in trade_events rather than order_events.
func IsTradeSourced(evt contracts.OrderEvent) bool {
	return evt.Source == contracts.EventSourceRtnTrade || evt.Source == contracts.EventSourceQryTrade
}

// rfc3339Micro renders the ledger-write timestamp per §9's design note:
// RFC-3339 with microsecond precision and an explicit +00:00 zone offset,
// replacing the source's hand-rolled UTC-suffix formatting.
func rfc3339Micro(tsNs int64) string {
	return timeFromNs(tsNs).UTC().Format("2006-01-02T15:04:05.000000+00:00")
}

func timeFromNs(tsNs int64) time.Time {
	if tsNs <= 0 {
		return time.Now()
	}
	return time.Unix(0, tsNs)
}
