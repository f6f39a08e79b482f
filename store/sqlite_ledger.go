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
	"database/sql"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"

	"quant-hft-core/contracts"
)

// SQLiteLedger is the local-fallback ledger selected when
// *_TIMESCALE_MODE is disabled (§6 configuration). It uses the same
// prepared-statement-per-table pattern as database.MarketDataDb, with a
// UNIQUE index on order_events.idempotency_key to satisfy the
// duplicate-insert-is-success contract of §7.
type SQLiteLedger struct {
	db *sql.DB

	stmtOrderEvent       *sql.Stmt
	stmtTradeEvent       *sql.Stmt
	stmtMarketSnapshot   *sql.Stmt
	stmtRiskDecision     *sql.Stmt
	stmtAccountSnapshot  *sql.Stmt
	stmtPositionSnapshot *sql.Stmt
}

var _ Ledger = (*SQLiteLedger)(nil)

// NewSQLiteLedger opens (creating if absent) a WAL-mode SQLite database at
// dbPath and prepares every insert statement, mirroring
// database.NewMarketDataDb's construction sequence.
func NewSQLiteLedger(dbPath string) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=1000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite ledger: %w", err)
	}

	l := &SQLiteLedger{db: db}
	if err := l.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init sqlite ledger schema: %w", err)
	}
	if err := l.prepareStatements(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return l, nil
}

func (l *SQLiteLedger) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS order_events (
			idempotency_key   TEXT PRIMARY KEY,
			account_id        TEXT NOT NULL,
			client_order_id   TEXT NOT NULL,
			exchange_order_id TEXT,
			order_ref         TEXT,
			instrument_id     TEXT,
			status            TEXT NOT NULL,
			total_volume      INTEGER,
			filled_volume     INTEGER,
			avg_fill_price    REAL,
			reason            TEXT,
			source            TEXT,
			ts_ns             INTEGER NOT NULL,
			exchange_ts_ns    INTEGER,
			recv_ts_ns        INTEGER,
			trace_id          TEXT,
			trade_id          TEXT,
			recorded_at       TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS trade_events (
			idempotency_key   TEXT PRIMARY KEY,
			account_id        TEXT NOT NULL,
			client_order_id   TEXT NOT NULL,
			exchange_order_id TEXT,
			order_ref         TEXT,
			instrument_id     TEXT,
			status            TEXT NOT NULL,
			total_volume      INTEGER,
			filled_volume     INTEGER,
			avg_fill_price    REAL,
			source            TEXT,
			ts_ns             INTEGER NOT NULL,
			exchange_ts_ns    INTEGER,
			recv_ts_ns        INTEGER,
			trace_id          TEXT,
			trade_id          TEXT,
			recorded_at       TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS market_snapshots (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			instrument_id  TEXT NOT NULL,
			exchange_id    TEXT,
			last_price     REAL,
			bid_price_1    REAL,
			ask_price_1    REAL,
			volume         INTEGER,
			exchange_ts_ns INTEGER,
			recv_ts_ns     INTEGER,
			recorded_at    TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS risk_decisions (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			account_id      TEXT,
			strategy_id     TEXT,
			client_order_id TEXT,
			instrument_id   TEXT,
			allowed         INTEGER NOT NULL,
			reason          TEXT,
			recorded_at     TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS account_snapshots (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			account_id  TEXT NOT NULL,
			balance     REAL,
			available   REAL,
			curr_margin REAL,
			ts_ns       INTEGER,
			recorded_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS position_snapshots (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			account_id    TEXT NOT NULL,
			instrument_id TEXT NOT NULL,
			long_volume   INTEGER,
			short_volume  INTEGER,
			long_today    INTEGER,
			short_today   INTEGER,
			long_yd       INTEGER,
			short_yd      INTEGER,
			ts_ns         INTEGER,
			recorded_at   TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS replay_offsets (
			stream       TEXT PRIMARY KEY,
			offset_value INTEGER NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := l.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (l *SQLiteLedger) prepareStatements() error {
	var err error
	if l.stmtOrderEvent, err = l.db.Prepare(`INSERT INTO order_events (
		idempotency_key, account_id, client_order_id, exchange_order_id, order_ref, instrument_id,
		status, total_volume, filled_volume, avg_fill_price, reason, source, ts_ns, exchange_ts_ns,
		recv_ts_ns, trace_id, trade_id, recorded_at
	) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`); err != nil {
		return fmt.Errorf("prepare order_events insert: %w", err)
	}
	if l.stmtTradeEvent, err = l.db.Prepare(`INSERT INTO trade_events (
		idempotency_key, account_id, client_order_id, exchange_order_id, order_ref, instrument_id,
		status, total_volume, filled_volume, avg_fill_price, source, ts_ns, exchange_ts_ns,
		recv_ts_ns, trace_id, trade_id, recorded_at
	) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`); err != nil {
		return fmt.Errorf("prepare trade_events insert: %w", err)
	}
	if l.stmtMarketSnapshot, err = l.db.Prepare(`INSERT INTO market_snapshots (
		instrument_id, exchange_id, last_price, bid_price_1, ask_price_1, volume, exchange_ts_ns, recv_ts_ns, recorded_at
	) VALUES (?,?,?,?,?,?,?,?,?)`); err != nil {
		return fmt.Errorf("prepare market_snapshots insert: %w", err)
	}
	if l.stmtRiskDecision, err = l.db.Prepare(`INSERT INTO risk_decisions (
		account_id, strategy_id, client_order_id, instrument_id, allowed, reason, recorded_at
	) VALUES (?,?,?,?,?,?,?)`); err != nil {
		return fmt.Errorf("prepare risk_decisions insert: %w", err)
	}
	if l.stmtAccountSnapshot, err = l.db.Prepare(`INSERT INTO account_snapshots (
		account_id, balance, available, curr_margin, ts_ns, recorded_at
	) VALUES (?,?,?,?,?,?)`); err != nil {
		return fmt.Errorf("prepare account_snapshots insert: %w", err)
	}
	if l.stmtPositionSnapshot, err = l.db.Prepare(`INSERT INTO position_snapshots (
		account_id, instrument_id, long_volume, short_volume, long_today, short_today, long_yd, short_yd, ts_ns, recorded_at
	) VALUES (?,?,?,?,?,?,?,?,?,?)`); err != nil {
		return fmt.Errorf("prepare position_snapshots insert: %w", err)
	}
	return nil
}

func (l *SQLiteLedger) AppendOrderEvent(evt contracts.OrderEvent) error {
	_, err := l.stmtOrderEvent.Exec(
		OrderEventIdempotencyKey(evt), evt.AccountID, evt.ClientOrderID, evt.ExchangeOrderID, evt.OrderRef,
		evt.InstrumentID, orderStatusToString(evt.Status), evt.TotalVolume, evt.FilledVolume, evt.AvgFillPrice,
		evt.Reason, evt.Source.String(), evt.TsNs, evt.ExchangeTsNs, evt.RecvTsNs, evt.TraceID, evt.TradeID,
		rfc3339Micro(evt.TsNs),
	)
	return ignoreDuplicateKey(err)
}

func (l *SQLiteLedger) AppendTradeEvent(evt contracts.OrderEvent) error {
	_, err := l.stmtTradeEvent.Exec(
		OrderEventIdempotencyKey(evt), evt.AccountID, evt.ClientOrderID, evt.ExchangeOrderID, evt.OrderRef,
		evt.InstrumentID, orderStatusToString(evt.Status), evt.TotalVolume, evt.FilledVolume, evt.AvgFillPrice,
		evt.Source.String(), evt.TsNs, evt.ExchangeTsNs, evt.RecvTsNs, evt.TraceID, evt.TradeID,
		rfc3339Micro(evt.TsNs),
	)
	return ignoreDuplicateKey(err)
}

func (l *SQLiteLedger) AppendMarketSnapshot(snap contracts.MarketSnapshot) error {
	_, err := l.stmtMarketSnapshot.Exec(
		snap.InstrumentID, snap.ExchangeID, snap.LastPrice, snap.BidPrice1, snap.AskPrice1,
		snap.Volume, snap.ExchangeTsNs, snap.RecvTsNs, rfc3339Micro(snap.ExchangeTsNs),
	)
	return ignoreDuplicateKey(err)
}

func (l *SQLiteLedger) AppendRiskDecision(intent contracts.OrderIntent, decision contracts.RiskDecision) error {
	_, err := l.stmtRiskDecision.Exec(
		intent.AccountID, intent.StrategyID, intent.ClientOrderID, intent.InstrumentID,
		decision.Allowed, decision.Reason, rfc3339Micro(intent.TimestampNs),
	)
	return ignoreDuplicateKey(err)
}

func (l *SQLiteLedger) AppendAccountSnapshot(snap contracts.AccountSnapshot) error {
	_, err := l.stmtAccountSnapshot.Exec(
		snap.AccountID, snap.Balance, snap.Available, snap.CurrMargin, snap.TsNs, rfc3339Micro(snap.TsNs),
	)
	return ignoreDuplicateKey(err)
}

func (l *SQLiteLedger) AppendPositionSnapshot(pos contracts.PositionSnapshot) error {
	_, err := l.stmtPositionSnapshot.Exec(
		pos.AccountID, pos.InstrumentID, pos.LongVolume, pos.ShortVolume, pos.LongToday,
		pos.ShortToday, pos.LongYesterday, pos.ShortYesterday, pos.TsNs, rfc3339Micro(pos.TsNs),
	)
	return ignoreDuplicateKey(err)
}

func (l *SQLiteLedger) ReplayOffset(stream string) (int64, bool, error) {
	var offset int64
	err := l.db.QueryRow(`SELECT offset_value FROM replay_offsets WHERE stream = ?`, stream).Scan(&offset)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return offset, true, nil
}

func (l *SQLiteLedger) SetReplayOffset(stream string, offset int64) error {
	_, err := l.db.Exec(`INSERT INTO replay_offsets (stream, offset_value) VALUES (?, ?)
		ON CONFLICT(stream) DO UPDATE SET offset_value = excluded.offset_value`, stream, offset)
	return err
}

func (l *SQLiteLedger) Ping() error { return l.db.Ping() }

func (l *SQLiteLedger) Close() error {
	for _, stmt := range []*sql.Stmt{l.stmtOrderEvent, l.stmtTradeEvent, l.stmtMarketSnapshot, l.stmtRiskDecision, l.stmtAccountSnapshot, l.stmtPositionSnapshot} {
		if stmt != nil {
			_ = stmt.Close()
		}
	}
	return l.db.Close()
}

// ignoreDuplicateKey implements §7's idempotency-errors policy: a
// duplicate-key error on insert is treated as success.
func ignoreDuplicateKey(err error) error {
	if err == nil {
		return nil
	}
	if sqliteErr, ok := err.(sqlite3.Error); ok && sqliteErr.Code == sqlite3.ErrConstraint {
		return nil
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return nil
	}
	return err
}
