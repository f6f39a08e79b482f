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

// Package store holds the realtime-cache and ledger adapters behind §6's
// external-interfaces contract: a hash-store client for last-known state
// and an append-only time-series ledger for forensic history.
package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"quant-hft-core/constants"
	"quant-hft-core/contracts"
)

// RetryPolicy tunes the write-retry loop in RedisRealtimeCache, grounded on
// core/storage_retry_policy.h's StorageRetryPolicy.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryPolicy mirrors the source's struct defaults.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, InitialBackoff: 50 * time.Millisecond, MaxBackoff: 500 * time.Millisecond}
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.InitialBackoff < 0 {
		p.InitialBackoff = 0
	}
	if p.MaxBackoff < p.InitialBackoff {
		p.MaxBackoff = p.InitialBackoff
	}
	return p
}

// RedisRealtimeCache is the hash-store client adapter of §6, grounded on
// core/redis_realtime_store_client_adapter.cpp: every Upsert* writes a flat
// string-keyed hash with a bounded retry/backoff loop, every Get* reads the
// hash back and parses it into the contracts type.
type RedisRealtimeCache struct {
	client *redis.Client
	retry  RetryPolicy
	ttl    time.Duration
}

// NewRedisRealtimeCache builds a cache adapter over an existing go-redis
// client. ttl, if positive, is applied to every written key via EXPIRE.
func NewRedisRealtimeCache(client *redis.Client, retry RetryPolicy, ttl time.Duration) *RedisRealtimeCache {
	return &RedisRealtimeCache{client: client, retry: retry.normalized(), ttl: ttl}
}

// UpsertMarketSnapshot writes the market:tick:<instrument>:latest hash.
func (c *RedisRealtimeCache) UpsertMarketSnapshot(ctx context.Context, snap contracts.MarketSnapshot) error {
	if snap.InstrumentID == "" {
		return nil
	}
	fields := map[string]interface{}{
		"instrument_id":  snap.InstrumentID,
		"last_price":     snap.LastPrice,
		"bid_price_1":    snap.BidPrice1,
		"ask_price_1":    snap.AskPrice1,
		"bid_volume_1":   snap.BidVolume1,
		"ask_volume_1":   snap.AskVolume1,
		"volume":         snap.Volume,
		"exchange_ts_ns": snap.ExchangeTsNs,
		"recv_ts_ns":     snap.RecvTsNs,
	}
	return c.writeWithRetry(ctx, fmt.Sprintf(constants.KeyMarketTickFmt, snap.InstrumentID), fields)
}

// GetMarketSnapshot reads back the market:tick:<instrument>:latest hash.
func (c *RedisRealtimeCache) GetMarketSnapshot(ctx context.Context, instrumentID string) (contracts.MarketSnapshot, bool, error) {
	var snap contracts.MarketSnapshot
	if instrumentID == "" {
		return snap, false, nil
	}
	row, err := c.readHash(ctx, fmt.Sprintf(constants.KeyMarketTickFmt, instrumentID))
	if err != nil || row == nil {
		return snap, false, err
	}
	snap.InstrumentID = row["instrument_id"]
	var ok bool
	if snap.LastPrice, ok = parseFloat(row, "last_price"); !ok {
		return contracts.MarketSnapshot{}, false, nil
	}
	snap.BidPrice1, _ = parseFloat(row, "bid_price_1")
	snap.AskPrice1, _ = parseFloat(row, "ask_price_1")
	bv, _ := parseInt64(row, "bid_volume_1")
	snap.BidVolume1 = int(bv)
	av, _ := parseInt64(row, "ask_volume_1")
	snap.AskVolume1 = int(av)
	snap.Volume, _ = parseInt64(row, "volume")
	snap.ExchangeTsNs, _ = parseInt64(row, "exchange_ts_ns")
	snap.RecvTsNs, _ = parseInt64(row, "recv_ts_ns")
	return snap, true, nil
}

// UpsertOrderEvent writes the quant:rt:order:<clientOrderId> hash.
func (c *RedisRealtimeCache) UpsertOrderEvent(ctx context.Context, evt contracts.OrderEvent) error {
	if evt.ClientOrderID == "" {
		return nil
	}
	fields := map[string]interface{}{
		"account_id":        evt.AccountID,
		"client_order_id":   evt.ClientOrderID,
		"exchange_order_id": evt.ExchangeOrderID,
		"instrument_id":     evt.InstrumentID,
		"status":            orderStatusToString(evt.Status),
		"total_volume":      evt.TotalVolume,
		"filled_volume":     evt.FilledVolume,
		"avg_fill_price":    evt.AvgFillPrice,
		"reason":            evt.Reason,
		"ts_ns":             evt.TsNs,
		"trace_id":          evt.TraceID,
	}
	return c.writeWithRetry(ctx, fmt.Sprintf(constants.KeyRtOrderFmt, evt.ClientOrderID), fields)
}

// GetOrderEvent reads back the quant:rt:order:<clientOrderId> hash.
func (c *RedisRealtimeCache) GetOrderEvent(ctx context.Context, clientOrderID string) (contracts.OrderEvent, bool, error) {
	var evt contracts.OrderEvent
	if clientOrderID == "" {
		return evt, false, nil
	}
	row, err := c.readHash(ctx, fmt.Sprintf(constants.KeyRtOrderFmt, clientOrderID))
	if err != nil || row == nil {
		return evt, false, err
	}
	status, ok := parseOrderStatus(row["status"])
	if !ok {
		return contracts.OrderEvent{}, false, nil
	}
	evt.AccountID = row["account_id"]
	evt.ClientOrderID = row["client_order_id"]
	evt.ExchangeOrderID = row["exchange_order_id"]
	evt.InstrumentID = row["instrument_id"]
	evt.Status = status
	tv, _ := parseInt64(row, "total_volume")
	evt.TotalVolume = int(tv)
	fv, _ := parseInt64(row, "filled_volume")
	evt.FilledVolume = int(fv)
	evt.AvgFillPrice, _ = parseFloat(row, "avg_fill_price")
	evt.Reason = row["reason"]
	evt.TsNs, _ = parseInt64(row, "ts_ns")
	evt.TraceID = row["trace_id"]
	return evt, true, nil
}

// UpsertPositionSnapshot writes the position:<accountId>:<instrumentId> hash.
func (c *RedisRealtimeCache) UpsertPositionSnapshot(ctx context.Context, pos contracts.PositionSnapshot) error {
	if pos.AccountID == "" || pos.InstrumentID == "" {
		return nil
	}
	fields := map[string]interface{}{
		"long_volume":  pos.LongVolume,
		"short_volume": pos.ShortVolume,
		"long_today":   pos.LongToday,
		"short_today":  pos.ShortToday,
		"long_yd":      pos.LongYesterday,
		"short_yd":     pos.ShortYesterday,
		"ts_ns":        pos.TsNs,
	}
	return c.writeWithRetry(ctx, fmt.Sprintf(constants.KeyPositionFmt, pos.AccountID, pos.InstrumentID), fields)
}

// GetPositionSnapshot reads back the position:<accountId>:<instrumentId> hash.
func (c *RedisRealtimeCache) GetPositionSnapshot(ctx context.Context, accountID, instrumentID string) (contracts.PositionSnapshot, bool, error) {
	var pos contracts.PositionSnapshot
	if accountID == "" || instrumentID == "" {
		return pos, false, nil
	}
	row, err := c.readHash(ctx, fmt.Sprintf(constants.KeyPositionFmt, accountID, instrumentID))
	if err != nil || row == nil {
		return pos, false, err
	}
	pos.AccountID = accountID
	pos.InstrumentID = instrumentID
	lv, _ := parseInt64(row, "long_volume")
	pos.LongVolume = int(lv)
	sv, _ := parseInt64(row, "short_volume")
	pos.ShortVolume = int(sv)
	lt, _ := parseInt64(row, "long_today")
	pos.LongToday = int(lt)
	st, _ := parseInt64(row, "short_today")
	pos.ShortToday = int(st)
	ly, _ := parseInt64(row, "long_yd")
	pos.LongYesterday = int(ly)
	sy, _ := parseInt64(row, "short_yd")
	pos.ShortYesterday = int(sy)
	pos.TsNs, _ = parseInt64(row, "ts_ns")
	return pos, true, nil
}

// Ping verifies realtime-cache reachability, used by the cache-health exit
// code of §6.
func (c *RedisRealtimeCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisRealtimeCache) writeWithRetry(ctx context.Context, key string, fields map[string]interface{}) error {
	backoff := c.retry.InitialBackoff
	var lastErr error
	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		if err := c.client.HSet(ctx, key, fields).Err(); err != nil {
			lastErr = err
		} else {
			if c.ttl > 0 {
				c.client.Expire(ctx, key, c.ttl)
			}
			return nil
		}
		if attempt < c.retry.MaxAttempts && backoff > 0 {
			time.Sleep(backoff)
			if backoff*2 < c.retry.MaxBackoff {
				backoff *= 2
			} else {
				backoff = c.retry.MaxBackoff
			}
		}
	}
	return lastErr
}

func (c *RedisRealtimeCache) readHash(ctx context.Context, key string) (map[string]string, error) {
	row, err := c.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	if len(row) == 0 {
		return nil, nil
	}
	return row, nil
}

func parseFloat(row map[string]string, key string) (float64, bool) {
	raw, ok := row[key]
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	return v, err == nil
}

func parseInt64(row map[string]string, key string) (int64, bool) {
	raw, ok := row[key]
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	return v, err == nil
}

func orderStatusToString(s contracts.OrderStatus) string {
	switch s {
	case contracts.OrderStatusNew:
		return "NEW"
	case contracts.OrderStatusAccepted:
		return "ACCEPTED"
	case contracts.OrderStatusPartiallyFilled:
		return "PARTIALLY_FILLED"
	case contracts.OrderStatusFilled:
		return "FILLED"
	case contracts.OrderStatusCanceled:
		return "CANCELED"
	default:
		return "REJECTED"
	}
}

func parseOrderStatus(text string) (contracts.OrderStatus, bool) {
	switch text {
	case "NEW":
		return contracts.OrderStatusNew, true
	case "ACCEPTED":
		return contracts.OrderStatusAccepted, true
	case "PARTIALLY_FILLED":
		return contracts.OrderStatusPartiallyFilled, true
	case "FILLED":
		return contracts.OrderStatusFilled, true
	case "CANCELED":
		return contracts.OrderStatusCanceled, true
	case "REJECTED":
		return contracts.OrderStatusRejected, true
	default:
		return 0, false
	}
}
