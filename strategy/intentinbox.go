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

package strategy

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"quant-hft-core/constants"
	"quant-hft-core/contracts"
)

// HashClient is the subset of a realtime hash-store client the inbox needs,
// grounded on core/strategy_intent_inbox.h's IRedisHashClient dependency
// (§6 realtime cache contract: HGETALL).
type HashClient interface {
	HGetAll(key string) (map[string]string, error)
}

// IntentInbox reads the latest published SignalIntent batch for a strategy
// out of a hash keyed by strategy:intent:<strategyId>:latest, grounded on
// core/strategy_intent_inbox.cpp. It gates on a monotonically non-decreasing
// seq per strategy: a re-read at the same seq returns an empty batch
// instead of an error.
type IntentInbox struct {
	client HashClient

	mu                sync.Mutex
	lastSeqByStrategy map[string]int64
}

// NewIntentInbox builds an IntentInbox backed by client.
func NewIntentInbox(client HashClient) *IntentInbox {
	return &IntentInbox{client: client, lastSeqByStrategy: make(map[string]int64)}
}

// ReadLatest fetches and decodes the current batch for strategyID. If the
// fetched seq is <= the last seq observed for this strategy, it returns a
// batch with an empty Intents slice (the monotonic gate), not an error.
func (b *IntentInbox) ReadLatest(strategyID string) (contracts.StrategyIntentBatch, error) {
	var batch contracts.StrategyIntentBatch
	if strategyID == "" || b.client == nil {
		return batch, fmt.Errorf("strategy id or client is invalid")
	}

	hash, err := b.client.HGetAll(buildIntentKey(strategyID))
	if err != nil {
		return batch, err
	}

	seq, ok := parseHashInt64(hash, "seq")
	if !ok {
		return batch, fmt.Errorf("missing or invalid seq")
	}
	count, ok := parseHashInt64(hash, "count")
	if !ok || count < 0 {
		return batch, fmt.Errorf("missing or invalid count")
	}

	batch.StrategyID = strategyID
	batch.Seq = seq

	b.mu.Lock()
	last, seen := b.lastSeqByStrategy[strategyID]
	if seen && seq <= last {
		b.mu.Unlock()
		return batch, nil
	}
	b.mu.Unlock()

	intents := make([]contracts.SignalIntent, 0, count)
	for i := int64(0); i < count; i++ {
		field := fmt.Sprintf("intent_%d", i)
		encoded, ok := hash[field]
		if !ok || encoded == "" {
			return contracts.StrategyIntentBatch{}, fmt.Errorf("missing field: %s", field)
		}
		intent, err := decodeSignalIntent(strategyID, encoded)
		if err != nil {
			return contracts.StrategyIntentBatch{}, fmt.Errorf("decode %s failed: %w", field, err)
		}
		intents = append(intents, intent)
	}

	if tsNs, ok := parseHashInt64(hash, "ts_ns"); ok {
		batch.TsNs = tsNs
	}
	batch.Intents = intents

	b.mu.Lock()
	b.lastSeqByStrategy[strategyID] = seq
	b.mu.Unlock()

	return batch, nil
}

func buildIntentKey(strategyID string) string {
	return fmt.Sprintf(constants.KeyStrategyIntentFmt, strategyID)
}

func parseHashInt64(hash map[string]string, key string) (int64, bool) {
	raw, ok := hash[key]
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// decodeSignalIntent parses the pipe-delimited wire format from §6:
// instrument|side|offset|volume|price|tsNs|traceId.
func decodeSignalIntent(strategyID, encoded string) (contracts.SignalIntent, error) {
	fields := strings.Split(encoded, "|")
	if len(fields) != 7 {
		return contracts.SignalIntent{}, fmt.Errorf("expected 7 fields, got %d", len(fields))
	}

	instrument, sideRaw, offsetRaw, volumeRaw, priceRaw, tsRaw, traceID := fields[0], fields[1], fields[2], fields[3], fields[4], fields[5], fields[6]
	if instrument == "" {
		return contracts.SignalIntent{}, fmt.Errorf("instrument must not be empty")
	}

	side, err := parseSide(sideRaw)
	if err != nil {
		return contracts.SignalIntent{}, err
	}
	offset, err := parseOffset(offsetRaw)
	if err != nil {
		return contracts.SignalIntent{}, err
	}

	volume, err := strconv.ParseInt(volumeRaw, 10, 64)
	if err != nil || volume < 0 {
		return contracts.SignalIntent{}, fmt.Errorf("invalid volume %q", volumeRaw)
	}
	price, err := strconv.ParseFloat(priceRaw, 64)
	if err != nil {
		return contracts.SignalIntent{}, fmt.Errorf("invalid price %q", priceRaw)
	}
	tsNs, err := strconv.ParseInt(tsRaw, 10, 64)
	if err != nil || tsNs < 0 {
		return contracts.SignalIntent{}, fmt.Errorf("invalid ts_ns %q", tsRaw)
	}
	if traceID == "" {
		return contracts.SignalIntent{}, fmt.Errorf("trace id must not be empty")
	}

	return contracts.SignalIntent{
		StrategyID:   strategyID,
		InstrumentID: instrument,
		Side:         side,
		Offset:       offset,
		Volume:       int(volume),
		LimitPrice:   price,
		TsNs:         tsNs,
		TraceID:      traceID,
	}, nil
}

func parseSide(raw string) (contracts.Side, error) {
	switch strings.ToUpper(raw) {
	case "BUY":
		return contracts.SideBuy, nil
	case "SELL":
		return contracts.SideSell, nil
	default:
		return 0, fmt.Errorf("unknown side %q", raw)
	}
}

func parseOffset(raw string) (contracts.Offset, error) {
	switch strings.ToUpper(raw) {
	case "OPEN":
		return contracts.OffsetOpen, nil
	case "CLOSE":
		return contracts.OffsetClose, nil
	case "CLOSETODAY":
		return contracts.OffsetCloseToday, nil
	case "CLOSEYESTERDAY":
		return contracts.OffsetCloseYesterday, nil
	default:
		return 0, fmt.Errorf("unknown offset %q", raw)
	}
}

// EncodeSignalIntent renders a SignalIntent back into the pipe-delimited
// wire format, the inverse of decodeSignalIntent, for producers publishing
// into the hash the inbox reads from.
func EncodeSignalIntent(intent contracts.SignalIntent) string {
	sideStr := "BUY"
	if intent.Side == contracts.SideSell {
		sideStr = "SELL"
	}
	offsetStr := strings.ToUpper(intent.Offset.String())
	return fmt.Sprintf("%s|%s|%s|%d|%v|%d|%s",
		intent.InstrumentID, sideStr, offsetStr, intent.Volume, intent.LimitPrice, intent.TsNs, intent.TraceID)
}
