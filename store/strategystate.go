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
	"context"
	"fmt"

	"quant-hft-core/constants"
	"quant-hft-core/strategy"
)

// StrategyStateStore persists an opaque strategy.State under
// strategy_state:<accountId>:<strategyId>, satisfying strategy.StateStore
// (§6: "opaque map; TTL enforced").
type StrategyStateStore struct {
	cache     *RedisRealtimeCache
	accountID string
}

var _ strategy.StateStore = (*StrategyStateStore)(nil)

// NewStrategyStateStore scopes state persistence to a single account id,
// matching the key template's two-part shape.
func NewStrategyStateStore(cache *RedisRealtimeCache, accountID string) *StrategyStateStore {
	return &StrategyStateStore{cache: cache, accountID: accountID}
}

func (s *StrategyStateStore) SaveState(strategyID string, state strategy.State) error {
	if strategyID == "" || len(state) == 0 {
		return nil
	}
	fields := make(map[string]interface{}, len(state))
	for k, v := range state {
		fields[k] = v
	}
	key := fmt.Sprintf(constants.KeyStrategyStateFmt, s.accountID, strategyID)
	return s.cache.writeWithRetry(context.Background(), key, fields)
}

func (s *StrategyStateStore) LoadState(strategyID string) (strategy.State, error) {
	if strategyID == "" {
		return nil, nil
	}
	key := fmt.Sprintf(constants.KeyStrategyStateFmt, s.accountID, strategyID)
	row, err := s.cache.readHash(context.Background(), key)
	if err != nil || row == nil {
		return nil, err
	}
	return strategy.State(row), nil
}
