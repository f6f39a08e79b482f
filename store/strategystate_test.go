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
	"testing"

	"quant-hft-core/strategy"
)

func TestStrategyStateStoreSaveAndLoadRoundTrips(t *testing.T) {
	cache, _ := newTestCache(t)
	store := NewStrategyStateStore(cache, "acct-1")

	state := strategy.State{"signal_counter": "42", "last_mid": "4501.5"}
	if err := store.SaveState("demo", state); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := store.LoadState("demo")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded["signal_counter"] != "42" || loaded["last_mid"] != "4501.5" {
		t.Fatalf("unexpected loaded state: %+v", loaded)
	}
}

func TestStrategyStateStoreLoadMissingReturnsNil(t *testing.T) {
	cache, _ := newTestCache(t)
	store := NewStrategyStateStore(cache, "acct-1")

	loaded, err := store.LoadState("unknown")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded != nil {
		t.Fatalf("expected nil state, got %+v", loaded)
	}
}

func TestStrategyStateStoreSaveEmptyStateIsNoop(t *testing.T) {
	cache, _ := newTestCache(t)
	store := NewStrategyStateStore(cache, "acct-1")

	if err := store.SaveState("demo", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	loaded, err := store.LoadState("demo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded != nil {
		t.Fatalf("expected nothing saved, got %+v", loaded)
	}
}
