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

package reconcile

import (
	"testing"

	"quant-hft-core/contracts"
)

func TestProcessedEventIndexMarkThenExists(t *testing.T) {
	idx := NewProcessedEventIndex()
	evt := contracts.OrderEvent{ClientOrderID: "cli-1", Source: contracts.EventSourceRtnTrade, TsNs: 1, FilledVolume: 1, TradeID: "trade-1"}

	if idx.Exists(evt) {
		t.Fatalf("expected not yet processed")
	}
	idx.Mark(evt)
	if !idx.Exists(evt) {
		t.Fatalf("expected processed after Mark")
	}
	if idx.Len() != 1 {
		t.Fatalf("expected 1 tracked key, got %d", idx.Len())
	}
}

func TestProcessedEventIndexDistinguishesByFullKey(t *testing.T) {
	idx := NewProcessedEventIndex()
	a := contracts.OrderEvent{ClientOrderID: "cli-1", Source: contracts.EventSourceRtnTrade, TsNs: 1, FilledVolume: 1, TradeID: "trade-1"}
	b := contracts.OrderEvent{ClientOrderID: "cli-1", Source: contracts.EventSourceRtnTrade, TsNs: 1, FilledVolume: 2, TradeID: "trade-1"}

	idx.Mark(a)
	if idx.Exists(b) {
		t.Fatalf("different filled volume should not collide")
	}
}
