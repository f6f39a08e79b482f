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

package session

import "testing"

func TestOrderIndexPutAndGet(t *testing.T) {
	idx := NewOrderIndex()
	idx.Put(OrderMeta{OrderRef: "ref1", InstrumentID: "rb2410"})

	meta, ok := idx.Get("ref1")
	if !ok {
		t.Fatal("expected ref1 to be found")
	}
	if meta.InstrumentID != "rb2410" {
		t.Fatalf("InstrumentID = %q, want rb2410", meta.InstrumentID)
	}
}

func TestOrderIndexGetReturnsDefensiveCopy(t *testing.T) {
	idx := NewOrderIndex()
	idx.Put(OrderMeta{OrderRef: "ref1", InstrumentID: "rb2410"})

	meta, _ := idx.Get("ref1")
	meta.InstrumentID = "mutated"

	again, _ := idx.Get("ref1")
	if again.InstrumentID != "rb2410" {
		t.Fatal("mutating the returned copy should not affect the stored meta")
	}
}

func TestOrderIndexSetExchangeIDEnablesReverseLookup(t *testing.T) {
	idx := NewOrderIndex()
	idx.Put(OrderMeta{OrderRef: "ref1", InstrumentID: "rb2410"})
	idx.SetExchangeID("ref1", "exch-9")

	meta, ok := idx.GetByExchangeID("exch-9")
	if !ok || meta.OrderRef != "ref1" {
		t.Fatalf("GetByExchangeID() = %+v, ok=%v, want ref1", meta, ok)
	}
}

func TestOrderIndexRemoveClearsBothMaps(t *testing.T) {
	idx := NewOrderIndex()
	idx.Put(OrderMeta{OrderRef: "ref1", ExchangeOrderID: "exch-9"})
	idx.Remove("ref1")

	if _, ok := idx.Get("ref1"); ok {
		t.Fatal("expected ref1 to be removed")
	}
	if _, ok := idx.GetByExchangeID("exch-9"); ok {
		t.Fatal("expected reverse exchange-id mapping to be removed too")
	}
}

func TestOrderIndexResetClearsAll(t *testing.T) {
	idx := NewOrderIndex()
	idx.Put(OrderMeta{OrderRef: "ref1"})
	idx.Put(OrderMeta{OrderRef: "ref2"})
	idx.Reset()
	if idx.Len() != 0 {
		t.Fatalf("Len() = %d after Reset, want 0", idx.Len())
	}
}
