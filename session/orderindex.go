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

import (
	"sync"

	"quant-hft-core/contracts"
)

// OrderMeta is what the session remembers about a submitted order so a
// later cancel (keyed only by clientOrderID) can be correlated with the
// broker's front/session and exchange order id, mirroring the source's
// CtpGatewayAdapter::OrderMeta.
type OrderMeta struct {
	OrderRef        string
	ExchangeOrderID string
	AccountID       string
	StrategyID      string
	InstrumentID    string
	Side            contracts.Side
	Offset          contracts.Offset
	FrontID         int
	SessionID       int
}

// OrderIndex is the thread-safe bidirectional index from client order ref to
// OrderMeta and from exchange order id back to the owning order ref.
type OrderIndex struct {
	mu          sync.RWMutex
	byOrderRef  map[string]*OrderMeta
	byExchangeID map[string]string
}

// NewOrderIndex builds an empty index.
func NewOrderIndex() *OrderIndex {
	return &OrderIndex{
		byOrderRef:   make(map[string]*OrderMeta),
		byExchangeID: make(map[string]string),
	}
}

// Put records or updates meta, keyed by its OrderRef.
func (idx *OrderIndex) Put(meta OrderMeta) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	stored := meta
	idx.byOrderRef[meta.OrderRef] = &stored
	if meta.ExchangeOrderID != "" {
		idx.byExchangeID[meta.ExchangeOrderID] = meta.OrderRef
	}
}

// SetExchangeID binds an exchange-assigned order id to an existing order
// ref, as happens once the first execution report for a new order arrives.
func (idx *OrderIndex) SetExchangeID(orderRef, exchangeID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	meta, ok := idx.byOrderRef[orderRef]
	if !ok {
		return
	}
	meta.ExchangeOrderID = exchangeID
	idx.byExchangeID[exchangeID] = orderRef
}

// Get returns a defensive copy of the meta for orderRef, or (zero, false).
func (idx *OrderIndex) Get(orderRef string) (OrderMeta, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	meta, ok := idx.byOrderRef[orderRef]
	if !ok {
		return OrderMeta{}, false
	}
	return *meta, true
}

// GetByExchangeID resolves an exchange order id back to its meta.
func (idx *OrderIndex) GetByExchangeID(exchangeID string) (OrderMeta, bool) {
	idx.mu.RLock()
	orderRef, ok := idx.byExchangeID[exchangeID]
	idx.mu.RUnlock()
	if !ok {
		return OrderMeta{}, false
	}
	return idx.Get(orderRef)
}

// Remove deletes orderRef and its exchange-id reverse mapping, if any.
func (idx *OrderIndex) Remove(orderRef string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	meta, ok := idx.byOrderRef[orderRef]
	if !ok {
		return
	}
	if meta.ExchangeOrderID != "" {
		delete(idx.byExchangeID, meta.ExchangeOrderID)
	}
	delete(idx.byOrderRef, orderRef)
}

// Reset clears the index; called on connect to discard stale state from a
// prior session.
func (idx *OrderIndex) Reset() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.byOrderRef = make(map[string]*OrderMeta)
	idx.byExchangeID = make(map[string]string)
}

// Len reports the number of tracked orders.
func (idx *OrderIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.byOrderRef)
}
