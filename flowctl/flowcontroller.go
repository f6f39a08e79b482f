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

package flowctl

import (
	"sync"
	"time"

	"quant-hft-core/constants"
	"quant-hft-core/contracts"
)

// Operation describes a single call to be flow-checked.
type Operation struct {
	AccountID    string
	Type         contracts.OpKind
	InstrumentID string
}

// Rule configures a token bucket for a given (account, op kind, instrument)
// scope. InstrumentID == "" scopes the rule to every instrument under that
// account and op kind.
type Rule struct {
	AccountID     string
	Type          contracts.OpKind
	InstrumentID  string
	RatePerSecond float64
	Capacity      int
}

// Result is the outcome of a flow check.
type Result struct {
	Allowed bool
	Reason  string
	WaitMs  int
}

type flowKey struct {
	accountID    string
	opType       contracts.OpKind
	instrumentID string
}

// Controller holds one TokenBucket per configured rule and resolves
// operations to their most specific matching rule.
type Controller struct {
	mu      sync.Mutex
	buckets map[flowKey]*TokenBucket
}

// NewController builds an empty flow controller; operations with no
// matching rule are allowed unconditionally.
func NewController() *Controller {
	return &Controller{buckets: make(map[flowKey]*TokenBucket)}
}

// AddRule installs or replaces the bucket for rule's scope.
func (c *Controller) AddRule(rule Rule) {
	key := flowKey{accountID: rule.AccountID, opType: rule.Type, instrumentID: rule.InstrumentID}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buckets[key] = NewTokenBucket(rule.RatePerSecond, rule.Capacity)
}

// Check performs a non-blocking flow check for op.
func (c *Controller) Check(op Operation) Result {
	bucket := c.findBucket(op)
	if bucket == nil {
		return Result{Allowed: true}
	}
	if bucket.TryAcquire() {
		return Result{Allowed: true}
	}
	return Result{Allowed: false, Reason: constants.ReasonRateLimited}
}

// Acquire performs a blocking-with-timeout flow check for op.
func (c *Controller) Acquire(op Operation, timeout time.Duration) Result {
	bucket := c.findBucket(op)
	if bucket == nil {
		return Result{Allowed: true}
	}
	if timeout < 0 {
		timeout = 0
	}
	if bucket.Acquire(timeout) {
		return Result{Allowed: true}
	}
	return Result{Allowed: false, Reason: constants.ReasonRateLimitedTimeout, WaitMs: int(timeout / time.Millisecond)}
}

func (c *Controller) findBucket(op Operation) *TokenBucket {
	c.mu.Lock()
	defer c.mu.Unlock()
	if bucket, ok := c.buckets[flowKey{op.AccountID, op.Type, op.InstrumentID}]; ok {
		return bucket
	}
	if bucket, ok := c.buckets[flowKey{op.AccountID, op.Type, ""}]; ok {
		return bucket
	}
	return nil
}
