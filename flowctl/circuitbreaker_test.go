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
	"testing"
	"time"

	"quant-hft-core/contracts"
)

func TestCircuitBreakerTripsAfterThreshold(t *testing.T) {
	b := NewCircuitBreaker(BreakerConfig{FailureThreshold: 3, Timeout: time.Millisecond, HalfOpenTimeout: time.Hour})
	for i := 0; i < 2; i++ {
		b.RecordFailure()
		if b.CurrentState() != BreakerClosed {
			t.Fatalf("breaker should remain Closed before threshold, iteration %d", i)
		}
	}
	b.RecordFailure()
	if b.CurrentState() != BreakerOpen {
		t.Fatal("breaker should be Open once failure threshold is reached")
	}
	if b.AllowRequest() {
		t.Fatal("Open breaker should not allow requests before half-open timeout")
	}
}

func TestCircuitBreakerHalfOpenProbeAndRecovery(t *testing.T) {
	b := NewCircuitBreaker(BreakerConfig{FailureThreshold: 1, Timeout: time.Millisecond, HalfOpenTimeout: 10 * time.Millisecond})
	b.RecordFailure()
	if b.CurrentState() != BreakerOpen {
		t.Fatal("expected Open after single failure with threshold 1")
	}

	time.Sleep(15 * time.Millisecond)
	if !b.AllowRequest() {
		t.Fatal("expected AllowRequest to admit a probe once half-open timeout elapses")
	}
	if b.CurrentState() != BreakerHalfOpen {
		t.Fatal("expected breaker to transition to HalfOpen on the probe admission")
	}

	b.RecordSuccess()
	if b.CurrentState() != BreakerClosed {
		t.Fatal("expected a successful probe to close the breaker")
	}
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	b := NewCircuitBreaker(BreakerConfig{FailureThreshold: 1, Timeout: time.Millisecond, HalfOpenTimeout: 10 * time.Millisecond})
	b.RecordFailure()
	time.Sleep(15 * time.Millisecond)
	b.AllowRequest()
	if b.CurrentState() != BreakerHalfOpen {
		t.Fatal("expected HalfOpen before probing failure")
	}
	b.RecordFailure()
	if b.CurrentState() != BreakerOpen {
		t.Fatal("expected a failed probe to reopen the breaker")
	}
}

func TestCircuitBreakerManagerScopesAreIndependent(t *testing.T) {
	m := NewCircuitBreakerManager()
	m.Configure(contracts.ScopeStrategy, BreakerConfig{FailureThreshold: 1, Timeout: time.Millisecond, HalfOpenTimeout: time.Hour}, true)

	m.RecordFailure(contracts.ScopeStrategy, "strat1")
	if m.Allow(contracts.ScopeStrategy, "strat1") {
		t.Fatal("strategy scope should be open for strat1")
	}
	if !m.Allow(contracts.ScopeAccount, "acct1") {
		t.Fatal("account scope should be untouched and allow")
	}
	if !m.Allow(contracts.ScopeStrategy, "strat2") {
		t.Fatal("strategy scope keys should be independent per-id")
	}
}

func TestCircuitBreakerManagerDisabledScopeAlwaysAllows(t *testing.T) {
	m := NewCircuitBreakerManager()
	m.Configure(contracts.ScopeSystem, BreakerConfig{FailureThreshold: 1, Timeout: time.Millisecond, HalfOpenTimeout: time.Hour}, false)
	m.RecordFailure(contracts.ScopeSystem, "__system__")
	if !m.Allow(contracts.ScopeSystem, "__system__") {
		t.Fatal("disabled scope should always allow regardless of recorded failures")
	}
}
