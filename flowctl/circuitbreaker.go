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

	"quant-hft-core/contracts"
)

// BreakerState is one of the three states of §4.4.
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerOpen:
		return "Open"
	case BreakerHalfOpen:
		return "HalfOpen"
	default:
		return "Closed"
	}
}

// BreakerConfig tunes a single breaker instance.
type BreakerConfig struct {
	FailureThreshold int
	Timeout          time.Duration
	HalfOpenTimeout  time.Duration
}

// DefaultBreakerConfig matches the source's CircuitBreakerConfig defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		Timeout:          time.Second,
		HalfOpenTimeout:  5 * time.Second,
	}
}

func (c BreakerConfig) normalized() BreakerConfig {
	if c.FailureThreshold < 1 {
		c.FailureThreshold = 1
	}
	if c.Timeout <= 0 {
		c.Timeout = time.Millisecond
	}
	if c.HalfOpenTimeout <= 0 {
		c.HalfOpenTimeout = time.Millisecond
	}
	return c
}

// CircuitBreaker is a single Closed/Open/HalfOpen state machine gating
// requests for one (scope, key) pair.
type CircuitBreaker struct {
	mu              sync.Mutex
	config          BreakerConfig
	state           BreakerState
	failureCount    int
	lastFailureTime time.Time
}

// NewCircuitBreaker constructs a breaker starting Closed.
func NewCircuitBreaker(config BreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{
		config:          config.normalized(),
		lastFailureTime: time.Now(),
	}
}

// AllowRequest reports whether a new request may proceed, transitioning
// Open -> HalfOpen once HalfOpenTimeout has elapsed since the last failure.
func (b *CircuitBreaker) AllowRequest() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == BreakerClosed {
		return true
	}
	elapsed := time.Since(b.lastFailureTime)
	if b.state == BreakerOpen && elapsed >= b.config.HalfOpenTimeout {
		b.state = BreakerHalfOpen
		return true
	}
	return b.state == BreakerHalfOpen
}

// RecordSuccess resets the breaker to Closed with a zeroed failure count.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failureCount = 0
	b.state = BreakerClosed
}

// RecordFailure increments the failure count (or, from HalfOpen, reopens
// immediately) and trips the breaker open once the threshold is reached.
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == BreakerHalfOpen {
		b.state = BreakerOpen
		b.failureCount = b.config.FailureThreshold
		b.lastFailureTime = time.Now()
		return
	}
	b.failureCount++
	if b.failureCount >= b.config.FailureThreshold {
		b.state = BreakerOpen
		b.lastFailureTime = time.Now()
	}
}

// Reset forces the breaker back to Closed.
func (b *CircuitBreaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = BreakerClosed
	b.failureCount = 0
	b.lastFailureTime = time.Now()
}

// CurrentState returns the breaker's current state.
func (b *CircuitBreaker) CurrentState() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

type scopeConfig struct {
	enabled bool
	config  BreakerConfig
}

type breakerKey struct {
	scope contracts.BreakerScope
	id    string
}

// CircuitBreakerManager owns one breaker per (scope, key), independently
// configurable per scope, as required by the composite Allow in execution's
// PlaceOrder (strategy, account, and system scopes all must allow).
type CircuitBreakerManager struct {
	mu       sync.Mutex
	scopes   [3]scopeConfig
	breakers map[breakerKey]*CircuitBreaker
}

// NewCircuitBreakerManager builds a manager with all three scopes enabled
// using DefaultBreakerConfig.
func NewCircuitBreakerManager() *CircuitBreakerManager {
	m := &CircuitBreakerManager{breakers: make(map[breakerKey]*CircuitBreaker)}
	for i := range m.scopes {
		m.scopes[i] = scopeConfig{enabled: true, config: DefaultBreakerConfig()}
	}
	return m
}

// Configure sets the config and enabled flag for scope.
func (m *CircuitBreakerManager) Configure(scope contracts.BreakerScope, config BreakerConfig, enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scopes[scope] = scopeConfig{enabled: enabled, config: config.normalized()}
}

func (m *CircuitBreakerManager) normalizeID(scope contracts.BreakerScope, key string) string {
	if scope == contracts.ScopeSystem {
		return "__system__"
	}
	return key
}

// Allow reports whether a request under (scope, key) may proceed. A
// disabled scope always allows.
func (m *CircuitBreakerManager) Allow(scope contracts.BreakerScope, key string) bool {
	cfg := m.scopeConfigFor(scope)
	if !cfg.enabled {
		return true
	}
	return m.getOrCreate(scope, key).AllowRequest()
}

// RecordSuccess records a success for (scope, key); no-op if the scope is
// disabled.
func (m *CircuitBreakerManager) RecordSuccess(scope contracts.BreakerScope, key string) {
	cfg := m.scopeConfigFor(scope)
	if !cfg.enabled {
		return
	}
	m.getOrCreate(scope, key).RecordSuccess()
}

// RecordFailure records a failure for (scope, key); no-op if the scope is
// disabled.
func (m *CircuitBreakerManager) RecordFailure(scope contracts.BreakerScope, key string) {
	cfg := m.scopeConfigFor(scope)
	if !cfg.enabled {
		return
	}
	m.getOrCreate(scope, key).RecordFailure()
}

// CurrentState reports the state of (scope, key), or Closed if the scope is
// disabled or the breaker has never been touched.
func (m *CircuitBreakerManager) CurrentState(scope contracts.BreakerScope, key string) BreakerState {
	cfg := m.scopeConfigFor(scope)
	if !cfg.enabled {
		return BreakerClosed
	}
	m.mu.Lock()
	breaker, ok := m.breakers[breakerKey{scope, m.normalizeID(scope, key)}]
	m.mu.Unlock()
	if !ok {
		return BreakerClosed
	}
	return breaker.CurrentState()
}

func (m *CircuitBreakerManager) scopeConfigFor(scope contracts.BreakerScope) scopeConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scopes[scope]
}

func (m *CircuitBreakerManager) getOrCreate(scope contracts.BreakerScope, key string) *CircuitBreaker {
	normalized := m.normalizeID(scope, key)
	m.mu.Lock()
	defer m.mu.Unlock()
	mk := breakerKey{scope, normalized}
	if breaker, ok := m.breakers[mk]; ok {
		return breaker
	}
	breaker := NewCircuitBreaker(m.scopes[scope].config)
	m.breakers[mk] = breaker
	return breaker
}
