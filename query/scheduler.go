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

// Package query implements the token-bucket-gated, three-level priority
// query scheduler of §4.3: OrderInsert/OrderCancel submissions are never
// throttled here (that's flowctl's job), but query-style broker calls
// (qry order, qry trade, settlement qry) share a small per-session QPS
// budget and must be drained explicitly by the caller's timer loop.
package query

import (
	"sync"
	"time"

	"quant-hft-core/contracts"
)

// Task is a scheduled query execution.
type Task func()

type queryTask struct {
	requestID int
	priority  contracts.EventPriority
	execute   Task
	createdAt time.Time
}

// Scheduler is the token-bucket-gated priority FIFO of §4.3.
type Scheduler struct {
	mu         sync.Mutex
	queues     [3][]queryTask
	maxQPS     int
	tokens     float64
	lastRefill time.Time
}

// New constructs a Scheduler with the given max queries-per-second budget
// (defaults to 10 if <= 0, matching the source's default).
func New(maxQPS int) *Scheduler {
	if maxQPS <= 0 {
		maxQPS = 10
	}
	return &Scheduler{
		maxQPS:     maxQPS,
		tokens:     float64(maxQPS),
		lastRefill: time.Now(),
	}
}

// TrySchedule enqueues task under priority with requestID for correlation.
// It returns false only if execute is nil.
func (s *Scheduler) TrySchedule(requestID int, priority contracts.EventPriority, execute Task) bool {
	if execute == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queues[priority] = append(s.queues[priority], queryTask{
		requestID: requestID,
		priority:  priority,
		execute:   execute,
		createdAt: time.Now(),
	})
	return true
}

// DrainOnce refills the token bucket, then pops and runs as many queued
// tasks (High before Normal before Low, FIFO within a level) as there are
// tokens for, returning the count executed.
func (s *Scheduler) DrainOnce() int {
	var planned []Task

	s.mu.Lock()
	s.refillTokensLocked()
	remaining := int(s.tokens)
	if remaining > 0 {
		for p := 0; p < 3 && remaining > 0; p++ {
			for len(s.queues[p]) > 0 && remaining > 0 {
				planned = append(planned, s.queues[p][0].execute)
				s.queues[p] = s.queues[p][1:]
				remaining--
				s.tokens -= 1.0
			}
		}
	}
	s.mu.Unlock()

	for _, task := range planned {
		task()
	}
	return len(planned)
}

// PendingCount returns the total queued task count across all priorities.
func (s *Scheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for p := 0; p < 3; p++ {
		total += len(s.queues[p])
	}
	return total
}

// SetRateLimit updates the max QPS budget, clamping the current token
// balance down if it now exceeds the new ceiling.
func (s *Scheduler) SetRateLimit(maxQPS int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if maxQPS < 1 {
		maxQPS = 1
	}
	s.maxQPS = maxQPS
	if s.tokens > float64(maxQPS) {
		s.tokens = float64(maxQPS)
	}
}

func (s *Scheduler) refillTokensLocked() {
	now := time.Now()
	elapsed := now.Sub(s.lastRefill)
	if elapsed <= 0 {
		return
	}
	refill := elapsed.Seconds() * float64(s.maxQPS)
	s.tokens += refill
	if s.tokens > float64(s.maxQPS) {
		s.tokens = float64(s.maxQPS)
	}
	s.lastRefill = now
}
