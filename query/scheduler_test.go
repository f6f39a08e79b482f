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

package query

import (
	"testing"

	"quant-hft-core/contracts"
)

func TestSchedulerDrainRespectsPriority(t *testing.T) {
	s := New(10)

	var order []string
	s.TrySchedule(1, contracts.PriorityLow, func() { order = append(order, "low") })
	s.TrySchedule(2, contracts.PriorityHigh, func() { order = append(order, "high") })
	s.TrySchedule(3, contracts.PriorityNormal, func() { order = append(order, "normal") })

	n := s.DrainOnce()
	if n != 3 {
		t.Fatalf("DrainOnce() = %d, want 3", n)
	}
	want := []string{"high", "normal", "low"}
	for i, w := range want {
		if order[i] != w {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestSchedulerDrainLimitedByTokens(t *testing.T) {
	s := New(2)
	ran := 0
	for i := 0; i < 5; i++ {
		s.TrySchedule(i, contracts.PriorityNormal, func() { ran++ })
	}

	n := s.DrainOnce()
	if n != 2 {
		t.Fatalf("DrainOnce() = %d, want 2 (token-limited)", n)
	}
	if s.PendingCount() != 3 {
		t.Fatalf("PendingCount() = %d, want 3 remaining", s.PendingCount())
	}
}

func TestSchedulerTrySchedileRejectsNilTask(t *testing.T) {
	s := New(10)
	if s.TrySchedule(1, contracts.PriorityHigh, nil) {
		t.Fatal("TrySchedule should reject a nil execute func")
	}
}

func TestSchedulerSetRateLimitClampsTokens(t *testing.T) {
	s := New(10)
	s.SetRateLimit(2)
	s.mu.Lock()
	tokens := s.tokens
	s.mu.Unlock()
	if tokens > 2 {
		t.Fatalf("tokens = %v, want <= 2 after SetRateLimit(2)", tokens)
	}
}
