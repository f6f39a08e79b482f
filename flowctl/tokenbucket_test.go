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
)

func TestTokenBucketCapacityBound(t *testing.T) {
	b := NewTokenBucket(100, 3)
	for i := 0; i < 3; i++ {
		if !b.TryAcquire() {
			t.Fatalf("expected acquire %d of 3 to succeed", i)
		}
	}
	if b.TryAcquire() {
		t.Fatal("expected 4th acquire to fail, bucket should be empty")
	}
}

func TestTokenBucketRefillsOverTime(t *testing.T) {
	b := NewTokenBucket(1000, 1)
	if !b.TryAcquire() {
		t.Fatal("expected first acquire to succeed")
	}
	if b.TryAcquire() {
		t.Fatal("expected immediate second acquire to fail")
	}
	time.Sleep(5 * time.Millisecond)
	if !b.TryAcquire() {
		t.Fatal("expected acquire to succeed after refill window")
	}
}

func TestTokenBucketAcquireTimesOut(t *testing.T) {
	b := NewTokenBucket(1, 1)
	b.TryAcquire()
	start := time.Now()
	ok := b.Acquire(20 * time.Millisecond)
	elapsed := time.Since(start)
	if ok {
		t.Fatal("expected Acquire to time out with an exhausted, slow-refill bucket")
	}
	if elapsed < 15*time.Millisecond {
		t.Fatalf("Acquire returned too early: %v", elapsed)
	}
}
