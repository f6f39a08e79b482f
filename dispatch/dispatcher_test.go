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

package dispatch

import (
	"sync"
	"testing"
	"time"

	"quant-hft-core/contracts"
)

func TestDispatcherPriorityOrdering(t *testing.T) {
	d := New(1)

	var mu sync.Mutex
	var order []string

	d.Start()
	defer d.Stop()

	// Block the single worker until all three are posted, so ordering is
	// determined purely by queue priority, not post timing.
	gate := make(chan struct{})
	d.Post(func() { <-gate }, contracts.PriorityHigh)

	d.Post(func() {
		mu.Lock()
		order = append(order, "low")
		mu.Unlock()
	}, contracts.PriorityLow)
	d.Post(func() {
		mu.Lock()
		order = append(order, "normal")
		mu.Unlock()
	}, contracts.PriorityNormal)
	d.Post(func() {
		mu.Lock()
		order = append(order, "high")
		mu.Unlock()
	}, contracts.PriorityHigh)

	close(gate)

	if !d.WaitUntilDrained(time.Second) {
		t.Fatal("dispatcher did not drain in time")
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{"high", "normal", "low"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestDispatcherStopRejectsNewPosts(t *testing.T) {
	d := New(2)
	d.Start()
	d.Stop()

	if d.Post(func() {}, contracts.PriorityHigh) {
		t.Fatal("Post succeeded after Stop")
	}
}

func TestDispatcherSnapshotCounts(t *testing.T) {
	d := New(1)
	gate := make(chan struct{})
	d.Start()
	defer d.Stop()

	d.Post(func() { <-gate }, contracts.PriorityHigh)
	d.Post(func() {}, contracts.PriorityNormal)
	d.Post(func() {}, contracts.PriorityLow)

	snap := d.Snapshot()
	if snap.PendingNormal != 1 || snap.PendingLow != 1 {
		t.Fatalf("snapshot = %+v, want 1 pending normal and low", snap)
	}
	close(gate)
	d.WaitUntilDrained(time.Second)
}
