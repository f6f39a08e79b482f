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

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func counterValue(t *testing.T, c *Counter) float64 {
	t.Helper()
	return testutil.ToFloat64(c.c)
}

func TestRegistryBuildCounterIsCachedByNameAndLabels(t *testing.T) {
	reg := NewRegistry()
	a := reg.BuildCounter("requests_total", "help", Labels{"op": "place"})
	b := reg.BuildCounter("requests_total", "help", Labels{"op": "place"})
	if a != b {
		t.Fatalf("expected cached counter for identical name+labels")
	}

	c := reg.BuildCounter("requests_total", "help", Labels{"op": "cancel"})
	if a == c {
		t.Fatalf("expected distinct counter for different labels")
	}
}

func TestRegistryCounterIncrementsAccumulate(t *testing.T) {
	reg := NewRegistry()
	c := reg.BuildCounter("orders_total", "help", nil)
	c.Inc()
	c.Add(2)
	if got := counterValue(t, c); got != 3 {
		t.Fatalf("expected 3, got %v", got)
	}
}

func TestNilRegistryIsNoop(t *testing.T) {
	var reg *Registry
	c := reg.BuildCounter("x", "help", nil)
	g := reg.BuildGauge("y", "help", nil)
	h := reg.BuildHistogram("z", "help", nil, nil)

	c.Inc()
	g.Set(5)
	h.Observe(1.2)
}
