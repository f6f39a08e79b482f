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

// Package metrics is the collaborator-interface counterpart of
// monitoring/metric_registry.h: a thin, label-keyed factory over a
// prometheus.Registry. Callers that care about metrics build
// Counter/Gauge/Histogram handles through Registry; callers that don't
// (most unit tests) pass a nil *Registry and every Increment/Set/Observe
// becomes a no-op, mirroring the source's null-function-pointer default.
package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Labels is the Go counterpart of MetricLabels.
type Labels map[string]string

// Counter wraps a prometheus.Counter; nil-safe.
type Counter struct {
	c prometheus.Counter
}

func (c *Counter) Inc() { c.Add(1) }

func (c *Counter) Add(value float64) {
	if c == nil || c.c == nil {
		return
	}
	c.c.Add(value)
}

// Gauge wraps a prometheus.Gauge; nil-safe.
type Gauge struct {
	g prometheus.Gauge
}

func (g *Gauge) Set(value float64) {
	if g == nil || g.g == nil {
		return
	}
	g.g.Set(value)
}

// Histogram wraps a prometheus.Histogram; nil-safe.
type Histogram struct {
	h prometheus.Histogram
}

func (h *Histogram) Observe(value float64) {
	if h == nil || h.h == nil {
		return
	}
	h.h.Observe(value)
}

// Registry is the Go counterpart of MetricRegistry: a process-wide (or, in
// tests, per-engine) cache of already-built collectors keyed on
// name+sorted-labels, registered once against an underlying
// prometheus.Registry.
type Registry struct {
	mu         sync.Mutex
	reg        *prometheus.Registry
	counters   map[string]*Counter
	gauges     map[string]*Gauge
	histograms map[string]*Histogram
}

// NewRegistry builds a Registry around a fresh prometheus.Registry. Passing
// a nil *Registry anywhere a Registry is expected disables metrics entirely.
func NewRegistry() *Registry {
	return &Registry{
		reg:        prometheus.NewRegistry(),
		counters:   make(map[string]*Counter),
		gauges:     make(map[string]*Gauge),
		histograms: make(map[string]*Histogram),
	}
}

// PrometheusRegistry exposes the underlying registry for an HTTP exposition
// handler, mirroring MetricRegistry::GetPrometheusRegistry.
func (r *Registry) PrometheusRegistry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.reg
}

func buildMetricKey(name string, labels Labels) string {
	if len(labels) == 0 {
		return name
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	sb.WriteString(name)
	for _, k := range keys {
		fmt.Fprintf(&sb, ",%s=%s", k, labels[k])
	}
	return sb.String()
}

// BuildCounter returns the existing counter for name+labels or registers a
// new one. Safe to call on a nil *Registry.
func (r *Registry) BuildCounter(name, help string, labels Labels) *Counter {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	key := buildMetricKey(name, labels)
	if c, ok := r.counters[key]; ok {
		return c
	}
	underlying := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        name,
		Help:        help,
		ConstLabels: prometheus.Labels(labels),
	})
	_ = r.reg.Register(underlying)
	c := &Counter{c: underlying}
	r.counters[key] = c
	return c
}

// BuildGauge returns the existing gauge for name+labels or registers a new one.
func (r *Registry) BuildGauge(name, help string, labels Labels) *Gauge {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	key := buildMetricKey(name, labels)
	if g, ok := r.gauges[key]; ok {
		return g
	}
	underlying := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        name,
		Help:        help,
		ConstLabels: prometheus.Labels(labels),
	})
	_ = r.reg.Register(underlying)
	g := &Gauge{g: underlying}
	r.gauges[key] = g
	return g
}

// BuildHistogram returns the existing histogram for name+labels or registers
// a new one with the given bucket boundaries.
func (r *Registry) BuildHistogram(name, help string, buckets []float64, labels Labels) *Histogram {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	key := buildMetricKey(name, labels)
	if h, ok := r.histograms[key]; ok {
		return h
	}
	underlying := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: prometheus.Labels(labels),
	})
	_ = r.reg.Register(underlying)
	h := &Histogram{h: underlying}
	r.histograms[key] = h
	return h
}
