/*
 * Copyright (c) SAS Institute Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package sealcmd

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sassoftware/fwseal/cmdline/shared"
)

var (
	buckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

	registry = prometheus.NewRegistry()

	metricLayers = promauto.With(registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fwseal_operation_seconds",
			Help:    "A histogram of latencies for each envelope layer",
			Buckets: buckets,
		},
		[]string{"op", "layer"},
	)
	metricOperations = promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "fwseal_operations_total",
			Help: "Outcome of bundle operations",
		},
		[]string{"op", "result"},
	)
)

// layerMetrics feeds per-layer timings from fwbundle into the registry.
type layerMetrics struct{}

func (layerMetrics) ObserveLayer(op, layer string, elapsed time.Duration, err error) {
	metricLayers.WithLabelValues(op, layer).Observe(elapsed.Seconds())
}

func observeResult(op string, err error) {
	var result string
	switch shared.ExitCode(err) {
	case shared.ExitOK:
		result = "ok"
	case shared.ExitIntegrity:
		result = "integrity"
	default:
		result = "error"
	}
	metricOperations.WithLabelValues(op, result).Inc()
}

// writeMetrics writes the registry for node_exporter's textfile collector, if
// configured.
func writeMetrics() error {
	if shared.CurrentConfig == nil || shared.CurrentConfig.Metrics.Textfile == "" {
		return nil
	}
	return prometheus.WriteToTextfile(shared.CurrentConfig.Metrics.Textfile, registry)
}
