// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package builder

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// metricsBuilder holds Prometheus metrics for graph builds.
type metricsBuilder struct {
	once sync.Once

	nodesWritten   prometheus.Counter
	edgesWritten   prometheus.Counter
	unresolvedRefs prometheus.Counter
	batchRetries   prometheus.Counter

	buildDuration prometheus.Histogram
}

var bldMetrics metricsBuilder

func (m *metricsBuilder) init() {
	m.once.Do(func() {
		m.nodesWritten = prometheus.NewCounter(prometheus.CounterOpts{Name: "ckg_build_nodes_written_total", Help: "Graph nodes written"})
		m.edgesWritten = prometheus.NewCounter(prometheus.CounterOpts{Name: "ckg_build_edges_written_total", Help: "Graph edges written"})
		m.unresolvedRefs = prometheus.NewCounter(prometheus.CounterOpts{Name: "ckg_build_unresolved_refs_total", Help: "References left unresolved at build time"})
		m.batchRetries = prometheus.NewCounter(prometheus.CounterOpts{Name: "ckg_build_batch_retries_total", Help: "Batch write retries"})

		m.buildDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ckg_build_seconds",
			Help:    "Full build duration",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		})

		prometheus.MustRegister(
			m.nodesWritten, m.edgesWritten, m.unresolvedRefs, m.batchRetries,
			m.buildDuration,
		)
	})
}
