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

package extraction

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// metricsExtraction holds Prometheus metrics for the extraction subsystem.
type metricsExtraction struct {
	once sync.Once

	// Files
	filesDiscovered *prometheus.CounterVec
	filesParsed     *prometheus.CounterVec
	filesFailed     *prometheus.CounterVec

	// Entities/relationships
	entitiesExtracted  *prometheus.CounterVec
	relationsExtracted *prometheus.CounterVec
	refsResolved       prometheus.Counter
	refsUnresolved     prometheus.Counter

	// Durations
	parseDuration prometheus.Histogram
	passDuration  prometheus.Histogram
}

var extMetrics metricsExtraction

func (m *metricsExtraction) init() {
	m.once.Do(func() {
		m.filesDiscovered = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "ckg_ext_files_discovered_total", Help: "Source files discovered per language"}, []string{"language"})
		m.filesParsed = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "ckg_ext_files_parsed_total", Help: "Source files parsed per language"}, []string{"language"})
		m.filesFailed = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "ckg_ext_files_failed_total", Help: "Source files that failed parsing per language"}, []string{"language"})

		m.entitiesExtracted = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "ckg_ext_entities_total", Help: "Entities extracted per language"}, []string{"language"})
		m.relationsExtracted = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "ckg_ext_relationships_total", Help: "Relationships extracted per language"}, []string{"language"})
		m.refsResolved = prometheus.NewCounter(prometheus.CounterOpts{Name: "ckg_ext_refs_resolved_total", Help: "References resolved in the project-scope pass"})
		m.refsUnresolved = prometheus.NewCounter(prometheus.CounterOpts{Name: "ckg_ext_refs_unresolved_total", Help: "References left unresolved after resolution"})

		buckets := []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
		m.parseDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "ckg_ext_parse_seconds", Help: "Per-file parse duration", Buckets: buckets})
		m.passDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "ckg_ext_pass_seconds", Help: "Full extraction pass duration", Buckets: buckets})

		prometheus.MustRegister(
			m.filesDiscovered, m.filesParsed, m.filesFailed,
			m.entitiesExtracted, m.relationsExtracted,
			m.refsResolved, m.refsUnresolved,
			m.parseDuration, m.passDuration,
		)
	})
}
