// Copyright 2023 LiveKit, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package stats

import (
	"errors"

	"github.com/frostbyte73/core"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/livekit/adpcm/pkg/config"
)

var (
	// errBuckets lists histogram buckets for absolute per-sample reconstruction error.
	errBuckets = prometheus.ExponentialBuckets(1, 4, 9)
)

type Monitor struct {
	serviceName string

	samplesEncoded prometheus.Counter
	codesDecoded   prometheus.Counter
	codesDropped   prometheus.Counter
	packetsLost    prometheus.Counter
	absError       prometheus.Histogram

	reg     prometheus.Registerer
	metrics []prometheus.Collector
	started core.Fuse
}

func NewMonitor(conf *config.Config) *Monitor {
	return &Monitor{
		serviceName: conf.ServiceName,
	}
}

func mustRegister[T prometheus.Collector](m *Monitor, c T) T {
	err := m.reg.Register(c)
	if err != nil {
		var e prometheus.AlreadyRegisteredError
		if errors.As(err, &e) {
			return e.ExistingCollector.(T)
		} else {
			panic(err)
		}
	}
	m.metrics = append(m.metrics, c)
	return c
}

// Start registers metrics. A nil registerer means the default prometheus registry.
func (m *Monitor) Start(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m.reg = reg
	labels := prometheus.Labels{"service": m.serviceName}

	m.samplesEncoded = mustRegister(m, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   "livekit",
		Subsystem:   "adpcm",
		Name:        "samples_encoded",
		Help:        "Number of PCM samples encoded to ADPCM codes",
		ConstLabels: labels,
	}))

	m.codesDecoded = mustRegister(m, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   "livekit",
		Subsystem:   "adpcm",
		Name:        "codes_decoded",
		Help:        "Number of ADPCM codes decoded to PCM samples",
		ConstLabels: labels,
	}))

	m.codesDropped = mustRegister(m, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   "livekit",
		Subsystem:   "adpcm",
		Name:        "codes_dropped",
		Help:        "Number of ADPCM codes removed by loss simulation",
		ConstLabels: labels,
	}))

	m.packetsLost = mustRegister(m, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   "livekit",
		Subsystem:   "adpcm",
		Name:        "packets_lost",
		Help:        "Number of RTP packets detected as missing by the receiving stream",
		ConstLabels: labels,
	}))

	m.absError = mustRegister(m, prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace:   "livekit",
		Subsystem:   "adpcm",
		Name:        "abs_error",
		Help:        "Absolute per-sample reconstruction error",
		ConstLabels: labels,
		Buckets:     errBuckets,
	}))

	m.started.Break()
	return nil
}

func (m *Monitor) Stop() {
	if m.reg == nil {
		return
	}
	for _, c := range m.metrics {
		m.reg.Unregister(c)
	}
	m.metrics = nil
}

func (m *Monitor) SamplesEncoded(n int) {
	if m.started.IsBroken() {
		m.samplesEncoded.Add(float64(n))
	}
}

func (m *Monitor) CodesDecoded(n int) {
	if m.started.IsBroken() {
		m.codesDecoded.Add(float64(n))
	}
}

func (m *Monitor) CodesDropped(n int) {
	if m.started.IsBroken() {
		m.codesDropped.Add(float64(n))
	}
}

func (m *Monitor) PacketsLost(n int) {
	if m.started.IsBroken() {
		m.packetsLost.Add(float64(n))
	}
}

// ObserveError records per-sample error for the common prefix of src and dec.
func (m *Monitor) ObserveError(src, dec []int16) {
	if !m.started.IsBroken() {
		return
	}
	n := min(len(src), len(dec))
	for i := 0; i < n; i++ {
		m.absError.Observe(float64(abs(int(src[i]) - int(dec[i]))))
	}
}
