/*
Copyright 2024 Alexandre Mahdhaoui

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package controller

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "nvp_probe"

// Outcomes of a discovery, as exported by the discover_total counter.
const (
	OutcomeSuccess            = "success"
	OutcomeNoMaster           = "no_master"
	OutcomeNoTransportZone    = "no_transport_zone"
	OutcomeUnexpectedResponse = "unexpected_response"
	OutcomeTransportError     = "transport_error"
	OutcomeInvalid            = "invalid"
	OutcomeError              = "error"
)

// Metrics holds the Prometheus collectors of the probe. A nil *Metrics records nothing.
type Metrics struct {
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	discoveries     *prometheus.CounterVec
	ambiguousZones  prometheus.Counter
	master          *prometheus.GaugeVec
}

// NewMetrics creates the probe collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{ //nolint:exhaustruct
			Namespace: metricsNamespace,
			Name:      "requests_total",
			Help:      "Requests sent to controller nodes, by endpoint and status code.",
		}, []string{"endpoint", "code"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{ //nolint:exhaustruct
			Namespace: metricsNamespace,
			Name:      "request_duration_seconds",
			Help:      "Time until a controller node answered, by endpoint.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		discoveries: factory.NewCounterVec(prometheus.CounterOpts{ //nolint:exhaustruct
			Namespace: metricsNamespace,
			Name:      "discover_total",
			Help:      "Discoveries run, by outcome.",
		}, []string{"outcome"}),
		ambiguousZones: factory.NewCounter(prometheus.CounterOpts{ //nolint:exhaustruct
			Namespace: metricsNamespace,
			Name:      "transport_zone_ambiguous_total",
			Help:      "Discoveries where the master listed more than one transport zone and the first one was used.",
		}),
		master: factory.NewGaugeVec(prometheus.GaugeOpts{ //nolint:exhaustruct
			Namespace: metricsNamespace,
			Name:      "master",
			Help:      "1 when the candidate host answered as cluster master during the last discovery, 0 otherwise.",
		}, []string{"host"}),
	}
}

// ObserveRequest implements adapter.RequestObserver.
func (m *Metrics) ObserveRequest(endpoint string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}

	m.requests.WithLabelValues(endpoint, strconv.Itoa(statusCode)).Inc()
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *Metrics) observeDiscovery(hosts []string, masterHost string, err error) {
	if m == nil {
		return
	}

	m.discoveries.WithLabelValues(outcome(err)).Inc()

	for _, host := range hosts {
		value := 0.0
		if err == nil && host == masterHost {
			value = 1
		}

		m.master.WithLabelValues(host).Set(value)
	}
}

func (m *Metrics) observeAmbiguousTransportZone() {
	if m == nil {
		return
	}

	m.ambiguousZones.Inc()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrInvalidProbe):
		return OutcomeInvalid
	case errors.Is(err, ErrNoMasterFound):
		return OutcomeNoMaster
	case errors.Is(err, ErrNoTransportZone):
		return OutcomeNoTransportZone
	case errors.Is(err, ErrTransport):
		return OutcomeTransportError
	case errors.Is(err, ErrUnexpectedControllerResponse):
		return OutcomeUnexpectedResponse
	default:
		return OutcomeError
	}
}
