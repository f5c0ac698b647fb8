//go:build unit

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
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func (m *Metrics) Discoveries(outcome string) prometheus.Collector {
	return m.discoveries.WithLabelValues(outcome)
}

func (m *Metrics) Master(host string) prometheus.Collector {
	return m.master.WithLabelValues(host)
}

func (m *Metrics) Requests(endpoint string, statusCode int) prometheus.Collector {
	return m.requests.WithLabelValues(endpoint, strconv.Itoa(statusCode))
}

func (m *Metrics) AmbiguousTransportZones() prometheus.Collector {
	return m.ambiguousZones
}
