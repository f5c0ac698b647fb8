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

package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alexandremahdhaoui/nvp-probe/internal/controller"
	"github.com/alexandremahdhaoui/nvp-probe/internal/types"
	"github.com/alexandremahdhaoui/nvp-probe/internal/util/gracefulshutdown"
	"github.com/alexandremahdhaoui/nvp-probe/internal/util/httputil"
	"github.com/alexandremahdhaoui/nvp-probe/internal/util/logging"
)

const (
	// Name is used by the graceful shutdown of the watch command.
	Name = "nvp-probe"

	metricsPath   = "/metrics"
	livenessPath  = "/healthz"
	readinessPath = "/readyz"
)

// WatchOptions are the inputs of the watch command.
type WatchOptions struct {
	ConfigPath string
	Overrides  Overrides
}

// Watch handles the watch command.
//
// It runs a discovery on every interval until SIGTERM or SIGINT, and serves the metrics and the probes meanwhile.
// The readiness probe succeeds only while the last discovery succeeded.
func Watch(ctx context.Context, opts WatchOptions) error {
	config, err := LoadConfig(opts.ConfigPath, opts.Overrides)
	if err != nil {
		return err
	}

	if _, err := logging.Setup(config.Log); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	metrics := controller.NewMetrics(reg)

	discovery, err := newDiscovery(ctx, config, metrics)
	if err != nil {
		return err
	}

	gs := gracefulshutdown.New(ctx, Name)
	ctx = gs.Context()

	// --------------------------------------------- Probes --------------------------------------------------------- //

	ready := new(atomic.Bool)

	probesHandler := http.NewServeMux()
	probesHandler.Handle(livenessPath, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	probesHandler.Handle(readinessPath, readinessHandler(ready))

	probes := &http.Server{ //nolint:exhaustruct
		Addr:              config.Watch.ProbesAddr,
		Handler:           probesHandler,
		ReadHeaderTimeout: time.Second,
	}

	// --------------------------------------------- Metrics -------------------------------------------------------- //

	metricsHandler := http.NewServeMux()
	metricsHandler.Handle(metricsPath, promhttp.HandlerFor(reg, promhttp.HandlerOpts{})) //nolint:exhaustruct

	metricsServer := &http.Server{ //nolint:exhaustruct
		Addr:              config.Watch.MetricsAddr,
		Handler:           metricsHandler,
		ReadHeaderTimeout: time.Second,
	}

	// --------------------------------------------- Run ------------------------------------------------------------ //

	httputil.Serve(gs, map[string]*http.Server{
		"metrics": metricsServer,
		"probes":  probes,
	})

	gs.Go("watch", func(ctx context.Context) error {
		return controller.Watch(ctx, discovery, config.Hosts, config.Credentials(), config.Watch.Interval.Duration,
			onDiscovery(ctx, ready))
	})

	if code := gs.Wait(); code != 0 {
		return fmt.Errorf("%s stopped with exit code %d", Name, code)
	}

	slog.Info("✅ gracefully stopped", "binary", Name)

	return nil
}

func onDiscovery(ctx context.Context, ready *atomic.Bool) controller.WatchFunc {
	return func(result types.ProbeResult, err error) {
		ready.Store(err == nil)

		if err != nil {
			slog.WarnContext(ctx, "discovery failed, retrying on next interval", "error", err.Error())
			return
		}

		slog.InfoContext(ctx, "discovered controller cluster master",
			"master", result.MasterHost,
			"transportZoneUUID", result.TransportZoneUUID,
		)
	}
}

func readinessHandler(ready *atomic.Bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if !ready.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		w.WriteHeader(http.StatusOK)
	})
}
