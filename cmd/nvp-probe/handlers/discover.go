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

// Package handlers implements the nvp-probe commands.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/yaml"

	"github.com/alexandremahdhaoui/nvp-probe/internal/adapter"
	"github.com/alexandremahdhaoui/nvp-probe/internal/controller"
	"github.com/alexandremahdhaoui/nvp-probe/internal/types"
	"github.com/alexandremahdhaoui/nvp-probe/internal/util/httputil"
	"github.com/alexandremahdhaoui/nvp-probe/internal/util/logging"
	"github.com/alexandremahdhaoui/nvp-probe/internal/util/tlsutil"
)

// Output formats of the discover command.
const (
	OutputJSON = "json"
	OutputYAML = "yaml"
)

// ErrUnknownOutputFormat is returned when the output format is neither json nor yaml.
var ErrUnknownOutputFormat = errors.New("unknown output format")

// Report is printed by the discover command.
type Report struct {
	types.ProbeResult

	// NonMaster is a candidate other than the master, empty when the master is the only candidate.
	NonMaster string `json:"nonMaster,omitempty"`
}

// DiscoverOptions are the inputs of the discover command.
type DiscoverOptions struct {
	ConfigPath string
	Overrides  Overrides
	// Output is either OutputJSON or OutputYAML.
	Output string
}

// Discover handles the discover command.
//
// It finds the controller cluster master among the configured hosts, prints a Report to out and writes the
// metrics textfile when one is configured. The textfile is written even when the discovery fails.
func Discover(ctx context.Context, out io.Writer, opts DiscoverOptions) error {
	if opts.Output != OutputJSON && opts.Output != OutputYAML {
		return fmt.Errorf("%w: %q", ErrUnknownOutputFormat, opts.Output)
	}

	config, err := LoadConfig(opts.ConfigPath, opts.Overrides)
	if err != nil {
		return err
	}

	if _, err := logging.Setup(config.Log); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	metrics := controller.NewMetrics(reg)

	discovery, err := newDiscovery(ctx, config, metrics)
	if err != nil {
		return err
	}

	result, discoverErr := discovery.Discover(ctx, config.Hosts, config.Credentials())

	if path := config.Metrics.TextfilePath; path != "" {
		if err := prometheus.WriteToTextfile(path, reg); err != nil {
			slog.ErrorContext(ctx, "writing metrics textfile", "path", path, "error", err.Error())
		}
	}

	if discoverErr != nil {
		return discoverErr
	}

	report := Report{ProbeResult: result}

	nonMaster, err := controller.SelectNonMaster(config.Hosts, result.MasterHost)
	if err != nil {
		slog.InfoContext(ctx, "no candidate other than the master", "master", result.MasterHost)
	}

	report.NonMaster = nonMaster

	return writeReport(out, report, opts.Output)
}

func newDiscovery(ctx context.Context, config *Config, metrics *controller.Metrics) (controller.Discovery, error) {
	if config.TLS.InsecureSkipVerify {
		slog.WarnContext(ctx, "TLS certificate verification of controller nodes is disabled")
	}

	tlsConfig, err := tlsutil.BuildClientTLSConfig(&config.TLS)
	if err != nil {
		return nil, err
	}

	httpClient := httputil.NewClient(httputil.ClientOptions{ //nolint:exhaustruct
		Timeout:   config.RequestTimeout.Duration,
		TLSConfig: tlsConfig,
	})

	ctrl := adapter.NewController(httpClient, adapter.Options{
		FollowRedirects: config.FollowRedirects,
		ExecutionLimit:  config.ExecutionLimit,
		Observer:        metrics,
		Logger:          slog.Default(),
	})

	return controller.NewDiscovery(ctrl, controller.DiscoveryOptions{
		Mode:    config.Mode,
		Logger:  slog.Default(),
		Metrics: metrics,
	}), nil
}

func writeReport(out io.Writer, report Report, format string) error {
	var (
		b   []byte
		err error
	)

	switch format {
	case OutputYAML:
		b, err = yaml.Marshal(report)
	default:
		b, err = json.MarshalIndent(report, "", "  ")
		b = append(b, '\n')
	}

	if err != nil {
		return err
	}

	_, err = out.Write(b)

	return err
}
