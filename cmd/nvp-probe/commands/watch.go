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

package commands

import (
	"time"

	"github.com/spf13/cobra"
	"k8s.io/utils/ptr"

	"github.com/alexandremahdhaoui/nvp-probe/cmd/nvp-probe/handlers"
)

// Watch returns the command running a discovery on every interval.
//
// Accepts the flags of the discover command except --output, plus:
//
//	--interval: Delay between the end of a discovery and the start of the next one
//	--metrics-addr: Listen address of the metrics server
//	--probes-addr: Listen address of the /healthz and /readyz server
func Watch() *cobra.Command {
	var (
		flags       commonFlags
		interval    time.Duration
		metricsAddr string
		probesAddr  string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Continuously discover the controller cluster master",
		Long: `Run a discovery immediately and then on every interval until SIGTERM or SIGINT.

Metrics are served on /metrics. /healthz always answers 200 and /readyz answers 200
only while the last discovery succeeded.

Examples:
  nvp-probe watch --config nvp-probe.yaml --interval 1m`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			overrides := flags.overrides(cmd.Flags())

			if cmd.Flags().Changed("interval") {
				overrides.WatchInterval = ptr.To(interval)
			}
			if cmd.Flags().Changed("metrics-addr") {
				overrides.MetricsAddr = ptr.To(metricsAddr)
			}
			if cmd.Flags().Changed("probes-addr") {
				overrides.ProbesAddr = ptr.To(probesAddr)
			}

			return handlers.Watch(cmd.Context(), handlers.WatchOptions{
				ConfigPath: flags.configPath,
				Overrides:  overrides,
			})
		},
	}

	flags.bind(cmd.Flags())
	cmd.Flags().DurationVar(&interval, "interval", 30*time.Second, "Delay between two discoveries")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090", "Listen address of the metrics server")
	cmd.Flags().StringVar(&probesAddr, "probes-addr", ":8081", "Listen address of the probes server")

	return cmd
}
