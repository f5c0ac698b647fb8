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
	"github.com/spf13/pflag"
	"k8s.io/utils/ptr"

	"github.com/alexandremahdhaoui/nvp-probe/cmd/nvp-probe/handlers"
	"github.com/alexandremahdhaoui/nvp-probe/internal/types"
	"github.com/alexandremahdhaoui/nvp-probe/internal/util/httputil"
)

// Discover returns the command finding the controller cluster master and its transport zone.
//
// Optional flags:
//
//	--config, -c: Path to the configuration file (default: $NVP_PROBE_CONFIG_PATH)
//	--host: Candidate controller node, repeatable; replaces the configured hosts
//	--mode: transport-zone or cluster-status
//	--insecure-skip-verify: Skip TLS certificate verification of controller nodes
//	--timeout: Timeout of each request sent to a controller node
//	--output, -o: json or yaml
func Discover() *cobra.Command {
	var (
		flags  commonFlags
		output string
	)

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Find the controller cluster master and its transport zone",
		Long: `Probe the candidate controller nodes in order and print the first one answering as
cluster master, the uuid of the first transport zone it lists, and a candidate that is
not the master.

Examples:
  # Probe the hosts listed in the configuration file
  nvp-probe discover --config nvp-probe.yaml

  # Probe two hosts, asking the control cluster status instead of the transport zones
  nvp-probe discover -c nvp-probe.yaml --host nvp-1 --host nvp-2 --mode cluster-status -o yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Discover(cmd.Context(), cmd.OutOrStdout(), handlers.DiscoverOptions{
				ConfigPath: flags.configPath,
				Overrides:  flags.overrides(cmd.Flags()),
				Output:     output,
			})
		},
	}

	flags.bind(cmd.Flags())
	cmd.Flags().StringVarP(&output, "output", "o", handlers.OutputJSON, "Output format: json or yaml")

	return cmd
}

// commonFlags are shared by the commands probing controller nodes.
type commonFlags struct {
	configPath         string
	hosts              []string
	mode               string
	insecureSkipVerify bool
	timeout            time.Duration
}

func (f *commonFlags) bind(fs *pflag.FlagSet) {
	fs.StringVarP(&f.configPath, "config", "c", "", "Path to configuration file (default: $"+handlers.ConfigPathEnvKey+")")
	fs.StringArrayVar(&f.hosts, "host", nil, "Candidate controller node, repeatable; replaces the configured hosts")
	fs.StringVar(&f.mode, "mode", string(types.TransportZoneProbeMode), "Master probe mode: transport-zone or cluster-status")
	fs.BoolVar(&f.insecureSkipVerify, "insecure-skip-verify", false, "Skip TLS certificate verification of controller nodes")
	fs.DurationVar(&f.timeout, "timeout", httputil.DefaultTimeout, "Timeout of each request sent to a controller node")
}

// overrides only carries the flags set on the command line.
func (f *commonFlags) overrides(fs *pflag.FlagSet) handlers.Overrides {
	o := handlers.Overrides{Hosts: f.hosts}

	if fs.Changed("mode") {
		o.Mode = ptr.To(f.mode)
	}
	if fs.Changed("insecure-skip-verify") {
		o.InsecureSkipVerify = ptr.To(f.insecureSkipVerify)
	}
	if fs.Changed("timeout") {
		o.RequestTimeout = ptr.To(f.timeout)
	}

	return o
}
