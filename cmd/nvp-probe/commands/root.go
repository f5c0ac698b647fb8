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

// Package commands defines the nvp-probe command tree and its flags.
//
// Command execution is delegated to the handlers package.
package commands

import "github.com/spf13/cobra"

// Root returns the root command of the nvp-probe CLI. info is printed by the version command.
func Root(info BuildInfo) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "nvp-probe",
		Short:         "Find the master of an NVP controller cluster and its transport zone",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(Discover())
	cmd.AddCommand(Watch())
	cmd.AddCommand(Version(info))

	return cmd
}
