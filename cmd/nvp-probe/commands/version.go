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
	"fmt"

	"github.com/spf13/cobra"
)

// BuildInfo identifies the running binary. Its fields are set by ldflags in main.
type BuildInfo struct {
	Version        string
	CommitSHA      string
	BuildTimestamp string
}

func (b BuildInfo) String() string {
	return fmt.Sprintf("nvp-probe version %s (%s) %s", b.Version, b.CommitSHA, b.BuildTimestamp)
}

// Version returns the version command.
func Version(info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version, commit and build timestamp",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), info)
			return err
		},
	}
}
