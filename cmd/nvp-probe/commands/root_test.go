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

package commands

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoot(t *testing.T) {
	cmd := Root(BuildInfo{})

	require.NotNil(t, cmd)
	assert.Equal(t, "nvp-probe", cmd.Use)
	assert.True(t, cmd.SilenceUsage)
}

func TestRoot_HasSubcommands(t *testing.T) {
	cmd := Root(BuildInfo{})

	subcommands := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		subcommands[sub.Name()] = true
	}

	for _, expected := range []string{"discover", "watch", "version"} {
		assert.True(t, subcommands[expected], "Expected subcommand %s not found", expected)
	}

	assert.Len(t, cmd.Commands(), 3)
}

func TestDiscover_Flags(t *testing.T) {
	cmd := Discover()

	for _, name := range []string{"config", "host", "mode", "insecure-skip-verify", "timeout", "output"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "Expected flag %s not found", name)
	}

	assert.Equal(t, "c", cmd.Flags().Lookup("config").Shorthand)
	assert.Equal(t, "json", cmd.Flags().Lookup("output").DefValue)
	assert.Equal(t, "false", cmd.Flags().Lookup("insecure-skip-verify").DefValue)
}

func TestCommonFlags_Overrides(t *testing.T) {
	t.Run("unset flags are not overrides", func(t *testing.T) {
		var flags commonFlags

		fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
		flags.bind(fs)
		require.NoError(t, fs.Parse([]string{"--config", "nvp.yaml"}))

		o := flags.overrides(fs)
		assert.Equal(t, "nvp.yaml", flags.configPath)
		assert.Empty(t, o.Hosts)
		assert.Nil(t, o.Mode)
		assert.Nil(t, o.InsecureSkipVerify)
		assert.Nil(t, o.RequestTimeout)
	})

	t.Run("set flags are overrides", func(t *testing.T) {
		var flags commonFlags

		fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
		flags.bind(fs)

		require.NoError(t, fs.Parse([]string{
			"--host", "h1", "--host", "h2",
			"--mode", "cluster-status",
			"--insecure-skip-verify",
			"--timeout", "3s",
		}))

		o := flags.overrides(fs)
		assert.Equal(t, []string{"h1", "h2"}, o.Hosts)
		require.NotNil(t, o.Mode)
		assert.Equal(t, "cluster-status", *o.Mode)
		require.NotNil(t, o.InsecureSkipVerify)
		assert.True(t, *o.InsecureSkipVerify)
		require.NotNil(t, o.RequestTimeout)
		assert.Equal(t, 3*time.Second, *o.RequestTimeout)
	})
}

func TestDiscover_RejectsArguments(t *testing.T) {
	cmd := Root(BuildInfo{})
	cmd.SetArgs([]string{"discover", "unexpected"})
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))

	assert.Error(t, cmd.Execute())
}
