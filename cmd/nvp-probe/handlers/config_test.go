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

package handlers

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/utils/ptr"

	"github.com/alexandremahdhaoui/nvp-probe/internal/types"
)

// isolateEnv clears every environment variable read by LoadConfig.
func isolateEnv(t *testing.T) {
	t.Helper()

	for _, key := range []string{
		ConfigPathEnvKey,
		"NVP_PROBE_HOSTS",
		"NVP_PROBE_USERNAME",
		"NVP_PROBE_PASSWORD",
		"NVP_PROBE_MODE",
		"NVP_PROBE_INSECURE_SKIP_VERIFY",
		"NVP_PROBE_DEV_MODE",
		"NVP_PROBE_LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o600))

	return configPath
}

func TestNewDefaultConfig(t *testing.T) {
	config := NewDefaultConfig()

	assert.Empty(t, config.Hosts)
	assert.Equal(t, types.TransportZoneProbeMode, config.Mode)
	assert.Equal(t, 30*time.Second, config.RequestTimeout.Duration)
	assert.False(t, config.FollowRedirects)
	assert.Equal(t, 5, config.ExecutionLimit)
	assert.False(t, config.TLS.InsecureSkipVerify)
	assert.Equal(t, 30*time.Second, config.Watch.Interval.Duration)
	assert.Equal(t, ":9090", config.Watch.MetricsAddr)
	assert.Equal(t, ":8081", config.Watch.ProbesAddr)
}

func TestLoadConfig_ValidYAML(t *testing.T) {
	isolateEnv(t)
	t.Setenv("TEST_NVP_PASSWORD", "from-env")

	configPath := writeConfig(t, `
hosts:
  - nvp-1.example.org
  - "10.0.0.2:8443"
username: admin
passwordEnv: TEST_NVP_PASSWORD
mode: cluster-status
requestTimeout: 5s
followRedirects: true
executionLimit: 7
tls:
  caPath: /etc/nvp/ca.crt
  serverName: nvp.example.org
metrics:
  textfilePath: /var/lib/node-exporter/nvp.prom
log:
  development: true
  level: debug
watch:
  interval: 1m
  metricsAddr: 127.0.0.1:9999
`)

	config, err := LoadConfig(configPath, Overrides{})
	require.NoError(t, err)

	assert.Equal(t, []string{"nvp-1.example.org", "10.0.0.2:8443"}, config.Hosts)
	assert.Equal(t, types.Credentials{Username: "admin", Password: "from-env"}, config.Credentials())
	assert.Equal(t, types.ClusterStatusProbeMode, config.Mode)
	assert.Equal(t, 5*time.Second, config.RequestTimeout.Duration)
	assert.True(t, config.FollowRedirects)
	assert.Equal(t, 7, config.ExecutionLimit)
	assert.Equal(t, "/etc/nvp/ca.crt", config.TLS.CAPath)
	assert.Equal(t, "nvp.example.org", config.TLS.ServerName)
	assert.Equal(t, "/var/lib/node-exporter/nvp.prom", config.Metrics.TextfilePath)
	assert.True(t, config.Log.Development)
	assert.Equal(t, "debug", config.Log.Level)
	assert.Equal(t, time.Minute, config.Watch.Interval.Duration)
	assert.Equal(t, "127.0.0.1:9999", config.Watch.MetricsAddr)
	assert.Equal(t, ":8081", config.Watch.ProbesAddr)
}

func TestLoadConfig_PasswordEnv(t *testing.T) {
	tests := []struct {
		name             string
		passwordEnvValue string
		envPassword      string
		expectedPassword string
		expectErr        string
	}{
		{
			name:             "referenced variable wins",
			passwordEnvValue: "from-ref",
			envPassword:      "from-env",
			expectedPassword: "from-ref",
		},
		{
			name:             "empty referenced variable keeps NVP_PROBE_PASSWORD",
			envPassword:      "from-env",
			expectedPassword: "from-env",
		},
		{
			name:             "empty referenced variable keeps the file password",
			expectedPassword: "from-file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateEnv(t)
			t.Setenv("TEST_NVP_PASSWORD", tt.passwordEnvValue)
			t.Setenv("NVP_PROBE_PASSWORD", tt.envPassword)

			configPath := writeConfig(t, "hosts: [h1]\nusername: admin\npassword: from-file\npasswordEnv: TEST_NVP_PASSWORD\n")

			config, err := LoadConfig(configPath, Overrides{})
			require.NoError(t, err)
			assert.Equal(t, tt.expectedPassword, config.Password)
		})
	}

	t.Run("no password at all", func(t *testing.T) {
		isolateEnv(t)
		t.Setenv("TEST_NVP_PASSWORD", "")

		configPath := writeConfig(t, "hosts: [h1]\nusername: admin\npasswordEnv: TEST_NVP_PASSWORD\n")

		_, err := LoadConfig(configPath, Overrides{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), `"TEST_NVP_PASSWORD" referenced by passwordEnv is empty`)
	})
}

func TestLoadConfig_PathFromEnvironment(t *testing.T) {
	isolateEnv(t)

	configPath := writeConfig(t, "hosts: [h1]\nusername: admin\npassword: secret\n")
	t.Setenv(ConfigPathEnvKey, configPath)

	config, err := LoadConfig("", Overrides{})
	require.NoError(t, err)
	assert.Equal(t, []string{"h1"}, config.Hosts)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	isolateEnv(t)

	config, err := LoadConfig(writeConfig(t, "hosts: [unterminated"), Overrides{})
	assert.Error(t, err)
	assert.Nil(t, config)
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	isolateEnv(t)

	config, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), Overrides{})
	assert.Error(t, err)
	assert.Nil(t, config)
}

func TestLoadConfig_Overrides(t *testing.T) {
	isolateEnv(t)

	configPath := writeConfig(t, "hosts: [h1, h2]\nusername: admin\npassword: secret\n")

	t.Run("environment", func(t *testing.T) {
		t.Setenv("NVP_PROBE_HOSTS", "h3, h4,")
		t.Setenv("NVP_PROBE_USERNAME", "operator")
		t.Setenv("NVP_PROBE_MODE", "cluster-status")
		t.Setenv("NVP_PROBE_INSECURE_SKIP_VERIFY", "true")
		t.Setenv("NVP_PROBE_LOG_LEVEL", "warn")

		config, err := LoadConfig(configPath, Overrides{})
		require.NoError(t, err)

		assert.Equal(t, []string{"h3", "h4"}, config.Hosts)
		assert.Equal(t, "operator", config.Username)
		assert.Equal(t, types.ClusterStatusProbeMode, config.Mode)
		assert.True(t, config.TLS.InsecureSkipVerify)
		assert.Equal(t, "warn", config.Log.Level)
	})

	t.Run("flags win over the environment", func(t *testing.T) {
		t.Setenv("NVP_PROBE_HOSTS", "h3")
		t.Setenv("NVP_PROBE_INSECURE_SKIP_VERIFY", "true")

		config, err := LoadConfig(configPath, Overrides{
			Hosts:              []string{"h5"},
			Mode:               ptr.To("cluster-status"),
			RequestTimeout:     ptr.To(2 * time.Second),
			InsecureSkipVerify: ptr.To(false),
			WatchInterval:      ptr.To(time.Second),
			MetricsAddr:        ptr.To(":1"),
			ProbesAddr:         ptr.To(":2"),
		})
		require.NoError(t, err)

		assert.Equal(t, []string{"h5"}, config.Hosts)
		assert.Equal(t, types.ClusterStatusProbeMode, config.Mode)
		assert.Equal(t, 2*time.Second, config.RequestTimeout.Duration)
		assert.False(t, config.TLS.InsecureSkipVerify)
		assert.Equal(t, time.Second, config.Watch.Interval.Duration)
		assert.Equal(t, ":1", config.Watch.MetricsAddr)
		assert.Equal(t, ":2", config.Watch.ProbesAddr)
	})

	t.Run("unset overrides keep the file values", func(t *testing.T) {
		config, err := LoadConfig(configPath, Overrides{})
		require.NoError(t, err)

		assert.Equal(t, []string{"h1", "h2"}, config.Hosts)
		assert.Equal(t, types.TransportZoneProbeMode, config.Mode)
	})
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		config := NewDefaultConfig()
		config.Hosts = []string{"nvp-1.example.org", "10.0.0.2", "[fd00::2]:8443"}
		config.Username = "admin"
		config.Password = "secret"

		return config
	}

	tests := []struct {
		name      string
		mutate    func(c *Config)
		expectErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "no hosts", mutate: func(c *Config) { c.Hosts = nil }, expectErr: "hosts cannot be empty"},
		{name: "empty host", mutate: func(c *Config) { c.Hosts = []string{"h1", " "} }, expectErr: "empty host"},
		{name: "invalid host", mutate: func(c *Config) { c.Hosts = []string{"NVP_1"} }, expectErr: `host "NVP_1"`},
		{name: "invalid port", mutate: func(c *Config) { c.Hosts = []string{"h1:99999"} }, expectErr: "invalid port"},
		{name: "no username", mutate: func(c *Config) { c.Username = "" }, expectErr: "username cannot be empty"},
		{name: "no password", mutate: func(c *Config) { c.Password = "" }, expectErr: "password cannot be empty"},
		{
			name:      "empty password env",
			mutate:    func(c *Config) { c.Password, c.PasswordEnv = "", "NVP_PASSWORD" },
			expectErr: `"NVP_PASSWORD" referenced by passwordEnv is empty`,
		},
		{name: "unknown mode", mutate: func(c *Config) { c.Mode = "ping" }, expectErr: `got "ping"`},
		{
			name:      "zero timeout",
			mutate:    func(c *Config) { c.RequestTimeout.Duration = 0 },
			expectErr: "requestTimeout must be positive",
		},
		{
			name:      "zero execution limit",
			mutate:    func(c *Config) { c.ExecutionLimit = 0 },
			expectErr: "executionLimit must be positive",
		},
		{
			name:      "client cert without key",
			mutate:    func(c *Config) { c.TLS.ClientCertPath = "/tls.crt" },
			expectErr: "must be set together",
		},
		{
			name:      "negative watch interval",
			mutate:    func(c *Config) { c.Watch.Interval.Duration = -time.Second },
			expectErr: "watch.interval must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := valid()
			tt.mutate(config)

			err := config.Validate()
			if tt.expectErr == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectErr)
		})
	}
}

func TestConfig_Validate_MultipleErrors(t *testing.T) {
	config := NewDefaultConfig()

	err := config.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hosts cannot be empty")
	assert.Contains(t, err.Error(), "username cannot be empty")
	assert.Contains(t, err.Error(), "password cannot be empty")
}
