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
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/validation"
	"sigs.k8s.io/yaml"

	"github.com/alexandremahdhaoui/nvp-probe/internal/adapter"
	"github.com/alexandremahdhaoui/nvp-probe/internal/types"
	"github.com/alexandremahdhaoui/nvp-probe/internal/util/httputil"
	"github.com/alexandremahdhaoui/nvp-probe/internal/util/logging"
	"github.com/alexandremahdhaoui/nvp-probe/internal/util/tlsutil"
)

// ConfigPathEnvKey is the environment variable holding the config file path when --config is not set.
const ConfigPathEnvKey = "NVP_PROBE_CONFIG_PATH"

const (
	defaultWatchInterval = 30 * time.Second
	defaultMetricsAddr   = ":9090"
	defaultProbesAddr    = ":8081"
)

// Config is the configuration of the nvp-probe commands.
//
// Values are read from a YAML file, then overridden by environment variables, then by command-line flags.
type Config struct {
	// Hosts are the candidate controller nodes, probed in order. A host may carry a port.
	Hosts []string `json:"hosts"`
	// Username is used to log into every candidate.
	Username string `json:"username"`
	// Password is used to log into every candidate. Prefer PasswordEnv.
	Password string `json:"password,omitempty"`
	// PasswordEnv names an environment variable holding the password. When that variable is set and not empty, it
	// takes precedence over Password and NVP_PROBE_PASSWORD.
	PasswordEnv string `json:"passwordEnv,omitempty"`
	// Mode selects how the master is identified.
	Mode types.ProbeMode `json:"mode"`
	// RequestTimeout bounds every request sent to a controller node.
	RequestTimeout metav1.Duration `json:"requestTimeout"`
	// FollowRedirects moves a session to the node named by a 3xx response and logs in again there.
	FollowRedirects bool `json:"followRedirects"`
	// ExecutionLimit bounds the requests sent for a single controller operation, new logins and redirects included.
	ExecutionLimit int `json:"executionLimit"`

	TLS     tlsutil.ClientConfig `json:"tls"`
	Metrics MetricsConfig        `json:"metrics"`
	Log     logging.Options      `json:"log"`
	Watch   WatchConfig          `json:"watch"`
}

// MetricsConfig configures the metrics written by the discover command.
type MetricsConfig struct {
	// TextfilePath is where the metrics are written in the Prometheus text format, e.g. for the node exporter
	// textfile collector. Empty disables the output.
	TextfilePath string `json:"textfilePath,omitempty"`
}

// WatchConfig configures the watch command.
type WatchConfig struct {
	// Interval between the end of a discovery and the start of the next one.
	Interval metav1.Duration `json:"interval"`
	// MetricsAddr is the listen address of the metrics server.
	MetricsAddr string `json:"metricsAddr"`
	// ProbesAddr is the listen address of the liveness and readiness server.
	ProbesAddr string `json:"probesAddr"`
}

// Overrides holds the values set on the command line. Nil or empty fields leave the configuration untouched.
type Overrides struct {
	Hosts              []string
	Mode               *string
	RequestTimeout     *time.Duration
	InsecureSkipVerify *bool
	WatchInterval      *time.Duration
	MetricsAddr        *string
	ProbesAddr         *string
}

// NewDefaultConfig returns a Config with sensible defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Mode:           types.TransportZoneProbeMode,
		RequestTimeout: metav1.Duration{Duration: httputil.DefaultTimeout},
		ExecutionLimit: adapter.DefaultExecutionLimit,
		Log:            logging.DefaultOptions(),
		Watch: WatchConfig{
			Interval:    metav1.Duration{Duration: defaultWatchInterval},
			MetricsAddr: defaultMetricsAddr,
			ProbesAddr:  defaultProbesAddr,
		},
	}
}

// LoadConfig reads the configuration file at configPath, applies the environment and command-line overrides,
// resolves the password and validates the result.
//
// When configPath is empty, the path is read from NVP_PROBE_CONFIG_PATH. When both are empty, only defaults and
// overrides are used.
func LoadConfig(configPath string, overrides Overrides) (*Config, error) {
	config := NewDefaultConfig()

	if configPath == "" {
		configPath = os.Getenv(ConfigPathEnvKey)
	}

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", configPath, err)
		}

		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", configPath, err)
		}
	}

	config.applyEnvironmentOverrides()
	config.applyOverrides(overrides)

	if config.PasswordEnv != "" {
		if val := os.Getenv(config.PasswordEnv); val != "" {
			config.Password = val
		}
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Credentials returns the credentials used to log into the candidates.
func (c *Config) Credentials() types.Credentials {
	return types.Credentials{
		Username: c.Username,
		Password: c.Password,
	}
}

func (c *Config) applyEnvironmentOverrides() {
	if val := os.Getenv("NVP_PROBE_HOSTS"); val != "" {
		c.Hosts = splitHosts(val)
	}
	if val := os.Getenv("NVP_PROBE_USERNAME"); val != "" {
		c.Username = val
	}
	if val := os.Getenv("NVP_PROBE_PASSWORD"); val != "" {
		c.Password = val
	}
	if val := os.Getenv("NVP_PROBE_MODE"); val != "" {
		c.Mode = types.ProbeMode(val)
	}
	if val := os.Getenv("NVP_PROBE_INSECURE_SKIP_VERIFY"); val != "" {
		c.TLS.InsecureSkipVerify = val == "true" || val == "1" || val == "yes"
	}
	if val := os.Getenv("NVP_PROBE_DEV_MODE"); val != "" {
		c.Log.Development = val == "true" || val == "1" || val == "yes"
	}
	if val := os.Getenv("NVP_PROBE_LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
}

func (c *Config) applyOverrides(o Overrides) {
	if len(o.Hosts) > 0 {
		c.Hosts = o.Hosts
	}
	if o.Mode != nil {
		c.Mode = types.ProbeMode(*o.Mode)
	}
	if o.RequestTimeout != nil {
		c.RequestTimeout = metav1.Duration{Duration: *o.RequestTimeout}
	}
	if o.InsecureSkipVerify != nil {
		c.TLS.InsecureSkipVerify = *o.InsecureSkipVerify
	}
	if o.WatchInterval != nil {
		c.Watch.Interval = metav1.Duration{Duration: *o.WatchInterval}
	}
	if o.MetricsAddr != nil {
		c.Watch.MetricsAddr = *o.MetricsAddr
	}
	if o.ProbesAddr != nil {
		c.Watch.ProbesAddr = *o.ProbesAddr
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []error

	if len(c.Hosts) == 0 {
		errs = append(errs, errors.New("hosts cannot be empty"))
	}

	for _, host := range c.Hosts {
		if err := validateHost(host); err != nil {
			errs = append(errs, err)
		}
	}

	if c.Username == "" {
		errs = append(errs, errors.New("username cannot be empty"))
	}

	if c.Password == "" {
		if c.PasswordEnv != "" {
			errs = append(errs, fmt.Errorf("environment variable %q referenced by passwordEnv is empty and no password is set",
				c.PasswordEnv))
		} else {
			errs = append(errs, errors.New("password cannot be empty"))
		}
	}

	if !c.Mode.IsValid() {
		errs = append(errs, fmt.Errorf("mode must be %q or %q, got %q",
			types.TransportZoneProbeMode, types.ClusterStatusProbeMode, c.Mode))
	}

	if c.RequestTimeout.Duration <= 0 {
		errs = append(errs, errors.New("requestTimeout must be positive"))
	}

	if c.ExecutionLimit <= 0 {
		errs = append(errs, errors.New("executionLimit must be positive"))
	}

	if (c.TLS.ClientCertPath == "") != (c.TLS.ClientKeyPath == "") {
		errs = append(errs, errors.New("tls.clientCertPath and tls.clientKeyPath must be set together"))
	}

	if c.Watch.Interval.Duration <= 0 {
		errs = append(errs, errors.New("watch.interval must be positive"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// validateHost accepts a DNS subdomain or an IP address, optionally followed by a port.
func validateHost(host string) error {
	if strings.TrimSpace(host) == "" {
		return errors.New("hosts cannot contain an empty host")
	}

	name := host
	if h, port, err := net.SplitHostPort(host); err == nil {
		n, err := strconv.Atoi(port)
		if err != nil {
			n = -1
		}

		if msgs := validation.IsValidPortNum(n); len(msgs) > 0 {
			return fmt.Errorf("host %q: invalid port: %s", host, strings.Join(msgs, ", "))
		}

		name = h
	}

	if net.ParseIP(name) != nil {
		return nil
	}

	if msgs := validation.IsDNS1123Subdomain(name); len(msgs) > 0 {
		return fmt.Errorf("host %q: %s", host, strings.Join(msgs, ", "))
	}

	return nil
}

func splitHosts(s string) []string {
	out := make([]string, 0)

	for _, host := range strings.Split(s, ",") {
		if host = strings.TrimSpace(host); host != "" {
			out = append(out, host)
		}
	}

	return out
}
