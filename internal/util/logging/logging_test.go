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

package logging_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexandremahdhaoui/nvp-probe/internal/util/logging"
)

func restoreDefaultLogger(t *testing.T) {
	t.Helper()

	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })
}

func TestSetup(t *testing.T) {
	tests := []struct {
		name        string
		opts        logging.Options
		expectError bool
		debug       bool
	}{
		{name: "defaults", opts: logging.DefaultOptions()},
		{name: "development debug", opts: logging.Options{Development: true, Level: "debug"}, debug: true},
		{name: "warn", opts: logging.Options{Level: "WARN"}},
		{name: "invalid level", opts: logging.Options{Level: "verbose"}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			restoreDefaultLogger(t)

			tt.opts.Output = new(bytes.Buffer)
			logger, err := logging.Setup(tt.opts)

			if tt.expectError {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.debug, logger.V(1).Enabled())
		})
	}
}

func TestSetup_SlogLevels(t *testing.T) {
	tests := []struct {
		level       string
		development bool
		expectDebug bool
		expectInfo  bool
		expectWarn  bool
	}{
		{level: "debug", expectDebug: true, expectInfo: true, expectWarn: true},
		{level: "debug", development: true, expectDebug: true, expectInfo: true, expectWarn: true},
		{level: "info", expectInfo: true, expectWarn: true},
		{level: "warn", expectWarn: true},
		{level: "warning", development: true, expectWarn: true},
		{level: "error"},
	}

	for _, tt := range tests {
		name := tt.level
		if tt.development {
			name += " development"
		}

		t.Run(name, func(t *testing.T) {
			restoreDefaultLogger(t)

			buf := new(bytes.Buffer)
			_, err := logging.Setup(logging.Options{Development: tt.development, Level: tt.level, Output: buf})
			require.NoError(t, err)

			slog.Debug("debug record")
			slog.Info("info record")
			slog.Warn("warn record")

			assert.Equal(t, tt.expectDebug, bytes.Contains(buf.Bytes(), []byte("debug record")), buf.String())
			assert.Equal(t, tt.expectInfo, bytes.Contains(buf.Bytes(), []byte("info record")), buf.String())
			assert.Equal(t, tt.expectWarn, bytes.Contains(buf.Bytes(), []byte("warn record")), buf.String())
		})
	}
}

func TestSetup_LogrLevels(t *testing.T) {
	restoreDefaultLogger(t)

	buf := new(bytes.Buffer)
	logger, err := logging.Setup(logging.Options{Level: "debug", Output: buf})
	require.NoError(t, err)

	logger.V(1).Info("verbose record")
	logger.V(2).Info("too verbose record")
	logger.Error(nil, "error record")

	assert.Contains(t, buf.String(), "verbose record")
	assert.NotContains(t, buf.String(), "too verbose record")
	assert.Contains(t, buf.String(), "error record")
}
