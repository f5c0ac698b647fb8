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

package testutil_test

import (
	"crypto/x509"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexandremahdhaoui/nvp-probe/internal/util/testutil"
)

// TestWriteCAFile verifies the written CA file can be loaded into a cert pool.
func TestWriteCAFile(t *testing.T) {
	ca := testutil.NewCA(t)

	path := testutil.WriteCAFile(t, ca, t.TempDir())

	b, err := os.ReadFile(path)
	require.NoError(t, err)

	pool := x509.NewCertPool()
	assert.True(t, pool.AppendCertsFromPEM(b))
}

// TestWriteKeyPairFiles verifies both files are written with the expected permissions.
func TestWriteKeyPairFiles(t *testing.T) {
	ca := testutil.NewCA(t)
	kp := testutil.IssueKeyPair(t, ca, "127.0.0.1")

	certPath, keyPath := testutil.WriteKeyPairFiles(t, kp, t.TempDir())

	certInfo, err := os.Stat(certPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), certInfo.Mode().Perm())

	keyInfo, err := os.Stat(keyPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), keyInfo.Mode().Perm())
}

// TestNewTransportZones verifies hrefs are derived from the uuids, in order.
func TestNewTransportZones(t *testing.T) {
	zones := testutil.NewTransportZones("abc", "def")

	require.Len(t, zones, 2)
	assert.Equal(t, "abc", zones[0].UUID)
	assert.Equal(t, "/ws.v1/transport-zone/abc", zones[0].Href)
	assert.Equal(t, "/ws.v1/transport-zone/def", zones[1].Href)
}
