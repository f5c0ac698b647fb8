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

package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alexandremahdhaoui/nvp-probe/internal/util/certutil"
)

// NewCA creates a test CA or fails the test.
func NewCA(t *testing.T) *certutil.CA {
	t.Helper()

	ca, err := certutil.NewCA()
	if err != nil {
		t.Fatalf("creating test CA: %v", err)
	}

	return ca
}

// IssueKeyPair issues a key pair for the given names or fails the test.
func IssueKeyPair(t *testing.T, ca *certutil.CA, names ...string) *certutil.KeyPair {
	t.Helper()

	kp, err := ca.Issue(names...)
	if err != nil {
		t.Fatalf("issuing key pair for %v: %v", names, err)
	}

	return kp
}

// WriteCAFile writes the CA certificate into dir and returns its path.
func WriteCAFile(t *testing.T, ca *certutil.CA, dir string) string {
	t.Helper()

	path := filepath.Join(dir, "ca.crt")
	if err := os.WriteFile(path, ca.Cert(), 0o644); err != nil {
		t.Fatalf("writing CA file: %v", err)
	}

	return path
}

// WriteKeyPairFiles writes a certificate and its private key into dir and returns their paths.
func WriteKeyPairFiles(t *testing.T, kp *certutil.KeyPair, dir string) (certPath, keyPath string) {
	t.Helper()

	certPath = filepath.Join(dir, "tls.crt")
	keyPath = filepath.Join(dir, "tls.key")

	if err := os.WriteFile(certPath, kp.CertPEM, 0o644); err != nil {
		t.Fatalf("writing certificate: %v", err)
	}

	if err := os.WriteFile(keyPath, kp.KeyPEM, 0o600); err != nil {
		t.Fatalf("writing private key: %v", err)
	}

	return certPath, keyPath
}
