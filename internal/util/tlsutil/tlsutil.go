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

// Package tlsutil builds the TLS configuration used to talk to controller nodes.
package tlsutil

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
)

var (
	// ErrCertNotFound is returned when the client certificate file does not exist.
	ErrCertNotFound = errors.New("certificate file not found")
	// ErrKeyNotFound is returned when the client key file does not exist.
	ErrKeyNotFound = errors.New("key file not found")
	// ErrCANotFound is returned when the CA file does not exist.
	ErrCANotFound = errors.New("CA file not found")
	// ErrIncompleteKeyPair is returned when only one of the client certificate and key is set.
	ErrIncompleteKeyPair = errors.New("client certificate and key must be set together")
	// ErrLoadCertFailed is returned when loading the client certificate fails.
	ErrLoadCertFailed = errors.New("failed to load certificate")
	// ErrLoadCAFailed is returned when reading the CA file fails.
	ErrLoadCAFailed = errors.New("failed to load CA file")
	// ErrParseCAFailed is returned when the CA file holds no usable certificate.
	ErrParseCAFailed = errors.New("failed to parse CA certificate")
)

// ClientConfig holds the TLS parameters used when dialing controller nodes.
//
// The zero value verifies server certificates against the system roots.
type ClientConfig struct {
	// InsecureSkipVerify disables server certificate verification.
	// It must be set explicitly; nothing in this package turns it on.
	InsecureSkipVerify bool `json:"insecureSkipVerify"`
	// CAPath is a PEM bundle used instead of the system roots.
	CAPath string `json:"caPath"`
	// ClientCertPath is the client certificate presented to the controller.
	ClientCertPath string `json:"clientCertPath"`
	// ClientKeyPath is the private key of ClientCertPath.
	ClientKeyPath string `json:"clientKeyPath"`
	// ServerName overrides the name used to verify the server certificate.
	ServerName string `json:"serverName"`
}

// BuildClientTLSConfig builds a tls.Config from the provided configuration.
//
// A nil config yields a verifying tls.Config using the system roots.
// Returns an error if:
//   - CAPath is set but does not exist, cannot be read or holds no certificate
//   - only one of ClientCertPath and ClientKeyPath is set
//   - ClientCertPath or ClientKeyPath does not exist
//   - the client key pair cannot be loaded
func BuildClientTLSConfig(config *ClientConfig) (*tls.Config, error) {
	tlsConfig := &tls.Config{ //nolint:exhaustruct
		MinVersion: tls.VersionTLS12,
	}

	if config == nil {
		return tlsConfig, nil
	}

	tlsConfig.ServerName = config.ServerName
	tlsConfig.InsecureSkipVerify = config.InsecureSkipVerify //nolint:gosec // opt-in only

	if config.CAPath != "" {
		pool, err := loadCAPool(config.CAPath)
		if err != nil {
			return nil, err
		}

		tlsConfig.RootCAs = pool
	}

	if (config.ClientCertPath == "") != (config.ClientKeyPath == "") {
		return nil, ErrIncompleteKeyPair
	}

	if config.ClientCertPath != "" {
		if _, err := os.Stat(config.ClientCertPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrCertNotFound, config.ClientCertPath)
		}

		if _, err := os.Stat(config.ClientKeyPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, config.ClientKeyPath)
		}

		cert, err := tls.LoadX509KeyPair(config.ClientCertPath, config.ClientKeyPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadCertFailed, err)
		}

		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	return tlsConfig, nil
}

func loadCAPool(path string) (*x509.CertPool, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrCANotFound, path)
	}

	caBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadCAFailed, err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caBytes) {
		return nil, fmt.Errorf("%w: %s", ErrParseCAFailed, path)
	}

	return pool, nil
}
