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

// Package certutil issues short-lived certificates for fake controller nodes and their clients.
package certutil

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"net"
	"time"
)

var (
	ErrGenerateKey   = errors.New("generating private key")
	ErrSignCert      = errors.New("signing certificate")
	ErrEncodeKeyPair = errors.New("encoding key pair")
)

const organization = "nvp-probe test only"

// ------------------------------------------------------- CA ------------------------------------------------------- //

// CA is a self-signed certificate authority.
type CA struct {
	key      *ecdsa.PrivateKey
	pool     *x509.CertPool
	rootCert *x509.Certificate
}

// NewCA creates a new CA valid for one hour.
func NewCA() (*CA, error) {
	serial, err := newSerial()
	if err != nil {
		return nil, errors.Join(err, ErrSignCert)
	}

	template := &x509.Certificate{
		Subject: pkix.Name{
			Organization: []string{organization},
			CommonName:   "nvp-probe test CA",
		},
		SerialNumber:          serial,
		NotBefore:             time.Now().Add(-1 * time.Hour),
		NotAfter:              time.Now().Add(1 * time.Hour),
		IsCA:                  true,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth, x509.ExtKeyUsageServerAuth},
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, errors.Join(err, ErrGenerateKey)
	}

	raw, err := x509.CreateCertificate(rand.Reader, template, template, key.Public(), key)
	if err != nil {
		return nil, errors.Join(err, ErrSignCert)
	}

	root, err := x509.ParseCertificate(raw)
	if err != nil {
		return nil, errors.Join(err, ErrSignCert)
	}

	pool := x509.NewCertPool()
	pool.AddCert(root)

	return &CA{
		key:      key,
		pool:     pool,
		rootCert: root,
	}, nil
}

// Pool returns a cert pool holding only the CA's root certificate.
func (ca *CA) Pool() *x509.CertPool {
	return ca.pool
}

// Cert returns the CA's root certificate in PEM format.
func (ca *CA) Cert() []byte {
	return certToPEM(ca.rootCert)
}

// ---------------------------------------------------- KEY PAIR ---------------------------------------------------- //

// KeyPair is a PEM encoded private key and the certificate the CA issued for it.
type KeyPair struct {
	KeyPEM  []byte
	CertPEM []byte

	Cert *x509.Certificate
}

// TLSCertificate returns the key pair as a tls.Certificate.
func (kp *KeyPair) TLSCertificate() (tls.Certificate, error) {
	return tls.X509KeyPair(kp.CertPEM, kp.KeyPEM)
}

// Issue signs a new key pair valid for server and client authentication.
//
// Each name is added as an IP SAN when it parses as an IP address and as a DNS SAN otherwise.
func (ca *CA) Issue(names ...string) (*KeyPair, error) {
	serial, err := newSerial()
	if err != nil {
		return nil, errors.Join(err, ErrSignCert)
	}

	template := &x509.Certificate{
		Subject: pkix.Name{
			Organization: []string{organization},
		},
		SerialNumber: serial,
		NotBefore:    time.Now().Add(-1 * time.Hour),
		NotAfter:     time.Now().Add(1 * time.Hour),
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth, x509.ExtKeyUsageServerAuth},
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}

	for _, name := range names {
		if ip := net.ParseIP(name); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
			continue
		}

		template.DNSNames = append(template.DNSNames, name)
	}

	if len(names) > 0 {
		template.Subject.CommonName = names[0]
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, errors.Join(err, ErrGenerateKey)
	}

	raw, err := x509.CreateCertificate(rand.Reader, template, ca.rootCert, key.Public(), ca.key)
	if err != nil {
		return nil, errors.Join(err, ErrSignCert)
	}

	cert, err := x509.ParseCertificate(raw)
	if err != nil {
		return nil, errors.Join(err, ErrSignCert)
	}

	keyPEM, err := privateKeyToPEM(key)
	if err != nil {
		return nil, errors.Join(err, ErrEncodeKeyPair)
	}

	return &KeyPair{
		KeyPEM:  keyPEM,
		CertPEM: certToPEM(cert),
		Cert:    cert,
	}, nil
}

func newSerial() (*big.Int, error) {
	return rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 62))
}

func privateKeyToPEM(key *ecdsa.PrivateKey) ([]byte, error) {
	kb, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("marshaling private key: %w", err)
	}

	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: kb}), nil
}

func certToPEM(cert *x509.Certificate) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})
}
