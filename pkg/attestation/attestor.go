// Copyright (c) 2026 Jeremy Hahn
// Copyright (c) 2026 Automate The Things, LLC
//
// This file is part of go-softu2f.
//
// go-softu2f is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package attestation wraps the device attestation keypair and certificate.
// The attestation key signs registration responses only, proving to relying
// parties that credentials were generated by this token; authentication
// responses are signed with per-application keys and never touch it.
package attestation

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"os"
	"time"
)

const (
	// DefaultCommonName is the subject common name for generated
	// attestation certificates.
	DefaultCommonName = "SoftU2F Attestation"

	// DefaultOrganization is the subject organization for generated
	// attestation certificates.
	DefaultOrganization = "go-softu2f"

	// defaultValidityYears is the validity period of generated
	// attestation certificates.
	defaultValidityYears = 25
)

// Attestor holds the process-lifetime attestation key and certificate and
// signs registration payloads. It is immutable after construction and safe
// for concurrent use.
type Attestor struct {
	privateKey *ecdsa.PrivateKey
	certDER    []byte
}

// New creates an attestor from an existing P-256 key and DER certificate.
// The certificate's public key must match the private key.
func New(privateKey *ecdsa.PrivateKey, certDER []byte) (*Attestor, error) {
	if privateKey == nil {
		return nil, ErrSigningUnavailable
	}

	cert, err := x509.ParseCertificate(certDER)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCertificateInvalid, err)
	}

	certPub, ok := cert.PublicKey.(*ecdsa.PublicKey)
	if !ok || !certPub.Equal(&privateKey.PublicKey) {
		return nil, fmt.Errorf("%w: certificate does not match private key", ErrCertificateInvalid)
	}

	return &Attestor{
		privateKey: privateKey,
		certDER:    certDER,
	}, nil
}

// LoadFromPEM creates an attestor from PEM encoded key and certificate
// files, as provisioned at device setup time. A load failure is fatal for
// registration; the token must not start handing out unattestable
// credentials.
func LoadFromPEM(keyPath, certPath string) (*Attestor, error) {
	keyPEM, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read key file: %v", ErrSigningUnavailable, err)
	}

	keyBlock, _ := pem.Decode(keyPEM)
	if keyBlock == nil {
		return nil, fmt.Errorf("%w: no PEM block in key file", ErrSigningUnavailable)
	}

	privateKey, err := parsePrivateKey(keyBlock)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSigningUnavailable, err)
	}

	certPEM, err := os.ReadFile(certPath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read certificate file: %v", ErrCertificateInvalid, err)
	}

	certBlock, _ := pem.Decode(certPEM)
	if certBlock == nil || certBlock.Type != "CERTIFICATE" {
		return nil, fmt.Errorf("%w: no certificate PEM block", ErrCertificateInvalid)
	}

	return New(privateKey, certBlock.Bytes)
}

// parsePrivateKey accepts EC PRIVATE KEY (SEC1) and PRIVATE KEY (PKCS#8)
// blocks containing a P-256 key.
func parsePrivateKey(block *pem.Block) (*ecdsa.PrivateKey, error) {
	switch block.Type {
	case "EC PRIVATE KEY":
		return x509.ParseECPrivateKey(block.Bytes)
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		ecKey, ok := key.(*ecdsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("attestation key must be ECDSA, got %T", key)
		}
		return ecKey, nil
	default:
		return nil, fmt.Errorf("unsupported PEM block type %q", block.Type)
	}
}

// GenerateSelfSigned creates a fresh attestation keypair and self-signed
// certificate. Intended for development and tests; production tokens are
// provisioned with a vendor certificate chain.
func GenerateSelfSigned() (*Attestor, error) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to generate attestation key: %v", ErrSigningUnavailable, err)
	}

	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to generate serial number: %v", ErrSigningUnavailable, err)
	}

	template := &x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			CommonName:   DefaultCommonName,
			Organization: []string{DefaultOrganization},
		},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().AddDate(defaultValidityYears, 0, 0),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
	}

	certDER, err := x509.CreateCertificate(rand.Reader, template, template, &privateKey.PublicKey, privateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create attestation certificate: %v", ErrCertificateInvalid, err)
	}

	return &Attestor{
		privateKey: privateKey,
		certDER:    certDER,
	}, nil
}

// SignAttestation signs data with the attestation private key, returning an
// ASN.1 DER encoded ECDSA signature over the SHA-256 digest of data.
func (a *Attestor) SignAttestation(data []byte) ([]byte, error) {
	if a.privateKey == nil {
		return nil, ErrSigningUnavailable
	}

	digest := sha256.Sum256(data)
	signature, err := ecdsa.SignASN1(rand.Reader, a.privateKey, digest[:])
	if err != nil {
		return nil, fmt.Errorf("attestation: signing failed: %w", err)
	}
	return signature, nil
}

// Certificate returns the DER encoded attestation certificate.
func (a *Attestor) Certificate() []byte {
	cert := make([]byte, len(a.certDER))
	copy(cert, a.certDER)
	return cert
}

// PublicKey returns the attestation public key, used by relying parties
// (and tests) to verify registration signatures.
func (a *Attestor) PublicKey() *ecdsa.PublicKey {
	return &a.privateKey.PublicKey
}
