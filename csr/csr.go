// Package csr generates PKCS#10 certificate signing requests for use with
// the request pipeline.
package csr

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
)

const minRSAKeyBits = 2048

// Generate returns a PEM-encoded CSR and the matching PEM-encoded RSA
// private key. The first DNS name becomes the subject common name.
func Generate(
	keyBits int,
	dnsNames []string,
) (
	[]byte,
	[]byte,
	error,
) {
	if keyBits < minRSAKeyBits {
		return nil, nil, fmt.Errorf("key bits %d < %d", keyBits, minRSAKeyBits)
	}
	if len(dnsNames) == 0 {
		return nil, nil, fmt.Errorf("at least one DNS name is required")
	}

	privateKey, err := rsa.GenerateKey(rand.Reader, keyBits)
	if err != nil {
		return nil, nil, err
	}

	csrTemplate := x509.CertificateRequest{
		SignatureAlgorithm: x509.SHA256WithRSA,
		Subject: pkix.Name{
			CommonName: dnsNames[0],
		},
		DNSNames: dnsNames,
	}

	csrBytes, err := x509.CreateCertificateRequest(
		rand.Reader,
		&csrTemplate,
		privateKey,
	)
	if err != nil {
		return nil, nil, err
	}

	csrPEM := new(bytes.Buffer)
	if err := pem.Encode(csrPEM, &pem.Block{
		Type:  "CERTIFICATE REQUEST",
		Bytes: csrBytes,
	}); err != nil {
		return nil, nil, err
	}

	keyPEM := new(bytes.Buffer)
	if err := pem.Encode(keyPEM, &pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	}); err != nil {
		return nil, nil, err
	}

	return csrPEM.Bytes(), keyPEM.Bytes(), nil
}
