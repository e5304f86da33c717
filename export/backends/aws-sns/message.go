package sns

import (
	"bytes"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"math/big"
	"strings"
	"text/template"

	"github.com/timcappalli/certcenter-cert-request/certcenter"
)

type certificateText struct {
	FQDN       string
	Subject    string
	Issuer     string
	Serial     string
	DNSNames   string
	NotBefore  string
	NotAfter   string
	Expiration string
}

const messageTemplate = `FQDN:              {{.FQDN}}
Subject:           {{.Subject}}
Issuer:            {{.Issuer}}
Serial:            {{.Serial}}
DNS names:         {{.DNSNames}}
Not valid before:  {{.NotBefore}}
Not valid after:   {{.NotAfter}}
Reported end date: {{.Expiration}}

Download the certificate and chain from one of the export targets defined in
your configuration file.
`

func formatSerial(
	serial *big.Int,
) string {
	var sb strings.Builder
	for i, b := range serial.Bytes() {
		if i > 0 {
			sb.WriteByte(':')
		}
		fmt.Fprintf(&sb, "%02x", b)
	}
	return sb.String()
}

func makeSubjectAndBody(
	fqdn string,
	fulfillment *certcenter.Fulfillment,
) (
	string,
	string,
	error,
) {
	pemBlock, _ := pem.Decode([]byte(fulfillment.Certificate))
	if pemBlock == nil || pemBlock.Type != "CERTIFICATE" {
		return "", "", fmt.Errorf("could not decode certificate PEM")
	}

	cert, err := x509.ParseCertificate(pemBlock.Bytes)
	if err != nil {
		return "", "", err
	}

	subject := fmt.Sprintf("Certificate ready: %s", fqdn)

	notBefore, err := cert.NotBefore.MarshalText()
	if err != nil {
		notBefore = []byte("N/A")
	}

	notAfter, err := cert.NotAfter.MarshalText()
	if err != nil {
		notAfter = []byte("N/A")
	}

	certText := &certificateText{
		FQDN:       fqdn,
		Subject:    cert.Subject.CommonName,
		Issuer:     cert.Issuer.CommonName,
		Serial:     formatSerial(cert.SerialNumber),
		DNSNames:   strings.Join(cert.DNSNames, ", "),
		NotBefore:  string(notBefore),
		NotAfter:   string(notAfter),
		Expiration: fulfillment.EndDate,
	}

	tmpl, err := template.New("message").Parse(messageTemplate)
	if err != nil {
		return "", "", err
	}

	messageBytes := new(bytes.Buffer)
	if err := tmpl.Execute(messageBytes, certText); err != nil {
		return "", "", err
	}

	return subject, messageBytes.String(), nil
}
