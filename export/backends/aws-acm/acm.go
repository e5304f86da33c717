package acm

import (
	"fmt"
	"io/ioutil"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/acm"

	"github.com/mitchellh/mapstructure"

	"github.com/timcappalli/certcenter-cert-request/certcenter"
	"github.com/timcappalli/certcenter-cert-request/export"

	"gitlab.com/z0mbie42/rz-go/v2"
	"gitlab.com/z0mbie42/rz-go/v2/log"
)

// ACM imports need the private key matching the CSR, which this tool never
// generates, so the key file is part of the backend config.
type ACMConfig struct {
	Region         string `mapstructure:"region"`
	CertificateArn string `mapstructure:"certificate_arn"`
	PrivateKeyFile string `mapstructure:"private_key_file"`
}

func init() {
	export.RegisterBackend("aws-acm", func() (export.Backend, error) {
		return &ACMExporterBackend{}, nil
	})
}

type ACMExporterBackend struct {
	config *ACMConfig
}

func (b *ACMExporterBackend) Configure(
	configData map[string]interface{},
) error {
	b.config = new(ACMConfig)
	if err := mapstructure.Decode(configData, b.config); err != nil {
		return err
	}
	if b.config.PrivateKeyFile == "" {
		return fmt.Errorf("aws-acm exporter requires private_key_file")
	}

	return nil
}

func (b *ACMExporterBackend) Export(
	fqdn string,
	fulfillment *certcenter.Fulfillment,
) error {
	privKeyBytes, err := ioutil.ReadFile(b.config.PrivateKeyFile)
	if err != nil {
		log.Error(
			"Error reading private key file",
			rz.Err(err),
			rz.String("path", b.config.PrivateKeyFile),
		)
		return err
	}

	sess, err := session.NewSession()
	if err != nil {
		log.Error(
			"Error starting AWS session",
			rz.Err(err),
		)
		return err
	}

	svc := acm.New(sess, aws.NewConfig().WithRegion(b.config.Region))

	icParams := &acm.ImportCertificateInput{
		Certificate:      []byte(fulfillment.Certificate),
		CertificateChain: []byte(fulfillment.Intermediate),
		PrivateKey:       privKeyBytes,
	}
	if b.config.CertificateArn != "" {
		icParams.CertificateArn = &b.config.CertificateArn
	}

	log.Debug(
		"Calling ACM.ImportCertificate",
		rz.String("fqdn", fqdn),
	)
	if _, err := svc.ImportCertificate(icParams); err != nil {
		log.Error(
			"Error calling ACM.ImportCertificate",
			rz.Err(err),
		)
		return err
	}

	return nil
}
