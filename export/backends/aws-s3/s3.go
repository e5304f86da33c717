package s3

import (
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/mitchellh/mapstructure"

	"github.com/timcappalli/certcenter-cert-request/certcenter"
	"github.com/timcappalli/certcenter-cert-request/export"

	"gitlab.com/z0mbie42/rz-go/v2"
	"gitlab.com/z0mbie42/rz-go/v2/log"
)

type S3Config struct {
	Region      string `mapstructure:"region"`
	Bucket      string `mapstructure:"bucket"`
	Prefix      string `mapstructure:"prefix"`
	SSEKMSKeyID string `mapstructure:"sse_kms_key_id"`
}

func init() {
	export.RegisterBackend("aws-s3", func() (export.Backend, error) {
		return &S3ExporterBackend{}, nil
	})
}

type S3ExporterBackend struct {
	config *S3Config
}

func (b *S3ExporterBackend) Configure(
	configData map[string]interface{},
) error {
	b.config = new(S3Config)
	if err := mapstructure.Decode(configData, b.config); err != nil {
		return err
	}

	return nil
}

func (b *S3ExporterBackend) Export(
	fqdn string,
	fulfillment *certcenter.Fulfillment,
) error {
	sess, err := session.NewSession()
	if err != nil {
		log.Error(
			"Error starting AWS session",
			rz.Err(err),
		)
		return err
	}

	svc := s3.New(sess, aws.NewConfig().WithRegion(b.config.Region))

	// Store the result files to the target S3 bucket and prefix. The
	// material is already PEM/PKCS7 text, so it is uploaded as-is.
	for _, f := range []struct {
		Key  string
		Body string
	}{
		{
			b.config.Prefix + fqdn + "_cert.pem",
			fulfillment.Certificate,
		},
		{
			b.config.Prefix + fqdn + "_cert-chained.pem",
			fulfillment.Certificate + "\n" + fulfillment.Intermediate,
		},
		{
			b.config.Prefix + fqdn + "_cert.p7b",
			fulfillment.CertificatePKCS7,
		},
	} {
		if f.Body == "" {
			log.Debug(
				"Skipping empty object",
				rz.String("s3_key", f.Key),
			)
			continue
		}

		poParams := &s3.PutObjectInput{
			Body:   strings.NewReader(f.Body),
			Bucket: &b.config.Bucket,
			Key:    aws.String(f.Key),
		}
		if b.config.SSEKMSKeyID != "" {
			poParams = poParams.SetServerSideEncryption("aws:kms")
			poParams = poParams.SetSSEKMSKeyId(b.config.SSEKMSKeyID)
		}
		if _, err := svc.PutObject(poParams); err != nil {
			log.Error(
				"Error calling PutObject",
				rz.Err(err),
				rz.String("s3_bucket", b.config.Bucket),
				rz.String("s3_key", f.Key),
			)
			return err
		}
	}

	return nil
}
