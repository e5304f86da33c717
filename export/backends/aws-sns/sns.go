package sns

import (
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sns"

	"github.com/mitchellh/mapstructure"

	"github.com/timcappalli/certcenter-cert-request/certcenter"
	"github.com/timcappalli/certcenter-cert-request/export"

	"gitlab.com/z0mbie42/rz-go/v2"
	"gitlab.com/z0mbie42/rz-go/v2/log"
)

type SNSConfig struct {
	Region   string `mapstructure:"region"`
	TopicArn string `mapstructure:"topic_arn"`
}

func init() {
	export.RegisterBackend("aws-sns", func() (export.Backend, error) {
		return &SNSExporterBackend{}, nil
	})
}

// SNSExporterBackend publishes an issuance notification; it never carries
// key material, only certificate metadata.
type SNSExporterBackend struct {
	config *SNSConfig
}

func (b *SNSExporterBackend) Configure(
	configData map[string]interface{},
) error {
	b.config = new(SNSConfig)
	if err := mapstructure.Decode(configData, b.config); err != nil {
		return err
	}

	return nil
}

func (b *SNSExporterBackend) Export(
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

	subject, message, err := makeSubjectAndBody(fqdn, fulfillment)
	if err != nil {
		log.Error(
			"Error making subject or body",
			rz.Err(err),
		)
		return err
	}

	svc := sns.New(sess, aws.NewConfig().WithRegion(b.config.Region))

	pParams := &sns.PublishInput{
		Message:  &message,
		Subject:  &subject,
		TopicArn: &b.config.TopicArn,
	}

	log.Debug(
		"Calling SNS.Publish",
		rz.String("topic_arn", b.config.TopicArn),
		rz.String("subject", subject),
	)
	pOutput, err := svc.Publish(pParams)
	if err != nil {
		log.Error(
			"Error calling SNS.Publish",
			rz.Err(err),
		)
		return err
	}

	log.Debug(
		"Published SNS notification",
		rz.Any("output", pOutput),
	)

	return nil
}
