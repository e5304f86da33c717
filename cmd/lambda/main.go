// Lambda entrypoint: runs the request pipeline for every configured domain
// on a CloudWatch schedule. Requires a non-interactive provisioner such as
// aws-route53 in the configuration.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/timcappalli/certcenter-cert-request/config"
	_ "github.com/timcappalli/certcenter-cert-request/export/backends"
	"github.com/timcappalli/certcenter-cert-request/issuance"
	_ "github.com/timcappalli/certcenter-cert-request/provision/backends"

	"gitlab.com/z0mbie42/rz-go/v2"
	"gitlab.com/z0mbie42/rz-go/v2/log"
)

const defaultLogLevel = rz.InfoLevel

var configFile string

func init() {
	var ok bool
	configFile, ok = os.LookupEnv("CONFIG_FILE")
	if !ok {
		panic("Environment variable 'CONFIG_FILE' not set")
	}
}

func handleScheduledEvent(
	ctx context.Context,
	evt events.CloudWatchEvent,
) (
	interface{},
	error,
) {
	cfg, err := config.Load(configFile)
	if err != nil {
		log.Error(
			"Error loading configuration",
			rz.Err(err),
			rz.String("path", configFile),
		)
		return nil, err
	}

	if len(cfg.Domains) == 0 {
		log.Info("No domains configured; nothing to do")
		return nil, nil
	}

	for _, p := range cfg.Provisioners {
		if p.Type == "manual" {
			return nil, fmt.Errorf(
				"the manual provisioner cannot run under Lambda",
			)
		}
	}
	if len(cfg.Provisioners) == 0 {
		return nil, fmt.Errorf(
			"a DNS provisioner is required when running under Lambda",
		)
	}

	svc := issuance.New(cfg)

	// Iterate over certificates; one failure does not stop the rest.
	for _, domain := range cfg.Domains {
		log.Info(
			"Requesting certificate",
			rz.String("fqdn", domain.FQDN),
		)
		if _, err := svc.DoCertificate(ctx, issuance.Request{
			FQDN:         domain.FQDN,
			CSRFile:      domain.CSRFile,
			ValidityDays: domain.ValidityDays,
		}); err != nil {
			log.Warn(
				"Error requesting certificate",
				rz.Err(err),
				rz.String("fqdn", domain.FQDN),
			)
			continue
		}
	}

	return nil, nil
}

func main() {
	log.SetLogger(log.With(
		rz.Level(defaultLogLevel),
		rz.Fields(
			rz.Timestamp(true),
		),
	))

	if logLevelString, ok := os.LookupEnv("LOG_LEVEL"); ok {
		if logLevel, err := rz.ParseLevel(logLevelString); err == nil {
			log.SetLogger(log.With(
				rz.Level(logLevel),
			))
		}
	}

	lambda.Start(handleScheduledEvent)
}
