// Package issuance runs the certificate request pipeline: token, domain
// validation, DNS challenge, propagation check, order, export.
package issuance

import (
	"context"
	"fmt"
	"io/ioutil"
	"time"

	"github.com/timcappalli/certcenter-cert-request/certcenter"
	"github.com/timcappalli/certcenter-cert-request/config"
	"github.com/timcappalli/certcenter-cert-request/dnscheck"
	"github.com/timcappalli/certcenter-cert-request/export"
	"github.com/timcappalli/certcenter-cert-request/provision"

	"gitlab.com/z0mbie42/rz-go/v2"
	"gitlab.com/z0mbie42/rz-go/v2/log"
)

// Request identifies one certificate to obtain.
type Request struct {
	FQDN         string
	CSRFile      string
	ValidityDays int
}

type Service struct {
	Client  *certcenter.Client
	Checker *dnscheck.Checker

	validityDays int
	provisioners []*config.BackendConfig
	exporters    []*config.BackendConfig
	outputDir    string
}

func New(
	cfg *config.Config,
) *Service {
	return &Service{
		validityDays: cfg.CertCenter.ValidityDays,
		Client: certcenter.New(
			certcenter.DefaultBaseURL,
			cfg.CertCenter.ClientID,
			cfg.CertCenter.ClientSecret,
			cfg.CertCenter.ProductCode,
			cfg.CertCenter.TokenCache,
		),
		Checker: dnscheck.New(
			cfg.DNS.Resolver,
			time.Duration(cfg.DNS.InitialDelaySeconds)*time.Second,
			time.Duration(cfg.DNS.PollIntervalSeconds)*time.Second,
			cfg.DNS.MaxAttempts,
		),
		provisioners: cfg.Provisioners,
		exporters:    cfg.Exporters,
		outputDir:    cfg.OutputDir,
	}
}

func (s *Service) provisionRecord(
	fqdn string,
	details *certcenter.DNSAuthDetails,
) error {
	provisioners := s.provisioners
	if len(provisioners) == 0 {
		provisioners = []*config.BackendConfig{{Type: "manual"}}
	}

	for _, p := range provisioners {
		log.Debug(
			"Attempting provisioner",
			rz.String("provisioner_type", p.Type),
		)
		pb, err := provision.InitBackend(p.Type)
		if err != nil {
			return err
		}
		if err := pb.Configure(p.Config); err != nil {
			return fmt.Errorf("configuring provisioner '%s': %v", p.Type, err)
		}
		if err := pb.ProvisionTXT(
			fqdn,
			details.DNSValue,
			details.Example,
		); err != nil {
			return fmt.Errorf("provisioner '%s': %v", p.Type, err)
		}
	}

	return nil
}

func (s *Service) exportResult(
	fqdn string,
	fulfillment *certcenter.Fulfillment,
) error {
	// The file exporter always runs; its failure is fatal since the two
	// PEM files are the primary output.
	fb, err := export.InitBackend("file")
	if err != nil {
		return err
	}
	if err := fb.Configure(map[string]interface{}{
		"output_dir": s.outputDir,
	}); err != nil {
		return err
	}
	if err := fb.Export(fqdn, fulfillment); err != nil {
		return err
	}

	// Additional exporters are best-effort.
	for _, exporter := range s.exporters {
		log.Debug(
			"Attempting exporter",
			rz.String("exporter_type", exporter.Type),
		)
		eb, err := export.InitBackend(exporter.Type)
		if err != nil {
			log.Warn(
				"Error initializing exporter backend",
				rz.Err(err),
				rz.String("exporter_type", exporter.Type),
			)
			continue
		}

		if err := eb.Configure(exporter.Config); err != nil {
			log.Warn(
				"Error configuring exporter backend",
				rz.Err(err),
				rz.String("exporter_type", exporter.Type),
			)
			continue
		}

		if err := eb.Export(fqdn, fulfillment); err != nil {
			log.Warn(
				"Error during export",
				rz.Err(err),
				rz.String("exporter_type", exporter.Type),
			)
			continue
		}
	}

	return nil
}

// DoCertificate runs the full pipeline for one request and returns the
// fulfillment on success.
func (s *Service) DoCertificate(
	ctx context.Context,
	req Request,
) (
	*certcenter.Fulfillment,
	error,
) {
	validityDays := req.ValidityDays
	if validityDays == 0 {
		validityDays = s.validityDays
	}

	csrBytes, err := ioutil.ReadFile(req.CSRFile)
	if err != nil {
		log.Error(
			"Error reading CSR file",
			rz.Err(err),
			rz.String("path", req.CSRFile),
		)
		return nil, err
	}
	// The CSR is opaque text, passed through to the CA unmodified.
	csrText := string(csrBytes)

	log.Info(
		"Getting access token",
		rz.String("fqdn", req.FQDN),
	)
	if _, err := s.Client.Token(ctx); err != nil {
		return nil, err
	}

	log.Info(
		"Validating domain",
		rz.String("fqdn", req.FQDN),
	)
	if err := s.Client.ValidateName(ctx, req.FQDN); err != nil {
		return nil, err
	}

	log.Info(
		"Getting domain validation information",
		rz.String("fqdn", req.FQDN),
	)
	details, err := s.Client.DNSData(ctx, csrText)
	if err != nil {
		return nil, err
	}

	if err := s.provisionRecord(req.FQDN, details); err != nil {
		return nil, err
	}

	log.Info(
		"Verifying DNS record propagation",
		rz.String("fqdn", req.FQDN),
	)
	if err := s.Checker.WaitForMatch(ctx, req.FQDN, details.DNSValue); err != nil {
		return nil, err
	}

	log.Info(
		"Requesting certificate",
		rz.String("fqdn", req.FQDN),
		rz.Int("validity_days", validityDays),
	)
	fulfillment, err := s.Client.Order(ctx, csrText, validityDays)
	if err != nil {
		return nil, err
	}

	log.Info(
		"Exporting certificate",
		rz.String("fqdn", req.FQDN),
	)
	if err := s.exportResult(req.FQDN, fulfillment); err != nil {
		return nil, err
	}

	return fulfillment, nil
}
