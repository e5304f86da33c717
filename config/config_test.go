package config

import (
	"strings"
	"testing"
)

const validConfigYAML = `
certcenter:
  client_id: "client-id"
  client_secret: "client-secret"
  product_code: "AlwaysOnSSL.AlwaysOnSSL"
dns:
  resolver: "1.1.1.1:53"
provisioners:
  - type: aws-route53
    config:
      zone_id: "Z123"
exporters:
  - type: aws-sns
    config:
      region: "eu-west-1"
      topic_arn: "arn:aws:sns:eu-west-1:123456789012:certs"
`

func TestParseDefaults(
	t *testing.T,
) {
	cfg, err := Parse([]byte(validConfigYAML))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if cfg.CertCenter.TokenCache != "token.json" {
		t.Errorf("Unexpected token cache default: %s", cfg.CertCenter.TokenCache)
	}
	if cfg.CertCenter.ValidityDays != 365 {
		t.Errorf("Unexpected validity default: %d", cfg.CertCenter.ValidityDays)
	}
	if cfg.DNS.Resolver != "1.1.1.1:53" {
		t.Errorf("Resolver not taken from config: %s", cfg.DNS.Resolver)
	}
	if cfg.DNS.InitialDelaySeconds != 30 {
		t.Errorf("Unexpected initial delay default: %d", cfg.DNS.InitialDelaySeconds)
	}
	if cfg.DNS.PollIntervalSeconds != 30 {
		t.Errorf("Unexpected poll interval default: %d", cfg.DNS.PollIntervalSeconds)
	}
	if cfg.DNS.MaxAttempts != 20 {
		t.Errorf("Unexpected max attempts default: %d", cfg.DNS.MaxAttempts)
	}
	if cfg.OutputDir != "." {
		t.Errorf("Unexpected output dir default: %s", cfg.OutputDir)
	}

	if len(cfg.Provisioners) != 1 || cfg.Provisioners[0].Type != "aws-route53" {
		t.Errorf("Unexpected provisioners: %+v", cfg.Provisioners)
	}
	if zoneId, ok := cfg.Provisioners[0].Config["zone_id"]; !ok || zoneId != "Z123" {
		t.Errorf("Unexpected provisioner config: %+v", cfg.Provisioners[0].Config)
	}
	if len(cfg.Exporters) != 1 || cfg.Exporters[0].Type != "aws-sns" {
		t.Errorf("Unexpected exporters: %+v", cfg.Exporters)
	}
}

type parseErrorTestCase struct {
	name        string
	yaml        string
	errContains string
}

var parseErrorTestCases = []parseErrorTestCase{
	{
		name: "missing credentials",
		yaml: `
certcenter:
  product_code: "X"
`,
		errContains: "client_id or client_secret",
	},
	{
		name: "missing product code",
		yaml: `
certcenter:
  client_id: "a"
  client_secret: "b"
`,
		errContains: "product_code",
	},
	{
		name: "validity out of range",
		yaml: `
certcenter:
  client_id: "a"
  client_secret: "b"
  product_code: "X"
  validity_days: 366
`,
		errContains: "validity_days",
	},
	{
		name: "provisioner without type",
		yaml: `
certcenter:
  client_id: "a"
  client_secret: "b"
  product_code: "X"
provisioners:
  - config:
      zone_id: "Z"
`,
		errContains: "provisioner",
	},
	{
		name: "domain without csr_file",
		yaml: `
certcenter:
  client_id: "a"
  client_secret: "b"
  product_code: "X"
domains:
  - fqdn: "www.example.com"
`,
		errContains: "csr_file",
	},
}

func TestParseErrors(
	t *testing.T,
) {
	for _, tc := range parseErrorTestCases {
		_, err := Parse([]byte(tc.yaml))
		if err == nil {
			t.Errorf("%s: expected error, got none", tc.name)
			continue
		}
		if !strings.Contains(err.Error(), tc.errContains) {
			t.Errorf("%s: error %q does not mention %q", tc.name, err, tc.errContains)
		}
	}
}
