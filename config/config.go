package config

import (
	"fmt"
	"io/ioutil"

	"gopkg.in/yaml.v2"

	"gitlab.com/z0mbie42/rz-go/v2"
	"gitlab.com/z0mbie42/rz-go/v2/log"
)

const (
	defaultTokenCache          = "token.json"
	defaultValidityDays        = 365
	defaultResolver            = "8.8.8.8:53"
	defaultInitialDelaySeconds = 30
	defaultPollIntervalSeconds = 30
	defaultMaxAttempts         = 20
	defaultOutputDir           = "."
)

type CertCenterConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	ProductCode  string `yaml:"product_code"`
	ValidityDays int    `yaml:"validity_days"`
	TokenCache   string `yaml:"token_cache"`
}

type DNSConfig struct {
	Resolver            string `yaml:"resolver"`
	InitialDelaySeconds int    `yaml:"initial_delay_seconds"`
	PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
	MaxAttempts         int    `yaml:"max_attempts"`
}

// BackendConfig selects a provisioner or exporter backend by type name. The
// opaque config map is decoded by the backend itself.
type BackendConfig struct {
	Type   string                 `yaml:"type"`
	Config map[string]interface{} `yaml:"config"`
}

// DomainConfig is one certificate request entry, used by the scheduled
// (Lambda) entrypoint.
type DomainConfig struct {
	FQDN         string `yaml:"fqdn"`
	CSRFile      string `yaml:"csr_file"`
	ValidityDays int    `yaml:"validity_days"`
}

type Config struct {
	CertCenter   CertCenterConfig `yaml:"certcenter"`
	DNS          DNSConfig        `yaml:"dns"`
	Provisioners []*BackendConfig `yaml:"provisioners"`
	Exporters    []*BackendConfig `yaml:"exporters"`
	OutputDir    string           `yaml:"output_dir"`
	Domains      []*DomainConfig  `yaml:"domains"`
}

func Parse(
	configBytes []byte,
) (
	*Config,
	error,
) {
	var cfg Config
	if err := yaml.Unmarshal(configBytes, &cfg); err != nil {
		log.Error(
			"Error unmarshalling configuration YAML",
			rz.Err(err),
		)
		return nil, err
	}

	// Set defaults.
	if cfg.CertCenter.TokenCache == "" {
		cfg.CertCenter.TokenCache = defaultTokenCache
	}
	if cfg.CertCenter.ValidityDays == 0 {
		cfg.CertCenter.ValidityDays = defaultValidityDays
	}
	if cfg.DNS.Resolver == "" {
		cfg.DNS.Resolver = defaultResolver
	}
	if cfg.DNS.InitialDelaySeconds == 0 {
		cfg.DNS.InitialDelaySeconds = defaultInitialDelaySeconds
	}
	if cfg.DNS.PollIntervalSeconds == 0 {
		cfg.DNS.PollIntervalSeconds = defaultPollIntervalSeconds
	}
	if cfg.DNS.MaxAttempts == 0 {
		cfg.DNS.MaxAttempts = defaultMaxAttempts
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = defaultOutputDir
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	log.Debug(
		"Got configuration",
		rz.Any("configuration", cfg),
	)

	return &cfg, nil
}

func Load(
	path string,
) (
	*Config,
	error,
) {
	configBytes, err := ioutil.ReadFile(path)
	if err != nil {
		log.Error(
			"Error reading configuration file",
			rz.Err(err),
			rz.String("path", path),
		)
		return nil, err
	}

	return Parse(configBytes)
}

func validate(
	cfg *Config,
) error {
	if cfg.CertCenter.ClientID == "" || cfg.CertCenter.ClientSecret == "" {
		return fmt.Errorf("client_id or client_secret not defined in config file")
	}
	if cfg.CertCenter.ProductCode == "" {
		return fmt.Errorf("product_code not defined in config file")
	}
	if cfg.CertCenter.ValidityDays < 1 || cfg.CertCenter.ValidityDays > 365 {
		return fmt.Errorf(
			"validity_days %d outside range 1-365",
			cfg.CertCenter.ValidityDays,
		)
	}
	for _, p := range cfg.Provisioners {
		if p.Type == "" {
			return fmt.Errorf("provisioner entry is missing a type")
		}
	}
	for _, e := range cfg.Exporters {
		if e.Type == "" {
			return fmt.Errorf("exporter entry is missing a type")
		}
	}
	for _, d := range cfg.Domains {
		if d.FQDN == "" || d.CSRFile == "" {
			return fmt.Errorf("domain entry is missing fqdn or csr_file")
		}
	}
	return nil
}
