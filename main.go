package main

import (
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/timcappalli/certcenter-cert-request/config"
	"github.com/timcappalli/certcenter-cert-request/csr"
	_ "github.com/timcappalli/certcenter-cert-request/export/backends"
	"github.com/timcappalli/certcenter-cert-request/issuance"
	_ "github.com/timcappalli/certcenter-cert-request/provision/backends"

	"gitlab.com/z0mbie42/rz-go/v2"
	"gitlab.com/z0mbie42/rz-go/v2/log"
)

const defaultLogLevel = rz.InfoLevel

var rootCmd = &cobra.Command{
	Use:   "request-cert",
	Short: "Request a DV TLS certificate from CertCenter using DNS validation",
	RunE:  runRequest,

	SilenceUsage: true,
}

var gencsrCmd = &cobra.Command{
	Use:   "gencsr <fqdn> [fqdn ...]",
	Short: "Generate an RSA key and PKCS#10 CSR for the given DNS names",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runGencsr,

	SilenceUsage: true,
}

var (
	flagFQDN      string
	flagCSRFile   string
	flagDays      int
	flagVerbose   bool
	flagConfig    string
	flagOutputDir string

	flagKeyBits int
	flagKeyOut  string
	flagCSROut  string
)

func init() {
	flags := rootCmd.Flags()
	flags.StringVarP(&flagFQDN, "fqdn", "f", "", "subject FQDN")
	flags.StringVarP(&flagCSRFile, "csr", "c", "", "CSR filename (PKCS#10)")
	flags.IntVarP(&flagDays, "days", "d", 0, "cert validity in days, 1-365 (optional)")
	flags.BoolVarP(&flagVerbose, "verbose", "v", false, "verbose logging")
	flags.StringVar(&flagConfig, "config", "config.yaml", "configuration file")
	flags.StringVarP(&flagOutputDir, "output-dir", "o", "", "directory for the output PEM files")
	rootCmd.MarkFlagRequired("fqdn")
	rootCmd.MarkFlagRequired("csr")

	gcFlags := gencsrCmd.Flags()
	gcFlags.IntVar(&flagKeyBits, "key-bits", 2048, "RSA key size in bits")
	gcFlags.StringVar(&flagKeyOut, "key-out", "key.pem", "private key output file")
	gcFlags.StringVar(&flagCSROut, "csr-out", "csr.pem", "CSR output file")
	rootCmd.AddCommand(gencsrCmd)
}

func setupLogging(
	verbose bool,
) {
	level := defaultLogLevel
	if verbose {
		level = rz.DebugLevel
	}

	log.SetLogger(log.With(
		rz.Level(level),
		rz.Fields(
			rz.Timestamp(true),
		),
	))

	// LOG_LEVEL overrides both the default and --verbose.
	if logLevelString, ok := os.LookupEnv("LOG_LEVEL"); ok {
		if logLevel, err := rz.ParseLevel(logLevelString); err == nil {
			log.SetLogger(log.With(
				rz.Level(logLevel),
			))
		} else {
			log.Info(
				"Failed to parse log level string",
				rz.String("input_log_level_string", logLevelString),
				rz.String("environment_variable", "LOG_LEVEL"),
			)
		}
	}
}

func runRequest(
	cmd *cobra.Command,
	args []string,
) error {
	setupLogging(flagVerbose)

	if flagDays < 0 || flagDays > 365 {
		return fmt.Errorf("--days must be between 1 and 365")
	}

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	if flagOutputDir != "" {
		cfg.OutputDir = flagOutputDir
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info("Received signal; cancelling")
		cancel()
	}()

	svc := issuance.New(cfg)
	fulfillment, err := svc.DoCertificate(ctx, issuance.Request{
		FQDN:         flagFQDN,
		CSRFile:      flagCSRFile,
		ValidityDays: flagDays,
	})
	if err != nil {
		log.Error(
			"Certificate request failed",
			rz.Err(err),
			rz.String("fqdn", flagFQDN),
		)
		return err
	}

	log.Info(
		"Process complete",
		rz.String("fqdn", flagFQDN),
		rz.String("expiration", fulfillment.EndDate),
	)
	return nil
}

func runGencsr(
	cmd *cobra.Command,
	args []string,
) error {
	setupLogging(flagVerbose)

	csrPEM, keyPEM, err := csr.Generate(flagKeyBits, args)
	if err != nil {
		return err
	}

	if err := ioutil.WriteFile(flagKeyOut, keyPEM, 0600); err != nil {
		return err
	}
	if err := ioutil.WriteFile(flagCSROut, csrPEM, 0644); err != nil {
		return err
	}

	log.Info(
		"Generated key and CSR",
		rz.String("key_file", flagKeyOut),
		rz.String("csr_file", flagCSROut),
	)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
