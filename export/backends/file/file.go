package file

import (
	"io/ioutil"
	"path/filepath"

	"github.com/mitchellh/mapstructure"

	"github.com/timcappalli/certcenter-cert-request/certcenter"
	"github.com/timcappalli/certcenter-cert-request/export"

	"gitlab.com/z0mbie42/rz-go/v2"
	"gitlab.com/z0mbie42/rz-go/v2/log"
)

type FileConfig struct {
	OutputDir string `mapstructure:"output_dir"`
}

func init() {
	export.RegisterBackend("file", func() (export.Backend, error) {
		return &FileExporterBackend{}, nil
	})
}

// FileExporterBackend writes the certificate and the chained certificate as
// PEM files next to each other in the output directory.
type FileExporterBackend struct {
	config *FileConfig
}

func (b *FileExporterBackend) Configure(
	configData map[string]interface{},
) error {
	b.config = new(FileConfig)
	if err := mapstructure.Decode(configData, b.config); err != nil {
		return err
	}
	if b.config.OutputDir == "" {
		b.config.OutputDir = "."
	}

	return nil
}

func (b *FileExporterBackend) Export(
	fqdn string,
	fulfillment *certcenter.Fulfillment,
) error {
	certPath := filepath.Join(b.config.OutputDir, fqdn+"_cert.pem")
	if err := ioutil.WriteFile(
		certPath,
		[]byte(fulfillment.Certificate),
		0644,
	); err != nil {
		log.Error(
			"Error writing certificate file",
			rz.Err(err),
			rz.String("path", certPath),
		)
		return err
	}
	log.Info(
		"Certificate exported",
		rz.String("path", certPath),
	)

	chainedPath := filepath.Join(b.config.OutputDir, fqdn+"_cert-chained.pem")
	chained := fulfillment.Certificate + "\n" + fulfillment.Intermediate
	if err := ioutil.WriteFile(
		chainedPath,
		[]byte(chained),
		0644,
	); err != nil {
		log.Error(
			"Error writing chained certificate file",
			rz.Err(err),
			rz.String("path", chainedPath),
		)
		return err
	}
	log.Info(
		"Chained certificate exported",
		rz.String("path", chainedPath),
	)

	return nil
}
