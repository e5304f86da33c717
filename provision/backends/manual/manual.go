package manual

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/timcappalli/certcenter-cert-request/provision"

	"gitlab.com/z0mbie42/rz-go/v2"
	"gitlab.com/z0mbie42/rz-go/v2/log"
)

func init() {
	provision.RegisterBackend("manual", func() (provision.Backend, error) {
		return &ManualProvisionerBackend{
			In:  os.Stdin,
			Out: os.Stderr,
		}, nil
	})
}

// ManualProvisionerBackend prints the challenge value and blocks until the
// operator confirms the TXT record has been created.
type ManualProvisionerBackend struct {
	In  io.Reader
	Out io.Writer
}

func (b *ManualProvisionerBackend) Configure(
	configData map[string]interface{},
) error {
	return nil
}

func (b *ManualProvisionerBackend) ProvisionTXT(
	fqdn string,
	value string,
	example string,
) error {
	log.Info(
		"Manual DNS record creation required",
		rz.String("fqdn", fqdn),
	)

	fmt.Fprintf(b.Out, "\nDNS TXT value is: %s\n", value)
	if example != "" {
		fmt.Fprintf(b.Out, "Example record:   %s\n", example)
	}
	fmt.Fprintf(b.Out, "\nPress Enter after DNS record creation...\n")

	if _, err := bufio.NewReader(b.In).ReadString('\n'); err != nil {
		if err == io.EOF {
			return fmt.Errorf("stdin closed while waiting for DNS record confirmation")
		}
		return err
	}

	return nil
}
