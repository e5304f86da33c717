package backends

import (
	// initialise all backends.
	_ "github.com/timcappalli/certcenter-cert-request/provision/backends/aws-route53"
	_ "github.com/timcappalli/certcenter-cert-request/provision/backends/manual"
)
