package backends

import (
	// initialise all backends.
	_ "github.com/timcappalli/certcenter-cert-request/export/backends/aws-acm"
	_ "github.com/timcappalli/certcenter-cert-request/export/backends/aws-s3"
	_ "github.com/timcappalli/certcenter-cert-request/export/backends/aws-sns"
	_ "github.com/timcappalli/certcenter-cert-request/export/backends/file"
)
