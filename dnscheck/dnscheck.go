// Package dnscheck polls a public DNS resolver until a challenge TXT record
// has propagated.
package dnscheck

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/miekg/dns"

	"gitlab.com/z0mbie42/rz-go/v2"
	"gitlab.com/z0mbie42/rz-go/v2/log"
)

// Checker queries a fixed resolver for TXT records on a name. LookupTXT can
// be replaced in tests.
type Checker struct {
	Resolver     string
	InitialDelay time.Duration
	PollInterval time.Duration
	MaxAttempts  int

	LookupTXT func(ctx context.Context, name string) ([]string, error)
}

func New(
	resolver string,
	initialDelay time.Duration,
	pollInterval time.Duration,
	maxAttempts int,
) *Checker {
	c := &Checker{
		Resolver:     resolver,
		InitialDelay: initialDelay,
		PollInterval: pollInterval,
		MaxAttempts:  maxAttempts,
	}
	c.LookupTXT = c.resolverLookupTXT
	return c
}

func (c *Checker) resolverLookupTXT(
	ctx context.Context,
	name string,
) (
	[]string,
	error,
) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), dns.TypeTXT)

	client := new(dns.Client)
	res, _, err := client.ExchangeContext(ctx, m, c.Resolver)
	if err != nil {
		return nil, err
	}

	switch res.Rcode {
	case dns.RcodeSuccess:
		// Fall through to answer processing.
	case dns.RcodeNameError:
		return nil, nil
	default:
		return nil, fmt.Errorf(
			"resolver %s returned rcode %s for %s",
			c.Resolver, dns.RcodeToString[res.Rcode], name,
		)
	}

	var values []string
	for _, rr := range res.Answer {
		if txt, ok := rr.(*dns.TXT); ok {
			// Long TXT values arrive as multiple character-strings.
			values = append(values, strings.Join(txt.Txt, ""))
		}
	}

	return values, nil
}

func sleepContext(
	ctx context.Context,
	d time.Duration,
) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// WaitForMatch polls until a TXT record appears on name, then compares it to
// the expected challenge value. A visible record that does not match is a
// hard failure; an absent record is retried up to MaxAttempts times.
func (c *Checker) WaitForMatch(
	ctx context.Context,
	name string,
	expected string,
) error {
	log.Info(
		"Waiting for global DNS propagation",
		rz.String("name", name),
		rz.String("resolver", c.Resolver),
		rz.Any("initial_delay", c.InitialDelay),
	)
	if err := sleepContext(ctx, c.InitialDelay); err != nil {
		return err
	}

	for attempt := 1; attempt <= c.MaxAttempts; attempt++ {
		values, err := c.LookupTXT(ctx, name)
		if err != nil {
			return err
		}

		if len(values) > 0 {
			log.Info(
				"Record found; verifying",
				rz.String("name", name),
				rz.Int("attempt", attempt),
			)
			for _, v := range values {
				if v == expected {
					log.Info(
						"TXT record matches challenge value",
						rz.String("name", name),
					)
					return nil
				}
			}
			log.Error(
				"TXT record does not match challenge value",
				rz.String("name", name),
				rz.Any("observed_values", values),
			)
			return fmt.Errorf(
				"TXT record on %s does not match expected challenge value",
				name,
			)
		}

		if attempt == c.MaxAttempts {
			break
		}

		log.Info(
			"DNS record not found yet; waiting before next lookup",
			rz.String("name", name),
			rz.Int("attempt", attempt),
			rz.Any("poll_interval", c.PollInterval),
		)
		if err := sleepContext(ctx, c.PollInterval); err != nil {
			return err
		}
	}

	return fmt.Errorf(
		"TXT record on %s did not appear after %d attempts",
		name, c.MaxAttempts,
	)
}
