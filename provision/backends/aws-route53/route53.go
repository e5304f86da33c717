package route53

import (
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials/stscreds"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/route53"

	"github.com/mitchellh/mapstructure"

	"github.com/timcappalli/certcenter-cert-request/provision"

	"gitlab.com/z0mbie42/rz-go/v2"
	"gitlab.com/z0mbie42/rz-go/v2/log"
)

const defaultRecordTTL = 300

type Route53Config struct {
	ZoneId  string `mapstructure:"zone_id"`
	RoleArn string `mapstructure:"role_arn"`
	TTL     int64  `mapstructure:"ttl"`
}

func init() {
	provision.RegisterBackend("aws-route53", func() (provision.Backend, error) {
		return &Route53ProvisionerBackend{}, nil
	})
}

// Route53ProvisionerBackend upserts the challenge TXT record into a Route53
// hosted zone, optionally after assuming an IAM role.
type Route53ProvisionerBackend struct {
	config *Route53Config
}

func isEqualResourceRecordSet(
	a *route53.ResourceRecordSet,
	b *route53.ResourceRecordSet,
) bool {
	// Any nil pointer is interpreted as a mismatch.
	if a.Name == nil || b.Name == nil {
		return false
	}
	if a.Type == nil || b.Type == nil {
		return false
	}
	if a.TTL == nil || b.TTL == nil {
		return false
	}

	if *a.Name != *b.Name {
		return false
	}
	if *a.Type != *b.Type {
		return false
	}
	if *a.TTL != *b.TTL {
		return false
	}
	if len(a.ResourceRecords) != len(b.ResourceRecords) {
		return false
	}

	// Compare resource records (assume sorted).
	for i := range a.ResourceRecords {
		if *a.ResourceRecords[i].Value != *b.ResourceRecords[i].Value {
			return false
		}
	}

	return true
}

func upsertTXTRecordSet(
	svc *route53.Route53,
	zoneId string,
	rrName string,
	rrRdata []string,
	rrTTL int64,
) error {
	inputResourceRecordSet := &route53.ResourceRecordSet{
		Name:            aws.String(rrName),
		ResourceRecords: make([]*route53.ResourceRecord, len(rrRdata)),
		TTL:             aws.Int64(rrTTL),
		Type:            aws.String(route53.RRTypeTxt),
	}

	for i, rr := range rrRdata {
		inputResourceRecordSet.ResourceRecords[i] = &route53.ResourceRecord{
			Value: aws.String(rr),
		}
	}

	// Skip the change if an identical rrset already exists.
	rrsetExists := false
	lrrsParams := &route53.ListResourceRecordSetsInput{
		HostedZoneId: aws.String(zoneId),
	}
	log.Debug(
		"Calling Route53.ListResourceRecordSetsPages",
		rz.Any("parameters", lrrsParams),
	)
	err := svc.ListResourceRecordSetsPages(lrrsParams,
		func(page *route53.ListResourceRecordSetsOutput, lastPage bool) bool {
			for _, rrset := range page.ResourceRecordSets {
				if isEqualResourceRecordSet(rrset, inputResourceRecordSet) {
					rrsetExists = true
					return false // Stop page iteration.
				}
			}
			return true // Continue page iteration.
		})
	if err != nil {
		log.Debug(
			"Error calling ListResourceRecordSetsPages",
			rz.Err(err),
		)
		return err
	}

	if rrsetExists {
		log.Debug(
			"Returning early, since a matching rrset was found",
		)
		return nil
	}

	crrsParams := &route53.ChangeResourceRecordSetsInput{
		ChangeBatch: &route53.ChangeBatch{
			Changes: []*route53.Change{
				{
					Action:            aws.String(route53.ChangeActionUpsert),
					ResourceRecordSet: inputResourceRecordSet,
				},
			},
			Comment: aws.String("Domain validation challenge record."),
		},
		HostedZoneId: aws.String(zoneId),
	}
	log.Debug(
		"Calling Route53.ChangeResourceRecordSets",
		rz.Any("parameters", crrsParams),
	)
	resp, err := svc.ChangeResourceRecordSets(crrsParams)
	if err != nil {
		log.Debug(
			"Error calling ChangeResourceRecordSets",
			rz.Err(err),
		)
		return err
	}

	gcParams := &route53.GetChangeInput{
		Id: resp.ChangeInfo.Id,
	}
	log.Debug(
		"Calling Route53.WaitUntilResourceRecordSetsChanged",
		rz.Any("parameters", gcParams),
	)
	if err := svc.WaitUntilResourceRecordSetsChanged(gcParams); err != nil {
		log.Debug(
			"Error calling WaitUntilResourceRecordSetsChanged",
			rz.Err(err),
		)
		return err
	}

	return nil
}

func (b *Route53ProvisionerBackend) Configure(
	configData map[string]interface{},
) error {
	b.config = new(Route53Config)
	if err := mapstructure.Decode(configData, b.config); err != nil {
		return err
	}
	if b.config.ZoneId == "" {
		return fmt.Errorf("aws-route53 provisioner requires zone_id")
	}
	if b.config.TTL == 0 {
		b.config.TTL = defaultRecordTTL
	}
	log.Debug(
		"Decoded backend config",
		rz.Any("input", configData),
		rz.Any("output", b.config),
	)

	return nil
}

func (b *Route53ProvisionerBackend) ProvisionTXT(
	fqdn string,
	value string,
	example string,
) error {
	// Qualify the rname.
	if fqdn[len(fqdn)-1] != byte('.') {
		fqdn = fqdn + "."
	}

	// Enclose rdata value in double quotes.
	if value[0] != byte('"') {
		value = "\"" + value + "\""
	}

	sess, err := session.NewSession()
	if err != nil {
		log.Debug(
			"Error starting AWS session",
			rz.Err(err),
		)
		return err
	}

	var svc *route53.Route53
	if b.config.RoleArn != "" {
		log.Debug(
			"Assuming IAM role",
			rz.String("iam_role_arn", b.config.RoleArn),
		)
		creds := stscreds.NewCredentials(sess, b.config.RoleArn)
		if creds == nil {
			return fmt.Errorf(
				"could not obtain credentials for role '%s'",
				b.config.RoleArn,
			)
		}

		svc = route53.New(sess, &aws.Config{Credentials: creds})
	} else {
		log.Debug(
			"No IAM role provided; not switching",
		)
		svc = route53.New(sess)
	}

	if err := upsertTXTRecordSet(
		svc,
		b.config.ZoneId,
		fqdn,
		[]string{value},
		b.config.TTL,
	); err != nil {
		log.Debug(
			"Error calling upsertTXTRecordSet",
			rz.Err(err),
		)
		return err
	}

	return nil
}
