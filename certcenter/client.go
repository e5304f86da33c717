package certcenter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"time"

	"gitlab.com/z0mbie42/rz-go/v2"
	"gitlab.com/z0mbie42/rz-go/v2/log"
)

const (
	DefaultBaseURL = "https://api.certcenter.com"

	tokenPath        = "/oauth2/token"
	validateNamePath = "/rest/v1/ValidateName"
	dnsDataPath      = "/rest/v1/DNSData"
	orderPath        = "/rest/v1/Order"

	defaultHTTPTimeout = 60 * time.Second
)

// Client talks to the CertCenter REST API. Requests other than the token
// request carry a bearer token obtained via Token.
type Client struct {
	BaseURL      string
	HTTPClient   *http.Client
	ClientID     string
	ClientSecret string
	ProductCode  string
	TokenCache   string
}

func New(
	baseURL string,
	clientID string,
	clientSecret string,
	productCode string,
	tokenCache string,
) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL:      baseURL,
		HTTPClient:   &http.Client{Timeout: defaultHTTPTimeout},
		ClientID:     clientID,
		ClientSecret: clientSecret,
		ProductCode:  productCode,
		TokenCache:   tokenCache,
	}
}

func (c *Client) postJSON(
	ctx context.Context,
	path string,
	bearer string,
	payload interface{},
	result interface{},
) (
	int,
	[]byte,
	error,
) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, err
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.BaseURL+path,
		bytes.NewReader(payloadBytes),
	)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	log.Debug(
		"Calling CertCenter API",
		rz.String("path", path),
	)
	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer res.Body.Close()

	bodyBytes, err := ioutil.ReadAll(res.Body)
	if err != nil {
		return res.StatusCode, nil, err
	}

	log.Debug(
		"Got CertCenter API response",
		rz.String("path", path),
		rz.Int("status_code", res.StatusCode),
	)

	if err := json.Unmarshal(bodyBytes, result); err != nil {
		return res.StatusCode, bodyBytes, fmt.Errorf(
			"unmarshalling response from %s: %v", path, err,
		)
	}

	return res.StatusCode, bodyBytes, nil
}

// ValidateName checks the FQDN for certificate eligibility.
func (c *Client) ValidateName(
	ctx context.Context,
	fqdn string,
) error {
	token, err := c.Token(ctx)
	if err != nil {
		return err
	}

	var vnRes ValidateNameResponse
	status, body, err := c.postJSON(
		ctx,
		validateNamePath,
		token,
		&validateNameRequest{CommonName: fqdn},
		&vnRes,
	)
	if err != nil {
		return err
	}

	if !vnRes.Success {
		log.Error(
			"CertCenter authorization failed; check access token",
			rz.Int("status_code", status),
			rz.String("response_body", string(body)),
		)
		return fmt.Errorf("authorization failed for %s", fqdn)
	}
	if !vnRes.IsQualified {
		log.Error(
			"Domain is not qualified for this product",
			rz.String("fqdn", fqdn),
			rz.String("response_body", string(body)),
		)
		return fmt.Errorf("domain %s is not qualified", fqdn)
	}

	log.Info(
		"Authorization successful; domain qualified",
		rz.String("fqdn", fqdn),
	)
	return nil
}

// DNSData fetches the DNS challenge value for the CSR.
func (c *Client) DNSData(
	ctx context.Context,
	csr string,
) (
	*DNSAuthDetails,
	error,
) {
	token, err := c.Token(ctx)
	if err != nil {
		return nil, err
	}

	var ddRes DNSDataResponse
	status, body, err := c.postJSON(
		ctx,
		dnsDataPath,
		token,
		&dnsDataRequest{CSR: csr, ProductCode: c.ProductCode},
		&ddRes,
	)
	if err != nil {
		return nil, err
	}

	if ddRes.DNSAuthDetails.DNSValue == "" {
		log.Error(
			"No DNS challenge value in response",
			rz.Int("status_code", status),
			rz.String("response_body", string(body)),
		)
		return nil, fmt.Errorf("no DNS challenge value in DNSData response")
	}

	log.Debug(
		"Got DNS challenge details",
		rz.String("dns_value", ddRes.DNSAuthDetails.DNSValue),
		rz.String("example", ddRes.DNSAuthDetails.Example),
	)

	return &ddRes.DNSAuthDetails, nil
}

// Order requests certificate issuance with DNS domain validation.
func (c *Client) Order(
	ctx context.Context,
	csr string,
	validityDays int,
) (
	*Fulfillment,
	error,
) {
	token, err := c.Token(ctx)
	if err != nil {
		return nil, err
	}

	var oRes OrderResponse
	status, body, err := c.postJSON(
		ctx,
		orderPath,
		token,
		&orderRequest{
			OrderParameters: orderParameters{
				ProductCode:    c.ProductCode,
				CSR:            csr,
				ValidityPeriod: validityDays,
				DVAuthMethod:   "DNS",
			},
		},
		&oRes,
	)
	if err != nil {
		return nil, err
	}

	if !oRes.Success {
		log.Error(
			"Certificate request failed",
			rz.Int("status_code", status),
			rz.String("response_body", string(body)),
		)
		return nil, fmt.Errorf("certificate request failed")
	}

	log.Info(
		"Certificate request successful",
		rz.String("expiration", oRes.Fulfillment.EndDate),
	)

	return &oRes.Fulfillment, nil
}
