package certcenter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
)

// newTestServer serves the token endpoint plus the given REST handlers, and
// verifies that every REST call carries the bearer token.
func newTestServer(
	t *testing.T,
	handlers map[string]http.HandlerFunc,
) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc(tokenPath, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(&tokenResponse{
			AccessToken: "test-token",
			ExpiresIn:   3600,
		})
	})
	for path, handler := range handlers {
		h := handler
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer test-token" {
				t.Errorf(
					"%s: missing or wrong bearer token: %q",
					r.URL.Path,
					r.Header.Get("Authorization"),
				)
			}
			if r.Header.Get("Content-Type") != "application/json" {
				t.Errorf(
					"%s: unexpected content type: %q",
					r.URL.Path,
					r.Header.Get("Content-Type"),
				)
			}
			h(w, r)
		})
	}

	return httptest.NewServer(mux)
}

func newTestClient(
	t *testing.T,
	ts *httptest.Server,
) *Client {
	t.Helper()
	return New(ts.URL, "id", "secret", "PRODUCT",
		filepath.Join(t.TempDir(), "token.json"))
}

type validateNameTestCase struct {
	name        string
	response    ValidateNameResponse
	expectedErr bool
}

var validateNameTestCases = []validateNameTestCase{
	{
		name:        "qualified domain",
		response:    ValidateNameResponse{Success: true, IsQualified: true},
		expectedErr: false,
	},
	{
		name:        "authorization failure",
		response:    ValidateNameResponse{Success: false},
		expectedErr: true,
	},
	{
		name:        "unqualified domain",
		response:    ValidateNameResponse{Success: true, IsQualified: false},
		expectedErr: true,
	},
}

func TestValidateName(
	t *testing.T,
) {
	for _, tc := range validateNameTestCases {
		ts := newTestServer(t, map[string]http.HandlerFunc{
			validateNamePath: func(w http.ResponseWriter, r *http.Request) {
				var vnReq validateNameRequest
				if err := json.NewDecoder(r.Body).Decode(&vnReq); err != nil {
					t.Errorf("%s: error decoding request: %v", tc.name, err)
				}
				if vnReq.CommonName != "www.example.com" {
					t.Errorf("%s: unexpected common name: %s", tc.name, vnReq.CommonName)
				}
				json.NewEncoder(w).Encode(&tc.response)
			},
		})

		c := newTestClient(t, ts)
		err := c.ValidateName(context.Background(), "www.example.com")
		if tc.expectedErr && err == nil {
			t.Errorf("%s: expected error, got none", tc.name)
		}
		if !tc.expectedErr && err != nil {
			t.Errorf("%s: unexpected error: %v", tc.name, err)
		}

		ts.Close()
	}
}

func TestDNSData(
	t *testing.T,
) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		dnsDataPath: func(w http.ResponseWriter, r *http.Request) {
			var ddReq dnsDataRequest
			if err := json.NewDecoder(r.Body).Decode(&ddReq); err != nil {
				t.Errorf("Error decoding request: %v", err)
			}
			if ddReq.CSR != "csr-text" {
				t.Errorf("CSR not passed through unmodified: %q", ddReq.CSR)
			}
			if ddReq.ProductCode != "PRODUCT" {
				t.Errorf("Unexpected product code: %q", ddReq.ProductCode)
			}
			json.NewEncoder(w).Encode(&DNSDataResponse{
				Success: true,
				DNSAuthDetails: DNSAuthDetails{
					DNSValue: "challenge-value",
					Example:  "www.example.com. IN TXT \"challenge-value\"",
				},
			})
		},
	})
	defer ts.Close()

	c := newTestClient(t, ts)
	details, err := c.DNSData(context.Background(), "csr-text")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if details.DNSValue != "challenge-value" {
		t.Errorf("Unexpected DNS value: %s", details.DNSValue)
	}
}

func TestDNSDataMissingValue(
	t *testing.T,
) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		dnsDataPath: func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"success": false, "Message": "no order found"}`)
		},
	})
	defer ts.Close()

	c := newTestClient(t, ts)
	if _, err := c.DNSData(context.Background(), "csr-text"); err == nil {
		t.Error("Expected error for missing DNS value, got none")
	}
}

func TestOrder(
	t *testing.T,
) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		orderPath: func(w http.ResponseWriter, r *http.Request) {
			var oReq orderRequest
			if err := json.NewDecoder(r.Body).Decode(&oReq); err != nil {
				t.Errorf("Error decoding request: %v", err)
			}
			if oReq.OrderParameters.DVAuthMethod != "DNS" {
				t.Errorf("Unexpected DV method: %s", oReq.OrderParameters.DVAuthMethod)
			}
			if oReq.OrderParameters.ValidityPeriod != 90 {
				t.Errorf("Unexpected validity: %d", oReq.OrderParameters.ValidityPeriod)
			}
			if oReq.OrderParameters.CSR != "csr-text" {
				t.Errorf("CSR not passed through unmodified: %q", oReq.OrderParameters.CSR)
			}
			json.NewEncoder(w).Encode(&OrderResponse{
				Success: true,
				Fulfillment: Fulfillment{
					Certificate:      "CERT",
					Intermediate:     "INTERMEDIATE",
					CertificatePKCS7: "PKCS7",
					EndDate:          "2027-08-31",
				},
			})
		},
	})
	defer ts.Close()

	c := newTestClient(t, ts)
	fulfillment, err := c.Order(context.Background(), "csr-text", 90)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if fulfillment.Certificate != "CERT" {
		t.Errorf("Unexpected certificate: %s", fulfillment.Certificate)
	}
	if fulfillment.EndDate != "2027-08-31" {
		t.Errorf("Unexpected end date: %s", fulfillment.EndDate)
	}
}

func TestOrderFailure(
	t *testing.T,
) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		orderPath: func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"success": false, "ErrorId": -2003}`)
		},
	})
	defer ts.Close()

	c := newTestClient(t, ts)
	if _, err := c.Order(context.Background(), "csr-text", 90); err == nil {
		t.Error("Expected error for failed order, got none")
	}
}
