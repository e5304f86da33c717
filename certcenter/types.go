package certcenter

type tokenRequest struct {
	GrantType    string `json:"grant_type"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Scope        string `json:"scope"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// cachedToken is the on-disk token cache record. A token is reused while
// now + 30s < expires_at.
type cachedToken struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   int64  `json:"expires_at"`
	Host        string `json:"host"`
}

type validateNameRequest struct {
	CommonName string `json:"CommonName"`
}

type ValidateNameResponse struct {
	Success     bool `json:"success"`
	IsQualified bool `json:"IsQualified"`
}

type dnsDataRequest struct {
	CSR         string `json:"CSR"`
	ProductCode string `json:"ProductCode"`
}

type DNSAuthDetails struct {
	PointerType string `json:"PointerType"`
	DNSValue    string `json:"DNSValue"`
	Example     string `json:"Example"`
}

type DNSDataResponse struct {
	Success        bool           `json:"success"`
	DNSAuthDetails DNSAuthDetails `json:"DNSAuthDetails"`
}

type orderParameters struct {
	ProductCode    string `json:"ProductCode"`
	CSR            string `json:"CSR"`
	ValidityPeriod int    `json:"ValidityPeriod"`
	DVAuthMethod   string `json:"DVAuthMethod"`
}

type orderRequest struct {
	OrderParameters orderParameters `json:"OrderParameters"`
}

// Fulfillment is the certificate material returned by a successful order.
// All fields are PEM or PKCS7 text, passed through as received.
type Fulfillment struct {
	Certificate      string `json:"Certificate"`
	Intermediate     string `json:"Intermediate"`
	CertificatePKCS7 string `json:"Certificate_PKCS7"`
	StartDate        string `json:"StartDate"`
	EndDate          string `json:"EndDate"`
}

type OrderResponse struct {
	Success     bool        `json:"success"`
	Fulfillment Fulfillment `json:"Fulfillment"`
}
