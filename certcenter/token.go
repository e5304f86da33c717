package certcenter

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"os"
	"time"

	"gitlab.com/z0mbie42/rz-go/v2"
	"gitlab.com/z0mbie42/rz-go/v2/log"
)

const (
	tokenScope = "order"

	// A cached token is reused only while it has at least this much
	// lifetime left.
	tokenExpirySkew = 30 * time.Second
)

func (c *Client) host() string {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return c.BaseURL
	}
	return u.Host
}

func (c *Client) readCachedToken() (
	string,
	bool,
) {
	if c.TokenCache == "" {
		return "", false
	}

	cacheBytes, err := ioutil.ReadFile(c.TokenCache)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn(
				"Error reading token cache file",
				rz.Err(err),
				rz.String("path", c.TokenCache),
			)
		}
		return "", false
	}

	var cached cachedToken
	if err := json.Unmarshal(cacheBytes, &cached); err != nil {
		log.Warn(
			"Error unmarshalling token cache file",
			rz.Err(err),
			rz.String("path", c.TokenCache),
		)
		return "", false
	}

	if cached.Host != "" && cached.Host != c.host() {
		log.Debug(
			"Ignoring token cached for different host",
			rz.String("cached_host", cached.Host),
			rz.String("host", c.host()),
		)
		return "", false
	}

	if time.Now().Add(tokenExpirySkew).Unix() >= cached.ExpiresAt {
		log.Debug(
			"Cached token expired or about to expire",
			rz.Int64("expires_at", cached.ExpiresAt),
		)
		return "", false
	}

	return cached.AccessToken, true
}

func (c *Client) writeTokenCache(
	accessToken string,
	expiresAt int64,
) {
	if c.TokenCache == "" {
		return
	}

	cacheBytes, err := json.Marshal(&cachedToken{
		AccessToken: accessToken,
		ExpiresAt:   expiresAt,
		Host:        c.host(),
	})
	if err != nil {
		log.Warn(
			"Error marshalling token cache",
			rz.Err(err),
		)
		return
	}

	if err := ioutil.WriteFile(c.TokenCache, cacheBytes, 0600); err != nil {
		log.Warn(
			"Error writing token cache file",
			rz.Err(err),
			rz.String("path", c.TokenCache),
		)
	}
}

// Token returns a bearer token for the CertCenter API, reusing the cached
// token while it is still valid and fetching a new one otherwise.
func (c *Client) Token(
	ctx context.Context,
) (
	string,
	error,
) {
	if accessToken, ok := c.readCachedToken(); ok {
		log.Info("Using cached access token")
		return accessToken, nil
	}

	if c.ClientID == "" || c.ClientSecret == "" {
		return "", fmt.Errorf("client_id or client_secret not defined in config file")
	}

	log.Info("No cached token; acquiring new token")

	var tRes tokenResponse
	status, body, err := c.postJSON(
		ctx,
		tokenPath,
		"",
		&tokenRequest{
			GrantType:    "client_credentials",
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			Scope:        tokenScope,
		},
		&tRes,
	)
	if err != nil && status == 0 {
		return "", err
	}

	if status == http.StatusBadRequest {
		log.Error(
			"Token request rejected; check client_id and client_secret in config",
			rz.String("response_body", string(body)),
		)
		return "", fmt.Errorf("token request rejected with status 400")
	}
	if err != nil {
		return "", err
	}
	if status != http.StatusOK || tRes.AccessToken == "" {
		log.Error(
			"Unexpected token response",
			rz.Int("status_code", status),
			rz.String("response_body", string(body)),
		)
		return "", fmt.Errorf("token request failed with status %d", status)
	}

	expiresAt := time.Now().Unix() + tRes.ExpiresIn
	c.writeTokenCache(tRes.AccessToken, expiresAt)

	log.Debug(
		"Acquired new access token",
		rz.Int64("expires_at", expiresAt),
	)

	return tRes.AccessToken, nil
}
