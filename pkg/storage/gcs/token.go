package gcs

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultTokenURI = "https://oauth2.googleapis.com/token"
	metadataURL     = "http://metadata.google.internal/computeMetadata/v1/instance/service-accounts/default/token"
	storageScope    = "https://www.googleapis.com/auth/devstorage.read_write"
	jwtBearerGrant  = "urn:ietf:params:oauth:grant-type:jwt-bearer"

	// refreshSkew renews tokens before Google rejects them.
	refreshSkew = time.Minute
)

// tokenSource caches one OAuth access token and refreshes it through fetch.
type tokenSource struct {
	mu     sync.Mutex
	token  string
	expiry time.Time
	fetch  func(context.Context) (string, time.Time, error)
}

func (t *tokenSource) Token(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.token != "" && time.Until(t.expiry) > refreshSkew {
		return t.token, nil
	}
	tok, exp, err := t.fetch(ctx)
	if err != nil {
		return "", err
	}
	t.token, t.expiry = tok, exp
	return tok, nil
}

type serviceAccount struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	TokenURI    string `json:"token_uri"`
}

type assertionClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// newServiceAccountTokenSource exchanges a signed RS256 assertion for an
// access token, as described for server-to-server OAuth.
func newServiceAccountTokenSource(client *http.Client, credentialsJSON string) (*tokenSource, error) {
	var sa serviceAccount
	if err := json.Unmarshal([]byte(credentialsJSON), &sa); err != nil {
		return nil, fmt.Errorf("parsing service account credentials: %w", err)
	}
	if sa.ClientEmail == "" || sa.PrivateKey == "" {
		return nil, errors.New("service account credentials need client_email and private_key")
	}
	if sa.TokenURI == "" {
		sa.TokenURI = defaultTokenURI
	}
	key, err := parsePrivateKey(sa.PrivateKey)
	if err != nil {
		return nil, err
	}

	return &tokenSource{fetch: func(ctx context.Context) (string, time.Time, error) {
		now := time.Now()
		assertion, err := jwt.NewWithClaims(jwt.SigningMethodRS256, assertionClaims{
			Scope: storageScope,
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    sa.ClientEmail,
				Audience:  jwt.ClaimStrings{sa.TokenURI},
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
		}).SignedString(key)
		if err != nil {
			return "", time.Time{}, fmt.Errorf("sign assertion: %w", err)
		}

		form := url.Values{"grant_type": {jwtBearerGrant}, "assertion": {assertion}}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, sa.TokenURI, strings.NewReader(form.Encode()))
		if err != nil {
			return "", time.Time{}, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return exchangeToken(client, req)
	}}, nil
}

// newMetadataTokenSource asks the GCE/Cloud Run metadata server for the
// attached service account's token.
func newMetadataTokenSource(client *http.Client) *tokenSource {
	return &tokenSource{fetch: func(ctx context.Context) (string, time.Time, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, metadataURL, nil)
		if err != nil {
			return "", time.Time{}, err
		}
		req.Header.Set("Metadata-Flavor", "Google")
		return exchangeToken(client, req)
	}}
}

func exchangeToken(client *http.Client, req *http.Request) (string, time.Time, error) {
	resp, err := client.Do(req)
	if err != nil {
		return "", time.Time{}, err
	}
	defer closeBody(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", time.Time{}, statusError("token exchange", resp)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", time.Time{}, fmt.Errorf("decode token response: %w", err)
	}
	if body.AccessToken == "" {
		return "", time.Time{}, errors.New("token response missing access_token")
	}
	return body.AccessToken, time.Now().Add(time.Duration(body.ExpiresIn) * time.Second), nil
}

// parsePrivateKey accepts PKCS#1 and PKCS#8 RSA keys.
func parsePrivateKey(pemData string) (*rsa.PrivateKey, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(pemData))
	if err != nil {
		return nil, fmt.Errorf("service account private key: %w", err)
	}
	return key, nil
}
