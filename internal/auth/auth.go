// Package auth exchanges service-principal credentials for bearer tokens.
//
// It intentionally avoids interactive flows and token storage concerns.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nasif-azam/fabricctl/internal/observability"
)

var ErrAuthentication = errors.New("auth: authentication failed")

const (
	defaultTokenBase = "https://login.microsoftonline.com"
	defaultScope     = "https://api.fabric.microsoft.com/.default"

	// expiryMargin forces re-acquisition shortly before the token lapses so
	// an in-flight call never carries a token that expires mid-request.
	expiryMargin = 300 * time.Second
)

// Credentials hold one service principal's client-credentials grant inputs.
type Credentials struct {
	TenantID     string
	ClientID     string
	ClientSecret string
}

func (c Credentials) Validate() error {
	if strings.TrimSpace(c.TenantID) == "" {
		return fmt.Errorf("%w: missing tenant id", ErrAuthentication)
	}
	if strings.TrimSpace(c.ClientID) == "" {
		return fmt.Errorf("%w: missing client id", ErrAuthentication)
	}
	if strings.TrimSpace(c.ClientSecret) == "" {
		return fmt.Errorf("%w: missing client secret", ErrAuthentication)
	}
	return nil
}

// Provider acquires and caches a bearer token for one set of credentials.
// One Provider per run; the cache is the run's only shared mutable state.
type Provider struct {
	creds     Credentials
	tokenBase string
	scope     string
	http      *http.Client
	log       zerolog.Logger
	now       func() time.Time

	mu     sync.Mutex
	token  string
	expiry time.Time
}

type Option func(*Provider)

// WithTokenBase overrides the identity endpoint base URL (tests).
func WithTokenBase(base string) Option {
	return func(p *Provider) { p.tokenBase = strings.TrimRight(base, "/") }
}

func WithScope(scope string) Option {
	return func(p *Provider) { p.scope = scope }
}

func WithTimeout(d time.Duration) Option {
	return func(p *Provider) { p.http.Timeout = d }
}

func WithLogger(l zerolog.Logger) Option {
	return func(p *Provider) { p.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

func NewProvider(creds Credentials, opts ...Option) *Provider {
	p := &Provider{
		creds:     creds,
		tokenBase: defaultTokenBase,
		scope:     defaultScope,
		http:      &http.Client{Timeout: 15 * time.Second},
		log:       zerolog.Nop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Token returns the cached token while it remains inside the validity window,
// otherwise performs one synchronous client-credentials exchange. Rejection
// and transport failures are fatal; static credentials make retry pointless.
func (p *Provider) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token != "" && p.now().Before(p.expiry) {
		return p.token, nil
	}

	if err := p.creds.Validate(); err != nil {
		return "", err
	}

	p.log.Debug().Str("tenant", p.creds.TenantID).Msg("acquiring access token")
	observability.RecordTokenExchange()

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {p.creds.ClientID},
		"client_secret": {p.creds.ClientSecret},
		"scope":         {p.scope},
	}
	endpoint := fmt.Sprintf("%s/%s/oauth2/v2.0/token", p.tokenBase, p.creds.TenantID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuthentication, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuthentication, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: identity endpoint returned %d", ErrAuthentication, resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("%w: decode token response: %v", ErrAuthentication, err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrAuthentication)
	}

	expiresIn := tr.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 3600
	}
	p.token = tr.AccessToken
	p.expiry = p.now().Add(time.Duration(expiresIn)*time.Second - expiryMargin)

	p.log.Info().Time("expiry", p.expiry).Msg("access token acquired")
	return p.token, nil
}
