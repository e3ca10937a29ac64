package domainkey

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const DefaultEndpoint = "https://rum.fastly-aem.page/domains/"

var (
	ErrMissing = errors.New("missing domain or key")
	ErrInvalid = errors.New("domain key rejected")
)

// Validator checks domain keys against the RUM bundler API.
type Validator struct {
	// Endpoint the domain name is appended to.
	Endpoint string
	Client   *http.Client
}

func NewValidator(endpoint string, timeout time.Duration) *Validator {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Validator{
		Endpoint: endpoint,
		Client:   &http.Client{Timeout: timeout},
	}
}

// Validate returns nil if key grants access to domain's data.
func (v *Validator) Validate(ctx context.Context, domain, key string) error {
	if domain == "" || key == "" {
		return ErrMissing
	}
	u, err := url.Parse(v.Endpoint + url.PathEscape(domain))
	if err != nil {
		return fmt.Errorf("validate domain key: %w", err)
	}
	q := u.Query()
	q.Set("domainkey", key)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("validate domain key: %w", err)
	}
	res, err := v.Client.Do(req)
	if err != nil {
		return fmt.Errorf("validate domain key: %w", err)
	}
	res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("%w: unable to fetch from RUM Bundler API: %s", ErrInvalid, http.StatusText(res.StatusCode))
	}
	return nil
}
