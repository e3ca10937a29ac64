package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

const (
	DefaultEndpoint = "https://pagespeedonline.googleapis.com/pagespeedonline/v5/runPagespeed"
	DefaultStrategy = "desktop"
	DefaultCategory = "performance"
	DefaultTimeout  = 2 * time.Minute

	// location of the screenshot data uri in the PSI response
	screenshotPath = "lighthouseResult.audits.final-screenshot.details.data"
	// upper bound for upstream error bodies kept in error messages
	maxErrorBody = 4096
)

var (
	// ErrRenderFailure means the rendering service did not answer successfully.
	ErrRenderFailure = errors.New("render: request failed")
	// ErrMalformedResponse means the rendering service answered but the
	// screenshot could not be extracted from the response.
	ErrMalformedResponse = errors.New("render: malformed response")
)

// Screenshot is a rendered page image.
type Screenshot struct {
	Data        []byte
	ContentType string
}

type Config struct {
	// Endpoint of the PageSpeed Insights API.
	Endpoint string
	// Key is the API key sent with every request.
	Key string
	// Strategy and Category are passed through to the API.
	Strategy string
	Category string
	// Timeout for a single render call.
	Timeout time.Duration
	// HTTP client to use. A client with Timeout is created if nil.
	HTTPClient *http.Client
	// Logger to use. Logging is disabled if nil.
	Logger *zerolog.Logger
}

// Client takes page screenshots through the PageSpeed Insights API.
type Client struct {
	endpoint string
	key      string
	strategy string
	category string
	client   *http.Client
	log      zerolog.Logger
}

func NewClient(config Config) *Client {
	c := &Client{
		endpoint: config.Endpoint,
		key:      config.Key,
		strategy: config.Strategy,
		category: config.Category,
		client:   config.HTTPClient,
		log:      zerolog.Nop(),
	}
	if c.endpoint == "" {
		c.endpoint = DefaultEndpoint
	}
	if c.strategy == "" {
		c.strategy = DefaultStrategy
	}
	if c.category == "" {
		c.category = DefaultCategory
	}
	if c.client == nil {
		timeout := config.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		c.client = &http.Client{Timeout: timeout}
	}
	if config.Logger != nil {
		c.log = *config.Logger
	}
	return c
}

// RequestURL returns the API URL used to render target.
func (c *Client) RequestURL(target *url.URL) string {
	q := url.Values{}
	q.Set("url", target.String())
	q.Set("key", c.key)
	q.Set("strategy", c.strategy)
	q.Set("category", c.category)
	return c.endpoint + "?" + q.Encode()
}

// Render takes a screenshot of target.
func (c *Client) Render(ctx context.Context, target *url.URL) (Screenshot, error) {
	c.log.Debug().Str("target", target.String()).Msg("Requesting screenshot")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.RequestURL(target), nil)
	if err != nil {
		return Screenshot{}, fmt.Errorf("%w: %v", ErrRenderFailure, err)
	}
	res, err := c.client.Do(req)
	if err != nil {
		return Screenshot{}, fmt.Errorf("%w: %v", ErrRenderFailure, redact(err.Error(), c.key))
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		c.log.Error().Int("status", res.StatusCode).Bytes("body", body).Msg("Screenshot request failed")
		return Screenshot{}, fmt.Errorf("%w: psi failed (%d): %s", ErrRenderFailure, res.StatusCode, body)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return Screenshot{}, fmt.Errorf("%w: read body: %v", ErrRenderFailure, err)
	}
	dataURI, err := extractScreenshot(body)
	if err != nil {
		return Screenshot{}, err
	}
	shot, err := DecodeDataURI(dataURI)
	if err != nil {
		return Screenshot{}, err
	}
	c.log.Debug().Str("target", target.String()).Int("bytes", len(shot.Data)).Msg("Got screenshot")
	return shot, nil
}

// extractScreenshot returns the screenshot data uri from a PSI response body.
// The error names the first path segment that is missing.
func extractScreenshot(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("%w: body is not valid json", ErrMalformedResponse)
	}
	result := gjson.ParseBytes(body)
	walked := ""
	for _, segment := range strings.Split(screenshotPath, ".") {
		if walked != "" {
			walked += "."
		}
		walked += segment
		result = result.Get(segment)
		if !result.Exists() {
			return "", fmt.Errorf("%w: cannot read %s", ErrMalformedResponse, walked)
		}
	}
	if result.Type != gjson.String {
		return "", fmt.Errorf("%w: %s is not a string", ErrMalformedResponse, screenshotPath)
	}
	return result.String(), nil
}

// redact removes the API key from s.
func redact(s, key string) string {
	if key == "" {
		return s
	}
	return strings.ReplaceAll(s, url.QueryEscape(key), "REDACTED")
}
