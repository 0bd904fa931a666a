package nexus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"grantcloser/internal/config"
	"grantcloser/internal/logging"
	"grantcloser/internal/services"
)

const (
	component             = "nexus"
	defaultHTTPTimeout    = 30 * time.Second
	maxErrorBodyBytes     = 4096
	maxResponseBodyBytes  = 32 << 20
	contentTypeJSON       = "application/json"
	headerAccept          = "Accept"
	headerContentType     = "Content-Type"
	headerContentTypeJSON = contentTypeJSON + "; charset=utf-8"
)

// HTTPDoer abstracts http.Client.Do for testing.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Config captures the settings needed to reach one Nexus instance.
type Config struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// Client talks to the Nexus API on behalf of one robot user.
type Client struct {
	baseURL *url.URL
	http    HTTPDoer
	logger  *slog.Logger
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient replaces the OAuth2 HTTP client. Requests sent through it are
// not authenticated by the Client.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.http = doer
		}
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient constructs a client that obtains bearer tokens with the client
// credentials grant. Tokens are fetched lazily and refreshed before expiry.
func NewClient(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimSpace(cfg.BaseURL))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, services.Wrap(services.ErrConfiguration, component, "init", fmt.Sprintf("invalid base url %q", cfg.BaseURL), err)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	client := &Client{baseURL: base, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(client)
	}
	client.logger = logging.NewComponentLogger(client.logger, component)

	if client.http == nil {
		if strings.TrimSpace(cfg.TokenURL) == "" || cfg.ClientID == "" || cfg.ClientSecret == "" {
			return nil, services.Wrap(services.ErrConfiguration, component, "init", "token url and client credentials are required", nil)
		}
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultHTTPTimeout
		}
		credentials := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		}
		tokenCtx := context.WithValue(context.WithoutCancel(ctx), oauth2.HTTPClient, &http.Client{Timeout: timeout})
		httpClient := credentials.Client(tokenCtx)
		httpClient.Timeout = timeout
		client.http = httpClient
	}
	return client, nil
}

// NewFromConfig builds a client from the [nexus] configuration section.
func NewFromConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Client, error) {
	if err := cfg.RequireNexus(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, component, "init", "incomplete nexus settings", err)
	}
	return NewClient(ctx, Config{
		BaseURL:      cfg.Nexus.BaseURL,
		TokenURL:     cfg.Nexus.TokenURL,
		ClientID:     cfg.Nexus.ClientID,
		ClientSecret: cfg.Nexus.ClientSecret,
		Timeout:      time.Duration(cfg.Nexus.TimeoutSeconds) * time.Second,
	}, WithLogger(logger))
}

// GetJSON fetches href and decodes the response into out.
func (c *Client) GetJSON(ctx context.Context, href string, out any) error {
	return c.doJSONRequest(ctx, http.MethodGet, href, nil, out)
}

// PostJSON sends body as JSON to href and decodes the response into out.
func (c *Client) PostJSON(ctx context.Context, href string, body, out any) error {
	return c.doJSONRequest(ctx, http.MethodPost, href, body, out)
}

// Put sends a PUT to href. A nil body sends no content at all; Nexus rejects an
// empty JSON object on action endpoints.
func (c *Client) Put(ctx context.Context, href string, body, out any) error {
	return c.doJSONRequest(ctx, http.MethodPut, href, body, out)
}

func (c *Client) resolve(href string) (string, error) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", services.Wrap(services.ErrValidation, component, "resolve link", "missing href", nil)
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, component, "resolve link", fmt.Sprintf("invalid href %q", href), err)
	}
	return c.baseURL.ResolveReference(ref).String(), nil
}

func (c *Client) doJSONRequest(ctx context.Context, method, href string, body, out any) error {
	target, err := c.resolve(href)
	if err != nil {
		return err
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set(headerAccept, contentTypeJSON)
	if body != nil {
		req.Header.Set(headerContentType, headerContentTypeJSON)
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return services.Wrap(services.ErrExternal, component, method+" "+target, "request failed", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("nexus request",
		logging.String("method", method),
		logging.String("url", target),
		logging.Int("status", resp.StatusCode),
		logging.Duration("elapsed", time.Since(started)),
	)

	if resp.StatusCode >= http.StatusBadRequest {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return statusError(method, target, resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	decoder := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBodyBytes))
	if err := decoder.Decode(out); err != nil {
		return services.Wrap(services.ErrValidation, component, method+" "+target, "decode response", err)
	}
	return nil
}

func statusError(method, target string, status int, body string) error {
	message := fmt.Sprintf("returned %d", status)
	if body != "" {
		message += ": " + body
	}
	marker := services.ErrExternal
	switch {
	case status == http.StatusNotFound:
		marker = services.ErrNotFound
	case status == http.StatusTooManyRequests || status >= http.StatusInternalServerError:
		marker = services.ErrTransient
	}
	return services.Wrap(marker, component, method+" "+target, message, nil)
}
