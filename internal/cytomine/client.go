// Package cytomine is a minimal client for the Cytomine-compatible REST API:
// just the resources this job touches (image instances, annotations, job
// status), with the platform's per-request HMAC signing.
package cytomine

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

// Client talks to one platform instance. It is safe for concurrent use.
type Client struct {
	base       *url.URL
	publicKey  string
	privateKey string
	httpClient *http.Client
	log        zerolog.Logger
	now        func() time.Time
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger attaches a logger; request/response pairs are logged at debug.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// New creates a client for the given host. The host must include the scheme,
// e.g. "https://demo.cytomine.local".
func New(host, publicKey, privateKey string, opts ...Option) (*Client, error) {
	base, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid host %q: %w", host, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid host %q: scheme and host are required", host)
	}

	c := &Client{
		base:       base,
		publicKey:  publicKey,
		privateKey: privateKey,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		log:        zerolog.Nop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// signToken computes the request signature: base64 of the HMAC-SHA1, keyed
// with the private key, over
//
//	METHOD \n content-MD5 \n content-type \n date \n path?query
//
// which is the canonical string the platform verifies.
func (c *Client) signToken(method, contentMD5, contentType, date, requestURI string) string {
	canonical := method + "\n" + contentMD5 + "\n" + contentType + "\n" + date + "\n" + requestURI
	mac := hmac.New(sha1.New, []byte(c.privateKey))
	mac.Write([]byte(canonical))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// newRequest builds a signed request for path (e.g. "/api/imageinstance/42.json").
func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body []byte) (*http.Request, error) {
	u := *c.base
	u.Path = path
	u.RawQuery = query.Encode()

	var reader io.Reader
	contentMD5 := ""
	contentType := ""
	if body != nil {
		reader = bytes.NewReader(body)
		sum := md5.Sum(body)
		contentMD5 = base64.StdEncoding.EncodeToString(sum[:])
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, err
	}

	date := c.now().UTC().Format(http.TimeFormat)
	token := c.signToken(method, contentMD5, contentType, date, req.URL.RequestURI())

	req.Header.Set("Date", date)
	req.Header.Set("Authorization", "CYTOMINE "+c.publicKey+":"+token)
	if body != nil {
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Content-MD5", contentMD5)
	}
	return req, nil
}

// do executes a JSON round trip. in may be nil; out may be nil for calls
// whose response body is irrelevant.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out interface{}) error {
	var body []byte
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	req, err := c.newRequest(ctx, method, path, query, body)
	if err != nil {
		return err
	}

	c.log.Debug().Str("method", method).Str("path", path).Msg("api request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(method, path, resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%s %s: failed to decode response: %w", method, path, err)
		}
	}
	return nil
}

// APIError is a non-2xx platform response.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: %d", e.Method, e.Path, e.StatusCode)
}

func newAPIError(method, path string, resp *http.Response) *APIError {
	apiErr := &APIError{Method: method, Path: path, StatusCode: resp.StatusCode}

	// The platform wraps error messages as {"errors": {"message": "..."}} or
	// {"error": "..."} depending on the endpoint.
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return apiErr
	}
	var envelope struct {
		Error  string `json:"error"`
		Errors struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if json.Unmarshal(raw, &envelope) == nil {
		if envelope.Errors.Message != "" {
			apiErr.Message = envelope.Errors.Message
		} else {
			apiErr.Message = envelope.Error
		}
	}
	return apiErr
}
