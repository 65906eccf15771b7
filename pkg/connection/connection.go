// Package connection implements the HTTP transport for the Rundeck API.
//
// A Connection sends authenticated requests and wraps replies in envelopes.
// It performs no retries and no caching: transport failures surface to the
// caller unmodified.
package connection

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"rundeck/pkg/apperrors"
	"rundeck/pkg/envelope"
)

// Headers sent on every API request.
const (
	authTokenHeader = "X-Rundeck-Auth-Token"

	// API versions above 11 drop the <result> wrapper from XML replies; this
	// header asks the server to keep it so envelope parsing stays uniform.
	// http://rundeck.org/docs/api/index.html#changes
	xmlWrapperHeader = "X-Rundeck-API-XML-Response-Wrapper"
)

// MetricsRecorder is an optional interface for recording request metrics.
type MetricsRecorder interface {
	RecordAPIRequest(ctx context.Context, method, path string, statusCode int, durationSeconds float64)
}

// Response is a raw transport reply for callers that bypass envelope parsing.
type Response struct {
	StatusCode int
	Body       string
	Header     http.Header
}

// RequestOptions carries the per-request inputs recognized by the transport.
type RequestOptions struct {
	Params      url.Values           // query string parameters
	Headers     map[string]string    // extra headers, merged over the defaults
	Body        io.Reader            // request body for POST
	ContentType string               // content type for Body
	Files       map[string]io.Reader // multipart file uploads, field name -> content
}

// Connection is a client connection to a Rundeck server.
type Connection struct {
	cfg        Config
	baseURL    string
	baseAPIURL string
	http       *http.Client
	logger     *slog.Logger
	metrics    MetricsRecorder
}

// New creates a connection and, when username/password auth is configured,
// performs the session login. Token auth needs no upfront exchange.
func New(ctx context.Context, cfg Config) (*Connection, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	c := &Connection{
		cfg:        cfg,
		baseURL:    cfg.baseURL(),
		baseAPIURL: cfg.baseURL() + "/api",
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
			Jar:       jar,
		},
		logger: slog.With("component", "connection", "server", cfg.Server),
	}

	if cfg.APIToken == "" {
		if err := c.login(ctx); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// SetMetrics attaches an optional metrics recorder. Nil disables recording.
func (c *Connection) SetMetrics(m MetricsRecorder) {
	c.metrics = m
}

// APIVersion returns the negotiated API version of this connection.
func (c *Connection) APIVersion() int {
	return c.cfg.APIVersion
}

// Strict reports whether non-2xx statuses are surfaced as errors.
func (c *Connection) Strict() bool {
	return c.cfg.Strict
}

// MakeURL builds a server URL from a path below the server root.
func (c *Connection) MakeURL(path string) string {
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

// MakeAPIURL builds a versioned API URL from an endpoint path.
func (c *Connection) MakeAPIURL(path string) string {
	return fmt.Sprintf("%s/%d/%s", c.baseAPIURL, c.cfg.APIVersion, strings.TrimLeft(path, "/"))
}

// Call issues an API request and parses the reply into an envelope, attaching
// the named transform ("" for none). In strict mode a non-2xx status fails
// before any parsing.
func (c *Connection) Call(ctx context.Context, method, path string, opts RequestOptions, transformName string) (*envelope.Envelope, error) {
	resp, err := c.CallRaw(ctx, method, path, opts)
	if err != nil {
		return nil, err
	}
	return envelope.NewTransformed(resp.Body, c.cfg.APIVersion, transformName)
}

// CallRaw issues an API request and returns the raw reply without envelope
// parsing, for endpoints whose bodies are not XML documents (e.g. job
// definition exports).
func (c *Connection) CallRaw(ctx context.Context, method, path string, opts RequestOptions) (*Response, error) {
	resp, err := c.request(ctx, method, c.MakeAPIURL(path), opts)
	if err != nil {
		return nil, err
	}
	if c.cfg.Strict && (resp.StatusCode < 200 || resp.StatusCode >= 300) {
		return nil, apperrors.HTTPStatus(resp.StatusCode)
	}
	return resp, nil
}

// request sends one HTTP request and reads the full body.
func (c *Connection) request(ctx context.Context, method, rawURL string, opts RequestOptions) (*Response, error) {
	body := opts.Body
	contentType := opts.ContentType
	if len(opts.Files) > 0 {
		multipartBody, multipartType, err := encodeFiles(opts.Files)
		if err != nil {
			return nil, err
		}
		body = multipartBody
		contentType = multipartType
	}

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(method), rawURL, body)
	if err != nil {
		return nil, err
	}

	if len(opts.Params) > 0 {
		q := req.URL.Query()
		for k, vs := range opts.Params {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		req.URL.RawQuery = q.Encode()
	}

	req.Header.Set(xmlWrapperHeader, "true")
	if c.cfg.APIToken != "" {
		req.Header.Set(authTokenHeader, c.cfg.APIToken)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Request completed",
		"method", req.Method,
		"url", req.URL.Path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)
	if c.metrics != nil {
		c.metrics.RecordAPIRequest(ctx, req.Method, req.URL.Path, resp.StatusCode, time.Since(start).Seconds())
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       string(raw),
		Header:     resp.Header,
	}, nil
}

// login authenticates a username/password session via the form endpoint.
// The server redirects failed logins back to the login or error page.
func (c *Connection) login(ctx context.Context) error {
	form := url.Values{
		"j_username": {c.cfg.Username},
		"j_password": {c.cfg.Password},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.MakeURL("j_security_check"), strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	final := resp.Request.URL.String()
	if strings.Contains(final, "/user/error") || strings.Contains(final, "/user/login") || resp.StatusCode != http.StatusOK {
		return apperrors.Authentication("password or username is incorrect")
	}

	c.logger.Info("Session login succeeded", "username", c.cfg.Username)
	return nil
}

// encodeFiles builds a multipart form body from the file map.
func encodeFiles(files map[string]io.Reader) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for field, r := range files {
		part, err := w.CreateFormFile(field, field)
		if err != nil {
			return nil, "", err
		}
		if _, err := io.Copy(part, r); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
