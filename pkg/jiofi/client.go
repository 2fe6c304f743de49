package jiofi

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultHost is the name the router answers to on its own network.
	DefaultHost = "jiofi.local.html"
	// DefaultUsername is the only account the router's web UI has.
	DefaultUsername = "administrator"
	// DefaultPassword is the factory password.
	DefaultPassword = "administrator"

	// StatusTimeout bounds both the connect and the read phase of a status fetch.
	StatusTimeout = 5 * time.Second
	// SessionTimeout bounds both the connect and the read phase of each session request.
	SessionTimeout = 10 * time.Second
)

// Client talks to a single JioFi router.
type Client struct {
	baseURL  string
	username string
	password string

	statusTimeout  time.Duration
	sessionTimeout time.Duration

	now func() time.Time

	restartMu sync.Mutex
}

// Option configures a Client.
type Option func(*Client)

// WithCredentials sets the web UI login.
func WithCredentials(username, password string) Option {
	return func(c *Client) {
		if username != "" {
			c.username = username
		}
		c.password = password
	}
}

// WithTimeouts overrides the status and session timeouts. Zero keeps the default.
func WithTimeouts(status, session time.Duration) Option {
	return func(c *Client) {
		if status > 0 {
			c.statusTimeout = status
		}
		if session > 0 {
			c.sessionTimeout = session
		}
	}
}

// WithClock replaces time.Now, which is used for the challenge cache buster.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient returns a client for the router at host. host is either a bare
// host name ("jiofi.local.html", "192.168.225.1") or a base URL.
func NewClient(host string, opts ...Option) *Client {
	c := &Client{
		baseURL:        normalizeBaseURL(host),
		username:       DefaultUsername,
		password:       DefaultPassword,
		statusTimeout:  StatusTimeout,
		sessionTimeout: SessionTimeout,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the URL every request path is appended to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func normalizeBaseURL(host string) string {
	host = strings.TrimSpace(host)
	if host == "" {
		host = DefaultHost
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	return strings.TrimRight(host, "/")
}

// newHTTPClient builds a client with separate connect and read timeouts.
// Connections are not reused, the device web server handles keep-alive poorly.
func newHTTPClient(connectTimeout, readTimeout time.Duration, jar http.CookieJar) *http.Client {
	return &http.Client{
		Jar:     jar,
		Timeout: connectTimeout + readTimeout,
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{Timeout: connectTimeout}).DialContext,
			ResponseHeaderTimeout: readTimeout,
			DisableKeepAlives:     true,
		},
	}
}

// response is the text of a reply. Non-2xx replies are not errors: their
// body, or "HTTP <code>" when it is empty, is returned as text.
type response struct {
	StatusCode int
	Body       string
}

func (r response) ok() bool {
	return r.StatusCode >= 200 && r.StatusCode <= 299
}

func (c *Client) send(ctx context.Context, hc *http.Client, method, path string, header http.Header, body string) (response, error) {
	url := c.baseURL + path

	logrus.WithFields(logrus.Fields{
		"method": method,
		"url":    url,
		"data":   body,
	}).Trace("sending request to device")

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return response{}, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := hc.Do(req)
	if err != nil {
		return response{}, &NetworkError{Op: method, URL: url, Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logrus.Errorf("failed to close response body: %v", err)
		}
	}()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return response{}, &NetworkError{Op: method, URL: url, Err: err}
	}

	r := response{StatusCode: resp.StatusCode, Body: string(b)}
	if !r.ok() {
		logrus.WithFields(logrus.Fields{
			"method":     method,
			"url":        url,
			"statusCode": resp.StatusCode,
		}).Warn("device replied with non-2xx status")
		if r.Body == "" {
			r.Body = fmt.Sprintf("HTTP %d", resp.StatusCode)
		}
	}

	return r, nil
}
