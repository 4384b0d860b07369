// Package github provides a resilient GitHub client for the FSH census
//
// Every call retries transient failures forever with a fixed delay. Only a
// small set of statuses end the loop: 200, 404 (not found), 422 (search over
// an inaccessible repo) and 401 (bad credentials, fatal)
package github

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"fshfinder/internal/platform/logger"

	perr "fshfinder/internal/platform/errors"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

const (
	apiURLDefault     = "https://api.github.com"
	webURLDefault     = "https://github.com"
	rawURLDefault     = "https://raw.githubusercontent.com"
	defaultTimeout    = 30 * time.Second
	defaultUA         = "fshfinder"
	defaultRetryDelay = 30 * time.Second
	defaultMemoSize   = 4096
	defaultMemoTTL    = time.Hour
	maxBodyBytes      = 8 << 20
)

// Options configures the Client
type Options struct {
	APIURL    string
	WebURL    string
	RawURL    string
	UserAgent string
	Timeout   time.Duration

	// Basic auth pair; a token without a username is sent as a bearer token
	Username string
	Token    string

	// Fixed wait between attempts for transient failures
	RetryDelay time.Duration

	// Client side pacing; zero RatePerSec disables the limiter
	RatePerSec float64
	Burst      int

	// HEAD results memo, sources re-check the same repos across feeds
	MemoSize int
	MemoTTL  time.Duration

	// Transport overrides the http transport, nil uses the default
	Transport http.RoundTripper
}

// Response is a fully read forge response
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Client is a minimal GitHub client with a fixed-delay retry loop
type Client struct {
	http    *http.Client
	opts    Options
	limiter *rate.Limiter
	heads   *expirable.LRU[string, bool]
	log     logger.Logger
	now     func() time.Time
	sleep   func(context.Context, time.Duration) error
}

// NewClient creates a new Client with sane defaults
func NewClient(o Options) *Client {
	if o.APIURL == "" {
		o.APIURL = apiURLDefault
	}
	if o.WebURL == "" {
		o.WebURL = webURLDefault
	}
	if o.RawURL == "" {
		o.RawURL = rawURLDefault
	}
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = defaultRetryDelay
	}
	if o.MemoSize <= 0 {
		o.MemoSize = defaultMemoSize
	}
	if o.MemoTTL <= 0 {
		o.MemoTTL = defaultMemoTTL
	}

	lim := rate.NewLimiter(rate.Inf, 1)
	if o.RatePerSec > 0 {
		burst := o.Burst
		if burst <= 0 {
			burst = 1
		}
		lim = rate.NewLimiter(rate.Limit(o.RatePerSec), burst)
	}

	return &Client{
		http:    &http.Client{Timeout: o.Timeout, Transport: o.Transport},
		opts:    o,
		limiter: lim,
		heads:   expirable.NewLRU[string, bool](o.MemoSize, nil, o.MemoTTL),
		log:     *logger.Named("github"),
		now:     time.Now,
		sleep:   sleepCtx,
	}
}

// WithLogger swaps the client logger, returns the client for chaining
func (c *Client) WithLogger(l logger.Logger) *Client {
	c.log = l
	return c
}

// Head reports whether url answers 200; 404 is a definite false
func (c *Client) Head(ctx context.Context, rawURL string) (bool, error) {
	if v, ok := c.heads.Get(rawURL); ok {
		return v, nil
	}
	resp, err := c.do(ctx, http.MethodHead, rawURL, nil, true)
	switch {
	case err == nil && resp.Status == http.StatusOK:
		c.heads.Add(rawURL, true)
		return true, nil
	case err == nil, perr.IsCode(err, perr.ErrorCodeNotFound):
		c.heads.Add(rawURL, false)
		return false, nil
	default:
		return false, err
	}
}

// Get issues an unauthenticated GET, used for feeds outside the forge
func (c *Client) Get(ctx context.Context, rawURL string, query url.Values) (*Response, error) {
	return c.do(ctx, http.MethodGet, rawURL, query, false)
}

// GetAuthed issues a GET carrying forge credentials (REST, content and search)
// A 422 comes back as a Response with Status 422 and a nil error
func (c *Client) GetAuthed(ctx context.Context, rawURL string, query url.Values) (*Response, error) {
	return c.do(ctx, http.MethodGet, rawURL, query, true)
}

// do runs the retry loop until a terminal status or ctx cancellation
func (c *Client) do(ctx context.Context, method, rawURL string, query url.Values, authed bool) (*Response, error) {
	target := rawURL
	if len(query) > 0 {
		target = rawURL + "?" + query.Encode()
	}
	log := logger.From(ctx, c.log)
	log.Debug().Str("method", method).Str("url", target).Msg("github request")

	attempts := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, method, target, nil)
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "github new request failed for %s", target)
		}
		req.Header.Set("User-Agent", c.opts.UserAgent)
		req.Header.Set("Accept", "application/vnd.github.v3+json")
		if authed {
			c.authorize(req)
		}

		start := c.now()
		resp, err := c.http.Do(req)
		lat := c.now().Sub(start)
		attempts++

		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			msg := "github transport error retrying"
			if isTimeout(err) {
				msg = "github http timeout retrying"
			}
			log.Warn().Err(err).Str("url", target).Int("attempt", attempts).Dur("retry_in", c.opts.RetryDelay).Msg(msg)
			if err := c.sleep(ctx, c.opts.RetryDelay); err != nil {
				return nil, err
			}
			continue
		}

		body, rerr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
		_ = resp.Body.Close()
		if rerr != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn().Err(rerr).Str("url", target).Int("attempt", attempts).Msg("github body read failed retrying")
			if err := c.sleep(ctx, c.opts.RetryDelay); err != nil {
				return nil, err
			}
			continue
		}
		if len(body) > maxBodyBytes {
			return nil, perr.Unavailablef("github body for %s exceeds %d bytes", target, maxBodyBytes)
		}
		out := &Response{Status: resp.StatusCode, Header: resp.Header, Body: body}

		rem, reset, retryAfter := parseRateHeaders(resp.Header)
		log.Debug().
			Str("method", method).
			Str("url", target).
			Int("status", resp.StatusCode).
			Int("attempt", attempts).
			Dur("latency", lat).
			Int("rate_remaining", rem).
			Time("rate_reset", reset).
			Msg("github http response")

		if perr.IsTerminal(resp.StatusCode) {
			switch perr.CodeForHTTPStatus(resp.StatusCode) {
			case perr.ErrorCodeNotFound:
				return out, perr.NotFoundf("github 404 for %s", target)
			case perr.ErrorCodeUnauthorized:
				return out, perr.Unauthorizedf("github rejected credentials (401) for %s, check the configured username and token", target)
			}
			return out, nil
		}

		wait := c.opts.RetryDelay
		if w := computeWait(rem, reset, retryAfter, c.now()); w > wait {
			wait = w
		}
		log.Warn().
			Str("url", target).
			Int("status", resp.StatusCode).
			Str("body", tail(body, 512)).
			Int("attempt", attempts).
			Dur("retry_in", wait).
			Msg("github error retrying")
		if err := c.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}

func (c *Client) authorize(req *http.Request) {
	switch {
	case c.opts.Username != "" && c.opts.Token != "":
		req.SetBasicAuth(c.opts.Username, c.opts.Token)
	case c.opts.Token != "":
		req.Header.Set("Authorization", "token "+c.opts.Token)
	}
}

// sleepCtx waits d or until ctx is done
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func tail(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return fmt.Sprintf("%s...", b[:n])
}
