// Package upstream wraps outbound HTTP calls to a remote dependency with a
// circuit breaker, so a failing weather API or model server fails fast instead
// of pinning request handlers.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
)

// ErrOpen is returned (wrapped) when the breaker rejects a call.
var ErrOpen = errors.New("breaker open")

// StatusError reports an upstream 5xx; it counts as a breaker failure.
type StatusError struct {
	Name   string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s upstream status %d", e.Name, e.Status)
}

// Options configures timeout and breaker thresholds.
type Options struct {
	Timeout  time.Duration
	Failures int           // consecutive failures before opening
	OpenFor  time.Duration // time spent open before a half-open probe
	Interval time.Duration // closed-state count reset period (0 = never)
	Accept   string        // defaults to application/json

	OnStateChange func(name string, from, to gobreaker.State)
}

// Response is the raw result of a call that reached the upstream.
type Response struct {
	Status int
	Body   []byte
}

// Decode unmarshals the JSON body into out.
func (r *Response) Decode(out any) error {
	if r == nil || len(r.Body) == 0 {
		return errors.New("empty response body")
	}
	return json.Unmarshal(r.Body, out)
}

// Upstream is safe for concurrent use.
type Upstream struct {
	name    string
	base    string
	client  *resty.Client
	breaker *gobreaker.CircuitBreaker
}

func New(name, base string, opts Options) *Upstream {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.Failures < 1 {
		opts.Failures = 1
	}
	if opts.OpenFor <= 0 {
		opts.OpenFor = 10 * time.Second
	}
	if opts.Accept == "" {
		opts.Accept = "application/json"
	}
	base = strings.TrimRight(strings.TrimSpace(base), "/")

	client := resty.New().
		SetBaseURL(base).
		SetTimeout(opts.Timeout).
		SetHeader("Accept", opts.Accept)

	fails := uint32(opts.Failures)
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     name,
		Interval: opts.Interval,
		Timeout:  opts.OpenFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= fails
		},
		OnStateChange: opts.OnStateChange,
		// a caller giving up is not the upstream's fault
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &Upstream{name: name, base: base, client: client, breaker: cb}
}

func (u *Upstream) Name() string { return u.name }

func (u *Upstream) BaseURL() string { return u.base }

func (u *Upstream) State() gobreaker.State { return u.breaker.State() }

// Get issues GET base+path with the given query parameters.
func (u *Upstream) Get(ctx context.Context, path string, query map[string]string) (*Response, error) {
	return u.do(ctx, func(r *resty.Request) (*resty.Response, error) {
		if len(query) > 0 {
			r.SetQueryParams(query)
		}
		return r.Get(path)
	})
}

// PostJSON issues POST base+path with body encoded as JSON.
func (u *Upstream) PostJSON(ctx context.Context, path string, body any) (*Response, error) {
	return u.do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetHeader("Content-Type", "application/json").
			SetBody(body).
			Post(path)
	})
}

func (u *Upstream) do(ctx context.Context, send func(*resty.Request) (*resty.Response, error)) (*Response, error) {
	out, err := u.breaker.Execute(func() (interface{}, error) {
		resp, err := send(u.client.R().SetContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("%s request error: %w", u.name, err)
		}
		res := &Response{Status: resp.StatusCode(), Body: resp.Body()}
		if res.Status >= 500 {
			return res, &StatusError{Name: u.name, Status: res.Status}
		}
		return res, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%s: %w", u.name, ErrOpen)
	}
	res, _ := out.(*Response)
	return res, err
}
