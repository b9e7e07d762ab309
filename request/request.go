package request

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/thrasher-corp/localbitcoins/nonce"
)

const (
	userAgent = "User-Agent"

	// MaxRequestJobs bounds the number of in-flight requests per Requester;
	// additional callers block until a slot frees or their context ends
	MaxRequestJobs = 50

	// DefaultHTTPTimeout is the default timeout applied to the HTTP client
	// when the caller does not supply one
	DefaultHTTPTimeout = time.Second * 15
)

var (
	errRequestSystemIsNil = errors.New("request system is nil")
	errRequestItemNil     = errors.New("request item is nil")
	errInvalidPath        = errors.New("invalid path")

	// ErrUnsuccessfulHTTPStatus is returned when the remote service replies
	// with a status code outside the 2xx range. The status and raw response
	// are wrapped alongside so the caller can inspect them.
	ErrUnsuccessfulHTTPStatus = errors.New("unsuccessful HTTP status code")
)

// Item holds all the parameters for a single outbound call
type Item struct {
	Method        string
	Path          string
	Headers       map[string]string
	Body          io.Reader
	Result        interface{}
	AuthRequest   bool
	Verbose       bool
	HTTPDebugging bool
	Endpoint      EndpointLimit
}

// Requester is a generic HTTP dispatch system for an API service. It gates
// outbound calls on the configured rate limiter and brokers the service
// nonce. Exactly one outbound call is made per SendPayload invocation;
// failures are surfaced to the caller without retry.
type Requester struct {
	Name       string
	HTTPClient *http.Client
	Limiter    Limiter
	Nonce      nonce.Nonce
	UserAgent  string
	jobs       chan struct{}
}

// RequesterOption is a function option for Requester instantiation
type RequesterOption func(*Requester)

// WithLimiter applies a rate limiter to all outbound calls
func WithLimiter(l Limiter) RequesterOption {
	return func(r *Requester) { r.Limiter = l }
}

// WithUserAgent sets a user agent applied to requests without one
func WithUserAgent(ua string) RequesterOption {
	return func(r *Requester) { r.UserAgent = ua }
}

// New returns a new Requester
func New(name string, httpRequester *http.Client, opts ...RequesterOption) *Requester {
	r := &Requester{
		Name:       name,
		HTTPClient: httpRequester,
		jobs:       make(chan struct{}, MaxRequestJobs),
	}
	if r.HTTPClient == nil {
		r.HTTPClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}

	for _, o := range opts {
		o(r)
	}

	return r
}

// validateRequest validates the request item fields and builds the outbound
// http request
func (i *Item) validateRequest(ctx context.Context, r *Requester) (*http.Request, error) {
	if i == nil {
		return nil, errRequestItemNil
	}

	if i.Path == "" {
		return nil, errInvalidPath
	}

	req, err := http.NewRequestWithContext(ctx, i.Method, i.Path, i.Body)
	if err != nil {
		return nil, err
	}

	for k, v := range i.Headers {
		req.Header.Add(k, v)
	}

	if r.UserAgent != "" && req.Header.Get(userAgent) == "" {
		req.Header.Add(userAgent, r.UserAgent)
	}

	return req, nil
}

// SendPayload performs a single HTTP/HTTPS request with the supplied item.
// Transport failures and non-2xx statuses propagate to the caller unmodified;
// there is no retry at this layer.
func (r *Requester) SendPayload(ctx context.Context, i *Item) error {
	if r == nil {
		return errRequestSystemIsNil
	}

	release, err := r.acquireJob(ctx)
	if err != nil {
		return err
	}
	defer release()

	req, err := i.validateRequest(ctx, r)
	if err != nil {
		return err
	}

	if r.Limiter != nil {
		if err := r.Limiter.Limit(ctx, i.Endpoint); err != nil {
			return fmt.Errorf("%s rate limiter: %w", r.Name, err)
		}
	}

	if i.HTTPDebugging {
		dump, _ := httputil.DumpRequestOut(req, true)
		logrus.Debugf("%s DumpRequest:\n%s", r.Name, dump)
	}

	if i.Verbose {
		logrus.Debugf("%s request path: %s type: %s", r.Name, i.Path, i.Method)
		for k, d := range req.Header {
			logrus.Debugf("%s request header [%s]: %s", r.Name, k, d)
		}
	}

	resp, err := r.HTTPClient.Do(req)
	if err != nil {
		return err
	}

	contents, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return err
	}

	if i.HTTPDebugging {
		logrus.Debugf("%s DumpResponse (%s):\n%s", r.Name, i.Path, contents)
	}

	if resp.StatusCode < http.StatusOK ||
		resp.StatusCode > http.StatusAccepted {
		return fmt.Errorf("%s %w: %d raw response: %s",
			r.Name,
			ErrUnsuccessfulHTTPStatus,
			resp.StatusCode,
			contents)
	}

	if i.Verbose {
		logrus.Debugf("%s HTTP status: %s, raw response: %s",
			r.Name,
			resp.Status,
			contents)
	}

	if i.Result != nil {
		return json.Unmarshal(contents, i.Result)
	}
	return nil
}

// acquireJob reserves an in-flight request slot, blocking until one is
// available or ctx is done. A Requester not built with New has no bound.
func (r *Requester) acquireJob(ctx context.Context) (func(), error) {
	if r.jobs == nil {
		return func() {}, nil
	}
	select {
	case r.jobs <- struct{}{}:
		return func() { <-r.jobs }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// GetNonce returns the next strictly increasing nonce for requests. Issuance
// is serialized so concurrent calls never observe a duplicate or out-of-order
// value.
func (r *Requester) GetNonce() nonce.Value {
	return r.Nonce.GetValue()
}
