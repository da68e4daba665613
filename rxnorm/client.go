// Package rxnorm is a small client for the NLM RxNav REST API.
// It looks up brand names for a generic ingredient and the normalized
// RxNorm name for a brand. Calls are rate limited, bounded by a short
// timeout and guarded by a circuit breaker.
package rxnorm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/absorpgen/absorpgen-api/logging"
	"github.com/absorpgen/absorpgen-api/metrics"
	"github.com/juju/ratelimit"
	"github.com/sony/gobreaker"
)

// DefaultBaseURL is the public RxNav REST endpoint
const DefaultBaseURL = "https://rxnav.nlm.nih.gov/REST"

// ErrRateLimited is returned when the outbound bucket cannot serve a call in time
var ErrRateLimited = errors.New("rxnorm: outbound rate limit exceeded")

// errLookupTimeout is the cause attached to the per-lookup deadline
var errLookupTimeout = errors.New("rxnorm: lookup timed out")

// callerDoneError marks a request abandoned because the caller's context
// ended. It is not an upstream failure.
type callerDoneError struct {
	err error
}

func (e *callerDoneError) Error() string { return e.err.Error() }
func (e *callerDoneError) Unwrap() error { return e.err }

// callerDone reports whether ctx ended for a reason other than the lookup deadline
func callerDone(ctx context.Context) bool {
	return ctx.Err() != nil && !errors.Is(context.Cause(ctx), errLookupTimeout)
}

// StatusError reports a non-200 response
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("rxnorm: unexpected status: %d", e.Code)
}

func isClientError(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code >= 400 && se.Code < 500 && se.Code != http.StatusTooManyRequests
}

// Options configures a Client
type Options struct {
	BaseURL string
	Timeout time.Duration
	// Rate is the sustained outbound request rate per second
	Rate    float64
	Breaker BreakerConfig
}

// Client handles RxNav API requests
type Client struct {
	httpClient *http.Client
	baseURL    string
	bucket     *ratelimit.Bucket
	timeout    time.Duration
	maxWait    time.Duration
	breaker    *gobreaker.CircuitBreaker
}

// NewClient creates a new RxNav client
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 4 * time.Second
	}
	if opts.Rate <= 0 {
		opts.Rate = 5
	}
	if opts.Breaker == (BreakerConfig{}) {
		opts.Breaker = DefaultBreakerConfig()
	}

	capacity := int64(opts.Rate)
	if capacity < 1 {
		capacity = 1
	}

	return &Client{
		httpClient: &http.Client{Timeout: opts.Timeout},
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		bucket:     ratelimit.NewBucketWithRate(opts.Rate, capacity),
		timeout:    opts.Timeout,
		maxWait:    opts.Timeout / 4,
		breaker:    newBreaker(opts.Breaker),
	}
}

// State returns the current circuit breaker state
func (c *Client) State() State {
	return mapState(c.breaker.State())
}

// BrandNames returns the brand-name (tty=BN) concepts RxNav lists for a drug,
// in the order the service returns them.
func (c *Client) BrandNames(ctx context.Context, name string) ([]string, error) {
	ctx, cancel := c.lookupContext(ctx)
	defer cancel()

	params := url.Values{}
	params.Set("name", name)

	var body drugsResponse
	if err := c.get(ctx, "drugs", "/drugs.json?"+params.Encode(), &body); err != nil {
		return nil, err
	}

	var brands []string
	for _, group := range body.DrugGroup.ConceptGroup {
		if group.TTY != "BN" {
			continue
		}
		for _, concept := range group.ConceptProperties {
			if concept.Name != "" {
				brands = append(brands, concept.Name)
			}
		}
	}
	return brands, nil
}

// GenericName returns the RxNorm name of the first concept matching a brand.
// An empty string with a nil error means RxNav has no concept for it.
// Both requests share one deadline.
func (c *Client) GenericName(ctx context.Context, brand string) (string, error) {
	ctx, cancel := c.lookupContext(ctx)
	defer cancel()

	params := url.Values{}
	params.Set("name", brand)

	var ids rxcuiResponse
	if err := c.get(ctx, "rxcui", "/rxcui.json?"+params.Encode(), &ids); err != nil {
		return "", err
	}
	if len(ids.IDGroup.RxNormID) == 0 || ids.IDGroup.RxNormID[0] == "" {
		return "", nil
	}

	path := fmt.Sprintf("/rxcui/%s/property.json?propName=RxNorm%%20Name", url.PathEscape(ids.IDGroup.RxNormID[0]))
	var props propertyResponse
	if err := c.get(ctx, "property", path, &props); err != nil {
		return "", err
	}
	if len(props.PropConceptGroup.PropConcept) == 0 {
		return "", nil
	}
	return props.PropConceptGroup.PropConcept[0].PropValue, nil
}

func (c *Client) lookupContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeoutCause(ctx, c.timeout, errLookupTimeout)
}

// get performs one throttled GET through the breaker and decodes JSON into out.
// The token is taken before the breaker so local throttling never counts
// against RxNav.
func (c *Client) get(ctx context.Context, endpoint, path string, out any) error {
	start := time.Now()

	err := c.wait(ctx)
	if err == nil {
		_, err = c.breaker.Execute(func() (interface{}, error) {
			err := c.do(ctx, path, out)
			if err != nil && callerDone(ctx) {
				return nil, &callerDoneError{err: err}
			}
			return nil, err
		})
	}

	var done *callerDoneError
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		outcome = "circuit_open"
	case errors.Is(err, ErrRateLimited):
		outcome = "rate_limited"
	case errors.As(err, &done), callerDone(ctx):
		outcome = "canceled"
	default:
		outcome = "error"
	}
	metrics.RxNormRequestsTotal.WithLabelValues(endpoint, outcome).Inc()

	if err != nil {
		logging.Debug("RxNorm request failed",
			"endpoint", endpoint,
			"outcome", outcome,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err)
		return fmt.Errorf("rxnorm %s: %w", endpoint, err)
	}
	return nil
}

// wait takes one token, honoring the context while sleeping
func (c *Client) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d, ok := c.bucket.TakeMaxDuration(1, c.maxWait)
	if !ok {
		return ErrRateLimited
	}
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) do(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{Code: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
