package resilience

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"

	"github.com/floodwatch/floodwatch/internal/fault"
)

// ErrCircuitOpen is returned without contacting the provider while the breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// ClientConfig holds configuration for the resilient HTTP client.
type ClientConfig struct {
	// Name identifies this provider for breaker naming and the health registry.
	Name string

	// Timeout is the per-attempt HTTP timeout.
	// Default: 10 seconds
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt. Zero disables retries.
	MaxRetries uint64

	// InitialInterval is the first retry backoff interval.
	// Default: 200ms
	InitialInterval time.Duration

	// MaxInterval caps the retry backoff interval.
	// Default: 2 seconds
	MaxInterval time.Duration

	// UserAgent is sent on every request when the request has none.
	UserAgent string

	// Breaker configures the circuit breaker. Zero fields take defaults.
	Breaker BreakerConfig

	// Registry receives success/failure records. Optional.
	Registry *Registry
}

// DefaultClientConfig returns the defaults used for external providers.
func DefaultClientConfig(name string) ClientConfig {
	return ClientConfig{
		Name:            name,
		Timeout:         10 * time.Second,
		MaxRetries:      2,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		Breaker:         DefaultBreakerConfig(name),
	}
}

// Client is an HTTP client guarded by a circuit breaker with bounded retries.
// Every error it returns wraps fault.ErrUnavailable.
type Client struct {
	name       string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*http.Response]
	config     ClientConfig
	registry   *Registry
}

// NewClient creates a new resilient HTTP client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = 200 * time.Millisecond
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = 2 * time.Second
	}
	if cfg.Breaker.Name == "" {
		cfg.Breaker.Name = cfg.Name
	}

	c := &Client{
		name:       cfg.Name,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    NewBreaker[*http.Response](cfg.Breaker), //nolint:bodyclose // type param, not a response
		config:     cfg,
		registry:   cfg.Registry,
	}
	if c.registry != nil {
		c.registry.Register(cfg.Name, c)
	}
	return c
}

// Name returns the provider name.
func (c *Client) Name() string {
	return c.name
}

// Do executes req. Network errors and 5xx responses are retried with
// exponential backoff; 4xx responses are returned to the caller as-is.
// The caller closes the body of a returned response.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.config.InitialInterval
	bo.MaxInterval = c.config.MaxInterval
	bo.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, c.config.MaxRetries), ctx)

	var resp *http.Response
	operation := func() error {
		r, err := c.breaker.Execute(func() (*http.Response, error) { //nolint:bodyclose // closed below or by caller
			attempt := req.Clone(ctx)
			if c.config.UserAgent != "" && attempt.Header.Get("User-Agent") == "" {
				attempt.Header.Set("User-Agent", c.config.UserAgent)
			}
			r, err := c.httpClient.Do(attempt)
			if err != nil {
				return nil, err
			}
			if r.StatusCode >= 500 {
				drain(r)
				return nil, &ServerError{StatusCode: r.StatusCode}
			}
			return r, nil
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(ErrCircuitOpen)
			}
			return err
		}
		resp = r
		return nil
	}

	if err := backoff.Retry(operation, policy); err != nil {
		c.record(err)
		return nil, fault.Unavailable(c.name, err)
	}
	c.record(nil)
	return resp, nil
}

func (c *Client) record(err error) {
	if c.registry == nil {
		return
	}
	if err != nil {
		c.registry.RecordFailure(c.name, err)
		return
	}
	c.registry.RecordSuccess(c.name)
}

// State returns the current breaker state.
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}

// Counts returns the current breaker counters.
func (c *Client) Counts() gobreaker.Counts {
	return c.breaker.Counts()
}

// ServerError represents an HTTP 5xx response from a provider.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

func drain(r *http.Response) {
	_, _ = io.Copy(io.Discard, r.Body) //nolint:errcheck // best effort
	_ = r.Body.Close()
}
