package activity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/retry"

	"github.com/aulaplay/aula/internal/domain"
)

// Source points at one activity document and knows how to produce the
// validated activity. The session controller re-invokes Load on restart.
type Source interface {
	// Ref identifies the source for error messages and logs.
	Ref() string
	// Load fetches and validates the document. Fetch failures surface as
	// *LoadError; validation failures as *SchemaError.
	Load(ctx context.Context) (domain.Activity, error)
}

// LoadError reports that an activity source could not be fetched.
// Retryable: the document may load fine on the next attempt.
type LoadError struct {
	Ref string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load activity %s: %v", e.Ref, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// FileSource loads an activity from a local file.
type FileSource struct {
	path string
}

// NewFileSource creates a source for a local activity file.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Ref() string { return s.path }

func (s *FileSource) Load(ctx context.Context) (domain.Activity, error) {
	act, err := LoadFile(s.path)
	if err != nil {
		var schemaErr *SchemaError
		if errors.As(err, &schemaErr) {
			return nil, err
		}
		return nil, &LoadError{Ref: s.path, Err: err}
	}
	return act, nil
}

// RegistrySource resolves an activity by id from a loaded catalog.
type RegistrySource struct {
	registry *Registry
	id       string
}

// NewRegistrySource creates a source backed by the catalog.
func NewRegistrySource(registry *Registry, id string) *RegistrySource {
	return &RegistrySource{registry: registry, id: id}
}

func (s *RegistrySource) Ref() string { return s.id }

func (s *RegistrySource) Load(ctx context.Context) (domain.Activity, error) {
	act, err := s.registry.Get(s.id)
	if err != nil {
		return nil, &LoadError{Ref: s.id, Err: err}
	}
	return act, nil
}

// statusError carries an HTTP failure status for retry classification.
type statusError struct {
	Code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// HTTPSource fetches an activity document over HTTP, wrapped in retry and
// circuit-breaker protection so a flaky content server degrades gracefully.
type HTTPSource struct {
	url     string
	client  *http.Client
	breaker circuitbreaker.CircuitBreaker[[]byte]
	retrier retry.Retry[[]byte]
	logger  *slog.Logger
}

// NewHTTPSource creates a resilient HTTP activity source.
func NewHTTPSource(url string, client *http.Client) *HTTPSource {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	s := &HTTPSource{
		url:    url,
		client: client,
		logger: slog.Default(),
	}

	s.breaker = circuitbreaker.New[[]byte](circuitbreaker.Config{
		MaxRequests: 2,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts circuitbreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(from, to circuitbreaker.State) {
			s.logger.Warn("activity source circuit breaker state change",
				"url", s.url,
				"from", from.String(),
				"to", to.String())
		},
	})

	s.retrier = retry.New[[]byte](retry.Config{
		MaxAttempts:   3,
		InitialDelay:  200 * time.Millisecond,
		MaxDelay:      2 * time.Second,
		Multiplier:    2.0,
		BackoffPolicy: retry.BackoffExponential,
		Jitter:        true,
		IsRetryable:   isRetryableFetchError,
	})

	return s
}

func (s *HTTPSource) Ref() string { return s.url }

func (s *HTTPSource) Load(ctx context.Context) (domain.Activity, error) {
	body, err := s.breaker.Execute(ctx, func(ctx context.Context) ([]byte, error) {
		return s.retrier.Do(ctx, s.fetch)
	})
	if err != nil {
		return nil, &LoadError{Ref: s.url, Err: err}
	}

	doc, err := ParseJSON(body)
	if err != nil {
		return nil, &LoadError{Ref: s.url, Err: err}
	}
	return Validate(doc)
}

func (s *HTTPSource) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch activity: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{Code: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read activity body: %w", err)
	}
	return body, nil
}

// isRetryableFetchError treats transport failures and transient HTTP
// statuses as retryable; 4xx responses are not.
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}

	var status *statusError
	if errors.As(err, &status) {
		switch status.Code {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	}

	// Network-level failures are worth retrying.
	return true
}
