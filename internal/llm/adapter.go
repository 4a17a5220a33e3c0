package llm

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/meetinsight/service/internal/models"
)

// baseAdapter carries the plumbing shared by every HTTP backend: a client
// with a bounded timeout, a request rate limiter, and a circuit breaker so
// a flapping provider stops eating the batch's time budget.
type baseAdapter struct {
	provider   models.ModelType
	config     *Config
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *circuitBreaker
}

func newBaseAdapter(provider models.ModelType, config *Config) *baseAdapter {
	config.applyDefaults()

	httpClient := &http.Client{
		Timeout: config.Timeout,
		Transport: &http.Transport{
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	// requests per minute -> requests per second
	limiter := rate.NewLimiter(rate.Limit(float64(config.RateLimit)/60.0), config.RateLimit)

	return &baseAdapter{
		provider:   provider,
		config:     config,
		httpClient: httpClient,
		limiter:    limiter,
		breaker: newCircuitBreaker(&circuitBreakerConfig{
			MaxFailures:  config.MaxFailures,
			ResetTimeout: 30 * time.Second,
		}),
	}
}

func (ba *baseAdapter) Provider() models.ModelType {
	return ba.provider
}

func (ba *baseAdapter) checkRateLimit(ctx context.Context) error {
	if err := ba.limiter.Wait(ctx); err != nil {
		return NewQuotaError(ba.provider, "local rate limit wait aborted: "+err.Error())
	}
	return nil
}

func (ba *baseAdapter) checkCircuitBreaker() error {
	if !ba.breaker.allowRequest() {
		return &Error{
			Provider:  ba.provider,
			Code:      CodeCircuitOpen,
			Message:   "circuit breaker open, request rejected",
			Retryable: true,
		}
	}
	return nil
}

func (ba *baseAdapter) recordSuccess() { ba.breaker.recordSuccess() }
func (ba *baseAdapter) recordFailure() { ba.breaker.recordFailure() }

func (ba *baseAdapter) Close() error {
	ba.httpClient.CloseIdleConnections()
	return nil
}

type circuitState int

const (
	stateClosed circuitState = iota
	stateOpen
	stateHalfOpen
)

type circuitBreakerConfig struct {
	MaxFailures  int
	ResetTimeout time.Duration
}

type circuitBreaker struct {
	config       *circuitBreakerConfig
	state        circuitState
	failures     int
	lastFailTime time.Time
	mutex        sync.Mutex
}

func newCircuitBreaker(config *circuitBreakerConfig) *circuitBreaker {
	return &circuitBreaker{config: config, state: stateClosed}
}

func (cb *circuitBreaker) allowRequest() bool {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	switch cb.state {
	case stateClosed, stateHalfOpen:
		return true
	case stateOpen:
		if time.Since(cb.lastFailTime) > cb.config.ResetTimeout {
			cb.state = stateHalfOpen
			return true
		}
		return false
	default:
		return false
	}
}

func (cb *circuitBreaker) recordSuccess() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.failures = 0
	cb.state = stateClosed
}

func (cb *circuitBreaker) recordFailure() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.failures++
	cb.lastFailTime = time.Now()
	if cb.failures >= cb.config.MaxFailures {
		cb.state = stateOpen
	}
}
