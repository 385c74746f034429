package httpclient

import (
	"errors"
	"sync"
	"time"

	"github.com/IgorGrieder/linkedge/internal/infrastructure/logger"
	"go.uber.org/zap"
)

type State int

const (
	StateClosed State = iota + 1
	StateOpen
	StateHalfOpen
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type CircuitBreaker struct {
	mu          sync.Mutex
	name        string
	state       State
	failures    int
	maxFailures int
	openSince   time.Time
	openTimeout time.Duration
	now         func() time.Time
}

func NewCircuitBreaker(name string, maxFailures int, openTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		name:        name,
		state:       StateClosed,
		maxFailures: maxFailures,
		openTimeout: openTimeout,
		now:         time.Now,
	}
}

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) CheckBeforeRequest() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.openSince) > cb.openTimeout {
			logger.Warn("circuit breaker half-open", zap.String("breaker", cb.name))
			cb.state = StateHalfOpen
			return nil
		}
		return ErrCircuitOpen
	case StateHalfOpen:
		// one probe at a time
		return ErrCircuitOpen
	}
	return nil
}

func (cb *CircuitBreaker) OnSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateHalfOpen {
		logger.Info("circuit breaker closed", zap.String("breaker", cb.name))
	}
	cb.state = StateClosed
	cb.failures = 0
}

func (cb *CircuitBreaker) OnFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateHalfOpen:
		logger.Warn("circuit breaker reopened after probe failure", zap.String("breaker", cb.name))
		cb.state = StateOpen
		cb.openSince = cb.now()
	case StateClosed:
		cb.failures++
		if cb.failures >= cb.maxFailures {
			logger.Warn("circuit breaker opened",
				zap.String("breaker", cb.name),
				zap.Int("failures", cb.failures),
			)
			cb.state = StateOpen
			cb.openSince = cb.now()
		}
	}
}
