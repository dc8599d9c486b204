package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCircuitBreaker_Execute(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures: 3,
		Timeout:     5 * time.Second,
	})

	err := cb.Execute(func() error { return nil })

	assert.NoError(t, err)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_StateTransitions(t *testing.T) {
	tests := []struct {
		name          string
		config        CircuitBreakerConfig
		setup         func(cb *CircuitBreaker)
		expectedState State
	}{
		{
			name: "transition to open after max failures",
			config: CircuitBreakerConfig{
				MaxFailures: 3,
				Timeout:     5 * time.Second,
			},
			setup: func(cb *CircuitBreaker) {
				for i := 0; i < 3; i++ {
					cb.Execute(func() error { return errors.New("fail") })
				}
			},
			expectedState: StateOpen,
		},
		{
			name: "transition to half-open after timeout",
			config: CircuitBreakerConfig{
				MaxFailures: 3,
				Timeout:     50 * time.Millisecond,
			},
			setup: func(cb *CircuitBreaker) {
				for i := 0; i < 3; i++ {
					cb.Execute(func() error { return errors.New("fail") })
				}
				time.Sleep(100 * time.Millisecond)
				cb.Execute(func() error { return nil })
			},
			expectedState: StateHalfOpen,
		},
		{
			name: "transition from half-open to closed on success",
			config: CircuitBreakerConfig{
				MaxFailures: 3,
				Timeout:     50 * time.Millisecond,
				HalfOpenMax: 2,
			},
			setup: func(cb *CircuitBreaker) {
				for i := 0; i < 3; i++ {
					cb.Execute(func() error { return errors.New("fail") })
				}
				time.Sleep(100 * time.Millisecond)
				for i := 0; i < 3; i++ {
					cb.Execute(func() error { return nil })
				}
			},
			expectedState: StateClosed,
		},
		{
			name: "half-open failure reopens",
			config: CircuitBreakerConfig{
				MaxFailures: 3,
				Timeout:     50 * time.Millisecond,
			},
			setup: func(cb *CircuitBreaker) {
				for i := 0; i < 3; i++ {
					cb.Execute(func() error { return errors.New("fail") })
				}
				time.Sleep(100 * time.Millisecond)
				cb.Execute(func() error { return errors.New("fail") })
			},
			expectedState: StateOpen,
		},
		{
			name: "reset returns to closed",
			config: CircuitBreakerConfig{
				MaxFailures: 3,
				Timeout:     1 * time.Hour,
			},
			setup: func(cb *CircuitBreaker) {
				for i := 0; i < 3; i++ {
					cb.Execute(func() error { return errors.New("fail") })
				}
				cb.Reset()
			},
			expectedState: StateClosed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb := NewCircuitBreaker(tt.config)

			tt.setup(cb)

			assert.Equal(t, tt.expectedState, cb.State())
		})
	}
}

func TestCircuitBreaker_OpenState_RejectsRequest(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures: 3,
		Timeout:     1 * time.Hour,
	})

	for i := 0; i < 3; i++ {
		cb.Execute(func() error { return errors.New("fail") })
	}

	err := cb.Execute(func() error { return nil })

	assert.ErrorIs(t, err, ErrCircuitOpen)
}
