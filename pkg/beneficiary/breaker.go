package beneficiary

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"ledger-core/pkg/ledger"
	"ledger-core/pkg/logging"
	"ledger-core/pkg/metrics"
)

// BreakerConfig configures the circuit breaker around the registry.
type BreakerConfig struct {
	// Timeout bounds each registry call. The beneficiary touch is a
	// secondary effect; a slow registry must not hold up transfers.
	Timeout time.Duration

	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration

	// ConsecutiveFailures is the trip threshold.
	ConsecutiveFailures uint32
}

// DefaultBreakerConfig returns defaults tuned for a best-effort collaborator.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Timeout:             500 * time.Millisecond,
		OpenTimeout:         30 * time.Second,
		ConsecutiveFailures: 5,
	}
}

// BreakerRegistry wraps a Registry with timeout and circuit breaker
// protection. When the breaker is open, lookups report ErrNotFound and
// MarkUsed fails fast; the transfer executor treats both as a skipped
// touch, never as a transfer failure.
type BreakerRegistry struct {
	registry Registry
	cb       *gobreaker.CircuitBreaker
	timeout  time.Duration
	logger   *logging.Logger
}

// NewBreakerRegistry wraps registry with breaker protection.
func NewBreakerRegistry(registry Registry, config BreakerConfig, collector metrics.Collector, logger *logging.Logger) *BreakerRegistry {
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	logger = logger.Named("beneficiary")

	br := &BreakerRegistry{
		registry: registry,
		timeout:  config.Timeout,
		logger:   logger,
	}

	br.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "beneficiary-registry",
		MaxRequests: 1,
		Timeout:     config.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			var state metrics.CircuitState
			switch to {
			case gobreaker.StateOpen:
				state = metrics.CircuitOpen
			case gobreaker.StateHalfOpen:
				state = metrics.CircuitHalfOpen
			default:
				state = metrics.CircuitClosed
			}
			collector.RecordCircuitState(name, state)
		},
		IsSuccessful: func(err error) bool {
			// A missing beneficiary is a normal answer, not a registry
			// failure.
			return err == nil || errors.Is(err, ErrNotFound)
		},
	})

	return br
}

func (br *BreakerRegistry) FindByAccountNumber(ctx context.Context, ownerID, accountNumber string) (*ledger.Beneficiary, error) {
	if br.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, br.timeout)
		defer cancel()
	}

	result, err := br.cb.Execute(func() (interface{}, error) {
		return br.registry.FindByAccountNumber(ctx, ownerID, accountNumber)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			br.logger.Warn("registry lookup skipped, circuit open",
				zap.String("owner_id", ownerID))
			return nil, ErrNotFound
		}
		return nil, err
	}
	return result.(*ledger.Beneficiary), nil
}

func (br *BreakerRegistry) MarkUsed(ctx context.Context, beneficiaryID string, usedAt time.Time) error {
	if br.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, br.timeout)
		defer cancel()
	}

	_, err := br.cb.Execute(func() (interface{}, error) {
		return nil, br.registry.MarkUsed(ctx, beneficiaryID, usedAt)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		br.logger.Warn("mark-used skipped, circuit open",
			zap.String("beneficiary_id", beneficiaryID))
		return ErrNotFound
	}
	return err
}

var _ Registry = (*BreakerRegistry)(nil)
