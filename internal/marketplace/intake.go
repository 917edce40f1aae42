package marketplace

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/sudo-init-do/brandwacht/internal/pricing"
)

// Rates are the tariff inputs applied to every quote.
type Rates struct {
	HourlyRate      float64
	PlatformFeeRate float64
}

// Quote prices an intake's headcount and hours at these rates.
func (r Rates) Quote(headcount, hours int) pricing.Fees {
	return pricing.ComputeFees(headcount, hours, r.HourlyRate, r.PlatformFeeRate)
}

// IntakeService runs validation, pricing, persistence and the best-effort
// notification for a single submission.
type IntakeService struct {
	repo     Repository
	notifier Notifier
	rates    Rates
	metrics  Recorder
	logger   *zap.Logger
}

// NewIntakeService wires the intake pipeline. rec may be nil.
func NewIntakeService(repo Repository, notifier Notifier, rates Rates, rec Recorder, logger *zap.Logger) *IntakeService {
	if rec == nil {
		rec = nopRecorder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IntakeService{repo: repo, notifier: notifier, rates: rates, metrics: rec, logger: logger}
}

// Rates returns the tariff this service quotes with.
func (s *IntakeService) Rates() Rates {
	return s.rates
}

// Submit accepts an intake. It succeeds once the row is stored; the chat
// notification is launched afterwards and cannot change the outcome.
func (s *IntakeService) Submit(ctx context.Context, raw map[string]any) (*Request, error) {
	in, err := ParseIntake(raw)
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			s.metrics.IntakeRejected(string(ve.Kind))
			s.logger.Info("intake rejected", zap.String("reason", string(ve.Kind)), zap.Strings("fields", ve.Fields))
		}
		return nil, err
	}

	fees := s.rates.Quote(in.Headcount, in.Hours)
	stored, err := s.repo.Create(ctx, NewRequest{
		Intake:            in,
		HourlyRate:        s.rates.HourlyRate,
		FeeAmount:         fees.FeeAmount,
		DepositAmount:     fees.DepositAmount,
		PlatformFeeRate:   s.rates.PlatformFeeRate,
		PlatformFeeAmount: fees.PlatformFeeAmount,
	})
	if err != nil {
		s.metrics.IntakeRejected("persistence")
		s.logger.Error("intake store failed", zap.Error(err))
		return nil, err
	}

	s.notifier.Notify(ctx, *stored)
	s.metrics.IntakeAccepted(stored.Source)
	s.logger.Info("intake stored",
		zap.String("request_id", stored.ID),
		zap.String("source", stored.Source),
		zap.Int64("fee_amount", stored.FeeAmount),
	)
	return stored, nil
}

// Lookup returns a stored request by id.
func (s *IntakeService) Lookup(ctx context.Context, id string) (*Request, error) {
	return s.repo.Get(ctx, id)
}
