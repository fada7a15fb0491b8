package decorate

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/restyle/server/internal/module/ledger"
	"github.com/restyle/server/internal/module/synthesis"
	"github.com/restyle/server/internal/utils/metrics"
	"go.uber.org/zap"
)

// Service orchestrates a decoration request: check and reserve one credit,
// call the synthesis provider, and either keep the debit (success) or roll
// it back (every other terminal outcome).
//
// The debit and the rollback are both relative updates against the ledger,
// so two concurrent requests from the same user can interleave freely
// without corrupting the balance; the ledger row is the only arbiter.
type Service struct {
	ledger  ledger.Repository
	synth   synthesis.Synthesizer
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewService creates a new decoration service. metrics may be nil.
func NewService(ledgerRepo ledger.Repository, synth synthesis.Synthesizer, m *metrics.Metrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		ledger:  ledgerRepo,
		synth:   synth,
		metrics: m,
		logger:  logger,
	}
}

// Decorate runs the full protocol for one request. Retrying after a genuine
// success charges again: each call is a paid generation.
func (s *Service) Decorate(ctx context.Context, userID uuid.UUID, req *Request) (*Result, error) {
	// Validation happens before any ledger access
	if len(req.ImageData) == 0 || req.StyleName == "" || req.RoomDescription == "" {
		return nil, ErrInvalidInput
	}

	account, err := s.ledger.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			// No account means no credits
			return nil, ErrQuotaExceeded
		}
		return nil, fmt.Errorf("%w: %v", ErrLedger, err)
	}

	privileged := account.IsPrivileged()
	debited := false

	if !privileged {
		if account.Balance <= 0 {
			return nil, ErrQuotaExceeded
		}
		if err := s.ledger.DebitOne(ctx, userID); err != nil {
			if errors.Is(err, ledger.ErrInsufficientCredits) {
				// Lost the race against a concurrent request
				return nil, ErrQuotaExceeded
			}
			return nil, fmt.Errorf("%w: %v", ErrLedger, err)
		}
		debited = true
		if s.metrics != nil {
			s.metrics.LedgerDebitsTotal.Inc()
		}
	}

	instruction := synthesis.BuildInstruction(req.StyleName, req.RoomDescription)

	start := time.Now()
	img, synthErr := s.synth.Synthesize(ctx, &synthesis.Request{
		ImageData:   req.ImageData,
		MimeType:    req.MimeType,
		Instruction: instruction,
	})
	s.recordSynthesis(synthErr, time.Since(start))

	if synthErr != nil {
		if debited {
			s.rollback(ctx, userID)
		}
		switch {
		case errors.Is(synthErr, synthesis.ErrContentBlocked):
			return nil, synthErr
		case errors.Is(synthErr, synthesis.ErrRateLimited):
			return nil, synthErr
		default:
			// Cause is logged here, never surfaced to the caller
			s.logger.Error("synthesis call failed",
				zap.Error(synthErr),
				zap.String("user_id", userID.String()),
				zap.String("provider", s.synth.Name()),
			)
			return nil, ErrSynthesisFailed
		}
	}

	return &Result{
		Base64Image: base64.StdEncoding.EncodeToString(img.Data),
		MimeType:    img.MimeType,
	}, nil
}

// rollback restores one credit after a failed generation. It runs on a
// context detached from the request so a client disconnect cannot leave
// the debit stranded.
func (s *Service) rollback(ctx context.Context, userID uuid.UUID) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := s.ledger.CreditOne(rctx, userID); err != nil {
		// The user paid for nothing; this must be visible in the logs
		s.logger.Error("credit rollback failed",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
		return
	}
	if s.metrics != nil {
		s.metrics.LedgerRollbacksTotal.Inc()
	}
}

func (s *Service) recordSynthesis(err error, duration time.Duration) {
	if s.metrics == nil {
		return
	}

	status := "success"
	switch {
	case errors.Is(err, synthesis.ErrContentBlocked):
		status = "blocked"
	case errors.Is(err, synthesis.ErrNoImage):
		status = "no_image"
	case errors.Is(err, synthesis.ErrRateLimited):
		status = "rate_limited"
	case err != nil:
		status = "fault"
	}

	s.metrics.RecordSynthesis(s.synth.Name(), status, duration)
}
