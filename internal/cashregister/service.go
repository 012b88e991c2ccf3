// Package cashregister implements the cash register session lifecycle:
// opening and closing sessions, the manual cash movement ledger, cash
// payment aggregation and the close-time reconciliation.
//
// Every mutating operation runs in one Repository transaction. Open locks
// the register row, close locks the session row exclusively, and movement
// and payment inserts lock it shared, so a close sees every insert that
// committed before it and every later insert sees the session CLOSED.
package cashregister

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kasa-backend/internal/models"
	"kasa-backend/internal/money"
	"kasa-backend/internal/notify"

	"go.uber.org/zap"
)

const (
	defaultTxTimeout      = 10 * time.Second
	defaultPublishTimeout = 3 * time.Second
	maxDescriptionLen     = 255
	maxNotesLen           = 2000
)

type Service struct {
	repo      Repository
	publisher notify.Publisher
	logger    *zap.Logger
	now       func() time.Time
	txTimeout time.Duration
}

type Option func(*Service)

func WithPublisher(p notify.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithTxTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.txTimeout = d
		}
	}
}

func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		logger:    zap.NewNop(),
		now:       time.Now,
		txTimeout: defaultTxTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Repository exposes the underlying store for read-only collaborators such
// as the audit listing.
func (s *Service) Repository() Repository {
	return s.repo
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.txTimeout)
}

// lookupErr turns a missing row into NotFound and wraps anything else.
func lookupErr(err error, what string) error {
	if errors.Is(err, ErrRecordNotFound) {
		return notFound(what)
	}
	return fmt.Errorf("load %s: %w", what, err)
}

// tooLarge is the InvalidAmount for amounts a numeric(12,2) column cannot hold.
func tooLarge(field string) error {
	return newError(CodeInvalidAmount, field, fmt.Sprintf("%s cannot exceed %s", field, money.Max))
}

// expectedFits rejects a cash change that would move the session's expected
// cash outside the range the closing columns can store. It must run after
// the session row is locked.
func expectedFits(ctx context.Context, tx Repository, session *models.CashRegisterSession, delta money.Money, field string) error {
	totals, err := tx.SumMovements(ctx, session.ID)
	if err != nil {
		return fmt.Errorf("sum movements: %w", err)
	}
	cashPayments, err := tx.SumCompletedCashPayments(ctx, session.ID)
	if err != nil {
		return fmt.Errorf("sum cash payments: %w", err)
	}
	if !ExpectedCash(session.OpeningCashBalance, cashPayments, totals.Net()).Add(delta).InRange() {
		return newError(CodeInvalidAmount, field, fmt.Sprintf("expected cash of the session would exceed %s", money.Max))
	}
	return nil
}

func validatePage(p Page) error {
	if p.Limit < 0 {
		return newError(CodeInvalidInput, "limit", "limit cannot be negative")
	}
	if p.Offset < 0 {
		return newError(CodeInvalidInput, "offset", "offset cannot be negative")
	}
	return nil
}

// publish delivers at most once and only logs failures.
func (s *Service) publish(ctx context.Context, event notify.SessionClosedEvent) {
	if s.publisher == nil {
		return
	}

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultPublishTimeout)
	defer cancel()

	if err := s.publisher.PublishSessionClosed(pctx, event); err != nil {
		s.logger.Warn("session closed notification not delivered",
			zap.Uint("session_id", event.SessionID),
			zap.String("event_id", event.EventID.String()),
			zap.Error(err),
		)
	}
}
