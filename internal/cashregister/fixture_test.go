package cashregister_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"kasa-backend/internal/cashregister"
	"kasa-backend/internal/cashregister/memstore"
	"kasa-backend/internal/models"
	"kasa-backend/internal/money"
	"kasa-backend/internal/notify"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []notify.SessionClosedEvent
	err    error
}

func (p *recordingPublisher) PublishSessionClosed(_ context.Context, ev notify.SessionClosedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) Events() []notify.SessionClosedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]notify.SessionClosedEvent(nil), p.events...)
}

type fixture struct {
	store    *memstore.Store
	svc      *cashregister.Service
	pub      *recordingPublisher
	logs     *observer.ObservedLogs
	clock    *time.Time
	branch   models.Branch
	other    models.Branch
	admin    models.User
	cashier  models.User
	cashier2 models.User
	outsider models.User
	register *models.CashRegister
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memstore.New()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	f := &fixture{store: store, clock: &now, pub: &recordingPublisher{}}
	clock := func() time.Time { return *f.clock }
	store.SetClock(clock)

	core, logs := observer.New(zap.DebugLevel)
	f.logs = logs

	f.branch = store.AddBranch(models.Branch{Name: "Kadikoy"})
	f.other = store.AddBranch(models.Branch{Name: "Besiktas"})
	f.admin = store.AddUser(models.User{Name: "Root", Email: "root@example.com", Role: models.RoleSuperAdmin})
	f.cashier = store.AddUser(models.User{Name: "Ayse", Email: "ayse@example.com", Role: models.RoleCashier, BranchID: &f.branch.ID})
	f.cashier2 = store.AddUser(models.User{Name: "Mehmet", Email: "mehmet@example.com", Role: models.RoleCashier, BranchID: &f.branch.ID})
	f.outsider = store.AddUser(models.User{Name: "Zeynep", Email: "zeynep@example.com", Role: models.RoleCashier, BranchID: &f.other.ID})

	f.svc = cashregister.NewService(store,
		cashregister.WithPublisher(f.pub),
		cashregister.WithLogger(zap.New(core)),
		cashregister.WithClock(clock),
	)

	reg, err := f.svc.CreateRegister(context.Background(), cashregister.RegisterInput{
		BranchID: f.branch.ID,
		Name:     "Till 1",
		UserID:   f.admin.ID,
	})
	require.NoError(t, err)
	f.register = reg

	return f
}

func (f *fixture) advance(d time.Duration) {
	*f.clock = f.clock.Add(d)
}

func (f *fixture) open(t *testing.T, opening string) *models.CashRegisterSession {
	t.Helper()
	s, err := f.svc.OpenSession(context.Background(), cashregister.OpenInput{
		RegisterID:         f.register.ID,
		UserID:             f.cashier.ID,
		OpeningCashBalance: money.MustParse(opening),
	})
	require.NoError(t, err)
	return s
}

func (f *fixture) move(t *testing.T, sessionID uint, typ models.MovementType, amount string) {
	t.Helper()
	_, err := f.svc.RecordCashMovement(context.Background(), cashregister.MovementInput{
		SessionID:   sessionID,
		UserID:      f.cashier.ID,
		Type:        typ,
		Amount:      money.MustParse(amount),
		Description: "petty cash",
	})
	require.NoError(t, err)
}

func (f *fixture) pay(t *testing.T, sessionID uint, method models.PaymentMethod, status models.PaymentStatus, amount string) *models.Payment {
	t.Helper()
	p, err := f.svc.RecordPayment(context.Background(), cashregister.PaymentInput{
		SessionID: &sessionID,
		UserID:    f.cashier.ID,
		Amount:    money.MustParse(amount),
		Method:    method,
		Status:    status,
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) close(t *testing.T, sessionID uint, counted string) *models.CashRegisterSession {
	t.Helper()
	s, err := f.svc.CloseSession(context.Background(), cashregister.CloseInput{
		SessionID:          sessionID,
		UserID:             f.cashier.ID,
		ClosingCashBalance: money.MustParse(counted),
	})
	require.NoError(t, err)
	return s
}
