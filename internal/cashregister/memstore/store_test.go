package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"kasa-backend/internal/cashregister"
	"kasa-backend/internal/models"
	"kasa-backend/internal/money"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T) (*Store, models.CashRegister) {
	t.Helper()
	s := New()
	b := s.AddBranch(models.Branch{Name: "Kadikoy"})
	r := models.CashRegister{BranchID: b.ID, Name: "Till 1", Active: true}
	require.NoError(t, s.CreateRegister(context.Background(), &r))
	return s, r
}

func TestTransaction_RollsBackOnError(t *testing.T) {
	s, r := seed(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Transaction(ctx, func(tx cashregister.Repository) error {
		require.NoError(t, tx.SetRegisterInUse(ctx, r.ID, true))
		sess := &models.CashRegisterSession{RegisterID: r.ID, Status: models.SessionOpen, OpenedAt: time.Now()}
		require.NoError(t, tx.CreateSession(ctx, sess))
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.GetRegister(ctx, r.ID)
	require.NoError(t, err)
	assert.False(t, got.InUse)

	_, err = s.FindOpenSession(ctx, r.ID)
	assert.ErrorIs(t, err, cashregister.ErrRecordNotFound)
}

func TestSnapshot_DiscardsWrites(t *testing.T) {
	s, r := seed(t)
	ctx := context.Background()

	err := s.Snapshot(ctx, func(tx cashregister.Repository) error {
		got, err := tx.GetRegister(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, "Till 1", got.Name)
		return tx.SetRegisterInUse(ctx, r.ID, true)
	})
	require.NoError(t, err)

	got, err := s.GetRegister(ctx, r.ID)
	require.NoError(t, err)
	assert.False(t, got.InUse)
}

func TestTransaction_CommitsAndNests(t *testing.T) {
	s, r := seed(t)
	ctx := context.Background()

	err := s.Transaction(ctx, func(tx cashregister.Repository) error {
		return tx.Transaction(ctx, func(inner cashregister.Repository) error {
			return inner.SetRegisterInUse(ctx, r.ID, true)
		})
	})
	require.NoError(t, err)

	got, err := s.GetRegister(ctx, r.ID)
	require.NoError(t, err)
	assert.True(t, got.InUse)
}

func TestCreateSession_OneOpenPerRegister(t *testing.T) {
	s, r := seed(t)
	ctx := context.Background()

	first := &models.CashRegisterSession{RegisterID: r.ID, Status: models.SessionOpen}
	require.NoError(t, s.CreateSession(ctx, first))

	second := &models.CashRegisterSession{RegisterID: r.ID, Status: models.SessionOpen}
	require.ErrorIs(t, s.CreateSession(ctx, second), cashregister.ErrDuplicate)

	closedAt := time.Now()
	first.Status = models.SessionClosed
	first.ClosedAt = &closedAt
	require.NoError(t, s.CloseSession(ctx, first))
	require.ErrorIs(t, s.CloseSession(ctx, first), cashregister.ErrStaleWrite)

	require.NoError(t, s.CreateSession(ctx, second))
}

func TestCreateRegister_DuplicateName(t *testing.T) {
	s, r := seed(t)
	dup := models.CashRegister{BranchID: r.BranchID, Name: r.Name}
	require.ErrorIs(t, s.CreateRegister(context.Background(), &dup), cashregister.ErrDuplicate)

	missing := models.CashRegister{BranchID: 99, Name: "x"}
	require.ErrorIs(t, s.CreateRegister(context.Background(), &missing), cashregister.ErrRecordNotFound)
}

func TestMovements_OrderPageAndSum(t *testing.T) {
	s, r := seed(t)
	ctx := context.Background()

	clock := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return clock })

	sess := &models.CashRegisterSession{RegisterID: r.ID, Status: models.SessionOpen}
	require.NoError(t, s.CreateSession(ctx, sess))

	add := func(typ models.MovementType, amount string, at time.Time) {
		m := &models.SessionCashMovement{SessionID: sess.ID, Type: typ, Amount: money.MustParse(amount), Description: "x", CreatedAt: at}
		require.NoError(t, s.CreateMovement(ctx, m))
	}
	add(models.MovementOutflow, "20.00", clock.Add(2*time.Minute))
	add(models.MovementInflow, "50.00", clock.Add(time.Minute))
	add(models.MovementInflow, "0.10", clock.Add(time.Minute))

	all, err := s.ListMovements(ctx, sess.ID, cashregister.Page{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, uint(2), all[0].ID)
	assert.Equal(t, uint(3), all[1].ID)
	assert.Equal(t, uint(1), all[2].ID)

	pg, err := s.ListMovements(ctx, sess.ID, cashregister.Page{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, pg, 1)
	assert.Equal(t, uint(3), pg[0].ID)

	empty, err := s.ListMovements(ctx, sess.ID, cashregister.Page{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, empty)

	totals, err := s.SumMovements(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "50.10", totals.Inflow.String())
	assert.Equal(t, "20.00", totals.Outflow.String())
	assert.Equal(t, "30.10", totals.Net().String())
}

func TestSumCompletedCashPayments(t *testing.T) {
	s, r := seed(t)
	ctx := context.Background()

	sess := &models.CashRegisterSession{RegisterID: r.ID, Status: models.SessionOpen}
	require.NoError(t, s.CreateSession(ctx, sess))

	payments := []models.Payment{
		{SessionID: &sess.ID, Amount: money.MustParse("100.00"), Method: models.PaymentCash, Status: models.PaymentCompleted},
		{SessionID: &sess.ID, Amount: money.MustParse("200.00"), Method: models.PaymentCash, Status: models.PaymentCompleted},
		{SessionID: &sess.ID, Amount: money.MustParse("40.00"), Method: models.PaymentCash, Status: models.PaymentProcessing},
		{SessionID: &sess.ID, Amount: money.MustParse("60.00"), Method: models.PaymentCard, Status: models.PaymentCompleted},
		{SessionID: &sess.ID, Amount: money.MustParse("70.00"), Method: models.PaymentCash, Status: models.PaymentFailed},
		{Amount: money.MustParse("80.00"), Method: models.PaymentCash, Status: models.PaymentCompleted},
	}
	for i := range payments {
		require.NoError(t, s.CreatePayment(ctx, &payments[i]))
	}

	total, err := s.SumCompletedCashPayments(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "300.00", total.String())
}

func TestFailNext(t *testing.T) {
	s, r := seed(t)
	ctx := context.Background()
	boom := errors.New("disk full")

	s.FailNext("CreateSession", boom)
	sess := &models.CashRegisterSession{RegisterID: r.ID, Status: models.SessionOpen}
	require.ErrorIs(t, s.CreateSession(ctx, sess), boom)
	require.NoError(t, s.CreateSession(ctx, sess))
}

func TestTransaction_CanceledContext(t *testing.T) {
	s, _ := seed(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.Transaction(ctx, func(cashregister.Repository) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
