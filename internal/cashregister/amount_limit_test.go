package cashregister_test

import (
	"context"
	"errors"
	"testing"

	"kasa-backend/internal/cashregister"
	"kasa-backend/internal/models"
	"kasa-backend/internal/money"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requireAmountError asserts an InvalidAmount error pointing at field.
func requireAmountError(t *testing.T, err error, field string) {
	t.Helper()
	require.ErrorIs(t, err, cashregister.ErrInvalidAmount)
	var de cashregister.DomainError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, field, de.Field)
}

func TestOpenSession_AboveAmountLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.OpenSession(ctx, cashregister.OpenInput{
		RegisterID:         f.register.ID,
		UserID:             f.cashier.ID,
		OpeningCashBalance: money.MustParse("10000000000.00"),
	})
	requireAmountError(t, err, "opening_cash_balance")

	reg, err := f.svc.GetRegister(ctx, f.register.ID)
	require.NoError(t, err)
	assert.False(t, reg.InUse)

	s := f.open(t, "9999999999.99")
	assert.Equal(t, "9999999999.99", s.OpeningCashBalance.String())
}

func TestRecordCashMovement_AmountLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.open(t, "9999999999.99")

	tests := []struct {
		name   string
		typ    models.MovementType
		amount string
	}{
		{name: "amount itself too large", typ: models.MovementOutflow, amount: "10000000000.00"},
		{name: "pushes expected cash over the limit", typ: models.MovementInflow, amount: "0.01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.RecordCashMovement(ctx, cashregister.MovementInput{
				SessionID:   s.ID,
				UserID:      f.cashier.ID,
				Type:        tt.typ,
				Amount:      money.MustParse(tt.amount),
				Description: "float",
			})
			requireAmountError(t, err, "amount")
		})
	}

	movements, err := f.svc.ListMovements(ctx, s.ID, cashregister.Page{})
	require.NoError(t, err)
	assert.Empty(t, movements)

	// taking cash out of a full drawer is still fine
	f.move(t, s.ID, models.MovementOutflow, "0.99")
}

func TestPayments_AmountLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.open(t, "9999999999.00")

	_, err := f.svc.RecordPayment(ctx, cashregister.PaymentInput{
		SessionID: &s.ID, UserID: f.cashier.ID, Amount: money.MustParse("10000000000.00"),
		Method: models.PaymentCard, Status: models.PaymentCompleted,
	})
	requireAmountError(t, err, "amount")

	_, err = f.svc.RecordPayment(ctx, cashregister.PaymentInput{
		SessionID: &s.ID, UserID: f.cashier.ID, Amount: money.MustParse("1.00"),
		Method: models.PaymentCash, Status: models.PaymentCompleted,
	})
	requireAmountError(t, err, "amount")

	// card and pending cash payments do not touch the drawer
	f.pay(t, s.ID, models.PaymentCard, models.PaymentCompleted, "1.00")
	pending := f.pay(t, s.ID, models.PaymentCash, models.PaymentProcessing, "1.00")

	_, err = f.svc.UpdatePaymentStatus(ctx, cashregister.PaymentStatusInput{PaymentID: pending.ID, UserID: f.cashier.ID, Status: models.PaymentCompleted})
	requireAmountError(t, err, "status")

	total, err := f.svc.SumCashPayments(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, total.IsZero(), total.String())

	failed, err := f.svc.UpdatePaymentStatus(ctx, cashregister.PaymentStatusInput{PaymentID: pending.ID, UserID: f.cashier.ID, Status: models.PaymentFailed})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, failed.Status)
}

func TestCloseSession_AmountLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.open(t, "0.00")
	f.move(t, s.ID, models.MovementOutflow, "5000000000.00")

	tests := []struct {
		name    string
		counted string
	}{
		{name: "counted cash too large", counted: "10000000000.00"},
		{name: "difference too large", counted: "9999999999.99"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CloseSession(ctx, cashregister.CloseInput{
				SessionID:          s.ID,
				UserID:             f.cashier.ID,
				ClosingCashBalance: money.MustParse(tt.counted),
			})
			requireAmountError(t, err, "closing_cash_balance")
		})
	}

	stored, err := f.svc.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsOpen())
	assert.Nil(t, stored.CashDifference)
	assert.Empty(t, f.pub.Events())

	closed := f.close(t, s.ID, "4999999999.99")
	assert.Equal(t, "-5000000000.00", closed.CalculatedCashTotal.String())
	assert.Equal(t, "9999999999.99", closed.CashDifference.String())
}
