package cashregister

import (
	"kasa-backend/internal/models"
	"kasa-backend/internal/money"
)

// Reconciliation is the close-time comparison between counted and expected
// cash.
type Reconciliation struct {
	CashMovementsNet    money.Money
	CashPaymentsTotal   money.Money
	CalculatedCashTotal money.Money
	CashDifference      money.Money
}

// ExpectedCash is opening + completed cash payments + net movements.
func ExpectedCash(opening, cashPayments, movementsNet money.Money) money.Money {
	return money.Sum(opening, cashPayments, movementsNet)
}

// Reconcile computes the closing figures. A positive difference is a
// surplus, a negative one a shortage.
func Reconcile(opening, cashPayments, movementsNet, counted money.Money) Reconciliation {
	calculated := ExpectedCash(opening, cashPayments, movementsNet)
	return Reconciliation{
		CashMovementsNet:    movementsNet,
		CashPaymentsTotal:   cashPayments,
		CalculatedCashTotal: calculated,
		CashDifference:      counted.Sub(calculated),
	}
}

// NetMovements is sum(INFLOW) - sum(OUTFLOW).
func NetMovements(movements []models.SessionCashMovement) money.Money {
	var t MovementTotals
	for _, m := range movements {
		switch m.Type {
		case models.MovementInflow:
			t.Inflow = t.Inflow.Add(m.Amount)
		case models.MovementOutflow:
			t.Outflow = t.Outflow.Add(m.Amount)
		}
	}
	return t.Net()
}
