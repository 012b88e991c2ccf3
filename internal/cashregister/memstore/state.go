package memstore

import (
	"maps"
	"slices"

	"kasa-backend/internal/models"
)

type sequences struct {
	branch, user, register, session, movement, payment, audit uint
}

// state is one consistent snapshot of every table. Transactions work on a
// clone and swap it in on commit.
type state struct {
	seq       sequences
	branches  map[uint]models.Branch
	users     map[uint]models.User
	registers map[uint]models.CashRegister
	sessions  map[uint]models.CashRegisterSession
	payments  map[uint]models.Payment
	movements []models.SessionCashMovement
	audit     []models.AuditLog
}

func newState() *state {
	return &state{
		branches:  map[uint]models.Branch{},
		users:     map[uint]models.User{},
		registers: map[uint]models.CashRegister{},
		sessions:  map[uint]models.CashRegisterSession{},
		payments:  map[uint]models.Payment{},
	}
}

func (s *state) clone() *state {
	return &state{
		seq:       s.seq,
		branches:  maps.Clone(s.branches),
		users:     maps.Clone(s.users),
		registers: maps.Clone(s.registers),
		sessions:  maps.Clone(s.sessions),
		payments:  maps.Clone(s.payments),
		movements: slices.Clone(s.movements),
		audit:     slices.Clone(s.audit),
	}
}
