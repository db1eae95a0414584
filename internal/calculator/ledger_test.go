package calculator

import (
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/futsalon/internal/models"
	"github.com/mmynk/futsalon/internal/roster"
)

var day = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

func assertAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func session(id int64, price float64, players string) models.PlaySession {
	return models.PlaySession{ID: id, Date: day, Price: price, Players: roster.DecodeLenient(&players)}
}

func TestCalculateLedgerTwoPlayers(t *testing.T) {
	players := []models.Player{
		{ID: 1, Name: "A", Level: models.LevelNormal},
		{ID: 2, Name: "B", Level: models.LevelGuest},
	}
	sessions := []models.PlaySession{session(1, 100, "[1,2]")}
	payments := []models.Payment{{ID: 1, PlayerID: 1, Amount: 40, Date: day}}

	ledger := CalculateLedger(players, sessions, payments)
	require.Len(t, ledger.Entries, 2)

	a, ok := ledger.Player(1)
	require.True(t, ok)
	assert.Equal(t, 1, a.SessionCount)
	assert.Equal(t, "A", a.Name)
	assertAmount(t, "100", a.GrossCharge)
	assertAmount(t, "40", a.AmountPaid)
	assertAmount(t, "60", a.Remaining)

	b, ok := ledger.Player(2)
	require.True(t, ok)
	assert.Equal(t, 1, b.SessionCount)
	assertAmount(t, "100", b.GrossCharge)
	assertAmount(t, "0", b.AmountPaid)
	assertAmount(t, "100", b.Remaining)

	assertAmount(t, "40", ledger.TotalIncome)
	assertAmount(t, "160", ledger.TotalDebt)
}

func TestCalculateLedgerEdgeCases(t *testing.T) {
	tests := []struct {
		name     string
		players  []models.Player
		sessions []models.PlaySession
		payments []models.Payment
		validate func(t *testing.T, l *Ledger)
	}{
		{
			name:    "no data at all",
			players: nil,
			validate: func(t *testing.T, l *Ledger) {
				assert.Empty(t, l.Entries)
				assertAmount(t, "0", l.TotalIncome)
				assertAmount(t, "0", l.TotalDebt)
			},
		},
		{
			name:     "untouched player is all zero",
			players:  []models.Player{{ID: 5, Name: "Idle"}},
			sessions: []models.PlaySession{session(1, 80, "[1]")},
			validate: func(t *testing.T, l *Ledger) {
				p, ok := l.Player(5)
				require.True(t, ok)
				assert.Equal(t, 0, p.SessionCount)
				assertAmount(t, "0", p.GrossCharge)
				assertAmount(t, "0", p.AmountPaid)
				assertAmount(t, "0", p.Remaining)
			},
		},
		{
			name:     "empty session contributes nothing",
			players:  []models.Player{{ID: 1, Name: "A"}},
			sessions: []models.PlaySession{session(1, 120, "[]")},
			validate: func(t *testing.T, l *Ledger) {
				p, _ := l.Player(1)
				assert.Equal(t, 0, p.SessionCount)
				assertAmount(t, "0", l.TotalDebt)
			},
		},
		{
			name:    "corrupt roster is ignored",
			players: []models.Player{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}},
			sessions: []models.PlaySession{
				session(1, 50, "{not json"),
				session(2, 30, "[2]"),
			},
			validate: func(t *testing.T, l *Ledger) {
				a, _ := l.Player(1)
				b, _ := l.Player(2)
				assert.Equal(t, 0, a.SessionCount)
				assert.Equal(t, 1, b.SessionCount)
				assertAmount(t, "30", l.TotalDebt)
			},
		},
		{
			name:     "orphan payment counts as income only",
			players:  []models.Player{{ID: 1, Name: "A"}},
			sessions: []models.PlaySession{session(1, 100, "[1]")},
			payments: []models.Payment{
				{ID: 1, PlayerID: 99, Amount: 25},
				{ID: 2, PlayerID: 1, Amount: 10},
			},
			validate: func(t *testing.T, l *Ledger) {
				a, _ := l.Player(1)
				assertAmount(t, "10", a.AmountPaid)
				assertAmount(t, "35", l.TotalIncome)
				assertAmount(t, "90", l.TotalDebt)
				_, ok := l.Player(99)
				assert.False(t, ok)
			},
		},
		{
			name:     "overpaid player has negative remaining",
			players:  []models.Player{{ID: 1, Name: "A"}},
			sessions: []models.PlaySession{session(1, 50, "[1]")},
			payments: []models.Payment{{ID: 1, PlayerID: 1, Amount: 80}},
			validate: func(t *testing.T, l *Ledger) {
				a, _ := l.Player(1)
				assertAmount(t, "-30", a.Remaining)
				assertAmount(t, "-30", l.TotalDebt)
			},
		},
		{
			name: "deleted player leaves others unaffected",
			// Player 3 attended two sessions and paid once, then was deleted.
			players: []models.Player{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}},
			sessions: []models.PlaySession{
				session(1, 60, "[1,3]"),
				session(2, 40, "[3,2]"),
			},
			payments: []models.Payment{{ID: 1, PlayerID: 3, Amount: 100}},
			validate: func(t *testing.T, l *Ledger) {
				require.Len(t, l.Entries, 2)
				a, _ := l.Player(1)
				b, _ := l.Player(2)
				assertAmount(t, "60", a.Remaining)
				assertAmount(t, "40", b.Remaining)
				assertAmount(t, "100", l.TotalIncome)
				assertAmount(t, "100", l.TotalDebt)
				_, ok := l.Player(3)
				assert.False(t, ok)
			},
		},
		{
			name:     "fractional prices do not drift",
			players:  []models.Player{{ID: 1, Name: "A"}},
			sessions: []models.PlaySession{session(1, 0.1, "[1]"), session(2, 0.2, "[1]")},
			validate: func(t *testing.T, l *Ledger) {
				a, _ := l.Player(1)
				assertAmount(t, "0.3", a.GrossCharge)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.validate(t, CalculateLedger(tt.players, tt.sessions, tt.payments))
		})
	}
}

func TestCalculateLedgerKeepsPlayerOrder(t *testing.T) {
	players := []models.Player{{ID: 9, Name: "Z"}, {ID: 2, Name: "B"}, {ID: 5, Name: "M"}}
	ledger := CalculateLedger(players, nil, nil)

	var ids []int64
	for _, e := range ledger.Entries {
		ids = append(ids, e.PlayerID)
	}
	assert.Equal(t, []int64{9, 2, 5}, ids)
}

// nestedLedger is the direct per-player, per-session evaluation that the
// single-pass calculation must agree with.
func nestedLedger(players []models.Player, sessions []models.PlaySession, payments []models.Payment) map[int64]PlayerDebt {
	out := make(map[int64]PlayerDebt)
	for _, p := range players {
		line := PlayerDebt{PlayerID: p.ID}
		for _, s := range sessions {
			if s.Players.Contains(p.ID) {
				line.SessionCount++
				line.GrossCharge = line.GrossCharge.Add(decimal.NewFromFloat(s.Price))
			}
		}
		for _, pay := range payments {
			if pay.PlayerID == p.ID {
				line.AmountPaid = line.AmountPaid.Add(decimal.NewFromFloat(pay.Amount))
			}
		}
		line.Remaining = line.GrossCharge.Sub(line.AmountPaid)
		out[p.ID] = line
	}
	return out
}

func TestCalculateLedgerMatchesNestedEvaluation(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 50; round++ {
		nPlayers, nSessions, nPayments := rng.Intn(12)+1, rng.Intn(30), rng.Intn(20)

		var players []models.Player
		for id := int64(1); id <= int64(nPlayers); id++ {
			players = append(players, models.Player{ID: id, Name: "p"})
		}

		var sessions []models.PlaySession
		for i := 0; i < nSessions; i++ {
			var ids []int64
			for _, id := range rng.Perm(15)[:rng.Intn(8)] {
				ids = append(ids, int64(id))
			}
			sessions = append(sessions, models.PlaySession{
				ID:      int64(i + 1),
				Price:   float64(rng.Intn(20000)) / 100,
				Players: roster.MustNew(ids...),
			})
		}

		var payments []models.Payment
		var income decimal.Decimal
		for i := 0; i < nPayments; i++ {
			amount := float64(rng.Intn(40000)-10000) / 100
			payments = append(payments, models.Payment{
				ID:       int64(i + 1),
				PlayerID: int64(rng.Intn(15)),
				Amount:   amount,
			})
			income = income.Add(decimal.NewFromFloat(amount))
		}

		ledger := CalculateLedger(players, sessions, payments)
		want := nestedLedger(players, sessions, payments)

		var debt decimal.Decimal
		for _, e := range ledger.Entries {
			w := want[e.PlayerID]
			assert.Equal(t, w.SessionCount, e.SessionCount)
			assert.True(t, w.GrossCharge.Equal(e.GrossCharge))
			assert.True(t, w.AmountPaid.Equal(e.AmountPaid))
			assert.True(t, w.Remaining.Equal(e.Remaining))
			debt = debt.Add(e.Remaining)
		}
		assert.True(t, debt.Equal(ledger.TotalDebt), "round %d: total debt", round)
		assert.True(t, income.Equal(ledger.TotalIncome), "round %d: total income", round)
	}
}
