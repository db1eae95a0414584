package calculator

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/futsalon/internal/models"
)

// PlayerDebt is the ledger line for one player.
type PlayerDebt struct {
	PlayerID     int64           `json:"player_id"`
	Name         string          `json:"name"`
	Level        models.Level    `json:"level"`
	SessionCount int             `json:"session_count"`
	GrossCharge  decimal.Decimal `json:"gross_charge"` // Sum of prices of attended sessions
	AmountPaid   decimal.Decimal `json:"amount_paid"`
	Remaining    decimal.Decimal `json:"remaining"` // GrossCharge - AmountPaid, negative when overpaid
}

// Ledger is the debt report for the whole group.
type Ledger struct {
	// Entries holds one line per player, in the order players were given.
	Entries []PlayerDebt `json:"entries"`

	// TotalIncome sums every payment, including payments whose player no
	// longer exists.
	TotalIncome decimal.Decimal `json:"total_income"`

	// TotalDebt sums Remaining over Entries.
	TotalDebt decimal.Decimal `json:"total_debt"`

	byPlayer map[int64]int
}

// Player returns the ledger line for playerID.
func (l *Ledger) Player(playerID int64) (PlayerDebt, bool) {
	i, ok := l.byPlayer[playerID]
	if !ok {
		return PlayerDebt{}, false
	}
	return l.Entries[i], true
}

type attendance struct {
	count  int
	charge decimal.Decimal
}

// CalculateLedger computes per-player debt and group totals.
// It never fails: sessions and payments that reference unknown players are
// skipped for per-player lines, and payments still count toward TotalIncome.
//
// Algorithm:
//   - One pass over sessions: every attendee gets +1 session and +price
//   - One pass over payments: paid[player] += amount, income += amount
//   - Per player: remaining = charge - paid; debt total sums remaining
//
// This gives the same figures as testing each player against each session.
func CalculateLedger(players []models.Player, sessions []models.PlaySession, payments []models.Payment) *Ledger {
	attended := make(map[int64]*attendance)
	for _, s := range sessions {
		price := decimal.NewFromFloat(s.Price)
		for _, id := range s.Players.IDs() {
			a, ok := attended[id]
			if !ok {
				a = &attendance{}
				attended[id] = a
			}
			a.count++
			a.charge = a.charge.Add(price)
		}
	}

	ledger := &Ledger{
		Entries:  make([]PlayerDebt, 0, len(players)),
		byPlayer: make(map[int64]int, len(players)),
	}

	paid := make(map[int64]decimal.Decimal)
	for _, p := range payments {
		amount := decimal.NewFromFloat(p.Amount)
		paid[p.PlayerID] = paid[p.PlayerID].Add(amount)
		ledger.TotalIncome = ledger.TotalIncome.Add(amount)
	}

	for _, player := range players {
		line := PlayerDebt{
			PlayerID:   player.ID,
			Name:       player.Name,
			Level:      player.Level,
			AmountPaid: paid[player.ID],
		}
		if a, ok := attended[player.ID]; ok {
			line.SessionCount = a.count
			line.GrossCharge = a.charge
		}
		line.Remaining = line.GrossCharge.Sub(line.AmountPaid)

		ledger.TotalDebt = ledger.TotalDebt.Add(line.Remaining)
		ledger.byPlayer[player.ID] = len(ledger.Entries)
		ledger.Entries = append(ledger.Entries, line)
	}

	return ledger
}
