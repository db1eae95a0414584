package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mmynk/futsalon/internal/calculator"
	"github.com/mmynk/futsalon/internal/metrics"
	"github.com/mmynk/futsalon/internal/models"
	"github.com/mmynk/futsalon/internal/storage"
)

// Snapshot is everything loaded to compute a ledger.
type Snapshot struct {
	Players  []models.Player
	Sessions []models.PlaySession
	Payments []models.Payment
	Ledger   *calculator.Ledger
}

// LoadLedger reads all players, sessions and payments and computes the
// ledger. Storage errors are returned wrapped; the computation itself
// cannot fail.
func LoadLedger(ctx context.Context, store storage.Store, m *metrics.Metrics) (*Snapshot, error) {
	players, err := store.Players().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load players: %w", err)
	}
	sessions, err := store.Sessions().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load sessions: %w", err)
	}
	payments, err := store.Payments().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load payments: %w", err)
	}

	ledger := calculator.CalculateLedger(players, sessions, payments)
	m.ObserveLedger(ledger.TotalDebt.InexactFloat64(), ledger.TotalIncome.InexactFloat64(), len(players), len(sessions))

	slog.Debug("Ledger computed",
		"players", len(players),
		"sessions", len(sessions),
		"payments", len(payments),
		"total_debt", ledger.TotalDebt.String(),
		"total_income", ledger.TotalIncome.String(),
	)

	return &Snapshot{
		Players:  players,
		Sessions: sessions,
		Payments: payments,
		Ledger:   ledger,
	}, nil
}
