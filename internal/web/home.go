package web

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/mmynk/futsalon/internal/models"
	"github.com/mmynk/futsalon/internal/service"
)

type homeView struct {
	Today         string
	TotalIncome   decimal.Decimal
	TotalDebt     decimal.Decimal
	PlayersCount  int
	SessionsCount int
}

func (s *Server) home(w http.ResponseWriter, r *http.Request) error {
	snap, err := service.LoadLedger(r.Context(), s.store, s.metrics)
	if err != nil {
		return err
	}
	view := homeView{
		Today:         formatDate(models.Today()),
		TotalIncome:   snap.Ledger.TotalIncome,
		TotalDebt:     snap.Ledger.TotalDebt,
		PlayersCount:  len(snap.Players),
		SessionsCount: len(snap.Sessions),
	}
	return s.render(w, r, http.StatusOK, "home", "Dashboard", view)
}
