package web

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/mmynk/futsalon/internal/models"
	"github.com/mmynk/futsalon/internal/service"
)

func (s *Server) debts(w http.ResponseWriter, r *http.Request) error {
	snap, err := service.LoadLedger(r.Context(), s.store, s.metrics)
	if err != nil {
		return err
	}
	return s.render(w, r, http.StatusOK, "debts", "Debts", snap.Ledger)
}

// createPayment records a payment dated today. The amount is taken as
// entered, so refunds can be booked as negative payments.
func (s *Server) createPayment(w http.ResponseWriter, r *http.Request) error {
	form, err := parsePaymentForm(r)
	if err != nil {
		return err
	}
	if err := s.check(form); err != nil {
		return err
	}

	payment := &models.Payment{
		PlayerID: form.PlayerID,
		Amount:   form.Amount,
		Date:     models.Today(),
	}
	if err := s.store.Payments().Create(r.Context(), payment); err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	slog.Info("Payment recorded",
		"payment_id", payment.ID,
		"player_id", payment.PlayerID,
		"amount", payment.Amount,
	)

	redirect(w, r, "/debts")
	return nil
}

func (s *Server) deletePayment(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	if err := s.store.Payments().Delete(r.Context(), id); err != nil {
		return err
	}
	slog.Info("Payment deleted", "payment_id", id)

	back := backPath(r)
	if back == "/" {
		back = "/debts"
	}
	redirect(w, r, back)
	return nil
}
