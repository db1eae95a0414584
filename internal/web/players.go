package web

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/mmynk/futsalon/internal/calculator"
	"github.com/mmynk/futsalon/internal/models"
	"github.com/mmynk/futsalon/internal/service"
)

type playersView struct {
	Players []models.Player
	Levels  []models.Level
}

type playerView struct {
	Player   *models.Player
	Entry    calculator.PlayerDebt
	Payments []models.Payment
}

func (s *Server) listPlayers(w http.ResponseWriter, r *http.Request) error {
	players, err := s.store.Players().List(r.Context())
	if err != nil {
		return fmt.Errorf("failed to list players: %w", err)
	}
	return s.render(w, r, http.StatusOK, "players", "Players", playersView{
		Players: players,
		Levels:  models.Levels,
	})
}

func (s *Server) createPlayer(w http.ResponseWriter, r *http.Request) error {
	form := parsePlayerForm(r)
	if err := s.check(form); err != nil {
		return err
	}

	player := &models.Player{Name: form.Name, Level: levelOf(form)}
	if err := s.store.Players().Create(r.Context(), player); err != nil {
		return fmt.Errorf("failed to create player: %w", err)
	}
	slog.Info("Player created", "player_id", player.ID, "name", player.Name, "level", player.Level)

	redirect(w, r, "/players")
	return nil
}

func (s *Server) updatePlayer(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	form := parsePlayerForm(r)
	if err := s.check(form); err != nil {
		return err
	}

	player, err := s.store.Players().Get(r.Context(), id)
	if err != nil {
		return err
	}
	player.Name = form.Name
	player.Level = levelOf(form)
	if err := s.store.Players().Update(r.Context(), player); err != nil {
		return fmt.Errorf("failed to update player: %w", err)
	}
	slog.Info("Player updated", "player_id", player.ID)

	redirect(w, r, "/players")
	return nil
}

// deletePlayer removes the player only. Sessions and payments that mention
// the player are kept and show the player as unknown.
func (s *Server) deletePlayer(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	if err := s.store.Players().Delete(r.Context(), id); err != nil {
		return err
	}
	slog.Info("Player deleted", "player_id", id)

	redirect(w, r, "/players")
	return nil
}

func (s *Server) playerDetail(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	player, err := s.store.Players().Get(r.Context(), id)
	if err != nil {
		return err
	}

	snap, err := service.LoadLedger(r.Context(), s.store, s.metrics)
	if err != nil {
		return err
	}
	entry, _ := snap.Ledger.Player(id)

	payments, err := s.store.Payments().ListByPlayer(r.Context(), id)
	if err != nil {
		return fmt.Errorf("failed to list payments: %w", err)
	}

	return s.render(w, r, http.StatusOK, "player", player.Name, playerView{
		Player:   player,
		Entry:    entry,
		Payments: payments,
	})
}
