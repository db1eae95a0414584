package web

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/mmynk/futsalon/internal/models"
	"github.com/mmynk/futsalon/internal/roster"
)

// unknownPlayer is shown for roster ids whose player was deleted.
const unknownPlayer = "unknown"

type sessionRow struct {
	ID          int64
	Date        time.Time
	Price       float64
	PlayerCount int
	PlayerNames []string
}

type playerOption struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type sessionFormView struct {
	Action       string
	Date         string
	Price        string
	Players      []playerOption
	Selected     []int64
	SelectedJSON string
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) error {
	sessions, err := s.store.Sessions().List(r.Context())
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	players, err := s.store.Players().List(r.Context())
	if err != nil {
		return fmt.Errorf("failed to list players: %w", err)
	}

	names := make(map[int64]string, len(players))
	for _, p := range players {
		names[p.ID] = p.Name
	}

	rows := make([]sessionRow, 0, len(sessions))
	for _, sess := range sessions {
		ids := sess.Players.IDs()
		row := sessionRow{
			ID:          sess.ID,
			Date:        sess.Date,
			Price:       sess.Price,
			PlayerCount: len(ids),
			PlayerNames: make([]string, 0, len(ids)),
		}
		for _, id := range ids {
			name, ok := names[id]
			if !ok {
				name = unknownPlayer
			}
			row.PlayerNames = append(row.PlayerNames, name)
		}
		rows = append(rows, row)
	}

	return s.render(w, r, http.StatusOK, "sessions", "Sessions", struct {
		Sessions []sessionRow
	}{rows})
}

func (s *Server) newSession(w http.ResponseWriter, r *http.Request) error {
	options, err := s.playerOptions(r)
	if err != nil {
		return err
	}
	return s.render(w, r, http.StatusOK, "session_form", "New session", sessionFormView{
		Action:       "/sessions",
		Date:         formatDate(models.Today()),
		Players:      options,
		Selected:     []int64{},
		SelectedJSON: roster.Encode(roster.Roster{}),
	})
}

func (s *Server) editSession(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	sess, err := s.store.Sessions().Get(r.Context(), id)
	if err != nil {
		return err
	}
	options, err := s.playerOptions(r)
	if err != nil {
		return err
	}
	return s.render(w, r, http.StatusOK, "session_form", "Edit session", sessionFormView{
		Action:       fmt.Sprintf("/sessions/%d/edit", sess.ID),
		Date:         formatDate(sess.Date),
		Price:        strconv.FormatFloat(sess.Price, 'f', -1, 64),
		Players:      options,
		Selected:     sess.Players.IDs(),
		SelectedJSON: roster.Encode(sess.Players),
	})
}

// createSession stores a new session. A malformed or repeating roster is
// rejected before anything is written.
func (s *Server) createSession(w http.ResponseWriter, r *http.Request) error {
	sess, err := s.sessionFromForm(r)
	if err != nil {
		return err
	}
	if err := s.store.Sessions().Create(r.Context(), sess); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	slog.Info("Session created",
		"session_id", sess.ID,
		"date", formatDate(sess.Date),
		"players_count", sess.Players.Len(),
	)

	redirect(w, r, "/sessions")
	return nil
}

func (s *Server) updateSession(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	if _, err := s.store.Sessions().Get(r.Context(), id); err != nil {
		return err
	}

	sess, err := s.sessionFromForm(r)
	if err != nil {
		return err
	}
	sess.ID = id
	if err := s.store.Sessions().Update(r.Context(), sess); err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	slog.Info("Session updated", "session_id", id, "players_count", sess.Players.Len())

	redirect(w, r, "/sessions")
	return nil
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	if err := s.store.Sessions().Delete(r.Context(), id); err != nil {
		return err
	}
	slog.Info("Session deleted", "session_id", id)

	redirect(w, r, "/sessions")
	return nil
}

func (s *Server) sessionFromForm(r *http.Request) (*models.PlaySession, error) {
	form, err := parseSessionForm(r)
	if err != nil {
		return nil, err
	}
	if err := s.check(form); err != nil {
		return nil, err
	}

	date, err := models.ParseDate(form.Date)
	if err != nil {
		return nil, &ValidationError{Field: "date_str", Message: "must be a date in YYYY-MM-DD form"}
	}
	players, err := roster.DecodeStrict(form.PlayersJSON)
	if err != nil {
		return nil, err
	}

	return &models.PlaySession{
		Date:    date,
		Price:   form.Price,
		Players: players,
	}, nil
}

func (s *Server) playerOptions(r *http.Request) ([]playerOption, error) {
	players, err := s.store.Players().List(r.Context())
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	options := make([]playerOption, 0, len(players))
	for _, p := range players {
		options = append(options, playerOption{ID: p.ID, Name: p.Name})
	}
	return options, nil
}
