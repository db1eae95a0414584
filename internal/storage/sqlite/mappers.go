package sqlite

import (
	"fmt"
	"time"

	"github.com/mmynk/futsalon/internal/models"
	"github.com/mmynk/futsalon/internal/roster"
)

var playerMapper = mapper[models.Player]{
	table:   "player",
	columns: []string{"name", "level"},
	orderBy: "id",
	id:      func(p *models.Player) int64 { return p.ID },
	setID:   func(p *models.Player, id int64) { p.ID = id },
	values: func(p *models.Player) []any {
		return []any{p.Name, string(p.Level)}
	},
	scan: func(row rowScanner) (*models.Player, error) {
		p := &models.Player{}
		var level string
		if err := row.Scan(&p.ID, &p.Name, &level); err != nil {
			return nil, err
		}
		p.Level = models.Level(level)
		return p, nil
	},
}

var sessionMapper = mapper[models.PlaySession]{
	table:   "session",
	columns: []string{"date", "price", "players"},
	orderBy: "date DESC, id DESC",
	id:      func(s *models.PlaySession) int64 { return s.ID },
	setID:   func(s *models.PlaySession, id int64) { s.ID = id },
	values: func(s *models.PlaySession) []any {
		return []any{s.Date.Format(models.DateLayout), s.Price, roster.Encode(s.Players)}
	},
	scan: func(row rowScanner) (*models.PlaySession, error) {
		s := &models.PlaySession{}
		var date string
		// Players scans leniently; a corrupt roster reads as empty.
		if err := row.Scan(&s.ID, &date, &s.Price, &s.Players); err != nil {
			return nil, err
		}
		d, err := parseStoredDate(date)
		if err != nil {
			return nil, fmt.Errorf("session %d: %w", s.ID, err)
		}
		s.Date = d
		return s, nil
	},
}

var paymentMapper = mapper[models.Payment]{
	table:   "payment",
	columns: []string{"player_id", "amount", "date"},
	orderBy: "id",
	id:      func(p *models.Payment) int64 { return p.ID },
	setID:   func(p *models.Payment, id int64) { p.ID = id },
	values: func(p *models.Payment) []any {
		return []any{p.PlayerID, p.Amount, p.Date.Format(models.DateLayout)}
	},
	scan: func(row rowScanner) (*models.Payment, error) {
		p := &models.Payment{}
		var date string
		if err := row.Scan(&p.ID, &p.PlayerID, &p.Amount, &date); err != nil {
			return nil, err
		}
		d, err := parseStoredDate(date)
		if err != nil {
			return nil, fmt.Errorf("payment %d: %w", p.ID, err)
		}
		p.Date = d
		return p, nil
	},
}

var userMapper = mapper[models.User]{
	table:   "user",
	columns: []string{"username", "password_hash"},
	orderBy: "id",
	id:      func(u *models.User) int64 { return u.ID },
	setID:   func(u *models.User, id int64) { u.ID = id },
	values: func(u *models.User) []any {
		return []any{u.Username, u.PasswordHash}
	},
	scan: func(row rowScanner) (*models.User, error) {
		u := &models.User{}
		if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash); err != nil {
			return nil, err
		}
		return u, nil
	},
}

// parseStoredDate accepts plain dates and the datetime strings some older
// rows carry.
func parseStoredDate(s string) (time.Time, error) {
	if len(s) > len(models.DateLayout) {
		s = s[:len(models.DateLayout)]
	}
	d, err := models.ParseDate(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored date %q: %w", s, err)
	}
	return d, nil
}
