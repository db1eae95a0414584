package models

import (
	"time"

	"github.com/mmynk/futsalon/internal/roster"
)

// DateLayout is how calendar dates are written in forms and in storage.
const DateLayout = "2006-01-02"

// PlaySession is a single futsal game. Every attendee is charged Price.
//
// The name avoids confusion with login sessions.
type PlaySession struct {
	ID int64 `json:"id"`

	// Date is the calendar day of the game (time of day is zero, UTC).
	Date time.Time `json:"date"`

	// Price is charged identically to every attendee. Never negative.
	Price float64 `json:"price"`

	// Players lists attending player ids without repeats.
	Players roster.Roster `json:"players"`
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// Today returns the current calendar date in UTC.
func Today() time.Time {
	y, m, d := time.Now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
