package models

import "time"

// Payment records money received from a player.
type Payment struct {
	ID int64 `json:"id"`

	// PlayerID references a Player. The player may have been deleted since.
	PlayerID int64 `json:"player_id"`

	// Amount is accepted as entered; refunds may be recorded as negatives.
	Amount float64 `json:"amount"`

	// Date is set to the submission day and cannot be edited.
	Date time.Time `json:"date"`
}
