package models

import "fmt"

// Level describes how a player relates to the group. It is informational
// only and does not change what a player is charged.
type Level string

const (
	LevelGuest     Level = "guest"
	LevelNormal    Level = "normal"
	LevelPermanent Level = "permanent"
)

// Levels lists every level in display order.
var Levels = []Level{LevelGuest, LevelNormal, LevelPermanent}

// Valid reports whether l is a known level.
func (l Level) Valid() bool {
	switch l {
	case LevelGuest, LevelNormal, LevelPermanent:
		return true
	}
	return false
}

// ParseLevel converts form input into a Level.
func ParseLevel(s string) (Level, error) {
	l := Level(s)
	if !l.Valid() {
		return "", fmt.Errorf("unknown player level %q", s)
	}
	return l, nil
}

// Player is a member of the group.
type Player struct {
	// ID is assigned by the store on creation.
	ID int64 `json:"id"`

	// Name is the display name.
	Name string `json:"name"`

	// Level is one of guest, normal or permanent.
	Level Level `json:"level"`
}
