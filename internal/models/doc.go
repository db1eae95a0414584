// Package models defines the core domain models for Futsalon.
//
// # Models
//
//   - Player: a member of the group's roster
//   - PlaySession: one scheduled game with a price charged to every attendee
//   - Payment: money received from a player
//   - User: a staff account allowed to log in
//
// Identifiers are auto-incremented integers assigned by the store.
// Relationships are plain ids rather than pointers; sessions and payments may
// keep referencing a player after that player is deleted, and readers must
// treat such ids as an unknown player instead of failing.
package models
