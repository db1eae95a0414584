// Package roster models the set of players attending a play session and
// converts it to and from the JSON array text kept in the sessions table.
//
// Two decoders exist on purpose. DecodeStrict guards writes and rejects
// anything that is not a JSON array of distinct integers. DecodeLenient is
// used when reading stored rows for display and debt reports; it never fails
// and keeps whatever ids it can recover.
package roster

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// emptyToken is the stored form of a roster with no attendees.
const emptyToken = "[]"

// Roster is an ordered collection of distinct player ids.
// The zero value is an empty roster.
type Roster struct {
	ids []int64
}

// New builds a roster from ids, preserving order.
// Returns a *ValidationError if an id appears more than once.
func New(ids ...int64) (Roster, error) {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return Roster{}, &ValidationError{Reason: fmt.Sprintf("player %d listed more than once", id)}
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return Roster{ids: out}, nil
}

// MustNew is like New but panics on duplicates. Intended for tests and literals.
func MustNew(ids ...int64) Roster {
	r, err := New(ids...)
	if err != nil {
		panic(err)
	}
	return r
}

// IDs returns a copy of the player ids in roster order.
func (r Roster) IDs() []int64 {
	out := make([]int64, len(r.ids))
	copy(out, r.ids)
	return out
}

// Len returns the number of attendees.
func (r Roster) Len() int {
	return len(r.ids)
}

// Contains reports whether playerID attends.
func (r Roster) Contains(playerID int64) bool {
	for _, id := range r.ids {
		if id == playerID {
			return true
		}
	}
	return false
}

// Encode returns the canonical compact JSON array form, e.g. "[3,1,2]".
// An empty roster encodes as "[]", never "null".
func Encode(r Roster) string {
	if len(r.ids) == 0 {
		return emptyToken
	}
	var b strings.Builder
	b.WriteByte('[')
	for i, id := range r.ids {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatInt(id, 10))
	}
	b.WriteByte(']')
	return b.String()
}

// String implements fmt.Stringer using the encoded form.
func (r Roster) String() string {
	return Encode(r)
}

// DecodeStrict parses user supplied roster text.
// The text must be a JSON array of integers without repeats; anything else,
// including "null" and the empty string, yields a *ValidationError.
func DecodeStrict(text string) (Roster, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Roster{}, &ValidationError{Reason: "empty player list"}
	}
	if trimmed == "null" {
		return Roster{}, &ValidationError{Reason: "player list must be an array"}
	}

	var ids []int64
	if err := json.Unmarshal([]byte(trimmed), &ids); err != nil {
		return Roster{}, &ValidationError{Reason: "player list is not a JSON array of integers", Err: err}
	}
	return New(ids...)
}

// DecodeLenient parses stored roster text and never fails.
// A nil pointer, "null", the empty string and malformed text all decode to an
// empty roster. When the text is a JSON array, integral members are kept in
// order, other members are skipped and repeated ids keep their first position.
func DecodeLenient(text *string) Roster {
	if text == nil {
		return Roster{}
	}
	return decodeLenient([]byte(*text))
}

func decodeLenient(data []byte) Roster {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		return Roster{}
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Roster{}
	}

	seen := make(map[int64]struct{}, len(raw))
	ids := make([]int64, 0, len(raw))
	for _, elem := range raw {
		id, ok := integral(elem)
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return Roster{ids: ids}
}

// integral extracts an integer from a JSON number, accepting integral floats
// such as 3.0 that older rows may contain.
func integral(elem json.RawMessage) (int64, bool) {
	var n json.Number
	if err := json.Unmarshal(elem, &n); err != nil {
		return 0, false
	}
	if id, err := n.Int64(); err == nil {
		return id, true
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

// MarshalJSON encodes the roster as a JSON array of ids.
func (r Roster) MarshalJSON() ([]byte, error) {
	return []byte(Encode(r)), nil
}

// UnmarshalJSON decodes strictly; API input goes through the same checks as
// form input.
func (r *Roster) UnmarshalJSON(data []byte) error {
	decoded, err := DecodeStrict(string(data))
	if err != nil {
		return err
	}
	*r = decoded
	return nil
}

// Value stores the roster in its encoded text form.
func (r Roster) Value() (driver.Value, error) {
	return Encode(r), nil
}

// Scan reads a stored roster leniently so that one corrupt row cannot break
// a listing or a debt report.
func (r *Roster) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*r = Roster{}
	case string:
		*r = decodeLenient([]byte(v))
	case []byte:
		*r = decodeLenient(v)
	default:
		*r = Roster{}
	}
	return nil
}
