package store

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Value is a nullable text cell.
type Value struct {
	String string
	Valid  bool
}

// Null is the absent value.
var Null = Value{}

// Text returns a present value holding s.
func Text(s string) Value {
	return Value{String: s, Valid: true}
}

// IsEmpty reports whether the value is null or the empty string.
func (v Value) IsEmpty() bool {
	return !v.Valid || v.String == ""
}

// MarshalJSON encodes null values as JSON null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(v.String)
}

// UnmarshalJSON accepts null, strings, and scalar JSON values (kept as their text).
func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = Null
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = Text(s)
		return nil
	}
	var raw json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = Text(string(raw))
	return nil
}

// Record is a single row keyed by column key.
type Record map[string]Value

// ID returns the record's identifier.
func (r Record) ID() string {
	return r[IDKey].String
}

// Get returns the text of a field, empty when null or absent.
func (r Record) Get(key string) string {
	return r[key].String
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// GenerateID returns one more than the largest integer id among records.
// Ids that are not integers count as 0. Callers must serialize id generation.
// ErrIDExhausted is returned when the largest id is math.MaxInt64.
func GenerateID(records []Record) (string, error) {
	var maxID int64
	for _, r := range records {
		n, err := strconv.ParseInt(r.ID(), 10, 64)
		if err != nil {
			continue
		}
		if n > maxID {
			maxID = n
		}
	}
	if maxID == math.MaxInt64 {
		return "", fmt.Errorf("%w: largest id is %d", ErrIDExhausted, maxID)
	}
	return strconv.FormatInt(maxID+1, 10), nil
}
