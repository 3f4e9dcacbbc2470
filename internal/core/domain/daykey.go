package domain

import (
	"encoding/json"
	"time"
)

// DayKey is the canonical identity of a single civil day under the ledger's
// fixed timezone offset. It is the UTC instant at which that civil day starts,
// so two DayKeys compare with Before/After exactly like the days they name,
// and the value doubles as the storage key of a LedgerDay.
type DayKey struct {
	t time.Time
}

// Time returns the underlying start-of-day instant in UTC.
func (k DayKey) Time() time.Time {
	return k.t
}

// IsZero reports whether the key is the zero value.
func (k DayKey) IsZero() bool {
	return k.t.IsZero()
}

// Equal reports whether two keys name the same civil day.
func (k DayKey) Equal(other DayKey) bool {
	return k.t.Equal(other.t)
}

// Before reports whether k names an earlier civil day than other.
func (k DayKey) Before(other DayKey) bool {
	return k.t.Before(other.t)
}

// After reports whether k names a later civil day than other.
func (k DayKey) After(other DayKey) bool {
	return k.t.After(other.t)
}

// String formats the key as the civil date it names, e.g. "2024-06-01".
// The offset encoded at construction time makes the plain format call yield
// the civil date directly.
func (k DayKey) String() string {
	return k.t.Format("2006-01-02")
}

// MarshalJSON encodes the key as its RFC3339 start-of-day instant, keeping
// the fixed offset visible in the payload.
func (k DayKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.t.Format(time.RFC3339))
}

// UnmarshalJSON parses an RFC3339 instant. The offset embedded in the text
// reconstructs the civil-day boundary exactly.
func (k *DayKey) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return err
	}
	k.t = t
	return nil
}

// Normalizer converts arbitrary instants into DayKeys for a single fixed
// civil-calendar offset. Every day-boundary computation in the system goes
// through one Normalizer; nothing else is allowed to do its own "start of
// day" arithmetic.
type Normalizer struct {
	loc *time.Location
}

// NewNormalizer builds a Normalizer for a fixed offset, given in seconds east
// of UTC. The location name records the offset for debugging.
func NewNormalizer(name string, offsetSeconds int) Normalizer {
	return Normalizer{loc: time.FixedZone(name, offsetSeconds)}
}

// Location exposes the fixed zone, for formatting dates back to civil form.
func (n Normalizer) Location() *time.Location {
	return n.loc
}

// Normalize maps any instant to the DayKey of the civil day it falls in.
// Normalize(Normalize(t).Time()) == Normalize(t) for all t.
func (n Normalizer) Normalize(t time.Time) DayKey {
	civil := t.In(n.loc)
	start := time.Date(civil.Year(), civil.Month(), civil.Day(), 0, 0, 0, 0, n.loc)
	return DayKey{t: start}
}

// NormalizeDate maps a bare civil date (year, month, day) to its DayKey.
func (n Normalizer) NormalizeDate(year int, month time.Month, day int) DayKey {
	return DayKey{t: time.Date(year, month, day, 0, 0, 0, 0, n.loc)}
}

// FromStored re-normalizes an instant loaded from storage. Stored keys are
// already day starts, so this is a cheap invariant repair rather than a
// conversion.
func (n Normalizer) FromStored(t time.Time) DayKey {
	return n.Normalize(t)
}

// Prev returns the DayKey exactly one civil day earlier.
// AddDate in a fixed zone cannot cross a DST boundary, so the step is always
// exactly one calendar day.
func (n Normalizer) Prev(k DayKey) DayKey {
	return DayKey{t: k.t.In(n.loc).AddDate(0, 0, -1)}
}

// Next returns the DayKey exactly one civil day later.
func (n Normalizer) Next(k DayKey) DayKey {
	return DayKey{t: k.t.In(n.loc).AddDate(0, 0, 1)}
}
