package api

import (
	"encoding/json"
	"fmt"
	"time"
)

// Dates carry no time of day, so they travel as YYYY-MM-DD.

// MarshalJSON writes Date in time.DateOnly form.
func (r Result) MarshalJSON() ([]byte, error) {
	type plain Result
	return json.Marshal(struct {
		plain
		Date string `json:"date,omitempty"`
	}{plain(r), formatDay(r.Date)})
}

// UnmarshalJSON reads Date in time.DateOnly or RFC 3339 form.
func (r *Result) UnmarshalJSON(data []byte) error {
	type plain Result
	aux := struct {
		*plain
		Date string `json:"date,omitempty"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	date, err := parseDay(aux.Date)
	if err != nil {
		return err
	}
	r.Date = date
	return nil
}

// MarshalJSON writes Date in time.DateOnly form.
func (b Bill) MarshalJSON() ([]byte, error) {
	type plain Bill
	return json.Marshal(struct {
		plain
		Date string `json:"date,omitempty"`
	}{plain(b), formatDay(b.Date)})
}

// UnmarshalJSON reads Date in time.DateOnly form, or RFC 3339 as written
// by earlier versions.
func (b *Bill) UnmarshalJSON(data []byte) error {
	type plain Bill
	aux := struct {
		*plain
		Date string `json:"date,omitempty"`
	}{plain: (*plain)(b)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	date, err := parseDay(aux.Date)
	if err != nil {
		return err
	}
	b.Date = date
	return nil
}

func formatDay(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.DateOnly)
}

func parseDay(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		full, ferr := time.Parse(time.RFC3339, s)
		if ferr != nil {
			return nil, fmt.Errorf("parsing date %q: %w", s, err)
		}
		t = time.Date(full.Year(), full.Month(), full.Day(), 0, 0, 0, 0, time.UTC)
	}
	return &t, nil
}
