package model

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// Date is a calendar day in UTC. The zero value means "not set".
type Date struct {
	time.Time
}

// Day truncates t to its calendar day.
func Day(t time.Time) Date {
	if t.IsZero() {
		return Date{}
	}
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts YYYY-MM-DD or an RFC 3339 timestamp. Empty input yields
// the zero Date without error.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return Day(t), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, err
	}
	return Day(t), nil
}

// MustDate is ParseDate for literals.
func MustDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) IsSet() bool {
	return !d.Time.IsZero()
}

func (d Date) String() string {
	if !d.IsSet() {
		return ""
	}
	return d.Time.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON is lenient: null, empty and unparsable strings all decode to
// the unset Date.
func (d *Date) UnmarshalJSON(b []byte) error {
	d.Time = time.Time{}
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return nil
	}
	if parsed, err := ParseDate(s); err == nil {
		*d = parsed
	}
	return nil
}

// Finish distinguishes a task that is not finished yet from one finished on a
// given day.
type Finish struct {
	on Date
}

func Unfinished() Finish {
	return Finish{}
}

// FinishedOn returns a finished value; an unset day yields Unfinished.
func FinishedOn(d Date) Finish {
	return Finish{on: d}
}

// Day returns the finishing day and whether the task is finished.
func (f Finish) Day() (Date, bool) {
	return f.on, f.on.IsSet()
}

func (f Finish) Finished() bool {
	return f.on.IsSet()
}

func (f Finish) Equal(o Finish) bool {
	return f.on.Time.Equal(o.on.Time)
}

func (f Finish) String() string {
	return f.on.String()
}

func (f Finish) MarshalJSON() ([]byte, error) {
	return f.on.MarshalJSON()
}

func (f *Finish) UnmarshalJSON(b []byte) error {
	return f.on.UnmarshalJSON(b)
}
