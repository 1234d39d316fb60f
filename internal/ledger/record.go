// Package ledger records attendance. Each calendar day has its own ledger and
// an identity appears in a day's ledger at most once.
package ledger

import (
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
)

// Status of an attendance record.
type Status string

const (
	StatusPresent Status = "present"
)

// Label is the text written to the status column of the spreadsheet.
func (s Status) Label() string {
	switch s {
	case StatusPresent:
		return constants.StatusPresent
	default:
		return string(s)
	}
}

// ParseStatusLabel maps a spreadsheet status cell back to a Status.
func ParseStatusLabel(label string) Status {
	if label == constants.StatusPresent {
		return StatusPresent
	}
	return Status(label)
}

// Day is a calendar date in the attendance time zone.
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

// DayOf returns the calendar day of t in loc.
func DayOf(t time.Time, loc *time.Location) Day {
	if loc != nil {
		t = t.In(loc)
	}
	y, m, d := t.Date()
	return Day{Year: y, Month: m, Day: d}
}

// ParseDay parses YYYY-MM-DD.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(constants.DayKeyFormat, s)
	if err != nil {
		return Day{}, fmt.Errorf("invalid day %q: %w", s, err)
	}
	return DayOf(t, time.UTC), nil
}

// String returns YYYY-MM-DD.
func (d Day) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// FileStamp returns YYYY_MM_DD as used in ledger file names.
func (d Day) FileStamp() string {
	return fmt.Sprintf("%04d_%02d_%02d", d.Year, d.Month, d.Day)
}

// Display returns DD.MM.YYYY as shown in the date column.
func (d Day) Display() string {
	return fmt.Sprintf("%02d.%02d.%04d", d.Day, d.Month, d.Year)
}

// Start returns midnight of the day in loc.
func (d Day) Start(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// MarshalText implements encoding.TextMarshaler.
func (d Day) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Day) UnmarshalText(b []byte) error {
	parsed, err := ParseDay(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// IsZero reports whether d is the zero Day.
func (d Day) IsZero() bool {
	return d == Day{}
}

// Record is one attendance event.
type Record struct {
	DisplayName string    `json:"display_name"`
	IdentityID  string    `json:"identity_id"`
	Date        Day       `json:"date"`
	Time        time.Time `json:"time"`
	Status      Status    `json:"status"`
}

// Clock formats the record time as HH:MM:SS.
func (r Record) Clock() string {
	if r.Time.IsZero() {
		return ""
	}
	return r.Time.Format(constants.LedgerTimeFormat)
}
