package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

const (
	// DefaultTimeZone is the zone naive sheet dates are interpreted in.
	DefaultTimeZone = "Asia/Kolkata"

	// StorageDateLayout is the layout dates are written to the sheet with.
	StorageDateLayout = "2006-01-02"
)

var ErrInvalidDate = errors.New("invalid date")

// readLayouts are tried in order when parsing a stored date cell.
var readLayouts = []string{
	StorageDateLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"02/01/2006",
	"2/1/2006",
}

// spreadsheet serial day 0
var serialEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// LoadLocation resolves a zone name, defaulting to DefaultTimeZone.
func LoadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultTimeZone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, &ConfigError{Setting: "time zone " + name, Err: err}
	}
	return loc, nil
}

// ParseStoredDate interprets a sheet date cell as a naive calendar date in loc and
// returns the absolute instant of that local midnight (or local time when the
// cell carries one). RFC 3339 values keep their own offset.
func ParseStoredDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidDate
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc), nil
	}
	for _, layout := range readLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 && serial < 2958466 {
		days := int(serial)
		d := serialEpoch.AddDate(0, 0, days)
		return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// FormatStoredDate formats t as a naive date in the storage zone.
func FormatStoredDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(StorageDateLayout)
}

// DateOnly truncates t to local midnight in loc.
func DateOnly(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
