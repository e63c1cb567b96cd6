package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"schmerzverlauf/internal/chart"
	"schmerzverlauf/internal/table"
)

// Stored date and clock layouts.
const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// Intensity bounds of the pain scale.
const (
	MinIntensity = 0
	MaxIntensity = 10
)

// ErrValidation is matched by every ValidationError.
var ErrValidation = errors.New("validation failed")

// ValidationError reports the offending field of a rejected entry.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrValidation) hold.
func (e ValidationError) Is(target error) bool { return target == ErrValidation }

// PainEntry is one pain form submission. Empty Date and Time default to the
// service clock.
type PainEntry struct {
	Name      string `json:"name"`
	Date      string `json:"date,omitempty"`
	Time      string `json:"time,omitempty"`
	Intensity int    `json:"intensity"`
	Location  string `json:"location,omitempty"`
	Note      string `json:"note,omitempty"`
}

// MedicationEntry is one medication form submission.
type MedicationEntry struct {
	Name       string `json:"name"`
	Date       string `json:"date,omitempty"`
	Time       string `json:"time,omitempty"`
	Medication string `json:"medication"`
	Dose       string `json:"dose,omitempty"`
	Note       string `json:"note,omitempty"`
}

func (e PainEntry) record(now time.Time) (table.Record, error) {
	name := strings.TrimSpace(e.Name)
	if name == "" {
		return nil, ValidationError{Field: "name", Reason: "required"}
	}
	if e.Intensity < MinIntensity || e.Intensity > MaxIntensity {
		return nil, ValidationError{Field: "intensity", Reason: fmt.Sprintf("must be between %d and %d", MinIntensity, MaxIntensity)}
	}
	date, clock, err := stamp(e.Date, e.Time, now)
	if err != nil {
		return nil, err
	}
	return table.Record{
		ColName:      name,
		ColDate:      date,
		ColTime:      clock,
		ColIntensity: strconv.Itoa(e.Intensity),
		ColLocation:  freeText(e.Location),
		ColNote:      freeText(e.Note),
	}, nil
}

func (e MedicationEntry) record(now time.Time) (table.Record, error) {
	name := strings.TrimSpace(e.Name)
	if name == "" {
		return nil, ValidationError{Field: "name", Reason: "required"}
	}
	drug := strings.TrimSpace(e.Medication)
	if drug == "" {
		return nil, ValidationError{Field: "medication", Reason: "required"}
	}
	date, clock, err := stamp(e.Date, e.Time, now)
	if err != nil {
		return nil, err
	}
	return table.Record{
		ColName: name,
		ColDate: date,
		ColTime: clock,
		ColDrug: drug,
		ColDose: freeText(e.Dose),
		ColNote: freeText(e.Note),
	}, nil
}

// freeText trims s and stores its line breaks as LF, the form a persisted
// table reads back.
func freeText(s string) string {
	return table.FoldLineBreaks(strings.TrimSpace(s))
}

// stamp normalizes the submitted date and clock time, filling blanks from now.
func stamp(date, clock string, now time.Time) (string, string, error) {
	date, clock = strings.TrimSpace(date), strings.TrimSpace(clock)
	outDate := now.Format(DateLayout)
	if date != "" {
		d, ok := chart.ParseDate(date)
		if !ok {
			return "", "", ValidationError{Field: "date", Reason: fmt.Sprintf("unrecognized date %q", date)}
		}
		outDate = d.Format(DateLayout)
	}
	outClock := now.Format(ClockLayout)
	if clock != "" {
		c, err := parseClock(clock)
		if err != nil {
			return "", "", ValidationError{Field: "time", Reason: fmt.Sprintf("unrecognized time %q", clock)}
		}
		outClock = c.Format(ClockLayout)
	} else if date != "" {
		// A backdated entry without a time carries no clock value.
		outClock = ""
	}
	return outDate, outClock, nil
}

func parseClock(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range []string{"15:04", "15:04:05", "15.04"} {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
