package core

import (
	"fmt"
	"strings"

	"schmerzverlauf/internal/table"
)

// Kind names one of the two tracked tables.
type Kind string

const (
	KindPain       Kind = "pain"
	KindMedication Kind = "medication"
)

// ParseKind maps a route or CLI argument to a Kind. "med" is accepted as
// shorthand for medication.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(KindPain):
		return KindPain, nil
	case string(KindMedication), "med":
		return KindMedication, nil
	default:
		return "", fmt.Errorf("unknown table %q", s)
	}
}

// Backing table names; the file driver stores them as <name>.csv.
const (
	PainTable       = "pain_data"
	MedicationTable = "med_data"
)

// Column names shared by both tables.
const (
	ColName      = table.NameColumn
	ColDate      = "Datum"
	ColTime      = "Uhrzeit"
	ColIntensity = "Stärke"
	ColLocation  = "Ort"
	ColNote      = "Bemerkung"
	ColDrug      = "Medikament"
	ColDose      = "Dosierung"
)

// PainSchema is the column layout of the pain log.
var PainSchema = table.MustSchema(
	table.Column{Name: ColName, Kind: table.KindText, Required: true},
	table.Column{Name: ColDate, Kind: table.KindDate, Required: true},
	table.Column{Name: ColTime, Kind: table.KindTime},
	table.Column{Name: ColIntensity, Kind: table.KindInteger},
	table.Column{Name: ColLocation, Kind: table.KindText},
	table.Column{Name: ColNote, Kind: table.KindText},
)

// MedicationSchema is the column layout of the medication log.
var MedicationSchema = table.MustSchema(
	table.Column{Name: ColName, Kind: table.KindText, Required: true},
	table.Column{Name: ColDate, Kind: table.KindDate, Required: true},
	table.Column{Name: ColTime, Kind: table.KindTime},
	table.Column{Name: ColDrug, Kind: table.KindText, Required: true},
	table.Column{Name: ColDose, Kind: table.KindText},
	table.Column{Name: ColNote, Kind: table.KindText},
)
