package dosage

import (
	"sort"
	"strings"

	"schmerzverlauf/internal/chart"
	"schmerzverlauf/internal/table"
)

// Columns of the medication table read by DailyTotals.
const (
	ColumnDate       = "Datum"
	ColumnMedication = "Medikament"
	ColumnDose       = "Dosierung"
)

// Total sums the parseable doses of one medication on one day.
type Total struct {
	Date       string  `json:"date"`
	Medication string  `json:"medication"`
	Amount     float64 `json:"amount"`
	Unit       Unit    `json:"unit"`
	Entries    int     `json:"entries"`
	Unparsed   int     `json:"unparsed,omitempty"`
}

type totalKey struct {
	date       string
	medication string
	unit       Unit
}

// normalizeDate rewrites any recognized date layout as 2006-01-02 so totals
// group and sort by calendar day. Unrecognized dates are kept as written.
func normalizeDate(s string) string {
	if d, ok := chart.ParseDate(s); ok {
		return d.Format("2006-01-02")
	}
	return strings.TrimSpace(s)
}

// DailyTotals groups medication rows by date, medication and unit. Mass
// units are summed in milligrams. Rows whose dose does not parse are counted
// in Unparsed of a unit-less group for the same day and medication.
func DailyTotals(t table.Table) []Total {
	groups := map[totalKey]*Total{}
	var order []totalKey
	get := func(k totalKey, display string) *Total {
		if g, ok := groups[k]; ok {
			return g
		}
		g := &Total{Date: k.date, Medication: display, Unit: k.unit}
		groups[k] = g
		order = append(order, k)
		return g
	}
	for i := 0; i < t.Len(); i++ {
		date := normalizeDate(t.Value(i, ColumnDate))
		med := strings.TrimSpace(t.Value(i, ColumnMedication))
		if med == "" {
			continue
		}
		medKey := table.FoldName(med)
		d, err := Parse(t.Value(i, ColumnDose))
		if err != nil {
			get(totalKey{date: date, medication: medKey, unit: UnitNone}, med).Unparsed++
			continue
		}
		amount, unit := d.Total(), d.Unit
		if mg, ok := d.Milligrams(); ok {
			amount, unit = mg, UnitMilligram
		}
		g := get(totalKey{date: date, medication: medKey, unit: unit}, med)
		g.Amount += amount
		g.Entries++
	}
	out := make([]Total, 0, len(order))
	for _, k := range order {
		out = append(out, *groups[k])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return table.FoldName(out[i].Medication) < table.FoldName(out[j].Medication)
	})
	return out
}
