package dosage

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"schmerzverlauf/internal/table"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want Dose
	}{
		{"400 mg", Dose{Count: 1, Amount: 400, Unit: UnitMilligram}},
		{"400mg", Dose{Count: 1, Amount: 400, Unit: UnitMilligram}},
		{"2x 500mg", Dose{Count: 2, Amount: 500, Unit: UnitMilligram}},
		{"2 x 0.5 g", Dose{Count: 2, Amount: 0.5, Unit: UnitGram}},
		{"1,5 ml", Dose{Count: 1, Amount: 1.5, Unit: UnitMilliliter}},
		{"20 Tropfen", Dose{Count: 1, Amount: 20, Unit: UnitDrop}},
		{" 1 Tbl. ", Dose{Count: 1, Amount: 1, Unit: UnitPiece}},
		{"50 µg", Dose{Count: 1, Amount: 50, Unit: UnitMicrogram}},
		{"3", Dose{Count: 1, Amount: 3, Unit: UnitNone}},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := Parse(tc.in)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("dose (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseRejects(t *testing.T) {
	for _, in := range []string{"", "viel", "mg 400", "400 furlongs", "0x 5mg"} {
		if _, err := Parse(in); !errors.Is(err, ErrUnparsable) {
			t.Fatalf("Parse(%q): expected ErrUnparsable, got %v", in, err)
		}
	}
}

func TestMilligrams(t *testing.T) {
	for _, tc := range []struct {
		dose Dose
		mg   float64
		ok   bool
	}{
		{Dose{Count: 2, Amount: 0.5, Unit: UnitGram}, 1000, true},
		{Dose{Count: 1, Amount: 500, Unit: UnitMicrogram}, 0.5, true},
		{Dose{Count: 3, Amount: 200, Unit: UnitMilligram}, 600, true},
		{Dose{Count: 1, Amount: 5, Unit: UnitMilliliter}, 0, false},
	} {
		mg, ok := tc.dose.Milligrams()
		if mg != tc.mg || ok != tc.ok {
			t.Fatalf("%v: got %v %v", tc.dose, mg, ok)
		}
	}
	if s := (Dose{Count: 2, Amount: 1.5, Unit: UnitMilliliter}).String(); s != "2x 1.5 ml" {
		t.Fatalf("unexpected string %q", s)
	}
}

func TestDailyTotals(t *testing.T) {
	schema := table.MustSchema(
		table.Column{Name: "Name"},
		table.Column{Name: "Datum"},
		table.Column{Name: "Medikament"},
		table.Column{Name: "Dosierung"},
	)
	tbl := table.New(schema)
	for _, r := range [][3]string{
		{"2024-01-02", "Ibuprofen", "400 mg"},
		{"2024-01-01", "Ibuprofen", "2x 400mg"},
		{"2024-01-01", "ibuprofen", "0,4 g"},
		{"2024-01-01", "Novalgin", "20 Tropfen"},
		{"2024-01-01", "Novalgin", "etwas"},
		{"2024-01-01", "", "100 mg"},
	} {
		var err error
		tbl, err = tbl.Append(table.Record{"Name": "a", "Datum": r[0], "Medikament": r[1], "Dosierung": r[2]})
		if err != nil {
			t.Fatal(err)
		}
	}
	want := []Total{
		{Date: "2024-01-01", Medication: "Ibuprofen", Amount: 1200, Unit: UnitMilligram, Entries: 2},
		{Date: "2024-01-01", Medication: "Novalgin", Amount: 20, Unit: UnitDrop, Entries: 1},
		{Date: "2024-01-01", Medication: "Novalgin", Unit: UnitNone, Unparsed: 1},
		{Date: "2024-01-02", Medication: "Ibuprofen", Amount: 400, Unit: UnitMilligram, Entries: 1},
	}
	if diff := cmp.Diff(want, DailyTotals(tbl)); diff != "" {
		t.Fatalf("totals (-want +got):\n%s", diff)
	}
}

func TestDailyTotalsMixedDateLayouts(t *testing.T) {
	schema := table.MustSchema(
		table.Column{Name: "Name"},
		table.Column{Name: "Datum"},
		table.Column{Name: "Medikament"},
		table.Column{Name: "Dosierung"},
	)
	tbl := table.New(schema)
	for _, r := range [][2]string{
		{"10.01.2024", "400 mg"},
		{"2024-01-02", "400 mg"},
		{"02.01.2024", "200 mg"},
	} {
		var err error
		tbl, err = tbl.Append(table.Record{"Name": "a", "Datum": r[0], "Medikament": "Ibuprofen", "Dosierung": r[1]})
		if err != nil {
			t.Fatal(err)
		}
	}
	want := []Total{
		{Date: "2024-01-02", Medication: "Ibuprofen", Amount: 600, Unit: UnitMilligram, Entries: 2},
		{Date: "2024-01-10", Medication: "Ibuprofen", Amount: 400, Unit: UnitMilligram, Entries: 1},
	}
	if diff := cmp.Diff(want, DailyTotals(tbl)); diff != "" {
		t.Fatalf("totals (-want +got):\n%s", diff)
	}
}
