package chart

import (
	"bytes"
	"encoding/json"
	"image/png"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"schmerzverlauf/internal/table"
)

var painSchema = table.MustSchema(
	table.Column{Name: "Name"},
	table.Column{Name: "Datum", Kind: table.KindDate},
	table.Column{Name: "Stärke", Kind: table.KindInteger},
)

func buildTable(t *testing.T, rows ...[2]string) table.Table {
	t.Helper()
	tbl := table.New(painSchema)
	for _, r := range rows {
		var err error
		tbl, err = tbl.Append(table.Record{"Name": "alice", "Datum": r[0], "Stärke": r[1]})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	return tbl
}

func day(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }

type pair struct {
	Time  time.Time
	Value float64
}

func pairs(points []Point) []pair {
	out := make([]pair, len(points))
	for i, p := range points {
		out[i] = pair{p.Time, p.Value}
	}
	return out
}

func TestSeriesSortsByDate(t *testing.T) {
	tbl := buildTable(t, [2]string{"2024-01-03", "5"}, [2]string{"2024-01-01", "3"}, [2]string{"2024-01-02", "8"})
	got := pairs(Series(tbl, DefaultOptions()))
	want := []pair{{day(1), 3}, {day(2), 8}, {day(3), 5}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("series (-want +got):\n%s", diff)
	}
}

func TestSeriesDropsUnparsableRows(t *testing.T) {
	tbl := buildTable(t,
		[2]string{"not-a-date", "4"},
		[2]string{"2024-01-02", "n/a"},
		[2]string{"02.01.2024", "6,5"},
		[2]string{"", ""},
		[2]string{"2024-01-03", "NaN"},
		[2]string{"2024-01-03", "Inf"},
		[2]string{"2024-01-03", "-inf"},
	)
	points := Series(tbl, DefaultOptions())
	if len(points) != 1 {
		t.Fatalf("expected one point, got %+v", points)
	}
	if points[0].Value != 6.5 || !points[0].Time.Equal(day(2)) || points[0].Row != 2 {
		t.Fatalf("unexpected point %+v", points[0])
	}
	if _, err := json.Marshal(Summarize(points)); err != nil {
		t.Fatalf("summary must stay encodable: %v", err)
	}
}

func TestSeriesStableForSameDate(t *testing.T) {
	tbl := buildTable(t, [2]string{"2024-01-02", "7"}, [2]string{"2024-01-01", "1"}, [2]string{"2024-01-02", "2"})
	got := pairs(Series(tbl, DefaultOptions()))
	want := []pair{{day(1), 1}, {day(2), 7}, {day(2), 2}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("series (-want +got):\n%s", diff)
	}
}

func TestSeriesUsesClockColumn(t *testing.T) {
	schema := table.MustSchema(
		table.Column{Name: "Name"},
		table.Column{Name: "Datum"},
		table.Column{Name: "Uhrzeit"},
		table.Column{Name: "Stärke"},
	)
	tbl := table.New(schema)
	for _, r := range [][3]string{{"2024-01-01", "18:30", "4"}, {"2024-01-01", "08:15", "6"}, {"2024-01-01", "garbage", "2"}} {
		var err error
		tbl, err = tbl.Append(table.Record{"Name": "a", "Datum": r[0], "Uhrzeit": r[1], "Stärke": r[2]})
		if err != nil {
			t.Fatal(err)
		}
	}
	got := pairs(Series(tbl, DefaultOptions()))
	want := []pair{
		{day(1), 2},
		{time.Date(2024, 1, 1, 8, 15, 0, 0, time.UTC), 6},
		{time.Date(2024, 1, 1, 18, 30, 0, 0, time.UTC), 4},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("series (-want +got):\n%s", diff)
	}
}

func TestSeriesEmpty(t *testing.T) {
	if got := Series(table.New(painSchema), DefaultOptions()); len(got) != 0 {
		t.Fatalf("expected empty series")
	}
}

func TestSummarize(t *testing.T) {
	points := Series(buildTable(t, [2]string{"2024-01-03", "5"}, [2]string{"2024-01-01", "3"}, [2]string{"2024-01-02", "7"}), DefaultOptions())
	s := Summarize(points)
	if s.Count != 3 || s.Mean != 5 || s.Min != 3 || s.Max != 7 {
		t.Fatalf("unexpected summary %+v", s)
	}
	if math.Abs(s.StdDev-2) > 1e-9 {
		t.Fatalf("expected sample std dev 2, got %v", s.StdDev)
	}
	if !s.First.Equal(day(1)) || !s.Last.Equal(day(3)) {
		t.Fatalf("unexpected range %v..%v", s.First, s.Last)
	}
	if one := Summarize(points[:1]); one.StdDev != 0 {
		t.Fatalf("single point std dev should be 0, got %v", one.StdDev)
	}
	if empty := Summarize(nil); empty.Count != 0 {
		t.Fatalf("expected zero summary")
	}
}

func TestRenderPNG(t *testing.T) {
	points := Series(buildTable(t, [2]string{"2024-01-01", "3"}, [2]string{"2024-01-02", "8"}), DefaultOptions())
	cases := map[string][]Point{
		"series": points,
		"empty":  nil,
		"single": points[:1],
		"nan":    {points[0], {Time: day(2), Value: math.NaN()}},
	}
	for name, pts := range cases {
		payload, err := RenderPNG(pts, RenderOptions{Width: 320, Height: 200, MaxY: 10})
		if err != nil {
			t.Fatalf("%s: render: %v", name, err)
		}
		img, err := png.Decode(bytes.NewReader(payload))
		if err != nil {
			t.Fatalf("%s: decode: %v", name, err)
		}
		if b := img.Bounds(); b.Dx() != 320 || b.Dy() != 200 {
			t.Fatalf("%s: unexpected bounds %v", name, b)
		}
	}
	payload, err := RenderPNG(points, RenderOptions{})
	if err != nil {
		t.Fatalf("render defaults: %v", err)
	}
	img, _ := png.Decode(bytes.NewReader(payload))
	if img.Bounds().Dx() != DefaultRenderOptions().Width {
		t.Fatalf("expected default width")
	}
}
