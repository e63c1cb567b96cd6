package core

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	"schmerzverlauf/internal/dosage"
	"schmerzverlauf/internal/table"
)

type mapBackend struct {
	tables map[string][]byte
	fail   error
}

func newMapBackend() *mapBackend { return &mapBackend{tables: map[string][]byte{}} }

func (b *mapBackend) ReadTable(_ context.Context, name string) ([]byte, error) {
	p, ok := b.tables[name]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return p, nil
}

func (b *mapBackend) WriteTable(_ context.Context, name string, payload []byte) error {
	if b.fail != nil {
		return b.fail
	}
	b.tables[name] = append([]byte(nil), payload...)
	return nil
}

type metricsCall struct {
	op      string
	success bool
}

type captureMetricsRecorder struct{ calls []metricsCall }

func (c *captureMetricsRecorder) Observe(_ context.Context, op string, success bool, _ time.Duration) {
	c.calls = append(c.calls, metricsCall{op: op, success: success})
}

func (c *captureMetricsRecorder) has(op string, success bool) bool {
	for _, call := range c.calls {
		if call.op == op && call.success == success {
			return true
		}
	}
	return false
}

var fixedNow = time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)

func newTestService(t *testing.T, opts ...ServiceOption) (*Service, *mapBackend) {
	t.Helper()
	backend := newMapBackend()
	pain := table.NewStore(PainTable, PainSchema, backend)
	meds := table.NewStore(MedicationTable, MedicationSchema, backend)
	opts = append([]ServiceOption{WithClock(ClockFunc(func() time.Time { return fixedNow }))}, opts...)
	return NewService(pain, meds, opts...), backend
}

func TestRecordPainDefaultsTimestamp(t *testing.T) {
	svc, backend := newTestService(t)
	rec, err := svc.RecordPain(context.Background(), PainEntry{Name: " Alice ", Intensity: 7, Location: "Kopf"})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	want := table.Record{ColName: "Alice", ColDate: "2024-03-05", ColTime: "14:30", ColIntensity: "7", ColLocation: "Kopf", ColNote: ""}
	if diff := cmp.Diff(want, rec); diff != "" {
		t.Fatalf("record (-want +got):\n%s", diff)
	}
	got := string(backend.tables[PainTable])
	if got != "Name,Datum,Uhrzeit,Stärke,Ort,Bemerkung\nAlice,2024-03-05,14:30,7,Kopf,\n" {
		t.Fatalf("unexpected payload %q", got)
	}
}

func TestRecordPainNormalizesDates(t *testing.T) {
	svc, _ := newTestService(t)
	rec, err := svc.RecordPain(context.Background(), PainEntry{Name: "Alice", Date: "02.01.2024", Intensity: 0})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if rec[ColDate] != "2024-01-02" || rec[ColTime] != "" {
		t.Fatalf("unexpected stamp %q %q", rec[ColDate], rec[ColTime])
	}
	rec, err = svc.RecordPain(context.Background(), PainEntry{Name: "Alice", Date: "2024-01-03", Time: "7:05", Intensity: 10})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if rec[ColTime] != "07:05" {
		t.Fatalf("unexpected clock %q", rec[ColTime])
	}
}

func TestRecordPainValidation(t *testing.T) {
	metrics := &captureMetricsRecorder{}
	svc, backend := newTestService(t, WithMetricsRecorder(metrics))
	cases := []struct {
		entry PainEntry
		field string
	}{
		{PainEntry{Name: "  ", Intensity: 3}, "name"},
		{PainEntry{Name: "A", Intensity: -1}, "intensity"},
		{PainEntry{Name: "A", Intensity: 11}, "intensity"},
		{PainEntry{Name: "A", Intensity: 3, Date: "gestern"}, "date"},
		{PainEntry{Name: "A", Intensity: 3, Time: "noon"}, "time"},
	}
	for _, tc := range cases {
		_, err := svc.RecordPain(context.Background(), tc.entry)
		var ve ValidationError
		if !errors.As(err, &ve) || ve.Field != tc.field || !errors.Is(err, ErrValidation) {
			t.Fatalf("%+v: expected validation error on %s, got %v", tc.entry, tc.field, err)
		}
	}
	if _, ok := backend.tables[PainTable]; ok {
		t.Fatalf("rejected entries must not be persisted")
	}
	if !metrics.has("record_pain", false) {
		t.Fatalf("expected failed record_pain metric")
	}
}

func TestRecordMedicationRequiresDrug(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.RecordMedication(context.Background(), MedicationEntry{Name: "Bob"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.RecordMedication(context.Background(), MedicationEntry{Medication: "Ibuprofen"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	rec, err := svc.RecordMedication(context.Background(), MedicationEntry{Name: "Bob", Medication: " Ibuprofen ", Dose: "400 mg"})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if rec[ColDrug] != "Ibuprofen" || rec[ColDose] != "400 mg" || rec[ColDate] != "2024-03-05" {
		t.Fatalf("unexpected record %+v", rec)
	}
}

func TestRecordedTextMatchesReload(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	rec, err := svc.RecordMedication(ctx, MedicationEntry{Name: "Bob", Medication: "Ibuprofen", Dose: "400 mg", Note: "nach dem Essen\r\nmit Wasser\rgut vertragen"})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if rec[ColNote] != "nach dem Essen\nmit Wasser\ngut vertragen" {
		t.Fatalf("unexpected stored note %q", rec[ColNote])
	}
	loaded, err := svc.Medications(ctx, Filter{})
	if err != nil {
		t.Fatalf("medications: %v", err)
	}
	if diff := cmp.Diff(rec, loaded.Row(0)); diff != "" {
		t.Fatalf("reloaded row (-recorded +loaded):\n%s", diff)
	}
}

func TestPersistFailureIsSurfaced(t *testing.T) {
	metrics := &captureMetricsRecorder{}
	svc, backend := newTestService(t, WithMetricsRecorder(metrics))
	backend.fail = errors.New("disk full")
	_, err := svc.RecordPain(context.Background(), PainEntry{Name: "Alice", Intensity: 2})
	if !errors.Is(err, table.ErrPersist) {
		t.Fatalf("expected ErrPersist, got %v", err)
	}
	if !metrics.has("record_pain", false) {
		t.Fatalf("expected failure metric")
	}
}

func TestFilteredViews(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	for _, e := range []PainEntry{
		{Name: "Alice", Date: "2024-01-03", Intensity: 5},
		{Name: "Alice Müller", Date: "2024-01-01", Intensity: 3},
		{Name: "Bob", Date: "2024-01-02", Intensity: 8},
		{Name: "alice", Date: "2024-01-02", Intensity: 8},
	} {
		if _, err := svc.RecordPain(ctx, e); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	exact, _ := svc.Pain(ctx, Filter{Name: " ALICE "})
	if exact.Len() != 2 {
		t.Fatalf("expected 2 exact matches, got %d", exact.Len())
	}
	contains, _ := svc.Pain(ctx, Filter{Name: "alice", Match: table.MatchContains})
	if contains.Len() != 3 {
		t.Fatalf("expected 3 contains matches, got %d", contains.Len())
	}
	all, _ := svc.Pain(ctx, Filter{})
	if all.Len() != 4 {
		t.Fatalf("expected all rows, got %d", all.Len())
	}

	svcContains, _ := newTestService(t, WithMatchMode(table.MatchContains))
	if svcContains.MatchMode() != table.MatchContains {
		t.Fatalf("expected default match mode override")
	}

	series, err := svc.PainSeries(ctx, Filter{Name: "alice"})
	if err != nil {
		t.Fatalf("series: %v", err)
	}
	var values []float64
	for _, p := range series.Points {
		values = append(values, p.Value)
	}
	if diff := cmp.Diff([]float64{8, 5}, values); diff != "" {
		t.Fatalf("series (-want +got):\n%s", diff)
	}
	if series.Summary.Count != 2 || series.Summary.Max != 8 {
		t.Fatalf("unexpected summary %+v", series.Summary)
	}
}

func TestDoseTotalsAndClear(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	for _, dose := range []string{"400 mg", "2x 200mg"} {
		if _, err := svc.RecordMedication(ctx, MedicationEntry{Name: "Bob", Date: "2024-01-01", Medication: "Ibuprofen", Dose: dose}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	totals, err := svc.DoseTotals(ctx, Filter{Name: "bob"})
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	want := []dosage.Total{{Date: "2024-01-01", Medication: "Ibuprofen", Amount: 800, Unit: dosage.UnitMilligram, Entries: 2}}
	if diff := cmp.Diff(want, totals); diff != "" {
		t.Fatalf("totals (-want +got):\n%s", diff)
	}
	if err := svc.Clear(ctx, KindMedication); err != nil {
		t.Fatalf("clear: %v", err)
	}
	meds, _ := svc.Table(ctx, KindMedication, Filter{})
	if meds.Len() != 0 || !meds.Schema().Equal(MedicationSchema) {
		t.Fatalf("expected empty medication table with schema, got %d rows", meds.Len())
	}
	if err := svc.Clear(ctx, Kind("other")); err == nil {
		t.Fatalf("expected unknown kind error")
	}
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{"pain": KindPain, " Medication ": KindMedication, "med": KindMedication} {
		got, err := ParseKind(in)
		if err != nil || got != want {
			t.Fatalf("ParseKind(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseKind("blood"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestPrometheusRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusRecorder(reg)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	if _, err := NewPrometheusRecorder(reg); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
	svc, _ := newTestService(t, WithMetricsRecorder(rec))
	ctx := context.Background()
	_, _ = svc.RecordPain(ctx, PainEntry{Name: "A", Intensity: 4})
	_, _ = svc.RecordPain(ctx, PainEntry{Name: "", Intensity: 4})
	if got := promtest.ToFloat64(rec.results.WithLabelValues("record_pain", "success")); got != 1 {
		t.Fatalf("expected one success, got %v", got)
	}
	if got := promtest.ToFloat64(rec.results.WithLabelValues("record_pain", "error")); got != 1 {
		t.Fatalf("expected one error, got %v", got)
	}
	if n := promtest.CollectAndCount(rec.duration); n != 1 {
		t.Fatalf("expected one histogram series, got %d", n)
	}
}

func TestJSONTracerRecordsSpans(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)
	svc, _ := newTestService(t, WithTracer(tracer))
	ctx := context.Background()
	_, _ = svc.RecordPain(ctx, PainEntry{Name: "A", Intensity: 4})
	_, _ = svc.RecordPain(ctx, PainEntry{Name: "A", Intensity: 40})
	entries := tracer.Entries()
	if len(entries) != 2 || entries[0].Status != "success" || entries[1].Status != "error" || entries[1].Error == "" {
		t.Fatalf("unexpected spans %+v", entries)
	}
	if strings.Count(buf.String(), "\n") != 2 || !strings.Contains(buf.String(), `"operation":"record_pain"`) {
		t.Fatalf("unexpected trace output %q", buf.String())
	}
}
