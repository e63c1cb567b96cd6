// Package core implements the tracker service: validated pain and medication
// submissions over two tabular stores, filtered views, intensity series and
// dose totals.
package core

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"schmerzverlauf/internal/chart"
	"schmerzverlauf/internal/dosage"
	"schmerzverlauf/internal/table"
)

// Clock supplies the current time for defaulted entry timestamps.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetricsRecorder reports operation outcomes to m.
func WithMetricsRecorder(m MetricsRecorder) ServiceOption {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithTracer wraps each operation in a span from t.
func WithTracer(t Tracer) ServiceOption {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithClock overrides the time source.
func WithClock(c Clock) ServiceOption {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithMatchMode sets the name matching used when a Filter leaves Match empty.
func WithMatchMode(m table.MatchMode) ServiceOption {
	return func(s *Service) {
		if m != "" {
			s.match = m
		}
	}
}

// Filter selects rows by patient name. An empty Name selects every row; an
// empty Match uses the service default.
type Filter struct {
	Name  string
	Match table.MatchMode
}

// Series is a pain intensity series with its summary.
type Series struct {
	Points  []chart.Point `json:"points"`
	Summary chart.Summary `json:"summary"`
}

// Service exposes the tracker operations. Each submission is one
// load, append, persist cycle on the backing store; concurrent submissions
// to the same table can lose updates.
type Service struct {
	pain    *table.Store
	meds    *table.Store
	logger  *zap.Logger
	metrics MetricsRecorder
	tracer  Tracer
	clock   Clock
	match   table.MatchMode
}

// NewService constructs a service over the pain and medication stores.
func NewService(pain, meds *table.Store, opts ...ServiceOption) *Service {
	s := &Service{
		pain:    pain,
		meds:    meds,
		logger:  zap.NewNop(),
		metrics: noopMetrics{},
		tracer:  noopTracer{},
		clock:   ClockFunc(time.Now),
		match:   table.MatchExact,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MatchMode returns the default name matching mode.
func (s *Service) MatchMode() table.MatchMode { return s.match }

// Now returns the service clock reading.
func (s *Service) Now() time.Time { return s.clock.Now() }

// Store returns the store backing kind.
func (s *Service) Store(kind Kind) (*table.Store, error) {
	switch kind {
	case KindPain:
		return s.pain, nil
	case KindMedication:
		return s.meds, nil
	default:
		return nil, fmt.Errorf("unknown table %q", kind)
	}
}

func (s *Service) run(ctx context.Context, op string, fn func(context.Context) error) error {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, op)
	err := fn(ctx)
	span.End(err)
	elapsed := time.Since(start)
	s.metrics.Observe(ctx, op, err == nil, elapsed)
	if err != nil {
		s.logger.Warn("operation failed", zap.String("op", op), zap.Duration("duration", elapsed), zap.Error(err))
		return err
	}
	s.logger.Debug("operation completed", zap.String("op", op), zap.Duration("duration", elapsed))
	return nil
}

// RecordPain validates and appends one pain entry, returning the stored row.
func (s *Service) RecordPain(ctx context.Context, e PainEntry) (table.Record, error) {
	var rec table.Record
	err := s.run(ctx, "record_pain", func(ctx context.Context) error {
		var err error
		if rec, err = e.record(s.clock.Now()); err != nil {
			return err
		}
		_, err = s.pain.Append(ctx, rec)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("pain entry recorded", zap.String("date", rec[ColDate]), zap.String("intensity", rec[ColIntensity]))
	return rec, nil
}

// RecordMedication validates and appends one medication entry.
func (s *Service) RecordMedication(ctx context.Context, e MedicationEntry) (table.Record, error) {
	var rec table.Record
	err := s.run(ctx, "record_medication", func(ctx context.Context) error {
		var err error
		if rec, err = e.record(s.clock.Now()); err != nil {
			return err
		}
		_, err = s.meds.Append(ctx, rec)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("medication entry recorded", zap.String("date", rec[ColDate]), zap.String("medication", rec[ColDrug]))
	return rec, nil
}

// Pain loads the pain table filtered by f.
func (s *Service) Pain(ctx context.Context, f Filter) (table.Table, error) {
	return s.view(ctx, "list_pain", s.pain, f)
}

// Medications loads the medication table filtered by f.
func (s *Service) Medications(ctx context.Context, f Filter) (table.Table, error) {
	return s.view(ctx, "list_medication", s.meds, f)
}

// Table loads kind filtered by f.
func (s *Service) Table(ctx context.Context, kind Kind, f Filter) (table.Table, error) {
	store, err := s.Store(kind)
	if err != nil {
		return table.Table{}, err
	}
	return s.view(ctx, "list_"+string(kind), store, f)
}

func (s *Service) view(ctx context.Context, op string, store *table.Store, f Filter) (table.Table, error) {
	var out table.Table
	err := s.run(ctx, op, func(ctx context.Context) error {
		mode := f.Match
		if mode == "" {
			mode = s.match
		}
		out = store.Load(ctx).Filter(f.Name, mode)
		return nil
	})
	return out, err
}

// PainSeries returns the date-ordered intensity series for f.
func (s *Service) PainSeries(ctx context.Context, f Filter) (Series, error) {
	t, err := s.Pain(ctx, f)
	if err != nil {
		return Series{}, err
	}
	points := chart.Series(t, chart.DefaultOptions())
	return Series{Points: points, Summary: chart.Summarize(points)}, nil
}

// DoseTotals sums medication doses per day for f.
func (s *Service) DoseTotals(ctx context.Context, f Filter) ([]dosage.Total, error) {
	t, err := s.Medications(ctx, f)
	if err != nil {
		return nil, err
	}
	return dosage.DailyTotals(t), nil
}

// Clear empties one table, keeping its schema.
func (s *Service) Clear(ctx context.Context, kind Kind) error {
	store, err := s.Store(kind)
	if err != nil {
		return err
	}
	err = s.run(ctx, "clear_"+string(kind), store.Clear)
	if err == nil {
		s.logger.Info("table cleared", zap.String("table", store.Name()))
	}
	return err
}
