package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"schmerzverlauf/internal/adapters/entries"
	"schmerzverlauf/internal/core"
	"schmerzverlauf/internal/table"
)

// withApp opens the tracker for the duration of fn.
func withApp(cmd *cobra.Command, opts *options, fn func(context.Context, *app) error) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := openApp(ctx, opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close storage: %w", cerr)
		}
	}()
	return fn(ctx, a)
}

type filterFlags struct {
	name  string
	match string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "only rows for this patient name")
	cmd.Flags().StringVar(&f.match, "match", "", "name matching: exact or contains (default from config)")
}

func (f *filterFlags) filter() (core.Filter, error) {
	if f.match == "" {
		return core.Filter{Name: f.name}, nil
	}
	mode, err := table.ParseMatchMode(f.match)
	if err != nil {
		return core.Filter{}, err
	}
	return core.Filter{Name: f.name, Match: mode}, nil
}

func newPainCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{Use: "pain", Short: "Record pain entries"}
	var entry core.PainEntry
	add := &cobra.Command{
		Use:   "add",
		Short: "Append one pain entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				rec, err := a.svc.RecordPain(ctx, entry)
				if err != nil {
					return describeSaveError(err)
				}
				return printRecord(opts, core.PainSchema, rec)
			})
		},
	}
	add.Flags().StringVar(&entry.Name, "name", "", "patient name")
	add.Flags().StringVar(&entry.Date, "date", "", "entry date, default today")
	add.Flags().StringVar(&entry.Time, "time", "", "clock time HH:MM, default now")
	add.Flags().IntVar(&entry.Intensity, "intensity", 0, "pain intensity 0-10")
	add.Flags().StringVar(&entry.Location, "location", "", "where it hurts")
	add.Flags().StringVar(&entry.Note, "note", "", "free text")
	_ = add.MarkFlagRequired("name")
	_ = add.MarkFlagRequired("intensity")
	cmd.AddCommand(add)
	return cmd
}

func newMedCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{Use: "med", Aliases: []string{"medication"}, Short: "Record medication intake"}
	var entry core.MedicationEntry
	add := &cobra.Command{
		Use:   "add",
		Short: "Append one medication entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				rec, err := a.svc.RecordMedication(ctx, entry)
				if err != nil {
					return describeSaveError(err)
				}
				return printRecord(opts, core.MedicationSchema, rec)
			})
		},
	}
	add.Flags().StringVar(&entry.Name, "name", "", "patient name")
	add.Flags().StringVar(&entry.Date, "date", "", "entry date, default today")
	add.Flags().StringVar(&entry.Time, "time", "", "clock time HH:MM, default now")
	add.Flags().StringVar(&entry.Medication, "medication", "", "drug name")
	add.Flags().StringVar(&entry.Dose, "dose", "", "dose such as 400 mg or 2x 500mg")
	add.Flags().StringVar(&entry.Note, "note", "", "free text")
	_ = add.MarkFlagRequired("name")
	_ = add.MarkFlagRequired("medication")
	cmd.AddCommand(add)
	return cmd
}

func describeSaveError(err error) error {
	if errors.Is(err, table.ErrPersist) {
		return fmt.Errorf("entry not saved: %w", err)
	}
	return err
}

func printRecord(opts *options, schema table.Schema, rec table.Record) error {
	t, err := table.New(schema).Append(rec)
	if err != nil {
		return err
	}
	return table.Encode(opts.stdout, t, table.Format{})
}

func newListCmd(opts *options) *cobra.Command {
	var (
		filter filterFlags
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "list pain|medication",
		Short: "Print a table, optionally filtered by name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := core.ParseKind(args[0])
			if err != nil {
				return err
			}
			f, err := filter.filter()
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				t, err := a.svc.Table(ctx, kind, f)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(opts, map[string]any{"columns": t.Schema().Names(), "rows": t.Rows(), "count": t.Len()})
				}
				store, err := a.svc.Store(kind)
				if err != nil {
					return err
				}
				return table.Encode(opts.stdout, t, store.Format())
			})
		},
	}
	filter.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of delimited text")
	return cmd
}

func newSeriesCmd(opts *options) *cobra.Command {
	var filter filterFlags
	cmd := &cobra.Command{
		Use:   "series",
		Short: "Print the pain intensity series with its summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := filter.filter()
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				series, err := a.svc.PainSeries(ctx, f)
				if err != nil {
					return err
				}
				return writeJSON(opts, series)
			})
		},
	}
	filter.register(cmd)
	return cmd
}

func newDosesCmd(opts *options) *cobra.Command {
	var filter filterFlags
	cmd := &cobra.Command{
		Use:   "doses",
		Short: "Print daily medication totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := filter.filter()
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				totals, err := a.svc.DoseTotals(ctx, f)
				if err != nil {
					return err
				}
				return writeJSON(opts, map[string]any{"totals": totals})
			})
		},
	}
	filter.register(cmd)
	return cmd
}

func newExportCmd(opts *options) *cobra.Command {
	var (
		filter  filterFlags
		format  string
		out     string
		archive bool
	)
	cmd := &cobra.Command{
		Use:   "export pain|medication",
		Short: "Render a table as csv, json, html or png",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := core.ParseKind(args[0])
			if err != nil {
				return err
			}
			f, err := filter.filter()
			if err != nil {
				return err
			}
			fmtValue, err := entries.ParseFormat(format)
			if err != nil {
				return err
			}
			req := entries.ExportRequest{Kind: kind, Filter: f, Format: fmtValue}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if archive {
					artifact, err := a.exports.Archive(ctx, req)
					if err != nil {
						return err
					}
					return writeJSON(opts, artifact)
				}
				rendered, err := a.exports.Render(ctx, req)
				if err != nil {
					return err
				}
				if out == "" || out == "-" {
					_, err = opts.stdout.Write(rendered.Payload)
					return err
				}
				if err := os.WriteFile(out, rendered.Payload, 0o600); err != nil {
					return fmt.Errorf("write export: %w", err)
				}
				_, err = fmt.Fprintf(opts.stdout, "wrote %s (%d bytes)\n", out, len(rendered.Payload))
				return err
			})
		},
	}
	filter.register(cmd)
	cmd.Flags().StringVar(&format, "format", "csv", "csv, json, html or png")
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file, default stdout")
	cmd.Flags().BoolVar(&archive, "archive", false, "store the export in the blob archive instead")
	return cmd
}

func newClearCmd(opts *options) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear pain|medication",
		Short: "Remove every row of a table, keeping its header",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := core.ParseKind(args[0])
			if err != nil {
				return err
			}
			if !yes {
				return errors.New("refusing to clear without --yes")
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if err := a.svc.Clear(ctx, kind); err != nil {
					return err
				}
				_, err := fmt.Fprintf(opts.stdout, "cleared %s\n", kind)
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the clear")
	return cmd
}

func newConfigCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Inspect the configuration"}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if cfg.Auth.Secret != "" {
				cfg.Auth.Secret = "********"
			}
			enc := yaml.NewEncoder(opts.stdout)
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	})
	return cmd
}

func writeJSON(opts *options, payload any) error {
	enc := json.NewEncoder(opts.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}
