package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/outreach-agent/internal/config"
	"github.com/jonathan/outreach-agent/internal/db"
	"github.com/jonathan/outreach-agent/internal/export"
	"github.com/jonathan/outreach-agent/internal/observability"
	"github.com/jonathan/outreach-agent/internal/pipeline"
	"github.com/jonathan/outreach-agent/internal/types"
)

var leadsCommand = &cobra.Command{
	Use:   "leads",
	Short: "Inspect, export or clear the stored lead table",
}

var leadsListCommand = &cobra.Command{
	Use:   "list",
	Short: "Print stored leads, newest first, with summary metrics",
	RunE:  runLeadsList,
}

var leadsExportCommand = &cobra.Command{
	Use:   "export",
	Short: "Write the full lead table as CSV",
	Long:  `Writes every stored lead as UTF-8 CSV. Without --out the file is named leads_export_YYYYMMDD_HHMMSS.csv; use --out - for stdout.`,
	RunE:  runLeadsExport,
}

var leadsClearCommand = &cobra.Command{
	Use:   "clear",
	Short: "Delete every stored lead",
	RunE:  runLeadsClear,
}

var (
	leadsStore storeFlags
	exportOut    string
	exportLegacy bool
	clearYes   bool
)

// errNotConfirmed is returned by clear without --yes.
var errNotConfirmed = errors.New("refusing to clear leads without --yes")

func init() {
	for _, c := range []*cobra.Command{leadsListCommand, leadsExportCommand, leadsClearCommand} {
		leadsStore.register(c)
		leadsCommand.AddCommand(c)
	}
	leadsExportCommand.Flags().StringVarP(&exportOut, "out", "o", "", "Output file path, or - for stdout")
	leadsExportCommand.Flags().BoolVar(&exportLegacy, "legacy", false, "Use the single-draft layout (rating, email_draft)")
	leadsClearCommand.Flags().BoolVarP(&clearYes, "yes", "y", false, "Confirm deleting all leads")

	rootCmd.AddCommand(leadsCommand)
}

func openLeadStore(ctx context.Context, cmd *cobra.Command) (db.Store, *config.Config, error) {
	cfg, err := loadConfig(leadsStore.configPath, func(c *config.Config) { leadsStore.apply(cmd, c) })
	if err != nil {
		return nil, nil, err
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return store, cfg, nil
}

func openStore(ctx context.Context, cfg *config.Config) (db.Store, error) {
	store, err := pipeline.OpenStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open lead store: %w", err)
	}
	return store, nil
}

func runLeadsList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	store, cfg, err := openLeadStore(ctx, cmd)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	leads, err := store.LoadAll(ctx)
	if err != nil {
		return err
	}
	printer := observability.NewPrinter(stdout(cmd), cfg.Verbose)
	printer.PrintStats(types.SummarizeLeads(leads))
	if len(leads) == 0 {
		_, _ = fmt.Fprintln(stdout(cmd), "No leads stored.")
		return nil
	}
	printer.PrintLeads(leads)
	return nil
}

func runLeadsExport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	store, _, err := openLeadStore(ctx, cmd)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	leads, err := store.LoadAll(ctx)
	if err != nil {
		return err
	}

	write := export.WriteCSV
	if exportLegacy {
		write = export.WriteLegacyCSV
	}
	if exportOut == "-" {
		return write(stdout(cmd), leads)
	}
	path := exportOut
	if path == "" {
		path = export.Filename(time.Now())
	}
	if err := writeCSVFile(path, leads, write); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(stdout(cmd), "Exported %d leads to %s\n", len(leads), path)
	return nil
}

func writeCSVFile(path string, leads []types.Lead, write func(io.Writer, []types.Lead) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return write(f, leads)
}

func runLeadsClear(cmd *cobra.Command, _ []string) error {
	if !clearYes {
		return errNotConfirmed
	}
	ctx := cmd.Context()
	store, _, err := openLeadStore(ctx, cmd)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.Clear(ctx); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(stdout(cmd), "All leads deleted.")
	return nil
}
