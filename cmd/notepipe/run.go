package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"notepipe/internal/domain"
	"notepipe/internal/export"
)

var (
	dryRun     bool
	reportPath string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process every note waiting in the source folder once",
	RunE:  runOnce,
}

func init() {
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "run every stage but do not upload or move anything")
	runCmd.Flags().StringVar(&reportPath, "report", "", "write the run report to this .csv or .xlsx file, or a directory")
}

func runOnce(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pipeline, err := buildPipeline(context.Background(), cfg, log, dryRun)
	if err != nil {
		return err
	}

	report, runErr := pipeline.Run(ctx)
	if reportPath != "" && report != nil {
		if err := writeReport(reportPath, report); err != nil {
			log.Error("writing run report", zap.String("path", reportPath), zap.Error(err))
		}
	}
	if runErr != nil {
		return runErr
	}
	fmt.Fprintln(cmd.OutOrStdout(), report.Summary())
	if report.Failed() > 0 {
		log.Warn("some files failed; they stay in the source folder for the next run",
			zap.Int("failed", report.Failed()))
	}
	return nil
}

// writeReport saves report to path. A directory gets a generated CSV file name.
func writeReport(path string, report *domain.RunReport) error {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, export.BuildFilename(report.StartedAt, "csv"))
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		err = export.WriteXLSX(f, report)
	} else {
		err = export.WriteCSV(f, report)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}
