package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/ppdb-map-api/internal/convert"
	"github.com/noah-isme/ppdb-map-api/internal/repository"
	"github.com/noah-isme/ppdb-map-api/internal/service"
	"github.com/noah-isme/ppdb-map-api/pkg/config"
	"github.com/noah-isme/ppdb-map-api/pkg/logger"
)

type options struct {
	input    string
	output   string
	sheet    string
	check    bool
	logLevel string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "ppdb-convert",
		Short: "Convert the PPDB admission spreadsheet to the dashboard JSON dataset",
		Long: `Reads an .xlsx (or .csv) export of admission rows and writes it as a JSON array.
Cells are copied as-is: blank cells become null, nothing is filled in.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&opts.input, "input", "i", "data/ppdb.xlsx", "spreadsheet to read (.xlsx or .csv)")
	flags.StringVarP(&opts.output, "output", "o", "public/ppdb.json", "JSON dataset to write")
	flags.StringVar(&opts.sheet, "sheet", "", "worksheet name (default: first sheet)")
	flags.BoolVar(&opts.check, "check", true, "load the written dataset and report dropped rows")
	flags.StringVar(&opts.logLevel, "log-level", "info", "log level")
	return cmd
}

func run(ctx context.Context, opts *options) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logr, err := logger.New(&config.Config{Env: config.EnvDevelopment, Log: config.LogConfig{Level: opts.logLevel, Format: "console"}})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logr.Sync() //nolint:errcheck

	rows, err := convert.Convert(opts.input, opts.output, opts.sheet)
	if err != nil {
		logr.Error("convert failed", zap.String("input", opts.input), zap.Error(err))
		return err
	}
	logr.Info("convert finished", zap.String("input", opts.input), zap.String("output", opts.output), zap.Int("rows", rows))

	if !opts.check {
		return nil
	}
	loader := service.NewDatasetLoader(repository.NewAdmissionFileRepository(opts.output), config.CoordinatePolicyDrop, nil, logr)
	dataset, err := loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("check %s: %w", opts.output, err)
	}
	logr.Info("dataset check passed",
		zap.Int("records", dataset.Len()),
		zap.Int("dropped", dataset.Dropped),
	)
	return nil
}
