// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-harvest/internal/acquire"
	"github.com/pdiddy/paper-harvest/internal/ledger"
	"github.com/pdiddy/paper-harvest/internal/records"
	"github.com/pdiddy/paper-harvest/pkg/types"
)

var acquireCmd = &cobra.Command{
	Use:   "acquire",
	Short: "Download PDFs for catalog records from the mirror network",
	Long: `Acquire reads the record file and, one record at a time, asks randomly
chosen mirrors for the paper's landing page, finds the PDF link on it and
saves the validated PDF under <base-dir>/<CONFERENCE>/<YEAR>/. Records whose
PDF already exists are skipped without any network traffic, so interrupted
runs can simply be restarted. Ctrl-C stops after the current record.`,
	RunE: runAcquire,
}

func init() {
	def := types.DefaultAcquisitionConfig()
	f := acquireCmd.Flags()
	f.String("records", "papers.jsonl", "JSON-lines record file")
	f.String("conference", "", "only acquire this conference (ICDE, SIGMOD, VLDB)")
	f.Int("year", 0, "only acquire this year")
	f.StringSlice("mirror", nil, "mirror base URL (repeatable)")
	f.Int("max-attempts", def.MaxAttempts, "attempts per record")
	f.Duration("timeout", def.Timeout, "per-request timeout")
	f.Float64("rps", def.RequestsPerSecond, "maximum requests per second to the mirror network (0 = unlimited)")
	f.String("base-dir", def.BaseDir, "artifact root directory")
	f.String("user-agent", def.UserAgent, "User-Agent header")
	f.String("ledger", ledger.DefaultPath, "acquisition ledger database")
	f.Bool("no-ledger", false, "do not record outcomes in the ledger")
	f.String("report", "", "write a YAML run report to this file")

	rootCmd.AddCommand(acquireCmd)
}

// acquireKeys maps config keys onto acquire flags.
var acquireKeys = map[string]string{
	"records.file":                "records",
	"acquire.mirrors":             "mirror",
	"acquire.max_attempts":        "max-attempts",
	"acquire.timeout":             "timeout",
	"acquire.requests_per_second": "rps",
	"acquire.base_dir":            "base-dir",
	"acquire.user_agent":          "user-agent",
	"ledger.path":                 "ledger",
}

func acquisitionConfig() types.AcquisitionConfig {
	cfg := types.DefaultAcquisitionConfig()
	cfg.Mirrors = splitList(viper.GetStringSlice("acquire.mirrors"))
	cfg.MaxAttempts = viper.GetInt("acquire.max_attempts")
	cfg.Timeout = viper.GetDuration("acquire.timeout")
	cfg.RequestsPerSecond = viper.GetFloat64("acquire.requests_per_second")
	cfg.BaseDir = viper.GetString("acquire.base_dir")
	cfg.UserAgent = viper.GetString("acquire.user_agent")
	return cfg
}

func recordFilter(cmd *cobra.Command) (records.Filter, error) {
	var f records.Filter
	if name, _ := cmd.Flags().GetString("conference"); name != "" {
		conf, err := types.ParseConference(name)
		if err != nil {
			return f, err
		}
		f.Conference = conf
	}
	f.Year, _ = cmd.Flags().GetInt("year")
	return f, nil
}

func runAcquire(cmd *cobra.Command, args []string) error {
	if err := bindFlags(cmd, acquireKeys); err != nil {
		return err
	}
	cfg := acquisitionConfig()
	filter, err := recordFilter(cmd)
	if err != nil {
		return err
	}

	store, err := records.Load(viper.GetString("records.file"))
	if err != nil {
		return err
	}
	recs := store.Select(filter)

	client, err := newHTTPClient(logger)
	if err != nil {
		return err
	}

	opts := []acquire.Option{acquire.WithLogger(logger.With("component", "acquire"))}

	var (
		led   *ledger.Ledger
		runID string
	)
	if noLedger, _ := cmd.Flags().GetBool("no-ledger"); !noLedger {
		led, err = ledger.Open(viper.GetString("ledger.path"))
		if err != nil {
			return err
		}
		defer led.Close()
		opts = append(opts, acquire.WithRecorder(led))
	}

	engine, err := acquire.New(cfg, client, opts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if led != nil {
		runID, err = led.BeginRun(ctx, len(recs))
		if err != nil {
			logger.Warn("ledger unavailable, continuing without run record", "error", err)
		}
	}

	fmt.Fprintf(os.Stdout, "acquiring %d record(s) via %d mirror(s)\n", len(recs), len(cfg.Mirrors))
	sum, runErr := engine.Run(ctx, recs, os.Stdout)

	if led != nil && runID != "" {
		totals := ledger.RunTotals{
			Downloaded: sum.Downloaded,
			Skipped:    sum.Skipped,
			Exhausted:  sum.Exhausted,
			Ineligible: sum.Ineligible,
			Stopped:    sum.Stopped,
		}
		if err := led.FinishRun(context.WithoutCancel(ctx), runID, totals); err != nil {
			logger.Warn("could not finish ledger run", "run", runID, "error", err)
		}
	}

	if path, _ := cmd.Flags().GetString("report"); path != "" {
		if err := acquire.WriteReport(sum, path); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		fmt.Fprintf(os.Stdout, "report: %s\n", path)
	}

	switch {
	case errors.Is(runErr, context.Canceled):
		return fmt.Errorf("stopped by signal after %d record(s)", len(sum.Outcomes)+sum.Ineligible)
	case runErr != nil:
		return runErr
	case sum.HasFailures():
		return fmt.Errorf("%d record(s) exhausted all attempts", sum.Exhausted)
	}
	return nil
}
