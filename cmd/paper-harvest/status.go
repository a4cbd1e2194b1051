// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-harvest/internal/ledger"
	"github.com/pdiddy/paper-harvest/pkg/types"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show acquisition outcomes from the ledger",
	Long: `Status prints the outcome counts recorded in the acquisition ledger and,
with --list, the individual outcomes. Use --status exhausted to see which
records keep failing.`,
	RunE: runStatus,
}

func init() {
	f := statusCmd.Flags()
	f.String("ledger", ledger.DefaultPath, "acquisition ledger database")
	f.String("conference", "", "filter by conference")
	f.Int("year", 0, "filter by year")
	f.String("status", "", "filter by status: downloaded, skipped, exhausted")
	f.Bool("list", false, "list individual outcomes")
	f.Int("limit", 0, "maximum outcomes to list")
	f.Int("runs", 5, "number of recent runs to show")
	f.String("format", "text", "output format: text, json, yaml")

	rootCmd.AddCommand(statusCmd)
}

type statusReport struct {
	Counts   map[types.OutcomeStatus]int `json:"counts" yaml:"counts"`
	Runs     []ledger.Run                `json:"runs" yaml:"runs"`
	Outcomes []types.AcquisitionOutcome  `json:"outcomes,omitempty" yaml:"outcomes,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	if err := bindFlags(cmd, map[string]string{"ledger.path": "ledger"}); err != nil {
		return err
	}

	var filter ledger.Filter
	if name, _ := cmd.Flags().GetString("conference"); name != "" {
		conf, err := types.ParseConference(name)
		if err != nil {
			return err
		}
		filter.Conference = conf
	}
	filter.Year, _ = cmd.Flags().GetInt("year")
	if s, _ := cmd.Flags().GetString("status"); s != "" {
		switch st := types.OutcomeStatus(s); st {
		case types.StatusDownloaded, types.StatusSkipped, types.StatusExhausted:
			filter.Status = st
		default:
			return fmt.Errorf("unknown status %q", s)
		}
	}
	filter.Limit, _ = cmd.Flags().GetInt("limit")

	path := viper.GetString("ledger.path")
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("no ledger at %s: run acquire first", path)
	}
	led, err := ledger.Open(path)
	if err != nil {
		return err
	}
	defer led.Close()

	ctx := cmd.Context()
	var rep statusReport
	if rep.Counts, err = led.Counts(ctx, filter); err != nil {
		return err
	}
	nRuns, _ := cmd.Flags().GetInt("runs")
	if rep.Runs, err = led.Runs(ctx, nRuns); err != nil {
		return err
	}
	list, _ := cmd.Flags().GetBool("list")
	if list || filter.Status != "" {
		if rep.Outcomes, err = led.Query(ctx, filter); err != nil {
			return err
		}
	}

	format, _ := cmd.Flags().GetString("format")
	return writeStatus(os.Stdout, rep, format)
}

func writeStatus(w io.Writer, rep statusReport, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(rep)
	case "text":
	default:
		return fmt.Errorf("unknown format %q", format)
	}

	fmt.Fprintf(w, "downloaded: %d\nskipped:    %d\nexhausted:  %d\n",
		rep.Counts[types.StatusDownloaded], rep.Counts[types.StatusSkipped], rep.Counts[types.StatusExhausted])

	if len(rep.Runs) > 0 {
		fmt.Fprintln(w, "\nRecent runs:")
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "RUN\tSTARTED\tRECORDS\tDOWNLOADED\tSKIPPED\tEXHAUSTED\tSTOPPED")
		for _, r := range rep.Runs {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%v\n", r.ID[:8], r.StartedAt.Local().Format("2006-01-02 15:04"),
				r.Records, r.Downloaded, r.Skipped, r.Exhausted, r.Stopped)
		}
		tw.Flush()
	}

	if len(rep.Outcomes) > 0 {
		fmt.Fprintln(w, "\nOutcomes:")
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "STATUS\tVENUE\tKEY\tATTEMPTS\tDETAIL")
		for _, o := range rep.Outcomes {
			detail := o.Path
			if o.Status == types.StatusExhausted {
				detail = o.LastError
			}
			fmt.Fprintf(tw, "%s\t%s %d\t%s\t%d\t%s\n", o.Status, o.Conference, o.Year, o.RecordKey, o.Attempts, detail)
		}
		tw.Flush()
	}
	return nil
}
