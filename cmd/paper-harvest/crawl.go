// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-harvest/internal/catalog"
	"github.com/pdiddy/paper-harvest/pkg/types"
)

var crawlCmd = &cobra.Command{
	Use:   "crawl CONFERENCE FROM_YEAR [TO_YEAR]",
	Short: "Download per-year catalog listings for a conference",
	Long: `Crawl fetches the table of contents of each year in the range from the
dblp search API and stores one XML listing per year under
<catalog-dir>/<CONFERENCE>_PAPER/. VLDB years from 2008 on are fetched as
PVLDB volumes.`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runCrawl,
}

func init() {
	def := types.DefaultCatalogConfig()
	crawlCmd.Flags().String("catalog-dir", def.Dir, "directory for catalog listings")
	crawlCmd.Flags().Int("max-hits", def.MaxHits, "maximum entries requested per year")
	crawlCmd.Flags().Duration("timeout", def.Timeout, "per-request timeout")

	rootCmd.AddCommand(crawlCmd)
}

func runCrawl(cmd *cobra.Command, args []string) error {
	if err := bindFlags(cmd, map[string]string{"catalog.dir": "catalog-dir"}); err != nil {
		return err
	}

	conf, err := types.ParseConference(args[0])
	if err != nil {
		return err
	}
	from, to, err := parseYearRange(args[1:])
	if err != nil {
		return err
	}

	cfg := types.DefaultCatalogConfig()
	cfg.Dir = viper.GetString("catalog.dir")
	cfg.MaxHits, _ = cmd.Flags().GetInt("max-hits")
	cfg.Timeout, _ = cmd.Flags().GetDuration("timeout")

	client, err := newHTTPClient(logger)
	if err != nil {
		return err
	}
	crawler := catalog.NewCrawler(cfg, client, catalog.WithLogger(logger.With("component", "catalog")))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := crawler.FetchRange(ctx, conf, from, to, os.Stdout)
	if err != nil {
		return err
	}
	if res.Failed > 0 {
		return fmt.Errorf("%d year(s) failed", res.Failed)
	}
	return nil
}

func parseYearRange(args []string) (from, to int, err error) {
	if _, err := fmt.Sscan(args[0], &from); err != nil {
		return 0, 0, fmt.Errorf("invalid year %q", args[0])
	}
	to = from
	if len(args) > 1 {
		if _, err := fmt.Sscan(args[1], &to); err != nil {
			return 0, 0, fmt.Errorf("invalid year %q", args[1])
		}
	}
	if from > to {
		return 0, 0, fmt.Errorf("start year %d is after end year %d", from, to)
	}
	return from, to, nil
}
