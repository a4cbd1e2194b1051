// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-harvest/internal/normalize"
)

var parseCmd = &cobra.Command{
	Use:   "parse",
	Short: "Normalize catalog listings into the record file",
	Long: `Parse reads every listing under <catalog-dir>/{ICDE,SIGMOD,VLDB}_PAPER/
and writes one JSON record per paper to the record file, replacing it.`,
	RunE: runParse,
}

func init() {
	parseCmd.Flags().String("catalog-dir", "catalog", "directory with catalog listings")
	parseCmd.Flags().String("records", "papers.jsonl", "output JSON-lines record file")

	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	if err := bindFlags(cmd, map[string]string{
		"catalog.dir":  "catalog-dir",
		"records.file": "records",
	}); err != nil {
		return err
	}

	outPath := viper.GetString("records.file")
	tmp := outPath + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating %s: %w", tmp, err)
	}
	defer os.Remove(tmp)

	bw := bufio.NewWriter(f)
	res, err := normalize.NormalizeDir(viper.GetString("catalog.dir"), bw, os.Stdout)
	if err == nil {
		err = bw.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, outPath); err != nil {
		return fmt.Errorf("renaming %s: %w", tmp, err)
	}

	fmt.Fprintf(os.Stdout, "records: %s\n", outPath)
	if res.Files == 0 {
		return fmt.Errorf("no catalog listings found under %s", viper.GetString("catalog.dir"))
	}
	return nil
}
