// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the paper-harvest CLI: crawl venue
// catalogs, normalize them into paper records, acquire the PDFs from the
// mirror network, embed the metadata and inspect the acquisition ledger.
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-harvest/internal/logging"
	"github.com/pdiddy/paper-harvest/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// loadedSecrets holds values read from .secrets/ at startup.
	loadedSecrets map[string]string

	// logger receives advisory diagnostics on stderr.
	logger = logging.Discard()
)

// secretDefault returns fallback if set, otherwise the secret for key.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	return loadedSecrets[key]
}

var rootCmd = &cobra.Command{
	Use:   "paper-harvest",
	Short: "Collect database-conference papers from catalogs and mirrors",
	Long: `paper-harvest builds a local corpus of ICDE, SIGMOD and VLDB papers.

The pipeline is a sequence of subcommands: crawl downloads per-year catalog
listings, parse normalizes them into a JSON-lines record file, acquire
fetches the full-text PDFs from a mirror network, and embed turns the
records into vectors. status reports what the acquisition ledger knows.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = logging.New(viper.GetString("log.level"), os.Stderr)

		s, err := secrets.Load(secrets.DefaultDir, logger)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logger.Debug("loaded secrets", "keys", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./paper-harvest.yaml or ~/.config/paper-harvest/paper-harvest.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	// A .env file is optional; real environment variables win.
	_ = godotenv.Load()

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("paper-harvest")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "paper-harvest"))
		}
	}

	viper.SetEnvPrefix("PAPER_HARVEST")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// bindFlags binds config keys to the flags of the command being run. Keys
// shared by several subcommands are bound only when that subcommand runs.
func bindFlags(cmd *cobra.Command, keys map[string]string) error {
	for key, flag := range keys {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("binding %s: %w", key, err)
		}
	}
	return nil
}

// newHTTPClient returns a client that routes through the proxy-url secret
// when present, otherwise through the environment's proxy settings.
func newHTTPClient(log *slog.Logger) (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if raw := loadedSecrets[secrets.ProxyURL]; raw != "" {
		proxy, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s secret: %w", secrets.ProxyURL, err)
		}
		transport.Proxy = http.ProxyURL(proxy)
		log.Debug("using proxy from secrets", "host", proxy.Host)
	}
	return &http.Client{Transport: transport}, nil
}

// splitList flattens comma- or space-separated entries, which is how list
// values arrive from the environment.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ' ' }) {
			out = append(out, part)
		}
	}
	return out
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
