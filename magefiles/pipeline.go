//go:build mage

package main

import (
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Pipeline groups targets that run the CLI stages with settings from the
// environment.
type Pipeline mg.Namespace

// Crawl fetches catalog listings: CONF, FROM and TO select the range.
func (Pipeline) Crawl() error {
	mg.Deps(Build)
	args := []string{"crawl", envOr("CONF", "ICDE"), envOr("FROM", "2020")}
	if to := os.Getenv("TO"); to != "" {
		args = append(args, to)
	}
	return sh.RunV(binPath(), args...)
}

// Parse normalizes every catalog listing into papers.jsonl.
func (Pipeline) Parse() error {
	mg.Deps(Build)
	return sh.RunV(binPath(), "parse")
}

// Acquire downloads PDFs for papers.jsonl. Mirrors come from the config
// file or PAPER_HARVEST_ACQUIRE_MIRRORS.
func (Pipeline) Acquire() error {
	mg.Deps(Build)
	return sh.RunV(binPath(), "acquire", "--report", "acquire-report.yaml")
}

// Embed generates metadata embeddings with the local Ollama server.
func (Pipeline) Embed() error {
	mg.Deps(Build)
	return sh.RunV(binPath(), "embed")
}

// Status prints the acquisition ledger summary.
func (Pipeline) Status() error {
	mg.Deps(Build)
	return sh.RunV(binPath(), "status")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
