// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-harvest/internal/embedding"
	"github.com/pdiddy/paper-harvest/internal/records"
	"github.com/pdiddy/paper-harvest/internal/secrets"
)

var embedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Generate metadata embeddings for the record file",
	Long: `Embed builds a short text from each record's title, authors, conference
and venue, sends it to an Ollama embedding model and writes a JSON object
mapping each record's DOI (or catalog URL) to its vector.`,
	RunE: runEmbed,
}

func init() {
	embedCmd.Flags().String("records", "papers.jsonl", "JSON-lines record file")
	embedCmd.Flags().String("out", "paper_embeddings.json", "output JSON file")
	embedCmd.Flags().String("ollama-url", "", "Ollama endpoint (default from .secrets/ollama-url or "+embedding.DefaultOllamaURL+")")
	embedCmd.Flags().String("model", embedding.DefaultModel, "embedding model")
	embedCmd.Flags().Int("dimensions", embedding.DefaultDimensions, "expected vector length")

	rootCmd.AddCommand(embedCmd)
}

func runEmbed(cmd *cobra.Command, args []string) error {
	if err := bindFlags(cmd, map[string]string{
		"records.file":     "records",
		"embed.ollama_url": "ollama-url",
		"embed.model":      "model",
	}); err != nil {
		return err
	}

	store, err := records.Load(viper.GetString("records.file"))
	if err != nil {
		return err
	}

	dims, _ := cmd.Flags().GetInt("dimensions")
	provider := embedding.NewOllamaProvider(
		embedding.WithBaseURL(secretDefault(secrets.OllamaURL, viper.GetString("embed.ollama_url"))),
		embedding.WithModel(viper.GetString("embed.model")),
		embedding.WithDimensions(dims),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ok, err := provider.HasModel(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("model %s is not available; run: ollama pull %s", provider.ModelName(), provider.ModelName())
	}

	vectors, err := embedding.Generate(ctx, provider, store.All(), os.Stdout)
	if err != nil {
		return err
	}

	out, _ := cmd.Flags().GetString("out")
	if err := embedding.Save(out, vectors); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "saved:   %s (%d embeddings, %d dims)\n", out, len(vectors), provider.Dimensions())
	return nil
}
