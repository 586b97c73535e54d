// Package main is an offline batch ingestion tool for the askdocs
// knowledge base.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kart-io/askdocs/cmd/askdocs/app"
	"github.com/kart-io/askdocs/internal/assistant"
)

func main() {
	_ = godotenv.Load()

	if err := newIngestCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newIngestCommand() *cobra.Command {
	opts := assistant.NewOptions()

	cmd := &cobra.Command{
		Use:          "askdocs-ingest [files...]",
		Short:        "Chunk, embed and store documents into the knowledge base",
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			v.SetEnvPrefix("ASKDOCS")
			v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
			v.AutomaticEnv()
			if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
				v.SetConfigFile(cfgFile)
				if err := v.ReadInConfig(); err != nil {
					return fmt.Errorf("reading config file: %w", err)
				}
			}
			if err := v.Unmarshal(opts); err != nil {
				return err
			}
			if err := opts.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			ctx := app.SetupSignalContext()
			indexer, closer, err := assistant.NewIndexerFromOptions(ctx, opts)
			if err != nil {
				return err
			}
			defer closer()

			chunks, err := indexer.IngestPaths(ctx, args, 0, -1)
			if err != nil {
				return err
			}
			fmt.Printf("ingested %d documents (%d chunks)\n", len(args), chunks)
			return nil
		},
	}

	opts.AddFlags(cmd.Flags())
	cmd.Flags().StringP("config", "c", "", "Path to the configuration file (YAML).")
	return cmd
}
