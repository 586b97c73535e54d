// Package app builds the askdocs server command.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kart-io/askdocs/internal/assistant"
)

const commandDesc = `The askdocs service answers questions over an internal knowledge base.

It routes each query to a tool (question answering or issue
summarization), retrieves supporting chunks from the vector store, and
generates an answer through an ordered LLM fallback chain with sources
and a confidence score.`

// NewServerCommand creates the askdocs root command.
func NewServerCommand() *cobra.Command {
	opts := assistant.NewOptions()

	cmd := &cobra.Command{
		Use:           assistant.Name,
		Short:         "Query routing and retrieval-augmented answering service",
		Long:          commandDesc,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadConfig(cmd, opts); err != nil {
				return err
			}
			if err := opts.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			ctx := SetupSignalContext()
			server, err := assistant.NewServer(ctx, opts)
			if err != nil {
				return fmt.Errorf("creating server: %w", err)
			}
			return server.Run(ctx)
		},
	}

	opts.AddFlags(cmd.Flags())
	cmd.Flags().StringP("config", "c", "", "Path to the configuration file (YAML).")
	return cmd
}

// loadConfig merges, in precedence order: flags, environment variables
// with the ASKDOCS_ prefix, and the configuration file.
func loadConfig(cmd *cobra.Command, opts *assistant.Options) error {
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

	return v.Unmarshal(opts)
}

// SetupSignalContext returns a context cancelled on SIGINT or SIGTERM.
// A second signal exits immediately.
func SetupSignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		cancel()
		<-c
		os.Exit(1)
	}()
	return ctx
}
