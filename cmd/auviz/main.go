package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fexlab/auviz/internal/cleanup"
	"github.com/fexlab/auviz/internal/config"
	"github.com/fexlab/auviz/internal/logging"
	"github.com/fexlab/auviz/internal/pipeline"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	ctx := context.Background()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "auviz",
	Short: "auviz - Action Unit visualization toolkit",
	Long:  "Batch tooling for facial-expression research: renders per-frame AU heatmap videos from detector CSVs and tidies dataset directories.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Load config
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		// Initialize logging (console + append-mode log file)
		if err := logging.Init(verbose, cfg.LogFile); err != nil {
			return err
		}

		// Store config in context
		ctx := config.WithConfig(cmd.Context(), cfg)
		cmd.SetContext(ctx)

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(configCmd)
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render AU heatmap videos from detector CSVs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		pipe, err := pipeline.New(log.Logger, cfg)
		if err != nil {
			return err
		}

		stats, err := pipe.Run(cmd.Context())
		if err != nil {
			return err
		}

		if stats.Failed > 0 {
			return fmt.Errorf("%d of %d tasks failed", stats.Failed, stats.Total)
		}

		log.Info().
			Int("rendered", stats.Rendered).
			Int("skipped", stats.Skipped).
			Msg("render complete")

		return nil
	},
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete video-only recordings from the dataset",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		deleted, err := cleanup.Run(cfg, log.Logger)
		if err != nil {
			return err
		}

		fmt.Printf("%d files have been deleted\n", deleted)
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Config management commands",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}

		fmt.Print(string(data))
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
}
