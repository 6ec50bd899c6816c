package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/capital-stats/percapita/internal/config"
)

var cfg *config.Config

var (
	assetsDir  string
	outputsDir string
)

var rootCmd = &cobra.Command{
	Use:   "percapita",
	Short: "Per-capita incident rates for Brazilian state capitals",
	Long:  "Interpolates census population between census years and divides yearly incident counts by the estimate for every capital.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		applyDirFlags(cmd, c)
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("validate config: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// applyDirFlags lets --assets-dir and --outputs-dir override the loaded config.
func applyDirFlags(cmd *cobra.Command, c *config.Config) {
	if f := cmd.Flags().Lookup("assets-dir"); f != nil && f.Changed {
		c.Assets.Dir = assetsDir
	}
	if f := cmd.Flags().Lookup("outputs-dir"); f != nil && f.Changed {
		c.Outputs.Dir = outputsDir
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&assetsDir, "assets-dir", "assets", "directory holding the input tables")
	rootCmd.PersistentFlags().StringVar(&outputsDir, "outputs-dir", "outputs", "directory results are written to")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
