package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/capital-stats/percapita/internal/output"
	"github.com/capital-stats/percapita/internal/percapita"
)

const estimatesBaseName = "population_estimates"

var computeCmd = &cobra.Command{
	Use:   "compute",
	Short: "Compute per-capita rates and write them to the outputs directory",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := applyPipelineFlags(cmd); err != nil {
			return err
		}
		format, err := outputFormat(cmd)
		if err != nil {
			return err
		}

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		c, err := env.compute(ctx)
		if err != nil {
			return err
		}

		path, _ := cmd.Flags().GetString("output")
		if path == "" {
			path = cfg.OutputPath(output.FileName(output.DefaultBaseName, format))
		}
		opts := output.Options{Format: format, Names: c.Names}
		if err := output.WriteFile(path, c.Result.Rates, opts); err != nil {
			return eris.Wrap(err, "write rates")
		}

		if withEstimates, _ := cmd.Flags().GetBool("estimates"); withEstimates {
			estPath := cfg.OutputPath(output.FileName(estimatesBaseName, format))
			if err := output.WriteFile(estPath, c.Result.Estimates, opts); err != nil {
				return eris.Wrap(err, "write estimates")
			}
		}

		printSummary(os.Stderr, path, c)
		return nil
	},
}

// applyPipelineFlags overrides pipeline settings with any flags the user set.
func applyPipelineFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()
	if flags.Changed("min-year") {
		cfg.Pipeline.MinYear, _ = flags.GetInt("min-year")
	}
	if flags.Changed("max-year") {
		cfg.Pipeline.MaxYear, _ = flags.GetInt("max-year")
	}
	if flags.Changed("policy") {
		cfg.Pipeline.OnRegionError, _ = flags.GetString("policy")
	}
	if flags.Changed("rate-scale") {
		cfg.Pipeline.RateScale, _ = flags.GetFloat64("rate-scale")
	}
	if flags.Changed("concurrency") {
		cfg.Pipeline.Concurrency, _ = flags.GetInt("concurrency")
	}
	return cfg.Validate()
}

// outputFormat resolves --format, falling back to outputs.format.
func outputFormat(cmd *cobra.Command) (output.Format, error) {
	name, _ := cmd.Flags().GetString("format")
	if name == "" {
		name = cfg.Outputs.Format
	}
	return output.ParseFormat(name)
}

func printSummary(w io.Writer, path string, c *computation) {
	s := c.Result.Summary()
	if c.RunID != "" {
		_, _ = fmt.Fprintf(w, "Run:      %s\n", c.RunID)
	}
	_, _ = fmt.Fprintf(w, "Regions:  %d\n", s.Regions)
	_, _ = fmt.Fprintf(w, "Skipped:  %d\n", s.Skipped)
	_, _ = fmt.Fprintf(w, "Failed:   %d\n", s.Failed)
	for _, f := range c.Result.Failed {
		_, _ = fmt.Fprintf(w, "  %s: %v\n", f.Region, f.Err)
	}
	_, _ = fmt.Fprintf(w, "Written:  %s\n", path)
}

func init() {
	computeCmd.Flags().String("format", "", "output format: csv, xlsx, json, yaml (default from config)")
	computeCmd.Flags().StringP("output", "o", "", "output file (default <outputs-dir>/homicides_per_capita.<ext>)")
	computeCmd.Flags().Bool("estimates", false, "also write the interpolated population table")
	computeCmd.Flags().Int("min-year", percapita.DefaultMinYear, "first census year used for interpolation")
	computeCmd.Flags().Int("max-year", percapita.DefaultMaxYear, "last census year used for interpolation (0 = no limit)")
	computeCmd.Flags().String("policy", "abort", "what a failed region does to the run: abort or continue")
	computeCmd.Flags().Float64("rate-scale", 1, "multiplier applied to every rate (100000 = per 100k)")
	computeCmd.Flags().Int("concurrency", 4, "regions processed in parallel")
	rootCmd.AddCommand(computeCmd)
}
