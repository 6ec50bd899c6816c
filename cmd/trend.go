package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/capital-stats/percapita/internal/census"
	"github.com/capital-stats/percapita/internal/output"
)

const trendBaseName = "population_trend"

var trendCmd = &cobra.Command{
	Use:   "trend",
	Short: "Export every capital's census population series",
	Long:  "Writes the parsed census readings of each capital (region x census year) joined with capital names, for plotting population growth.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		format, err := outputFormat(cmd)
		if err != nil {
			return err
		}
		minYear, _ := cmd.Flags().GetInt("min-year")
		maxYear, _ := cmd.Flags().GetInt("max-year")
		if maxYear != 0 && maxYear < minYear {
			return eris.Errorf("max-year %d is before min-year %d", maxYear, minYear)
		}

		env := &pipelineEnv{Source: newSource(cfg)}
		population, err := env.Source.Population(ctx, cfg.AssetPath(cfg.Assets.Population))
		if err != nil {
			return eris.Wrap(err, "load population")
		}

		table, err := census.PopulationTable(population, minYear, maxYear)
		if err != nil {
			return err
		}
		names := env.loadNames(ctx, population)

		path, _ := cmd.Flags().GetString("output")
		if path == "" {
			path = cfg.OutputPath(output.FileName(trendBaseName, format))
		}
		if err := output.WriteFile(path, table, output.Options{Format: format, Names: names}); err != nil {
			return eris.Wrap(err, "write trend")
		}

		zap.L().Info("trend written",
			zap.String("path", path),
			zap.Int("regions", table.Len()),
			zap.Int("years", len(table.Years())),
		)
		_, _ = fmt.Fprintf(os.Stderr, "Written: %s (%d regions)\n", path, table.Len())
		return nil
	},
}

func init() {
	trendCmd.Flags().String("format", "", "output format: csv, xlsx, json, yaml (default from config)")
	trendCmd.Flags().StringP("output", "o", "", "output file (default <outputs-dir>/population_trend.<ext>)")
	trendCmd.Flags().Int("min-year", census.DefaultTrendMinYear, "first census year exported")
	trendCmd.Flags().Int("max-year", census.DefaultTrendMaxYear, "last census year exported")
	rootCmd.AddCommand(trendCmd)
}
