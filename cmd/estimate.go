package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/capital-stats/percapita/internal/model"
	"github.com/capital-stats/percapita/internal/output"
	"github.com/capital-stats/percapita/internal/percapita"
)

var estimateCmd = &cobra.Command{
	Use:   "estimate <region> <year> [year...]",
	Short: "Print the interpolated population of a region at the given years",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		years, err := parseYears(args[1:])
		if err != nil {
			return err
		}

		src := newSource(cfg)
		population, err := src.Population(ctx, cfg.AssetPath(cfg.Assets.Population))
		if err != nil {
			return eris.Wrap(err, "load population")
		}

		values, err := estimateRegion(population, args[0], years)
		if err != nil {
			return err
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(values)
		}
		formatEstimates(os.Stdout, values)
		return nil
	},
}

func parseYears(args []string) ([]int, error) {
	years := make([]int, len(args))
	for i, a := range args {
		y, err := strconv.Atoi(a)
		if err != nil {
			return nil, eris.Errorf("invalid year %q", a)
		}
		years[i] = y
	}
	return years, nil
}

// estimateRegion evaluates one region's interpolant at years, in order.
func estimateRegion(population []model.RawPopulation, region string, years []int) ([]output.YearValue, error) {
	for _, raw := range population {
		if raw.Region != region {
			continue
		}
		interp, err := percapita.Interpolant(raw, cfg.Pipeline.MinYear, cfg.Pipeline.MaxYear)
		if err != nil {
			return nil, eris.Wrapf(err, "region %s", region)
		}
		pops, err := interp.EvalAll(years)
		if err != nil {
			return nil, eris.Wrapf(err, "region %s", region)
		}
		out := make([]output.YearValue, len(years))
		for i, y := range years {
			out[i] = output.YearValue{Year: y, Value: pops[i]}
		}
		return out, nil
	}
	return nil, eris.Errorf("region %s not found in population table", region)
}

func formatEstimates(out io.Writer, values []output.YearValue) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "YEAR\tPOPULATION")
	for _, v := range values {
		_, _ = fmt.Fprintf(w, "%d\t%.1f\n", v.Year, v.Value)
	}
	_ = w.Flush()
}

func init() {
	estimateCmd.Flags().Bool("json", false, "print JSON instead of a table")
	rootCmd.AddCommand(estimateCmd)
}
