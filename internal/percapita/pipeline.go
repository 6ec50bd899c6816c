// Package percapita computes per-capita incident rates for every region by
// interpolating each region's census series at its incident years.
package percapita

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/capital-stats/percapita/internal/census"
	"github.com/capital-stats/percapita/internal/interpolate"
	"github.com/capital-stats/percapita/internal/model"
)

// ErrZeroPopulation is returned when an estimated population of zero would be
// used as a rate denominator.
var ErrZeroPopulation = eris.New("percapita: zero population")

// RegionError ties a failure to the region that produced it.
type RegionError struct {
	Region string
	Err    error
}

func (e *RegionError) Error() string {
	return fmt.Sprintf("percapita: region %s: %v", e.Region, e.Err)
}

func (e *RegionError) Unwrap() error { return e.Err }

// Input is what a run consumes: raw census rows and incident series, both
// keyed by region code.
type Input struct {
	Population []model.RawPopulation
	Incidents  map[string]model.IncidentSeries
}

// Result is what a run produces.
type Result struct {
	Rates     *model.PerCapitaTable
	Estimates *model.EstimateTable
	Names     map[string]string // region code -> name from the population table
	Skipped   []RegionError     // not enough census data to interpolate
	Failed    []RegionError     // recorded under PolicyContinue
}

// Summary returns the counts recorded with a run.
func (r *Result) Summary() model.RunSummary {
	return model.RunSummary{
		Regions: r.Rates.Len(),
		Skipped: len(r.Skipped),
		Failed:  len(r.Failed),
	}
}

// Pipeline computes per-capita rates.
type Pipeline struct {
	opts Options
}

// New creates a Pipeline. Zero fields in opts take their defaults.
func New(opts Options) *Pipeline {
	return &Pipeline{opts: opts.withDefaults()}
}

// Options returns the effective options.
func (p *Pipeline) Options() Options { return p.opts }

// Run processes every region present in both inputs. Under PolicyAbort a
// domain or malformed-input failure stops regions sorted after it and the
// failure of the lowest region code is returned as a *RegionError.
func (p *Pipeline) Run(ctx context.Context, in Input) (*Result, error) {
	log := zap.L().With(zap.String("component", "percapita"))
	start := time.Now()

	population := make(map[string]model.RawPopulation, len(in.Population))
	names := make(map[string]string, len(in.Population))
	for _, raw := range in.Population {
		population[raw.Region] = raw
		if raw.Name != "" {
			names[raw.Region] = raw.Name
		}
	}

	var regions []string
	for code := range population {
		if _, ok := in.Incidents[code]; ok {
			regions = append(regions, code)
		}
	}
	sort.Strings(regions)

	res := &Result{
		Rates:     model.NewRegionTable(),
		Estimates: model.NewRegionTable(),
		Names:     names,
	}

	var (
		mu        sync.Mutex
		processed atomic.Int64
		// index of the lowest-sorted region that failed under PolicyAbort
		firstFail atomic.Int64
	)
	firstFail.Store(int64(len(regions)))
	abortErrs := make([]*RegionError, len(regions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Concurrency)

	for i, code := range regions {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			// A lower region already failed; this one cannot change the outcome.
			if p.opts.OnRegionError == PolicyAbort && int64(i) > firstFail.Load() {
				return nil
			}

			rates, estimates, err := p.computeRegion(population[code], in.Incidents[code])
			processed.Add(1)

			switch {
			case err == nil:
				if len(rates) > 0 {
					res.Rates.Put(code, rates)
					res.Estimates.Put(code, estimates)
				}
				return nil

			case errors.Is(err, interpolate.ErrInsufficientData):
				log.Warn("region skipped", zap.String("region", code), zap.Error(err))
				mu.Lock()
				res.Skipped = append(res.Skipped, RegionError{Region: code, Err: err})
				mu.Unlock()
				return nil
			}

			rerr := &RegionError{Region: code, Err: err}
			if p.opts.OnRegionError == PolicyAbort {
				abortErrs[i] = rerr
				for {
					cur := firstFail.Load()
					if int64(i) >= cur || firstFail.CompareAndSwap(cur, int64(i)) {
						break
					}
				}
				return nil
			}
			log.Error("region failed", zap.String("region", code), zap.Error(err))
			mu.Lock()
			res.Failed = append(res.Failed, *rerr)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "percapita: run")
	}

	// Under PolicyAbort the reported failure is the lowest region code that
	// failed, whatever order the workers finished in.
	if idx := firstFail.Load(); idx < int64(len(regions)) {
		rerr := abortErrs[idx]
		log.Error("run aborted", zap.String("region", rerr.Region), zap.Error(rerr.Err))
		return nil, rerr
	}

	byRegion := func(a, b RegionError) int { return strings.Compare(a.Region, b.Region) }
	slices.SortFunc(res.Skipped, byRegion)
	slices.SortFunc(res.Failed, byRegion)

	log.Info("per-capita rates computed",
		zap.Int("regions", len(regions)),
		zap.Int64("processed", processed.Load()),
		zap.Int("rows", res.Rates.Len()),
		zap.Int("skipped", len(res.Skipped)),
		zap.Int("failed", len(res.Failed)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

// computeRegion returns the rate and estimate rows for one region.
func (p *Pipeline) computeRegion(raw model.RawPopulation, incidents model.IncidentSeries) (model.YearValues, model.YearValues, error) {
	interp, err := Interpolant(raw, p.opts.MinYear, p.opts.MaxYear)
	if err != nil {
		return nil, nil, err
	}

	years := incidents.Years()
	if len(years) == 0 {
		return nil, nil, nil
	}

	pops, err := interp.EvalAll(years)
	if err != nil {
		return nil, nil, err
	}

	rates := make(model.YearValues, len(years))
	estimates := make(model.YearValues, len(years))
	for i, year := range years {
		if !census.ValidCount(incidents[year]) {
			return nil, nil, eris.Wrapf(census.ErrInvalidCount, "percapita: year %d: %v", year, incidents[year])
		}
		pop := pops[i]
		if pop == 0 {
			return nil, nil, eris.Wrapf(ErrZeroPopulation, "percapita: year %d", year)
		}
		rates[year] = incidents[year] / pop * p.opts.RateScale
		estimates[year] = pop
	}
	return rates, estimates, nil
}

// Interpolant parses a raw census row within [minYear, maxYear] and builds
// its population interpolant.
func Interpolant(raw model.RawPopulation, minYear, maxYear int) (*interpolate.Piecewise, error) {
	series, err := census.ParsePopulation(raw, minYear, maxYear)
	if err != nil {
		return nil, err
	}

	points := make([]interpolate.Point, len(series))
	for i, c := range series {
		points[i] = interpolate.Point{Year: c.Year, Population: c.Population}
	}
	return interpolate.NewPiecewise(points)
}
