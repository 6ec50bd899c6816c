package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/capital-stats/percapita/internal/census"
	"github.com/capital-stats/percapita/internal/config"
	"github.com/capital-stats/percapita/internal/fetcher"
	"github.com/capital-stats/percapita/internal/model"
	"github.com/capital-stats/percapita/internal/percapita"
	"github.com/capital-stats/percapita/internal/store"
)

// pipelineEnv holds the asset source, the optional store and the pipeline
// needed by the compute and serve commands.
type pipelineEnv struct {
	Store    store.Store // nil when store.driver is none
	Source   *census.Source
	Pipeline *percapita.Pipeline
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// computation is one completed pipeline run with everything needed to
// present it.
type computation struct {
	RunID      string // empty without a store
	Result     *percapita.Result
	Population []model.RawPopulation
	Names      map[string]string
}

// initStore opens and migrates the configured store. It returns nil when the
// driver is none.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, nil
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// newSource builds the asset source from the fetch and assets settings.
func newSource(c *config.Config) *census.Source {
	opener := fetcher.NewOpener(
		fetcher.HTTPOptions{
			UserAgent:    c.Fetch.UserAgent,
			Timeout:      c.Fetch.Timeout(),
			MaxRetries:   c.Fetch.MaxRetries,
			RateLimiters: fetcher.DefaultRateLimiters(),
		},
		fetcher.FTPOptions{Timeout: c.Fetch.Timeout(), MaxBytes: c.Fetch.MaxBytes},
	)
	return &census.Source{
		Opener:   opener,
		Encoding: c.Assets.Encoding,
		TempDir:  c.Fetch.TempDir,
	}
}

// pipelineOptions maps the pipeline settings onto percapita.Options.
func pipelineOptions(c *config.Config) (percapita.Options, error) {
	policy, err := percapita.ParsePolicy(c.Pipeline.OnRegionError)
	if err != nil {
		return percapita.Options{}, err
	}
	return percapita.Options{
		MinYear:       c.Pipeline.MinYear,
		MaxYear:       c.Pipeline.MaxYear,
		Concurrency:   c.Pipeline.Concurrency,
		OnRegionError: policy,
		RateScale:     c.Pipeline.RateScale,
	}, nil
}

// initPipeline sets up the store, the asset source and the Pipeline.
// Callers should defer env.Close().
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	opts, err := pipelineOptions(cfg)
	if err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	return &pipelineEnv{
		Store:    st,
		Source:   newSource(cfg),
		Pipeline: percapita.New(opts),
	}, nil
}

// loadNames returns region display names from the capitals table, falling
// back to the names carried by the population table.
func (pe *pipelineEnv) loadNames(ctx context.Context, population []model.RawPopulation) map[string]string {
	names := make(map[string]string, len(population))
	for _, raw := range population {
		if raw.Name != "" {
			names[raw.Region] = raw.Name
		}
	}

	capitals, err := pe.Source.Capitals(ctx, cfg.AssetPath(cfg.Assets.Capitals))
	if err != nil {
		zap.L().Warn("capitals table unavailable, using population names", zap.Error(err))
		return names
	}
	for code, region := range capitals {
		if region.Name != "" {
			names[code] = region.Name
		}
	}
	return names
}

// compute loads the assets, runs the pipeline and persists the run when a
// store is configured.
func (pe *pipelineEnv) compute(ctx context.Context) (*computation, error) {
	log := zap.L().With(zap.String("component", "compute"))

	population, err := pe.Source.Population(ctx, cfg.AssetPath(cfg.Assets.Population))
	if err != nil {
		return nil, eris.Wrap(err, "load population")
	}
	incidents, err := pe.Source.Incidents(ctx, cfg.AssetPath(cfg.Assets.Incidents))
	if err != nil {
		return nil, eris.Wrap(err, "load incidents")
	}

	c := &computation{
		Population: population,
		Names:      pe.loadNames(ctx, population),
	}

	opts := pe.Pipeline.Options()
	var run *model.Run
	if pe.Store != nil {
		run, err = pe.Store.CreateRun(ctx, opts.MinYear, opts.MaxYear)
		if err != nil {
			return nil, eris.Wrap(err, "create run")
		}
		c.RunID = run.ID
		log = log.With(zap.String("run_id", run.ID))
	}

	res, err := pe.Pipeline.Run(ctx, percapita.Input{Population: population, Incidents: incidents})
	if err != nil {
		if run != nil {
			if ferr := pe.Store.FailRun(ctx, run.ID, err); ferr != nil {
				log.Error("failed to record run failure", zap.Error(ferr))
			}
		}
		return nil, err
	}
	c.Result = res

	if run != nil {
		if err := pe.persist(ctx, run.ID, res); err != nil {
			_ = pe.Store.FailRun(ctx, run.ID, err)
			return nil, err
		}
		log.Info("run persisted", zap.Int("regions", res.Rates.Len()))
	}

	return c, nil
}

func (pe *pipelineEnv) persist(ctx context.Context, runID string, res *percapita.Result) error {
	if _, err := pe.Store.SaveRates(ctx, runID, res.Rates); err != nil {
		return eris.Wrap(err, "save rates")
	}
	if _, err := pe.Store.SaveEstimates(ctx, runID, res.Estimates); err != nil {
		return eris.Wrap(err, "save estimates")
	}
	return eris.Wrap(pe.Store.CompleteRun(ctx, runID, res.Summary()), "complete run")
}
