package percapita

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Policy decides what a failed region does to the rest of the run.
type Policy string

const (
	// PolicyAbort stops the run at the first failed region.
	PolicyAbort Policy = "abort"
	// PolicyContinue records the failure and keeps going.
	PolicyContinue Policy = "continue"
)

// ParsePolicy resolves a policy name. Empty means abort.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyAbort:
		return PolicyAbort, nil
	case PolicyContinue:
		return PolicyContinue, nil
	default:
		return "", eris.Errorf("percapita: unknown region error policy %q", s)
	}
}

// Options configures a pipeline run.
type Options struct {
	MinYear       int     // first census year kept; 0 = unbounded
	MaxYear       int     // last census year kept; 0 = unbounded
	Concurrency   int     // regions processed at once; default 4
	OnRegionError Policy  // default abort
	RateScale     float64 // multiplier applied to every rate; default 1
}

// Default census window the rate computation uses.
const (
	DefaultMinYear = 2000
	DefaultMaxYear = 2020
)

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		MinYear:       DefaultMinYear,
		MaxYear:       DefaultMaxYear,
		Concurrency:   4,
		OnRegionError: PolicyAbort,
		RateScale:     1,
	}
}

func (o Options) withDefaults() Options {
	if o.Concurrency <= 0 {
		o.Concurrency = 4
	}
	if o.OnRegionError == "" {
		o.OnRegionError = PolicyAbort
	}
	if o.RateScale == 0 {
		o.RateScale = 1
	}
	return o
}
