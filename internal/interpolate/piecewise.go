package interpolate

import (
	"cmp"
	"slices"
	"sort"

	"github.com/rotisserie/eris"
)

// Estimator evaluates a population estimate at integer years.
type Estimator interface {
	// Eval returns the estimate for a single year.
	Eval(year int) (float64, error)
	// EvalAll returns one estimate per input year, in input order.
	EvalAll(years []int) ([]float64, error)
	// Domain returns the closed year range the estimator accepts.
	Domain() (minYear, maxYear int)
}

var _ Estimator = (*Piecewise)(nil)

// Point is a single census reading.
type Point struct {
	Year       int
	Population int64
}

// Piecewise is a piecewise-linear interpolant over census readings.
// It is immutable after construction and safe for concurrent use.
type Piecewise struct {
	points   []Point  // sorted by year, no duplicates
	segments []Mapper // segments[i] spans points[i]..points[i+1]
}

// NewPiecewise builds an interpolant from census readings. The input is
// copied and sorted, so caller order never affects segment selection.
func NewPiecewise(points []Point) (*Piecewise, error) {
	sorted := slices.Clone(points)
	slices.SortStableFunc(sorted, func(a, b Point) int { return cmp.Compare(a.Year, b.Year) })

	for i, p := range sorted {
		if p.Population < 0 {
			return nil, eris.Wrapf(ErrNegativePopulation, "year %d: %d", p.Year, p.Population)
		}
		if i > 0 && sorted[i-1].Year == p.Year {
			return nil, eris.Wrapf(ErrDuplicateYear, "year %d", p.Year)
		}
	}

	if len(sorted) < 2 {
		return nil, eris.Wrapf(ErrInsufficientData, "got %d distinct year(s), need 2", len(sorted))
	}

	segments := make([]Mapper, 0, len(sorted)-1)
	for i := range len(sorted) - 1 {
		lo, ub := sorted[i], sorted[i+1]
		m, err := NewMapper(
			Interval{Low: float64(lo.Year), High: float64(ub.Year)},
			Interval{Low: float64(lo.Population), High: float64(ub.Population)},
		)
		if err != nil {
			return nil, err
		}
		segments = append(segments, m)
	}

	return &Piecewise{points: sorted, segments: segments}, nil
}

// Domain returns the first and last census years.
func (p *Piecewise) Domain() (int, int) {
	return p.points[0].Year, p.points[len(p.points)-1].Year
}

// Contains reports whether year lies inside the domain.
func (p *Piecewise) Contains(year int) bool {
	lo, hi := p.Domain()
	return year >= lo && year <= hi
}

// Census returns a copy of the sorted census readings.
func (p *Piecewise) Census() []Point {
	return slices.Clone(p.points)
}

// Eval returns the interpolated population at year.
func (p *Piecewise) Eval(year int) (float64, error) {
	if !p.Contains(year) {
		lo, hi := p.Domain()
		return 0, &DomainError{Years: []int{year}, Min: lo, Max: hi}
	}
	return p.segmentFor(year).Map(float64(year)), nil
}

// EvalAll evaluates every year independently and returns the results in
// input order. The whole batch is rejected if any year is out of range.
func (p *Piecewise) EvalAll(years []int) ([]float64, error) {
	var outside []int
	for _, y := range years {
		if !p.Contains(y) {
			outside = append(outside, y)
		}
	}
	if len(outside) > 0 {
		lo, hi := p.Domain()
		return nil, &DomainError{Years: outside, Min: lo, Max: hi}
	}

	out := make([]float64, len(years))
	for i, y := range years {
		out[i] = p.segmentFor(y).Map(float64(y))
	}
	return out, nil
}

// segmentFor returns the first segment whose upper bound is >= year. A year
// on a shared boundary therefore resolves to the lower segment; both
// segments agree there.
func (p *Piecewise) segmentFor(year int) Mapper {
	i := sort.Search(len(p.segments), func(i int) bool {
		return p.points[i+1].Year >= year
	})
	return p.segments[i]
}
