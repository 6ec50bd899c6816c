package interpolate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capitalCensus() []Point {
	return []Point{
		{Year: 2000, Population: 1_000_000},
		{Year: 2007, Population: 1_140_000},
		{Year: 2010, Population: 1_200_000},
		{Year: 2021, Population: 1_090_000},
	}
}

func TestNewPiecewise_BoundaryExactness(t *testing.T) {
	points := capitalCensus()
	p, err := NewPiecewise(points)
	require.NoError(t, err)

	for _, pt := range points {
		got, err := p.Eval(pt.Year)
		require.NoError(t, err)
		assert.Equal(t, float64(pt.Population), got, "census year %d", pt.Year)
	}
}

func TestPiecewise_InteriorMatchesClosedForm(t *testing.T) {
	points := capitalCensus()
	p, err := NewPiecewise(points)
	require.NoError(t, err)

	for i := range len(points) - 1 {
		lo, ub := points[i], points[i+1]
		prev := float64(lo.Population)
		for y := lo.Year + 1; y < ub.Year; y++ {
			want := float64(lo.Population) +
				float64(y-lo.Year)/float64(ub.Year-lo.Year)*float64(ub.Population-lo.Population)
			got, err := p.Eval(y)
			require.NoError(t, err)
			assert.InDelta(t, want, got, 1e-6, "year %d", y)

			if lo.Population < ub.Population {
				assert.Greater(t, got, prev, "year %d should increase", y)
			} else {
				assert.Less(t, got, prev, "year %d should decrease", y)
			}
			prev = got
		}
	}
}

func TestPiecewise_OutOfDomain(t *testing.T) {
	p, err := NewPiecewise(capitalCensus())
	require.NoError(t, err)

	for _, y := range []int{1999, 2022, 0, -5, 3000} {
		_, err := p.Eval(y)
		require.Error(t, err)

		var de *DomainError
		require.True(t, errors.As(err, &de), "year %d", y)
		assert.Equal(t, []int{y}, de.Years)
		assert.Equal(t, 2000, de.Min)
		assert.Equal(t, 2021, de.Max)
		assert.Contains(t, err.Error(), "year out of range")
	}
}

func TestPiecewise_EvalAllNamesEveryOffendingYear(t *testing.T) {
	p, err := NewPiecewise(capitalCensus())
	require.NoError(t, err)

	out, err := p.EvalAll([]int{1998, 2005, 2025, 2010})
	require.Error(t, err)
	assert.Nil(t, out)

	var de *DomainError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, []int{1998, 2025}, de.Years)
	assert.Contains(t, err.Error(), "1998, 2025")
}

func TestPiecewise_EvalAllMatchesEval(t *testing.T) {
	p, err := NewPiecewise(capitalCensus())
	require.NoError(t, err)

	years := []int{2021, 2000, 2010, 2003, 2007, 2015, 2003}
	batch, err := p.EvalAll(years)
	require.NoError(t, err)
	require.Len(t, batch, len(years))

	for i, y := range years {
		single, err := p.Eval(y)
		require.NoError(t, err)
		assert.Equal(t, single, batch[i], "index %d (year %d)", i, y)
	}
}

func TestPiecewise_EvalAllEmpty(t *testing.T) {
	p, err := NewPiecewise(capitalCensus())
	require.NoError(t, err)

	out, err := p.EvalAll(nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestNewPiecewise_SortsInput(t *testing.T) {
	shuffled := []Point{
		{Year: 2010, Population: 200},
		{Year: 2000, Population: 100},
		{Year: 2020, Population: 400},
	}
	p, err := NewPiecewise(shuffled)
	require.NoError(t, err)

	lo, hi := p.Domain()
	assert.Equal(t, 2000, lo)
	assert.Equal(t, 2020, hi)
	assert.Equal(t, []Point{{2000, 100}, {2010, 200}, {2020, 400}}, p.Census())

	got, err := p.Eval(2005)
	require.NoError(t, err)
	assert.InDelta(t, 150, got, 1e-9)

	got, err = p.Eval(2015)
	require.NoError(t, err)
	assert.InDelta(t, 300, got, 1e-9)

	// Caller slice is left untouched.
	assert.Equal(t, 2010, shuffled[0].Year)
}

func TestNewPiecewise_Errors(t *testing.T) {
	tests := []struct {
		name   string
		points []Point
		want   error
	}{
		{"empty", nil, ErrInsufficientData},
		{"single year", []Point{{2000, 10}}, ErrInsufficientData},
		{"duplicate year", []Point{{2000, 10}, {2010, 20}, {2000, 11}}, ErrDuplicateYear},
		{"negative population", []Point{{2000, 10}, {2010, -1}}, ErrNegativePopulation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPiecewise(tt.points)
			require.Error(t, err)
			assert.Nil(t, p)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestPiecewise_SharedBoundaryAgrees(t *testing.T) {
	p, err := NewPiecewise([]Point{{2000, 100}, {2010, 300}, {2020, 250}})
	require.NoError(t, err)

	lower := p.segments[0].Map(2010)
	upper := p.segments[1].Map(2010)
	assert.Equal(t, lower, upper)

	got, err := p.Eval(2010)
	require.NoError(t, err)
	assert.Equal(t, 300.0, got)
}

func TestPiecewise_Contains(t *testing.T) {
	p, err := NewPiecewise([]Point{{2000, 1}, {2010, 2}})
	require.NoError(t, err)

	assert.True(t, p.Contains(2000))
	assert.True(t, p.Contains(2010))
	assert.True(t, p.Contains(2004))
	assert.False(t, p.Contains(1999))
	assert.False(t, p.Contains(2011))
}

func TestPiecewise_MidDecade(t *testing.T) {
	p, err := NewPiecewise([]Point{{2000, 100}, {2010, 200}})
	require.NoError(t, err)

	got, err := p.Eval(2005)
	require.NoError(t, err)
	assert.Equal(t, 150.0, got)
}
