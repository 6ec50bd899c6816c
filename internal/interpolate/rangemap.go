// Package interpolate turns sparse census readings into continuous population estimates.
package interpolate

import "github.com/rotisserie/eris"

// Interval is a closed numeric range. Low need not be smaller than High.
type Interval struct {
	Low  float64
	High float64
}

// Mapper linearly maps values from a source interval onto a target interval.
// Values outside the source interval extrapolate; callers restrict the domain.
type Mapper struct {
	src Interval
	dst Interval
}

// NewMapper validates the source interval and returns a Mapper.
func NewMapper(src, dst Interval) (Mapper, error) {
	if src.High == src.Low {
		return Mapper{}, eris.Wrapf(ErrDegenerateInterval, "source [%g, %g]", src.Low, src.High)
	}
	return Mapper{src: src, dst: dst}, nil
}

// Source returns the interval the mapper was built from.
func (m Mapper) Source() Interval { return m.src }

// Target returns the interval the mapper maps onto.
func (m Mapper) Target() Interval { return m.dst }

// Map converts v from the source interval to the target interval.
func (m Mapper) Map(v float64) float64 {
	ratio := (v - m.src.Low) / (m.src.High - m.src.Low)
	return m.dst.Low + ratio*(m.dst.High-m.dst.Low)
}

// MapValue is the one-shot form of NewMapper followed by Map.
func MapValue(v float64, src, dst Interval) (float64, error) {
	m, err := NewMapper(src, dst)
	if err != nil {
		return 0, err
	}
	return m.Map(v), nil
}
