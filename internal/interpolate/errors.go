package interpolate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

var (
	// ErrDegenerateInterval is returned when a source interval has zero width.
	ErrDegenerateInterval = eris.New("interpolate: degenerate source interval")

	// ErrInsufficientData is returned when a series has fewer than two distinct years.
	ErrInsufficientData = eris.New("interpolate: insufficient data to interpolate")

	// ErrDuplicateYear is returned when a series declares the same census year twice.
	ErrDuplicateYear = eris.New("interpolate: duplicate census year")

	// ErrNegativePopulation is returned when a census reading is below zero.
	ErrNegativePopulation = eris.New("interpolate: negative population")
)

// DomainError reports query years that fall outside an interpolant's census range.
type DomainError struct {
	Years []int
	Min   int
	Max   int
}

func (e *DomainError) Error() string {
	years := make([]string, len(e.Years))
	for i, y := range e.Years {
		years[i] = strconv.Itoa(y)
	}
	return fmt.Sprintf("interpolate: year out of range [%d, %d]: %s", e.Min, e.Max, strings.Join(years, ", "))
}
