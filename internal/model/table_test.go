package model

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegionTable_PutAndRead(t *testing.T) {
	tbl := NewRegionTable()
	tbl.Put("3550308", YearValues{2000: 0.1, 2005: 0.12})
	tbl.Put("3304557", YearValues{2001: 0.2})

	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, []string{"3304557", "3550308"}, tbl.Regions())
	assert.Equal(t, []int{2000, 2001, 2005}, tbl.Years())

	v, ok := tbl.Value("3550308", 2005)
	require.True(t, ok)
	assert.InDelta(t, 0.12, v, 1e-12)

	_, ok = tbl.Value("3550308", 2001)
	assert.False(t, ok)

	_, ok = tbl.Row("missing")
	assert.False(t, ok)
}

func TestRegionTable_CopiesOnPutAndRead(t *testing.T) {
	tbl := NewRegionTable()
	row := YearValues{2000: 1}
	tbl.Put("a", row)
	row[2000] = 99

	got, ok := tbl.Row("a")
	require.True(t, ok)
	assert.Equal(t, 1.0, got[2000])

	got[2000] = 42
	v, _ := tbl.Value("a", 2000)
	assert.Equal(t, 1.0, v)

	snapshot := tbl.Map()
	snapshot["a"][2000] = 7
	v, _ = tbl.Value("a", 2000)
	assert.Equal(t, 1.0, v)
}

func TestRegionTable_ConcurrentPut(t *testing.T) {
	tbl := NewRegionTable()
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tbl.Put(fmt.Sprintf("r%02d", i), YearValues{2000: float64(i)})
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, tbl.Len())
}

func TestIncidentSeries_Years(t *testing.T) {
	s := IncidentSeries{2010: 3, 2000: 1, 2005: 2}
	assert.Equal(t, []int{2000, 2005, 2010}, s.Years())
	assert.Empty(t, IncidentSeries{}.Years())
}

func TestPopulationSeries_Years(t *testing.T) {
	s := PopulationSeries{{Year: 2000, Population: 1}, {Year: 2010, Population: 2}}
	assert.Equal(t, []int{2000, 2010}, s.Years())
}

func TestRegions_Name(t *testing.T) {
	regs := Regions{"1": {Code: "1", Name: "Porto Velho"}, "2": {Code: "2"}}
	assert.Equal(t, "Porto Velho", regs.Name("1"))
	assert.Equal(t, "2", regs.Name("2"))
	assert.Equal(t, "3", regs.Name("3"))
}

func TestYearValues_Years(t *testing.T) {
	assert.Equal(t, []int{1999, 2000, 2010}, YearValues{2010: 1, 1999: 2, 2000: 3}.Years())
	assert.Empty(t, YearValues{}.Years())
}
