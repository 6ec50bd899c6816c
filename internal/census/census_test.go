package census

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capital-stats/percapita/internal/model"
)

func TestReadPopulation(t *testing.T) {
	rows := [][]string{
		{"Código", "Capital", "1872", "2000", "2010"},
		{"1100205", "Porto Velho", "...", "334.661", "428.527"},
		{"1302603", "Manaus", "29.334", "1.405.835", "1.802.014"},
	}

	got, err := ReadPopulation(rows)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "1100205", got[0].Region)
	assert.Equal(t, "Porto Velho", got[0].Name)
	assert.Equal(t, []model.Reading{
		{Year: 1872, Value: "..."},
		{Year: 2000, Value: "334.661"},
		{Year: 2010, Value: "428.527"},
	}, got[0].Readings)
	assert.Equal(t, "Manaus", got[1].Name)
}

func TestReadPopulation_ShortRowAndBlankCode(t *testing.T) {
	rows := [][]string{
		{"Código", "Capital", "2000", "2010"},
		{"1", "A", "10"},
		{"", "blank"},
	}
	got, err := ReadPopulation(rows)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "", got[0].Readings[1].Value)
}

func TestReadPopulation_Errors(t *testing.T) {
	_, err := ReadPopulation(nil)
	require.Error(t, err)

	_, err = ReadPopulation([][]string{{"Código", "Capital"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no year columns")

	_, err = ReadPopulation([][]string{
		{"Código", "Capital", "2000"},
		{"1", "A", "1"},
		{"1", "A again", "2"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate region 1")
}

func TestReadIncidents(t *testing.T) {
	rows := [][]string{
		{"Sigla", "Código", "Município", "2000", "2001", "2002"},
		{"RO", "1100205", "Porto Velho", "130", "", "151"},
		{"AM", "1302603", "Manaus", "1.5e2", "-", " 7 "},
	}

	got, err := ReadIncidents(rows)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, model.IncidentSeries{2000: 130, 2002: 151}, got["1100205"])
	assert.Equal(t, model.IncidentSeries{2000: 150, 2002: 7}, got["1302603"])
}

func TestReadIncidents_Errors(t *testing.T) {
	_, err := ReadIncidents(nil)
	require.Error(t, err)

	_, err = ReadIncidents([][]string{{"Sigla", "Código", "Município"}})
	require.Error(t, err)

	_, err = ReadIncidents([][]string{
		{"Sigla", "Código", "Município", "2000"},
		{"RO", "1", "X", "many"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnparseable)

	_, err = ReadIncidents([][]string{
		{"Sigla", "Código", "Município", "2000"},
		{"RO", "1", "X", "1"},
		{"RO", "1", "X", "2"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate region")
}

func TestReadIncidents_InvalidCounts(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"negative", "-10"},
		{"nan", "NaN"},
		{"positive infinity", "Inf"},
		{"negative infinity", "-Inf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadIncidents([][]string{
				{"Sigla", "Código", "Município", "2000", "2001"},
				{"RO", "1100205", "Porto Velho", "10", tt.value},
			})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidCount)
			assert.Contains(t, err.Error(), "1100205")
		})
	}
}

func TestValidCount(t *testing.T) {
	assert.True(t, ValidCount(0))
	assert.True(t, ValidCount(12.5))
	assert.False(t, ValidCount(-1))
	assert.False(t, ValidCount(math.NaN()))
	assert.False(t, ValidCount(math.Inf(1)))
}
