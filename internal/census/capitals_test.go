package census

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capital-stats/percapita/internal/model"
)

func TestReadCapitals(t *testing.T) {
	rows := [][]string{
		{"Código", "Capitais", "Estados", "Siglas dos Estados", "Regiões"},
		{"1100205", "Porto Velho", "Rondônia", "RO", "Norte"},
		{"5300108", "Brasília", "Distrito Federal", "DF", "Centro-Oeste"},
	}

	got, err := ReadCapitals(rows)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, model.Region{
		Code:        "1100205",
		Name:        "Porto Velho",
		State:       "Rondônia",
		StateAbbrev: "RO",
		MacroRegion: "Norte",
	}, got["1100205"])
	assert.Equal(t, "Brasília", got.Name("5300108"))
}

func TestReadCapitals_PartialColumns(t *testing.T) {
	got, err := ReadCapitals([][]string{
		{"Capitais", "Código"},
		{"Manaus", "1302603"},
	})
	require.NoError(t, err)
	assert.Equal(t, model.Region{Code: "1302603", Name: "Manaus"}, got["1302603"])
}

func TestReadCapitals_MissingCode(t *testing.T) {
	_, err := ReadCapitals([][]string{{"Capitais"}, {"Manaus"}})
	require.Error(t, err)

	_, err = ReadCapitals(nil)
	require.Error(t, err)
}

func TestParseCapitalProperty(t *testing.T) {
	p, err := ParseCapitalProperty(" siglas dos estados ")
	require.NoError(t, err)
	assert.Equal(t, CapitalStateAbbrev, p)

	_, err = ParseCapitalProperty("Prefeito")
	require.Error(t, err)

	assert.Len(t, CapitalProperties(), 5)
}
