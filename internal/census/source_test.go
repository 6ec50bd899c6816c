package census

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/capital-stats/percapita/internal/fetcher"
)

func newTestSource(t *testing.T) *Source {
	t.Helper()
	return &Source{
		Opener:  fetcher.NewOpener(fetcher.HTTPOptions{MaxRetries: 1}, fetcher.FTPOptions{}),
		TempDir: t.TempDir(),
	}
}

func TestSource_PopulationCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "population_per_capital.csv")
	require.NoError(t, os.WriteFile(path, []byte("Código,Capital,2000,2010\n1100205,Porto Velho,\"334.661\",\"428.527\"\n"), 0o644))

	got, err := newTestSource(t).Population(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "334.661", got[0].Readings[0].Value)
}

func TestSource_Latin1Incidents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "homicides_per_capital.csv")
	data := "Sigla,C\xf3digo,Munic\xedpio,2000\nRO,1100205,Porto Velho,130\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	src := newTestSource(t)
	src.Encoding = "iso-8859-1"
	got, err := src.Incidents(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 130.0, got["1100205"][2000])
}

func TestSource_CapitalsXLSX(t *testing.T) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("capitais")
	require.NoError(t, err)
	for _, r := range [][]string{{"Código", "Capitais"}, {"1302603", "Manaus"}} {
		row := sheet.AddRow()
		for _, c := range r {
			row.AddCell().SetString(c)
		}
	}
	path := filepath.Join(t.TempDir(), "brazilian_capitals.xlsx")
	require.NoError(t, f.Save(path))

	got, err := newTestSource(t).Capitals(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Manaus", got.Name("1302603"))
}

func TestSource_RemoteCSV(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("Código,Capitais\n1,A\n"))
	}))
	defer srv.Close()

	got, err := newTestSource(t).Capitals(context.Background(), srv.URL+"/capitals.csv")
	require.NoError(t, err)
	assert.Equal(t, "A", got.Name("1"))
}

func TestSource_MissingFile(t *testing.T) {
	src := newTestSource(t)
	_, err := src.Population(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "census: open")

	_, err = src.Population(context.Background(), filepath.Join(t.TempDir(), "nope.xlsx"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "census: fetch")
}
