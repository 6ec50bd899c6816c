package fetcher

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV_Basic(t *testing.T) {
	input := "Código,Capital,2000\n1100205,Porto Velho,334.661\n"
	rows, err := ReadCSV(context.Background(), strings.NewReader(input), CSVOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Código", "Capital", "2000"}, rows[0])
	assert.Equal(t, []string{"1100205", "Porto Velho", "334.661"}, rows[1])
}

func TestReadCSV_SemicolonDelimited(t *testing.T) {
	input := "a;b\n1;2\n"
	rows, err := ReadCSV(context.Background(), strings.NewReader(input), CSVOptions{Delimiter: ';'})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b"}, {"1", "2"}}, rows)
}

func TestReadCSV_Latin1(t *testing.T) {
	// "Município" encoded as ISO-8859-1: í = 0xED.
	input := "Sigla,C\xf3digo,Munic\xedpio\nRO,1100205,Porto Velho\n"
	rows, err := ReadCSV(context.Background(), strings.NewReader(input), CSVOptions{Encoding: "iso-8859-1"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Sigla", "Código", "Município"}, rows[0])
}

func TestReadCSV_UnsupportedCharset(t *testing.T) {
	_, err := ReadCSV(context.Background(), strings.NewReader("a\n"), CSVOptions{Encoding: "klingon-8"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported charset")
}

func TestReadCSV_TrimSpaceAndComment(t *testing.T) {
	input := "# generated\n a , b \n"
	rows, err := ReadCSV(context.Background(), strings.NewReader(input), CSVOptions{Comment: '#', TrimSpace: true})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b"}}, rows)
}

func TestReadCSV_VariableFields(t *testing.T) {
	input := "a,b,c\n1,2\n"
	rows, err := ReadCSV(context.Background(), strings.NewReader(input), CSVOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Len(t, rows[1], 2)
}

func TestReadCSV_BadQuote(t *testing.T) {
	input := "a,\"b\n"
	_, err := ReadCSV(context.Background(), strings.NewReader(input), CSVOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "csv: read row")
}

func TestStreamCSV_ContextAlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rowCh, errCh := StreamCSV(ctx, strings.NewReader("a,b\n"), CSVOptions{})
	for range rowCh {
	}
	err := <-errCh
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context cancelled")
}

func TestReadCSV_Empty(t *testing.T) {
	rows, err := ReadCSV(context.Background(), strings.NewReader(""), CSVOptions{})
	require.NoError(t, err)
	assert.Empty(t, rows)
}
