// Package output writes region × year tables as CSV, XLSX, JSON or YAML.
package output

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"gopkg.in/yaml.v3"

	"github.com/capital-stats/percapita/internal/model"
)

// Format is an output file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// DefaultBaseName is the file name (without extension) of the rate table.
const DefaultBaseName = "homicides_per_capita"

// ParseFormat resolves a format name. Empty means CSV.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatCSV, nil
	case FormatCSV, FormatXLSX, FormatJSON, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", eris.Errorf("output: unknown format %q", s)
	}
}

// Ext returns the file extension for the format, with the leading dot.
func (f Format) Ext() string { return "." + string(f) }

// FileName joins a base name with the format's extension.
func FileName(base string, f Format) string { return base + f.Ext() }

// Options controls how a table is laid out.
type Options struct {
	Format     Format
	IndexName  string            // header of the region column; default "Código"
	Names      map[string]string // region code -> display name; nil omits the name column
	NameColumn string            // header of the name column; default "Capital"
}

func (o Options) withDefaults() Options {
	if o.Format == "" {
		o.Format = FormatCSV
	}
	if o.IndexName == "" {
		o.IndexName = "Código"
	}
	if o.NameColumn == "" {
		o.NameColumn = "Capital"
	}
	return o
}

// YearValue is one cell of a record.
type YearValue struct {
	Year  int     `json:"year" yaml:"year"`
	Value float64 `json:"value" yaml:"value"`
}

// Record is one region's row in the structured formats.
type Record struct {
	Region string      `json:"region" yaml:"region"`
	Name   string      `json:"name,omitempty" yaml:"name,omitempty"`
	Values []YearValue `json:"values" yaml:"values"`
}

// Records flattens the table into sorted records.
func Records(t *model.RegionTable, names map[string]string) []Record {
	regions := t.Regions()
	out := make([]Record, 0, len(regions))
	for _, code := range regions {
		row, _ := t.Row(code)
		rec := Record{Region: code, Name: names[code]}
		for _, y := range row.Years() {
			rec.Values = append(rec.Values, YearValue{Year: y, Value: row[y]})
		}
		out = append(out, rec)
	}
	return out
}

// Write encodes the table to w.
func Write(w io.Writer, t *model.RegionTable, opts Options) error {
	opts = opts.withDefaults()
	switch opts.Format {
	case FormatCSV:
		return writeCSV(w, t, opts)
	case FormatXLSX:
		return writeXLSX(w, t, opts)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(Records(t, opts.Names)), "output: encode json")
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(Records(t, opts.Names)); err != nil {
			return eris.Wrap(err, "output: encode yaml")
		}
		return eris.Wrap(enc.Close(), "output: close yaml encoder")
	default:
		return eris.Errorf("output: unknown format %q", opts.Format)
	}
}

// WriteFile writes the table to path, creating parent directories.
func WriteFile(path string, t *model.RegionTable, opts Options) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "output: create dir for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "output: create file")
	}
	if err := Write(f, t, opts); err != nil {
		_ = f.Close()
		return err
	}
	return eris.Wrap(f.Close(), "output: close file")
}

// header returns the column titles followed by the year columns.
func header(t *model.RegionTable, opts Options) ([]string, []int) {
	years := t.Years()
	cols := []string{opts.IndexName}
	if opts.Names != nil {
		cols = append(cols, opts.NameColumn)
	}
	for _, y := range years {
		cols = append(cols, strconv.Itoa(y))
	}
	return cols, years
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeCSV(w io.Writer, t *model.RegionTable, opts Options) error {
	cw := csv.NewWriter(w)

	cols, years := header(t, opts)
	if err := cw.Write(cols); err != nil {
		return eris.Wrap(err, "output: write header")
	}

	for _, code := range t.Regions() {
		row, _ := t.Row(code)
		record := []string{code}
		if opts.Names != nil {
			record = append(record, opts.Names[code])
		}
		for _, y := range years {
			if v, ok := row[y]; ok {
				record = append(record, formatValue(v))
			} else {
				record = append(record, "")
			}
		}
		if err := cw.Write(record); err != nil {
			return eris.Wrap(err, "output: write row")
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "output: flush csv")
}

func writeXLSX(w io.Writer, t *model.RegionTable, opts Options) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("data")
	if err != nil {
		return eris.Wrap(err, "output: add sheet")
	}

	cols, years := header(t, opts)
	hdr := sheet.AddRow()
	for _, c := range cols {
		hdr.AddCell().SetString(c)
	}

	for _, code := range t.Regions() {
		row, _ := t.Row(code)
		xr := sheet.AddRow()
		xr.AddCell().SetString(code)
		if opts.Names != nil {
			xr.AddCell().SetString(opts.Names[code])
		}
		for _, y := range years {
			c := xr.AddCell()
			if v, ok := row[y]; ok {
				c.SetFloat(v)
			}
		}
	}

	return eris.Wrap(f.Write(w), "output: write xlsx")
}
