package census

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/capital-stats/percapita/internal/model"
)

// CapitalProperty names a column of the capitals reference table.
type CapitalProperty string

const (
	CapitalCode        CapitalProperty = "Código"
	CapitalName        CapitalProperty = "Capitais"
	CapitalState       CapitalProperty = "Estados"
	CapitalStateAbbrev CapitalProperty = "Siglas dos Estados"
	CapitalRegion      CapitalProperty = "Regiões"
)

// CapitalProperties lists every property in table order.
func CapitalProperties() []CapitalProperty {
	return []CapitalProperty{CapitalCode, CapitalName, CapitalState, CapitalStateAbbrev, CapitalRegion}
}

// ParseCapitalProperty resolves a column title to a property.
func ParseCapitalProperty(s string) (CapitalProperty, error) {
	s = strings.TrimSpace(s)
	for _, p := range CapitalProperties() {
		if strings.EqualFold(s, string(p)) {
			return p, nil
		}
	}
	return "", eris.Errorf("census: unknown capital property %q", s)
}

// ReadCapitals converts the capitals table into reference regions keyed by
// code. Only the code column is required; absent properties stay empty.
func ReadCapitals(rows [][]string) (model.Regions, error) {
	if len(rows) == 0 {
		return nil, eris.New("census: capitals table is empty")
	}
	colIdx := mapColumns(rows[0])
	if _, ok := colIdx[strings.ToLower(string(CapitalCode))]; !ok {
		return nil, eris.Errorf("census: capitals table has no %q column", CapitalCode)
	}

	out := make(model.Regions, len(rows)-1)
	for _, record := range rows[1:] {
		code := normalizeCode(getCol(record, colIdx, string(CapitalCode)))
		if code == "" {
			continue
		}
		out[code] = model.Region{
			Code:        code,
			Name:        getCol(record, colIdx, string(CapitalName)),
			State:       getCol(record, colIdx, string(CapitalState)),
			StateAbbrev: getCol(record, colIdx, string(CapitalStateAbbrev)),
			MacroRegion: getCol(record, colIdx, string(CapitalRegion)),
		}
	}
	return out, nil
}
