package model

// Region holds the reference attributes of an administrative region.
type Region struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	State       string `json:"state,omitempty"`
	StateAbbrev string `json:"state_abbrev,omitempty"`
	MacroRegion string `json:"macro_region,omitempty"`
}

// Regions indexes reference rows by region code.
type Regions map[string]Region

// Name returns the region's display name, falling back to its code.
func (r Regions) Name(code string) string {
	if reg, ok := r[code]; ok && reg.Name != "" {
		return reg.Name
	}
	return code
}
