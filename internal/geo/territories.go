package geo

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed territories.yaml
var territoriesYAML []byte

// District identifies the territory preset a cell belongs to.
type District struct {
	Key   string
	Label string
}

type territoryPreset struct {
	Label string   `yaml:"label"`
	Cells []string `yaml:"cells"`
}

var districtLookup = mustLoadTerritories()

func mustLoadTerritories() map[string]District {
	presets := map[string]territoryPreset{}
	if err := yaml.Unmarshal(territoriesYAML, &presets); err != nil {
		panic(fmt.Sprintf("territories.yaml: %v", err))
	}
	lookup := make(map[string]District)
	for key, preset := range presets {
		for _, cell := range preset.Cells {
			lookup[cell] = District{Key: key, Label: preset.Label}
		}
	}
	return lookup
}

// DistrictFor returns the territory preset covering the cell; the zero
// District when the cell is outside every preset.
func DistrictFor(cellID string) District {
	return districtLookup[cellID]
}
