package inventory

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// BOMLine names one item and the quantity a single collection consumes.
type BOMLine struct {
	Item     string `yaml:"item"`
	Quantity int    `yaml:"quantity"`
}

// BOM maps a sample type to the materials one collection of that type uses.
type BOM map[string][]BOMLine

// DefaultBOM covers the stock sample types when no file is configured.
func DefaultBOM() BOM {
	return BOM{
		"blood": {{Item: "blood draw kit", Quantity: 1}},
		"urine": {{Item: "specimen cup", Quantity: 1}},
		"swab":  {{Item: "swab kit", Quantity: 1}},
		"stool": {{Item: "stool container", Quantity: 1}},
	}
}

// LoadBOM reads a YAML bill of materials. An empty path yields the default.
func LoadBOM(path string) (BOM, error) {
	if path == "" {
		return DefaultBOM(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bom file: %w", err)
	}
	var bom BOM
	if err := yaml.Unmarshal(raw, &bom); err != nil {
		return nil, fmt.Errorf("parse bom file %s: %w", path, err)
	}
	for sampleType, lines := range bom {
		if len(lines) == 0 {
			return nil, fmt.Errorf("bom entry %q has no lines", sampleType)
		}
		for _, l := range lines {
			if l.Item == "" || l.Quantity <= 0 {
				return nil, fmt.Errorf("bom entry %q has an invalid line (item %q, quantity %d)", sampleType, l.Item, l.Quantity)
			}
		}
	}
	return bom, nil
}
