package dataset

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadSeed reads a dataset from a YAML or JSON file.
func LoadSeed(path string) (Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("read seed file: %w", err)
	}

	var ds Dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return Dataset{}, fmt.Errorf("parse seed file %s: %w", path, err)
	}

	return ds, nil
}
