package config

import (
	"fmt"
	"os"

	"github.com/BartekS5/lake-etl/pkg/models"
)

// LoadMapping reads and parses the mapping.json file from the given path.
// An empty path yields the default mapping.
func LoadMapping(filePath string) (*models.SourceMapping, error) {
	if filePath == "" {
		return models.DefaultMapping(), nil
	}

	bytes, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping file '%s': %w", filePath, err)
	}

	mapping, err := models.LoadMapping(bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse mapping file '%s': %w", filePath, err)
	}
	return mapping, nil
}
