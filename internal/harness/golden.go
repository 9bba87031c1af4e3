package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// GoldenPath returns the golden file path for a scenario file:
// <dir>/golden/<name>.golden.
func GoldenPath(scenarioFile string) string {
	dir := filepath.Dir(scenarioFile)
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

// UpdateGolden writes the result's summary as the scenario's golden file.
func UpdateGolden(scenarioFile string, result *Result) error {
	goldenPath := GoldenPath(scenarioFile)

	if err := os.MkdirAll(filepath.Dir(goldenPath), 0755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(goldenPath, result.Summary, 0644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

// CompareGolden reports whether the result's summary matches the scenario's
// golden file byte for byte. A missing golden file is reported as
// os.ErrNotExist.
func CompareGolden(scenarioFile string, result *Result) (bool, error) {
	golden, err := os.ReadFile(GoldenPath(scenarioFile))
	if err != nil {
		return false, err
	}
	return bytes.Equal(golden, result.Summary), nil
}
