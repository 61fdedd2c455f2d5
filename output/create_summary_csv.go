package output

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
)

// SummaryRow is one scene/index line of the batch report.
type SummaryRow struct {
	SceneID       string  `csv:"scene_id"`
	Index         string  `csv:"index"`
	Min           float64 `csv:"min"`
	Max           float64 `csv:"max"`
	Mean          float64 `csv:"mean"`
	ValidFraction float64 `csv:"valid_fraction"`
}

// CreateSummaryCSV writes the per-scene index statistics report.
func CreateSummaryCSV(path string, rows []SummaryRow) error {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create summary folder: %v", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %v", err)
	}
	defer file.Close()

	if err := gocsv.MarshalFile(&rows, file); err != nil {
		return fmt.Errorf("failed to write summary csv: %v", err)
	}

	fmt.Println("Summary CSV created successfully as", path)
	return nil
}
