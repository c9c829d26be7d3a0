// Package export writes summary workbooks next to extracted arrays so
// results can be reviewed without loading the .npy.
package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/resflow/resflow/internal/model"
	"github.com/resflow/resflow/pkg/grid"
)

const statsSheet = "TimeSteps"

// StatsPath returns the conventional workbook path for a case and
// property inside dir.
func StatsPath(dir, caseName, property string) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s_stats.xlsx", caseName, property))
}

// WriteStats writes one row per time step: index, time, label, block
// count, min, max, mean. steps supplies the time/label columns and
// may be shorter than the array's time axis when the report contained
// blockless markers; trailing rows then carry stats only.
func WriteStats(path string, a *grid.Array, steps []model.TimeStep) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("export: create directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", statsSheet); err != nil {
		return fmt.Errorf("export: rename sheet: %w", err)
	}

	header := []interface{}{"step", "time", "label", "blocks", "min", "max", "mean"}
	if err := f.SetSheetRow(statsSheet, "A1", &header); err != nil {
		return fmt.Errorf("export: write header: %w", err)
	}

	for t := 0; t < a.NT; t++ {
		s := a.Stats(t)
		row := []interface{}{t, nil, "", 0, s.Min, s.Max, s.Mean}
		if t < len(steps) {
			row[1] = steps[t].Time
			row[2] = steps[t].Label
			row[3] = len(steps[t].Blocks)
		}
		cell, err := excelize.CoordinatesToCellName(1, t+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(statsSheet, cell, &row); err != nil {
			return fmt.Errorf("export: write row %d: %w", t, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("export: save %s: %w", path, err)
	}
	return nil
}
