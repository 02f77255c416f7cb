// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package history

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/AleutianAI/perfscope/services/perfscope/domain"
)

// Series names one exported curve.
type Series string

const (
	SeriesTime   Series = "time"
	SeriesMemory Series = "memory"
)

// csvHeader is the header row of every exported series.
var csvHeader = []string{"Input Size", "Value"}

// WriteSeriesCSV writes one curve as "Input Size,Value" rows.
func WriteSeriesCSV(w io.Writer, sizes []int, values []float64) error {
	if len(sizes) != len(values) {
		return domain.NewValidationError("values",
			fmt.Sprintf("%d sizes but %d values", len(sizes), len(values)))
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for i := range sizes {
		row := []string{strconv.Itoa(sizes[i]), strconv.FormatFloat(values[i], 'f', -1, 64)}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportCSV writes the time and memory curves of a record into dir.
//
// Description:
//
//	Files are named <id>_time.csv and <id>_memory.csv. dir is created when
//	missing. Records without measurements are rejected.
//
// Outputs:
//
//	map[Series]string - Path of each written file.
//	error - Non-nil on an empty record or I/O failure.
func ExportCSV(dir string, rec *Record) (map[Series]string, error) {
	if len(rec.Report.Measurements) == 0 {
		return nil, domain.NewValidationError("report", "record has no measurements to export")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create export directory: %w", err)
	}

	sizes := rec.Report.Sizes()
	curves := map[Series][]float64{
		SeriesTime:   rec.Report.Times(),
		SeriesMemory: rec.Report.Memories(),
	}
	paths := make(map[Series]string, len(curves))
	for _, series := range []Series{SeriesTime, SeriesMemory} {
		path := filepath.Join(dir, fmt.Sprintf("%s_%s.csv", rec.ID(), series))
		if err := writeSeriesFile(path, sizes, curves[series]); err != nil {
			return nil, err
		}
		paths[series] = path
	}
	return paths, nil
}

func writeSeriesFile(path string, sizes []int, values []float64) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()
	return WriteSeriesCSV(f, sizes, values)
}
