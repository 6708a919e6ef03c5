package service

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"trainload/internal/store"
)

// wellnessColumns is the expected CSV header
var wellnessColumns = []string{"date", "hrv", "sleep_hours", "resting_hr"}

// ImportWellnessCSV stores measured wellness rows of the form
// date,hrv,sleep_hours,resting_hr with a header line. Empty cells mean absent.
// It returns the number of rows stored.
func ImportWellnessCSV(db *store.DB, r io.Reader, source string) (int, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = len(wellnessColumns)

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading header: %w", err)
	}
	for i, col := range wellnessColumns {
		if !strings.EqualFold(strings.TrimSpace(header[i]), col) {
			return 0, fmt.Errorf("column %d is %q, want %q", i+1, header[i], col)
		}
	}

	stored := 0
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stored, fmt.Errorf("line %d: %w", line, err)
		}

		sample, err := parseWellness(record, source)
		if err != nil {
			return stored, fmt.Errorf("line %d: %w", line, err)
		}
		if err := db.UpsertWellness(sample); err != nil {
			return stored, fmt.Errorf("line %d: storing wellness: %w", line, err)
		}
		stored++
	}
	return stored, nil
}

func parseWellness(record []string, source string) (store.WellnessSample, error) {
	date, err := time.Parse("2006-01-02", strings.TrimSpace(record[0]))
	if err != nil {
		return store.WellnessSample{}, fmt.Errorf("invalid date %q", record[0])
	}

	values := make([]float64, 3)
	for i, cell := range record[1:] {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return store.WellnessSample{}, fmt.Errorf("invalid %s %q", wellnessColumns[i+1], cell)
		}
		values[i] = v
	}

	return store.WellnessSample{
		Date:       date,
		HRV:        values[0],
		SleepHours: values[1],
		RestingHR:  values[2],
		Source:     source,
	}, nil
}
