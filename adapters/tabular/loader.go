// Package tabular loads time-indexed datasets from xlsx and csv files into
// frames consumable by the capacity-test engine. The first column must be a
// timestamp; every other column is numeric.
package tabular

import (
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	"github.com/rlpappan/pvcaptest/domain/frame"
	"github.com/rlpappan/pvcaptest/internal/logging"
)

// timeLayouts are tried in order when parsing the index column.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"1/2/2006 15:04",
	"2006-01-02",
}

// Loader reads one dataset file. The file type is taken from the extension.
type Loader struct {
	path     string
	fileType string // "xlsx" or "csv"
	log      *logging.Logger
}

// NewLoader creates a loader for an xlsx or csv file.
func NewLoader(path string) *Loader {
	fileType := "xlsx"
	if strings.ToLower(filepath.Ext(path)) == ".csv" {
		fileType = "csv"
	}
	return &Loader{
		path:     path,
		fileType: fileType,
		log:      logging.Default.WithComponent("tabular"),
	}
}

// Load reads the file into a frame.
func (l *Loader) Load() (*frame.Frame, error) {
	if _, err := os.Stat(l.path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s file not found: %s", strings.ToUpper(l.fileType), l.path)
	}

	var rows [][]string
	var err error
	switch l.fileType {
	case "csv":
		rows, err = l.readCSV()
	case "xlsx":
		rows, err = l.readExcel()
	default:
		return nil, fmt.Errorf("unsupported file type: %s", l.fileType)
	}
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%s must have a header row and at least one data row", l.path)
	}
	return l.buildFrame(rows)
}

func (l *Loader) readExcel() ([][]string, error) {
	f, err := excelize.OpenFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	l.log.Debug("read %d rows from %s (%s)", len(rows), l.path, sheet)
	return rows, nil
}

func (l *Loader) readCSV() ([][]string, error) {
	file, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	l.log.Debug("read %d rows from %s", len(rows), l.path)
	return rows, nil
}

// buildFrame converts raw string rows into a frame. The first column is the
// time index; unparsable numeric cells become NaN so downstream filters can
// drop them.
func (l *Loader) buildFrame(rows [][]string) (*frame.Frame, error) {
	header := rows[0]
	if len(header) < 2 {
		return nil, fmt.Errorf("%s must have a timestamp column and at least one data column", l.path)
	}
	names := make([]string, len(header))
	for i, h := range header {
		names[i] = strings.TrimSpace(h)
	}

	index := make([]time.Time, 0, len(rows)-1)
	cols := make(map[string][]float64, len(names)-1)
	for _, name := range names[1:] {
		cols[name] = make([]float64, 0, len(rows)-1)
	}

	coerced := 0
	for i, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}
		ts, err := parseTime(strings.TrimSpace(row[0]))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", l.path, i+2, err)
		}
		index = append(index, ts)
		for j, name := range names[1:] {
			v := math.NaN()
			if j+1 < len(row) {
				if parsed, err := strconv.ParseFloat(strings.TrimSpace(row[j+1]), 64); err == nil {
					v = parsed
				}
			}
			if math.IsNaN(v) {
				coerced++
			}
			cols[name] = append(cols[name], v)
		}
	}
	if coerced > 0 {
		l.log.Warn("%s: %d non-numeric cells coerced to NaN", l.path, coerced)
	}

	return frame.FromColumns(index, names[1:], cols)
}

func parseTime(s string) (time.Time, error) {
	// Excel may hand over a serial date number instead of text.
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if ts, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return ts, nil
		}
	}
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse timestamp %q", s)
}

// LoadPair loads the measured and simulated datasets concurrently.
func LoadPair(ctx context.Context, dasPath, simPath string) (das, sim *frame.Frame, err error) {
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		das, err = NewLoader(dasPath).Load()
		return err
	})
	g.Go(func() error {
		var err error
		sim, err = NewLoader(simPath).Load()
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return das, sim, nil
}
