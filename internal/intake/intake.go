// Package intake loads actual-value records from the files QC
// departments keep: JSON-lines exports and XLSX coupon logs.
package intake

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/weldvault/qualify-cli/internal/model"
)

// columnKeys maps normalized XLSX header names to record keys. Headers
// are lower-cased with spaces and dashes collapsed to underscores, so
// "Deposit Thickness" and "deposit-thickness" both map.
var columnKeys = map[string]string{
	"thickness":         model.KeyThickness,
	"coupon_thickness":  model.KeyThickness,
	"diameter":          model.KeyDiameter,
	"pipe_diameter":     model.KeyDiameter,
	"od":                model.KeyDiameter,
	"position":          model.KeyPosition,
	"test_position":     model.KeyPosition,
	"backing":           model.KeyBacking,
	"p_number":          model.KeyPNumber,
	"p_number_actual":   model.KeyPNumber,
	"f_number":          model.KeyFNumber,
	"f_number_actual":   model.KeyFNumber,
	"deposit_thickness": model.KeyDeposit,
	"filler_type":       model.KeyFiller,
	"filler":            model.KeyFiller,
	"joint_type":        model.KeyJoint,
	"overlap_length":    model.KeyOverlap,
	"overlap":           model.KeyOverlap,
}

// ReadFile dispatches on file extension: .xlsx coupon logs or JSON
// lines for anything else.
func ReadFile(path string) ([]model.Record, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return ReadXLSX(path, "")
	}
	return ReadJSONL(path)
}

// ReadJSONL reads one JSON record object per line, skipping blanks.
func ReadJSONL(path string) ([]model.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "intake: open jsonl")
	}
	defer f.Close()

	var records []model.Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var rec model.Record
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return nil, eris.Wrapf(err, "intake: parse jsonl line %d", line)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrap(err, "intake: read jsonl")
	}
	return records, nil
}

// ReadXLSX reads a coupon log: the first row is a header naming the
// record fields, every following non-empty row becomes one record.
// Unrecognized columns are ignored.
func ReadXLSX(path, sheetName string) ([]model.Record, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "intake: open xlsx")
	}

	sheet, err := getSheet(f, sheetName)
	if err != nil {
		return nil, err
	}
	if len(sheet.Rows) == 0 {
		return nil, nil
	}

	keys := headerKeys(rowToStrings(sheet.Rows[0]))

	var records []model.Record
	for _, row := range sheet.Rows[1:] {
		cells := rowToStrings(row)
		rec := make(model.Record)
		for i, cell := range cells {
			if i >= len(keys) || keys[i] == "" {
				continue
			}
			value := strings.TrimSpace(cell)
			if value == "" {
				continue
			}
			rec[keys[i]] = cellValue(value)
		}
		if len(rec) > 0 {
			records = append(records, rec)
		}
	}
	return records, nil
}

func getSheet(f *xlsx.File, name string) (*xlsx.Sheet, error) {
	if name != "" {
		sheet, ok := f.Sheet[name]
		if !ok {
			return nil, eris.Errorf("intake: sheet %q not found", name)
		}
		return sheet, nil
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("intake: workbook has no sheets")
	}
	return f.Sheets[0], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}

// headerKeys maps each header cell to a record key, "" for columns to skip.
func headerKeys(header []string) []string {
	keys := make([]string, len(header))
	for i, h := range header {
		norm := strings.ToLower(strings.TrimSpace(h))
		norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
		keys[i] = columnKeys[norm]
	}
	return keys
}

// cellValue keeps numeric-looking cells numeric so thickness columns
// survive the trip without a string re-parse. Diameter stays text on
// purpose: entries like `2-7/8" OD` are the parser's job.
func cellValue(s string) any {
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	return s
}
