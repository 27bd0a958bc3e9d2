package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/gofhir/txaudit/pkg/result"
)

// SheetName is the worksheet holding the results.
const SheetName = "Terminology Checks"

const (
	columnWidth = 20
	numFmtText  = 49 // "@"
	passColor   = "#C6EFCE"
	failColor   = "#FFC7CE"
)

// WriteXLSX writes the results to a workbook at path. Codes are stored as
// text so leading zeros survive, and the result column is shaded green for
// PASS and red for FAIL.
func WriteXLSX(path string, rows []result.ValidationResult) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return err
	}

	header := make([]any, len(result.Columns))
	for i, c := range result.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	textStyle, err := f.NewStyle(&excelize.Style{NumFmt: numFmtText})
	if err != nil {
		return err
	}
	passStyle, err := f.NewStyle(&excelize.Style{Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{passColor}}})
	if err != nil {
		return err
	}
	failStyle, err := f.NewStyle(&excelize.Style{Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{failColor}}})
	if err != nil {
		return err
	}

	lastCol, err := excelize.ColumnNumberToName(len(result.Columns))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, "A1", lastCol+"1", headerStyle); err != nil {
		return err
	}
	if err := f.SetColWidth(SheetName, "A", lastCol, columnWidth); err != nil {
		return err
	}

	for i, r := range rows {
		row := i + 2
		cells := []any{
			r.File, r.ResourceID, r.Path, r.Code, r.DisplayProvided,
			r.TextContext, r.System, string(r.Result), r.Reason, r.StatusCode,
		}
		for j, v := range cells {
			cell, err := excelize.CoordinatesToCellName(j+1, row)
			if err != nil {
				return err
			}
			if err := setCell(f, cell, v); err != nil {
				return err
			}
		}

		codeCell := fmt.Sprintf("D%d", row)
		if err := f.SetCellStyle(SheetName, codeCell, codeCell, textStyle); err != nil {
			return err
		}

		shade := 0
		switch r.Result {
		case result.Pass:
			shade = passStyle
		case result.Fail:
			shade = failStyle
		}
		if shade != 0 {
			resultCell := fmt.Sprintf("H%d", row)
			if err := f.SetCellStyle(SheetName, resultCell, resultCell, shade); err != nil {
				return err
			}
		}
	}

	return f.SaveAs(path)
}

// setCell writes v, leaving the cell empty for absent values.
func setCell(f *excelize.File, cell string, v any) error {
	switch t := v.(type) {
	case *string:
		if t == nil {
			return nil
		}
		return f.SetCellStr(SheetName, cell, *t)
	case *int:
		if t == nil {
			return nil
		}
		return f.SetCellValue(SheetName, cell, *t)
	case string:
		return f.SetCellStr(SheetName, cell, t)
	default:
		return f.SetCellValue(SheetName, cell, t)
	}
}
