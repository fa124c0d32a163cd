package directory

import (
	"fmt"
	"io"
	"strings"
	"time"

	"employee-directory/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	SheetName     = "Employees"
	MaxImportRows = 1000

	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var exportHeader = []interface{}{"ID", "Name", "Department", "Created By", "Created At"}

// WriteWorkbook renders employees as a single-sheet XLSX document.
func WriteWorkbook(w io.Writer, employees []models.Employee) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("directory: name sheet: %w", err)
	}
	if err := f.SetSheetRow(SheetName, "A1", &exportHeader); err != nil {
		return fmt.Errorf("directory: write header: %w", err)
	}

	for i, e := range employees {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			e.ID,
			e.Name,
			e.Department,
			e.CreatedBy,
			e.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("directory: write row %d: %w", i+2, err)
		}
	}
	_ = f.SetColWidth(SheetName, "B", "C", 30)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("directory: write workbook: %w", err)
	}
	return nil
}

// ReadWorkbook reads employees from the first sheet: column A is the name and
// column B the department. A leading header row is skipped when its first
// cell reads "name", and so is a leading ID column in the export layout.
func ReadWorkbook(r io.Reader) ([]CreateInput, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidWorkbook, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: no sheets", ErrInvalidWorkbook)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidWorkbook, err)
	}

	nameCol, deptCol := 0, 1
	start := 0
	if len(rows) > 0 && len(rows[0]) > 0 {
		switch strings.ToLower(strings.TrimSpace(rows[0][0])) {
		case "name":
			start = 1
		case "id":
			// our own export: ID, Name, Department, ...
			start = 1
			nameCol, deptCol = 1, 2
		}
	}

	var out []CreateInput
	for i := start; i < len(rows); i++ {
		name, dept := cellAt(rows[i], nameCol), cellAt(rows[i], deptCol)
		if name == "" && dept == "" {
			continue
		}
		out = append(out, CreateInput{Name: name, Department: dept, Row: i + 1})
	}
	return out, nil
}

func cellAt(row []string, col int) string {
	if col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

// exportFilename is stamped with the export date.
func exportFilename(now time.Time) string {
	return "employees-" + now.UTC().Format("2006-01-02") + ".xlsx"
}
