package directory

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("directory: employee not found")
	ErrMissingFields   = errors.New("directory: name and department are required")
	ErrNothingToUpdate = errors.New("directory: nothing to update")

	ErrEmptyImport     = errors.New("directory: no employees to import")
	ErrTooManyRows     = errors.New("directory: too many rows to import")
	ErrInvalidWorkbook = errors.New("directory: unreadable workbook")
)

// RowError points at the import row that failed validation.
type RowError struct {
	Row   int // spreadsheet row number, 0 when unknown
	Index int
	Err   error
}

func (e *RowError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("row %d: %v", e.Row, e.Err)
	}
	return fmt.Sprintf("entry %d: %v", e.Index+1, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }
