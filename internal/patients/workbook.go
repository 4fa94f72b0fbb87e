package patients

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"
)

// Workbook stores records in the first sheet of an .xlsx file. Each append
// rewrites the file through a temp file and rename, so a crash never leaves a
// truncated workbook behind. Appends are serialized within the process.
type Workbook struct {
	mu   sync.Mutex
	path string
}

func NewWorkbook(path string) *Workbook {
	return &Workbook{path: path}
}

func (w *Workbook) Path() string { return w.path }

// Append adds r after all existing rows, writing the header first when the
// workbook does not exist yet.
func (w *Workbook) Append(ctx context.Context, r Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := w.open()
	if err != nil {
		return err
	}
	defer f.Close()

	sheet := f.GetSheetList()[0]
	rows, err := f.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("read patient log: %w", err)
	}

	next := len(rows) + 1
	if len(rows) == 0 {
		if err := setRow(f, sheet, 1, headerRow()); err != nil {
			return err
		}
		next = 2
	}
	if err := setRow(f, sheet, next, r.Row()); err != nil {
		return err
	}

	return w.replace(f)
}

// List returns all records in insertion order. A missing workbook is an
// empty log.
func (w *Workbook) List(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := excelize.OpenFile(w.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open patient log: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetList()[0])
	if err != nil {
		return nil, fmt.Errorf("read patient log: %w", err)
	}
	if len(rows) <= 1 {
		return nil, nil
	}

	out := make([]Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rec, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("patient log row %d: %w", i+2, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (w *Workbook) open() (*excelize.File, error) {
	f, err := excelize.OpenFile(w.path)
	if errors.Is(err, fs.ErrNotExist) {
		return excelize.NewFile(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open patient log: %w", err)
	}
	return f, nil
}

func (w *Workbook) replace(f *excelize.File) error {
	dir := filepath.Dir(w.path)
	tmp, err := os.CreateTemp(dir, ".patients-*.xlsx")
	if err != nil {
		return fmt.Errorf("create temp patient log: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := f.Write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("write patient log: %w", err)
	}
	if err := tmp.Chmod(w.mode()); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp patient log: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp patient log: %w", err)
	}
	if err := os.Rename(tmpName, w.path); err != nil {
		return fmt.Errorf("replace patient log: %w", err)
	}
	return nil
}

// mode keeps the current log's permissions, 0644 for a new log.
func (w *Workbook) mode() fs.FileMode {
	if info, err := os.Stat(w.path); err == nil {
		return info.Mode().Perm()
	}
	return 0o644
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write patient log row %d: %w", row, err)
	}
	return nil
}

func headerRow() []any {
	out := make([]any, len(Columns))
	for i, c := range Columns {
		out[i] = c
	}
	return out
}

// parseRow pads short rows; the sheet reader drops trailing empty cells.
func parseRow(row []string) (Record, error) {
	cells := make([]string, len(Columns))
	copy(cells, row)

	var age int
	if s := strings.TrimSpace(cells[1]); s != "" {
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Record{}, fmt.Errorf("age %q: %w", s, err)
		}
		age = int(n)
	}
	return Record{
		Name:    cells[0],
		Age:     age,
		Gender:  cells[2],
		City:    cells[3],
		State:   cells[4],
		Country: cells[5],
	}, nil
}
