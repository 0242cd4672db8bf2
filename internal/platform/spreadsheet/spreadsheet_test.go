package spreadsheet

import (
	"bytes"
	"errors"
	"testing"

	"contest_registry/internal/common"
)

func TestWriteThenReadXLSX(t *testing.T) {
	var buf bytes.Buffer
	err := WriteXLSX(&buf, Sheet{
		Name:   "Contestants",
		Header: []string{"Name", "Birth Date", "Score"},
		Rows: [][]any{
			{"Amal", "2010-03-04", 88.5},
			{"Bilal", "2011-07-21", 42},
		},
	})
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	rows, err := ReadRows("export.xlsx", buf.Bytes())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0][0] != "Name" || rows[1][0] != "Amal" || rows[1][1] != "2010-03-04" {
		t.Fatalf("unexpected rows %v", rows)
	}
	if rows[2][2] != "42" {
		t.Fatalf("unexpected number cell %q", rows[2][2])
	}
}

func TestReadCSVRaggedRows(t *testing.T) {
	data := []byte("Name,Birth Date\nAmal,2010-03-04,extra\nBilal\n")
	rows, err := ReadRows("people.CSV", data)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(rows) != 3 || len(rows[1]) != 3 || len(rows[2]) != 1 {
		t.Fatalf("unexpected rows %v", rows)
	}
}

func TestReadRowsRejectsUnknownExtension(t *testing.T) {
	_, err := ReadRows("people.txt", []byte("x"))
	if !errors.Is(err, common.ErrBadRequest) {
		t.Fatalf("expected bad request, got %v", err)
	}
}

func TestReadRowsRejectsCorruptWorkbook(t *testing.T) {
	_, err := ReadRows("broken.xlsx", []byte("not a zip"))
	if !errors.Is(err, common.ErrBadRequest) {
		t.Fatalf("expected bad request, got %v", err)
	}
}

func TestCellAndBlank(t *testing.T) {
	row := []string{" a ", ""}
	if Cell(row, 0) != "a" || Cell(row, 5) != "" {
		t.Fatalf("unexpected cell values")
	}
	if IsBlank(row) || !IsBlank([]string{" ", ""}) {
		t.Fatalf("unexpected blank detection")
	}
}
