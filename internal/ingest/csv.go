package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/codeAKstan/gradesync-sub000/internal/shared"
)

// ExpectedHeader is the fixed column order of a score sheet. The header is
// matched case-insensitively but positionally; anything else rejects the
// whole submission before any row is examined.
var ExpectedHeader = []string{"CourseCode", "MatricNumber", "StudentName", "Score"}

// ScoreRow is one parsed data row of a score sheet. Line is the 1-based
// position in the file including the header, so the first data row is 2.
type ScoreRow struct {
	Line         int
	CourseCode   string
	MatricNumber string
	StudentName  string
	RawScore     string
}

// ParseScoreSheet reads a comma-separated score sheet and returns its data
// rows. A malformed or missing header fails the whole sheet with a single
// invalid-argument error and no row-level diagnostics.
func ParseScoreSheet(r io.Reader) ([]ScoreRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // column-count problems become row errors later
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, shared.InvalidArgumentf("score sheet is empty")
	}
	if err != nil {
		return nil, shared.InvalidArgumentf("failed to read score sheet header: %v", err)
	}

	if !headerMatches(header) {
		return nil, shared.InvalidArgumentf(
			"invalid header: expected %q, got %q",
			strings.Join(ExpectedHeader, ","), strings.Join(header, ","))
	}

	var rows []ScoreRow
	line := 1 // header consumed
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, shared.InvalidArgumentf("failed to read score sheet: %v", err)
		}
		line++

		// Pad short records so row validation can report the missing field.
		for len(record) < len(ExpectedHeader) {
			record = append(record, "")
		}

		rows = append(rows, ScoreRow{
			Line:         line,
			CourseCode:   strings.TrimSpace(record[0]),
			MatricNumber: strings.TrimSpace(record[1]),
			StudentName:  strings.TrimSpace(record[2]),
			RawScore:     strings.TrimSpace(record[3]),
		})
	}

	return rows, nil
}

func headerMatches(header []string) bool {
	if len(header) != len(ExpectedHeader) {
		return false
	}
	for i, col := range header {
		if !strings.EqualFold(strings.TrimSpace(col), ExpectedHeader[i]) {
			return false
		}
	}
	return true
}

// WriteTemplate renders the score-sheet template for a cohort: the expected
// header plus one row per registration with the score column left blank.
func WriteTemplate(w io.Writer, courseCode string, entries []shared.CohortEntry) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(ExpectedHeader); err != nil {
		return fmt.Errorf("failed to write template header: %w", err)
	}

	for _, e := range entries {
		record := []string{courseCode, e.MatricNumber, e.StudentName, ""}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write template row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}
