package ingest

import (
	"bytes"
	"strings"
	"testing"

	"github.com/codeAKstan/gradesync-sub000/internal/shared"
)

func TestParseScoreSheet_Valid(t *testing.T) {
	sheet := "CourseCode,MatricNumber,StudentName,Score\n" +
		"CSC101,2021/247789,John Doe,72\n" +
		"CSC101,2021/247790,Jane Roe,55.5\n"

	rows, err := ParseScoreSheet(strings.NewReader(sheet))
	if err != nil {
		t.Fatalf("ParseScoreSheet failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	if rows[0].Line != 2 || rows[1].Line != 3 {
		t.Errorf("row lines = %d, %d; want 2, 3", rows[0].Line, rows[1].Line)
	}
	if rows[0].CourseCode != "CSC101" || rows[0].MatricNumber != "2021/247789" || rows[0].RawScore != "72" {
		t.Errorf("unexpected first row: %+v", rows[0])
	}
}

func TestParseScoreSheet_HeaderCaseInsensitive(t *testing.T) {
	sheet := "coursecode,matricnumber,studentname,score\nCSC101,2021/247789,John Doe,72\n"

	rows, err := ParseScoreSheet(strings.NewReader(sheet))
	if err != nil {
		t.Fatalf("ParseScoreSheet failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
}

func TestParseScoreSheet_BadHeader(t *testing.T) {
	cases := []string{
		"MatricNumber,CourseCode,StudentName,Score\nCSC101,2021/247789,John Doe,72\n",
		"CourseCode,MatricNumber,StudentName\nCSC101,2021/247789,John Doe\n",
		"",
	}

	for _, sheet := range cases {
		_, err := ParseScoreSheet(strings.NewReader(sheet))
		if err == nil {
			t.Errorf("expected header error for %q", sheet)
			continue
		}
		if shared.KindOf(err) != shared.KindInvalidArgument {
			t.Errorf("expected invalid argument kind for %q, got %v", sheet, shared.KindOf(err))
		}
	}
}

func TestWriteTemplate(t *testing.T) {
	entries := []shared.CohortEntry{
		{MatricNumber: "2021/247789", StudentName: "John Doe"},
		{MatricNumber: "2021/247790", StudentName: "Jane Roe"},
	}

	var buf bytes.Buffer
	if err := WriteTemplate(&buf, "CSC101", entries); err != nil {
		t.Fatalf("WriteTemplate failed: %v", err)
	}

	want := "CourseCode,MatricNumber,StudentName,Score\n" +
		"CSC101,2021/247789,John Doe,\n" +
		"CSC101,2021/247790,Jane Roe,\n"
	if buf.String() != want {
		t.Errorf("template mismatch:\ngot:\n%s\nwant:\n%s", buf.String(), want)
	}

	// A template must round-trip through the parser.
	if _, err := ParseScoreSheet(bytes.NewReader(buf.Bytes())); err != nil {
		t.Errorf("template does not parse back: %v", err)
	}
}
