package ingest

import (
	"strconv"

	"github.com/codeAKstan/gradesync-sub000/internal/grading"
	"github.com/codeAKstan/gradesync-sub000/internal/shared"
)

// Cohort is the lookup context a batch is validated against: the resolved
// course code and the matric numbers registered (non-dropped) for the
// (course, semester) pair, keyed to their registration IDs.
type Cohort struct {
	CourseCode string
	Registered map[string]string // matric number -> registration ID
}

// Update is one fully validated row ready to be applied to the ledger.
type Update struct {
	RegistrationID string
	MatricNumber   string
	Score          float64
	Grade          string
	GradePoint     float64
}

// ValidateRows runs every precondition over every row and accumulates all
// violations before anything is written. Either all rows pass and the
// returned updates cover the batch, or the error list is non-empty and the
// caller must apply nothing.
func ValidateRows(rows []ScoreRow, cohort Cohort) ([]Update, shared.ValidationErrors) {
	var (
		updates []Update
		errs    shared.ValidationErrors
		seen    = map[string]bool{}
	)

	for _, row := range rows {
		rowOK := true

		if row.CourseCode != cohort.CourseCode {
			errs = append(errs, shared.RowError{
				Row: row.Line, Field: "course_code",
				Message: "course code does not match " + cohort.CourseCode,
			})
			rowOK = false
		}

		matric := grading.NormalizeMatricNumber(row.MatricNumber)
		if !grading.IsValidMatricNumber(matric) {
			errs = append(errs, shared.RowError{
				Row: row.Line, Field: "matric_number",
				Message: "invalid matric number format (expected NNNN/NNNNNN)",
			})
			rowOK = false
		} else {
			if seen[matric] {
				errs = append(errs, shared.RowError{
					Row: row.Line, Field: "matric_number",
					Message: "duplicate matric number " + matric + " in batch",
				})
				rowOK = false
			}
			seen[matric] = true

			if _, ok := cohort.Registered[matric]; !ok {
				errs = append(errs, shared.RowError{
					Row: row.Line, Field: "matric_number",
					Message: matric + " is not registered for this course and semester",
				})
				rowOK = false
			}
		}

		score, err := strconv.ParseFloat(row.RawScore, 64)
		if err != nil {
			errs = append(errs, shared.RowError{
				Row: row.Line, Field: "score",
				Message: "score is not a number",
			})
			rowOK = false
		} else if score < 0 || score > 100 {
			errs = append(errs, shared.RowError{
				Row: row.Line, Field: "score",
				Message: "score must be between 0 and 100",
			})
			rowOK = false
		}

		if !rowOK {
			continue
		}

		// The mapper is the authority on gradability even after the range
		// check above passed.
		grade, point := grading.MapScore(score)
		if grade == nil || point == nil {
			errs = append(errs, shared.RowError{
				Row: row.Line, Field: "score",
				Message: "score cannot be mapped to a grade",
			})
			continue
		}

		updates = append(updates, Update{
			RegistrationID: cohort.Registered[matric],
			MatricNumber:   matric,
			Score:          score,
			Grade:          *grade,
			GradePoint:     *point,
		})
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return updates, nil
}
