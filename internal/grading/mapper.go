// Package grading holds the pure score-to-grade mapping and the matric
// number format check. No I/O; both are independently testable.
package grading

import (
	"math"
	"regexp"
	"strings"
)

// Grade scale breakpoints (inclusive lower bounds), highest first:
// >=70 A/5.0, >=60 B/4.0, >=50 C/3.0, >=45 D/2.0, >=40 E/1.0, else F/0.0.
type band struct {
	min   float64
	grade string
	point float64
}

var bands = []band{
	{70, "A", 5.0},
	{60, "B", 4.0},
	{50, "C", 3.0},
	{45, "D", 2.0},
	{40, "E", 1.0},
	{0, "F", 0.0},
}

// MapScore converts a raw score to its letter grade and grade point.
// Scores outside [0, 100] (including NaN and infinities) return (nil, nil):
// a signal that the row is unmappable and must be rejected, not an error.
func MapScore(score float64) (grade *string, point *float64) {
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return nil, nil
	}
	if score < 0 || score > 100 {
		return nil, nil
	}

	for _, b := range bands {
		if score >= b.min {
			g, p := b.grade, b.point
			return &g, &p
		}
	}

	// score in [0, 40) falls through to the F band above; unreachable.
	return nil, nil
}

// matricRe matches four digits, a slash, and six digits, e.g. "2021/247789".
var matricRe = regexp.MustCompile(`^\d{4}/\d{6}$`)

// IsValidMatricNumber reports whether s (after trimming surrounding
// whitespace) is a well-formed matric number. Score ingestion rejects
// malformed identifiers before they can silently mismatch stored records.
func IsValidMatricNumber(s string) bool {
	return matricRe.MatchString(strings.TrimSpace(s))
}

// NormalizeMatricNumber trims surrounding whitespace from a matric number.
func NormalizeMatricNumber(s string) string {
	return strings.TrimSpace(s)
}
