package grading

import (
	"math"
	"testing"
)

func TestMapScore_Bands(t *testing.T) {
	cases := []struct {
		score float64
		grade string
		point float64
	}{
		{100, "A", 5.0},
		{70, "A", 5.0},
		{69.999, "B", 4.0},
		{60, "B", 4.0},
		{59.5, "C", 3.0},
		{50, "C", 3.0},
		{49.999, "D", 2.0},
		{45, "D", 2.0},
		{44.9, "E", 1.0},
		{40, "E", 1.0},
		{39.999, "F", 0.0},
		{0, "F", 0.0},
	}

	for _, c := range cases {
		grade, point := MapScore(c.score)
		if grade == nil || point == nil {
			t.Fatalf("MapScore(%v) returned nil, want %s/%v", c.score, c.grade, c.point)
		}
		if *grade != c.grade || *point != c.point {
			t.Errorf("MapScore(%v) = %s/%v, want %s/%v", c.score, *grade, *point, c.grade, c.point)
		}
	}
}

func TestMapScore_Unmappable(t *testing.T) {
	for _, score := range []float64{-0.001, -50, 100.001, 150, math.NaN(), math.Inf(1), math.Inf(-1)} {
		grade, point := MapScore(score)
		if grade != nil || point != nil {
			t.Errorf("MapScore(%v) = %v/%v, want nil/nil", score, grade, point)
		}
	}
}

func TestIsValidMatricNumber(t *testing.T) {
	valid := []string{"2021/247789", "  2021/247789  ", "0000/000000"}
	for _, m := range valid {
		if !IsValidMatricNumber(m) {
			t.Errorf("IsValidMatricNumber(%q) = false, want true", m)
		}
	}

	invalid := []string{"2021-247789", "21/2477", "", "2021/24778", "2021/2477890", "20a1/247789", "2021 /247789"}
	for _, m := range invalid {
		if IsValidMatricNumber(m) {
			t.Errorf("IsValidMatricNumber(%q) = true, want false", m)
		}
	}
}
