package results

import (
	"testing"
)

func TestAccumulate_WeightedAverage(t *testing.T) {
	// 3 units at 5.0, 4 units at 4.0, 2 units at 3.0
	// -> 37 / 9 = 4.111... -> 4.11
	points := []CreditedPoint{
		{Units: 3, Point: 5.0},
		{Units: 4, Point: 4.0},
		{Units: 2, Point: 3.0},
	}

	units, weighted, gpa := Accumulate(points)
	if units != 9 {
		t.Errorf("expected 9 total units, got %d", units)
	}
	if weighted != 37.0 {
		t.Errorf("expected 37.0 weighted points, got %v", weighted)
	}
	if gpa == nil {
		t.Fatal("expected a GPA, got nil")
	}
	if *gpa != 4.11 {
		t.Errorf("expected GPA 4.11, got %v", *gpa)
	}
}

func TestAccumulate_SingleCourse(t *testing.T) {
	units, weighted, gpa := Accumulate([]CreditedPoint{{Units: 3, Point: 5.0}})
	if units != 3 || weighted != 15.0 {
		t.Errorf("unexpected accumulators: units=%d weighted=%v", units, weighted)
	}
	if gpa == nil || *gpa != 5.0 {
		t.Errorf("expected GPA 5.0, got %v", gpa)
	}
}

func TestAccumulate_AllFailed(t *testing.T) {
	// All F grades: GPA is a real 0.00, not nil.
	units, weighted, gpa := Accumulate([]CreditedPoint{
		{Units: 3, Point: 0.0},
		{Units: 2, Point: 0.0},
	})
	if units != 5 || weighted != 0.0 {
		t.Errorf("unexpected accumulators: units=%d weighted=%v", units, weighted)
	}
	if gpa == nil {
		t.Fatal("expected GPA 0.00, got nil")
	}
	if *gpa != 0.0 {
		t.Errorf("expected GPA 0.00, got %v", *gpa)
	}
}

func TestAccumulate_NoCreditedWork(t *testing.T) {
	for _, points := range [][]CreditedPoint{nil, {}} {
		units, weighted, gpa := Accumulate(points)
		if units != 0 || weighted != 0 {
			t.Errorf("expected zero accumulators, got units=%d weighted=%v", units, weighted)
		}
		if gpa != nil {
			t.Errorf("expected nil GPA with no credited work, got %v", *gpa)
		}
	}
}

func TestAccumulate_Rounding(t *testing.T) {
	cases := []struct {
		name   string
		points []CreditedPoint
		want   float64
	}{
		// 10/3 = 3.333... -> 3.33
		{"repeating third", []CreditedPoint{{Units: 3, Point: 10.0 / 3.0}}, 3.33},
		// (2*5 + 1*4) / 3 = 4.666... -> 4.67
		{"rounds up", []CreditedPoint{{Units: 2, Point: 5.0}, {Units: 1, Point: 4.0}}, 4.67},
		// (1*5 + 1*4) / 2 = 4.5 exactly
		{"exact half", []CreditedPoint{{Units: 1, Point: 5.0}, {Units: 1, Point: 4.0}}, 4.5},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, gpa := Accumulate(tc.points)
			if gpa == nil {
				t.Fatal("expected a GPA, got nil")
			}
			if *gpa != tc.want {
				t.Errorf("expected %v, got %v", tc.want, *gpa)
			}
		})
	}
}

func TestAccumulate_Deterministic(t *testing.T) {
	points := []CreditedPoint{
		{Units: 3, Point: 5.0},
		{Units: 4, Point: 4.0},
		{Units: 2, Point: 3.0},
	}

	_, _, first := Accumulate(points)
	_, _, second := Accumulate(points)
	if first == nil || second == nil {
		t.Fatal("expected GPAs, got nil")
	}
	if *first != *second {
		t.Errorf("same inputs produced different GPAs: %v vs %v", *first, *second)
	}
}
