// Package results computes semester GPA and cumulative CGPA from completed
// registrations, drives the approval/publication step, and serves the
// student-facing result view.
package results

import (
	"context"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/codeAKstan/gradesync-sub000/internal/shared"
)

// CreditedPoint is one completed registration reduced to the two numbers
// GPA arithmetic needs.
type CreditedPoint struct {
	Units int32
	Point float64
}

// Accumulate folds credited points into the weighted-average accumulators.
// The average is sum(point*units)/sum(units) rounded to 2 decimal places;
// it is nil when the total units are zero, meaning "no computable GPA",
// never zero.
func Accumulate(points []CreditedPoint) (totalUnits int32, totalWeighted float64, avg *float64) {
	for _, p := range points {
		totalUnits += p.Units
		totalWeighted += p.Point * float64(p.Units)
	}

	if totalUnits == 0 {
		return 0, 0, nil
	}

	rounded := math.Round(totalWeighted/float64(totalUnits)*100) / 100
	return totalUnits, totalWeighted, &rounded
}

// Computation is the result of one semester-GPA computation, with the
// accumulator values persisted for auditability.
type Computation struct {
	GPA                 *float64
	TotalUnits          int32
	TotalWeightedPoints float64
}

// Aggregator recomputes GPA/CGPA from scratch on every run. Full rescans
// cost a collection pass per approval cycle but stay correct under
// retroactive grade corrections.
type Aggregator struct {
	db               *mongo.Database
	registrationsCol *mongo.Collection
	coursesCol       *mongo.Collection
	summariesCol     *mongo.Collection
}

// NewAggregator creates a new Aggregator instance
func NewAggregator(db *mongo.Database) *Aggregator {
	return &Aggregator{
		db:               db,
		registrationsCol: db.Collection(shared.ColRegistrations),
		coursesCol:       db.Collection(shared.ColCourses),
		summariesCol:     db.Collection(shared.ColResultSummaries),
	}
}

// ComputeSemesterGPA computes the weighted GPA over the student's completed
// registrations in one semester.
func (a *Aggregator) ComputeSemesterGPA(ctx context.Context, studentID, semesterName string) (Computation, error) {
	points, err := a.completedPoints(ctx, studentID, semesterName)
	if err != nil {
		return Computation{}, err
	}

	units, weighted, gpa := Accumulate(points)
	return Computation{GPA: gpa, TotalUnits: units, TotalWeightedPoints: weighted}, nil
}

// ComputeCGPA computes the weighted average over all of the student's
// completed registrations regardless of semester.
func (a *Aggregator) ComputeCGPA(ctx context.Context, studentID string) (*float64, error) {
	points, err := a.completedPoints(ctx, studentID, "")
	if err != nil {
		return nil, err
	}

	_, _, cgpa := Accumulate(points)
	return cgpa, nil
}

// UpsertSummary writes the ResultSummary keyed by (student, semester),
// creating it on first touch and overwriting every computed field after.
// Calling it twice with unchanged underlying data stores identical values.
func (a *Aggregator) UpsertSummary(ctx context.Context, studentID, semesterName string, comp Computation, cgpa *float64) error {
	now := time.Now()

	set := bson.M{
		"student_id":            studentID,
		"semester":              semesterName,
		"total_units":           comp.TotalUnits,
		"total_weighted_points": comp.TotalWeightedPoints,
		"computed_at":           now,
		"updated_at":            now,
	}
	unset := bson.M{}
	if comp.GPA != nil {
		set["gpa"] = *comp.GPA
	} else {
		unset["gpa"] = ""
	}
	if cgpa != nil {
		set["cgpa"] = *cgpa
	} else {
		unset["cgpa"] = ""
	}

	update := bson.M{
		"$set": set,
		"$setOnInsert": bson.M{
			"_id":        shared.GenerateSummaryID(),
			"created_at": now,
		},
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"student_id": studentID, "semester": semesterName}
	_, err := a.summariesCol.UpdateOne(ctx, filter, update, opts)
	if mongo.IsDuplicateKeyError(err) {
		// Two concurrent recomputes can both miss the summary and race the
		// unique (student_id, semester) index on insert. The loser retries
		// once, matching the now-existing document; last writer wins.
		_, err = a.summariesCol.UpdateOne(ctx, filter, update, opts)
	}
	if err != nil {
		return shared.InternalWrap(err, "failed to upsert result summary")
	}

	return nil
}

// RecomputeStudent recomputes the semester GPA and the running CGPA for one
// student and upserts the summary record. Used by the approval gate for
// every student in a just-approved cohort.
func (a *Aggregator) RecomputeStudent(ctx context.Context, studentID, semesterName string) error {
	comp, err := a.ComputeSemesterGPA(ctx, studentID, semesterName)
	if err != nil {
		return err
	}

	cgpa, err := a.ComputeCGPA(ctx, studentID)
	if err != nil {
		return err
	}

	return a.UpsertSummary(ctx, studentID, semesterName, comp, cgpa)
}

// completedPoints loads the student's completed registrations (optionally
// restricted to one semester) joined with course credit units.
func (a *Aggregator) completedPoints(ctx context.Context, studentID, semesterName string) ([]CreditedPoint, error) {
	filter := bson.M{
		"student_id": studentID,
		"status":     string(shared.StatusCompleted),
	}
	if semesterName != "" {
		filter["semester"] = semesterName
	}

	cursor, err := a.registrationsCol.Find(ctx, filter)
	if err != nil {
		return nil, shared.InternalWrap(err, "failed to retrieve registrations")
	}
	defer cursor.Close(ctx)

	var regs []shared.Registration
	courseIDSet := map[string]bool{}
	for cursor.Next(ctx) {
		var reg shared.Registration
		if err := cursor.Decode(&reg); err != nil {
			continue
		}
		if reg.GradePoint == nil {
			// Completed without a grade point would violate the ledger
			// invariant; leave it out of the accumulator.
			continue
		}
		regs = append(regs, reg)
		courseIDSet[reg.CourseID] = true
	}

	units, err := a.courseUnits(ctx, courseIDSet)
	if err != nil {
		return nil, err
	}

	var points []CreditedPoint
	for _, reg := range regs {
		u, ok := units[reg.CourseID]
		if !ok {
			continue
		}
		points = append(points, CreditedPoint{Units: u, Point: *reg.GradePoint})
	}

	return points, nil
}

func (a *Aggregator) courseUnits(ctx context.Context, courseIDSet map[string]bool) (map[string]int32, error) {
	units := map[string]int32{}
	if len(courseIDSet) == 0 {
		return units, nil
	}

	ids := make([]string, 0, len(courseIDSet))
	for id := range courseIDSet {
		ids = append(ids, id)
	}

	cursor, err := a.coursesCol.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, shared.InternalWrap(err, "failed to retrieve courses")
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var course shared.Course
		if err := cursor.Decode(&course); err != nil {
			continue
		}
		units[course.ID] = course.CreditUnits
	}

	return units, nil
}
