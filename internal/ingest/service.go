// Package ingest validates and applies lecturer-submitted score sheets
// against the registration ledger for one (course, semester) cohort.
package ingest

import (
	"bytes"
	"context"
	"io"
	"log"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/codeAKstan/gradesync-sub000/internal/shared"
)

// Service applies score batches to the registration ledger.
type Service struct {
	db               *mongo.Database
	registrationsCol *mongo.Collection
	coursesCol       *mongo.Collection
	usersCol         *mongo.Collection
	semestersCol     *mongo.Collection
	auditLogsCol     *mongo.Collection
	policy           shared.GradingConfig
}

// NewService creates a new ingestion Service instance
func NewService(db *mongo.Database, policy shared.GradingConfig) *Service {
	return &Service{
		db:               db,
		registrationsCol: db.Collection(shared.ColRegistrations),
		coursesCol:       db.Collection(shared.ColCourses),
		usersCol:         db.Collection(shared.ColUsers),
		semestersCol:     db.Collection(shared.ColSemesters),
		auditLogsCol:     db.Collection(shared.ColAuditLogs),
		policy:           policy,
	}
}

// ImportScores validates a submitted score sheet against the (course,
// semester) cohort and, only when every row passes, applies all grades in a
// single bulk write: grade, grade point, status completed. It never touches
// the publication flags unless the unpublish-on-reupload policy is enabled.
// Returns the number of registrations updated.
func (s *Service) ImportScores(ctx context.Context, courseID, semesterRef, actingLecturerID string, sheet io.Reader) (int64, error) {
	if courseID == "" {
		return 0, shared.InvalidArgumentf("course_id is required")
	}

	queryCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	course, err := s.findCourse(queryCtx, courseID)
	if err != nil {
		return 0, err
	}

	if semesterRef == "" {
		semesterRef = course.Semester
	}
	semesterName, err := shared.ResolveSemesterName(queryCtx, s.semestersCol, semesterRef)
	if err != nil {
		return 0, err
	}

	rows, err := ParseScoreSheet(sheet)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, shared.InvalidArgumentf("score sheet has no data rows")
	}

	cohort, err := s.loadCohort(queryCtx, course, semesterName)
	if err != nil {
		return 0, err
	}

	updates, rowErrs := ValidateRows(rows, cohort)
	if len(rowErrs) > 0 {
		return 0, rowErrs
	}

	updated, err := s.applyUpdates(queryCtx, updates)
	if err != nil {
		return 0, shared.InternalWrap(err, "failed to apply score batch")
	}

	shared.LogAuditEvent(queryCtx, s.auditLogsCol, actingLecturerID, shared.ActionScoreImport, courseID, map[string]interface{}{
		"semester": semesterName,
		"rows":     len(rows),
		"updated":  updated,
	})

	log.Printf("Imported %d scores for course %s (%s)", updated, course.Code, semesterName)
	return updated, nil
}

// Template renders the CSV score sheet for a cohort with one prefilled row
// per non-dropped registration and an empty score column.
func (s *Service) Template(ctx context.Context, courseID, semesterRef string) ([]byte, string, error) {
	queryCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	course, err := s.findCourse(queryCtx, courseID)
	if err != nil {
		return nil, "", err
	}

	if semesterRef == "" {
		semesterRef = course.Semester
	}
	semesterName, err := shared.ResolveSemesterName(queryCtx, s.semestersCol, semesterRef)
	if err != nil {
		return nil, "", err
	}

	entries, err := s.cohortEntries(queryCtx, courseID, semesterName)
	if err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	if err := WriteTemplate(&buf, course.Code, entries); err != nil {
		return nil, "", shared.InternalWrap(err, "failed to render template")
	}

	return buf.Bytes(), course.Code, nil
}

// ============================================================================
// Internal Helpers
// ============================================================================

func (s *Service) findCourse(ctx context.Context, courseID string) (*shared.Course, error) {
	var course shared.Course
	err := s.coursesCol.FindOne(ctx, bson.M{"_id": courseID}).Decode(&course)
	if err == mongo.ErrNoDocuments {
		return nil, shared.NotFoundf("course %s not found", courseID)
	}
	if err != nil {
		return nil, shared.InternalWrap(err, "failed to retrieve course")
	}
	return &course, nil
}

// loadCohort builds the validation context: matric number -> registration ID
// for every non-dropped registration of the (course, semester) pair.
func (s *Service) loadCohort(ctx context.Context, course *shared.Course, semesterName string) (Cohort, error) {
	cohort := Cohort{
		CourseCode: course.Code,
		Registered: map[string]string{},
	}

	filter := bson.M{
		"course_id": course.ID,
		"semester":  semesterName,
		"status":    bson.M{"$ne": string(shared.StatusDropped)},
	}

	cursor, err := s.registrationsCol.Find(ctx, filter)
	if err != nil {
		return cohort, shared.InternalWrap(err, "failed to retrieve registrations")
	}
	defer cursor.Close(ctx)

	regByStudent := map[string]string{} // student ID -> registration ID
	var studentIDs []string
	for cursor.Next(ctx) {
		var reg shared.Registration
		if err := cursor.Decode(&reg); err != nil {
			continue
		}
		regByStudent[reg.StudentID] = reg.ID
		studentIDs = append(studentIDs, reg.StudentID)
	}

	if len(studentIDs) == 0 {
		return cohort, nil
	}

	userCursor, err := s.usersCol.Find(ctx, bson.M{"_id": bson.M{"$in": studentIDs}})
	if err != nil {
		return cohort, shared.InternalWrap(err, "failed to retrieve students")
	}
	defer userCursor.Close(ctx)

	for userCursor.Next(ctx) {
		var user shared.User
		if err := userCursor.Decode(&user); err != nil {
			continue
		}
		if user.MatricNumber == "" {
			continue
		}
		if regID, ok := regByStudent[user.ID]; ok {
			cohort.Registered[user.MatricNumber] = regID
		}
	}

	return cohort, nil
}

// applyUpdates writes the whole validated batch as one BulkWrite so readers
// never observe the batch half-applied beyond the single write's duration.
func (s *Service) applyUpdates(ctx context.Context, updates []Update) (int64, error) {
	if len(updates) == 0 {
		return 0, nil
	}

	now := time.Now()
	models := make([]mongo.WriteModel, 0, len(updates))
	for _, u := range updates {
		set := bson.M{
			"grade":       u.Grade,
			"grade_point": u.GradePoint,
			"status":      string(shared.StatusCompleted),
			"updated_at":  now,
		}
		if s.policy.UnpublishOnReupload {
			// Corrected grades go back through approval before students
			// can see them.
			set["approval_status"] = shared.ApprovalPending
			set["is_published"] = false
		}

		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": u.RegistrationID}).
			SetUpdate(bson.M{"$set": set}))
	}

	result, err := s.registrationsCol.BulkWrite(ctx, models)
	if err != nil {
		return 0, err
	}

	return result.MatchedCount, nil
}

// cohortEntries lists the non-dropped registrations of a cohort with the
// student identity attached, sorted by matric number.
func (s *Service) cohortEntries(ctx context.Context, courseID, semesterName string) ([]shared.CohortEntry, error) {
	filter := bson.M{
		"course_id": courseID,
		"semester":  semesterName,
		"status":    bson.M{"$ne": string(shared.StatusDropped)},
	}

	cursor, err := s.registrationsCol.Find(ctx, filter)
	if err != nil {
		return nil, shared.InternalWrap(err, "failed to retrieve registrations")
	}
	defer cursor.Close(ctx)

	var entries []shared.CohortEntry
	for cursor.Next(ctx) {
		var reg shared.Registration
		if err := cursor.Decode(&reg); err != nil {
			continue
		}

		var student shared.User
		if err := s.usersCol.FindOne(ctx, bson.M{"_id": reg.StudentID}).Decode(&student); err != nil {
			log.Printf("Warning: student %s for registration %s not found", reg.StudentID, reg.ID)
			continue
		}

		entries = append(entries, shared.CohortEntry{
			RegistrationID: reg.ID,
			StudentID:      student.ID,
			MatricNumber:   student.MatricNumber,
			StudentName:    student.Name,
			Status:         reg.Status,
			Grade:          reg.Grade,
			GradePoint:     reg.GradePoint,
			ApprovalStatus: reg.ApprovalStatus,
			IsPublished:    reg.IsPublished,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].MatricNumber < entries[j].MatricNumber
	})
	return entries, nil
}
