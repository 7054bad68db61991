package results

import (
	"context"
	"errors"
	"log"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/codeAKstan/gradesync-sub000/internal/shared"
)

// Approver flips a course cohort's grades from pending to approved and
// published, then recomputes every affected student's summary. The flip and
// the recompute run in one transaction so readers never observe published
// grades alongside stale GPAs.
type Approver struct {
	client           *mongo.Client
	db               *mongo.Database
	registrationsCol *mongo.Collection
	coursesCol       *mongo.Collection
	semestersCol     *mongo.Collection
	auditLogsCol     *mongo.Collection
	agg              *Aggregator
}

// NewApprover creates a new Approver instance
func NewApprover(client *mongo.Client, db *mongo.Database, agg *Aggregator) *Approver {
	return &Approver{
		client:           client,
		db:               db,
		registrationsCol: db.Collection(shared.ColRegistrations),
		coursesCol:       db.Collection(shared.ColCourses),
		semestersCol:     db.Collection(shared.ColSemesters),
		auditLogsCol:     db.Collection(shared.ColAuditLogs),
		agg:              agg,
	}
}

// ApprovalOutcome reports what an approval run touched.
type ApprovalOutcome struct {
	CourseID              string `json:"course_id"`
	CourseCode            string `json:"course_code"`
	Semester              string `json:"semester"`
	RegistrationsApproved int64  `json:"registrations_approved"`
	StudentsRecomputed    int    `json:"students_recomputed"`
}

// ApproveAndPublish approves and publishes every completed registration for
// the course in the given semester, then recomputes GPA and CGPA for each
// affected student. Re-running it on an already-approved cohort matches the
// same registrations and recomputes to identical values, so the operation is
// idempotent.
func (ap *Approver) ApproveAndPublish(ctx context.Context, courseID, semesterRef, actingAdminID string) (*ApprovalOutcome, error) {
	if courseID == "" {
		return nil, shared.InvalidArgumentf("course ID is required")
	}
	if actingAdminID == "" {
		return nil, shared.InvalidArgumentf("acting admin ID is required")
	}

	var course shared.Course
	err := ap.coursesCol.FindOne(ctx, bson.M{"_id": courseID}).Decode(&course)
	if err == mongo.ErrNoDocuments {
		return nil, shared.NotFoundf("course not found: %s", courseID)
	}
	if err != nil {
		return nil, shared.InternalWrap(err, "failed to retrieve course")
	}

	if semesterRef == "" {
		semesterRef = course.Semester
	}
	semesterName, err := shared.ResolveSemesterName(ctx, ap.semestersCol, semesterRef)
	if err != nil {
		return nil, err
	}

	cohortFilter := bson.M{
		"course_id": courseID,
		"semester":  semesterName,
		"status":    string(shared.StatusCompleted),
	}

	completed, err := ap.registrationsCol.CountDocuments(ctx, cohortFilter)
	if err != nil {
		return nil, shared.InternalWrap(err, "failed to count completed registrations")
	}
	if completed == 0 {
		return nil, shared.FailedPreconditionf("nothing to approve: no completed registrations for course %s in %s", course.Code, semesterName)
	}

	outcome := &ApprovalOutcome{
		CourseID:   courseID,
		CourseCode: course.Code,
		Semester:   semesterName,
	}

	now := time.Now()
	run := func(ctx context.Context) error {
		update := bson.M{"$set": bson.M{
			"approval_status": shared.ApprovalApproved,
			"is_published":    true,
			"approved_by":     actingAdminID,
			"approved_at":     now,
			"updated_at":      now,
		}}
		res, err := ap.registrationsCol.UpdateMany(ctx, cohortFilter, update)
		if err != nil {
			return shared.InternalWrap(err, "failed to approve registrations")
		}
		outcome.RegistrationsApproved = res.MatchedCount

		studentIDs, err := ap.cohortStudentIDs(ctx, cohortFilter)
		if err != nil {
			return err
		}

		for _, studentID := range studentIDs {
			if err := ap.agg.RecomputeStudent(ctx, studentID, semesterName); err != nil {
				return err
			}
		}
		outcome.StudentsRecomputed = len(studentIDs)
		return nil
	}

	err = shared.WithTransaction(ctx, ap.client, func(sessCtx mongo.SessionContext) error {
		return run(sessCtx)
	})
	if err != nil && transactionsUnsupported(err) {
		// Standalone mongod has no replica set, so fall back to the same
		// sequence without a transaction.
		log.Printf("WARN: transactions unavailable, approving without one: %v", err)
		err = run(ctx)
	}
	if err != nil {
		return nil, err
	}

	if logErr := shared.LogAuditEvent(ctx, ap.auditLogsCol, actingAdminID, shared.ActionApprovePublish, "registrations", map[string]interface{}{
		"course_id":              courseID,
		"course_code":            course.Code,
		"semester":               semesterName,
		"registrations_approved": outcome.RegistrationsApproved,
		"students_recomputed":    outcome.StudentsRecomputed,
	}); logErr != nil {
		log.Printf("WARN: failed to write audit log for approval: %v", logErr)
	}

	return outcome, nil
}

// cohortStudentIDs returns the distinct students behind the cohort filter,
// sorted for deterministic recompute order.
func (ap *Approver) cohortStudentIDs(ctx context.Context, filter bson.M) ([]string, error) {
	raw, err := ap.registrationsCol.Distinct(ctx, "student_id", filter)
	if err != nil {
		return nil, shared.InternalWrap(err, "failed to list cohort students")
	}

	ids := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			ids = append(ids, s)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// transactionsUnsupported reports whether the error means the deployment
// cannot run multi-document transactions at all (standalone server), as
// opposed to a transient transaction failure.
func transactionsUnsupported(err error) bool {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Code == 20 {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Transaction numbers are only allowed") ||
		strings.Contains(msg, "transactions are not supported")
}
