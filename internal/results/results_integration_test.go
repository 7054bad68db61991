package results

import (
	"context"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	"github.com/codeAKstan/gradesync-sub000/internal/shared"
)

// connectTestDB connects to the test MongoDB or skips the test when no
// server is reachable.
func connectTestDB(t *testing.T) (*mongo.Client, *mongo.Database) {
	t.Helper()

	cfg := shared.DefaultMongoConfig(
		shared.GetEnv("MONGO_URI", "mongodb://localhost:27017"), "gradesync_test")
	cfg.ConnectTimeout = 5 * time.Second

	client, db, err := shared.ConnectMongoDB(cfg)
	if err != nil {
		t.Skipf("MongoDB not available, skipping integration test: %v", err)
	}
	return client, db
}

const testSemester = "2024/2025 First Semester"

// seedCohort inserts a semester, a course, two students and their completed
// registrations, and returns the inserted IDs for cleanup.
func seedCohort(t *testing.T, db *mongo.Database) (courseID string, studentIDs []string) {
	t.Helper()
	ctx := context.Background()
	now := time.Now()

	count, err := db.Collection(shared.ColSemesters).CountDocuments(ctx, bson.M{"name": testSemester})
	if err != nil {
		t.Fatalf("failed to check semesters: %v", err)
	}
	if count == 0 {
		_, err = db.Collection(shared.ColSemesters).InsertOne(ctx, shared.Semester{
			ID:        shared.GenerateID("sem"),
			Name:      testSemester,
			IsCurrent: true,
			CreatedAt: now,
		})
		if err != nil {
			t.Fatalf("failed to seed semester: %v", err)
		}
	}

	courseID = shared.GenerateID("course")
	_, err = db.Collection(shared.ColCourses).InsertOne(ctx, shared.Course{
		ID:          courseID,
		Code:        "CSC101",
		Title:       "Introduction to Computer Science",
		CreditUnits: 3,
		Semester:    testSemester,
		CreatedAt:   now,
	})
	if err != nil {
		t.Fatalf("failed to seed course: %v", err)
	}

	grades := []struct {
		matric string
		grade  string
		point  float64
	}{
		{"2021/100001", "A", 5.0},
		{"2021/100002", "C", 3.0},
	}

	for _, g := range grades {
		studentID := shared.GenerateID("user")
		studentIDs = append(studentIDs, studentID)

		_, err = db.Collection(shared.ColUsers).InsertOne(ctx, shared.User{
			ID:           studentID,
			Email:        g.matric + "@test.example",
			Role:         shared.RoleStudent,
			Name:         "Test Student " + g.matric,
			MatricNumber: g.matric,
			IsActive:     true,
			CreatedAt:    now,
		})
		if err != nil {
			t.Fatalf("failed to seed student: %v", err)
		}

		grade, point := g.grade, g.point
		_, err = db.Collection(shared.ColRegistrations).InsertOne(ctx, shared.Registration{
			ID:             shared.GenerateRegistrationID(),
			StudentID:      studentID,
			CourseID:       courseID,
			Semester:       testSemester,
			Status:         shared.StatusCompleted,
			Grade:          &grade,
			GradePoint:     &point,
			ApprovalStatus: shared.ApprovalPending,
			IsPublished:    false,
			CreatedAt:      now,
		})
		if err != nil {
			t.Fatalf("failed to seed registration: %v", err)
		}
	}

	return courseID, studentIDs
}

func cleanupCohort(db *mongo.Database, courseID string, studentIDs []string) {
	ctx := context.Background()
	db.Collection(shared.ColCourses).DeleteOne(ctx, bson.M{"_id": courseID})
	db.Collection(shared.ColRegistrations).DeleteMany(ctx, bson.M{"course_id": courseID})
	db.Collection(shared.ColUsers).DeleteMany(ctx, bson.M{"_id": bson.M{"$in": studentIDs}})
	db.Collection(shared.ColResultSummaries).DeleteMany(ctx, bson.M{"student_id": bson.M{"$in": studentIDs}})
}

func TestApprovalPipeline_Integration(t *testing.T) {
	client, db := connectTestDB(t)
	defer shared.DisconnectMongoDB(client)

	courseID, studentIDs := seedCohort(t, db)
	defer cleanupCohort(db, courseID, studentIDs)

	ctx := context.Background()
	agg := NewAggregator(db)
	approver := NewApprover(client, db, agg)
	reader := NewReader(db)

	// --- Before approval: grades are redacted for the student ---
	before, err := reader.StudentResults(ctx, studentIDs[0], "")
	if err != nil {
		t.Fatalf("StudentResults before approval failed: %v", err)
	}
	if len(before) != 1 {
		t.Fatalf("expected 1 semester before approval, got %d", len(before))
	}
	if len(before[0].Courses) != 1 {
		t.Fatalf("expected 1 course entry, got %d", len(before[0].Courses))
	}
	if before[0].Courses[0].Grade != nil {
		t.Errorf("expected redacted grade before approval, got %v", *before[0].Courses[0].Grade)
	}
	if before[0].Courses[0].Status != shared.StatusCompleted {
		t.Errorf("status should remain visible, got %s", before[0].Courses[0].Status)
	}

	// --- Staff view sees grades regardless of publication ---
	staff, err := reader.CourseResults(ctx, courseID, "")
	if err != nil {
		t.Fatalf("CourseResults failed: %v", err)
	}
	if staff.Total != 2 || staff.Completed != 2 || staff.Published != 0 {
		t.Errorf("unexpected staff counts: total=%d completed=%d published=%d",
			staff.Total, staff.Completed, staff.Published)
	}
	if staff.Entries[0].Grade == nil {
		t.Error("staff view must not redact grades")
	}

	// --- Approve and publish ---
	outcome, err := approver.ApproveAndPublish(ctx, courseID, "", "test_admin")
	if err != nil {
		t.Fatalf("ApproveAndPublish failed: %v", err)
	}
	if outcome.RegistrationsApproved != 2 {
		t.Errorf("expected 2 approved registrations, got %d", outcome.RegistrationsApproved)
	}
	if outcome.StudentsRecomputed != 2 {
		t.Errorf("expected 2 recomputed students, got %d", outcome.StudentsRecomputed)
	}

	// --- After approval: grade visible, GPA computed ---
	after, err := reader.StudentResults(ctx, studentIDs[0], testSemester)
	if err != nil {
		t.Fatalf("StudentResults after approval failed: %v", err)
	}
	if len(after) != 1 {
		t.Fatalf("expected 1 semester after approval, got %d", len(after))
	}
	entry := after[0].Courses[0]
	if entry.Grade == nil || *entry.Grade != "A" {
		t.Errorf("expected published grade A, got %v", entry.Grade)
	}
	if after[0].Summary == nil {
		t.Fatal("expected a result summary after approval")
	}
	if after[0].Summary.GPA == nil || *after[0].Summary.GPA != 5.0 {
		t.Errorf("expected GPA 5.0 for single 3-unit A, got %v", after[0].Summary.GPA)
	}
	if after[0].Summary.TotalUnits != 3 {
		t.Errorf("expected 3 total units, got %d", after[0].Summary.TotalUnits)
	}

	// --- Re-running approval is idempotent ---
	again, err := approver.ApproveAndPublish(ctx, courseID, "", "test_admin")
	if err != nil {
		t.Fatalf("second ApproveAndPublish failed: %v", err)
	}
	if again.RegistrationsApproved != 2 {
		t.Errorf("expected idempotent re-approval to match 2, got %d", again.RegistrationsApproved)
	}

	rerun, err := reader.StudentResults(ctx, studentIDs[0], testSemester)
	if err != nil {
		t.Fatalf("StudentResults after re-approval failed: %v", err)
	}
	if *rerun[0].Summary.GPA != *after[0].Summary.GPA {
		t.Errorf("re-approval changed GPA: %v -> %v", *after[0].Summary.GPA, *rerun[0].Summary.GPA)
	}
}

func TestApproveAndPublish_NothingToApprove(t *testing.T) {
	client, db := connectTestDB(t)
	defer shared.DisconnectMongoDB(client)

	ctx := context.Background()
	now := time.Now()

	courseID := shared.GenerateID("course")
	_, err := db.Collection(shared.ColCourses).InsertOne(ctx, shared.Course{
		ID:          courseID,
		Code:        "CSC999",
		Title:       "Empty Offering",
		CreditUnits: 2,
		Semester:    testSemester,
		CreatedAt:   now,
	})
	if err != nil {
		t.Fatalf("failed to seed course: %v", err)
	}
	defer db.Collection(shared.ColCourses).DeleteOne(ctx, bson.M{"_id": courseID})

	approver := NewApprover(client, db, NewAggregator(db))
	_, err = approver.ApproveAndPublish(ctx, courseID, testSemester, "test_admin")
	if err == nil {
		t.Fatal("expected error for cohort with no completed registrations")
	}
	if shared.KindOf(err) != shared.KindFailedPrecondition {
		t.Errorf("expected failed-precondition error, got kind %v: %v", shared.KindOf(err), err)
	}
}

func TestRecomputeStudent_ConcurrentUpsert(t *testing.T) {
	client, db := connectTestDB(t)
	defer shared.DisconnectMongoDB(client)

	// The unique (student_id, semester) index is what the racing upserts
	// collide on.
	if err := shared.EnsureIndexes(context.Background(), db); err != nil {
		t.Fatalf("EnsureIndexes failed: %v", err)
	}

	courseID, studentIDs := seedCohort(t, db)
	defer cleanupCohort(db, courseID, studentIDs)

	ctx := context.Background()
	studentID := studentIDs[0]
	db.Collection(shared.ColResultSummaries).DeleteMany(ctx, bson.M{"student_id": studentID})

	agg := NewAggregator(db)

	var g errgroup.Group
	for i := 0; i < 4; i++ {
		g.Go(func() error {
			return agg.RecomputeStudent(ctx, studentID, testSemester)
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent recompute failed: %v", err)
	}

	count, err := db.Collection(shared.ColResultSummaries).
		CountDocuments(ctx, bson.M{"student_id": studentID, "semester": testSemester})
	if err != nil {
		t.Fatalf("failed to count summaries: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one summary document, got %d", count)
	}

	var summary shared.ResultSummary
	err = db.Collection(shared.ColResultSummaries).
		FindOne(ctx, bson.M{"student_id": studentID, "semester": testSemester}).
		Decode(&summary)
	if err != nil {
		t.Fatalf("failed to load summary: %v", err)
	}
	if summary.GPA == nil || *summary.GPA != 5.0 {
		t.Errorf("expected GPA 5.0, got %v", summary.GPA)
	}
}
