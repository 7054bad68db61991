package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

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

// seedLedger inserts a semester, a course with the given code, and one
// registered (ungraded) registration per matric number.
func seedLedger(t *testing.T, db *mongo.Database, courseCode string, matrics []string) (courseID string, studentIDs []string) {
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
		Code:        courseCode,
		Title:       "Data Structures",
		CreditUnits: 3,
		Semester:    testSemester,
		CreatedAt:   now,
	})
	if err != nil {
		t.Fatalf("failed to seed course: %v", err)
	}

	for _, matric := range matrics {
		studentID := shared.GenerateID("user")
		studentIDs = append(studentIDs, studentID)

		_, err = db.Collection(shared.ColUsers).InsertOne(ctx, shared.User{
			ID:           studentID,
			Email:        matric + "@test.example",
			Role:         shared.RoleStudent,
			Name:         "Test Student " + matric,
			MatricNumber: matric,
			IsActive:     true,
			CreatedAt:    now,
		})
		if err != nil {
			t.Fatalf("failed to seed student: %v", err)
		}

		_, err = db.Collection(shared.ColRegistrations).InsertOne(ctx, shared.Registration{
			ID:             shared.GenerateRegistrationID(),
			StudentID:      studentID,
			CourseID:       courseID,
			Semester:       testSemester,
			Status:         shared.StatusRegistered,
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

func cleanupLedger(db *mongo.Database, courseID string, studentIDs []string) {
	ctx := context.Background()
	db.Collection(shared.ColCourses).DeleteOne(ctx, bson.M{"_id": courseID})
	db.Collection(shared.ColRegistrations).DeleteMany(ctx, bson.M{"course_id": courseID})
	db.Collection(shared.ColUsers).DeleteMany(ctx, bson.M{"_id": bson.M{"$in": studentIDs}})
}

func loadRegistration(t *testing.T, db *mongo.Database, courseID, studentID string) shared.Registration {
	t.Helper()
	var reg shared.Registration
	err := db.Collection(shared.ColRegistrations).
		FindOne(context.Background(), bson.M{"course_id": courseID, "student_id": studentID}).
		Decode(&reg)
	if err != nil {
		t.Fatalf("failed to load registration: %v", err)
	}
	return reg
}

func TestImportScores_Integration(t *testing.T) {
	client, db := connectTestDB(t)
	defer shared.DisconnectMongoDB(client)

	matrics := []string{"2021/300001", "2021/300002"}
	courseID, studentIDs := seedLedger(t, db, "CSC150", matrics)
	defer cleanupLedger(db, courseID, studentIDs)

	ctx := context.Background()
	svc := NewService(db, shared.GradingConfig{})

	sheet := "CourseCode,MatricNumber,StudentName,Score\n" +
		"CSC150,2021/300001,Ada Obi,72\n" +
		"CSC150,2021/300002,Chidi Eze,55\n"

	// Empty semester reference falls back to the course's own semester.
	updated, err := svc.ImportScores(ctx, courseID, "", "user_lect-001", strings.NewReader(sheet))
	if err != nil {
		t.Fatalf("ImportScores failed: %v", err)
	}
	if updated != 2 {
		t.Fatalf("expected 2 registrations updated, got %d", updated)
	}

	want := []struct {
		grade string
		point float64
	}{
		{"A", 5.0},
		{"C", 3.0},
	}
	for i, studentID := range studentIDs {
		reg := loadRegistration(t, db, courseID, studentID)
		if reg.Status != shared.StatusCompleted {
			t.Errorf("student %d: expected status completed, got %s", i, reg.Status)
		}
		if reg.Grade == nil || *reg.Grade != want[i].grade {
			t.Errorf("student %d: expected grade %s, got %v", i, want[i].grade, reg.Grade)
		}
		if reg.GradePoint == nil || *reg.GradePoint != want[i].point {
			t.Errorf("student %d: expected grade point %.1f, got %v", i, want[i].point, reg.GradePoint)
		}
		if reg.IsPublished || reg.ApprovalStatus != shared.ApprovalPending {
			t.Errorf("student %d: fresh import must stay unpublished and pending", i)
		}
	}
}

func TestImportScores_InvalidBatchLeavesLedgerUntouched(t *testing.T) {
	client, db := connectTestDB(t)
	defer shared.DisconnectMongoDB(client)

	matrics := []string{"2021/300011", "2021/300012"}
	courseID, studentIDs := seedLedger(t, db, "CSC151", matrics)
	defer cleanupLedger(db, courseID, studentIDs)

	ctx := context.Background()
	svc := NewService(db, shared.GradingConfig{})

	sheet := "CourseCode,MatricNumber,StudentName,Score\n" +
		"CSC151,2021/300011,Ada Obi,72\n" +
		"CSC151,2021-300012,Chidi Eze,55\n"

	_, err := svc.ImportScores(ctx, courseID, testSemester, "user_lect-001", strings.NewReader(sheet))
	var verrs shared.ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected ValidationErrors, got %v", err)
	}
	if len(verrs) != 1 || verrs[0].Row != 3 || verrs[0].Field != "matric_number" {
		t.Fatalf("expected one matric error on row 3, got %+v", verrs)
	}

	// The valid row must not be applied either: the batch is all-or-nothing.
	for i, studentID := range studentIDs {
		reg := loadRegistration(t, db, courseID, studentID)
		if reg.Status != shared.StatusRegistered {
			t.Errorf("student %d: expected status registered, got %s", i, reg.Status)
		}
		if reg.Grade != nil || reg.GradePoint != nil {
			t.Errorf("student %d: expected no grade, got %v/%v", i, reg.Grade, reg.GradePoint)
		}
	}
}

func TestImportScores_ReuploadAfterPublish(t *testing.T) {
	client, db := connectTestDB(t)
	defer shared.DisconnectMongoDB(client)

	matrics := []string{"2021/300021"}
	courseID, studentIDs := seedLedger(t, db, "CSC152", matrics)
	defer cleanupLedger(db, courseID, studentIDs)

	ctx := context.Background()
	studentID := studentIDs[0]

	sheetFor := func(score string) *strings.Reader {
		return strings.NewReader("CourseCode,MatricNumber,StudentName,Score\n" +
			"CSC152,2021/300021,Ada Obi," + score + "\n")
	}

	svc := NewService(db, shared.GradingConfig{})
	if _, err := svc.ImportScores(ctx, courseID, testSemester, "user_lect-001", sheetFor("72")); err != nil {
		t.Fatalf("initial import failed: %v", err)
	}

	_, err := db.Collection(shared.ColRegistrations).UpdateMany(ctx,
		bson.M{"course_id": courseID, "semester": testSemester},
		bson.M{"$set": bson.M{
			"approval_status": shared.ApprovalApproved,
			"is_published":    true,
		}})
	if err != nil {
		t.Fatalf("failed to publish cohort: %v", err)
	}

	// Default policy: a corrected grade stays published until the next
	// approval run.
	if _, err := svc.ImportScores(ctx, courseID, testSemester, "user_lect-001", sheetFor("65")); err != nil {
		t.Fatalf("re-import failed: %v", err)
	}
	reg := loadRegistration(t, db, courseID, studentID)
	if reg.Grade == nil || *reg.Grade != "B" {
		t.Fatalf("expected corrected grade B, got %v", reg.Grade)
	}
	if !reg.IsPublished || reg.ApprovalStatus != shared.ApprovalApproved {
		t.Error("default policy must leave publication flags untouched on re-import")
	}

	// Unpublish-on-reupload: the correction goes back through approval.
	strict := NewService(db, shared.GradingConfig{UnpublishOnReupload: true})
	if _, err := strict.ImportScores(ctx, courseID, testSemester, "user_lect-001", sheetFor("55")); err != nil {
		t.Fatalf("re-import failed: %v", err)
	}
	reg = loadRegistration(t, db, courseID, studentID)
	if reg.Grade == nil || *reg.Grade != "C" {
		t.Fatalf("expected corrected grade C, got %v", reg.Grade)
	}
	if reg.IsPublished || reg.ApprovalStatus != shared.ApprovalPending {
		t.Error("unpublish-on-reupload must reset the publication flags on re-import")
	}
}
