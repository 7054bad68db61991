package registration

import (
	"context"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/codeAKstan/gradesync-sub000/internal/shared"
)

const testSemester = "2024/2025 First Semester"

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

func seedBasics(t *testing.T, db *mongo.Database) (studentID, courseID string) {
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

	studentID = shared.GenerateID("user")
	_, err = db.Collection(shared.ColUsers).InsertOne(ctx, shared.User{
		ID:           studentID,
		Email:        studentID + "@test.example",
		Role:         shared.RoleStudent,
		Name:         "Ledger Test Student",
		MatricNumber: "2021/999001",
		IsActive:     true,
		CreatedAt:    now,
	})
	if err != nil {
		t.Fatalf("failed to seed student: %v", err)
	}

	courseID = shared.GenerateID("course")
	_, err = db.Collection(shared.ColCourses).InsertOne(ctx, shared.Course{
		ID:          courseID,
		Code:        "CSC777",
		Title:       "Ledger Test Course",
		CreditUnits: 3,
		Semester:    testSemester,
		CreatedAt:   now,
	})
	if err != nil {
		t.Fatalf("failed to seed course: %v", err)
	}

	return studentID, courseID
}

func cleanupBasics(db *mongo.Database, studentID, courseID string) {
	ctx := context.Background()
	db.Collection(shared.ColUsers).DeleteOne(ctx, bson.M{"_id": studentID})
	db.Collection(shared.ColCourses).DeleteOne(ctx, bson.M{"_id": courseID})
	db.Collection(shared.ColRegistrations).DeleteMany(ctx, bson.M{"student_id": studentID})
}

func TestLedger_Integration(t *testing.T) {
	client, db := connectTestDB(t)
	defer shared.DisconnectMongoDB(client)

	studentID, courseID := seedBasics(t, db)
	defer cleanupBasics(db, studentID, courseID)

	ctx := context.Background()
	svc := NewService(db)

	// Register (semester defaults to the course's)
	reg, err := svc.Register(ctx, studentID, courseID, "")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if reg.Status != shared.StatusRegistered {
		t.Errorf("expected registered status, got %s", reg.Status)
	}
	if reg.Semester != testSemester {
		t.Errorf("expected semester %q, got %q", testSemester, reg.Semester)
	}

	// Duplicate registration for the same tuple is a conflict
	_, err = svc.Register(ctx, studentID, courseID, testSemester)
	if err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
	if shared.KindOf(err) != shared.KindAlreadyExists {
		t.Errorf("expected already-exists error, got kind %v: %v", shared.KindOf(err), err)
	}

	// Listing shows one entry with course details joined
	list, err := svc.StudentRegistrations(ctx, studentID, testSemester)
	if err != nil {
		t.Fatalf("StudentRegistrations failed: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 registration, got %d", len(list))
	}
	if list[0].CourseCode != "CSC777" || list[0].CreditUnits != 3 {
		t.Errorf("course details not joined: %+v", list[0])
	}

	// Only the owner can drop
	_, err = svc.Drop(ctx, reg.ID, "someone_else")
	if shared.KindOf(err) != shared.KindPermissionDenied {
		t.Errorf("expected permission-denied for foreign drop, got %v", err)
	}

	// Drop, then re-registering creates a fresh entry
	dropped, err := svc.Drop(ctx, reg.ID, studentID)
	if err != nil {
		t.Fatalf("Drop failed: %v", err)
	}
	if dropped.Status != shared.StatusDropped {
		t.Errorf("expected dropped status, got %s", dropped.Status)
	}

	// Dropping again fails: dropped is terminal
	_, err = svc.Drop(ctx, reg.ID, studentID)
	if shared.KindOf(err) != shared.KindFailedPrecondition {
		t.Errorf("expected failed-precondition on double drop, got %v", err)
	}

	second, err := svc.Register(ctx, studentID, courseID, testSemester)
	if err != nil {
		t.Fatalf("re-register after drop failed: %v", err)
	}
	if second.ID == reg.ID {
		t.Error("re-registration should create a fresh ledger entry")
	}
}
