package main

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"

	"github.com/codeAKstan/gradesync-sub000/internal/shared"
)

// Fixed IDs so repeated seeding is stable and the frontend devs can hardcode
// test logins.
const (
	AdminID     = "user_admin-001"
	LecturerID1 = "user_lecturer-001"
	LecturerID2 = "user_lecturer-002"
	StudentID1  = "user_student-001"
	StudentID2  = "user_student-002"
	StudentID3  = "user_student-003"

	CommonPassword = "password"

	CurrentSemester  = "2024/2025 First Semester"
	PreviousSemester = "2023/2024 Second Semester"

	CSCDeptID  = "dept_csc-001"
	MTHDeptID  = "dept_mth-001"
	SessionID  = "acad_2024-2025"
	CSC101ID   = "course_csc101-2024-1"
	CSC201ID   = "course_csc201-2024-1"
	MTH101ID   = "course_mth101-2024-1"
	CSC102Prev = "course_csc102-2023-2"
)

// CourseSeed keeps the course rows compact
type CourseSeed struct {
	ID           string
	Code         string
	Title        string
	Units        int32
	DepartmentID string
	LecturerID   string
	Semester     string
}

// RegistrationSeed keeps the ledger rows compact
type RegistrationSeed struct {
	StudentID string
	CourseID  string
	Semester  string
	Status    shared.RegistrationStatus
	Grade     string  // only for completed
	Point     float64 // only for completed
	Published bool
}

func main() {
	log.Println("Starting database seeder...")

	if err := shared.LoadEnv(".env"); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	cfg, err := shared.LoadAppConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if shared.IsProduction(cfg) {
		log.Fatal("Refusing to seed a production database")
	}

	client, db, err := shared.ConnectMongoDB(&cfg.MongoDB)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer shared.DisconnectMongoDB(client)

	// Clean start
	if err := db.Drop(context.Background()); err != nil {
		log.Fatalf("Failed to drop database: %v", err)
	}
	log.Println("Database cleared successfully.")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := shared.EnsureIndexes(ctx, db); err != nil {
		log.Fatalf("Failed to ensure indexes: %v", err)
	}

	seedDepartments(ctx, db)
	seedPeriods(ctx, db)
	seedUsers(ctx, db, cfg.Security.BCryptCost)

	courseSeeds := []CourseSeed{
		{CSC101ID, "CSC101", "Introduction to Computer Science", 3, CSCDeptID, LecturerID1, CurrentSemester},
		{CSC201ID, "CSC201", "Data Structures", 3, CSCDeptID, LecturerID1, CurrentSemester},
		{MTH101ID, "MTH101", "Calculus I", 4, MTHDeptID, LecturerID2, CurrentSemester},
		{CSC102Prev, "CSC102", "Introduction to Programming", 3, CSCDeptID, LecturerID1, PreviousSemester},
	}
	seedCourses(ctx, db, courseSeeds)

	registrationSeeds := []RegistrationSeed{
		// Last semester: published grades so CGPA differs from GPA
		{StudentID1, CSC102Prev, PreviousSemester, shared.StatusCompleted, "A", 5.0, true},
		{StudentID2, CSC102Prev, PreviousSemester, shared.StatusCompleted, "C", 3.0, true},

		// This semester: open registrations waiting on scores
		{StudentID1, CSC101ID, CurrentSemester, shared.StatusRegistered, "", 0, false},
		{StudentID1, MTH101ID, CurrentSemester, shared.StatusRegistered, "", 0, false},
		{StudentID2, CSC101ID, CurrentSemester, shared.StatusRegistered, "", 0, false},
		{StudentID3, CSC101ID, CurrentSemester, shared.StatusRegistered, "", 0, false},
		{StudentID3, CSC201ID, CurrentSemester, shared.StatusRegistered, "", 0, false},
	}
	seedRegistrations(ctx, db, registrationSeeds)

	log.Println("All data seeding completed successfully.")
}

// ============================================================================
// SEEDING FUNCTIONS
// ============================================================================

func seedDepartments(ctx context.Context, db *mongo.Database) {
	log.Println("--- Seeding Departments ---")
	departmentsCol := db.Collection(shared.ColDepartments)

	depts := []shared.Department{
		{ID: CSCDeptID, Code: "CSC", Name: "Computer Science", CreatedAt: time.Now()},
		{ID: MTHDeptID, Code: "MTH", Name: "Mathematics", CreatedAt: time.Now()},
	}
	for _, d := range depts {
		if _, err := departmentsCol.InsertOne(ctx, d); err != nil {
			log.Fatalf("Error seeding department %s: %v", d.Code, err)
		}
		log.Printf("Seeded Department: %s", d.Code)
	}
}

func seedPeriods(ctx context.Context, db *mongo.Database) {
	log.Println("--- Seeding Academic Session & Semesters ---")

	session := shared.AcademicSession{
		ID:        SessionID,
		Name:      "2024/2025",
		IsCurrent: true,
		CreatedAt: time.Now(),
	}
	if _, err := db.Collection(shared.ColAcademicSessions).InsertOne(ctx, session); err != nil {
		log.Fatalf("Error seeding academic session: %v", err)
	}

	semesters := []shared.Semester{
		{ID: "sem_2023-2024-2", Name: PreviousSemester, CreatedAt: time.Now()},
		{ID: "sem_2024-2025-1", Name: CurrentSemester, SessionID: SessionID, IsCurrent: true, CreatedAt: time.Now()},
	}
	for _, sem := range semesters {
		if _, err := db.Collection(shared.ColSemesters).InsertOne(ctx, sem); err != nil {
			log.Fatalf("Error seeding semester %s: %v", sem.Name, err)
		}
		log.Printf("Seeded Semester: %s (current=%v)", sem.Name, sem.IsCurrent)
	}
}

func seedUsers(ctx context.Context, db *mongo.Database, bcryptCost int) {
	log.Println("--- Seeding Users ---")
	usersCol := db.Collection(shared.ColUsers)

	users := []shared.User{
		{ID: AdminID, Name: "Registry Admin", Email: "admin@example.edu", Role: shared.RoleAdmin, IsActive: true, CreatedAt: time.Now()},
		{ID: LecturerID1, Name: "Dr. Ngozi Okafor", Email: "n.okafor@example.edu", Role: shared.RoleLecturer, StaffID: "STF-001", DepartmentID: CSCDeptID, IsActive: true, CreatedAt: time.Now()},
		{ID: LecturerID2, Name: "Prof. Tunde Bello", Email: "t.bello@example.edu", Role: shared.RoleLecturer, StaffID: "STF-002", DepartmentID: MTHDeptID, IsActive: true, CreatedAt: time.Now()},
		{ID: StudentID1, Name: "Chidi Eze", Email: "c.eze@example.edu", Role: shared.RoleStudent, MatricNumber: "2021/247789", Level: 200, DepartmentID: CSCDeptID, IsActive: true, CreatedAt: time.Now()},
		{ID: StudentID2, Name: "Amina Yusuf", Email: "a.yusuf@example.edu", Role: shared.RoleStudent, MatricNumber: "2021/247790", Level: 200, DepartmentID: CSCDeptID, IsActive: true, CreatedAt: time.Now()},
		{ID: StudentID3, Name: "Femi Adeyemi", Email: "f.adeyemi@example.edu", Role: shared.RoleStudent, MatricNumber: "2022/310452", Level: 100, DepartmentID: CSCDeptID, IsActive: true, CreatedAt: time.Now()},
	}

	hashedBytes, _ := bcrypt.GenerateFromPassword([]byte(CommonPassword), bcryptCost)
	hashedPassword := string(hashedBytes)

	for _, u := range users {
		u.PasswordHash = hashedPassword
		filter := bson.M{"email": u.Email}
		update := bson.M{"$set": u}
		opts := options.Update().SetUpsert(true)

		if _, err := usersCol.UpdateOne(ctx, filter, update, opts); err != nil {
			log.Fatalf("Error seeding user %s: %v", u.Email, err)
		}
		log.Printf("Seeded %s: %s", u.Role, u.Email)
	}
}

func seedCourses(ctx context.Context, db *mongo.Database, seeds []CourseSeed) {
	log.Println("--- Seeding Courses ---")
	coursesCol := db.Collection(shared.ColCourses)
	now := time.Now()

	for _, s := range seeds {
		course := shared.Course{
			ID:           s.ID,
			Code:         s.Code,
			Title:        s.Title,
			CreditUnits:  s.Units,
			DepartmentID: s.DepartmentID,
			LecturerID:   s.LecturerID,
			Semester:     s.Semester,
			SessionID:    SessionID,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if _, err := coursesCol.InsertOne(ctx, course); err != nil {
			log.Fatalf("Error seeding course %s: %v", s.Code, err)
		}
		log.Printf("Seeded Course: %s (%s)", s.Code, s.ID)
	}
}

func seedRegistrations(ctx context.Context, db *mongo.Database, seeds []RegistrationSeed) {
	log.Println("--- Seeding Registrations ---")
	registrationsCol := db.Collection(shared.ColRegistrations)
	now := time.Now()

	for _, s := range seeds {
		reg := shared.Registration{
			ID:             shared.GenerateRegistrationID(),
			StudentID:      s.StudentID,
			CourseID:       s.CourseID,
			Semester:       s.Semester,
			SessionID:      SessionID,
			Status:         s.Status,
			ApprovalStatus: shared.ApprovalPending,
			CreatedAt:      now.AddDate(0, -1, 0),
			UpdatedAt:      now,
		}
		if s.Status == shared.StatusCompleted {
			grade, point := s.Grade, s.Point
			reg.Grade = &grade
			reg.GradePoint = &point
			reg.IsPublished = s.Published
			if s.Published {
				reg.ApprovalStatus = shared.ApprovalApproved
				reg.ApprovedBy = AdminID
				reg.ApprovedAt = now
			}
		}

		if _, err := registrationsCol.InsertOne(ctx, reg); err != nil {
			log.Fatalf("Error seeding registration for %s in %s: %v", s.StudentID, s.CourseID, err)
		}
		log.Printf("Seeded Registration: %s -> %s (%s)", s.StudentID, s.CourseID, s.Status)
	}

	// Summaries for the published history so dashboards have data before the
	// first approval run of the new semester.
	seedSummaries(ctx, db, seeds)
}

func seedSummaries(ctx context.Context, db *mongo.Database, seeds []RegistrationSeed) {
	log.Println("--- Seeding Result Summaries ---")
	summariesCol := db.Collection(shared.ColResultSummaries)
	coursesCol := db.Collection(shared.ColCourses)
	now := time.Now()

	type acc struct {
		units    int32
		weighted float64
	}
	perStudent := map[string]map[string]*acc{}

	for _, s := range seeds {
		if s.Status != shared.StatusCompleted || !s.Published {
			continue
		}
		var course shared.Course
		if err := coursesCol.FindOne(ctx, bson.M{"_id": s.CourseID}).Decode(&course); err != nil {
			log.Fatalf("Error loading course %s for summary: %v", s.CourseID, err)
		}
		if perStudent[s.StudentID] == nil {
			perStudent[s.StudentID] = map[string]*acc{}
		}
		a := perStudent[s.StudentID][s.Semester]
		if a == nil {
			a = &acc{}
			perStudent[s.StudentID][s.Semester] = a
		}
		a.units += course.CreditUnits
		a.weighted += s.Point * float64(course.CreditUnits)
	}

	for studentID, semesters := range perStudent {
		for semester, a := range semesters {
			gpa := a.weighted / float64(a.units)
			summary := shared.ResultSummary{
				ID:                  shared.GenerateSummaryID(),
				StudentID:           studentID,
				Semester:            semester,
				GPA:                 &gpa,
				CGPA:                &gpa, // single seeded semester
				TotalUnits:          a.units,
				TotalWeightedPoints: a.weighted,
				ComputedAt:          now,
				CreatedAt:           now,
			}
			if _, err := summariesCol.InsertOne(ctx, summary); err != nil {
				log.Fatalf("Error seeding summary for %s: %v", studentID, err)
			}
			log.Printf("Seeded Summary: %s %s GPA=%.2f", studentID, semester, gpa)
		}
	}
}
