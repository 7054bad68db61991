// Package catalog manages the master data behind the ledger: departments,
// academic sessions, semesters, and the course offerings themselves.
package catalog

import (
	"context"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/codeAKstan/gradesync-sub000/internal/shared"
)

// Service implements catalog operations
type Service struct {
	db               *mongo.Database
	departmentsCol   *mongo.Collection
	sessionsCol      *mongo.Collection
	semestersCol     *mongo.Collection
	coursesCol       *mongo.Collection
	usersCol         *mongo.Collection
	registrationsCol *mongo.Collection
	auditLogsCol     *mongo.Collection
}

// NewService creates a new catalog Service instance
func NewService(db *mongo.Database) *Service {
	return &Service{
		db:               db,
		departmentsCol:   db.Collection(shared.ColDepartments),
		sessionsCol:      db.Collection(shared.ColAcademicSessions),
		semestersCol:     db.Collection(shared.ColSemesters),
		coursesCol:       db.Collection(shared.ColCourses),
		usersCol:         db.Collection(shared.ColUsers),
		registrationsCol: db.Collection(shared.ColRegistrations),
		auditLogsCol:     db.Collection(shared.ColAuditLogs),
	}
}

// ============================================================================
// Departments
// ============================================================================

// CreateDepartment adds a department. Codes are unique, case-insensitive.
func (s *Service) CreateDepartment(ctx context.Context, code, name string) (*shared.Department, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	name = strings.TrimSpace(name)
	if code == "" || name == "" {
		return nil, shared.InvalidArgumentf("department code and name are required")
	}

	count, err := s.departmentsCol.CountDocuments(ctx, bson.M{"code": code})
	if err != nil {
		return nil, shared.InternalWrap(err, "failed to check departments")
	}
	if count > 0 {
		return nil, shared.AlreadyExistsf("department %s already exists", code)
	}

	dept := shared.Department{
		ID:        shared.GenerateID("dept"),
		Code:      code,
		Name:      name,
		CreatedAt: time.Now(),
	}
	if _, err := s.departmentsCol.InsertOne(ctx, dept); err != nil {
		return nil, shared.InternalWrap(err, "failed to create department")
	}
	return &dept, nil
}

// ListDepartments returns all departments sorted by code.
func (s *Service) ListDepartments(ctx context.Context) ([]shared.Department, error) {
	opts := options.Find().SetSort(bson.M{"code": 1})
	cursor, err := s.departmentsCol.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, shared.InternalWrap(err, "failed to list departments")
	}
	defer cursor.Close(ctx)

	depts := []shared.Department{}
	for cursor.Next(ctx) {
		var d shared.Department
		if err := cursor.Decode(&d); err != nil {
			continue
		}
		depts = append(depts, d)
	}
	return depts, nil
}

// ============================================================================
// Academic Sessions & Semesters
// ============================================================================

// CreateAcademicSession adds a session like "2024/2025".
func (s *Service) CreateAcademicSession(ctx context.Context, name string, startDate, endDate time.Time) (*shared.AcademicSession, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.InvalidArgumentf("session name is required")
	}

	count, err := s.sessionsCol.CountDocuments(ctx, bson.M{"name": name})
	if err != nil {
		return nil, shared.InternalWrap(err, "failed to check academic sessions")
	}
	if count > 0 {
		return nil, shared.AlreadyExistsf("academic session %s already exists", name)
	}

	session := shared.AcademicSession{
		ID:        shared.GenerateID("acad"),
		Name:      name,
		StartDate: startDate,
		EndDate:   endDate,
		CreatedAt: time.Now(),
	}
	if _, err := s.sessionsCol.InsertOne(ctx, session); err != nil {
		return nil, shared.InternalWrap(err, "failed to create academic session")
	}
	return &session, nil
}

// ListAcademicSessions returns all academic sessions sorted by name.
func (s *Service) ListAcademicSessions(ctx context.Context) ([]shared.AcademicSession, error) {
	opts := options.Find().SetSort(bson.M{"name": 1})
	cursor, err := s.sessionsCol.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, shared.InternalWrap(err, "failed to list academic sessions")
	}
	defer cursor.Close(ctx)

	sessions := []shared.AcademicSession{}
	for cursor.Next(ctx) {
		var session shared.AcademicSession
		if err := cursor.Decode(&session); err != nil {
			continue
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

// CreateSemester adds a semester under an academic session. Names are the
// stable key grades and summaries are recorded against, so they are unique.
func (s *Service) CreateSemester(ctx context.Context, name, sessionID string) (*shared.Semester, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.InvalidArgumentf("semester name is required")
	}

	count, err := s.semestersCol.CountDocuments(ctx, bson.M{"name": name})
	if err != nil {
		return nil, shared.InternalWrap(err, "failed to check semesters")
	}
	if count > 0 {
		return nil, shared.AlreadyExistsf("semester %s already exists", name)
	}

	semester := shared.Semester{
		ID:        shared.GenerateID("sem"),
		Name:      name,
		SessionID: sessionID,
		CreatedAt: time.Now(),
	}
	if _, err := s.semestersCol.InsertOne(ctx, semester); err != nil {
		return nil, shared.InternalWrap(err, "failed to create semester")
	}
	return &semester, nil
}

// SetCurrentSemester marks one semester current and clears the flag on all
// others.
func (s *Service) SetCurrentSemester(ctx context.Context, semesterRef string) (*shared.Semester, error) {
	name, err := shared.ResolveSemesterName(ctx, s.semestersCol, semesterRef)
	if err != nil {
		return nil, err
	}

	if _, err := s.semestersCol.UpdateMany(ctx, bson.M{}, bson.M{"$set": bson.M{"is_current": false}}); err != nil {
		return nil, shared.InternalWrap(err, "failed to clear current semester")
	}

	var semester shared.Semester
	err = s.semestersCol.FindOneAndUpdate(ctx,
		bson.M{"name": name},
		bson.M{"$set": bson.M{"is_current": true, "updated_at": time.Now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&semester)
	if err != nil {
		return nil, shared.InternalWrap(err, "failed to set current semester")
	}
	return &semester, nil
}

// ListSemesters returns all semesters sorted by name.
func (s *Service) ListSemesters(ctx context.Context) ([]shared.Semester, error) {
	opts := options.Find().SetSort(bson.M{"name": 1})
	cursor, err := s.semestersCol.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, shared.InternalWrap(err, "failed to list semesters")
	}
	defer cursor.Close(ctx)

	semesters := []shared.Semester{}
	for cursor.Next(ctx) {
		var sem shared.Semester
		if err := cursor.Decode(&sem); err != nil {
			continue
		}
		semesters = append(semesters, sem)
	}
	return semesters, nil
}

// ============================================================================
// Courses
// ============================================================================

// CourseInput carries the fields for creating or updating a course.
type CourseInput struct {
	Code         string `json:"code" validate:"required,min=3,max=16"`
	Title        string `json:"title" validate:"required,min=3,max=200"`
	Description  string `json:"description" validate:"max=2000"`
	CreditUnits  int32  `json:"credit_units" validate:"required,min=1,max=12"`
	DepartmentID string `json:"department_id"`
	LecturerID   string `json:"lecturer_id"`
	Semester     string `json:"semester"`
	SessionID    string `json:"session_id"`
}

// CreateCourse adds a course offering. The code is unique per semester.
func (s *Service) CreateCourse(ctx context.Context, in CourseInput, actingUserID string) (*shared.Course, error) {
	in.Code = strings.ToUpper(strings.TrimSpace(in.Code))
	if in.Code == "" || in.Title == "" {
		return nil, shared.InvalidArgumentf("course code and title are required")
	}
	if in.CreditUnits < 1 {
		return nil, shared.InvalidArgumentf("credit units must be at least 1")
	}

	if in.Semester != "" {
		name, err := shared.ResolveSemesterName(ctx, s.semestersCol, in.Semester)
		if err != nil {
			return nil, err
		}
		in.Semester = name
	}

	if in.LecturerID != "" {
		if err := s.checkLecturer(ctx, in.LecturerID); err != nil {
			return nil, err
		}
	}

	count, err := s.coursesCol.CountDocuments(ctx, bson.M{"code": in.Code, "semester": in.Semester})
	if err != nil {
		return nil, shared.InternalWrap(err, "failed to check courses")
	}
	if count > 0 {
		return nil, shared.AlreadyExistsf("course %s already exists in %s", in.Code, in.Semester)
	}

	now := time.Now()
	course := shared.Course{
		ID:           shared.GenerateID("course"),
		Code:         in.Code,
		Title:        strings.TrimSpace(in.Title),
		Description:  strings.TrimSpace(in.Description),
		CreditUnits:  in.CreditUnits,
		DepartmentID: in.DepartmentID,
		LecturerID:   in.LecturerID,
		Semester:     in.Semester,
		SessionID:    in.SessionID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := s.coursesCol.InsertOne(ctx, course); err != nil {
		return nil, shared.InternalWrap(err, "failed to create course")
	}

	if logErr := shared.LogAuditEvent(ctx, s.auditLogsCol, actingUserID, shared.ActionCourseCreate, "courses", map[string]interface{}{
		"course_id": course.ID,
		"code":      course.Code,
	}); logErr != nil {
		log.Printf("WARN: failed to write audit log for course create: %v", logErr)
	}

	return &course, nil
}

// GetCourse returns one course by ID.
func (s *Service) GetCourse(ctx context.Context, courseID string) (*shared.Course, error) {
	var course shared.Course
	err := s.coursesCol.FindOne(ctx, bson.M{"_id": courseID}).Decode(&course)
	if err == mongo.ErrNoDocuments {
		return nil, shared.NotFoundf("course not found: %s", courseID)
	}
	if err != nil {
		return nil, shared.InternalWrap(err, "failed to retrieve course")
	}
	return &course, nil
}

// ListCourses returns courses matching the filter, sorted by code.
func (s *Service) ListCourses(ctx context.Context, filter shared.CourseFilter) ([]shared.Course, error) {
	query := bson.M{}
	if filter.DepartmentID != "" {
		query["department_id"] = filter.DepartmentID
	}
	if filter.LecturerID != "" {
		query["lecturer_id"] = filter.LecturerID
	}
	if filter.Semester != "" {
		name, err := shared.ResolveSemesterName(ctx, s.semestersCol, filter.Semester)
		if err != nil {
			return nil, err
		}
		query["semester"] = name
	}
	if filter.SearchQuery != "" {
		query["$or"] = []bson.M{
			{"code": bson.M{"$regex": filter.SearchQuery, "$options": "i"}},
			{"title": bson.M{"$regex": filter.SearchQuery, "$options": "i"}},
		}
	}

	opts := options.Find().SetSort(bson.M{"code": 1})
	cursor, err := s.coursesCol.Find(ctx, query, opts)
	if err != nil {
		return nil, shared.InternalWrap(err, "failed to list courses")
	}
	defer cursor.Close(ctx)

	courses := []shared.Course{}
	for cursor.Next(ctx) {
		var c shared.Course
		if err := cursor.Decode(&c); err != nil {
			continue
		}
		courses = append(courses, c)
	}
	return courses, nil
}

// UpdateCourse patches the mutable course fields.
func (s *Service) UpdateCourse(ctx context.Context, courseID string, in CourseInput, actingUserID string) (*shared.Course, error) {
	if courseID == "" {
		return nil, shared.InvalidArgumentf("course ID is required")
	}

	set := bson.M{"updated_at": time.Now()}
	if in.Title != "" {
		set["title"] = strings.TrimSpace(in.Title)
	}
	if in.Description != "" {
		set["description"] = strings.TrimSpace(in.Description)
	}
	if in.CreditUnits > 0 {
		set["credit_units"] = in.CreditUnits
	}
	if in.DepartmentID != "" {
		set["department_id"] = in.DepartmentID
	}

	var course shared.Course
	err := s.coursesCol.FindOneAndUpdate(ctx,
		bson.M{"_id": courseID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&course)
	if err == mongo.ErrNoDocuments {
		return nil, shared.NotFoundf("course not found: %s", courseID)
	}
	if err != nil {
		return nil, shared.InternalWrap(err, "failed to update course")
	}

	if logErr := shared.LogAuditEvent(ctx, s.auditLogsCol, actingUserID, shared.ActionCourseUpdate, "courses", map[string]interface{}{
		"course_id": courseID,
	}); logErr != nil {
		log.Printf("WARN: failed to write audit log for course update: %v", logErr)
	}

	return &course, nil
}

// AssignLecturer sets the lecturer for a course offering.
func (s *Service) AssignLecturer(ctx context.Context, courseID, lecturerID, actingUserID string) (*shared.Course, error) {
	if courseID == "" || lecturerID == "" {
		return nil, shared.InvalidArgumentf("course ID and lecturer ID are required")
	}

	if err := s.checkLecturer(ctx, lecturerID); err != nil {
		return nil, err
	}

	var course shared.Course
	err := s.coursesCol.FindOneAndUpdate(ctx,
		bson.M{"_id": courseID},
		bson.M{"$set": bson.M{"lecturer_id": lecturerID, "updated_at": time.Now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&course)
	if err == mongo.ErrNoDocuments {
		return nil, shared.NotFoundf("course not found: %s", courseID)
	}
	if err != nil {
		return nil, shared.InternalWrap(err, "failed to assign lecturer")
	}

	if logErr := shared.LogAuditEvent(ctx, s.auditLogsCol, actingUserID, shared.ActionCourseUpdate, "courses", map[string]interface{}{
		"course_id":   courseID,
		"lecturer_id": lecturerID,
	}); logErr != nil {
		log.Printf("WARN: failed to write audit log for lecturer assignment: %v", logErr)
	}

	return &course, nil
}

// DeleteCourse removes a course that no ledger entry references. A course
// with any non-dropped registration cannot be deleted; grades must never
// lose their course.
func (s *Service) DeleteCourse(ctx context.Context, courseID, actingUserID string) error {
	if courseID == "" {
		return shared.InvalidArgumentf("course ID is required")
	}

	count, err := shared.CountDocumentsWithTimeout(ctx, s.registrationsCol, bson.M{
		"course_id": courseID,
		"status":    bson.M{"$ne": string(shared.StatusDropped)},
	}, 5*time.Second)
	if err != nil {
		return shared.InternalWrap(err, "failed to count registrations")
	}
	if count > 0 {
		return shared.FailedPreconditionf("course has %d active registrations and cannot be deleted", count)
	}

	res, err := s.coursesCol.DeleteOne(ctx, bson.M{"_id": courseID})
	if err != nil {
		return shared.InternalWrap(err, "failed to delete course")
	}
	if res.DeletedCount == 0 {
		return shared.NotFoundf("course not found: %s", courseID)
	}

	if logErr := shared.LogAuditEvent(ctx, s.auditLogsCol, actingUserID, shared.ActionCourseDelete, "courses", map[string]interface{}{
		"course_id": courseID,
	}); logErr != nil {
		log.Printf("WARN: failed to write audit log for course delete: %v", logErr)
	}

	return nil
}

func (s *Service) checkLecturer(ctx context.Context, lecturerID string) error {
	count, err := s.usersCol.CountDocuments(ctx, bson.M{"_id": lecturerID, "role": shared.RoleLecturer})
	if err != nil {
		return shared.InternalWrap(err, "failed to check lecturer")
	}
	if count == 0 {
		return shared.NotFoundf("lecturer not found: %s", lecturerID)
	}
	return nil
}
