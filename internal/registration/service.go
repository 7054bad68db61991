// Package registration is the course registration ledger: it records which
// student is registered for which course in which semester, and it is the
// only place grades may attach to.
package registration

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/codeAKstan/gradesync-sub000/internal/shared"
)

// Service implements the registration ledger operations
type Service struct {
	db               *mongo.Database
	registrationsCol *mongo.Collection
	coursesCol       *mongo.Collection
	usersCol         *mongo.Collection
	semestersCol     *mongo.Collection
	auditLogsCol     *mongo.Collection
}

// NewService creates a new registration Service instance
func NewService(db *mongo.Database) *Service {
	return &Service{
		db:               db,
		registrationsCol: db.Collection(shared.ColRegistrations),
		coursesCol:       db.Collection(shared.ColCourses),
		usersCol:         db.Collection(shared.ColUsers),
		semestersCol:     db.Collection(shared.ColSemesters),
		auditLogsCol:     db.Collection(shared.ColAuditLogs),
	}
}

// Register creates a ledger entry for (student, course, semester). The
// semester defaults to the current one when semesterRef is empty. At most
// one non-dropped registration may exist per tuple; a second attempt is
// rejected, but re-registering after a drop creates a fresh entry.
func (s *Service) Register(ctx context.Context, studentID, courseID, semesterRef string) (*shared.Registration, error) {
	if studentID == "" || courseID == "" {
		return nil, shared.InvalidArgumentf("student ID and course ID are required")
	}

	var student shared.User
	err := s.usersCol.FindOne(ctx, bson.M{"_id": studentID, "role": shared.RoleStudent}).Decode(&student)
	if err == mongo.ErrNoDocuments {
		return nil, shared.NotFoundf("student not found: %s", studentID)
	}
	if err != nil {
		return nil, shared.InternalWrap(err, "failed to retrieve student")
	}
	if !student.IsActive {
		return nil, shared.FailedPreconditionf("student account is deactivated")
	}

	var course shared.Course
	err = s.coursesCol.FindOne(ctx, bson.M{"_id": courseID}).Decode(&course)
	if err == mongo.ErrNoDocuments {
		return nil, shared.NotFoundf("course not found: %s", courseID)
	}
	if err != nil {
		return nil, shared.InternalWrap(err, "failed to retrieve course")
	}

	semesterName, err := s.resolveSemester(ctx, semesterRef, course)
	if err != nil {
		return nil, err
	}

	// Fast duplicate check; the partial unique index is the backstop
	// against a concurrent double-register.
	count, err := s.registrationsCol.CountDocuments(ctx, bson.M{
		"student_id": studentID,
		"course_id":  courseID,
		"semester":   semesterName,
		"status":     bson.M{"$ne": string(shared.StatusDropped)},
	})
	if err != nil {
		return nil, shared.InternalWrap(err, "failed to check existing registrations")
	}
	if count > 0 {
		return nil, shared.AlreadyExistsf("student is already registered for %s in %s", course.Code, semesterName)
	}

	now := time.Now()
	reg := shared.Registration{
		ID:             shared.GenerateRegistrationID(),
		StudentID:      studentID,
		CourseID:       courseID,
		Semester:       semesterName,
		SessionID:      course.SessionID,
		Status:         shared.StatusRegistered,
		ApprovalStatus: shared.ApprovalPending,
		IsPublished:    false,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	_, err = s.registrationsCol.InsertOne(ctx, reg)
	if mongo.IsDuplicateKeyError(err) {
		return nil, shared.AlreadyExistsf("student is already registered for %s in %s", course.Code, semesterName)
	}
	if err != nil {
		return nil, shared.InternalWrap(err, "failed to create registration")
	}

	if logErr := shared.LogAuditEvent(ctx, s.auditLogsCol, studentID, shared.ActionRegister, "registrations", map[string]interface{}{
		"registration_id": reg.ID,
		"course_id":       courseID,
		"course_code":     course.Code,
		"semester":        semesterName,
	}); logErr != nil {
		log.Printf("WARN: failed to write audit log for registration: %v", logErr)
	}

	return &reg, nil
}

// Drop marks a registration dropped. Only open (registered) entries can be
// dropped: completed ones already carry a grade and dropped is terminal.
// The acting student must own the registration.
func (s *Service) Drop(ctx context.Context, registrationID, actingStudentID string) (*shared.Registration, error) {
	if registrationID == "" {
		return nil, shared.InvalidArgumentf("registration ID is required")
	}

	var reg shared.Registration
	err := s.registrationsCol.FindOne(ctx, bson.M{"_id": registrationID}).Decode(&reg)
	if err == mongo.ErrNoDocuments {
		return nil, shared.NotFoundf("registration not found: %s", registrationID)
	}
	if err != nil {
		return nil, shared.InternalWrap(err, "failed to retrieve registration")
	}

	if actingStudentID != "" && reg.StudentID != actingStudentID {
		return nil, shared.PermissionDeniedf("registration belongs to another student")
	}

	if !reg.Status.CanTransition(shared.StatusDropped) {
		return nil, shared.FailedPreconditionf("cannot drop a %s registration", reg.Status)
	}

	now := time.Now()
	update := bson.M{"$set": bson.M{
		"status":     string(shared.StatusDropped),
		"dropped_at": now,
		"updated_at": now,
	}}

	// Guard on the current status so a concurrent completion wins.
	res, err := s.registrationsCol.UpdateOne(ctx, bson.M{
		"_id":    registrationID,
		"status": string(shared.StatusRegistered),
	}, update)
	if err != nil {
		return nil, shared.InternalWrap(err, "failed to drop registration")
	}
	if res.MatchedCount == 0 {
		return nil, shared.FailedPreconditionf("registration is no longer open")
	}

	reg.Status = shared.StatusDropped
	reg.DroppedAt = now
	reg.UpdatedAt = now

	if logErr := shared.LogAuditEvent(ctx, s.auditLogsCol, reg.StudentID, shared.ActionDrop, "registrations", map[string]interface{}{
		"registration_id": reg.ID,
		"course_id":       reg.CourseID,
		"semester":        reg.Semester,
	}); logErr != nil {
		log.Printf("WARN: failed to write audit log for drop: %v", logErr)
	}

	return &reg, nil
}

// StudentRegistrations lists a student's ledger entries joined with course
// details, optionally restricted to one semester. Dropped entries are
// included so the student can see their own history.
func (s *Service) StudentRegistrations(ctx context.Context, studentID, semesterRef string) ([]shared.RegistrationWithCourse, error) {
	if studentID == "" {
		return nil, shared.InvalidArgumentf("student ID is required")
	}

	filter := bson.M{"student_id": studentID}
	if semesterRef != "" {
		name, err := shared.ResolveSemesterName(ctx, s.semestersCol, semesterRef)
		if err != nil {
			return nil, err
		}
		filter["semester"] = name
	}

	cursor, err := s.registrationsCol.Find(ctx, filter)
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
		regs = append(regs, reg)
		courseIDSet[reg.CourseID] = true
	}

	courses, err := s.coursesByID(ctx, courseIDSet)
	if err != nil {
		return nil, err
	}

	out := make([]shared.RegistrationWithCourse, 0, len(regs))
	for _, reg := range regs {
		entry := shared.RegistrationWithCourse{Registration: reg}
		if c, ok := courses[reg.CourseID]; ok {
			entry.CourseCode = c.Code
			entry.CourseTitle = c.Title
			entry.CreditUnits = c.CreditUnits
		}
		// The ledger view shows grades only once published.
		if !reg.IsPublished {
			entry.Grade = nil
			entry.GradePoint = nil
		}
		out = append(out, entry)
	}

	return out, nil
}

func (s *Service) resolveSemester(ctx context.Context, semesterRef string, course shared.Course) (string, error) {
	if semesterRef != "" {
		return shared.ResolveSemesterName(ctx, s.semestersCol, semesterRef)
	}
	if course.Semester != "" {
		return course.Semester, nil
	}

	name, err := shared.CurrentSemesterName(ctx, s.semestersCol)
	if err != nil {
		return "", err
	}
	if name == "" {
		return "", shared.FailedPreconditionf("no current semester is configured")
	}
	return name, nil
}

func (s *Service) coursesByID(ctx context.Context, courseIDSet map[string]bool) (map[string]shared.Course, error) {
	out := map[string]shared.Course{}
	if len(courseIDSet) == 0 {
		return out, nil
	}

	ids := make([]string, 0, len(courseIDSet))
	for id := range courseIDSet {
		ids = append(ids, id)
	}

	cursor, err := s.coursesCol.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, shared.InternalWrap(err, "failed to retrieve courses")
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var c shared.Course
		if err := cursor.Decode(&c); err != nil {
			continue
		}
		out[c.ID] = c
	}
	return out, nil
}
