package results

import (
	"context"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/codeAKstan/gradesync-sub000/internal/shared"
)

// Reader serves result views. The student view redacts grades that have not
// been published; the staff view is unredacted.
type Reader struct {
	db               *mongo.Database
	registrationsCol *mongo.Collection
	coursesCol       *mongo.Collection
	usersCol         *mongo.Collection
	summariesCol     *mongo.Collection
	semestersCol     *mongo.Collection
}

// NewReader creates a new Reader instance
func NewReader(db *mongo.Database) *Reader {
	return &Reader{
		db:               db,
		registrationsCol: db.Collection(shared.ColRegistrations),
		coursesCol:       db.Collection(shared.ColCourses),
		usersCol:         db.Collection(shared.ColUsers),
		summariesCol:     db.Collection(shared.ColResultSummaries),
		semestersCol:     db.Collection(shared.ColSemesters),
	}
}

// StudentResults returns the student's results grouped by semester. When
// semesterRef is non-empty it is resolved (ID or display name) and the view
// is restricted to that semester. Unpublished grades and grade points come
// back nil; course metadata and registration status stay visible.
func (r *Reader) StudentResults(ctx context.Context, studentID, semesterRef string) ([]shared.SemesterResult, error) {
	if studentID == "" {
		return nil, shared.InvalidArgumentf("student ID is required")
	}

	filter := bson.M{
		"student_id": studentID,
		"status":     bson.M{"$ne": string(shared.StatusDropped)},
	}
	if semesterRef != "" {
		name, err := shared.ResolveSemesterName(ctx, r.semestersCol, semesterRef)
		if err != nil {
			return nil, err
		}
		filter["semester"] = name
	}

	regs, err := r.findRegistrations(ctx, filter)
	if err != nil {
		return nil, err
	}

	courses, err := r.loadCourses(ctx, regs)
	if err != nil {
		return nil, err
	}

	bySemester := map[string][]shared.RegistrationWithCourse{}
	for _, reg := range regs {
		entry := shared.RegistrationWithCourse{Registration: reg}
		if c, ok := courses[reg.CourseID]; ok {
			entry.CourseCode = c.Code
			entry.CourseTitle = c.Title
			entry.CreditUnits = c.CreditUnits
		}
		if !reg.IsPublished {
			entry.Grade = nil
			entry.GradePoint = nil
		}
		bySemester[reg.Semester] = append(bySemester[reg.Semester], entry)
	}

	names := make([]string, 0, len(bySemester))
	for name := range bySemester {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]shared.SemesterResult, 0, len(names))
	for _, name := range names {
		entries := bySemester[name]
		sort.Slice(entries, func(i, j int) bool { return entries[i].CourseCode < entries[j].CourseCode })

		summary, err := r.findSummary(ctx, studentID, name)
		if err != nil {
			return nil, err
		}
		out = append(out, shared.SemesterResult{
			Semester: name,
			Summary:  summary,
			Courses:  entries,
		})
	}

	return out, nil
}

// CourseResultsView is the staff-facing, unredacted score sheet for one
// course offering, with progress counts.
type CourseResultsView struct {
	CourseID    string               `json:"course_id"`
	CourseCode  string               `json:"course_code"`
	CourseTitle string               `json:"course_title"`
	Semester    string               `json:"semester"`
	Entries     []shared.CohortEntry `json:"entries"`
	Total       int                  `json:"total"`
	Completed   int                  `json:"completed"`
	Published   int                  `json:"published"`
}

// CourseResults returns the full cohort for one course offering, grades
// included regardless of publication state. Lecturer and admin only.
func (r *Reader) CourseResults(ctx context.Context, courseID, semesterRef string) (*CourseResultsView, error) {
	if courseID == "" {
		return nil, shared.InvalidArgumentf("course ID is required")
	}

	var course shared.Course
	err := r.coursesCol.FindOne(ctx, bson.M{"_id": courseID}).Decode(&course)
	if err == mongo.ErrNoDocuments {
		return nil, shared.NotFoundf("course not found: %s", courseID)
	}
	if err != nil {
		return nil, shared.InternalWrap(err, "failed to retrieve course")
	}

	if semesterRef == "" {
		semesterRef = course.Semester
	}
	semesterName, err := shared.ResolveSemesterName(ctx, r.semestersCol, semesterRef)
	if err != nil {
		return nil, err
	}

	regs, err := r.findRegistrations(ctx, bson.M{
		"course_id": courseID,
		"semester":  semesterName,
		"status":    bson.M{"$ne": string(shared.StatusDropped)},
	})
	if err != nil {
		return nil, err
	}

	students, err := r.loadStudents(ctx, regs)
	if err != nil {
		return nil, err
	}

	view := &CourseResultsView{
		CourseID:    course.ID,
		CourseCode:  course.Code,
		CourseTitle: course.Title,
		Semester:    semesterName,
		Entries:     []shared.CohortEntry{},
	}

	for _, reg := range regs {
		entry := shared.CohortEntry{
			RegistrationID: reg.ID,
			StudentID:      reg.StudentID,
			Status:         reg.Status,
			Grade:          reg.Grade,
			GradePoint:     reg.GradePoint,
			ApprovalStatus: reg.ApprovalStatus,
			IsPublished:    reg.IsPublished,
		}
		if u, ok := students[reg.StudentID]; ok {
			entry.MatricNumber = u.MatricNumber
			entry.StudentName = u.Name
		}
		view.Entries = append(view.Entries, entry)

		view.Total++
		if reg.Status == shared.StatusCompleted {
			view.Completed++
		}
		if reg.IsPublished {
			view.Published++
		}
	}

	sort.Slice(view.Entries, func(i, j int) bool {
		return view.Entries[i].MatricNumber < view.Entries[j].MatricNumber
	})

	return view, nil
}

// StudentSummaries returns the stored summaries for one student, most
// recent first.
func (r *Reader) StudentSummaries(ctx context.Context, studentID string) ([]shared.ResultSummary, error) {
	cursor, err := r.summariesCol.Find(ctx, bson.M{"student_id": studentID})
	if err != nil {
		return nil, shared.InternalWrap(err, "failed to retrieve result summaries")
	}
	defer cursor.Close(ctx)

	summaries := []shared.ResultSummary{}
	for cursor.Next(ctx) {
		var s shared.ResultSummary
		if err := cursor.Decode(&s); err != nil {
			continue
		}
		summaries = append(summaries, s)
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].ComputedAt.After(summaries[j].ComputedAt)
	})
	return summaries, nil
}

func (r *Reader) findRegistrations(ctx context.Context, filter bson.M) ([]shared.Registration, error) {
	cursor, err := r.registrationsCol.Find(ctx, filter)
	if err != nil {
		return nil, shared.InternalWrap(err, "failed to retrieve registrations")
	}
	defer cursor.Close(ctx)

	var regs []shared.Registration
	for cursor.Next(ctx) {
		var reg shared.Registration
		if err := cursor.Decode(&reg); err != nil {
			continue
		}
		regs = append(regs, reg)
	}
	return regs, nil
}

func (r *Reader) findSummary(ctx context.Context, studentID, semesterName string) (*shared.ResultSummary, error) {
	var summary shared.ResultSummary
	err := r.summariesCol.FindOne(ctx, bson.M{"student_id": studentID, "semester": semesterName}).Decode(&summary)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, shared.InternalWrap(err, "failed to retrieve result summary")
	}
	return &summary, nil
}

func (r *Reader) loadCourses(ctx context.Context, regs []shared.Registration) (map[string]shared.Course, error) {
	ids := map[string]bool{}
	for _, reg := range regs {
		ids[reg.CourseID] = true
	}
	out := map[string]shared.Course{}
	if len(ids) == 0 {
		return out, nil
	}

	list := make([]string, 0, len(ids))
	for id := range ids {
		list = append(list, id)
	}

	cursor, err := r.coursesCol.Find(ctx, bson.M{"_id": bson.M{"$in": list}})
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

func (r *Reader) loadStudents(ctx context.Context, regs []shared.Registration) (map[string]shared.User, error) {
	ids := map[string]bool{}
	for _, reg := range regs {
		ids[reg.StudentID] = true
	}
	out := map[string]shared.User{}
	if len(ids) == 0 {
		return out, nil
	}

	list := make([]string, 0, len(ids))
	for id := range ids {
		list = append(list, id)
	}

	cursor, err := r.usersCol.Find(ctx, bson.M{"_id": bson.M{"$in": list}})
	if err != nil {
		return nil, shared.InternalWrap(err, "failed to retrieve students")
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var u shared.User
		if err := cursor.Decode(&u); err != nil {
			continue
		}
		out[u.ID] = u
	}
	return out, nil
}
