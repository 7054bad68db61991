// ============================================================================
// internal/shared/models.go
// Shared data models and structs for MongoDB documents
// ============================================================================

package shared

import (
	"time"
)

// ============================================================================
// User Models
// ============================================================================

// User represents a user account (student, lecturer, or admin)
type User struct {
	ID           string    `bson:"_id" json:"id"`
	Email        string    `bson:"email" json:"email"`
	PasswordHash string    `bson:"password_hash" json:"-"` // Never expose in JSON
	Role         string    `bson:"role" json:"role"`       // student, lecturer, admin
	Name         string    `bson:"name" json:"name"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at,omitempty" json:"updated_at,omitempty"`

	// Student-specific fields
	MatricNumber string `bson:"matric_number,omitempty" json:"matric_number,omitempty"`
	Level        int32  `bson:"level,omitempty" json:"level,omitempty"` // 100, 200, ...

	// Staff-specific fields
	StaffID string `bson:"staff_id,omitempty" json:"staff_id,omitempty"`

	DepartmentID string `bson:"department_id,omitempty" json:"department_id,omitempty"`

	// Account status
	IsActive bool `bson:"is_active" json:"is_active"`
}

// Session represents an active user session (for JWT tracking)
type Session struct {
	ID        string    `bson:"_id" json:"id"`
	UserID    string    `bson:"user_id" json:"user_id"`
	Token     string    `bson:"token" json:"token"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	IPAddress string    `bson:"ip_address,omitempty" json:"ip_address,omitempty"`
}

// IsExpired checks if a session has expired
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// ============================================================================
// Master Data Models
// ============================================================================

// Department represents an academic department
type Department struct {
	ID        string    `bson:"_id" json:"id"`
	Code      string    `bson:"code" json:"code"` // e.g., "CSC"
	Name      string    `bson:"name" json:"name"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// AcademicSession represents an academic year, e.g., "2023/2024"
type AcademicSession struct {
	ID        string    `bson:"_id" json:"id"`
	Name      string    `bson:"name" json:"name"`
	StartDate time.Time `bson:"start_date,omitempty" json:"start_date,omitempty"`
	EndDate   time.Time `bson:"end_date,omitempty" json:"end_date,omitempty"`
	IsCurrent bool      `bson:"is_current" json:"is_current"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// Semester represents a named semester within an academic session.
// Registrations and result summaries store the semester's display name;
// write paths resolve names through this collection first so an unknown
// name fails fast instead of silently matching nothing.
type Semester struct {
	ID        string    `bson:"_id" json:"id"`
	Name      string    `bson:"name" json:"name"` // e.g., "First Semester"
	SessionID string    `bson:"session_id,omitempty" json:"session_id,omitempty"`
	IsCurrent bool      `bson:"is_current" json:"is_current"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// Course represents a course offering
type Course struct {
	ID           string    `bson:"_id" json:"id"`
	Code         string    `bson:"code" json:"code"` // e.g., "CSC101"
	Title        string    `bson:"title" json:"title"`
	Description  string    `bson:"description,omitempty" json:"description,omitempty"`
	CreditUnits  int32     `bson:"credit_units" json:"credit_units"`
	DepartmentID string    `bson:"department_id,omitempty" json:"department_id,omitempty"`
	LecturerID   string    `bson:"lecturer_id,omitempty" json:"lecturer_id,omitempty"`
	Semester     string    `bson:"semester,omitempty" json:"semester,omitempty"` // offering semester name
	SessionID    string    `bson:"session_id,omitempty" json:"session_id,omitempty"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// ============================================================================
// Registration Model (the ledger)
// ============================================================================

// RegistrationStatus is the closed set of ledger states.
type RegistrationStatus string

const (
	StatusRegistered RegistrationStatus = "registered"
	StatusCompleted  RegistrationStatus = "completed"
	StatusDropped    RegistrationStatus = "dropped"
)

// CanTransition reports whether moving from s to next is a legal ledger
// transition. Dropped is terminal; a completed registration may only be
// re-completed (score re-upload overwrites the grade in place).
func (s RegistrationStatus) CanTransition(next RegistrationStatus) bool {
	switch s {
	case StatusRegistered:
		return next == StatusCompleted || next == StatusDropped
	case StatusCompleted:
		return next == StatusCompleted
	default:
		return false
	}
}

// Valid reports whether s is a known status value.
func (s RegistrationStatus) Valid() bool {
	return s == StatusRegistered || s == StatusCompleted || s == StatusDropped
}

// Approval states for a registration's grade.
const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
)

// Registration represents a student's enrollment in one course for one
// semester, carrying grade and approval state. Grade and GradePoint are
// either both nil or both set; IsPublished implies ApprovalStatus approved.
type Registration struct {
	ID         string             `bson:"_id" json:"id"`
	StudentID  string             `bson:"student_id" json:"student_id"`
	CourseID   string             `bson:"course_id" json:"course_id"`
	Semester   string             `bson:"semester" json:"semester"`
	SessionID  string             `bson:"session_id,omitempty" json:"session_id,omitempty"`
	Status     RegistrationStatus `bson:"status" json:"status"`
	Grade      *string            `bson:"grade,omitempty" json:"grade,omitempty"`
	GradePoint *float64           `bson:"grade_point,omitempty" json:"grade_point,omitempty"`

	ApprovalStatus string    `bson:"approval_status" json:"approval_status"`
	IsPublished    bool      `bson:"is_published" json:"is_published"`
	ApprovedBy     string    `bson:"approved_by,omitempty" json:"approved_by,omitempty"`
	ApprovedAt     time.Time `bson:"approved_at,omitempty" json:"approved_at,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
	DroppedAt time.Time `bson:"dropped_at,omitempty" json:"dropped_at,omitempty"`
}

// ============================================================================
// Result Summary Model
// ============================================================================

// ResultSummary holds the computed GPA/CGPA for one (student, semester).
// GPA and CGPA are nil when the student has no completed credited
// registrations in scope — never coerced to zero.
type ResultSummary struct {
	ID                  string    `bson:"_id" json:"id"`
	StudentID           string    `bson:"student_id" json:"student_id"`
	Semester            string    `bson:"semester" json:"semester"`
	GPA                 *float64  `bson:"gpa,omitempty" json:"gpa"`
	CGPA                *float64  `bson:"cgpa,omitempty" json:"cgpa"`
	TotalUnits          int32     `bson:"total_units" json:"total_units"`
	TotalWeightedPoints float64   `bson:"total_weighted_points" json:"total_weighted_points"`
	ComputedAt          time.Time `bson:"computed_at" json:"computed_at"`
	CreatedAt           time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt           time.Time `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// ============================================================================
// Audit Log Model
// ============================================================================

// AuditLog represents an audit log entry
type AuditLog struct {
	ID        string                 `bson:"_id" json:"id"`
	Timestamp time.Time              `bson:"timestamp" json:"timestamp"`
	UserID    string                 `bson:"user_id" json:"user_id"`
	Action    string                 `bson:"action" json:"action"`
	Resource  string                 `bson:"resource" json:"resource"`
	Details   map[string]interface{} `bson:"details,omitempty" json:"details,omitempty"`
	IPAddress string                 `bson:"ip_address,omitempty" json:"ip_address,omitempty"`
}

// ============================================================================
// Response Models (for API responses)
// ============================================================================

// RegistrationWithCourse extends Registration with denormalized course info
type RegistrationWithCourse struct {
	Registration
	CourseCode  string `json:"course_code"`
	CourseTitle string `json:"course_title"`
	CreditUnits int32  `json:"credit_units"`
}

// CohortEntry is one row of a course's score sheet as seen by staff
// (unredacted, includes the student identity).
type CohortEntry struct {
	RegistrationID string             `json:"registration_id"`
	StudentID      string             `json:"student_id"`
	MatricNumber   string             `json:"matric_number"`
	StudentName    string             `json:"student_name"`
	Status         RegistrationStatus `json:"status"`
	Grade          *string            `json:"grade,omitempty"`
	GradePoint     *float64           `json:"grade_point,omitempty"`
	ApprovalStatus string             `json:"approval_status"`
	IsPublished    bool               `json:"is_published"`
}

// SemesterResult bundles the stored summary (may be nil when approval has
// not yet touched the semester) with the student's registrations for it.
type SemesterResult struct {
	Semester string                   `json:"semester"`
	Summary  *ResultSummary           `json:"summary,omitempty"`
	Courses  []RegistrationWithCourse `json:"courses"`
}

// SystemStats represents system statistics for the admin dashboard
type SystemStats struct {
	TotalStudents      int64    `json:"total_students"`
	TotalLecturers     int64    `json:"total_lecturers"`
	TotalCourses       int64    `json:"total_courses"`
	TotalRegistrations int64    `json:"total_registrations"`
	PublishedResults   int64    `json:"published_results"`
	CurrentSemester    string   `json:"current_semester,omitempty"`
	MeanGPA            *float64 `json:"mean_gpa,omitempty"`
	MedianGPA          *float64 `json:"median_gpa,omitempty"`
}

// ============================================================================
// Validation Constants
// ============================================================================

const (
	// User roles
	RoleStudent  = "student"
	RoleLecturer = "lecturer"
	RoleAdmin    = "admin"

	// Audit actions
	ActionLogin          = "login"
	ActionLogout         = "logout"
	ActionRegister       = "course_register"
	ActionDrop           = "course_drop"
	ActionScoreImport    = "score_import"
	ActionApprovePublish = "approve_publish"
	ActionCourseCreate   = "course_create"
	ActionCourseUpdate   = "course_update"
	ActionCourseDelete   = "course_delete"
	ActionUserCreate     = "user_create"
	ActionUserUpdate     = "user_update"
	ActionChangePassword = "change_password"
	ActionResetPassword  = "reset_password"
)

// IsValidRole checks if a user role is valid
func IsValidRole(role string) bool {
	return role == RoleStudent || role == RoleLecturer || role == RoleAdmin
}

// ============================================================================
// Filter/Query Models
// ============================================================================

// CourseFilter represents filters for course queries
type CourseFilter struct {
	DepartmentID string `json:"department_id,omitempty"`
	LecturerID   string `json:"lecturer_id,omitempty"`
	Semester     string `json:"semester,omitempty"`
	SearchQuery  string `json:"search_query,omitempty"`
}

// UserFilter represents filters for user queries
type UserFilter struct {
	Role         string `json:"role,omitempty"`
	DepartmentID string `json:"department_id,omitempty"`
	ActiveOnly   bool   `json:"active_only"`
}
