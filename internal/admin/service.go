// Package admin covers account management and the system dashboard.
package admin

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"log"
	"math"
	"strings"
	"time"

	mstats "github.com/montanaflynn/stats"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/codeAKstan/gradesync-sub000/internal/grading"
	"github.com/codeAKstan/gradesync-sub000/internal/shared"
)

// Service implements admin operations
type Service struct {
	db               *mongo.Database
	config           *shared.AppConfig
	usersCol         *mongo.Collection
	coursesCol       *mongo.Collection
	registrationsCol *mongo.Collection
	summariesCol     *mongo.Collection
	semestersCol     *mongo.Collection
	sessionsCol      *mongo.Collection
	auditLogsCol     *mongo.Collection
}

// NewService creates a new admin Service instance
func NewService(db *mongo.Database, config *shared.AppConfig) *Service {
	return &Service{
		db:               db,
		config:           config,
		usersCol:         db.Collection(shared.ColUsers),
		coursesCol:       db.Collection(shared.ColCourses),
		registrationsCol: db.Collection(shared.ColRegistrations),
		summariesCol:     db.Collection(shared.ColResultSummaries),
		semestersCol:     db.Collection(shared.ColSemesters),
		sessionsCol:      db.Collection(shared.ColSessions),
		auditLogsCol:     db.Collection(shared.ColAuditLogs),
	}
}

// ============================================================================
// User Management
// ============================================================================

// CreateUserInput carries the fields for account creation.
type CreateUserInput struct {
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=8"`
	Name         string `json:"name" validate:"required,min=2,max=120"`
	Role         string `json:"role" validate:"required,oneof=student lecturer admin"`
	MatricNumber string `json:"matric_number"`
	StaffID      string `json:"staff_id"`
	Level        int32  `json:"level"`
	DepartmentID string `json:"department_id"`
}

// CreateUser provisions an account. Students must carry a well-formed
// matric number, unique across users; staff get a staff ID instead.
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput, actingAdminID string) (*shared.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Email == "" || in.Password == "" || in.Name == "" {
		return nil, shared.InvalidArgumentf("email, password, and name are required")
	}
	if !shared.IsValidRole(in.Role) {
		return nil, shared.InvalidArgumentf("invalid role: %s", in.Role)
	}

	queryCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	or := []bson.M{{"email": in.Email}}
	if in.Role == shared.RoleStudent {
		in.MatricNumber = grading.NormalizeMatricNumber(in.MatricNumber)
		if !grading.IsValidMatricNumber(in.MatricNumber) {
			return nil, shared.InvalidArgumentf("matric number must match YYYY/NNNNNN: %q", in.MatricNumber)
		}
		or = append(or, bson.M{"matric_number": in.MatricNumber})
	} else {
		in.MatricNumber = ""
		if in.StaffID != "" {
			or = append(or, bson.M{"staff_id": in.StaffID})
		}
	}

	count, err := s.usersCol.CountDocuments(queryCtx, bson.M{"$or": or})
	if err != nil {
		return nil, shared.InternalWrap(err, "failed to check existing users")
	}
	if count > 0 {
		return nil, shared.AlreadyExistsf("a user with this email, matric number, or staff ID already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.config.Security.BCryptCost)
	if err != nil {
		return nil, shared.InternalWrap(err, "failed to hash password")
	}

	now := time.Now()
	user := shared.User{
		ID:           shared.GenerateID("user"),
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         in.Role,
		Name:         strings.TrimSpace(in.Name),
		MatricNumber: in.MatricNumber,
		StaffID:      in.StaffID,
		Level:        in.Level,
		DepartmentID: in.DepartmentID,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := s.usersCol.InsertOne(queryCtx, user); err != nil {
		return nil, shared.InternalWrap(err, "failed to create user")
	}

	if logErr := shared.LogAuditEvent(ctx, s.auditLogsCol, actingAdminID, shared.ActionUserCreate, "users", map[string]interface{}{
		"user_id": user.ID,
		"role":    user.Role,
	}); logErr != nil {
		log.Printf("WARN: failed to write audit log for user create: %v", logErr)
	}

	user.PasswordHash = ""
	return &user, nil
}

// ListUsers returns users matching the filter, sorted by name.
func (s *Service) ListUsers(ctx context.Context, filter shared.UserFilter) ([]shared.User, error) {
	query := bson.M{}
	if filter.Role != "" {
		if !shared.IsValidRole(filter.Role) {
			return nil, shared.InvalidArgumentf("invalid role: %s", filter.Role)
		}
		query["role"] = filter.Role
	}
	if filter.DepartmentID != "" {
		query["department_id"] = filter.DepartmentID
	}
	if filter.ActiveOnly {
		query["is_active"] = true
	}

	opts := options.Find().SetSort(bson.M{"name": 1})
	cursor, err := s.usersCol.Find(ctx, query, opts)
	if err != nil {
		return nil, shared.InternalWrap(err, "failed to list users")
	}
	defer cursor.Close(ctx)

	users := []shared.User{}
	for cursor.Next(ctx) {
		var u shared.User
		if err := cursor.Decode(&u); err != nil {
			continue
		}
		u.PasswordHash = ""
		users = append(users, u)
	}
	return users, nil
}

// ResetPassword generates a fresh random password for the user, stores its
// hash, revokes all sessions, and returns the plaintext once.
func (s *Service) ResetPassword(ctx context.Context, userID, actingAdminID string) (string, error) {
	if userID == "" {
		return "", shared.InvalidArgumentf("user ID is required")
	}

	queryCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	newPassword := generateRandomPassword()
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.config.Security.BCryptCost)
	if err != nil {
		return "", shared.InternalWrap(err, "failed to hash password")
	}

	res, err := s.usersCol.UpdateOne(queryCtx, bson.M{"_id": userID}, bson.M{
		"$set": bson.M{"password_hash": string(hash), "updated_at": time.Now()},
	})
	if err != nil {
		return "", shared.InternalWrap(err, "failed to reset password")
	}
	if res.MatchedCount == 0 {
		return "", shared.NotFoundf("user not found: %s", userID)
	}

	_, _ = s.sessionsCol.DeleteMany(queryCtx, bson.M{"user_id": userID})

	if logErr := shared.LogAuditEvent(ctx, s.auditLogsCol, actingAdminID, shared.ActionResetPassword, "users", map[string]interface{}{
		"user_id": userID,
	}); logErr != nil {
		log.Printf("WARN: failed to write audit log for password reset: %v", logErr)
	}

	return newPassword, nil
}

// SetUserActive toggles an account. Deactivated users cannot log in and
// their live sessions are revoked.
func (s *Service) SetUserActive(ctx context.Context, userID string, active bool, actingAdminID string) error {
	if userID == "" {
		return shared.InvalidArgumentf("user ID is required")
	}
	if userID == actingAdminID && !active {
		return shared.FailedPreconditionf("cannot deactivate your own account")
	}

	queryCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	res, err := s.usersCol.UpdateOne(queryCtx, bson.M{"_id": userID}, bson.M{
		"$set": bson.M{"is_active": active, "updated_at": time.Now()},
	})
	if err != nil {
		return shared.InternalWrap(err, "failed to update user")
	}
	if res.MatchedCount == 0 {
		return shared.NotFoundf("user not found: %s", userID)
	}

	if !active {
		_, _ = s.sessionsCol.DeleteMany(queryCtx, bson.M{"user_id": userID})
	}

	if logErr := shared.LogAuditEvent(ctx, s.auditLogsCol, actingAdminID, shared.ActionUserUpdate, "users", map[string]interface{}{
		"user_id":   userID,
		"is_active": active,
	}); logErr != nil {
		log.Printf("WARN: failed to write audit log for user update: %v", logErr)
	}

	return nil
}

// ============================================================================
// Audit Log
// ============================================================================

// ListAuditLogs returns the most recent audit entries, newest first.
func (s *Service) ListAuditLogs(ctx context.Context, limit int64) ([]shared.AuditLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	opts := shared.BuildFindOptions(limit, "timestamp", -1)
	cursor, err := s.auditLogsCol.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, shared.InternalWrap(err, "failed to list audit logs")
	}
	defer cursor.Close(ctx)

	logs := []shared.AuditLog{}
	for cursor.Next(ctx) {
		var entry shared.AuditLog
		if err := cursor.Decode(&entry); err != nil {
			continue
		}
		logs = append(logs, entry)
	}
	return logs, nil
}

// ============================================================================
// Stats
// ============================================================================

// GetSystemStats gathers dashboard counts in parallel, then folds the
// published summaries into mean/median GPA.
func (s *Service) GetSystemStats(ctx context.Context) (*shared.SystemStats, error) {
	queryCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	out := &shared.SystemStats{}

	g, gctx := errgroup.WithContext(queryCtx)
	g.Go(func() error {
		n, err := s.usersCol.CountDocuments(gctx, bson.M{"role": shared.RoleStudent})
		out.TotalStudents = n
		return err
	})
	g.Go(func() error {
		n, err := s.usersCol.CountDocuments(gctx, bson.M{"role": shared.RoleLecturer})
		out.TotalLecturers = n
		return err
	})
	g.Go(func() error {
		n, err := s.coursesCol.CountDocuments(gctx, bson.M{})
		out.TotalCourses = n
		return err
	})
	g.Go(func() error {
		n, err := s.registrationsCol.CountDocuments(gctx, bson.M{"status": bson.M{"$ne": string(shared.StatusDropped)}})
		out.TotalRegistrations = n
		return err
	})
	g.Go(func() error {
		n, err := s.registrationsCol.CountDocuments(gctx, bson.M{"is_published": true})
		out.PublishedResults = n
		return err
	})
	g.Go(func() error {
		name, err := shared.CurrentSemesterName(gctx, s.semestersCol)
		out.CurrentSemester = name
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, shared.InternalWrap(err, "failed to gather system stats")
	}

	gpas, err := s.allGPAs(queryCtx)
	if err != nil {
		return nil, err
	}
	if len(gpas) > 0 {
		if mean, err := mstats.Mean(gpas); err == nil {
			mean = math.Round(mean*100) / 100
			out.MeanGPA = &mean
		}
		if median, err := mstats.Median(gpas); err == nil {
			median = math.Round(median*100) / 100
			out.MedianGPA = &median
		}
	}

	return out, nil
}

func (s *Service) allGPAs(ctx context.Context) ([]float64, error) {
	cursor, err := s.summariesCol.Find(ctx, bson.M{"gpa": bson.M{"$exists": true}})
	if err != nil {
		return nil, shared.InternalWrap(err, "failed to retrieve result summaries")
	}
	defer cursor.Close(ctx)

	var gpas []float64
	for cursor.Next(ctx) {
		var summary shared.ResultSummary
		if err := cursor.Decode(&summary); err != nil {
			continue
		}
		if summary.GPA != nil {
			gpas = append(gpas, *summary.GPA)
		}
	}
	return gpas, nil
}

// ============================================================================
// Helpers
// ============================================================================

func generateRandomPassword() string {
	b := make([]byte, 8)
	rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
