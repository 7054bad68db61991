// ============================================================================
// internal/shared/database.go
// MongoDB connection, index setup, and helper utilities
// ============================================================================

package shared

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Collection names used across services.
const (
	ColUsers            = "users"
	ColSessions         = "sessions"
	ColDepartments      = "departments"
	ColAcademicSessions = "academic_sessions"
	ColSemesters        = "semesters"
	ColCourses          = "courses"
	ColRegistrations    = "registrations"
	ColResultSummaries  = "result_summaries"
	ColAuditLogs        = "audit_logs"
)

// MongoConfig holds MongoDB connection configuration
type MongoConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
	MaxPoolSize    uint64
	MinPoolSize    uint64
	MaxIdleTime    time.Duration
}

// DefaultMongoConfig returns default MongoDB configuration
func DefaultMongoConfig(uri, database string) *MongoConfig {
	return &MongoConfig{
		URI:            uri,
		Database:       database,
		ConnectTimeout: 20 * time.Second,
		MaxPoolSize:    50,
		MinPoolSize:    10,
		MaxIdleTime:    30 * time.Second,
	}
}

// ConnectMongoDB establishes connection to MongoDB Atlas/Local with proper configuration
func ConnectMongoDB(config *MongoConfig) (*mongo.Client, *mongo.Database, error) {
	if config == nil {
		return nil, nil, fmt.Errorf("mongo config cannot be nil")
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.ConnectTimeout)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(config.URI).
		SetMaxPoolSize(config.MaxPoolSize).
		SetMinPoolSize(config.MinPoolSize).
		SetMaxConnIdleTime(config.MaxIdleTime).
		SetServerSelectionTimeout(10 * time.Second).
		SetConnectTimeout(config.ConnectTimeout).
		SetSocketTimeout(30 * time.Second).
		SetHeartbeatInterval(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping MongoDB to verify connection
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer pingCancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	log.Printf("Successfully connected to MongoDB (Database: %s)", config.Database)

	db := client.Database(config.Database)
	return client, db, nil
}

// DisconnectMongoDB gracefully closes MongoDB connection
func DisconnectMongoDB(client *mongo.Client) error {
	if client == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}

	log.Println("Successfully disconnected from MongoDB")
	return nil
}

// EnsureIndexes creates the indexes the ledger invariants rely on.
// The registrations index is partial: the (student, course, semester) tuple
// is unique only among non-dropped registrations, so a student may re-register
// a course they previously dropped.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	regIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "student_id", Value: 1},
			{Key: "course_id", Value: 1},
			{Key: "semester", Value: 1},
		},
		Options: options.Index().
			SetUnique(true).
			// Partial filters cannot express $ne, so enumerate the live states.
			SetPartialFilterExpression(bson.M{
				"status": bson.M{"$in": bson.A{string(StatusRegistered), string(StatusCompleted)}},
			}),
	}
	if _, err := db.Collection(ColRegistrations).Indexes().CreateOne(ctx, regIndex); err != nil {
		return fmt.Errorf("failed to create registrations index: %w", err)
	}

	summaryIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "student_id", Value: 1},
			{Key: "semester", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	}
	if _, err := db.Collection(ColResultSummaries).Indexes().CreateOne(ctx, summaryIndex); err != nil {
		return fmt.Errorf("failed to create result_summaries index: %w", err)
	}

	sessionIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "token", Value: 1}},
		Options: options.Index(),
	}
	if _, err := db.Collection(ColSessions).Indexes().CreateOne(ctx, sessionIndex); err != nil {
		return fmt.Errorf("failed to create sessions index: %w", err)
	}

	return nil
}

// ============================================================================
// ID Generation Helpers
// ============================================================================

// GenerateID generates a unique prefixed ID
func GenerateID(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, uuid.NewString())
}

// GenerateRegistrationID generates a registration ID
func GenerateRegistrationID() string {
	return GenerateID("REG")
}

// GenerateSummaryID generates a result summary ID
func GenerateSummaryID() string {
	return GenerateID("SUM")
}

// GenerateAuditLogID generates an audit log ID
func GenerateAuditLogID() string {
	return GenerateID("AUDIT")
}

// ============================================================================
// Audit Logging Helper
// ============================================================================

// LogAuditEvent logs an audit event to the audit_logs collection
func LogAuditEvent(ctx context.Context, auditCol *mongo.Collection, userID, action, resource string, details map[string]interface{}) error {
	if auditCol == nil {
		return fmt.Errorf("audit collection is nil")
	}

	auditDoc := bson.M{
		"_id":       GenerateAuditLogID(),
		"timestamp": primitive.NewDateTimeFromTime(time.Now()),
		"user_id":   userID,
		"action":    action,
		"resource":  resource,
	}

	if details != nil {
		auditDoc["details"] = details
	}

	insertCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := auditCol.InsertOne(insertCtx, auditDoc)
	if err != nil {
		log.Printf("Warning: Failed to log audit event: %v", err)
		return err
	}

	return nil
}

// ============================================================================
// Query Helpers
// ============================================================================

// BuildFindOptions creates common find options with defaults
func BuildFindOptions(limit int64, sortField string, sortOrder int) *options.FindOptions {
	opts := options.Find()

	if limit > 0 {
		opts.SetLimit(limit)
	}

	if sortField != "" {
		opts.SetSort(bson.D{{Key: sortField, Value: sortOrder}})
	}

	return opts
}

// CountDocumentsWithTimeout counts documents with timeout
func CountDocumentsWithTimeout(ctx context.Context, col *mongo.Collection, filter bson.M, timeout time.Duration) (int64, error) {
	queryCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	count, err := col.CountDocuments(queryCtx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}

	return count, nil
}

// ============================================================================
// Transaction Helpers
// ============================================================================

// WithTransaction executes a function within a MongoDB transaction
func WithTransaction(ctx context.Context, client *mongo.Client, fn func(sessCtx mongo.SessionContext) error) error {
	session, err := client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})

	return err
}
