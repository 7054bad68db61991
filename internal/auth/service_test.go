package auth

import (
	"context"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

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

func testConfig() *shared.AppConfig {
	return &shared.AppConfig{
		Environment: "development",
		Security: shared.SecurityConfig{
			JWTSecret:          "integration-test-secret",
			JWTExpirationHours: 24,
			BCryptCost:         bcrypt.MinCost,
		},
	}
}

// seedUser inserts an active student and returns its ID.
func seedUser(t *testing.T, db *mongo.Database, email, password string) string {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	userID := shared.GenerateID("user")
	_, err = db.Collection(shared.ColUsers).InsertOne(context.Background(), shared.User{
		ID:           userID,
		Email:        email,
		PasswordHash: string(hash),
		Role:         shared.RoleStudent,
		Name:         "Test Student",
		MatricNumber: "2021/400001",
		IsActive:     true,
		CreatedAt:    time.Now(),
	})
	if err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return userID
}

func cleanupUser(db *mongo.Database, userID string) {
	ctx := context.Background()
	db.Collection(shared.ColUsers).DeleteOne(ctx, bson.M{"_id": userID})
	db.Collection(shared.ColSessions).DeleteMany(ctx, bson.M{"user_id": userID})
}

func TestValidateToken_SessionLifecycle(t *testing.T) {
	client, db := connectTestDB(t)
	defer shared.DisconnectMongoDB(client)

	userID := seedUser(t, db, "session-lifecycle@test.example", "password123")
	defer cleanupUser(db, userID)

	ctx := context.Background()
	svc := NewService(db, testConfig())

	result, err := svc.Login(ctx, "session-lifecycle@test.example", "password123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	user, err := svc.ValidateToken(ctx, result.Token)
	if err != nil {
		t.Fatalf("ValidateToken failed for a fresh session: %v", err)
	}
	if user.ID != userID {
		t.Errorf("expected user %s, got %s", userID, user.ID)
	}
	if user.PasswordHash != "" {
		t.Error("validated user must not carry the password hash")
	}

	if err := svc.Logout(ctx, result.Token); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if _, err := svc.ValidateToken(ctx, result.Token); shared.KindOf(err) != shared.KindUnauthenticated {
		t.Errorf("expected unauthenticated after logout, got %v", err)
	}
}

func TestValidateToken_ExpiredStoredSession(t *testing.T) {
	client, db := connectTestDB(t)
	defer shared.DisconnectMongoDB(client)

	userID := seedUser(t, db, "session-expiry@test.example", "password123")
	defer cleanupUser(db, userID)

	ctx := context.Background()
	svc := NewService(db, testConfig())

	result, err := svc.Login(ctx, "session-expiry@test.example", "password123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	// Age the stored session past its expiry while the JWT itself is still
	// inside its validity window.
	_, err = db.Collection(shared.ColSessions).UpdateMany(ctx,
		bson.M{"user_id": userID},
		bson.M{"$set": bson.M{"expires_at": time.Now().Add(-time.Minute)}})
	if err != nil {
		t.Fatalf("failed to age session: %v", err)
	}

	if _, err := svc.ValidateToken(ctx, result.Token); shared.KindOf(err) != shared.KindUnauthenticated {
		t.Fatalf("expected unauthenticated for an expired stored session, got %v", err)
	}

	// The expired session is reaped on first use.
	count, err := db.Collection(shared.ColSessions).CountDocuments(ctx, bson.M{"user_id": userID})
	if err != nil {
		t.Fatalf("failed to count sessions: %v", err)
	}
	if count != 0 {
		t.Errorf("expected expired session to be removed, found %d", count)
	}
}
