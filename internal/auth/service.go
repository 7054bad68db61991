// Package auth handles login, logout, token validation, and password
// changes. Tokens are JWTs backed by a sessions collection so they can be
// revoked server-side.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"github.com/codeAKstan/gradesync-sub000/internal/shared"
)

// Service implements authentication operations
type Service struct {
	db          *mongo.Database
	config      *shared.AppConfig
	usersCol    *mongo.Collection
	sessionsCol *mongo.Collection
	auditCol    *mongo.Collection
}

// CustomClaims for JWT
type CustomClaims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// NewService creates a new auth Service instance
func NewService(db *mongo.Database, config *shared.AppConfig) *Service {
	return &Service{
		db:          db,
		config:      config,
		usersCol:    db.Collection(shared.ColUsers),
		sessionsCol: db.Collection(shared.ColSessions),
		auditCol:    db.Collection(shared.ColAuditLogs),
	}
}

// LoginResult is what a successful login hands back to the gateway.
type LoginResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      shared.User `json:"user"`
}

// Login authenticates by email, matric number, or staff ID and returns a
// signed token plus the user record.
func (s *Service) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	if identifier == "" || password == "" {
		return nil, shared.InvalidArgumentf("identifier and password are required")
	}

	queryCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// 1. Find user by email OR matric number OR staff ID
	var user shared.User
	filter := bson.M{
		"$or": []bson.M{
			{"email": identifier},
			{"matric_number": identifier},
			{"staff_id": identifier},
		},
	}

	err := s.usersCol.FindOne(queryCtx, filter).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, shared.Unauthenticatedf("invalid credentials")
	}
	if err != nil {
		return nil, shared.InternalWrap(err, "failed to retrieve user")
	}

	// 2. Check password
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.Unauthenticatedf("invalid credentials")
	}

	if !user.IsActive {
		return nil, shared.PermissionDeniedf("account is inactive")
	}

	// 3. Generate JWT
	tokenString, expiresAt, err := s.generateToken(user.ID, user.Role)
	if err != nil {
		return nil, shared.InternalWrap(err, "failed to generate token")
	}

	// 4. Create session (allows server-side logout/revocation)
	session := shared.Session{
		ID:        shared.GenerateID("sess"),
		UserID:    user.ID,
		Token:     tokenString,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	if _, err := s.sessionsCol.InsertOne(queryCtx, session); err != nil {
		return nil, shared.InternalWrap(err, "failed to create session")
	}

	_ = shared.LogAuditEvent(ctx, s.auditCol, user.ID, shared.ActionLogin, "sessions", nil)

	user.PasswordHash = ""
	return &LoginResult{Token: tokenString, ExpiresAt: expiresAt, User: user}, nil
}

// Logout revokes the session behind the token. Idempotent: an unknown or
// already-revoked token still succeeds.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return shared.InvalidArgumentf("token is required")
	}

	queryCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// DeleteMany for idempotency in case of duplicate tokens
	_, err := s.sessionsCol.DeleteMany(queryCtx, bson.M{"token": token})
	if err != nil {
		return shared.InternalWrap(err, "failed to logout")
	}
	return nil
}

// ValidateToken verifies the signature locally, then checks the session
// store for revocation and the user record for deactivation. Returns the
// authenticated user on success.
func (s *Service) ValidateToken(ctx context.Context, token string) (*shared.User, error) {
	if token == "" {
		return nil, shared.Unauthenticatedf("token missing")
	}

	parsed, claims, err := s.parseToken(token)
	if err != nil || !parsed.Valid {
		return nil, shared.Unauthenticatedf("invalid token")
	}

	queryCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var session shared.Session
	err = s.sessionsCol.FindOne(queryCtx, bson.M{"token": token}).Decode(&session)
	if err == mongo.ErrNoDocuments {
		return nil, shared.Unauthenticatedf("session expired or revoked")
	}
	if err != nil {
		return nil, shared.InternalWrap(err, "failed to check session")
	}
	// The stored expiry governs even if the JWT exp drifts from it.
	if session.IsExpired() {
		_, _ = s.sessionsCol.DeleteOne(queryCtx, bson.M{"_id": session.ID})
		return nil, shared.Unauthenticatedf("session expired or revoked")
	}

	var user shared.User
	err = s.usersCol.FindOne(queryCtx, bson.M{"_id": claims.UserID}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, shared.Unauthenticatedf("user not found")
	}
	if err != nil {
		return nil, shared.InternalWrap(err, "failed to retrieve user")
	}

	if !user.IsActive {
		return nil, shared.PermissionDeniedf("account is inactive")
	}

	user.PasswordHash = ""
	return &user, nil
}

// ChangePassword verifies the old password, stores the new hash, and
// revokes every existing session for the user.
func (s *Service) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if userID == "" || oldPassword == "" || newPassword == "" {
		return shared.InvalidArgumentf("user ID, old password, and new password are required")
	}
	if len(newPassword) < 8 {
		return shared.InvalidArgumentf("new password must be at least 8 characters")
	}

	queryCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var user shared.User
	err := s.usersCol.FindOne(queryCtx, bson.M{"_id": userID}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return shared.NotFoundf("user not found: %s", userID)
	}
	if err != nil {
		return shared.InternalWrap(err, "failed to retrieve user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return shared.Unauthenticatedf("incorrect old password")
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.config.Security.BCryptCost)
	if err != nil {
		return shared.InternalWrap(err, "failed to process password")
	}

	_, err = s.usersCol.UpdateOne(queryCtx, bson.M{"_id": userID}, bson.M{
		"$set": bson.M{
			"password_hash": string(newHash),
			"updated_at":    time.Now(),
		},
	})
	if err != nil {
		return shared.InternalWrap(err, "failed to update password")
	}

	// Force logout everywhere
	_, _ = s.sessionsCol.DeleteMany(queryCtx, bson.M{"user_id": userID})

	_ = shared.LogAuditEvent(ctx, s.auditCol, userID, shared.ActionChangePassword, "users", nil)
	return nil
}

// ============================================================================
// Internal Helpers
// ============================================================================

// generateToken creates a signed JWT
func (s *Service) generateToken(userID, role string) (string, time.Time, error) {
	expirationTime := time.Now().Add(time.Duration(s.config.Security.JWTExpirationHours) * time.Hour)

	claims := CustomClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			// Unique jti so tokens issued in the same second differ
			ID:        shared.GenerateID("jti"),
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "gradesync",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.config.Security.JWTSecret))

	return tokenString, expirationTime, err
}

// parseToken validates the JWT signature and extracts claims
func (s *Service) parseToken(tokenString string) (*jwt.Token, *CustomClaims, error) {
	claims := &CustomClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Security.JWTSecret), nil
	})

	return token, claims, err
}
