package shared

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ResolveSemesterName accepts either a semester document ID or a semester
// display name and returns the canonical display name. The ledger keys on
// the display name, so every write path resolves through here first; an
// unknown reference fails as not-found instead of silently matching nothing.
func ResolveSemesterName(ctx context.Context, semestersCol *mongo.Collection, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", InvalidArgumentf("semester is required")
	}

	queryCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var sem Semester
	err := semestersCol.FindOne(queryCtx, bson.M{
		"$or": []bson.M{
			{"_id": ref},
			{"name": ref},
		},
	}).Decode(&sem)
	if err == mongo.ErrNoDocuments {
		return "", NotFoundf("semester %q not found", ref)
	}
	if err != nil {
		return "", InternalWrap(err, "failed to resolve semester")
	}

	return sem.Name, nil
}

// CurrentSemesterName returns the display name of the semester flagged
// current, or "" when none is flagged.
func CurrentSemesterName(ctx context.Context, semestersCol *mongo.Collection) (string, error) {
	queryCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var sem Semester
	err := semestersCol.FindOne(queryCtx, bson.M{"is_current": true}).Decode(&sem)
	if err == mongo.ErrNoDocuments {
		return "", nil
	}
	if err != nil {
		return "", InternalWrap(err, "failed to look up current semester")
	}

	return sem.Name, nil
}
