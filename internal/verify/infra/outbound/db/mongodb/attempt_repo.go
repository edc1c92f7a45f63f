package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	verifyDomain "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/verify/domain"
)

// AttemptRepoMongoDB audita los intentos de verificación en la colección
// verification_attempts.
type AttemptRepoMongoDB struct {
	coll *mongo.Collection
}

func NewAttemptRepoMongoDB(client *mongo.Client, dbName string) *AttemptRepoMongoDB {
	return &AttemptRepoMongoDB{
		coll: client.Database(dbName).Collection("verification_attempts"),
	}
}

func (r *AttemptRepoMongoDB) SaveAttempt(ctx context.Context, a verifyDomain.Attempt) error {
	_, err := r.coll.InsertOne(ctx, bson.M{
		"to":        a.To,
		"channel":   a.Channel,
		"status":    a.Status,
		"timestamp": a.Timestamp,
	})
	return err
}

// CountRecent devuelve los intentos de un número en la ventana dada, útil
// para inspección manual.
func (r *AttemptRepoMongoDB) CountRecent(ctx context.Context, to string, window time.Duration) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{
		"to":        to,
		"timestamp": bson.M{"$gte": time.Now().Add(-window)},
	})
}

var _ verifyDomain.AttemptRepository = (*AttemptRepoMongoDB)(nil)
