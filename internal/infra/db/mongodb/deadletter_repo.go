package mongodb

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	dlDomain "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/deadletter/domain"
)

// DeadLetterRepoMongoDB implementa dlDomain.Store sobre la colección
// dead_letters del almacén documental.
type DeadLetterRepoMongoDB struct {
	coll *mongo.Collection
}

func NewDeadLetterRepoMongoDB(client *mongo.Client, dbName string) *DeadLetterRepoMongoDB {
	return &DeadLetterRepoMongoDB{
		coll: client.Database(dbName).Collection("dead_letters"),
	}
}

type mongoDeadLetter struct {
	ID              uuid.UUID `bson:"_id"`
	Channel         string    `bson:"channel"`
	OriginalMessage []byte    `bson:"originalMessage"`
	ErrorReason     string    `bson:"errorReason"`
	CreatedAt       time.Time `bson:"createdAt"`
}

func (r *DeadLetterRepoMongoDB) Append(ctx context.Context, rec dlDomain.Record) error {
	_, err := r.coll.InsertOne(ctx, mongoDeadLetter{
		ID:              rec.ID,
		Channel:         rec.Channel,
		OriginalMessage: rec.OriginalMessage,
		ErrorReason:     rec.ErrorReason,
		CreatedAt:       rec.Timestamp,
	})
	return err
}

func (r *DeadLetterRepoMongoDB) List(ctx context.Context, channel string, limit int) ([]dlDomain.Record, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.coll.Find(ctx, bson.M{"channel": channel}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []dlDomain.Record
	for cursor.Next(ctx) {
		var m mongoDeadLetter
		if err := cursor.Decode(&m); err != nil {
			return nil, err
		}
		records = append(records, dlDomain.Record{
			ID:              m.ID,
			Channel:         m.Channel,
			OriginalMessage: m.OriginalMessage,
			ErrorReason:     m.ErrorReason,
			Timestamp:       m.CreatedAt,
		})
	}
	return records, cursor.Err()
}

// Verificación en tiempo de compilación.
var _ dlDomain.Store = (*DeadLetterRepoMongoDB)(nil)
