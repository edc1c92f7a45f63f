package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	deliveryDomain "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/delivery/domain"
)

// RegistrationRepoMongoDB implementa RegistrationRepository sobre la
// colección device_registrations. El token es el _id: único por diseño.
type RegistrationRepoMongoDB struct {
	coll *mongo.Collection
}

func NewRegistrationRepoMongoDB(client *mongo.Client, dbName string) *RegistrationRepoMongoDB {
	return &RegistrationRepoMongoDB{
		coll: client.Database(dbName).Collection("device_registrations"),
	}
}

type mongoRegistration struct {
	Token      string    `bson:"_id"`
	UserID     string    `bson:"userId"`
	Platform   string    `bson:"platform"`
	Revoked    bool      `bson:"revoked"`
	LastSeenAt time.Time `bson:"lastSeenAt"`
}

func (r *RegistrationRepoMongoDB) Create(ctx context.Context, reg *deliveryDomain.DeviceRegistration) error {
	_, err := r.coll.InsertOne(ctx, mongoRegistration{
		Token:      reg.Token,
		UserID:     reg.UserID,
		Platform:   reg.Platform,
		Revoked:    reg.Revoked,
		LastSeenAt: reg.LastSeenAt,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return deliveryDomain.ErrRegistrationExists
		}
		return err
	}
	return nil
}

func (r *RegistrationRepoMongoDB) ListActiveByUser(ctx context.Context, userID string) ([]*deliveryDomain.DeviceRegistration, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"userId": userID, "revoked": false})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var regs []*deliveryDomain.DeviceRegistration
	for cursor.Next(ctx) {
		var m mongoRegistration
		if err := cursor.Decode(&m); err != nil {
			return nil, err
		}
		regs = append(regs, &deliveryDomain.DeviceRegistration{
			UserID:     m.UserID,
			Token:      m.Token,
			Platform:   m.Platform,
			Revoked:    m.Revoked,
			LastSeenAt: m.LastSeenAt,
		})
	}
	return regs, cursor.Err()
}

func (r *RegistrationRepoMongoDB) UpdateLastSeen(ctx context.Context, token string, at time.Time) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": token}, bson.M{"$set": bson.M{"lastSeenAt": at}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return deliveryDomain.ErrRegistrationNotFound
	}
	return nil
}

// Revoke es monotónico: un registro ya revocado se queda revocado.
func (r *RegistrationRepoMongoDB) Revoke(ctx context.Context, token string) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": token}, bson.M{"$set": bson.M{"revoked": true}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return deliveryDomain.ErrRegistrationNotFound
	}
	return nil
}

var _ deliveryDomain.RegistrationRepository = (*RegistrationRepoMongoDB)(nil)
