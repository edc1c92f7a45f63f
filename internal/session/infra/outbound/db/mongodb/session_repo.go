package mongodb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	sessionDomain "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/session/domain"
	sharedDomain "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/shared/domain"
)

// SessionRepoMongoDB implementa SessionRepository y OutboxRepository
// sobre MongoDB.
type SessionRepoMongoDB struct {
	client       *mongo.Client
	sessionsColl *mongo.Collection
	outboxColl   *mongo.Collection
}

func NewSessionRepoMongoDB(ctx context.Context, client *mongo.Client, dbName string) (*SessionRepoMongoDB, error) {
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("could not ping mongoDB: %w", err)
	}

	db := client.Database(dbName)
	return &SessionRepoMongoDB{
		client:       client,
		sessionsColl: db.Collection("sessions"),
		outboxColl:   db.Collection("outbox"),
	}, nil
}

// --- Structs de BSON para el mapeo ---
// Se definen localmente para no "contaminar" el dominio con tags de BSON.

type mongoSession struct {
	ID           uuid.UUID              `bson:"_id"`
	UserID       string                 `bson:"userId"`
	GameID       string                 `bson:"gameId"`
	GameType     string                 `bson:"gameType"`
	StartedAt    time.Time              `bson:"startedAt"`
	CompletedAt  *time.Time             `bson:"completedAt,omitempty"`
	Score        int                    `bson:"score"`
	PointsEarned int                    `bson:"pointsEarned"`
	IsCompleted  bool                   `bson:"isCompleted"`
	Metadata     map[string]interface{} `bson:"metadata,omitempty"`
}

type mongoOutboxEvent struct {
	ID            uuid.UUID   `bson:"_id"`
	AggregateType string      `bson:"aggregateType"`
	AggregateID   string      `bson:"aggregateId"`
	EventType     string      `bson:"eventType"`
	UserID        string      `bson:"userId,omitempty"`
	Payload       interface{} `bson:"payload"`
	CreatedAt     time.Time   `bson:"createdAt"`
	Processed     bool        `bson:"processed"`
}

func toMongoSession(s *sessionDomain.GameSession) mongoSession {
	return mongoSession{
		ID:           s.ID,
		UserID:       s.UserID,
		GameID:       s.GameID,
		GameType:     string(s.GameType),
		StartedAt:    s.StartedAt,
		CompletedAt:  s.CompletedAt,
		Score:        s.Score,
		PointsEarned: s.PointsEarned,
		IsCompleted:  s.IsCompleted,
		Metadata:     s.Metadata,
	}
}

func toDomainSession(m mongoSession) *sessionDomain.GameSession {
	return &sessionDomain.GameSession{
		ID:           m.ID,
		UserID:       m.UserID,
		GameID:       m.GameID,
		GameType:     sessionDomain.GameType(m.GameType),
		StartedAt:    m.StartedAt,
		CompletedAt:  m.CompletedAt,
		Score:        m.Score,
		PointsEarned: m.PointsEarned,
		IsCompleted:  m.IsCompleted,
		Metadata:     m.Metadata,
	}
}

func toMongoOutboxEvent(evt sharedDomain.OutboxEvent) mongoOutboxEvent {
	return mongoOutboxEvent{
		ID:            evt.ID,
		AggregateType: evt.AggregateType,
		AggregateID:   evt.AggregateID,
		EventType:     evt.EventType,
		UserID:        evt.UserID,
		Payload:       evt.Payload,
		CreatedAt:     evt.CreatedAt,
		Processed:     evt.Processed,
	}
}

// --- SessionRepository ---

func (r *SessionRepoMongoDB) Create(ctx context.Context, s *sessionDomain.GameSession) error {
	if _, err := r.sessionsColl.InsertOne(ctx, toMongoSession(s)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return sessionDomain.ErrSessionAlreadyExists
		}
		return err
	}
	return nil
}

func (r *SessionRepoMongoDB) GetByID(ctx context.Context, id uuid.UUID) (*sessionDomain.GameSession, error) {
	var m mongoSession
	err := r.sessionsColl.FindOne(ctx, bson.M{"_id": id}).Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, sessionDomain.ErrSessionNotFound
		}
		return nil, err
	}
	return toDomainSession(m), nil
}

// Complete escribe la sesión cerrada y su evento de outbox en una única
// transacción: o se persisten ambos o ninguno.
func (r *SessionRepoMongoDB) Complete(ctx context.Context, s *sessionDomain.GameSession, evt sharedDomain.OutboxEvent) error {
	session, err := r.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		m := toMongoSession(s)
		filter := bson.M{"_id": m.ID, "isCompleted": false}
		update := bson.M{"$set": m}

		res, err := r.sessionsColl.UpdateOne(sessCtx, filter, update)
		if err != nil {
			return nil, err
		}
		if res.MatchedCount == 0 {
			// O no existe o alguien la completó entre la lectura y esta
			// escritura; el filtro isCompleted=false cubre la carrera.
			return nil, sessionDomain.ErrSessionAlreadyCompleted
		}

		if _, err := r.outboxColl.InsertOne(sessCtx, toMongoOutboxEvent(evt)); err != nil {
			return nil, err
		}
		return nil, nil
	})

	return err
}

func (r *SessionRepoMongoDB) ListByUser(ctx context.Context, userID string, limit int) ([]*sessionDomain.GameSession, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "startedAt", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.sessionsColl.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var sessions []*sessionDomain.GameSession
	for cursor.Next(ctx) {
		var m mongoSession
		if err := cursor.Decode(&m); err != nil {
			return nil, err
		}
		sessions = append(sessions, toDomainSession(m))
	}
	return sessions, cursor.Err()
}

// --- OutboxRepository (para el relayer) ---

func (r *SessionRepoMongoDB) FetchPendingOutbox(ctx context.Context, limit int) ([]sharedDomain.OutboxEvent, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := r.outboxColl.Find(ctx, bson.M{"processed": false}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []sharedDomain.OutboxEvent
	for cursor.Next(ctx) {
		var m mongoOutboxEvent
		if err := cursor.Decode(&m); err != nil {
			return nil, err
		}

		// El payload BSON se normaliza a map vía JSON para que el relayer
		// pueda re-decodificarlo con el registro de eventos.
		payloadBytes, err := json.Marshal(m.Payload)
		if err != nil {
			return nil, fmt.Errorf("invalid payload in outbox doc %s: %w", m.ID, err)
		}
		var payload map[string]interface{}
		if err := json.Unmarshal(payloadBytes, &payload); err != nil {
			return nil, fmt.Errorf("invalid payload in outbox doc %s: %w", m.ID, err)
		}

		events = append(events, sharedDomain.OutboxEvent{
			ID:            m.ID,
			AggregateType: m.AggregateType,
			AggregateID:   m.AggregateID,
			EventType:     m.EventType,
			UserID:        m.UserID,
			Payload:       payload,
			CreatedAt:     m.CreatedAt,
			Processed:     m.Processed,
		})
	}
	return events, cursor.Err()
}

func (r *SessionRepoMongoDB) MarkOutboxProcessed(ctx context.Context, id uuid.UUID) error {
	res, err := r.outboxColl.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"processed": true}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("outbox event not found: %s", id)
	}
	return nil
}

// Verificación en tiempo de compilación.
var (
	_ sessionDomain.SessionRepository = (*SessionRepoMongoDB)(nil)
	_ sharedDomain.OutboxRepository   = (*SessionRepoMongoDB)(nil)
)
