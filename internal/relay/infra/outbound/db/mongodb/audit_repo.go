package mongodb

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/relay"
)

// AuditRepoMongoDB persiste las copias de auditoría y el ledger de mensajes
// procesados en el almacén documental.
type AuditRepoMongoDB struct {
	auditColl     *mongo.Collection
	processedColl *mongo.Collection
}

func NewAuditRepoMongoDB(client *mongo.Client, dbName string) *AuditRepoMongoDB {
	db := client.Database(dbName)
	return &AuditRepoMongoDB{
		auditColl:     db.Collection("event_audit"),
		processedColl: db.Collection("processed_messages"),
	}
}

type mongoAudit struct {
	ID         uuid.UUID `bson:"_id"`
	MessageID  string    `bson:"messageId"`
	EventType  string    `bson:"eventType"`
	UserID     string    `bson:"userId,omitempty"`
	Raw        []byte    `bson:"raw"`
	ReceivedAt time.Time `bson:"receivedAt"`
}

func (r *AuditRepoMongoDB) SaveAudit(ctx context.Context, rec relay.AuditRecord) error {
	_, err := r.auditColl.InsertOne(ctx, mongoAudit{
		ID:         rec.ID,
		MessageID:  rec.MessageID,
		EventType:  rec.EventType,
		UserID:     rec.UserID,
		Raw:        rec.Raw,
		ReceivedAt: rec.ReceivedAt,
	})
	return err
}

// MarkIfNew usa el _id como clave de idempotencia: el insert duplicado
// falla y eso nos dice que el mensaje ya pasó por aquí.
func (r *AuditRepoMongoDB) MarkIfNew(ctx context.Context, messageID string) (bool, error) {
	_, err := r.processedColl.InsertOne(ctx, bson.M{
		"_id":         messageID,
		"processedAt": time.Now().UTC(),
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Verificación en tiempo de compilación.
var (
	_ relay.AuditRepository = (*AuditRepoMongoDB)(nil)
	_ relay.ProcessedLedger = (*AuditRepoMongoDB)(nil)
)
