package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ttnmanager/models"
)

type MongoTTNRepo struct {
	DB *mongo.Database
}

func NewMongoTTNRepo(db *mongo.Database) *MongoTTNRepo {
	return &MongoTTNRepo{DB: db}
}

// ttnDocument stores cost as its decimal string.
type ttnDocument struct {
	ID               string    `bson:"_id"`
	UserID           string    `bson:"user_id"`
	ClientID         string    `bson:"client_id"`
	ClientLocationID *string   `bson:"client_location_id,omitempty"`
	SenderID         string    `bson:"sender_id"`
	Description      string    `bson:"description"`
	Cost             string    `bson:"cost"`
	Status           string    `bson:"status"`
	NovaPoshtaRef    string    `bson:"nova_poshta_ref"`
	NovaPoshtaNumber string    `bson:"nova_poshta_number"`
	CreatedAt        time.Time `bson:"created_at"`
}

func (r *MongoTTNRepo) InsertTTN(ctx context.Context, t *models.TTN) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	if t.Status == "" {
		t.Status = models.TTNStatusNew
	}
	doc := ttnDocument{
		ID:               t.ID,
		UserID:           t.UserID,
		ClientID:         t.ClientID,
		ClientLocationID: t.ClientLocationID,
		SenderID:         t.SenderID,
		Description:      t.Description,
		Cost:             t.Cost.StringFixed(2),
		Status:           t.Status,
		NovaPoshtaRef:    t.NovaPoshtaRef,
		NovaPoshtaNumber: t.NovaPoshtaNumber,
		CreatedAt:        t.CreatedAt,
	}
	_, err := r.DB.Collection("ttn").InsertOne(ctx, doc)
	return storageErr("insert ttn", err)
}

func (r *MongoTTNRepo) ListTTN(ctx context.Context, userID string) ([]*models.TTN, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := r.DB.Collection("ttn").Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, storageErr("list ttn", err)
	}
	defer cur.Close(ctx)

	var docs []ttnDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, storageErr("decode ttn", err)
	}

	out := make([]*models.TTN, 0, len(docs))
	for _, d := range docs {
		cost, err := decimal.NewFromString(d.Cost)
		if err != nil {
			return nil, storageErr("decode ttn cost", err)
		}
		out = append(out, &models.TTN{
			ID:               d.ID,
			UserID:           d.UserID,
			ClientID:         d.ClientID,
			ClientLocationID: d.ClientLocationID,
			SenderID:         d.SenderID,
			Description:      d.Description,
			Cost:             cost,
			Status:           d.Status,
			NovaPoshtaRef:    d.NovaPoshtaRef,
			NovaPoshtaNumber: d.NovaPoshtaNumber,
			CreatedAt:        d.CreatedAt,
		})
	}
	return out, nil
}
