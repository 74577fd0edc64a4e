package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ttnmanager/models"
)

type MongoSenderRepo struct {
	DB *mongo.Database
}

func NewMongoSenderRepo(db *mongo.Database) *MongoSenderRepo {
	return &MongoSenderRepo{DB: db}
}

func (r *MongoSenderRepo) senders() *mongo.Collection { return r.DB.Collection("sender") }

func (r *MongoSenderRepo) UpsertSender(ctx context.Context, s *models.Sender) error {
	now := time.Now().UTC()
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}

	filter := bson.M{
		"user_id":            s.UserID,
		"sender_ref":         s.SenderRef,
		"city_ref":           s.CityRef,
		"sender_address_ref": s.SenderAddressRef,
	}
	update := bson.M{
		"$set": bson.M{
			"name":                s.Name,
			"phone":               s.Phone,
			"city_name":           s.CityName,
			"sender_address_name": s.SenderAddressName,
			"contact_sender_ref":  s.ContactSenderRef,
		},
		"$setOnInsert": bson.M{
			"_id":        s.ID,
			"created_at": s.CreatedAt,
		},
	}

	// updated_at is only touched when the row already existed.
	existing := &models.Sender{}
	err := r.senders().FindOne(ctx, filter).Decode(existing)
	switch {
	case err == nil:
		update["$set"].(bson.M)["updated_at"] = now
	case !errors.Is(err, mongo.ErrNoDocuments):
		return storageErr("find sender", err)
	}

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	saved := &models.Sender{}
	if err := r.senders().FindOneAndUpdate(ctx, filter, update, opts).Decode(saved); err != nil {
		return storageErr("upsert sender", err)
	}
	*s = *saved
	return nil
}

func (r *MongoSenderRepo) ListSenders(ctx context.Context, userID string) ([]*models.Sender, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := r.senders().Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, storageErr("list senders", err)
	}
	defer cur.Close(ctx)

	senders := []*models.Sender{}
	if err := cur.All(ctx, &senders); err != nil {
		return nil, storageErr("decode senders", err)
	}
	return senders, nil
}

func (r *MongoSenderRepo) GetSender(ctx context.Context, id, userID string) (*models.Sender, error) {
	s := &models.Sender{}
	err := r.senders().FindOne(ctx, bson.M{"_id": id, "user_id": userID}).Decode(s)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, storageErr("get sender", err)
	}
	return s, nil
}
