package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ttnmanager/models"
)

type MongoSettingsRepo struct {
	DB *mongo.Database
}

func NewMongoSettingsRepo(db *mongo.Database) *MongoSettingsRepo {
	return &MongoSettingsRepo{DB: db}
}

func (r *MongoSettingsRepo) GetAPIKey(ctx context.Context, userID string) (string, error) {
	var settings models.UserSettings
	err := r.DB.Collection("user_settings").FindOne(ctx, bson.M{"_id": userID}).Decode(&settings)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", nil
		}
		return "", storageErr("get api key", err)
	}
	return settings.NovaPoshtaAPIKey, nil
}

func (r *MongoSettingsRepo) SaveAPIKey(ctx context.Context, userID, apiKey string) error {
	_, err := r.DB.Collection("user_settings").UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"nova_poshta_api_key": apiKey, "updated_at": time.Now().UTC()}},
		options.Update().SetUpsert(true),
	)
	return storageErr("save api key", err)
}

// NewMongoStore wires all repositories over one database.
func NewMongoStore(db *mongo.Database) *Store {
	return &Store{
		Clients:  NewMongoClientRepo(db),
		Senders:  NewMongoSenderRepo(db),
		TTN:      NewMongoTTNRepo(db),
		Settings: NewMongoSettingsRepo(db),
	}
}
