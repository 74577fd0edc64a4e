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

type MongoClientRepo struct {
	DB *mongo.Database
}

func NewMongoClientRepo(db *mongo.Database) *MongoClientRepo {
	return &MongoClientRepo{DB: db}
}

func (r *MongoClientRepo) clients() *mongo.Collection   { return r.DB.Collection("clients") }
func (r *MongoClientRepo) locations() *mongo.Collection { return r.DB.Collection("client_locations") }

func (r *MongoClientRepo) InsertClient(ctx context.Context, c *models.Client) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err := r.clients().InsertOne(ctx, c)
	return storageErr("insert client", err)
}

// CreateClientWithLocation removes the client again if the location insert fails.
func (r *MongoClientRepo) CreateClientWithLocation(ctx context.Context, c *models.Client, loc *models.ClientLocation) error {
	if err := r.InsertClient(ctx, c); err != nil {
		return err
	}
	loc.ClientID = c.ID
	if err := r.InsertClientLocation(ctx, loc); err != nil {
		_, _ = r.clients().DeleteOne(ctx, bson.M{"_id": c.ID})
		return err
	}
	return nil
}

func (r *MongoClientRepo) ListClients(ctx context.Context, userID string) ([]*models.Client, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := r.clients().Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, storageErr("list clients", err)
	}
	defer cur.Close(ctx)

	clients := []*models.Client{}
	if err := cur.All(ctx, &clients); err != nil {
		return nil, storageErr("decode clients", err)
	}
	return clients, nil
}

func (r *MongoClientRepo) GetClient(ctx context.Context, id, userID string) (*models.Client, error) {
	c := &models.Client{}
	err := r.clients().FindOne(ctx, bson.M{"_id": id, "user_id": userID}).Decode(c)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, storageErr("get client", err)
	}
	return c, nil
}

func (r *MongoClientRepo) DeleteClient(ctx context.Context, id, userID string) (bool, error) {
	res, err := r.clients().DeleteOne(ctx, bson.M{"_id": id, "user_id": userID})
	if err != nil {
		return false, storageErr("delete client", err)
	}
	if res.DeletedCount == 0 {
		return false, nil
	}
	if _, err := r.locations().DeleteMany(ctx, bson.M{"client_id": id}); err != nil {
		return true, storageErr("delete client locations", err)
	}
	return true, nil
}

func (r *MongoClientRepo) UpdateClientRefs(ctx context.Context, id, userID, counterpartyRef, contactRef string) error {
	_, err := r.clients().UpdateOne(ctx,
		bson.M{"_id": id, "user_id": userID},
		bson.M{"$set": bson.M{"counterparty_ref": counterpartyRef, "contact_ref": contactRef}},
	)
	return storageErr("update client refs", err)
}

func (r *MongoClientRepo) InsertClientLocation(ctx context.Context, loc *models.ClientLocation) error {
	if loc.ID == "" {
		loc.ID = uuid.NewString()
	}
	if loc.CreatedAt.IsZero() {
		loc.CreatedAt = time.Now().UTC()
	}
	_, err := r.locations().InsertOne(ctx, loc)
	return storageErr("insert client location", err)
}

func (r *MongoClientRepo) ListClientLocations(ctx context.Context, clientIDs []string) ([]models.ClientLocation, error) {
	if len(clientIDs) == 0 {
		return []models.ClientLocation{}, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := r.locations().Find(ctx, bson.M{"client_id": bson.M{"$in": clientIDs}}, opts)
	if err != nil {
		return nil, storageErr("list client locations", err)
	}
	defer cur.Close(ctx)

	var locs []models.ClientLocation
	if err := cur.All(ctx, &locs); err != nil {
		return nil, storageErr("decode client locations", err)
	}
	return dedupeLocations(locs), nil
}

func (r *MongoClientRepo) GetClientLocation(ctx context.Context, id, userID string) (*models.ClientLocation, error) {
	loc := &models.ClientLocation{}
	err := r.locations().FindOne(ctx, bson.M{"_id": id}).Decode(loc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, storageErr("get client location", err)
	}
	owner, err := r.GetClient(ctx, loc.ClientID, userID)
	if err != nil || owner == nil {
		return nil, err
	}
	return loc, nil
}

func (r *MongoClientRepo) DeleteClientLocation(ctx context.Context, id, userID string) (bool, error) {
	loc, err := r.GetClientLocation(ctx, id, userID)
	if err != nil || loc == nil {
		return false, err
	}
	res, err := r.locations().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, storageErr("delete client location", err)
	}
	return res.DeletedCount > 0, nil
}
