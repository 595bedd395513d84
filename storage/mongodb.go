package storage

import (
	"context"
	"time"

	"github.com/imperialbin/imperial/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore implements DocumentStore using MongoDB
type MongoStore struct {
	client     *mongo.Client
	database   *mongo.Database
	collection *mongo.Collection
}

// NewMongoStore creates a new MongoDB storage backend
func NewMongoStore(url, dbName string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(url))
	if err != nil {
		return nil, err
	}

	// Test the connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	database := client.Database(dbName)
	collection := database.Collection("documents")

	store := &MongoStore{
		client:     client,
		database:   database,
		collection: collection,
	}

	if err := store.createIndexes(); err != nil {
		return nil, err
	}

	return store, nil
}

// createIndexes creates necessary indexes for the collection. Slug
// uniqueness itself rides on the _id key.
func (m *MongoStore) createIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// TTL index on expires_at field
	ttlIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	}

	// Secondary index on creator for owner lookups and bulk purge
	creatorIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "creator", Value: 1}},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		ttlIndex,
		creatorIndex,
	})

	return err
}

// Insert saves a document; the unique _id key makes concurrent inserts on
// the same slug an accept-or-reject race settled by the server.
func (m *MongoStore) Insert(doc *models.Document) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := m.collection.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateSlug
	}
	return err
}

// Get retrieves a live document by its slug
func (m *MongoStore) Get(slug string) (*models.Document, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var doc models.Document
	err := m.collection.FindOne(ctx, bson.M{"_id": slug}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}

	// Expired but not yet swept by the TTL monitor
	if doc.IsExpired() {
		_ = m.Delete(slug)
		return nil, ErrNotFound
	}

	return &doc, nil
}

// ListByCreator returns all documents owned by a creator
func (m *MongoStore) ListByCreator(creator string) ([]*models.Document, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cursor, err := m.collection.Find(ctx, bson.M{"creator": creator})
	if err != nil {
		return nil, err
	}
	defer func() { _ = cursor.Close(ctx) }()

	var docs []*models.Document
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// UpdateContent replaces the stored content of a document
func (m *MongoStore) UpdateContent(slug, content string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	res, err := m.collection.UpdateOne(
		ctx,
		bson.M{"_id": slug},
		bson.M{"$set": bson.M{"content": content}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a document from MongoDB
func (m *MongoStore) Delete(slug string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	res, err := m.collection.DeleteOne(ctx, bson.M{"_id": slug})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByCreator removes every document owned by a creator
func (m *MongoStore) DeleteByCreator(creator string) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	res, err := m.collection.DeleteMany(ctx, bson.M{"creator": creator})
	if err != nil {
		return 0, err
	}
	return int(res.DeletedCount), nil
}

// Close closes the MongoDB connection
func (m *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return m.client.Disconnect(ctx)
}
