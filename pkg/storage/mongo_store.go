package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/gowgit/site-crawler/pkg/models"
	"github.com/gowgit/site-crawler/pkg/utils"
)

const (
	urlsCollection      = "urls"
	documentsCollection = "documents"
)

// MongoStore implements the Store interface on a MongoDB database.
// Both collections carry a unique index on "url".
type MongoStore struct {
	client    *mongo.Client
	database  *mongo.Database
	urls      *mongo.Collection
	documents *mongo.Collection
	log       *logrus.Entry
}

var _ Store = (*MongoStore)(nil)

// NewMongoStore connects to uri and prepares the collections of database
func NewMongoStore(ctx context.Context, uri, database string, logger *logrus.Entry) (*MongoStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to MongoDB: %w", utils.ErrDatabase, err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%w: can't ping MongoDB: %w", utils.ErrDatabase, err)
	}

	db := client.Database(database)
	s := &MongoStore{
		client:    client,
		database:  db,
		urls:      db.Collection(urlsCollection),
		documents: db.Collection(documentsCollection),
		log:       logger,
	}
	if err := s.createIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	logger.Infof("MongoDB crawl database ready: %s", database)
	return s, nil
}

func (s *MongoStore) createIndexes(ctx context.Context) error {
	unique := mongo.IndexModel{
		Keys:    bson.D{{Key: "url", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := s.urls.Indexes().CreateOne(ctx, unique); err != nil {
		return fmt.Errorf("%w: url index on %s: %w", utils.ErrDatabase, urlsCollection, err)
	}
	if _, err := s.documents.Indexes().CreateOne(ctx, unique); err != nil {
		return fmt.Errorf("%w: url index on %s: %w", utils.ErrDatabase, documentsCollection, err)
	}

	pending := mongo.IndexModel{
		Keys: bson.D{{Key: "crawled", Value: 1}, {Key: "inserted_at", Value: 1}},
	}
	if _, err := s.urls.Indexes().CreateOne(ctx, pending); err != nil {
		return fmt.Errorf("%w: pending index: %w", utils.ErrDatabase, err)
	}
	return nil
}

// InsertURL implements the Store interface
func (s *MongoStore) InsertURL(ctx context.Context, rec models.URLRecord) (bool, error) {
	rec = prepareURLRecord(rec)
	_, err := s.urls.InsertOne(ctx, rec)
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: inserting url '%s': %w", utils.ErrDatabase, rec.URL, err)
	}
	return true, nil
}

// InsertURLs implements the Store interface with one unordered bulk insert
func (s *MongoStore) InsertURLs(ctx context.Context, recs []models.URLRecord) (int, error) {
	if len(recs) == 0 {
		return 0, nil
	}
	docs := make([]interface{}, 0, len(recs))
	for _, rec := range recs {
		docs = append(docs, prepareURLRecord(rec))
	}

	res, err := s.urls.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	added := 0
	if res != nil {
		added = len(res.InsertedIDs)
	}
	if err == nil {
		return added, nil
	}

	// Duplicates are expected; only other write errors count
	var bulkErr mongo.BulkWriteException
	if errors.As(err, &bulkErr) {
		if bulkErr.WriteConcernError == nil && allDuplicates(bulkErr.WriteErrors) {
			return len(recs) - len(bulkErr.WriteErrors), nil
		}
	}
	return added, fmt.Errorf("%w: inserting urls: %w", utils.ErrDatabase, err)
}

func allDuplicates(errs []mongo.BulkWriteError) bool {
	for _, e := range errs {
		if e.Code != 11000 {
			return false
		}
	}
	return true
}

// UpdateURL implements the Store interface
func (s *MongoStore) UpdateURL(ctx context.Context, rec models.URLRecord) error {
	rec = prepareURLRecord(rec)
	update := bson.M{
		"$set": bson.M{
			"crawled":        rec.Crawled,
			"date_crawled":   rec.DateCrawled,
			"crawl_duration": rec.CrawlDuration,
			"status":         rec.Status,
			"error_type":     rec.ErrorType,
			"last_attempt":   rec.LastAttempt,
		},
		"$setOnInsert": bson.M{"inserted_at": rec.InsertedAt},
	}
	_, err := s.urls.UpdateOne(ctx, bson.M{"url": rec.URL}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("%w: updating url '%s': %w", utils.ErrDatabase, rec.URL, err)
	}
	s.log.Debugf("Updated url record '%s' (status: %s)", rec.URL, rec.Status)
	return nil
}

// UncrawledURLs implements the Store interface
func (s *MongoStore) UncrawledURLs(ctx context.Context, limit int) ([]models.URLRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "inserted_at", Value: 1}, {Key: "url", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := s.urls.Find(ctx, bson.M{"crawled": false}, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: querying uncrawled urls: %w", utils.ErrDatabase, err)
	}
	var recs []models.URLRecord
	if err := cursor.All(ctx, &recs); err != nil {
		return nil, fmt.Errorf("%w: decoding uncrawled urls: %w", utils.ErrDatabase, err)
	}
	return recs, nil
}

// EachURL implements the Store interface
func (s *MongoStore) EachURL(ctx context.Context, fn func(models.URLRecord) error) error {
	cursor, err := s.urls.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "url", Value: 1}}))
	if err != nil {
		return fmt.Errorf("%w: querying urls: %w", utils.ErrDatabase, err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var rec models.URLRecord
		if err := cursor.Decode(&rec); err != nil {
			s.log.Errorf("URL scan: failed to decode record: %v. Skipping.", err)
			continue
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	if err := cursor.Err(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %w", utils.ErrDatabase, err)
	}
	return nil
}

// URLCount implements the Store interface
func (s *MongoStore) URLCount(ctx context.Context) (int, error) {
	n, err := s.urls.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("%w: counting urls: %w", utils.ErrDatabase, err)
	}
	return int(n), nil
}

// InsertDocument implements the Store interface
func (s *MongoStore) InsertDocument(ctx context.Context, rec models.DocumentRecord) error {
	_, err := s.documents.InsertOne(ctx, rec)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("document %s: %w", rec.URL, utils.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("%w: inserting document '%s': %w", utils.ErrDatabase, rec.URL, err)
	}
	return nil
}

// GetDocument implements the Store interface
func (s *MongoStore) GetDocument(ctx context.Context, url string) (models.DocumentRecord, error) {
	var rec models.DocumentRecord
	err := s.documents.FindOne(ctx, bson.M{"url": url}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return rec, fmt.Errorf("document %s: %w", url, utils.ErrNotFound)
	}
	if err != nil {
		return rec, fmt.Errorf("%w: loading document '%s': %w", utils.ErrDatabase, url, err)
	}
	return rec, nil
}

// DocumentCount implements the Store interface
func (s *MongoStore) DocumentCount(ctx context.Context) (int, error) {
	n, err := s.documents.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("%w: counting documents: %w", utils.ErrDatabase, err)
	}
	return int(n), nil
}

// Size implements the Store interface using the dataSize reported by dbStats
func (s *MongoStore) Size(ctx context.Context) (int64, error) {
	var stats struct {
		DataSize float64 `bson:"dataSize"`
	}
	err := s.database.RunCommand(ctx, bson.D{{Key: "dbStats", Value: 1}}).Decode(&stats)
	if err != nil {
		return 0, fmt.Errorf("%w: dbStats: %w", utils.ErrDatabase, err)
	}
	return int64(stats.DataSize), nil
}

// Close implements the Store interface
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.log.Info("Disconnecting from MongoDB...")
	return s.client.Disconnect(ctx)
}
