package community

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/LeonardoBeccarini/harvestify/internal/model/entities"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// articleDoc keeps the submitted JSON verbatim so any value round-trips.
type articleDoc struct {
	ID        string    `bson:"_id"`
	Body      string    `bson:"body"`
	CreatedAt time.Time `bson:"created_at"`
	Seq       int64     `bson:"seq"` // from the counters collection, orders inserts across replicas
}

// MongoStore persists articles in one collection.
type MongoStore struct {
	name       string
	client     *mongo.Client
	collection *mongo.Collection
	counters   *mongo.Collection
}

// ConnectMongo dials uri and pings it before returning.
func ConnectMongo(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	col := client.Database(database).Collection(collection)
	if _, err := col.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "seq", Value: 1}}}); err != nil {
		log.Printf("community: could not create seq index: %v", err)
	}
	log.Printf("community: using MongoDB %s/%s", database, collection)
	return &MongoStore{
		name:       database + "/" + collection,
		client:     client,
		collection: col,
		counters:   client.Database(database).Collection(collection + "_counters"),
	}, nil
}

func (s *MongoStore) Add(ctx context.Context, body json.RawMessage) (entities.Article, error) {
	a, err := newArticle(body, time.Now())
	if err != nil {
		return entities.Article{}, err
	}
	seq, err := s.nextSeq(ctx)
	if err != nil {
		return entities.Article{}, err
	}
	doc := articleDoc{ID: a.ID, Body: string(a.Body), CreatedAt: a.CreatedAt, Seq: seq}
	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		return entities.Article{}, fmt.Errorf("[%s] insert article: %w", s.name, err)
	}
	return a, nil
}

// nextSeq atomically increments the collection's counter document.
func (s *MongoStore) nextSeq(ctx context.Context) (int64, error) {
	var c struct {
		Seq int64 `bson:"seq"`
	}
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": s.collection.Name()},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&c)
	if err != nil {
		return 0, fmt.Errorf("[%s] next article seq: %w", s.name, err)
	}
	return c.Seq, nil
}

func (s *MongoStore) List(ctx context.Context) ([]entities.Article, error) {
	cur, err := s.collection.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("[%s] find articles: %w", s.name, err)
	}
	defer cur.Close(ctx)

	var docs []articleDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("[%s] decode articles: %w", s.name, err)
	}
	out := make([]entities.Article, 0, len(docs))
	for _, d := range docs {
		out = append(out, entities.Article{ID: d.ID, Body: json.RawMessage(d.Body), CreatedAt: d.CreatedAt})
	}
	return out, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
