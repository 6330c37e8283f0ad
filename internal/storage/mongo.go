package storage

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	studentsCollection = "students"
	resultsCollection  = "results"
)

// Mongo wraps a single mongo client held for the lifetime of the process and
// implements StudentStore and ResultStore on top of it.
type Mongo struct {
	client   *mongo.Client
	students *mongo.Collection
	results  *mongo.Collection
}

var (
	_ StudentStore = (*Mongo)(nil)
	_ ResultStore  = (*Mongo)(nil)
)

// NewMongo connects to uri and verifies the connection with a ping.
func NewMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	db := client.Database(database)
	return &Mongo{
		client:   client,
		students: db.Collection(studentsCollection),
		results:  db.Collection(resultsCollection),
	}, nil
}

func (m *Mongo) ListStudents(ctx context.Context) ([]Student, error) {
	cur, err := m.students.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	var out []Student
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode students: %w", err)
	}
	return out, nil
}

func (m *Mongo) AddStudent(ctx context.Context, s Student) (string, error) {
	res, err := m.students.InsertOne(ctx, s)
	if err != nil {
		return "", fmt.Errorf("insert student: %w", err)
	}
	return insertedID(res), nil
}

func (m *Mongo) FindResult(ctx context.Context, id string) (Result, error) {
	// _id is projected out so the document round-trips through the cache
	// exactly as the producer shaped it.
	opts := options.FindOne().SetProjection(bson.D{{Key: "_id", Value: 0}})
	var doc Result
	err := m.results.FindOne(ctx, bson.D{{Key: "id", Value: id}}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find result %q: %w", id, err)
	}
	return doc, nil
}

func (m *Mongo) AddResult(ctx context.Context, r Result) (string, error) {
	res, err := m.results.InsertOne(ctx, bson.M(r))
	if err != nil {
		return "", fmt.Errorf("insert result: %w", err)
	}
	return insertedID(res), nil
}

// Ping probes the deployment; used by the health endpoint.
func (m *Mongo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client. Called once at shutdown.
func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func insertedID(res *mongo.InsertOneResult) string {
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		return oid.Hex()
	}
	return fmt.Sprintf("%v", res.InsertedID)
}
