// Package mongodb implements store.Store on top of the official MongoDB driver.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/steveyegge/tasksync/internal/store"
)

// DefaultTimeout bounds server selection and connection setup when the
// caller does not provide a timeout.
const DefaultTimeout = 10 * time.Second

// Client is a connection to one MongoDB database.
type Client struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ store.Store = (*Client)(nil)

// Connect dials uri and selects database. The connection is verified with
// a ping against the primary before Connect returns.
//
// The caller MUST call Close when done.
func Connect(ctx context.Context, uri, database string, timeout time.Duration) (*Client, error) {
	if uri == "" {
		return nil, fmt.Errorf("connection string cannot be empty")
	}
	if database == "" {
		return nil, fmt.Errorf("database name cannot be empty")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	opts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(timeout).
		SetConnectTimeout(timeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	c := &Client{
		client: client,
		db:     client.Database(database),
	}

	if err := c.Ping(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	return c, nil
}

// Database returns the selected database name.
func (c *Client) Database() string {
	return c.db.Name()
}

// Ping implements store.Store.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("failed to ping mongodb: %w", err)
	}
	return nil
}

// Close implements store.Store.
func (c *Client) Close(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	if err := c.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from mongodb: %w", err)
	}
	c.client = nil
	return nil
}

// Collection implements store.Store.
func (c *Client) Collection(name string) store.Collection {
	return &collection{coll: c.db.Collection(name)}
}

type collection struct {
	coll *mongo.Collection
}

func (c *collection) Name() string {
	return c.coll.Name()
}

func (c *collection) Find(ctx context.Context, filter store.Filter) ([]store.Document, error) {
	q, err := toBSON(filter)
	if err != nil {
		return nil, err
	}

	cur, err := c.coll.Find(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", c.Name(), err)
	}

	var raw []bson.D
	if err := cur.All(ctx, &raw); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", c.Name(), err)
	}

	docs := make([]store.Document, 0, len(raw))
	for _, d := range raw {
		docs = append(docs, fromBSON(d))
	}
	return docs, nil
}

// fromBSON flattens the top level of d into a Document. Embedded documents
// stay bson.D so their field order, which equality matches depend on, is
// written back unchanged.
func fromBSON(d bson.D) store.Document {
	doc := make(store.Document, len(d))
	for _, e := range d {
		doc[e.Key] = e.Value
	}
	return doc
}

func (c *collection) InsertOne(ctx context.Context, doc store.Document) (string, error) {
	res, err := c.coll.InsertOne(ctx, map[string]any(doc))
	if err != nil {
		return "", fmt.Errorf("failed to insert into %s: %w", c.Name(), err)
	}
	return IDString(res.InsertedID), nil
}

func (c *collection) DeleteMany(ctx context.Context, filter store.Filter) (int64, error) {
	q, err := toBSON(filter)
	if err != nil {
		return 0, err
	}

	res, err := c.coll.DeleteMany(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("failed to delete from %s: %w", c.Name(), err)
	}
	return res.DeletedCount, nil
}

func (c *collection) Count(ctx context.Context, filter store.Filter) (int64, error) {
	q, err := toBSON(filter)
	if err != nil {
		return 0, err
	}

	n, err := c.coll.CountDocuments(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", c.Name(), err)
	}
	return n, nil
}

func (c *collection) GroupCount(ctx context.Context, field string, limit int) ([]store.GroupCount, error) {
	pipeline, err := groupPipeline(field, limit)
	if err != nil {
		return nil, err
	}

	cur, err := c.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to group %s by %s: %w", c.Name(), field, err)
	}

	var rows []groupRow
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to read %s groups: %w", c.Name(), err)
	}
	return toGroups(rows), nil
}

type groupRow struct {
	Key   any   `bson:"_id"`
	Count int64 `bson:"count"`
}

func toGroups(rows []groupRow) []store.GroupCount {
	groups := make([]store.GroupCount, 0, len(rows))
	for _, r := range rows {
		groups = append(groups, store.GroupCount{Key: fmt.Sprint(r.Key), Count: r.Count})
	}
	return groups
}

func groupPipeline(field string, limit int) (mongo.Pipeline, error) {
	if err := store.ValidateField(field); err != nil {
		return nil, err
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: field, Value: bson.D{
			{Key: "$exists", Value: true},
			{Key: "$ne", Value: nil},
		}}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$" + field},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: -1}}}},
	}
	if limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: limit}})
	}
	return pipeline, nil
}

// toBSON renders a store.Filter as a MongoDB query document.
func toBSON(filter store.Filter) (bson.D, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	if filter.IsAll() {
		return bson.D{}, nil
	}

	var op string
	switch filter.Op {
	case store.OpEq:
		op = "$eq"
	case store.OpGte:
		op = "$gte"
	case store.OpLt:
		op = "$lt"
	}
	return bson.D{{Key: filter.Field, Value: bson.D{{Key: op, Value: filter.Value}}}}, nil
}

// IDString renders a MongoDB identifier for logs and results.
func IDString(id any) string {
	switch v := id.(type) {
	case nil:
		return ""
	case primitive.ObjectID:
		return v.Hex()
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
