package driver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
)

// MongoDriver answers a small "[db.]collection.find({filter})" query syntax
// and streams the matching documents as single-column JSON rows.
type MongoDriver struct {
	uri       string
	defaultDB string
	client    *mongo.Client
}

func NewMongoDriver(uri string) *MongoDriver {
	d := &MongoDriver{uri: uri}
	// The URI's auth database doubles as the default for queries that name
	// only a collection. A malformed URI surfaces on connect instead.
	if cs, err := connstring.ParseAndValidate(uri); err == nil {
		d.defaultDB = cs.Database
	}
	return d
}

func (d *MongoDriver) Name() string {
	return "mongo"
}

func (d *MongoDriver) connect(ctx context.Context) error {
	if d.client != nil {
		return nil
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(d.uri))
	if err != nil {
		return err
	}
	d.client = client
	return nil
}

func (d *MongoDriver) Ping(ctx context.Context) error {
	if err := d.connect(ctx); err != nil {
		return err
	}
	return d.client.Ping(ctx, nil)
}

func (d *MongoDriver) Query(ctx context.Context, query string) (RowStreamer, error) {
	if err := d.connect(ctx); err != nil {
		return nil, err
	}

	dbName, collName, filter, err := parseFindQuery(query)
	if err != nil {
		return nil, err
	}
	dbName, err = d.resolveDB(dbName)
	if err != nil {
		return nil, err
	}

	cursor, err := d.client.Database(dbName).Collection(collName).Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &mongoStreamer{cursor: cursor, ctx: ctx}, nil
}

func (d *MongoDriver) Close() error {
	if d.client != nil {
		return d.client.Disconnect(context.Background())
	}
	return nil
}

// parseFindQuery accepts "collection.find(filter)" or
// "db.collection.find(filter)" with a JSON filter body. An empty filter
// matches everything.
func parseFindQuery(query string) (dbName, collName string, filter bson.M, err error) {
	start := strings.Index(query, "(")
	end := strings.LastIndex(query, ")")
	if start == -1 || end == -1 || end < start {
		return "", "", nil, errors.New("invalid query format: expected collection.find(filter)")
	}

	body := query[start+1 : end]
	if body == "" {
		body = "{}"
	}
	if err := json.Unmarshal([]byte(body), &filter); err != nil {
		return "", "", nil, fmt.Errorf("invalid filter JSON: %w", err)
	}

	segments := strings.Split(query[:start], ".")
	if segments[len(segments)-1] != "find" {
		return "", "", nil, errors.New("only 'find' is supported")
	}
	switch len(segments) {
	case 3:
		dbName, collName = segments[0], segments[1]
	case 2:
		// Left empty here; the driver fills in the URI's default database.
		collName = segments[0]
	default:
		return "", "", nil, errors.New("invalid query format: expected [db.]collection.find(...)")
	}
	return dbName, collName, filter, nil
}

// ValidateMongoQuery reports whether query is a well-formed find expression,
// without executing it.
func ValidateMongoQuery(query string) error {
	_, _, _, err := parseFindQuery(query)
	return err
}

// resolveDB substitutes the URI's default database for queries that name
// only a collection.
func (d *MongoDriver) resolveDB(name string) (string, error) {
	if name != "" {
		return name, nil
	}
	if d.defaultDB == "" {
		return "", errors.New("query names no database and the connection URI has no default")
	}
	return d.defaultDB, nil
}

// mongoStreamer flattens each document into one "document" column holding
// its JSON rendering.
type mongoStreamer struct {
	cursor *mongo.Cursor
	ctx    context.Context
	row    bson.M
	err    error
}

func (s *mongoStreamer) Columns() ([]string, error) {
	return []string{"document"}, nil
}

func (s *mongoStreamer) Next() bool {
	if s.cursor.Next(s.ctx) {
		if err := s.cursor.Decode(&s.row); err != nil {
			s.err = err
			return false
		}
		return true
	}
	s.err = s.cursor.Err()
	return false
}

func (s *mongoStreamer) Scan(dest ...any) error {
	if len(dest) != 1 {
		return errors.New("expected exactly 1 destination for document")
	}
	data, err := json.Marshal(s.row)
	if err != nil {
		return err
	}
	switch v := dest[0].(type) {
	case *string:
		*v = string(data)
	case *any:
		*v = string(data)
	default:
		return errors.New("destination must be *string or *any")
	}
	return nil
}

func (s *mongoStreamer) Err() error {
	return s.err
}

func (s *mongoStreamer) Close() error {
	return s.cursor.Close(s.ctx)
}
