package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/ldelvillar/snap-notes-sub000/internal/logger"
	"github.com/ldelvillar/snap-notes-sub000/internal/services/notes"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// NotesStore implements notes.Store on a MongoDB collection. Documents keep
// their timestamps as BSON datetimes, which come back as bson.DateTime.
type NotesStore struct {
	collection *mongo.Collection
}

func repoCtx(parent context.Context) (context.Context, context.CancelFunc) {
	return WithRepoTimeout(parent, OpTimeout)
}

// NewNotesStore creates the store and makes sure its indexes exist.
func NewNotesStore(parentCtx context.Context, db *mongo.Database) (*NotesStore, error) {
	collection := db.Collection("notes")

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: notes.FieldCreator, Value: 1},
				{Key: notes.FieldUpdatedAt, Value: -1},
				{Key: "_id", Value: -1},
			},
			Options: options.Index().SetName("creator_updated_desc"),
		},
	}

	ctx, cancel := context.WithTimeout(parentCtx, OpTimeout)
	defer cancel()

	for _, indexModel := range indexes {
		if _, err := collection.Indexes().CreateOne(ctx, indexModel); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				logger.L().Debug("index already exists, continuing", "collection", "notes")
				continue
			}
			logger.L().Error("failed to create index", "collection", "notes", "error", err)
			return nil, fmt.Errorf("failed to create notes collection index: %w", err)
		}
	}

	return &NotesStore{collection: collection}, nil
}

// Insert stores doc under a new ObjectID and returns its hex form.
func (s *NotesStore) Insert(ctx context.Context, doc notes.Document) (string, error) {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	id := bson.NewObjectID()
	body := toBSON(doc)
	body["_id"] = id

	if _, err := s.collection.InsertOne(ctx, body); err != nil {
		return "", err
	}
	return id.Hex(), nil
}

// Query runs an equality filter with a single-key sort (ties broken by _id).
func (s *NotesStore) Query(ctx context.Context, q notes.QuerySpec) ([]notes.Document, error) {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	filter := bson.M{}
	if q.Field != "" {
		filter[q.Field] = q.Equals
	}

	opts := options.Find()
	if q.OrderBy != "" {
		dir := 1
		if q.Descending {
			dir = -1
		}
		opts.SetSort(bson.D{{Key: q.OrderBy, Value: dir}, {Key: "_id", Value: dir}})
	}

	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer func(ctxToClose context.Context) {
		if cerr := cursor.Close(ctxToClose); cerr != nil {
			logger.L().Error("failed to close cursor", "error", cerr)
		}
	}(ctx)

	var raw []bson.M
	if err := cursor.All(ctx, &raw); err != nil {
		return nil, err
	}

	out := make([]notes.Document, 0, len(raw))
	for _, m := range raw {
		out = append(out, fromBSON(m))
	}
	return out, nil
}

// Get looks a document up by its hex id.
func (s *NotesStore) Get(ctx context.Context, id string) (notes.Document, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, notes.ErrNoDocument
	}

	ctx, cancel := repoCtx(ctx)
	defer cancel()

	var m bson.M
	if err := s.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&m); err != nil {
		return nil, translateNotFound(err)
	}
	return fromBSON(m), nil
}

// Merge $sets the given fields on the document with id.
func (s *NotesStore) Merge(ctx context.Context, id string, fields notes.Document) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return notes.ErrNoDocument
	}

	ctx, cancel := repoCtx(ctx)
	defer cancel()

	set := toBSON(fields)
	if len(set) == 0 {
		return nil
	}

	res, err := s.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return notes.ErrNoDocument
	}
	return nil
}

// Delete removes the document with id.
func (s *NotesStore) Delete(ctx context.Context, id string) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return notes.ErrNoDocument
	}

	ctx, cancel := repoCtx(ctx)
	defer cancel()

	res, err := s.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return notes.ErrNoDocument
	}
	return nil
}

// Ping checks the primary is reachable.
func (s *NotesStore) Ping(ctx context.Context) error {
	ctx, cancel := repoCtx(ctx)
	defer cancel()
	return s.collection.Database().Client().Ping(ctx, readpref.Primary())
}

// translateNotFound maps the driver ErrNoDocuments to notes.ErrNoDocument.
func translateNotFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return notes.ErrNoDocument
	}
	return err
}

// toBSON drops the logical id; Mongo keys documents by _id.
func toBSON(doc notes.Document) bson.M {
	m := make(bson.M, len(doc))
	for k, v := range doc {
		if k == notes.FieldID || k == "_id" {
			continue
		}
		m[k] = v
	}
	return m
}

func fromBSON(m bson.M) notes.Document {
	doc := make(notes.Document, len(m))
	for k, v := range m {
		if k == "_id" {
			if oid, ok := v.(bson.ObjectID); ok {
				doc[notes.FieldID] = oid.Hex()
			} else {
				doc[notes.FieldID] = v
			}
			continue
		}
		doc[k] = v
	}
	return doc
}
