package mongo

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"

	"github.com/spigell/resume-query/internal/query"
)

type stubCollection struct {
	docs   []any
	err    error
	calls  int
	filter any
}

func (s *stubCollection) Find(_ context.Context, filter any, _ ...options.Lister[options.FindOptions]) (*mongo.Cursor, error) {
	s.calls++
	s.filter = filter
	if s.err != nil {
		return nil, s.err
	}
	return mongo.NewCursorFromDocuments(s.docs, nil, nil)
}

func TestStoreFind(t *testing.T) {
	coll := &stubCollection{docs: []any{
		bson.D{
			{Key: "_id", Value: bson.NewObjectID()},
			{Key: "name", Value: "Ann Lee"},
			{Key: "email", Value: "ann@example.com"},
			{Key: "skills", Value: bson.A{"Python", "Kubernetes"}},
			{Key: "education", Value: bson.A{bson.D{{Key: "institution", Value: "TU Berlin"}, {Key: "year", Value: int32(2012)}}}},
		},
		bson.D{{Key: "name", Value: "Bob Stone"}, {Key: "skills", Value: bson.A{"Python"}}},
	}}
	store := newStore(coll, Config{}, zap.NewNop())

	records, err := store.Find(context.Background(), query.Build([]string{"python"}))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "Ann Lee", records[0].Name)
	assert.Equal(t, []string{"Python", "Kubernetes"}, records[0].Skills)
	assert.Equal(t, "2012", records[0].Education[0].Year)
	assert.NotContains(t, records[0].Raw, "_id")
	assert.Equal(t, "Bob Stone", records[1].Name)

	rendered, ok := coll.filter.(bson.D)
	require.True(t, ok)
	assert.Equal(t, "$or", rendered[0].Key)
}

func TestStoreFindEmptyFilter(t *testing.T) {
	coll := &stubCollection{}
	store := newStore(coll, Config{}, nil)

	records, err := store.Find(context.Background(), query.Build(nil))
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Zero(t, coll.calls)
}

func TestStoreFindError(t *testing.T) {
	boom := errors.New("server selection timeout")
	store := newStore(&stubCollection{err: boom}, Config{}, zap.NewNop())

	_, err := store.Find(context.Background(), query.Build([]string{"go"}))
	require.ErrorIs(t, err, boom)
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(context.Background(), Config{}, zap.NewNop())
	require.ErrorContains(t, err, "uri")

	_, err = New(context.Background(), Config{URI: "mongodb://localhost:27017"}, zap.NewNop())
	require.ErrorContains(t, err, "database")
}
