//go:build integration

package mongodb

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcmongo "github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"

	"github.com/steveyegge/tasksync/internal/store"
	"github.com/steveyegge/tasksync/internal/sync"
)

// setupMongo starts a throwaway MongoDB container and returns a connected client.
func setupMongo(t *testing.T) *Client {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := tcmongo.Run(ctx, "mongo:7")
	require.NoError(t, err, "failed to start MongoDB container")
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	client, err := Connect(ctx, uri, "task_management_test", 30*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = client.Close(context.Background())
	})

	return client
}

func TestIntegration_CollectionRoundTrip(t *testing.T) {
	client := setupMongo(t)
	ctx := context.Background()
	coll := client.Collection("tasks")

	for _, d := range []string{"2024-01-01", "2024-01-02", "2024-01-02", "2024-01-03"} {
		_, err := coll.InsertOne(ctx, store.Document{"title": "t-" + d, "date": d, "comments": []any{}})
		require.NoError(t, err)
	}

	docs, err := coll.Find(ctx, store.Eq("date", "2024-01-02"))
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.NotEmpty(t, IDString(docs[0][store.IDField]))

	n, err := coll.Count(ctx, store.Gte("date", "2024-01-02"))
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	groups, err := coll.GroupCount(ctx, "date", 2)
	require.NoError(t, err)
	assert.Equal(t, []store.GroupCount{{Key: "2024-01-03", Count: 1}, {Key: "2024-01-02", Count: 2}}, groups)

	deleted, err := coll.DeleteMany(ctx, store.Lt("date", "2024-01-02"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	total, err := coll.Count(ctx, store.All)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
}

func TestIntegration_SyncCopiesIntoFreshRecords(t *testing.T) {
	client := setupMongo(t)
	ctx := context.Background()
	assert.Equal(t, "task_management_test", client.Database())

	staging := client.Collection("tasks_refresh")
	tasks := client.Collection("tasks")

	stagingIDs := map[string]bool{}
	for _, title := range []string{"A", "B"} {
		id, err := staging.InsertOne(ctx, store.Document{
			"title":        title,
			"comments":     []any{"stale"},
			"status_trail": []any{"open"},
		})
		require.NoError(t, err)
		stagingIDs[id] = true
	}

	opts := sync.DefaultOptions()
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	res, err := sync.New(staging, tasks, opts).Run(ctx, time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.True(t, res.OK())
	assert.Equal(t, 2, res.Synced)

	cur, err := client.db.Collection("tasks").Find(ctx, bson.D{})
	require.NoError(t, err)
	defer cur.Close(ctx)

	n := 0
	for cur.Next(ctx) {
		n++
		raw := cur.Current

		id, ok := raw.Lookup("_id").ObjectIDOK()
		require.True(t, ok)
		assert.False(t, stagingIDs[id.Hex()], "staging id %s reused", id.Hex())

		assert.Equal(t, "2024-03-01", raw.Lookup("date").StringValue())
		for _, field := range []string{"comments", "status_trail"} {
			v := raw.Lookup(field)
			require.Equal(t, bsontype.Array, v.Type, "%s is %s", field, v.Type)
			values, err := v.Array().Values()
			require.NoError(t, err)
			assert.Empty(t, values, field)
		}
	}
	require.NoError(t, cur.Err())
	assert.Equal(t, 2, n)
}
