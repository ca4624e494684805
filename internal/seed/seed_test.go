package seed

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/tasksync/internal/store"
	"github.com/steveyegge/tasksync/internal/store/sqlite"
)

func setupStaging(t *testing.T) store.Collection {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "seed.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(context.Background()) })
	return db.Collection("tasks_refresh")
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "templates.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

const templates = `{"title":"Check backups","priority":1,"tags":["ops"]}

{"_id":"abc","title":"Rotate keys","estimate":1.5}
not json
[1,2,3]
{"title":"Review alerts"}
`

func TestParse(t *testing.T) {
	records, skipped, err := parse(strings.NewReader(templates))
	require.NoError(t, err)

	require.Len(t, records, 3)
	assert.Equal(t, 1, records[0].line)
	assert.Equal(t, int64(1), records[0].doc["priority"])
	assert.Equal(t, []any{"ops"}, records[0].doc["tags"])

	assert.Equal(t, 3, records[1].line)
	assert.Equal(t, 1.5, records[1].doc["estimate"])
	assert.NotContains(t, records[1].doc, store.IDField)

	require.Len(t, skipped, 2)
	assert.Equal(t, 4, skipped[0].Line)
	assert.Equal(t, 5, skipped[1].Line)
	assert.Contains(t, skipped[1].Error(), "expected a JSON object")
}

func TestParse_TrailingData(t *testing.T) {
	_, skipped, err := parse(strings.NewReader(`{"a":1} {"b":2}`))
	require.NoError(t, err)
	require.Len(t, skipped, 1)
	assert.Contains(t, skipped[0].Err, "trailing data")
}

func TestSeed(t *testing.T) {
	ctx := context.Background()
	staging := setupStaging(t)

	res, err := Seed(ctx, staging, Options{From: writeFile(t, templates)}, discard)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Parsed)
	assert.Equal(t, 3, res.Inserted)
	assert.Len(t, res.Skipped, 2)
	assert.Empty(t, res.Failed)

	n, err := staging.Count(ctx, store.All)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	abc, err := staging.Find(ctx, store.Eq(store.IDField, "abc"))
	require.NoError(t, err)
	assert.Empty(t, abc, "_id from the file must not be kept")
}

func TestSeed_DryRun(t *testing.T) {
	ctx := context.Background()
	staging := setupStaging(t)

	res, err := Seed(ctx, staging, Options{From: writeFile(t, templates), DryRun: true}, discard)
	require.NoError(t, err)
	assert.True(t, res.DryRun)
	assert.Equal(t, 3, res.Parsed)
	assert.Zero(t, res.Inserted)

	n, err := staging.Count(ctx, store.All)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSeed_Replace(t *testing.T) {
	ctx := context.Background()
	staging := setupStaging(t)

	_, err := staging.InsertOne(ctx, store.Document{"title": "yesterday"})
	require.NoError(t, err)

	res, err := Seed(ctx, staging, Options{From: writeFile(t, `{"title":"today"}`), Replace: true}, discard)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Cleared)

	docs, err := staging.Find(ctx, store.All)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "today", docs[0]["title"])
}

func TestSeed_Append(t *testing.T) {
	ctx := context.Background()
	staging := setupStaging(t)

	_, err := staging.InsertOne(ctx, store.Document{"title": "existing"})
	require.NoError(t, err)

	_, err = Seed(ctx, staging, Options{From: writeFile(t, `{"title":"new"}`)}, discard)
	require.NoError(t, err)

	n, err := staging.Count(ctx, store.All)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestSeed_MissingFile(t *testing.T) {
	_, err := Seed(context.Background(), setupStaging(t), Options{From: "/nonexistent/x.jsonl"}, discard)
	require.Error(t, err)
}
