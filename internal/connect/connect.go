// Package connect opens the document store named by a connection string and
// hands back the two collections a sync run works on.
package connect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"

	"github.com/steveyegge/tasksync/internal/store"
	"github.com/steveyegge/tasksync/internal/store/mongodb"
	"github.com/steveyegge/tasksync/internal/store/sqlite"
)

// DefaultDatabase is used when neither the settings nor the URI name one.
const DefaultDatabase = "task_management"

var (
	// ErrMissingURI is returned when no connection string can be found.
	ErrMissingURI = errors.New("no connection string configured (set MONGO_URI or uri_secret)")

	// ErrUnsupportedScheme is returned for URIs that are neither MongoDB nor SQLite.
	ErrUnsupportedScheme = errors.New("unsupported connection scheme")
)

// SecretResolver looks up a connection string by secret id.
type SecretResolver interface {
	ConnectionString(ctx context.Context, secretID string) (string, error)
}

// Params describes what to connect to.
type Params struct {
	URI               string
	URISecret         string
	Database          string
	StagingCollection string
	TasksCollection   string
	Timeout           time.Duration

	// Secrets is consulted only when URI is empty and URISecret is set.
	Secrets SecretResolver
	Logger  *slog.Logger
}

// Conn is an open store plus the staging and operational collections.
type Conn struct {
	Store    store.Store
	Staging  store.Collection
	Tasks    store.Collection
	Backend  string
	Database string
}

// Close releases the underlying store.
func (c *Conn) Close(ctx context.Context) error {
	if c == nil || c.Store == nil {
		return nil
	}
	return c.Store.Close(ctx)
}

// Open resolves the connection string and connects.
func Open(ctx context.Context, p Params) (*Conn, error) {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "connect")

	if p.StagingCollection == "" || p.TasksCollection == "" {
		return nil, fmt.Errorf("staging and tasks collection names are required")
	}

	uri := p.URI
	if uri == "" && p.URISecret != "" {
		if p.Secrets == nil {
			return nil, fmt.Errorf("uri_secret is set but no secret resolver is available")
		}
		resolved, err := p.Secrets.ConnectionString(ctx, p.URISecret)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve connection string: %w", err)
		}
		uri = resolved
	}
	if uri == "" {
		return nil, ErrMissingURI
	}

	switch Scheme(uri) {
	case "mongodb", "mongodb+srv":
		database, err := DatabaseName(uri, p.Database)
		if err != nil {
			return nil, err
		}
		logger.Info("connecting to MongoDB", "database", database)

		client, err := mongodb.Connect(ctx, uri, database, p.Timeout)
		if err != nil {
			return nil, err
		}
		return newConn(client, p, "mongodb", client.Database()), nil

	case "sqlite", "file":
		path := SQLitePath(uri)
		logger.Info("opening SQLite store", "path", path)

		db, err := sqlite.Open(path)
		if err != nil {
			return nil, err
		}
		return newConn(db, p, "sqlite", path), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, Scheme(uri))
	}
}

func newConn(s store.Store, p Params, backend, database string) *Conn {
	return &Conn{
		Store:    s,
		Staging:  s.Collection(p.StagingCollection),
		Tasks:    s.Collection(p.TasksCollection),
		Backend:  backend,
		Database: database,
	}
}

// Scheme returns the lowercased scheme of uri, or "" if it has none.
func Scheme(uri string) string {
	i := strings.Index(uri, ":")
	if i <= 0 {
		return ""
	}
	return strings.ToLower(uri[:i])
}

// DatabaseName picks the database: explicit setting, then the URI path,
// then DefaultDatabase.
func DatabaseName(uri, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	cs, err := connstring.ParseAndValidate(uri)
	if err != nil {
		return "", fmt.Errorf("invalid MongoDB connection string: %w", redact(err, uri))
	}
	if cs.Database != "" {
		return cs.Database, nil
	}
	return DefaultDatabase, nil
}

// SQLitePath extracts the file path from a sqlite:// or file: URI.
func SQLitePath(uri string) string {
	switch {
	case strings.HasPrefix(uri, "sqlite://"):
		return strings.TrimPrefix(uri, "sqlite://")
	case strings.HasPrefix(uri, "sqlite:"):
		return strings.TrimPrefix(uri, "sqlite:")
	case strings.HasPrefix(uri, "file://"):
		return strings.TrimPrefix(uri, "file://")
	default:
		return strings.TrimPrefix(uri, "file:")
	}
}

// redact strips the raw URI out of parser errors so credentials don't reach logs.
func redact(err error, uri string) error {
	msg := err.Error()
	if !strings.Contains(msg, uri) {
		return err
	}
	return errors.New(strings.ReplaceAll(msg, uri, "<redacted>"))
}
