package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/steveyegge/tasksync/internal/archive"
	"github.com/steveyegge/tasksync/internal/calendar"
	"github.com/steveyegge/tasksync/internal/store"
)

// Field names written on every active record.
const (
	FieldDate        = "date"
	FieldComments    = "comments"
	FieldStatusTrail = "status_trail"
	FieldTitle       = "title"
)

const (
	// DefaultRetentionDays is the retention window used when none is configured.
	DefaultRetentionDays = 5

	// recentDays is the rolling window Status reports on.
	recentDays = 7

	// recentDates caps the per-date breakdown in Status.
	recentDates = 10
)

// Options configures a Syncer.
type Options struct {
	// Location is the zone the sync day is computed in. Nil means UTC.
	Location *time.Location

	// RetentionEnabled turns on pruning after each Run.
	RetentionEnabled bool

	// RetentionDays is the window N: records dated before day-N are deleted.
	RetentionDays int

	// ConsumeStaging clears the staging collection after a run with no
	// failures and at least one synced record.
	ConsumeStaging bool

	// Archiver, if set, receives expiring records before they are deleted.
	Archiver archive.Archiver

	// Logger receives progress and per-record failures. Nil means slog.Default.
	Logger *slog.Logger

	// RunID labels log lines and archive objects. Empty means a fresh UUID
	// per Run or Prune.
	RunID string
}

// DefaultOptions returns the options a scheduled run uses.
func DefaultOptions() Options {
	return Options{
		Location:         time.UTC,
		RetentionEnabled: true,
		RetentionDays:    DefaultRetentionDays,
	}
}

// syncer implements the Syncer interface.
type syncer struct {
	staging store.Collection
	tasks   store.Collection
	opts    Options
	logger  *slog.Logger
}

// New creates a Syncer reading from staging and writing to tasks.
//
// Example:
//
//	conn, err := connect.Open(ctx, params)
//	if err != nil {
//	    return err
//	}
//	defer conn.Close(ctx)
//	s := sync.New(conn.Staging, conn.Tasks, sync.DefaultOptions())
//	res, err := s.Run(ctx, time.Now())
func New(staging, tasks store.Collection, opts Options) Syncer {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.RetentionDays < 0 {
		opts.RetentionDays = 0
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &syncer{
		staging: staging,
		tasks:   tasks,
		opts:    opts,
		logger:  logger.With("component", "sync"),
	}
}

func (s *syncer) runID() string {
	if s.opts.RunID != "" {
		return s.opts.RunID
	}
	return uuid.NewString()
}

// Transform builds the active record for a staging document: a shallow copy
// without the identifier, stamped with day and fresh empty sequences.
// The input is not modified.
func Transform(doc store.Document, day calendar.Day) store.Document {
	out := doc.Clone()
	delete(out, store.IDField)
	out[FieldDate] = day.String()
	out[FieldComments] = []any{}
	out[FieldStatusTrail] = []any{}
	return out
}

// Label names a staging document in logs: its title, else its identifier.
func Label(doc store.Document) string {
	if title, ok := doc[FieldTitle].(string); ok && title != "" {
		return title
	}
	switch id := doc[store.IDField].(type) {
	case nil:
		return "<unknown>"
	case string:
		return id
	case interface{ Hex() string }:
		return id.Hex()
	default:
		return fmt.Sprint(id)
	}
}

// Run implements Syncer.Run.
func (s *syncer) Run(ctx context.Context, now time.Time) (*Result, error) {
	start := time.Now()
	day := calendar.Today(now, s.opts.Location)
	runID := s.runID()
	logger := s.logger.With("run_id", runID)

	res := &Result{RunID: runID, Date: day.String()}

	logger.Info("starting sync", "date", day, "staging", s.staging.Name(), "tasks", s.tasks.Name())

	docs, err := s.staging.Find(ctx, store.All)
	if err != nil {
		return nil, fmt.Errorf("failed to read staging collection %s: %w", s.staging.Name(), err)
	}
	res.Found = len(docs)

	if len(docs) == 0 {
		logger.Info("no records in staging collection")
		res.Duration = time.Since(start)
		return res, nil
	}

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			res.Duration = time.Since(start)
			return res, fmt.Errorf("sync interrupted after %d of %d records: %w", res.Synced+res.Failed, res.Found, err)
		}

		if _, err := s.tasks.InsertOne(ctx, Transform(doc, day)); err != nil {
			label := Label(doc)
			logger.Warn("failed to insert record", "record", label, "error", err)
			res.Failed++
			res.Failures = append(res.Failures, Failure{Record: label, Error: err.Error()})
			continue
		}
		res.Synced++
	}

	logger.Info("inserted records", "found", res.Found, "synced", res.Synced, "failed", res.Failed)

	if s.opts.RetentionEnabled {
		res.Retention = s.prune(ctx, logger, runID, day)
	}

	if s.opts.ConsumeStaging && res.Failed == 0 && res.Synced > 0 {
		cleared, err := s.staging.DeleteMany(ctx, store.All)
		if err != nil {
			logger.Warn("failed to clear staging collection", "error", err)
			res.StagingError = err.Error()
		} else {
			res.StagingCleared = cleared
			logger.Info("cleared staging collection", "deleted", cleared)
		}
	}

	res.Duration = time.Since(start)
	logger.Info("sync complete",
		"synced", res.Synced, "failed", res.Failed, "ok", res.OK(), "duration", res.Duration)
	return res, nil
}

// Prune implements Syncer.Prune.
func (s *syncer) Prune(ctx context.Context, now time.Time) (*Retention, error) {
	day := calendar.Today(now, s.opts.Location)
	runID := s.runID()

	r := s.prune(ctx, s.logger.With("run_id", runID), runID, day)
	if r.Err != nil {
		return r, r.Err
	}
	return r, nil
}

// Cutoff returns the first day kept by a window of days ending at day.
func Cutoff(day calendar.Day, days int) calendar.Day {
	return day.AddDays(-days)
}

// prune deletes active records dated before the cutoff. Failures are
// recorded on the returned Retention rather than returned.
func (s *syncer) prune(ctx context.Context, logger *slog.Logger, runID string, day calendar.Day) *Retention {
	cutoff := Cutoff(day, s.opts.RetentionDays)
	r := &Retention{Cutoff: cutoff.String(), Days: s.opts.RetentionDays}
	expired := store.Lt(FieldDate, cutoff.String())

	fail := func(err error) *Retention {
		r.Err = err
		r.Error = err.Error()
		logger.Error("retention failed", "cutoff", cutoff, "error", err)
		return r
	}

	if s.opts.Archiver != nil {
		docs, err := s.tasks.Find(ctx, expired)
		if err != nil {
			return fail(fmt.Errorf("failed to read expiring records: %w", err))
		}
		r.Expiring = len(docs)

		location, err := s.opts.Archiver.Archive(ctx, archive.Batch{
			RunID:      runID,
			Collection: s.tasks.Name(),
			Cutoff:     cutoff.String(),
			Docs:       docs,
		})
		if err != nil {
			return fail(fmt.Errorf("failed to archive expiring records, delete skipped: %w", err))
		}
		r.Archive = location
	}

	deleted, err := s.tasks.DeleteMany(ctx, expired)
	if err != nil {
		return fail(fmt.Errorf("failed to delete records before %s: %w", cutoff, err))
	}
	r.Deleted = deleted

	logger.Info("applied retention", "cutoff", cutoff, "days", s.opts.RetentionDays, "deleted", deleted)
	return r
}

// Check implements Syncer.Check.
func (s *syncer) Check(ctx context.Context) (*Counts, error) {
	staging, err := s.staging.Count(ctx, store.All)
	if err != nil {
		return nil, fmt.Errorf("failed to count %s: %w", s.staging.Name(), err)
	}
	tasks, err := s.tasks.Count(ctx, store.All)
	if err != nil {
		return nil, fmt.Errorf("failed to count %s: %w", s.tasks.Name(), err)
	}

	s.logger.Debug("collection counts", s.staging.Name(), staging, s.tasks.Name(), tasks)
	return &Counts{Staging: staging, Tasks: tasks}, nil
}

// Status implements Syncer.Status.
func (s *syncer) Status(ctx context.Context, now time.Time) (*Status, error) {
	day := calendar.Today(now, s.opts.Location)
	st := &Status{Date: day.String()}

	var err error
	if st.Staging, err = s.staging.Count(ctx, store.All); err != nil {
		return nil, fmt.Errorf("failed to count %s: %w", s.staging.Name(), err)
	}
	if st.Today, err = s.tasks.Count(ctx, store.Eq(FieldDate, day.String())); err != nil {
		return nil, fmt.Errorf("failed to count today's records: %w", err)
	}
	weekStart := day.AddDays(-recentDays)
	if st.LastWeek, err = s.tasks.Count(ctx, store.Gte(FieldDate, weekStart.String())); err != nil {
		return nil, fmt.Errorf("failed to count recent records: %w", err)
	}
	if st.Recent, err = s.tasks.GroupCount(ctx, FieldDate, recentDates); err != nil {
		return nil, fmt.Errorf("failed to group records by date: %w", err)
	}
	if st.Recent == nil {
		st.Recent = []store.GroupCount{}
	}

	switch {
	case st.Today > 0:
		st.Health = HealthOK
	case st.Staging > 0:
		st.Health = HealthStale
		st.Warning = fmt.Sprintf("%s has %d records but no records are dated %s", s.staging.Name(), st.Staging, day)
		s.logger.Warn("sync appears stale", "date", day, "staging", st.Staging)
	default:
		st.Health = HealthEmpty
	}

	return st, nil
}
