package sync

import (
	"time"

	"github.com/steveyegge/tasksync/internal/store"
)

// Failure records one staging document that could not be inserted.
type Failure struct {
	Record string `json:"record" yaml:"record" toml:"record"`
	Error  string `json:"error" yaml:"error" toml:"error"`
}

// Retention is the outcome of applying the retention window.
type Retention struct {
	Cutoff   string `json:"cutoff" yaml:"cutoff" toml:"cutoff"`
	Days     int    `json:"days" yaml:"days" toml:"days"`
	Expiring int    `json:"expiring" yaml:"expiring" toml:"expiring"`
	Deleted  int64  `json:"deleted" yaml:"deleted" toml:"deleted"`
	Archive  string `json:"archive,omitempty" yaml:"archive,omitempty" toml:"archive,omitempty"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty" toml:"error,omitempty"`

	// Err is the underlying failure, if any.
	Err error `json:"-" yaml:"-" toml:"-"`
}

// Result summarizes one Run.
type Result struct {
	RunID    string    `json:"run_id" yaml:"run_id" toml:"run_id"`
	Date     string    `json:"date" yaml:"date" toml:"date"`
	Found    int       `json:"found" yaml:"found" toml:"found"`
	Synced   int       `json:"synced" yaml:"synced" toml:"synced"`
	Failed   int       `json:"failed" yaml:"failed" toml:"failed"`
	Failures []Failure `json:"failures,omitempty" yaml:"failures,omitempty" toml:"failures,omitempty"`

	// Retention is nil when the window was not applied.
	Retention *Retention `json:"retention,omitempty" yaml:"retention,omitempty" toml:"retention,omitempty"`

	// StagingCleared is the number of staging documents removed after a
	// clean run when consume-staging is on.
	StagingCleared int64  `json:"staging_cleared,omitempty" yaml:"staging_cleared,omitempty" toml:"staging_cleared,omitempty"`
	StagingError   string `json:"staging_error,omitempty" yaml:"staging_error,omitempty" toml:"staging_error,omitempty"`

	Duration time.Duration `json:"duration_ns" yaml:"duration_ns" toml:"duration_ns"`
}

// OK reports whether the run should exit successfully: no insert failed and
// retention, if applied, succeeded.
func (r *Result) OK() bool {
	if r == nil {
		return false
	}
	if r.Failed > 0 {
		return false
	}
	return r.Retention == nil || r.Retention.Err == nil
}

// Counts holds the size of both collections.
type Counts struct {
	Staging int64 `json:"staging" yaml:"staging" toml:"staging"`
	Tasks   int64 `json:"tasks" yaml:"tasks" toml:"tasks"`
}

// Health is the verdict of a Status call.
type Health string

const (
	// HealthOK means records exist for the sync day.
	HealthOK Health = "ok"
	// HealthStale means staging has documents but nothing was synced today.
	HealthStale Health = "stale"
	// HealthEmpty means staging is empty and nothing was synced today.
	HealthEmpty Health = "empty"
)

// Status summarizes recent sync activity.
type Status struct {
	Date     string             `json:"date" yaml:"date" toml:"date"`
	Staging  int64              `json:"staging" yaml:"staging" toml:"staging"`
	Today    int64              `json:"today" yaml:"today" toml:"today"`
	LastWeek int64              `json:"last_week" yaml:"last_week" toml:"last_week"`
	Recent   []store.GroupCount `json:"recent" yaml:"recent" toml:"recent"`
	Health   Health             `json:"health" yaml:"health" toml:"health"`
	Warning  string             `json:"warning,omitempty" yaml:"warning,omitempty" toml:"warning,omitempty"`
}
