// Package seed loads task templates from a JSONL file into the staging
// collection, standing in for the upstream job that normally fills it.
package seed

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/steveyegge/tasksync/internal/store"
)

// maxLineSize bounds a single JSONL record.
const maxLineSize = 4 << 20

// Options contains configuration for a seed.
type Options struct {
	From    string // Input JSONL file path
	Replace bool   // Clear the staging collection first
	DryRun  bool   // Parse and report without writing
}

// LineError describes a line that could not be used.
type LineError struct {
	Line int    `json:"line" yaml:"line" toml:"line"`
	Err  string `json:"error" yaml:"error" toml:"error"`
}

func (e LineError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Err)
}

// Result contains statistics about the seed.
type Result struct {
	Parsed   int         `json:"parsed" yaml:"parsed" toml:"parsed"`
	Inserted int         `json:"inserted" yaml:"inserted" toml:"inserted"`
	Cleared  int64       `json:"cleared" yaml:"cleared" toml:"cleared"`
	DryRun   bool        `json:"dry_run" yaml:"dry_run" toml:"dry_run"`
	Skipped  []LineError `json:"skipped,omitempty" yaml:"skipped,omitempty" toml:"skipped,omitempty"`
	Failed   []LineError `json:"failed,omitempty" yaml:"failed,omitempty" toml:"failed,omitempty"`
}

// record is a parsed document and the line it came from.
type record struct {
	line int
	doc  store.Document
}

// parse reads one JSON object per line. Blank lines are ignored; lines that
// are not JSON objects are returned as LineErrors and skipped. Any _id is
// dropped so the store assigns a fresh one.
func parse(r io.Reader) ([]record, []LineError, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var (
		records []record
		skipped []LineError
		lineNum int
	)
	for sc.Scan() {
		lineNum++
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}

		doc, err := decodeLine(line)
		if err != nil {
			skipped = append(skipped, LineError{Line: lineNum, Err: err.Error()})
			continue
		}
		records = append(records, record{line: lineNum, doc: doc})
	}
	if err := sc.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read input at line %d: %w", lineNum+1, err)
	}
	return records, skipped, nil
}

func decodeLine(line []byte) (store.Document, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after JSON object")
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected a JSON object, got %T", raw)
	}

	doc := store.Document(normalize(obj).(map[string]any))
	delete(doc, store.IDField)
	return doc, nil
}

// normalize turns json.Number into int64 or float64 so every backend
// stores numbers as numbers.
func normalize(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		for k, val := range t {
			t[k] = normalize(val)
		}
		return t
	case []any:
		for i, val := range t {
			t[i] = normalize(val)
		}
		return t
	default:
		return v
	}
}

// Seed loads opts.From into staging.
func Seed(ctx context.Context, staging store.Collection, opts Options, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "seed", "collection", staging.Name())

	// #nosec G304 - controlled path from CLI
	file, err := os.Open(opts.From)
	if err != nil {
		return nil, fmt.Errorf("failed to open seed file: %w", err)
	}
	defer file.Close()

	records, skipped, err := parse(file)
	if err != nil {
		return nil, err
	}

	result := &Result{Parsed: len(records), Skipped: skipped, DryRun: opts.DryRun}
	for _, s := range skipped {
		logger.Warn("skipping invalid line", "line", s.Line, "error", s.Err)
	}

	if opts.DryRun {
		logger.Info("dry run, nothing written", "parsed", result.Parsed, "skipped", len(skipped))
		return result, nil
	}

	if opts.Replace {
		cleared, err := staging.DeleteMany(ctx, store.All)
		if err != nil {
			return nil, fmt.Errorf("failed to clear staging collection: %w", err)
		}
		result.Cleared = cleared
		logger.Info("cleared staging collection", "deleted", cleared)
	}

	for _, rec := range records {
		if _, err := staging.InsertOne(ctx, rec.doc); err != nil {
			logger.Warn("failed to insert seed record", "line", rec.line, "error", err)
			result.Failed = append(result.Failed, LineError{Line: rec.line, Err: err.Error()})
			continue
		}
		result.Inserted++
	}

	logger.Info("seed complete", "inserted", result.Inserted, "skipped", len(skipped), "failed", len(result.Failed))
	return result, nil
}
