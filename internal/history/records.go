package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"surgitrack/internal/pipeline"
	"surgitrack/internal/session"
	"surgitrack/internal/timeline"
)

const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var (
	ErrNotFound  = errors.New("session not found")
	ErrAmbiguous = errors.New("session id prefix is ambiguous")
)

// Entry is one recorded session.
type Entry struct {
	SessionID         string            `json:"session_id"`
	FileName          string            `json:"file_name"`
	FilePath          string            `json:"file_path"`
	FileSize          int64             `json:"file_size"`
	FileKey           string            `json:"file_key,omitempty"`
	JobID             string            `json:"job_id,omitempty"`
	Phase             string            `json:"phase"`
	Error             string            `json:"error,omitempty"`
	Steps             []pipeline.Step   `json:"steps"`
	Events            timeline.Timeline `json:"events"`
	EventCount        int               `json:"event_count"`
	Duration          string            `json:"duration"`
	AverageConfidence float64           `json:"average_confidence"`
	RecordedAt        time.Time         `json:"recorded_at"`
}

const selectColumns = "session_id, file_name, file_path, file_size, file_key, job_id, phase, " +
	"error_message, steps_json, events_json, event_count, duration, avg_confidence, recorded_at"

// Record writes state to the ledger, replacing any earlier row for the same
// session.
func (s *Store) Record(ctx context.Context, state session.State) error {
	ctx = ensureContext(ctx)
	if strings.TrimSpace(state.ID) == "" {
		return errors.New("record session: missing session id")
	}
	stepsJSON, err := json.Marshal(state.Steps)
	if err != nil {
		return fmt.Errorf("encode steps: %w", err)
	}
	eventsJSON, err := json.Marshal(state.Events)
	if err != nil {
		return fmt.Errorf("encode events: %w", err)
	}
	summary := state.Events.Summary()
	recordedAt := s.now().UTC().Format(timeLayout)

	err = retryOnBusy(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx, `INSERT INTO sessions (
			session_id, file_name, file_path, file_size, file_key, job_id, phase,
			error_message, steps_json, events_json, event_count, duration, avg_confidence, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			file_name = excluded.file_name,
			file_path = excluded.file_path,
			file_size = excluded.file_size,
			file_key = excluded.file_key,
			job_id = excluded.job_id,
			phase = excluded.phase,
			error_message = excluded.error_message,
			steps_json = excluded.steps_json,
			events_json = excluded.events_json,
			event_count = excluded.event_count,
			duration = excluded.duration,
			avg_confidence = excluded.avg_confidence,
			recorded_at = excluded.recorded_at`,
			state.ID,
			state.File.Name,
			state.File.Path,
			state.File.Size,
			state.FileKey,
			state.JobID,
			state.Phase(),
			state.Error,
			string(stepsJSON),
			string(eventsJSON),
			summary.Count,
			summary.Duration,
			summary.AverageConfidence,
			recordedAt,
		)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("record session %s: %w", state.ID, err)
	}
	return nil
}

// List returns up to limit entries, newest first. A limit of zero or less
// returns every entry.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	ctx = ensureContext(ctx)
	query := "SELECT " + selectColumns + " FROM sessions ORDER BY recorded_at DESC, rowid DESC"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return entries, nil
}

// Get returns the entry whose id equals id or, failing that, the single entry
// whose id starts with it.
func (s *Store) Get(ctx context.Context, id string) (Entry, error) {
	ctx = ensureContext(ctx)
	id = strings.TrimSpace(id)
	if id == "" {
		return Entry{}, ErrNotFound
	}

	row := s.db.QueryRowContext(ctx, "SELECT "+selectColumns+" FROM sessions WHERE session_id = ?", id)
	entry, err := scanEntry(row)
	if err == nil {
		return entry, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Entry{}, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+selectColumns+" FROM sessions WHERE session_id LIKE ? ESCAPE '\\' ORDER BY session_id LIMIT 2",
		escapeLike(id)+"%",
	)
	if err != nil {
		return Entry{}, fmt.Errorf("find session %s: %w", id, err)
	}
	defer rows.Close()

	var matches []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return Entry{}, err
		}
		matches = append(matches, entry)
	}
	if err := rows.Err(); err != nil {
		return Entry{}, fmt.Errorf("iterate sessions: %w", err)
	}
	switch len(matches) {
	case 0:
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	case 1:
		return matches[0], nil
	default:
		return Entry{}, fmt.Errorf("%w: %s", ErrAmbiguous, id)
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		entry      Entry
		stepsJSON  string
		eventsJSON string
		recordedAt string
	)
	if err := row.Scan(
		&entry.SessionID,
		&entry.FileName,
		&entry.FilePath,
		&entry.FileSize,
		&entry.FileKey,
		&entry.JobID,
		&entry.Phase,
		&entry.Error,
		&stepsJSON,
		&eventsJSON,
		&entry.EventCount,
		&entry.Duration,
		&entry.AverageConfidence,
		&recordedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("scan session: %w", err)
	}
	if err := json.Unmarshal([]byte(stepsJSON), &entry.Steps); err != nil {
		return Entry{}, fmt.Errorf("decode steps for %s: %w", entry.SessionID, err)
	}
	if err := json.Unmarshal([]byte(eventsJSON), &entry.Events); err != nil {
		return Entry{}, fmt.Errorf("decode events for %s: %w", entry.SessionID, err)
	}
	ts, err := time.Parse(timeLayout, recordedAt)
	if err != nil {
		return Entry{}, fmt.Errorf("decode recorded_at for %s: %w", entry.SessionID, err)
	}
	entry.RecordedAt = ts
	return entry, nil
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}
