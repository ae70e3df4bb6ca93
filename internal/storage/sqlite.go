package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ppiankov/intralign/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS annotations (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	strategy_code TEXT NOT NULL,
	origin TEXT NOT NULL,
	status TEXT NOT NULL,
	source_start INTEGER NOT NULL,
	source_end INTEGER NOT NULL,
	target_start INTEGER NOT NULL,
	target_end INTEGER NOT NULL,
	confidence REAL NOT NULL,
	comment TEXT NOT NULL DEFAULT '',
	explanation TEXT NOT NULL DEFAULT '',
	original_code TEXT NOT NULL DEFAULT '',
	validated INTEGER NOT NULL DEFAULT 0,
	manually_assigned INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_annotations_session ON annotations(session_id);

CREATE TABLE IF NOT EXISTS audit_events (
	id TEXT PRIMARY KEY,
	seq INTEGER NOT NULL,
	annotation_id TEXT NOT NULL,
	session_id TEXT NOT NULL,
	action TEXT NOT NULL,
	from_status TEXT NOT NULL DEFAULT '',
	to_status TEXT NOT NULL,
	from_code TEXT NOT NULL DEFAULT '',
	to_code TEXT NOT NULL DEFAULT '',
	timestamp TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_session ON audit_events(session_id);
CREATE INDEX IF NOT EXISTS idx_audit_annotation ON audit_events(annotation_id);
`

const annotationColumns = `id, session_id, strategy_code, origin, status, source_start, source_end,
	target_start, target_end, confidence, comment, explanation, original_code, validated,
	manually_assigned, created_at, updated_at`

const eventColumns = `id, seq, annotation_id, session_id, action, from_status, to_status, from_code, to_code, timestamp`

// SQLite stores sessions in one database file
type SQLite struct {
	db   *sql.DB
	path string
}

// NewSQLite opens (creating if needed) the database at path and applies the schema
func NewSQLite(path string) (*SQLite, error) {
	const op = "sqlite.Open"
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, model.Wrap(fmt.Errorf("create directory: %w", err), model.KindPersistenceUnavailable, op)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, model.Wrap(fmt.Errorf("open database: %w", err), model.KindPersistenceUnavailable, op)
	}
	// One connection serializes writers; the store already orders writes per session
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, model.Wrap(fmt.Errorf("initialize schema: %w", err), model.KindPersistenceUnavailable, op)
	}
	return &SQLite{db: db, path: path}, nil
}

func (s *SQLite) Name() string { return "sqlite" }

// Path returns the database file path
func (s *SQLite) Path() string { return s.path }

func (s *SQLite) Ping(ctx context.Context) error {
	return model.Wrap(s.db.PingContext(ctx), model.KindPersistenceUnavailable, "sqlite.Ping")
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func upsertAnnotation(ctx context.Context, ex execer, a model.Annotation) error {
	_, err := ex.ExecContext(ctx, `INSERT INTO annotations (`+annotationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			strategy_code = excluded.strategy_code,
			status = excluded.status,
			source_start = excluded.source_start,
			source_end = excluded.source_end,
			target_start = excluded.target_start,
			target_end = excluded.target_end,
			confidence = excluded.confidence,
			comment = excluded.comment,
			explanation = excluded.explanation,
			original_code = excluded.original_code,
			validated = excluded.validated,
			manually_assigned = excluded.manually_assigned,
			updated_at = excluded.updated_at`,
		a.ID, a.SessionID, string(a.StrategyCode), string(a.Origin), string(a.Status),
		a.SourceOffsets.Start, a.SourceOffsets.End, a.TargetOffsets.Start, a.TargetOffsets.End,
		a.Confidence, a.Comment, a.Explanation, string(a.OriginalCode),
		boolInt(a.Validated), boolInt(a.ManuallyAssigned),
		formatTime(a.CreatedAt), formatTime(a.UpdatedAt))
	return err
}

func insertEvent(ctx context.Context, ex execer, e model.AuditEvent) error {
	_, err := ex.ExecContext(ctx, `INSERT OR IGNORE INTO audit_events (`+eventColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Seq, e.AnnotationID, e.SessionID, string(e.Action),
		string(e.FromStatus), string(e.ToStatus), string(e.FromCode), string(e.ToCode),
		formatTime(e.Timestamp))
	return err
}

// Write upserts the annotation and appends the event in one transaction
func (s *SQLite) Write(ctx context.Context, m Mutation) error {
	const op = "sqlite.Write"
	if err := checkSession(op, m.Annotation.SessionID); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Wrap(fmt.Errorf("begin: %w", err), model.KindPersistenceUnavailable, op)
	}
	defer func() { _ = tx.Rollback() }()

	if err := upsertAnnotation(ctx, tx, m.Annotation); err != nil {
		return model.Wrap(fmt.Errorf("upsert annotation: %w", err), model.KindPersistenceUnavailable, op)
	}
	if m.Event.ID != "" {
		if err := insertEvent(ctx, tx, m.Event); err != nil {
			return model.Wrap(fmt.Errorf("append audit: %w", err), model.KindPersistenceUnavailable, op)
		}
	}
	return model.Wrap(tx.Commit(), model.KindPersistenceUnavailable, op)
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanAnnotation(sc scanner) (model.Annotation, error) {
	var a model.Annotation
	var code, origin, status, original, created, updated string
	var validated, manual int
	err := sc.Scan(&a.ID, &a.SessionID, &code, &origin, &status,
		&a.SourceOffsets.Start, &a.SourceOffsets.End, &a.TargetOffsets.Start, &a.TargetOffsets.End,
		&a.Confidence, &a.Comment, &a.Explanation, &original, &validated, &manual, &created, &updated)
	if err != nil {
		return a, err
	}
	a.StrategyCode = model.StrategyCode(code)
	a.Origin = model.Origin(origin)
	a.Status = model.Status(status)
	a.OriginalCode = model.StrategyCode(original)
	a.Validated = validated != 0
	a.ManuallyAssigned = manual != 0
	if a.CreatedAt, err = parseTime(created); err != nil {
		return a, err
	}
	a.UpdatedAt, err = parseTime(updated)
	return a, err
}

func (s *SQLite) Get(ctx context.Context, id string) (model.Annotation, error) {
	const op = "sqlite.Get"
	row := s.db.QueryRowContext(ctx, `SELECT `+annotationColumns+` FROM annotations WHERE id = ?`, id)
	a, err := scanAnnotation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Annotation{}, notFound(op, id)
	}
	if err != nil {
		return model.Annotation{}, model.Wrap(err, model.KindPersistenceUnavailable, op)
	}
	return a, nil
}

func (s *SQLite) List(ctx context.Context, session string) ([]model.Annotation, error) {
	const op = "sqlite.List"
	if err := checkSession(op, session); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+annotationColumns+` FROM annotations WHERE session_id = ?`, session)
	if err != nil {
		return nil, model.Wrap(err, model.KindPersistenceUnavailable, op)
	}
	defer rows.Close()

	var out []model.Annotation
	for rows.Next() {
		a, err := scanAnnotation(rows)
		if err != nil {
			return nil, model.Wrap(err, model.KindPersistenceUnavailable, op)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, model.Wrap(err, model.KindPersistenceUnavailable, op)
	}
	// Stored timestamps are not lexically ordered, so sort in memory
	sortAnnotations(out)
	return out, nil
}

func (s *SQLite) Audit(ctx context.Context, session string) ([]model.AuditEvent, error) {
	const op = "sqlite.Audit"
	if err := checkSession(op, session); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+eventColumns+` FROM audit_events WHERE session_id = ?`, session)
	if err != nil {
		return nil, model.Wrap(err, model.KindPersistenceUnavailable, op)
	}
	defer rows.Close()

	var out []model.AuditEvent
	for rows.Next() {
		var e model.AuditEvent
		var action, fromStatus, toStatus, fromCode, toCode, ts string
		if err := rows.Scan(&e.ID, &e.Seq, &e.AnnotationID, &e.SessionID, &action,
			&fromStatus, &toStatus, &fromCode, &toCode, &ts); err != nil {
			return nil, model.Wrap(err, model.KindPersistenceUnavailable, op)
		}
		e.Action = model.Action(action)
		e.FromStatus = model.Status(fromStatus)
		e.ToStatus = model.Status(toStatus)
		e.FromCode = model.StrategyCode(fromCode)
		e.ToCode = model.StrategyCode(toCode)
		if e.Timestamp, err = parseTime(ts); err != nil {
			return nil, model.Wrap(err, model.KindPersistenceUnavailable, op)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, model.Wrap(err, model.KindPersistenceUnavailable, op)
	}
	sortEvents(out)
	return out, nil
}

func (s *SQLite) Sessions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT session_id FROM annotations
		UNION SELECT DISTINCT session_id FROM audit_events ORDER BY 1`)
	if err != nil {
		return nil, model.Wrap(err, model.KindPersistenceUnavailable, "sqlite.Sessions")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, model.Wrap(err, model.KindPersistenceUnavailable, "sqlite.Sessions")
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Import writes all records of a session in a single transaction
func (s *SQLite) Import(ctx context.Context, session string, annotations []model.Annotation, events []model.AuditEvent) error {
	const op = "sqlite.Import"
	if err := checkSession(op, session); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Wrap(err, model.KindPersistenceUnavailable, op)
	}
	defer func() { _ = tx.Rollback() }()

	for _, a := range annotations {
		if err := upsertAnnotation(ctx, tx, a); err != nil {
			return model.Wrap(fmt.Errorf("annotation %s: %w", a.ID, err), model.KindPersistenceUnavailable, op)
		}
	}
	for _, e := range events {
		if err := insertEvent(ctx, tx, e); err != nil {
			return model.Wrap(fmt.Errorf("event %s: %w", e.ID, err), model.KindPersistenceUnavailable, op)
		}
	}
	return model.Wrap(tx.Commit(), model.KindPersistenceUnavailable, op)
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
