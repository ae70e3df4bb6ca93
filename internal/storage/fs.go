package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/ppiankov/intralign/internal/model"
)

// sessionFile is the on-disk layout of one session
type sessionFile struct {
	SessionID   string             `json:"session_id"`
	Annotations []model.Annotation `json:"annotations"`
	Audit       []model.AuditEvent `json:"audit"`
}

// FS keeps one JSON document per session under dir
type FS struct {
	dir string
	mu  sync.Mutex
}

// NewFS creates the directory if needed
func NewFS(dir string) (*FS, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, model.Wrap(fmt.Errorf("create session dir: %w", err), model.KindPersistenceUnavailable, "fs.Open")
	}
	return &FS{dir: dir}, nil
}

func (f *FS) Name() string { return "fs" }

// Ping checks the directory is still writable
func (f *FS) Ping(ctx context.Context) error {
	tmp, err := os.CreateTemp(f.dir, ".ping-*")
	if err != nil {
		return model.Wrap(err, model.KindPersistenceUnavailable, "fs.Ping")
	}
	name := tmp.Name()
	_ = tmp.Close()
	return os.Remove(name)
}

func (f *FS) path(session string) string {
	return filepath.Join(f.dir, session+".json")
}

func (f *FS) load(session string) (*sessionFile, error) {
	data, err := os.ReadFile(f.path(session))
	if errors.Is(err, os.ErrNotExist) {
		return &sessionFile{SessionID: session}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session %s: %w", session, err)
	}
	var sf sessionFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", session, err)
	}
	return &sf, nil
}

// save rewrites the session file atomically: temp file, fsync, rename
func (f *FS) save(sf *sessionFile) error {
	sortAnnotations(sf.Annotations)
	sortEvents(sf.Audit)

	data, err := json.MarshalIndent(sf, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	tmp, err := os.CreateTemp(f.dir, "."+sf.SessionID+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, f.path(sf.SessionID)); err != nil {
		return fmt.Errorf("rename session file: %w", err)
	}
	return nil
}

// Write upserts the annotation and appends the event in one file rewrite
func (f *FS) Write(ctx context.Context, m Mutation) error {
	const op = "fs.Write"
	if err := checkSession(op, m.Annotation.SessionID); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	sf, err := f.load(m.Annotation.SessionID)
	if err != nil {
		return model.Wrap(err, model.KindPersistenceUnavailable, op)
	}

	ann := m.Annotation
	ann.Degraded = false
	replaced := false
	for i := range sf.Annotations {
		if sf.Annotations[i].ID == ann.ID {
			sf.Annotations[i] = ann
			replaced = true
			break
		}
	}
	if !replaced {
		sf.Annotations = append(sf.Annotations, ann)
	}
	if m.Event.ID != "" {
		sf.Audit = append(sf.Audit, m.Event)
	}

	return model.Wrap(f.save(sf), model.KindPersistenceUnavailable, op)
}

func (f *FS) Get(ctx context.Context, id string) (model.Annotation, error) {
	const op = "fs.Get"
	sessions, err := f.Sessions(ctx)
	if err != nil {
		return model.Annotation{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range sessions {
		sf, err := f.load(s)
		if err != nil {
			return model.Annotation{}, model.Wrap(err, model.KindPersistenceUnavailable, op)
		}
		for _, a := range sf.Annotations {
			if a.ID == id {
				return a, nil
			}
		}
	}
	return model.Annotation{}, notFound(op, id)
}

func (f *FS) List(ctx context.Context, session string) ([]model.Annotation, error) {
	if err := checkSession("fs.List", session); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	sf, err := f.load(session)
	if err != nil {
		return nil, model.Wrap(err, model.KindPersistenceUnavailable, "fs.List")
	}
	sortAnnotations(sf.Annotations)
	return sf.Annotations, nil
}

func (f *FS) Audit(ctx context.Context, session string) ([]model.AuditEvent, error) {
	if err := checkSession("fs.Audit", session); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	sf, err := f.load(session)
	if err != nil {
		return nil, model.Wrap(err, model.KindPersistenceUnavailable, "fs.Audit")
	}
	sortEvents(sf.Audit)
	return sf.Audit, nil
}

// Sessions lists the session files in the directory
func (f *FS) Sessions(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, model.Wrap(err, model.KindPersistenceUnavailable, "fs.Sessions")
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		if s := strings.TrimSuffix(name, ".json"); ValidSession(s) {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Import merges records into the session, replacing same-id annotations and
// skipping events already present
func (f *FS) Import(ctx context.Context, session string, annotations []model.Annotation, events []model.AuditEvent) error {
	const op = "fs.Import"
	if err := checkSession(op, session); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	sf, err := f.load(session)
	if err != nil {
		return model.Wrap(err, model.KindPersistenceUnavailable, op)
	}

	index := make(map[string]int, len(sf.Annotations))
	for i, a := range sf.Annotations {
		index[a.ID] = i
	}
	for _, a := range annotations {
		a.Degraded = false
		if i, ok := index[a.ID]; ok {
			sf.Annotations[i] = a
			continue
		}
		index[a.ID] = len(sf.Annotations)
		sf.Annotations = append(sf.Annotations, a)
	}

	seen := make(map[string]bool, len(sf.Audit))
	for _, e := range sf.Audit {
		seen[e.ID] = true
	}
	for _, e := range events {
		if !seen[e.ID] {
			seen[e.ID] = true
			sf.Audit = append(sf.Audit, e)
		}
	}

	return model.Wrap(f.save(sf), model.KindPersistenceUnavailable, op)
}

func (f *FS) Close() error { return nil }
