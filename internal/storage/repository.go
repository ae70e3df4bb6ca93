// Package storage persists annotations and their audit trail. Backends are
// interchangeable behind Repository.
package storage

import (
	"context"
	"regexp"
	"sort"

	"github.com/ppiankov/intralign/internal/model"
)

// Mutation is one atomic write: an annotation upsert plus the audit event
// that produced it
type Mutation struct {
	Annotation model.Annotation
	Event      model.AuditEvent
}

// Repository is a persistence backend. Writes are atomic per backend.
type Repository interface {
	Name() string
	Ping(ctx context.Context) error
	Write(ctx context.Context, m Mutation) error
	Get(ctx context.Context, id string) (model.Annotation, error)
	// List returns a session's annotations ordered by (created_at, id)
	List(ctx context.Context, session string) ([]model.Annotation, error)
	// Audit returns a session's events ordered by (timestamp, annotation_id, seq)
	Audit(ctx context.Context, session string) ([]model.AuditEvent, error)
	Sessions(ctx context.Context) ([]string, error)
	// Import copies records verbatim, keeping ids, timestamps and seq
	Import(ctx context.Context, session string, annotations []model.Annotation, events []model.AuditEvent) error
	Close() error
}

var sessionPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// ValidSession reports whether id can name a session. Session ids become
// file names, so path separators and leading dots are refused.
func ValidSession(id string) bool {
	return sessionPattern.MatchString(id)
}

func checkSession(op, id string) error {
	if !ValidSession(id) {
		return model.E(model.KindValidation, op, "invalid session id %q", id)
	}
	return nil
}

func sortAnnotations(anns []model.Annotation) {
	sort.SliceStable(anns, func(i, j int) bool { return anns[i].Before(anns[j]) })
}

func sortEvents(events []model.AuditEvent) {
	sort.SliceStable(events, func(i, j int) bool { return events[i].Before(events[j]) })
}

func notFound(op, id string) error {
	return model.E(model.KindNotFound, op, "annotation %s", id)
}
