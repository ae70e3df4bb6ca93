// Package annotation implements the annotation lifecycle and its audit trail
// on top of a storage backend.
package annotation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ppiankov/intralign/internal/model"
	"github.com/ppiankov/intralign/internal/storage"
)

// Backend is the persistence the store writes through
type Backend interface {
	storage.Repository
	WriteResult(ctx context.Context, m storage.Mutation) (storage.WriteResult, error)
	Diagnostics() storage.Diagnostics
}

// CreateParams describe a new annotation
type CreateParams struct {
	SessionID     string             `json:"session_id" validate:"required"`
	StrategyCode  model.StrategyCode `json:"strategy_code" validate:"required"`
	Origin        model.Origin       `json:"origin" validate:"required,oneof=machine human"`
	SourceOffsets model.Span         `json:"source_offsets"`
	TargetOffsets model.Span         `json:"target_offsets"`
	Confidence    float64            `json:"confidence" validate:"gte=0,lte=1"`
	Comment       string             `json:"comment,omitempty"`
	Explanation   string             `json:"explanation,omitempty"`
}

// TransitionParams carry the optional inputs of a transition
type TransitionParams struct {
	NewCode model.StrategyCode `json:"new_code,omitempty"`
	Comment string             `json:"comment,omitempty"`
}

// Filter narrows List. Empty sets match everything; rejected annotations
// are hidden unless IncludeHidden is set or Statuses names them.
type Filter struct {
	Statuses      []model.Status
	Codes         []model.StrategyCode
	IncludeHidden bool
}

// AuditFilter narrows Audit
type AuditFilter struct {
	AnnotationID string
	Action       model.Action
}

// Option configures a Store
type Option func(*Store)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDs replaces the uuid generator
func WithIDs(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Store applies lifecycle rules and writes through a backend. Writes are
// serialized per session; different sessions proceed in parallel.
type Store struct {
	backend Backend
	logger  *zap.Logger
	now     func() time.Time
	newID   func() string

	mu       sync.Mutex
	sessions map[string]*sessionState
}

type sessionState struct {
	mu     sync.Mutex
	seq    int64
	loaded bool
}

// NewStore creates a store over backend
func NewStore(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend:  backend,
		logger:   zap.NewNop(),
		now:      time.Now,
		newID:    uuid.NewString,
		sessions: make(map[string]*sessionState),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) session(id string) *sessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sessions[id]
	if !ok {
		st = &sessionState{}
		s.sessions[id] = st
	}
	return st
}

// lock takes the session's write lock and makes sure its audit sequence is
// loaded. Callers must unlock st.mu.
func (s *Store) lock(ctx context.Context, session string) (*sessionState, error) {
	st := s.session(session)
	st.mu.Lock()
	if st.loaded {
		return st, nil
	}
	events, err := s.backend.Audit(ctx, session)
	if err != nil {
		st.mu.Unlock()
		return nil, err
	}
	for _, e := range events {
		if e.Seq > st.seq {
			st.seq = e.Seq
		}
	}
	st.loaded = true
	return st, nil
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC()
}

// Create stores a new annotation in status created. Machine origin may not
// use human-only codes; human origin marks the annotation manually assigned.
func (s *Store) Create(ctx context.Context, p CreateParams) (model.Annotation, error) {
	const op = "annotation.Create"
	if err := model.Validate(op, p); err != nil {
		return model.Annotation{}, err
	}
	if !storage.ValidSession(p.SessionID) {
		return model.Annotation{}, model.E(model.KindValidation, op, "invalid session id %q", p.SessionID)
	}
	if !p.StrategyCode.Valid() {
		return model.Annotation{}, model.E(model.KindValidation, op, "unknown strategy code %q", p.StrategyCode)
	}
	if p.Origin == model.OriginMachine && p.StrategyCode.HumanOnly() {
		return model.Annotation{}, model.E(model.KindValidation, op, "%s (%s) can only be assigned by a person", p.StrategyCode, p.StrategyCode.Name())
	}
	if err := checkSpan(op, "source_offsets", p.SourceOffsets); err != nil {
		return model.Annotation{}, err
	}
	if err := checkSpan(op, "target_offsets", p.TargetOffsets); err != nil {
		return model.Annotation{}, err
	}

	st, err := s.lock(ctx, p.SessionID)
	if err != nil {
		return model.Annotation{}, err
	}
	defer st.mu.Unlock()

	now := s.timestamp()
	a := model.Annotation{
		ID:               s.newID(),
		SessionID:        p.SessionID,
		StrategyCode:     p.StrategyCode,
		Origin:           p.Origin,
		Status:           model.StatusCreated,
		SourceOffsets:    p.SourceOffsets,
		TargetOffsets:    p.TargetOffsets,
		Confidence:       p.Confidence,
		Comment:          p.Comment,
		Explanation:      p.Explanation,
		ManuallyAssigned: p.Origin == model.OriginHuman,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	ev := model.AuditEvent{
		ID:           s.newID(),
		Seq:          st.seq + 1,
		AnnotationID: a.ID,
		SessionID:    a.SessionID,
		Action:       model.ActionCreate,
		ToStatus:     model.StatusCreated,
		ToCode:       a.StrategyCode,
		Timestamp:    now,
	}

	return s.commit(ctx, st, a, ev)
}

// commit writes the mutation and advances the sequence on success
func (s *Store) commit(ctx context.Context, st *sessionState, a model.Annotation, ev model.AuditEvent) (model.Annotation, error) {
	res, err := s.backend.WriteResult(ctx, storage.Mutation{Annotation: a, Event: ev})
	if err != nil {
		s.logger.Error("annotation write failed",
			zap.String("session", a.SessionID),
			zap.String("annotation", a.ID),
			zap.String("action", string(ev.Action)),
			zap.Error(err))
		return model.Annotation{}, err
	}
	st.seq = ev.Seq
	a.Degraded = res.Degraded

	s.logger.Debug("annotation written",
		zap.String("session", a.SessionID),
		zap.String("annotation", a.ID),
		zap.String("action", string(ev.Action)),
		zap.String("status", string(a.Status)),
		zap.Bool("degraded", res.Degraded))
	return a, nil
}

// Get returns one annotation
func (s *Store) Get(ctx context.Context, id string) (model.Annotation, error) {
	return s.backend.Get(ctx, id)
}

// List returns a session's annotations ordered by (created_at, id)
func (s *Store) List(ctx context.Context, session string, f Filter) ([]model.Annotation, error) {
	all, err := s.backend.List(ctx, session)
	if err != nil {
		return nil, err
	}

	statuses := make(map[model.Status]bool, len(f.Statuses))
	for _, st := range f.Statuses {
		statuses[st] = true
	}
	codes := make(map[model.StrategyCode]bool, len(f.Codes))
	for _, c := range f.Codes {
		codes[c] = true
	}

	out := make([]model.Annotation, 0, len(all))
	for _, a := range all {
		if len(statuses) > 0 && !statuses[a.Status] {
			continue
		}
		if len(statuses) == 0 && !f.IncludeHidden && a.Status.Hidden() {
			continue
		}
		if len(codes) > 0 && !codes[a.StrategyCode] {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

// Audit returns a session's events ordered by (timestamp, annotation_id, seq)
func (s *Store) Audit(ctx context.Context, session string, f AuditFilter) ([]model.AuditEvent, error) {
	all, err := s.backend.Audit(ctx, session)
	if err != nil {
		return nil, err
	}
	out := make([]model.AuditEvent, 0, len(all))
	for _, e := range all {
		if f.AnnotationID != "" && e.AnnotationID != f.AnnotationID {
			continue
		}
		if f.Action != "" && e.Action != f.Action {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// Sessions lists every session with stored records
func (s *Store) Sessions(ctx context.Context) ([]string, error) {
	return s.backend.Sessions(ctx)
}

// Diagnostics reports the persistence state
func (s *Store) Diagnostics() storage.Diagnostics {
	return s.backend.Diagnostics()
}

// Ping checks the backend
func (s *Store) Ping(ctx context.Context) error {
	return s.backend.Ping(ctx)
}

func checkSpan(op, name string, sp model.Span) error {
	if sp.Start < 0 || sp.End < sp.Start {
		return model.E(model.KindValidation, op, "%s must satisfy 0 <= start <= end, got [%d,%d)", name, sp.Start, sp.End)
	}
	return nil
}
