package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/intralign/internal/model"
)

// WriteResult reports how a write landed when more than one backend is involved
type WriteResult struct {
	Degraded bool // The primary missed this write; a secondary holds it
}

// Dual writes every mutation to a primary and a secondary backend
// concurrently. A write succeeds while at least one backend accepts it.
type Dual struct {
	primary   Repository
	secondary Repository
	logger    *zap.Logger

	mu            sync.Mutex
	degraded      bool
	primaryMissed bool // Reads must merge both backends
	lastErr       string
}

// NewDual composes two backends
func NewDual(primary, secondary Repository, logger *zap.Logger) *Dual {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dual{primary: primary, secondary: secondary, logger: logger}
}

func (d *Dual) Name() string {
	return fmt.Sprintf("dual(%s+%s)", d.primary.Name(), d.secondary.Name())
}

// Ping succeeds while either backend answers
func (d *Dual) Ping(ctx context.Context) error {
	perr := d.primary.Ping(ctx)
	serr := d.secondary.Ping(ctx)
	if perr != nil && serr != nil {
		return model.Wrap(fmt.Errorf("primary: %v; secondary: %w", perr, serr), model.KindPersistenceUnavailable, "dual.Ping")
	}
	return nil
}

// Write applies m to both backends and waits for both
func (d *Dual) Write(ctx context.Context, m Mutation) error {
	_, err := d.WriteResult(ctx, m)
	return err
}

// WriteResult is Write with the degradation outcome
func (d *Dual) WriteResult(ctx context.Context, m Mutation) (WriteResult, error) {
	var perr, serr error
	var g errgroup.Group
	g.Go(func() error {
		perr = d.primary.Write(ctx, m)
		return nil
	})
	g.Go(func() error {
		serr = d.secondary.Write(ctx, m)
		return nil
	})
	_ = g.Wait()

	return d.settle("dual.Write", m.Annotation.ID, perr, serr)
}

// Import copies records into both backends
func (d *Dual) Import(ctx context.Context, session string, annotations []model.Annotation, events []model.AuditEvent) error {
	var perr, serr error
	var g errgroup.Group
	g.Go(func() error {
		perr = d.primary.Import(ctx, session, annotations, events)
		return nil
	})
	g.Go(func() error {
		serr = d.secondary.Import(ctx, session, annotations, events)
		return nil
	})
	_ = g.Wait()

	_, err := d.settle("dual.Import", session, perr, serr)
	return err
}

func (d *Dual) settle(op, subject string, perr, serr error) (WriteResult, error) {
	switch {
	case perr == nil && serr == nil:
		return WriteResult{}, nil
	case perr != nil && serr != nil:
		d.fail(perr)
		return WriteResult{}, model.Wrap(fmt.Errorf("primary: %v; secondary: %w", perr, serr), model.KindPersistenceUnavailable, op)
	case perr != nil:
		if model.IsKind(perr, model.KindValidation) {
			return WriteResult{}, perr
		}
		d.mu.Lock()
		d.degraded, d.primaryMissed, d.lastErr = true, true, perr.Error()
		d.mu.Unlock()
		d.logger.Warn("primary backend write failed, kept on secondary",
			zap.String("op", op),
			zap.String("subject", subject),
			zap.String("primary", d.primary.Name()),
			zap.Error(perr))
		return WriteResult{Degraded: true}, nil
	default:
		d.fail(serr)
		d.logger.Warn("secondary backend write failed",
			zap.String("op", op),
			zap.String("subject", subject),
			zap.String("secondary", d.secondary.Name()),
			zap.Error(serr))
		return WriteResult{}, nil
	}
}

func (d *Dual) fail(err error) {
	d.mu.Lock()
	d.degraded, d.lastErr = true, err.Error()
	d.mu.Unlock()
}

// Health reports whether a backend has failed since startup and the last error
func (d *Dual) Health() (degraded bool, lastErr string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.degraded, d.lastErr
}

func (d *Dual) merging() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.primaryMissed
}

// Get reads the primary, falling back to (or merging with) the secondary
func (d *Dual) Get(ctx context.Context, id string) (model.Annotation, error) {
	a, perr := d.primary.Get(ctx, id)
	if perr == nil && !d.merging() {
		return a, nil
	}
	b, serr := d.secondary.Get(ctx, id)
	switch {
	case perr == nil && serr == nil:
		if b.UpdatedAt.After(a.UpdatedAt) {
			return b, nil
		}
		return a, nil
	case perr == nil:
		return a, nil
	case serr == nil:
		return b, nil
	case model.IsKind(perr, model.KindNotFound):
		return model.Annotation{}, perr
	default:
		return model.Annotation{}, serr
	}
}

// List reads the primary; after a primary miss it merges both backends and
// the newest updated_at wins per id
func (d *Dual) List(ctx context.Context, session string) ([]model.Annotation, error) {
	primary, perr := d.primary.List(ctx, session)
	if perr == nil && !d.merging() {
		return primary, nil
	}
	secondary, serr := d.secondary.List(ctx, session)
	if perr != nil && serr != nil {
		return nil, model.Wrap(fmt.Errorf("primary: %v; secondary: %w", perr, serr), model.KindPersistenceUnavailable, "dual.List")
	}

	byID := make(map[string]model.Annotation, len(primary)+len(secondary))
	for _, list := range [][]model.Annotation{primary, secondary} {
		for _, a := range list {
			if cur, ok := byID[a.ID]; !ok || a.UpdatedAt.After(cur.UpdatedAt) {
				byID[a.ID] = a
			}
		}
	}
	out := make([]model.Annotation, 0, len(byID))
	for _, a := range byID {
		out = append(out, a)
	}
	sortAnnotations(out)
	return out, nil
}

// Audit merges event streams by id after a primary miss
func (d *Dual) Audit(ctx context.Context, session string) ([]model.AuditEvent, error) {
	primary, perr := d.primary.Audit(ctx, session)
	if perr == nil && !d.merging() {
		return primary, nil
	}
	secondary, serr := d.secondary.Audit(ctx, session)
	if perr != nil && serr != nil {
		return nil, model.Wrap(fmt.Errorf("primary: %v; secondary: %w", perr, serr), model.KindPersistenceUnavailable, "dual.Audit")
	}

	seen := make(map[string]bool, len(primary)+len(secondary))
	var out []model.AuditEvent
	for _, list := range [][]model.AuditEvent{primary, secondary} {
		for _, e := range list {
			if !seen[e.ID] {
				seen[e.ID] = true
				out = append(out, e)
			}
		}
	}
	sortEvents(out)
	return out, nil
}

// Sessions is the union of both backends
func (d *Dual) Sessions(ctx context.Context) ([]string, error) {
	primary, perr := d.primary.Sessions(ctx)
	secondary, serr := d.secondary.Sessions(ctx)
	if perr != nil && serr != nil {
		return nil, model.Wrap(fmt.Errorf("primary: %v; secondary: %w", perr, serr), model.KindPersistenceUnavailable, "dual.Sessions")
	}

	set := make(map[string]bool)
	for _, s := range append(primary, secondary...) {
		set[s] = true
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out, nil
}

func (d *Dual) Close() error {
	perr := d.primary.Close()
	serr := d.secondary.Close()
	if perr != nil {
		return perr
	}
	return serr
}
