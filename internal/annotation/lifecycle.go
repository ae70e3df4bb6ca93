package annotation

import (
	"context"

	"github.com/ppiankov/intralign/internal/model"
)

// allowed lists the statuses each action may start from
var allowed = map[model.Action][]model.Status{
	model.ActionAccept: {model.StatusCreated, model.StatusModified},
	model.ActionReject: {model.StatusCreated, model.StatusAccepted, model.StatusModified},
	model.ActionModify: {model.StatusCreated, model.StatusAccepted, model.StatusModified},
}

// CanTransition reports whether action may be applied to an annotation in status from
func CanTransition(from model.Status, action model.Action) bool {
	for _, s := range allowed[action] {
		if s == from {
			return true
		}
	}
	return false
}

// Transition applies a lifecycle action. Illegal actions leave the
// annotation unchanged and return KindInvalidTransition.
func (s *Store) Transition(ctx context.Context, id string, action model.Action, p TransitionParams) (model.Annotation, error) {
	const op = "annotation.Transition"
	if _, ok := allowed[action]; !ok {
		return model.Annotation{}, model.E(model.KindValidation, op, "action %q is not a transition", action)
	}
	if action == model.ActionModify {
		if p.NewCode == "" {
			return model.Annotation{}, model.E(model.KindValidation, op, "modify needs a new strategy code")
		}
		if !p.NewCode.Valid() {
			return model.Annotation{}, model.E(model.KindValidation, op, "unknown strategy code %q", p.NewCode)
		}
	}

	// Resolve the session before locking it
	cur, err := s.backend.Get(ctx, id)
	if err != nil {
		return model.Annotation{}, err
	}
	st, err := s.lock(ctx, cur.SessionID)
	if err != nil {
		return model.Annotation{}, err
	}
	defer st.mu.Unlock()

	// Re-read under the lock so concurrent transitions see each other
	if cur, err = s.backend.Get(ctx, id); err != nil {
		return model.Annotation{}, err
	}
	if !CanTransition(cur.Status, action) {
		return model.Annotation{}, model.E(model.KindInvalidTransition, op, "cannot %s annotation %s in status %s", action, id, cur.Status)
	}

	next := cur
	next.Degraded = false
	switch action {
	case model.ActionAccept:
		next.Status = model.StatusAccepted
		next.Validated = true
	case model.ActionReject:
		next.Status = model.StatusRejected
		next.Validated = false
	case model.ActionModify:
		if p.NewCode == cur.StrategyCode {
			return model.Annotation{}, model.E(model.KindValidation, op, "annotation %s already has code %s", id, p.NewCode)
		}
		next.Status = model.StatusModified
		next.StrategyCode = p.NewCode
		if next.OriginalCode == "" {
			next.OriginalCode = cur.StrategyCode
		}
	}
	if p.Comment != "" {
		next.Comment = p.Comment
	}

	now := s.timestamp()
	if !now.After(cur.UpdatedAt) {
		// updated_at strictly increases per annotation
		now = cur.UpdatedAt.Add(1)
	}
	next.UpdatedAt = now

	ev := model.AuditEvent{
		ID:           s.newID(),
		Seq:          st.seq + 1,
		AnnotationID: id,
		SessionID:    cur.SessionID,
		Action:       action,
		FromStatus:   cur.Status,
		ToStatus:     next.Status,
		FromCode:     cur.StrategyCode,
		ToCode:       next.StrategyCode,
		Timestamp:    now,
	}
	return s.commit(ctx, st, next, ev)
}
