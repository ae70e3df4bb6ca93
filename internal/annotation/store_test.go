package annotation

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ppiankov/intralign/internal/model"
	"github.com/ppiankov/intralign/internal/storage"
)

// tick is a clock advancing one second per call
func tick() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

func counter() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%03d", n)
	}
}

func newStore(t *testing.T) (*Store, *storage.Backend) {
	t.Helper()
	backend, err := storage.Open(model.StorageConfig{Mode: model.StorageFS, Dir: t.TempDir()}, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return NewStore(backend, WithClock(tick()), WithIDs(counter())), backend
}

func machine(session string, code model.StrategyCode) CreateParams {
	return CreateParams{
		SessionID:     session,
		StrategyCode:  code,
		Origin:        model.OriginMachine,
		SourceOffsets: model.Span{Start: 0, End: 131},
		TargetOffsets: model.Span{Start: 0, End: 60},
		Confidence:    0.55,
	}
}

func TestStore_AcceptShowsInList(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)

	a, err := s.Create(ctx, machine("s1", model.CodeLexicalSubstitution))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if a.Status != model.StatusCreated || a.Validated || a.ManuallyAssigned {
		t.Errorf("unexpected new annotation: %+v", a)
	}

	if _, err := s.Transition(ctx, a.ID, model.ActionAccept, TransitionParams{}); err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	list, err := s.List(ctx, "s1", Filter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 1 || list[0].Status != model.StatusAccepted || !list[0].Validated {
		t.Errorf("expected accepted and validated, got %+v", list)
	}
}

func TestStore_HumanOnlyCodes(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)

	if _, err := s.Create(ctx, machine("s1", model.CodeSemanticDeviation)); !model.IsKind(err, model.KindValidation) {
		t.Errorf("expected machine AS+ to be refused, got %v", err)
	}

	p := machine("s1", model.CodeSemanticDeviation)
	p.Origin = model.OriginHuman
	p.Confidence = 0.05
	a, err := s.Create(ctx, p)
	if err != nil {
		t.Fatalf("human AS+ must succeed: %v", err)
	}
	if !a.ManuallyAssigned || a.Origin != model.OriginHuman {
		t.Errorf("expected manually assigned human annotation, got %+v", a)
	}
}

func TestStore_CreateValidation(t *testing.T) {
	s, _ := newStore(t)
	tests := []struct {
		name string
		mut  func(*CreateParams)
	}{
		{"missing session", func(p *CreateParams) { p.SessionID = "" }},
		{"bad session", func(p *CreateParams) { p.SessionID = "../x" }},
		{"unknown code", func(p *CreateParams) { p.StrategyCode = "XX+" }},
		{"bad origin", func(p *CreateParams) { p.Origin = "robot" }},
		{"confidence", func(p *CreateParams) { p.Confidence = 1.5 }},
		{"inverted span", func(p *CreateParams) { p.TargetOffsets = model.Span{Start: 9, End: 3} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := machine("s1", model.CodeReduction)
			tt.mut(&p)
			if _, err := s.Create(context.Background(), p); !model.IsKind(err, model.KindValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestStore_TransitionTable(t *testing.T) {
	tests := []struct {
		name    string
		actions []model.Action
		wantErr model.ErrorKind
	}{
		{"accept created", []model.Action{model.ActionAccept}, ""},
		{"accept twice", []model.Action{model.ActionAccept, model.ActionAccept}, model.KindInvalidTransition},
		{"accept rejected", []model.Action{model.ActionReject, model.ActionAccept}, model.KindInvalidTransition},
		{"modify rejected", []model.Action{model.ActionReject, model.ActionModify}, model.KindInvalidTransition},
		{"reject twice", []model.Action{model.ActionReject, model.ActionReject}, model.KindInvalidTransition},
		{"reject accepted", []model.Action{model.ActionAccept, model.ActionReject}, ""},
		{"accept modified", []model.Action{model.ActionModify, model.ActionAccept}, ""},
		{"create is not a transition", []model.Action{model.ActionCreate}, model.KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s, _ := newStore(t)
			a, err := s.Create(ctx, machine("s1", model.CodeLexicalSubstitution))
			if err != nil {
				t.Fatal(err)
			}

			var last error
			var before model.Annotation
			for _, act := range tt.actions {
				before, _ = s.Get(ctx, a.ID)
				_, last = s.Transition(ctx, a.ID, act, TransitionParams{NewCode: model.CodeReordering})
			}
			if tt.wantErr == "" {
				if last != nil {
					t.Fatalf("unexpected error: %v", last)
				}
				return
			}
			if !model.IsKind(last, tt.wantErr) {
				t.Fatalf("expected %s, got %v", tt.wantErr, last)
			}
			after, _ := s.Get(ctx, a.ID)
			if after.Status != before.Status || !after.UpdatedAt.Equal(before.UpdatedAt) {
				t.Error("a refused transition must leave the annotation unchanged")
			}
		})
	}
}

func TestStore_ModifySetsOriginalCodeOnce(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)
	a, _ := s.Create(ctx, machine("s1", model.CodeLexicalSubstitution))

	m1, err := s.Transition(ctx, a.ID, model.ActionModify, TransitionParams{NewCode: model.CodeReordering, Comment: "word order"})
	if err != nil {
		t.Fatalf("first modify failed: %v", err)
	}
	if m1.OriginalCode != model.CodeLexicalSubstitution || m1.StrategyCode != model.CodeReordering || m1.Comment != "word order" {
		t.Errorf("unexpected first modify result: %+v", m1)
	}

	m2, err := s.Transition(ctx, a.ID, model.ActionModify, TransitionParams{NewCode: model.CodeInsertion})
	if err != nil {
		t.Fatalf("second modify failed: %v", err)
	}
	if m2.OriginalCode != model.CodeLexicalSubstitution || m2.StrategyCode != model.CodeInsertion {
		t.Errorf("original code must not be overwritten: %+v", m2)
	}

	if _, err := s.Transition(ctx, a.ID, model.ActionModify, TransitionParams{NewCode: model.CodeInsertion}); !model.IsKind(err, model.KindValidation) {
		t.Errorf("modify to the same code should be refused, got %v", err)
	}
	if _, err := s.Transition(ctx, a.ID, model.ActionModify, TransitionParams{}); !model.IsKind(err, model.KindValidation) {
		t.Errorf("modify without a code should be refused, got %v", err)
	}
}

func TestStore_RejectHidesButKeepsAudit(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)
	a, _ := s.Create(ctx, machine("s1", model.CodeLexicalSubstitution))
	b, _ := s.Create(ctx, machine("s1", model.CodeVoiceChange))

	if _, err := s.Transition(ctx, a.ID, model.ActionAccept, TransitionParams{}); err != nil {
		t.Fatal(err)
	}
	rejected, err := s.Transition(ctx, a.ID, model.ActionReject, TransitionParams{})
	if err != nil {
		t.Fatal(err)
	}
	if rejected.Validated {
		t.Error("reject clears validated")
	}

	visible, _ := s.List(ctx, "s1", Filter{})
	if len(visible) != 1 || visible[0].ID != b.ID {
		t.Errorf("expected only %s visible, got %+v", b.ID, visible)
	}
	all, _ := s.List(ctx, "s1", Filter{IncludeHidden: true})
	if len(all) != 2 {
		t.Errorf("expected 2 with hidden, got %d", len(all))
	}
	onlyRejected, _ := s.List(ctx, "s1", Filter{Statuses: []model.Status{model.StatusRejected}})
	if len(onlyRejected) != 1 || onlyRejected[0].ID != a.ID {
		t.Errorf("explicit status filter should reach hidden annotations, got %+v", onlyRejected)
	}

	events, err := s.Audit(ctx, "s1", AuditFilter{AnnotationID: a.ID})
	if err != nil {
		t.Fatal(err)
	}
	want := []model.Action{model.ActionCreate, model.ActionAccept, model.ActionReject}
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %+v", len(want), events)
	}
	for i, e := range events {
		if e.Action != want[i] {
			t.Errorf("event %d: expected %s, got %s", i, want[i], e.Action)
		}
	}
	if events[1].FromStatus != model.StatusCreated || events[1].ToStatus != model.StatusAccepted {
		t.Errorf("unexpected accept event: %+v", events[1])
	}

	accepts, _ := s.Audit(ctx, "s1", AuditFilter{Action: model.ActionAccept})
	if len(accepts) != 1 {
		t.Errorf("expected one accept event, got %d", len(accepts))
	}
}

func TestStore_ValidatedImpliesAcceptedInAudit(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)
	a, _ := s.Create(ctx, machine("s1", model.CodeLexicalSubstitution))
	_, _ = s.Transition(ctx, a.ID, model.ActionAccept, TransitionParams{})
	_, _ = s.Transition(ctx, a.ID, model.ActionModify, TransitionParams{NewCode: model.CodeReordering})

	got, _ := s.Get(ctx, a.ID)
	if !got.Validated {
		t.Fatal("modify keeps validated")
	}
	events, _ := s.Audit(ctx, "s1", AuditFilter{AnnotationID: a.ID, Action: model.ActionAccept})
	if len(events) == 0 {
		t.Error("validated annotation has no accept in its audit trail")
	}
}

func TestStore_NotFound(t *testing.T) {
	s, _ := newStore(t)
	if _, err := s.Get(context.Background(), "nope"); !model.IsKind(err, model.KindNotFound) {
		t.Errorf("expected NotFound, got %v", err)
	}
	if _, err := s.Transition(context.Background(), "nope", model.ActionAccept, TransitionParams{}); !model.IsKind(err, model.KindNotFound) {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestStore_SequencePerSession(t *testing.T) {
	ctx := context.Background()
	s, backend := newStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			session := "even"
			if i%2 == 1 {
				session = "odd"
			}
			if _, err := s.Create(ctx, machine(session, model.CodeReduction)); err != nil {
				t.Errorf("Create failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	for _, session := range []string{"even", "odd"} {
		events, err := s.Audit(ctx, session, AuditFilter{})
		if err != nil {
			t.Fatal(err)
		}
		seen := make(map[int64]bool)
		for _, e := range events {
			seen[e.Seq] = true
		}
		if len(events) != 10 || len(seen) != 10 || !seen[1] || !seen[10] {
			t.Errorf("%s: expected seq 1..10, got %+v", session, seen)
		}
	}

	// A fresh store continues the sequence from the backend
	s2 := NewStore(backend, WithClock(tick()), WithIDs(func() string { return "later" }))
	if _, err := s2.Create(ctx, machine("odd", model.CodeReduction)); err != nil {
		t.Fatal(err)
	}
	events, _ := s2.Audit(ctx, "odd", AuditFilter{AnnotationID: "later"})
	if len(events) != 1 || events[0].Seq != 11 {
		t.Errorf("expected seq 11 after reopen, got %+v", events)
	}
}

func TestStore_DualWriteDegraded(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	db, err := storage.NewSQLite(filepath.Join(dir, "annotations.db"))
	if err != nil {
		t.Fatal(err)
	}
	fs, err := storage.NewFS(filepath.Join(dir, "sessions"))
	if err != nil {
		t.Fatal(err)
	}
	_ = db.Close()

	s := NewStore(storage.NewBackend(storage.NewDual(db, fs, nil), model.StorageDual))
	a, err := s.Create(ctx, machine("s1", model.CodeLexicalSubstitution))
	if err != nil {
		t.Fatalf("Create should succeed on the secondary: %v", err)
	}
	if !a.Degraded {
		t.Error("expected the create response to be flagged degraded")
	}
	if _, err := fs.Get(ctx, a.ID); err != nil {
		t.Errorf("FS backend must contain the record: %v", err)
	}

	diag := s.Diagnostics()
	if !diag.Degraded || diag.Primary != "sqlite" || diag.Secondary != "fs" {
		t.Errorf("unexpected diagnostics: %+v", diag)
	}
}

func TestStore_SeedMachine(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)

	strategies := []model.DetectedStrategy{
		{ID: "s-1", Code: model.CodeGlobalRewriting, Confidence: 0.5, TargetSpan: model.Span{Start: 0, End: 60}},
		{ID: "s-2", Code: model.CodeLexicalSubstitution, Confidence: 0.55, TargetSpan: model.Span{Start: 0, End: 60},
			Explanation: model.Explanation{Text: "replacements are shorter"}},
	}
	anns, err := s.SeedMachine(ctx, "s1", strategies)
	if err != nil {
		t.Fatalf("SeedMachine failed: %v", err)
	}
	if len(anns) != 2 || anns[1].Explanation != "replacements are shorter" || anns[0].Origin != model.OriginMachine {
		t.Errorf("unexpected seeded annotations: %+v", anns)
	}

	list, _ := s.List(ctx, "s1", Filter{Codes: []model.StrategyCode{model.CodeLexicalSubstitution}})
	if len(list) != 1 || list[0].StrategyCode != model.CodeLexicalSubstitution {
		t.Errorf("code filter failed: %+v", list)
	}
}
