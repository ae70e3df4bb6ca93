// Package export serializes annotations and audit events for training and review.
package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/ppiankov/intralign/internal/annotation"
	"github.com/ppiankov/intralign/internal/model"
)

// Export types
const (
	TypeAnnotations = "annotations"
	TypeAudit       = "audit"
)

// Formats
const (
	FormatLines = "lines" // One JSON object per line
	FormatTable = "table" // CSV with a header row
)

// Scopes
const (
	ScopeGold = "gold" // Validated only
	ScopeRaw  = "raw"  // Everything not rejected
	ScopeBoth = "both" // Everything, status column included
)

// Request selects what to export
type Request struct {
	Session  string         `validate:"required"`
	Type     string         `validate:"omitempty,oneof=annotations audit"`
	Format   string         `validate:"omitempty,oneof=lines table"`
	Scope    string         `validate:"omitempty,oneof=gold raw both"`
	Statuses []model.Status `validate:"dive,oneof=created accepted rejected modified"`
}

func (r Request) withDefaults() Request {
	if r.Type == "" {
		r.Type = TypeAnnotations
	}
	if r.Format == "" {
		r.Format = FormatLines
	}
	if r.Scope == "" {
		r.Scope = ScopeGold
	}
	return r
}

// Record is one exported annotation
type Record struct {
	ID               string  `json:"id"`
	SessionID        string  `json:"session_id"`
	StrategyCode     string  `json:"strategy_code"`
	StrategyName     string  `json:"strategy_name"`
	Origin           string  `json:"origin"`
	Status           string  `json:"status"`
	Decision         string  `json:"decision"`
	Validated        bool    `json:"validated"`
	ManuallyAssigned bool    `json:"manually_assigned"`
	Confidence       float64 `json:"confidence"`
	SourceStart      int     `json:"source_start"`
	SourceEnd        int     `json:"source_end"`
	TargetStart      int     `json:"target_start"`
	TargetEnd        int     `json:"target_end"`
	OriginalCode     string  `json:"original_code,omitempty"`
	Comment          string  `json:"comment,omitempty"`
	Explanation      string  `json:"explanation,omitempty"`
	CreatedAt        string  `json:"created_at"`
	UpdatedAt        string  `json:"updated_at"`
}

var recordHeader = []string{
	"id", "session_id", "strategy_code", "strategy_name", "origin", "status", "decision",
	"validated", "manually_assigned", "confidence", "source_start", "source_end",
	"target_start", "target_end", "original_code", "comment", "explanation",
	"created_at", "updated_at",
}

func (r Record) row() []string {
	return []string{
		r.ID, r.SessionID, r.StrategyCode, r.StrategyName, r.Origin, r.Status, r.Decision,
		strconv.FormatBool(r.Validated), strconv.FormatBool(r.ManuallyAssigned),
		strconv.FormatFloat(r.Confidence, 'f', 4, 64),
		strconv.Itoa(r.SourceStart), strconv.Itoa(r.SourceEnd),
		strconv.Itoa(r.TargetStart), strconv.Itoa(r.TargetEnd),
		r.OriginalCode, r.Comment, r.Explanation, r.CreatedAt, r.UpdatedAt,
	}
}

// NewRecord flattens an annotation
func NewRecord(a model.Annotation) Record {
	return Record{
		ID:               a.ID,
		SessionID:        a.SessionID,
		StrategyCode:     string(a.StrategyCode),
		StrategyName:     a.StrategyCode.Name(),
		Origin:           string(a.Origin),
		Status:           string(a.Status),
		Decision:         a.Decision(),
		Validated:        a.Validated,
		ManuallyAssigned: a.ManuallyAssigned,
		Confidence:       a.Confidence,
		SourceStart:      a.SourceOffsets.Start,
		SourceEnd:        a.SourceOffsets.End,
		TargetStart:      a.TargetOffsets.Start,
		TargetEnd:        a.TargetOffsets.End,
		OriginalCode:     string(a.OriginalCode),
		Comment:          a.Comment,
		Explanation:      a.Explanation,
		CreatedAt:        stamp(a.CreatedAt),
		UpdatedAt:        stamp(a.UpdatedAt),
	}
}

// EventRecord is one exported audit event
type EventRecord struct {
	ID           string `json:"id"`
	Seq          int64  `json:"seq"`
	AnnotationID string `json:"annotation_id"`
	SessionID    string `json:"session_id"`
	Action       string `json:"action"`
	FromStatus   string `json:"from_status"`
	ToStatus     string `json:"to_status"`
	FromCode     string `json:"from_code"`
	ToCode       string `json:"to_code"`
	Timestamp    string `json:"timestamp"`
}

var eventHeader = []string{
	"id", "seq", "annotation_id", "session_id", "action",
	"from_status", "to_status", "from_code", "to_code", "timestamp",
}

func (r EventRecord) row() []string {
	return []string{
		r.ID, strconv.FormatInt(r.Seq, 10), r.AnnotationID, r.SessionID, r.Action,
		r.FromStatus, r.ToStatus, r.FromCode, r.ToCode, r.Timestamp,
	}
}

// NewEventRecord flattens an audit event
func NewEventRecord(e model.AuditEvent) EventRecord {
	return EventRecord{
		ID:           e.ID,
		Seq:          e.Seq,
		AnnotationID: e.AnnotationID,
		SessionID:    e.SessionID,
		Action:       string(e.Action),
		FromStatus:   string(e.FromStatus),
		ToStatus:     string(e.ToStatus),
		FromCode:     string(e.FromCode),
		ToCode:       string(e.ToCode),
		Timestamp:    stamp(e.Timestamp),
	}
}

func stamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// Source is the part of the annotation store export reads
type Source interface {
	List(ctx context.Context, session string, f annotation.Filter) ([]model.Annotation, error)
	Audit(ctx context.Context, session string, f annotation.AuditFilter) ([]model.AuditEvent, error)
}

// Service writes exports from a store
type Service struct {
	source Source
}

// NewService creates an export service
func NewService(source Source) *Service {
	return &Service{source: source}
}

// Export writes the selected records to w and returns how many were written
func (s *Service) Export(ctx context.Context, w io.Writer, req Request) (int, error) {
	const op = "export.Export"
	req = req.withDefaults()
	if err := model.Validate(op, req); err != nil {
		return 0, err
	}

	if req.Type == TypeAudit {
		events, err := s.source.Audit(ctx, req.Session, annotation.AuditFilter{})
		if err != nil {
			return 0, err
		}
		rows := make([]EventRecord, len(events))
		for i, e := range events {
			rows[i] = NewEventRecord(e)
		}
		return len(rows), write(w, req.Format, eventHeader, rows, func(r EventRecord) []string { return r.row() })
	}

	anns, err := s.source.List(ctx, req.Session, annotation.Filter{IncludeHidden: true})
	if err != nil {
		return 0, err
	}
	rows := make([]Record, 0, len(anns))
	for _, a := range Select(anns, req.Scope, req.Statuses) {
		rows = append(rows, NewRecord(a))
	}
	return len(rows), write(w, req.Format, recordHeader, rows, func(r Record) []string { return r.row() })
}

// Select applies a scope and an optional status filter, keeping order
func Select(anns []model.Annotation, scope string, statuses []model.Status) []model.Annotation {
	want := make(map[model.Status]bool, len(statuses))
	for _, s := range statuses {
		want[s] = true
	}

	out := make([]model.Annotation, 0, len(anns))
	for _, a := range anns {
		switch scope {
		case ScopeGold:
			if !a.Validated {
				continue
			}
		case ScopeRaw:
			if a.Status.Hidden() {
				continue
			}
		}
		if len(want) > 0 && !want[a.Status] {
			continue
		}
		out = append(out, a)
	}
	return out
}

func write[T any](w io.Writer, format string, header []string, rows []T, row func(T) []string) error {
	switch format {
	case FormatTable:
		cw := csv.NewWriter(w)
		if err := cw.Write(header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		for _, r := range rows {
			if err := cw.Write(row(r)); err != nil {
				return fmt.Errorf("write row: %w", err)
			}
		}
		cw.Flush()
		return cw.Error()
	default:
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		for _, r := range rows {
			if err := enc.Encode(r); err != nil {
				return fmt.Errorf("encode line: %w", err)
			}
		}
		return nil
	}
}

// FileName is the conventional export file name for a request
func FileName(req Request) string {
	req = req.withDefaults()
	ext := "jsonl"
	if req.Format == FormatTable {
		ext = "csv"
	}
	if req.Type == TypeAudit {
		return fmt.Sprintf("%s.audit.%s", req.Session, ext)
	}
	return fmt.Sprintf("%s.%s.%s", req.Session, req.Scope, ext)
}
