package model

import (
	"fmt"
	"time"
)

// Origin records who produced an annotation
type Origin string

const (
	OriginMachine Origin = "machine"
	OriginHuman   Origin = "human"
)

// Status is the lifecycle state of an annotation
type Status string

const (
	StatusCreated  Status = "created"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
	StatusModified Status = "modified"
)

// Hidden reports whether annotations in this status are left out of default views
func (s Status) Hidden() bool {
	return s == StatusRejected
}

// ParseStatus validates a status string
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusCreated, StatusAccepted, StatusRejected, StatusModified:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// Action is a lifecycle transition request
type Action string

const (
	ActionCreate Action = "create"
	ActionAccept Action = "accept"
	ActionReject Action = "reject"
	ActionModify Action = "modify"
	ActionImport Action = "import"
)

// ParseAction validates an action string
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionCreate, ActionAccept, ActionReject, ActionModify, ActionImport:
		return Action(s), nil
	}
	return "", fmt.Errorf("unknown action %q", s)
}

// Annotation is the persisted, user-facing record of one finding
type Annotation struct {
	ID               string       `json:"id"`
	SessionID        string       `json:"session_id"`
	StrategyCode     StrategyCode `json:"strategy_code"`
	Origin           Origin       `json:"origin"`
	Status           Status       `json:"status"`
	SourceOffsets    Span         `json:"source_offsets"`
	TargetOffsets    Span         `json:"target_offsets"`
	Confidence       float64      `json:"confidence"`
	Comment          string       `json:"comment,omitempty"`
	Explanation      string       `json:"explanation,omitempty"`
	OriginalCode     StrategyCode `json:"original_code,omitempty"`
	Validated        bool         `json:"validated"`
	ManuallyAssigned bool         `json:"manually_assigned"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`

	// Degraded is set on write responses when one backend failed; it is not persisted.
	Degraded bool `json:"degraded,omitempty"`
}

// Decision maps the status onto the label used in training exports
func (a Annotation) Decision() string {
	switch a.Status {
	case StatusAccepted:
		return "accept"
	case StatusRejected:
		return "reject"
	case StatusModified:
		return "modify"
	default:
		return "pending"
	}
}

// Before orders annotations by (created_at, id)
func (a Annotation) Before(b Annotation) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// AuditEvent is one immutable lifecycle transition record
type AuditEvent struct {
	ID           string       `json:"id"`
	Seq          int64        `json:"seq"`
	AnnotationID string       `json:"annotation_id"`
	SessionID    string       `json:"session_id"`
	Action       Action       `json:"action"`
	FromStatus   Status       `json:"from_status,omitempty"`
	ToStatus     Status       `json:"to_status"`
	FromCode     StrategyCode `json:"from_code,omitempty"`
	ToCode       StrategyCode `json:"to_code,omitempty"`
	Timestamp    time.Time    `json:"timestamp"`
}

// Before orders audit events by (timestamp, annotation_id, seq)
func (e AuditEvent) Before(o AuditEvent) bool {
	if !e.Timestamp.Equal(o.Timestamp) {
		return e.Timestamp.Before(o.Timestamp)
	}
	if e.AnnotationID != o.AnnotationID {
		return e.AnnotationID < o.AnnotationID
	}
	return e.Seq < o.Seq
}
