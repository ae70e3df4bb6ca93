package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures so callers can react without string matching
type ErrorKind string

const (
	KindValidation             ErrorKind = "validation"
	KindAlignmentFailure       ErrorKind = "alignment_failure"
	KindDetectionSkip          ErrorKind = "detection_skip"
	KindInvalidTransition      ErrorKind = "invalid_transition"
	KindNotFound               ErrorKind = "not_found"
	KindPersistenceDegraded    ErrorKind = "persistence_degraded"
	KindPersistenceUnavailable ErrorKind = "persistence_unavailable"
	KindInternal               ErrorKind = "internal"
)

// Error is the typed error carried across package boundaries.
//
//	return model.E(model.KindNotFound, "store.Get", "annotation %s", id)
//	return model.Wrap(err, model.KindPersistenceUnavailable, "sqlite.Write")
type Error struct {
	Kind ErrorKind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E builds an Error with a formatted message
func E(kind ErrorKind, op string, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind to an underlying error. A nil err yields nil.
func Wrap(err error, kind ErrorKind, op string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the outermost typed error in the chain, or KindInternal
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether any typed error in the chain has the given kind
func IsKind(err error, kind ErrorKind) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Err
	}
	return false
}
